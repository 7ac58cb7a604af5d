// Package main 启动应用程序
package main

import "github.com/yeisme/snapvault/pkg/cmd"

//	@title			SnapVault API
//	@version		1.0
//	@description	SnapVault 是一个临时的取件码分享服务：上传文件或文本获得 4 位取件码，对方在有效期内凭码取件，内容过期或取件后自动销毁。

//	@license.name	MIT
//	@license.url	https://opensource.org/license/mit/

func main() {
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}
