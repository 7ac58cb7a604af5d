package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/snapvault/pkg/internal/handle"
)

// RegisterSharesRoutes 注册分享相关路由.
func RegisterSharesRoutes(g *gin.RouterGroup) {
	sharesRoutes := g.Group("/shares")
	{
		sharesRoutes.POST("/file", handle.CreateFileShare)     // 上传文件，获得取件码
		sharesRoutes.POST("/text", handle.CreateTextShare)     // 分享文本，获得取件码
		sharesRoutes.POST("/download", handle.DownloadShare)   // 文件下载授权（预签名地址）
		sharesRoutes.GET("/:otp", handle.RetrieveShare)        // 取件
		sharesRoutes.DELETE("/:otp", handle.DeleteShare)       // 提前删除
	}
}
