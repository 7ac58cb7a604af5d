// Package router 管理路由配置，用于设置HTTP服务的路由规则.
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterAll 将全部业务路由绑定到传入的路由组.
func RegisterAll(g *gin.RouterGroup) {
	RegisterSharesRoutes(g)
	RegisterHealthCheckRoute(g)
	RegisterSchedulerRoutes(g)
}
