// Package api 负责将 HTTP 路由挂载到 gin 引擎上.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/snapvault/pkg/internal/router"
)

// RegisterGroup 注册所有业务路由组到传入的 gin 引擎.
func RegisterGroup(e *gin.Engine) *gin.Engine {
	router.RegisterAll(e.Group("/api/v1"))

	return e
}
