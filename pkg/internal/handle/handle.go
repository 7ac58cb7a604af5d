// Package handle 提供请求处理器的实现，将 HTTP 请求翻译为 service 调用.
package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/snapvault/pkg/internal/service"
	"github.com/yeisme/snapvault/pkg/log"
)

func DefaultHandler(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{"message": "Not Implemented"})
}

// writeServiceError 将 service 层错误映射为 HTTP 状态码.
//
//	ErrInvalidOTP           -> 400
//	ErrNotFound             -> 404
//	ErrExpired              -> 410
//	ErrTooLarge             -> 413
//	ErrAllocationExhausted  -> 503（取件码空间暂时耗尽，可稍后再试）
//	StorageError            -> 502
//	其余                    -> 500
func writeServiceError(c *gin.Context, err error) {
	var storageErr *service.StorageError

	switch {
	case errors.Is(err, service.ErrInvalidOTP):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid code"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrExpired):
		c.JSON(http.StatusGone, gin.H{"error": "expired"})
	case errors.Is(err, service.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAllocationExhausted):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no codes available, try again later"})
	case errors.As(err, &storageErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "storage unavailable"})
	default:
		// 数据库报错等内部细节只进日志，响应体不回显
		log.Logger().Error().Err(err).Str("path", c.FullPath()).Msg("internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
