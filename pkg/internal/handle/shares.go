package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/snapvault/pkg/internal/service"
	"github.com/yeisme/snapvault/pkg/internal/types"
	"github.com/yeisme/snapvault/pkg/log"
	"github.com/yeisme/snapvault/pkg/queue"
)

// CreateFileShare 上传文件并获得取件码.
//
//	@Summary		创建文件分享
//	@Description	multipart 表单上传，字段名 file；返回四位数字取件码
//	@Tags			分享
//	@Accept			multipart/form-data
//	@Produce		json
//	@Success		201	{object}	types.CreateShareResponse
//	@Failure		400	{object}	map[string]string
//	@Failure		413	{object}	map[string]string
//	@Failure		503	{object}	map[string]string
//	@Router			/api/v1/shares/file [post]
func CreateFileShare(c *gin.Context) {
	l := log.Logger()

	fh, err := c.FormFile("file")
	if err != nil {
		l.Warn().Err(err).Msg("missing file field")
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})

		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	svc := service.NewShareService(c.Request.Context())

	resp, err := svc.CreateFileShare(c.Request.Context(), fh.Filename, contentType, fh.Size, f)
	if err != nil {
		l.Error().Err(err).Str("filename", fh.Filename).Msg("create file share failed")
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusCreated, resp)
}

// CreateTextShare 分享一段文本并获得取件码.
//
//	@Summary	创建文本分享
//	@Tags		分享
//	@Accept		json
//	@Produce	json
//	@Success	201	{object}	types.CreateShareResponse
//	@Failure	400	{object}	map[string]string
//	@Router		/api/v1/shares/text [post]
func CreateTextShare(c *gin.Context) {
	l := log.Logger()

	var req types.CreateTextShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	svc := service.NewShareService(c.Request.Context())

	resp, err := svc.CreateTextShare(c.Request.Context(), &req)
	if err != nil {
		l.Error().Err(err).Msg("create text share failed")
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusCreated, resp)
}

// RetrieveShare 以取件码兑换内容.
//
//	@Summary	取件
//	@Tags		分享
//	@Produce	json
//	@Param		otp	path		string	true	"四位数字取件码"
//	@Success	200	{object}	types.RetrieveShareResponse
//	@Failure	400	{object}	map[string]string
//	@Failure	404	{object}	map[string]string
//	@Failure	410	{object}	map[string]string
//	@Router		/api/v1/shares/{otp} [get]
func RetrieveShare(c *gin.Context) {
	svc := service.NewShareService(c.Request.Context())

	resp, err := svc.RetrieveShare(c.Request.Context(), c.Param("otp"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DownloadShare 为文件分享签发限时下载地址.
//
//	@Summary	下载授权
//	@Tags		分享
//	@Accept		json
//	@Produce	json
//	@Success	200	{object}	types.DownloadShareResponse
//	@Failure	400	{object}	map[string]string
//	@Failure	404	{object}	map[string]string
//	@Failure	410	{object}	map[string]string
//	@Failure	502	{object}	map[string]string
//	@Router		/api/v1/shares/download [post]
func DownloadShare(c *gin.Context) {
	l := log.Logger()

	var req types.DownloadShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	svc := service.NewShareService(c.Request.Context())

	resp, err := svc.AuthorizeDownload(c.Request.Context(), req.Path, req.OTP)
	if err != nil {
		l.Warn().Err(err).Msg("authorize download failed")
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteShare 提前删除分享.
//
//	@Summary	删除分享
//	@Tags		分享
//	@Param		otp	path	string	true	"四位数字取件码"
//	@Success	204
//	@Failure	400	{object}	map[string]string
//	@Failure	500	{object}	map[string]string
//	@Router		/api/v1/shares/{otp} [delete]
func DeleteShare(c *gin.Context) {
	l := log.Logger()

	svc := service.NewShareService(c.Request.Context())

	if err := svc.DeleteShare(c.Request.Context(), c.Param("otp"), queue.DeleteTriggerManual); err != nil {
		l.Error().Err(err).Msg("delete share failed")
		writeServiceError(c, err)

		return
	}

	c.Status(http.StatusNoContent)
}
