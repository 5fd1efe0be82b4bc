package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"arzuno-builder-server/internal/service"
	"arzuno-builder-server/pkg/response"
)

// ExportHandler 导出相关的请求处理器
type ExportHandler struct {
	frameService *service.FrameService
}

// NewExportHandler 创建 ExportHandler 实例
func NewExportHandler(frameService *service.FrameService) *ExportHandler {
	return &ExportHandler{frameService: frameService}
}

// Export 导出画框为独立的 HTML 文档
// 路由: GET /api/v1/frames/:frameId/export（需要认证）
// 带 ?download=1 时以附件形式下载，文件名固定为 index.html
func (h *ExportHandler) Export(c *gin.Context) {
	frameID := c.Param("frameId")

	doc, err := h.frameService.Export(c.Request.Context(), frameID)
	if err != nil {
		if errors.Is(err, service.ErrFrameNotFound) {
			response.FrameNotFound(c)
			return
		}
		response.InternalError(c, "导出失败")
		return
	}

	if c.Query("download") == "1" {
		c.Header("Content-Disposition", `attachment; filename="index.html"`)
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(doc))
}
