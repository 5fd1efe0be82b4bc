package handler

import (
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"arzuno-builder-server/internal/media"
	"arzuno-builder-server/pkg/response"
)

// maxUploadSize 服务端中转上传的大小上限（10MB）
const maxUploadSize = 10 * 1024 * 1024

// MediaHandler 媒体相关的请求处理器
type MediaHandler struct {
	mediaService *media.Service
}

// NewMediaHandler 创建 MediaHandler 实例
func NewMediaHandler(mediaService *media.Service) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// AuthParams 下发前端直传的鉴权参数
// 路由: GET /api/v1/media/auth（需要认证）
func (h *MediaHandler) AuthParams(c *gin.Context) {
	params, err := h.mediaService.GenerateAuthParams(30 * time.Minute)
	if err != nil {
		if errors.Is(err, media.ErrNotConfigured) {
			response.Error(c, 503, "媒体服务未配置")
			return
		}
		response.InternalError(c, "生成上传凭证失败")
		return
	}

	response.Success(c, params)
}

// Upload 服务端中转上传
// 前端直传失败（跨域受限等）时的兜底通道
// 路由: POST /api/v1/media/upload（需要认证，multipart）
func (h *MediaHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, "缺少文件")
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		response.BadRequest(c, "文件超过大小限制")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		response.InternalError(c, "读取文件失败")
		return
	}

	result, err := h.mediaService.Upload(c.Request.Context(), header.Filename, data)
	if err != nil {
		response.UploadFailed(c, "上传失败: "+err.Error())
		return
	}

	response.Success(c, result)
}

// GenerateRequest AI 配图请求
type GenerateImageRequest struct {
	Text   string `json:"text" binding:"required"` // 图片描述文本
	Width  int    `json:"width"`                   // 宽度（像素），可选
	Height int    `json:"height"`                  // 高度（像素），可选
}

// Generate 生成配图并上传
// 路由: POST /api/v1/media/generate（需要认证）
func (h *MediaHandler) Generate(c *gin.Context) {
	var req GenerateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.mediaService.GeneratePlaceholder(c.Request.Context(), req.Text, req.Width, req.Height)
	if err != nil {
		response.UploadFailed(c, "生成配图失败")
		return
	}

	response.Success(c, result)
}
