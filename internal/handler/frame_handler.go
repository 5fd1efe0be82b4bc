package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"arzuno-builder-server/internal/service"
	"arzuno-builder-server/pkg/response"
)

// FrameHandler 画框相关的请求处理器
type FrameHandler struct {
	frameService *service.FrameService
}

// NewFrameHandler 创建 FrameHandler 实例
func NewFrameHandler(frameService *service.FrameService) *FrameHandler {
	return &FrameHandler{frameService: frameService}
}

// Get 加载画框详情
// 设计代码和对话历史一次带回
// 路由: GET /api/v1/frames/:frameId（需要认证）
func (h *FrameHandler) Get(c *gin.Context) {
	frameID := c.Param("frameId")

	detail, err := h.frameService.Get(c.Request.Context(), frameID)
	if err != nil {
		if errors.Is(err, service.ErrFrameNotFound) {
			response.FrameNotFound(c)
			return
		}
		response.InternalError(c, "加载画框失败")
		return
	}

	response.Success(c, detail)
}

// SaveRequest 保存画框请求
type SaveRequest struct {
	DesignCode string `json:"design_code" binding:"required"` // 完整的 HTML 片段
}

// Save 保存画框的设计代码
// 覆盖写入，后写覆盖先写
// 路由: PUT /api/v1/frames/:frameId（需要认证）
func (h *FrameHandler) Save(c *gin.Context) {
	frameID := c.Param("frameId")

	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	if err := h.frameService.SaveDesignCode(c.Request.Context(), frameID, req.DesignCode); err != nil {
		if errors.Is(err, service.ErrFrameNotFound) {
			response.FrameNotFound(c)
			return
		}
		response.InternalError(c, "保存画框失败")
		return
	}

	response.SuccessWithMessage(c, "保存成功", nil)
}
