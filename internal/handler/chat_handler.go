package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"arzuno-builder-server/internal/model"
	"arzuno-builder-server/internal/service"
	"arzuno-builder-server/pkg/response"
)

// ChatHandler 对话历史相关的请求处理器
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler 创建 ChatHandler 实例
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Get 获取画框的对话历史
// 路由: GET /api/v1/frames/:frameId/chat（需要认证）
func (h *ChatHandler) Get(c *gin.Context) {
	frameID := c.Param("frameId")

	messages, err := h.chatService.Get(c.Request.Context(), frameID)
	if err != nil {
		response.InternalError(c, "加载对话失败")
		return
	}

	response.Success(c, messages)
}

// SaveChatRequest 保存对话请求
type SaveChatRequest struct {
	Messages model.MessageList `json:"messages" binding:"required"` // 完整的消息列表
}

// Save 保存画框的对话历史
// 整体覆盖写入，前端在消息列表变化后调用
// 路由: PUT /api/v1/frames/:frameId/chat（需要认证）
func (h *ChatHandler) Save(c *gin.Context) {
	frameID := c.Param("frameId")
	email := c.GetString("email")

	var req SaveChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	if err := h.chatService.Save(c.Request.Context(), frameID, email, req.Messages); err != nil {
		if errors.Is(err, service.ErrFrameNotFound) {
			response.FrameNotFound(c)
			return
		}
		response.InternalError(c, "保存对话失败")
		return
	}

	response.SuccessWithMessage(c, "保存成功", nil)
}
