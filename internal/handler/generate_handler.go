package handler

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"arzuno-builder-server/internal/service"
	"arzuno-builder-server/pkg/response"
)

// GenerateHandler 生成相关的请求处理器
// 生成结果通过 SSE 流式返回给调用方，
// 预览文档的推送走 WebSocket，与这条 SSE 通道无关
type GenerateHandler struct {
	generationService *service.GenerationService
}

// NewGenerateHandler 创建 GenerateHandler 实例
func NewGenerateHandler(generationService *service.GenerationService) *GenerateHandler {
	return &GenerateHandler{generationService: generationService}
}

// GenerateRequest 生成请求
type GenerateRequest struct {
	Message string `json:"message" binding:"required"` // 用户消息
}

// Generate 处理一条用户消息并流式返回
// 路由: POST /api/v1/frames/:frameId/generate（需要认证）
// 响应为 SSE 流，事件体是 JSON 编码的 service.Event
// 画框已有生成会话在跑时返回 409，不建立流
func (h *GenerateHandler) Generate(c *gin.Context) {
	frameID := c.Param("frameId")
	email := c.GetString("email")

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	events := make(chan service.Event, 64)
	done := make(chan error, 1)

	// 生成在独立 goroutine 中进行，事件通过通道送回
	go func() {
		emit := func(ev service.Event) {
			select {
			case events <- ev:
			case <-ctx.Done():
				// 调用方已断开，事件丢弃
				// 生成本身继续，完整结果照常持久化
			}
		}
		done <- h.generationService.Generate(ctx, frameID, email, req.Message, emit)
		close(events)
	}()

	// 先等第一个事件或提前返回的错误，
	// 抢锁失败等错误要在 SSE 响应头发出前映射成普通 JSON
	var first *service.Event
	select {
	case ev, ok := <-events:
		if ok {
			first = &ev
		}
	case err := <-done:
		if err != nil {
			if errors.Is(err, service.ErrGenerationBusy) {
				response.GenerationBusy(c)
				return
			}
			response.InternalError(c, "生成失败")
			return
		}
	}

	// SSE 响应头
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	// 反向代理（nginx）默认会缓冲响应，这个头关掉缓冲
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	writeEvent := func(ev service.Event) bool {
		data, err := json.Marshal(ev)
		if err != nil {
			return false
		}
		c.SSEvent("message", string(data))
		return true
	}

	c.Stream(func(w io.Writer) bool {
		if first != nil {
			ev := *first
			first = nil
			return writeEvent(ev)
		}
		ev, ok := <-events
		if !ok {
			return false
		}
		return writeEvent(ev)
	})
}
