// Package websocket 提供 WebSocket 通信功能
package websocket

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"arzuno-builder-server/internal/preview"
	"arzuno-builder-server/pkg/jwt"
	"arzuno-builder-server/pkg/response"
)

// upgrader WebSocket 协议升级器
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// 跨域检查交给 CORS 中间件和前端部署约定
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler WebSocket 升级处理器
type Handler struct {
	hub       *Hub
	jwtSecret string
}

// NewHandler 创建 Handler 实例
// 参数:
//   - hub: Hub 实例
//   - jwtSecret: JWT 签名密钥，用于握手时验证 token
func NewHandler(hub *Hub, jwtSecret string) *Handler {
	return &Handler{
		hub:       hub,
		jwtSecret: jwtSecret,
	}
}

// ServePreview 处理预览端的 WebSocket 连接
// 路由: GET /ws/preview/:frameId?token=xxx
// token 可选: 不带 token 的连接只能看，不能编辑
func (h *Handler) ServePreview(c *gin.Context) {
	frameID := c.Param("frameId")
	if frameID == "" {
		response.BadRequest(c, "缺少画框标识")
		return
	}

	// 浏览器的 WebSocket API 不支持自定义请求头，
	// token 通过查询参数传递
	var userID int64
	if token := c.Query("token"); token != "" {
		claims, err := jwt.ParseUserToken(token, h.jwtSecret)
		if err != nil {
			response.Unauthorized(c, "token 无效")
			return
		}
		userID = claims.UserID
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WARN] websocket upgrade failed: %v", err)
		return
	}

	client := NewClient(h.hub, conn, frameID, userID)
	h.hub.register <- client

	// 发送初始快照: 正在编辑时发编辑文档，否则发最近保存的版本
	h.sendInitialSnapshot(client, frameID)

	// 启动读写循环
	go client.WritePump()
	go client.ReadPump()
}

// sendInitialSnapshot 给新连接发送当前文档
func (h *Handler) sendInitialSnapshot(client *Client, frameID string) {
	if doc, editing := h.hub.EditingDocument(frameID); editing {
		client.SendMessage(NewMessage(TypeEditorUpdate, &PreviewUpdatePayload{
			FrameID:  frameID,
			Document: preview.BuildDocument(doc, true),
		}))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	code, err := h.hub.frames.LatestDesignCode(ctx, frameID)
	if err != nil {
		// 画框不存在或加载失败，留给前端按空画框处理
		return
	}

	client.SendMessage(NewMessage(TypePreviewUpdate, &PreviewUpdatePayload{
		FrameID:  frameID,
		Document: preview.BuildDocument(code, false),
		Seq:      h.hub.LastSeq(frameID),
	}))
}
