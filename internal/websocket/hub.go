// Package websocket 提供 WebSocket 通信功能
package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"arzuno-builder-server/internal/cache"
	"arzuno-builder-server/internal/editor"
	"arzuno-builder-server/internal/media"
	"arzuno-builder-server/internal/preview"
	"arzuno-builder-server/internal/service"
	"arzuno-builder-server/pkg/response"
)

// RendererProvider 按画框获取预览渲染器
// 由 service.GenerationService 实现
// Hub 在编辑会话的进入和退出时暂停、恢复渲染器
type RendererProvider interface {
	Renderer(frameID string) *preview.Renderer
}

// Hub 管理所有 WebSocket 连接
// 连接按画框分房间，预览推送和编辑广播都以房间为单位
type Hub struct {
	// 注册/注销通道
	register   chan *Client
	unregister chan *Client

	// rooms 画框标识 -> 房间内的连接集合
	rooms map[string]map[*Client]bool

	// lastSeq 每个画框最近广播的预览序号
	// 乱序到达的旧文档在这里被丢弃
	lastSeq map[string]uint64

	// editors 进行中的编辑会话，每个画框最多一个
	editors map[string]*editor.Editor

	// subCancels 每个房间的跨实例订阅取消函数
	subCancels map[string]context.CancelFunc

	// mu 保护 rooms / lastSeq / editors / subCancels
	mu sync.RWMutex

	// 依赖的服务
	frames    *service.FrameService // 画框加载和保存
	media     *media.Service        // 图片校验和变换
	cache     *cache.RedisCache     // 跨实例的预览广播
	renderers RendererProvider      // 渲染器来源，构造后注入
}

// NewHub 创建 Hub 实例
// 参数:
//   - frames: 画框服务
//   - mediaService: 媒体服务
//   - redisCache: Redis 缓存，nil 时不做跨实例广播
//
// 返回:
//   - *Hub: Hub 实例
func NewHub(frames *service.FrameService, mediaService *media.Service, redisCache *cache.RedisCache) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		lastSeq:    make(map[string]uint64),
		editors:    make(map[string]*editor.Editor),
		subCancels: make(map[string]context.CancelFunc),
		frames:     frames,
		media:      mediaService,
		cache:      redisCache,
	}
}

// SetRendererProvider 注入渲染器来源
// GenerationService 以 Hub 为 Sink，Hub 又需要它的渲染器，
// 构造顺序上只能先建 Hub 再回填
func (h *Hub) SetRendererProvider(p RendererProvider) {
	h.renderers = p
}

// Run 运行 Hub 的主循环
// 在独立的 goroutine 中调用
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// addClient 把连接加入画框房间
func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[client.frameID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[client.frameID] = room

		// 房间建立时订阅其他实例发布的预览更新
		if h.cache != nil {
			ctx, cancel := context.WithCancel(context.Background())
			h.subCancels[client.frameID] = cancel
			go h.runPreviewSubscriber(ctx, client.frameID)
		}
	}
	room[client] = true
	log.Printf("[INFO] preview client joined: frame=%s clients=%d", client.frameID, len(room))
}

// removeClient 把连接移出房间
// 房间空了以后清理房间本身，编辑会话随之丢弃
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()

	room, ok := h.rooms[client.frameID]
	if ok {
		if _, in := room[client]; in {
			delete(room, client)
			client.Close()
		}
		if len(room) == 0 {
			delete(h.rooms, client.frameID)
			if cancel, subscribed := h.subCancels[client.frameID]; subscribed {
				delete(h.subCancels, client.frameID)
				cancel()
			}
			// 没有观众了，未保存的编辑修改直接丢弃
			if _, editing := h.editors[client.frameID]; editing {
				delete(h.editors, client.frameID)
				h.mu.Unlock()
				h.exitEditMode(client.frameID)
				return
			}
		}
	}
	h.mu.Unlock()
}

// PushPreview 实现 preview.Sink
// 把生成过程中的预览文档广播给画框房间
// 参数:
//   - frameID: 画框业务标识
//   - document: 完整的 HTML 文档
//   - seq: 单调递增的推送序号
func (h *Hub) PushPreview(frameID string, document string, seq uint64) {
	h.mu.Lock()
	if seq <= h.lastSeq[frameID] {
		// 乱序的旧文档，丢弃
		h.mu.Unlock()
		return
	}
	h.lastSeq[frameID] = seq
	h.mu.Unlock()

	payload := &PreviewUpdatePayload{
		FrameID:  frameID,
		Document: document,
		Seq:      seq,
	}
	h.broadcast(frameID, NewMessage(TypePreviewUpdate, payload))

	// 同步发布给其他实例，失败只记日志
	// 生成会话和预览连接可能不在同一个实例上
	if h.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := h.cache.PublishPreviewUpdate(ctx, frameID, payload); err != nil {
			log.Printf("[WARN] publish preview update failed: frame=%s err=%v", frameID, err)
		}
	}
}

// runPreviewSubscriber 接收其他实例发布的预览更新并广播给本地房间
// 本实例自己发布的消息会被序号保护丢弃，不会重复推送
// 房间清空时通过 ctx 取消退出
func (h *Hub) runPreviewSubscriber(ctx context.Context, frameID string) {
	sub := h.cache.SubscribePreviewUpdates(ctx, frameID)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload PreviewUpdatePayload
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				log.Printf("[WARN] bad preview update message: frame=%s err=%v", frameID, err)
				continue
			}

			h.mu.Lock()
			if payload.Seq <= h.lastSeq[frameID] {
				// 本实例发布的回声，或乱序的旧文档
				h.mu.Unlock()
				continue
			}
			h.lastSeq[frameID] = payload.Seq
			h.mu.Unlock()

			h.broadcast(frameID, NewMessage(TypePreviewUpdate, &payload))
		}
	}
}

// LastSeq 返回画框最近广播的预览序号
// 新连接的初始快照带上它，后续推送不会被误判为乱序
func (h *Hub) LastSeq(frameID string) uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastSeq[frameID]
}

// EditingDocument 返回画框进行中的编辑文档
// 新连接加入时，如果房间正在编辑，初始快照用编辑文档
// 返回:
//   - string: 编辑文档片段
//   - bool: 是否有进行中的编辑会话
func (h *Hub) EditingDocument(frameID string) (string, bool) {
	h.mu.RLock()
	ed, ok := h.editors[frameID]
	h.mu.RUnlock()
	if !ok {
		return "", false
	}
	doc, err := ed.Document()
	if err != nil {
		return "", false
	}
	return doc, true
}

// broadcast 把消息发给房间内的所有连接
func (h *Hub) broadcast(frameID string, msg *Message) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[frameID]))
	for client := range h.rooms[frameID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.SendMessage(msg)
	}
}

// ==================== 编辑会话协调 ====================

// handleEditorMessage 处理预览端上报的编辑消息
// 所有编辑操作都在服务端的 DOM 树上执行，执行后把
// 新的编辑文档广播给整个房间
func (h *Hub) handleEditorMessage(c *Client, msg *Message) {
	switch msg.Type {
	case TypeEditorEnable:
		h.enableEditor(c)
	case TypeEditorDisable:
		h.disableEditor(c, false)
	case TypeEditorSave:
		h.disableEditor(c, true)
	default:
		h.applyEditorOp(c, msg)
	}
}

// enableEditor 进入编辑模式
// 用画框最近保存的片段建立编辑会话，暂停渲染器
func (h *Hub) enableEditor(c *Client) {
	frameID := c.frameID

	h.mu.RLock()
	_, exists := h.editors[frameID]
	h.mu.RUnlock()
	if exists {
		// 已经在编辑中，把当前编辑文档再发一次即可
		if doc, ok := h.EditingDocument(frameID); ok {
			h.broadcastEditorDoc(frameID, doc)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	code, err := h.frames.LatestDesignCode(ctx, frameID)
	if err != nil {
		h.sendError(c, response.CodeFrameNotFound, "加载画框失败")
		return
	}

	ed, err := editor.New(code)
	if err != nil {
		h.sendError(c, response.CodeInternalError, "解析页面失败")
		return
	}

	h.mu.Lock()
	h.editors[frameID] = ed
	h.mu.Unlock()

	// 编辑期间渲染器暂停，生成推送不会破坏正在操作的 DOM
	if h.renderers != nil {
		r := h.renderers.Renderer(frameID)
		r.SetEditMode(true)
		r.Pause()
	}

	doc, err := ed.Document()
	if err != nil {
		h.sendError(c, response.CodeInternalError, "序列化页面失败")
		return
	}
	h.broadcastEditorDoc(frameID, doc)
}

// disableEditor 退出编辑模式
// save 为 true 时把修改写回画框，否则丢弃
func (h *Hub) disableEditor(c *Client, save bool) {
	frameID := c.frameID

	h.mu.Lock()
	ed, ok := h.editors[frameID]
	if ok {
		delete(h.editors, frameID)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	if save {
		fragment, err := ed.Export()
		if err != nil {
			h.sendError(c, response.CodeInternalError, "序列化页面失败")
			h.exitEditMode(frameID)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.frames.SaveDesignCode(ctx, frameID, fragment); err != nil {
			h.sendError(c, response.CodeInternalError, "保存修改失败")
		}
	}

	h.exitEditMode(frameID)
}

// exitEditMode 恢复渲染器并推送画框当前保存的版本
// 保存路径推的是刚写入的新版本，丢弃路径推的是编辑前的版本
func (h *Hub) exitEditMode(frameID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	code, err := h.frames.LatestDesignCode(ctx, frameID)

	if h.renderers != nil {
		r := h.renderers.Renderer(frameID)
		r.SetEditMode(false)
		r.Resume()
		if err == nil {
			r.Force(code)
		}
	}
}

// applyEditorOp 执行一次编辑操作并广播结果
func (h *Hub) applyEditorOp(c *Client, msg *Message) {
	frameID := c.frameID

	h.mu.RLock()
	ed, ok := h.editors[frameID]
	h.mu.RUnlock()
	if !ok {
		h.sendError(c, response.CodeBadRequest, "当前不在编辑模式")
		return
	}

	var opErr error
	stateChanged := false

	switch msg.Type {
	case TypeEditorPointerOver:
		var p NodePayload
		if opErr = decodePayload(msg.Payload, &p); opErr == nil {
			opErr = ed.PointerOver(p.NodeID)
		}

	case TypeEditorPointerOut:
		var p NodePayload
		if opErr = decodePayload(msg.Payload, &p); opErr == nil {
			opErr = ed.PointerOut(p.NodeID)
		}

	case TypeEditorClick:
		var p NodePayload
		if opErr = decodePayload(msg.Payload, &p); opErr == nil {
			opErr = ed.Click(p.NodeID)
		}
		stateChanged = true

	case TypeEditorEscape:
		ed.Escape()
		stateChanged = true

	case TypeEditorText:
		var p TextPayload
		if opErr = decodePayload(msg.Payload, &p); opErr == nil {
			opErr = ed.UpdateText(p.NodeID, p.Text)
		}

	case TypeEditorStyleSet:
		var p StylePayload
		if opErr = decodePayload(msg.Payload, &p); opErr == nil {
			opErr = ed.SetStyle(p.NodeID, p.Name, p.Value)
		}

	case TypeEditorStyleRemove:
		var p StylePayload
		if opErr = decodePayload(msg.Payload, &p); opErr == nil {
			opErr = ed.RemoveStyle(p.NodeID, p.Name)
		}

	case TypeEditorClassAdd:
		var p ClassPayload
		if opErr = decodePayload(msg.Payload, &p); opErr == nil {
			opErr = ed.AddClass(p.NodeID, p.Class)
		}

	case TypeEditorClassRemove:
		var p ClassPayload
		if opErr = decodePayload(msg.Payload, &p); opErr == nil {
			opErr = ed.RemoveClass(p.NodeID, p.Class)
		}

	case TypeEditorImageAlt:
		var p ImageAltPayload
		if opErr = decodePayload(msg.Payload, &p); opErr == nil {
			opErr = ed.SetImageAlt(p.NodeID, p.Alt)
		}

	case TypeEditorImageSize:
		var p ImageSizePayload
		if opErr = decodePayload(msg.Payload, &p); opErr == nil {
			opErr = ed.SetImageSize(p.NodeID, p.Width, p.Height)
		}

	case TypeEditorImageSwap:
		opErr = h.swapImage(ed, msg)

	default:
		h.sendError(c, response.CodeBadRequest, "未知的编辑操作")
		return
	}

	if opErr != nil {
		h.sendError(c, response.CodeBadRequest, opErr.Error())
		return
	}

	doc, err := ed.Document()
	if err != nil {
		h.sendError(c, response.CodeInternalError, "序列化页面失败")
		return
	}
	h.broadcastEditorDoc(frameID, doc)

	if stateChanged {
		h.broadcastEditorState(frameID, ed)
	}
}

// swapImage 替换图片地址
// 给了变换列表时先构造变换 URL；新地址要先通过可加载性
// 校验才会写入，失败时页面里的旧图保持不变
func (h *Hub) swapImage(ed *editor.Editor, msg *Message) error {
	var p ImageSwapPayload
	if err := decodePayload(msg.Payload, &p); err != nil {
		return err
	}

	src := p.Src
	if src == "" && p.FilePath != "" {
		transforms := make([]media.Transform, 0, len(p.Transforms))
		for _, t := range p.Transforms {
			transforms = append(transforms, media.Transform{
				Kind:   t.Kind,
				Width:  t.Width,
				Height: t.Height,
			})
		}
		var err error
		src, err = h.media.TransformURL(p.FilePath, transforms)
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return ed.ReplaceImageSrc(ctx, p.NodeID, src, h.media)
}

// broadcastEditorDoc 广播编辑文档
func (h *Hub) broadcastEditorDoc(frameID, fragment string) {
	h.broadcast(frameID, NewMessage(TypeEditorUpdate, &PreviewUpdatePayload{
		FrameID:  frameID,
		Document: preview.BuildDocument(fragment, true),
	}))
}

// broadcastEditorState 广播编辑器状态
// 选中变化后发送，编辑面板据此回显样式和类名
func (h *Hub) broadcastEditorState(frameID string, ed *editor.Editor) {
	state := &EditorStatePayload{
		FrameID:  frameID,
		State:    int(ed.State()),
		Selected: ed.Selected(),
	}
	if state.Selected != "" {
		if styles, err := ed.GetStyles(state.Selected); err == nil {
			state.Styles = styles
		}
		if classes, err := ed.ClassList(state.Selected); err == nil {
			state.Classes = classes
		}
		if _, err := ed.GetImageInfo(state.Selected); err == nil {
			state.IsImage = true
		}
	}
	h.broadcast(frameID, NewMessage(TypeEditorState, state))
}

// sendError 给单个连接发送错误消息
func (h *Hub) sendError(c *Client, code int, message string) {
	c.SendMessage(NewMessage(TypeError, &ErrorPayload{
		Code:    code,
		Message: message,
	}))
}
