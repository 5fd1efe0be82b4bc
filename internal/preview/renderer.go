package preview

import (
	"sync"
	"time"
)

// MinUpdateInterval 相邻两次预览推送的最小间隔
// 流式提交可能非常密集，预览端整页重建的成本远高于
// 接收消息的成本，100ms 的间隔肉眼几乎无感
const MinUpdateInterval = 100 * time.Millisecond

// Sink 预览文档的接收方
// 由 WebSocket Hub 实现，把文档广播给画框房间内的所有连接
type Sink interface {
	// PushPreview 推送一份完整的预览文档
	// seq 单调递增，接收方据此丢弃乱序到达的旧文档
	PushPreview(frameID string, document string, seq uint64)
}

// Renderer 单个画框的预览渲染器
// 把提取出的 HTML 片段组装成完整文档并推送给 Sink，
// 保证推送间隔不小于 MinUpdateInterval
// 节流采用"尾随提交"策略：间隔内到达的片段不丢弃，
// 而是覆盖待推送值，定时器到期后推送最新的那份
type Renderer struct {
	frameID  string
	sink     Sink
	interval time.Duration

	mu         sync.Mutex
	lastPush   time.Time   // 上次推送时间
	pending    string      // 等待尾随推送的片段
	hasPending bool        // pending 是否有效（片段可能是空字符串）
	timer      *time.Timer // 尾随推送定时器
	paused     bool        // 编辑模式下暂停推送
	editMode   bool        // 当前是否组装编辑模式文档
	seq        uint64      // 推送序号，单调递增
}

// NewRenderer 创建 Renderer 实例
// 参数:
//   - frameID: 画框业务标识
//   - sink: 文档接收方
//   - interval: 最小推送间隔，<= 0 时使用默认值
//
// 返回:
//   - *Renderer: 渲染器实例
func NewRenderer(frameID string, sink Sink, interval time.Duration) *Renderer {
	if interval <= 0 {
		interval = MinUpdateInterval
	}
	return &Renderer{
		frameID:  frameID,
		sink:     sink,
		interval: interval,
	}
}

// Update 提交一份新的片段
// 距上次推送已满最小间隔时立即推送，否则记为待推送值
// 并确保定时器在间隔期满后把它送出去
// 参数:
//   - fragment: 提取出的 HTML 片段
func (r *Renderer) Update(fragment string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.paused {
		// 暂停期间只记录最新值，恢复时推送
		r.pending = fragment
		r.hasPending = true
		return
	}

	elapsed := time.Since(r.lastPush)
	if elapsed >= r.interval {
		r.pushLocked(fragment)
		return
	}

	// 间隔未满，覆盖待推送值并安排尾随推送
	r.pending = fragment
	r.hasPending = true
	r.armTimerLocked(r.interval - elapsed)
}

// Force 立即推送一份片段，不受最小间隔约束
// 用于流结束时的最终提交和新连接的初始快照，
// 这两种场景下用户就等着看这一份文档
// 参数:
//   - fragment: 提取出的 HTML 片段
func (r *Renderer) Force(fragment string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.paused {
		r.pending = fragment
		r.hasPending = true
		return
	}

	// 最终提交取代所有待推送的中间值
	r.stopTimerLocked()
	r.pushLocked(fragment)
}

// Pause 暂停推送
// 进入编辑模式时调用，编辑期间预览文档由编辑器独占，
// 渲染器的推送会破坏用户正在操作的 DOM
func (r *Renderer) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = true
	r.stopTimerLocked()
}

// Resume 恢复推送
// 退出编辑模式时调用，暂停期间积累的最新值立即送出
func (r *Renderer) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = false
	if r.hasPending {
		r.pushLocked(r.pending)
	}
}

// SetEditMode 设置文档组装模式
// 编辑模式的文档带 data-edit-mode 标记
func (r *Renderer) SetEditMode(editMode bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.editMode = editMode
}

// Reset 丢弃所有待推送状态
// 生成会话被新会话取代时调用，旧会话的中间值不再推送
// 推送序号保持单调，预览端不会把新会话的文档当成旧的
func (r *Renderer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTimerLocked()
	r.pending = ""
	r.hasPending = false
}

// pushLocked 组装文档并推送
// 调用方必须持有 r.mu
func (r *Renderer) pushLocked(fragment string) {
	r.stopTimerLocked()
	r.pending = ""
	r.hasPending = false
	r.lastPush = time.Now()
	r.seq++

	doc := BuildDocument(fragment, r.editMode)
	sink := r.sink
	seq := r.seq
	frameID := r.frameID

	// 推送放到锁外，Sink 的实现可能会阻塞
	r.mu.Unlock()
	sink.PushPreview(frameID, doc, seq)
	r.mu.Lock()
}

// armTimerLocked 安排尾随推送
// 调用方必须持有 r.mu
func (r *Renderer) armTimerLocked(delay time.Duration) {
	if r.timer != nil {
		// 定时器已在运行，到期时会取最新的 pending
		return
	}
	r.timer = time.AfterFunc(delay, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.timer = nil
		if r.paused || !r.hasPending {
			return
		}
		r.pushLocked(r.pending)
	})
}

// stopTimerLocked 取消尾随推送定时器
// 调用方必须持有 r.mu
func (r *Renderer) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
