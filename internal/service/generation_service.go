package service

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"arzuno-builder-server/internal/llm"
	"arzuno-builder-server/internal/markup"
	"arzuno-builder-server/internal/model"
	"arzuno-builder-server/internal/preview"
	"arzuno-builder-server/pkg/util"
)

// ErrGenerationBusy 画框正在被其他实例的会话占用
var ErrGenerationBusy = errors.New("该画框正在生成中")

// 生成会话结束后写入对话的固定回复
const (
	// assistantAck 设计请求成功后的确认消息
	// 生成的页面本身在预览里，对话里只放一句确认
	assistantAck = "✨ Your website is ready! Check the preview →"

	// errorReply 生成失败时的回复
	errorReply = "Sorry, there was an error generating the response."
)

// generationLockTTL 跨实例生成锁的过期时间
// 模型输出一个完整页面通常在两分钟以内，留足余量
const generationLockTTL = 5 * time.Minute

// conversationTimeout 普通对话回复的整体超时
// 对话流不挂在请求上下文下，需要自己的时间上限
const conversationTimeout = 2 * time.Minute

// TokenStream 模型输出的流式读取接口
// 由 llm.Stream 实现，测试时可以换成假流
type TokenStream interface {
	// Recv 读取下一段文本增量，流结束返回 io.EOF
	Recv() (string, error)
	// Close 关闭流
	Close() error
}

// ChatStreamer 模型流式调用接口
type ChatStreamer interface {
	// StreamChat 发起流式聊天补全
	StreamChat(ctx context.Context, messages []llm.Message) (TokenStream, error)
}

// llmStreamer 把 llm.Client 适配到 ChatStreamer 接口
type llmStreamer struct {
	client *llm.Client
}

// StreamChat 实现 ChatStreamer
func (l llmStreamer) StreamChat(ctx context.Context, messages []llm.Message) (TokenStream, error) {
	return l.client.StreamChat(ctx, messages)
}

// NewLLMStreamer 用 llm.Client 构造 ChatStreamer
func NewLLMStreamer(client *llm.Client) ChatStreamer {
	return llmStreamer{client: client}
}

// FrameSaver 画框持久化接口
// 由 FrameService 实现
type FrameSaver interface {
	// SaveDesignCode 覆盖保存画框的设计代码
	SaveDesignCode(ctx context.Context, frameID, designCode string) error
}

// ChatHistory 对话持久化接口
// 由 ChatService 实现
type ChatHistory interface {
	// Get 获取画框的对话历史
	Get(ctx context.Context, frameID string) (model.MessageList, error)
	// Save 整体覆盖保存画框的对话历史
	Save(ctx context.Context, frameID, email string, messages model.MessageList) error
}

// SessionLocker 跨实例的生成会话锁
// 由 cache.RedisCache 实现，单实例部署和测试可以传 nil
type SessionLocker interface {
	AcquireGenerationLock(ctx context.Context, frameID, owner string, ttl time.Duration) (bool, error)
	ReleaseGenerationLock(ctx context.Context, frameID, owner string) error
}

// Event 推送给 HTTP 调用方的 SSE 事件
type Event struct {
	Type string `json:"type"`           // token / done / error
	Data string `json:"data,omitempty"` // token 的文本增量或错误描述
}

// EmitFunc 事件回调
// Handler 把事件写进 SSE 响应
type EmitFunc func(Event)

// session 一次进行中的生成会话
type session struct {
	owner  string              // 锁持有者标识
	acc    *markup.Accumulator // 流式缓冲区
	cancel context.CancelFunc  // 取消上游流
}

// GenerationService 生成会话服务
// 驱动完整的生成管线: 分类 -> 流式读取 -> 提取 -> 节流 ->
// 预览推送 -> 一次性持久化
// 每个画框同一时刻只有一个会话，新请求会取代旧会话
type GenerationService struct {
	streamer ChatStreamer
	frames   FrameSaver
	chats    ChatHistory
	locker   SessionLocker
	sink     preview.Sink

	growthThreshold int           // 提交节流的增长阈值
	renderInterval  time.Duration // 预览推送的最小间隔

	mu        sync.Mutex
	sessions  map[string]*session          // 画框标识 -> 进行中的会话
	renderers map[string]*preview.Renderer // 画框标识 -> 渲染器
}

// NewGenerationService 创建 GenerationService 实例
// 参数:
//   - streamer: 模型流式调用
//   - frames: 画框持久化
//   - chats: 对话持久化
//   - locker: 跨实例会话锁，单实例部署可传 nil
//   - sink: 预览文档接收方（WebSocket Hub）
func NewGenerationService(
	streamer ChatStreamer,
	frames FrameSaver,
	chats ChatHistory,
	locker SessionLocker,
	sink preview.Sink,
) *GenerationService {
	return &GenerationService{
		streamer:        streamer,
		frames:          frames,
		chats:           chats,
		locker:          locker,
		sink:            sink,
		growthThreshold: markup.DefaultGrowthThreshold,
		renderInterval:  preview.MinUpdateInterval,
		sessions:        make(map[string]*session),
		renderers:       make(map[string]*preview.Renderer),
	}
}

// SetTuning 调整节流参数
// 给测试和压测留的入口，生产用默认值
func (s *GenerationService) SetTuning(growthThreshold int, renderInterval time.Duration) {
	s.growthThreshold = growthThreshold
	s.renderInterval = renderInterval
}

// Renderer 获取画框的渲染器，不存在则创建
// 编辑会话通过它暂停和恢复预览推送
func (s *GenerationService) Renderer(frameID string) *preview.Renderer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rendererLocked(frameID)
}

// rendererLocked 获取或创建渲染器
// 调用方必须持有 s.mu
func (s *GenerationService) rendererLocked(frameID string) *preview.Renderer {
	r, ok := s.renderers[frameID]
	if !ok {
		r = preview.NewRenderer(frameID, s.sink, s.renderInterval)
		s.renderers[frameID] = r
	}
	return r
}

// Generate 处理一条用户消息
// 设计请求走生成管线，普通消息走对话管线；
// 两种情况下事件都通过 emit 回给 HTTP 调用方
// 参数:
//   - ctx: 上下文，HTTP 连接断开时取消
//   - frameID: 画框业务标识
//   - email: 用户邮箱
//   - message: 用户消息
//   - emit: 事件回调
//
// 返回:
//   - error: 画框被其他实例占用返回 ErrGenerationBusy，
//     其余错误已通过 emit 上报，返回值仅用于日志
func (s *GenerationService) Generate(ctx context.Context, frameID, email, message string, emit EmitFunc) error {
	// 读取历史并追加本条用户消息
	// 对话历史在会话结束时才写库，进行中不落任何中间状态
	history, err := s.chats.Get(ctx, frameID)
	if err != nil {
		emit(Event{Type: "error", Data: "加载对话历史失败"})
		return err
	}
	history = append(history, model.ChatMessage{
		Role:    model.MessageRoleUser,
		Content: message,
	})

	if IsDesignRequest(message) {
		return s.runDesign(ctx, frameID, email, history, emit)
	}
	return s.runConversation(ctx, frameID, email, history, emit)
}

// runDesign 设计请求的生成管线
func (s *GenerationService) runDesign(ctx context.Context, frameID, email string, history model.MessageList, emit EmitFunc) error {
	// 建立会话，必要时取代旧会话
	sess, renderer, sessCtx, err := s.beginSession(ctx, frameID)
	if err != nil {
		emit(Event{Type: "error", Data: err.Error()})
		return err
	}
	defer s.endSession(frameID, sess)

	// 组装消息并发起流式请求
	// 用会话上下文而不是请求上下文: 客户端断开不影响流，
	// 新会话取代本会话时流会被立即打断
	messages := toLLMMessages(BuildDesignMessages(toPromptMessages(history)))
	stream, err := s.streamer.StreamChat(sessCtx, messages)
	if err != nil {
		log.Printf("[ERROR] generation stream failed to start: frame=%s err=%v", frameID, err)
		s.saveChat(frameID, email, append(history, model.ChatMessage{
			Role:    model.MessageRoleAssistant,
			Content: errorReply,
		}))
		emit(Event{Type: "error", Data: errorReply})
		return err
	}
	defer stream.Close()

	// 流式读取循环
	for {
		delta, recvErr := stream.Recv()
		if recvErr == io.EOF {
			break
		}
		if recvErr != nil {
			// 传输中断: 丢弃全部部分数据，不提交也不持久化
			if sess.acc.Abandoned() {
				return nil
			}
			log.Printf("[WARN] generation stream interrupted: frame=%s err=%v", frameID, recvErr)
			s.saveChat(frameID, email, append(history, model.ChatMessage{
				Role:    model.MessageRoleAssistant,
				Content: errorReply,
			}))
			emit(Event{Type: "error", Data: errorReply})
			return recvErr
		}

		// 会话被新请求取代后，剩余增量一律丢弃
		if sess.acc.Abandoned() {
			return nil
		}
		if delta == "" {
			continue
		}

		emit(Event{Type: "token", Data: delta})

		extracted, commit := sess.acc.Append(delta)
		if commit {
			renderer.Update(extracted)
		}
	}

	// 流正常结束
	if sess.acc.Abandoned() {
		return nil
	}

	extracted, commit := sess.acc.Finalize()
	if commit {
		// 最终提交: 预览立即推到完整状态
		renderer.Force(extracted)
	}
	if commit && sess.acc.Fenced() {
		// 只有带围栏的完整页面才持久化，且恰好一次；
		// 无围栏的提取结果只喂预览，当普通回复处理
		// 持久化不复用请求的 ctx，HTTP 断开不应丢掉完整结果
		saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.frames.SaveDesignCode(saveCtx, frameID, extracted); err != nil {
			log.Printf("[ERROR] save design code failed: frame=%s err=%v", frameID, err)
			emit(Event{Type: "error", Data: "保存生成结果失败"})
			return err
		}
		s.saveChat(frameID, email, append(history, model.ChatMessage{
			Role:    model.MessageRoleAssistant,
			Content: assistantAck,
		}))
	} else {
		// 模型没有产出完整的围栏页面，把原始输出当普通回复
		s.saveChat(frameID, email, append(history, model.ChatMessage{
			Role:    model.MessageRoleAssistant,
			Content: sess.acc.Raw(),
		}))
	}

	emit(Event{Type: "done"})
	return nil
}

// runConversation 普通对话管线
// 模型输出只进对话历史，不碰预览和画框
func (s *GenerationService) runConversation(ctx context.Context, frameID, email string, history model.MessageList, emit EmitFunc) error {
	messages := toLLMMessages(BuildConversationMessages(toPromptMessages(history)))
	// 与设计管线一致，客户端断开不打断流，回复照常写进历史
	streamCtx, cancel := context.WithTimeout(context.Background(), conversationTimeout)
	defer cancel()
	stream, err := s.streamer.StreamChat(streamCtx, messages)
	if err != nil {
		log.Printf("[ERROR] conversation stream failed to start: frame=%s err=%v", frameID, err)
		s.saveChat(frameID, email, append(history, model.ChatMessage{
			Role:    model.MessageRoleAssistant,
			Content: errorReply,
		}))
		emit(Event{Type: "error", Data: errorReply})
		return err
	}
	defer stream.Close()

	var reply []byte
	for {
		delta, recvErr := stream.Recv()
		if recvErr == io.EOF {
			break
		}
		if recvErr != nil {
			log.Printf("[WARN] conversation stream interrupted: frame=%s err=%v", frameID, recvErr)
			s.saveChat(frameID, email, append(history, model.ChatMessage{
				Role:    model.MessageRoleAssistant,
				Content: errorReply,
			}))
			emit(Event{Type: "error", Data: errorReply})
			return recvErr
		}
		if delta == "" {
			continue
		}
		reply = append(reply, delta...)
		emit(Event{Type: "token", Data: delta})
	}

	content := string(reply)
	if content == "" {
		content = errorReply
	}
	s.saveChat(frameID, email, append(history, model.ChatMessage{
		Role:    model.MessageRoleAssistant,
		Content: content,
	}))

	emit(Event{Type: "done"})
	return nil
}

// beginSession 建立生成会话
// 同画框已有进行中的会话时，旧会话被标记放弃并取消，
// 其待推送的中间状态全部丢弃；跨实例占用则直接拒绝
func (s *GenerationService) beginSession(ctx context.Context, frameID string) (*session, *preview.Renderer, context.Context, error) {
	s.mu.Lock()

	old := s.sessions[frameID]
	if old != nil {
		// 本实例的旧会话: 标记放弃后取消其上游流
		old.acc.Abandon()
		old.cancel()
	}
	renderer := s.rendererLocked(frameID)
	renderer.Reset()

	// 会话上下文不挂在 HTTP 请求下: 客户端断开后生成继续，
	// 完整结果照常持久化；取消只发生在会话被新请求取代时
	sessCtx, cancel := context.WithCancel(context.Background())
	sess := &session{
		owner:  util.GenerateUUID(),
		acc:    markup.NewAccumulator(s.growthThreshold),
		cancel: cancel,
	}
	s.sessions[frameID] = sess
	s.mu.Unlock()

	if s.locker != nil {
		if old != nil {
			// 旧会话的锁由本实例持有，直接替它释放
			_ = s.locker.ReleaseGenerationLock(ctx, frameID, old.owner)
		}
		ok, err := s.locker.AcquireGenerationLock(ctx, frameID, sess.owner, generationLockTTL)
		if err != nil {
			log.Printf("[WARN] acquire generation lock failed: frame=%s err=%v", frameID, err)
			// Redis 故障时退化为单实例语义，不阻塞生成
		} else if !ok {
			s.mu.Lock()
			if s.sessions[frameID] == sess {
				delete(s.sessions, frameID)
			}
			s.mu.Unlock()
			cancel()
			return nil, nil, nil, ErrGenerationBusy
		}
	}

	return sess, renderer, sessCtx, nil
}

// endSession 结束生成会话
// 只有仍然在册的会话才清理，被取代的旧会话不动新会话的状态
func (s *GenerationService) endSession(frameID string, sess *session) {
	sess.cancel()

	s.mu.Lock()
	if s.sessions[frameID] == sess {
		delete(s.sessions, frameID)
	}
	s.mu.Unlock()

	if s.locker != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.locker.ReleaseGenerationLock(ctx, frameID, sess.owner)
	}
}

// saveChat 保存对话历史
// 失败只记日志，对话丢失不应中断生成结果的返回
func (s *GenerationService) saveChat(frameID, email string, messages model.MessageList) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.chats.Save(ctx, frameID, email, messages); err != nil {
		log.Printf("[ERROR] save chat failed: frame=%s err=%v", frameID, err)
	}
}

// toPromptMessages 把对话历史转成提示词消息
func toPromptMessages(history model.MessageList) []PromptMessage {
	out := make([]PromptMessage, 0, len(history))
	for _, m := range history {
		out = append(out, PromptMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// toLLMMessages 把提示词消息转成模型接口的消息
func toLLMMessages(messages []PromptMessage) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
