package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arzuno-builder-server/internal/llm"
	"arzuno-builder-server/internal/model"
)

// fakeStream 可控的模型输出流
// 通道耗尽且已关闭时返回 recvErr（nil 则 io.EOF），
// 会话上下文被取消时立即返回取消错误
type fakeStream struct {
	ctx     context.Context
	deltas  chan string
	recvErr error
}

func (f *fakeStream) Recv() (string, error) {
	select {
	case d, ok := <-f.deltas:
		if !ok {
			if f.recvErr != nil {
				return "", f.recvErr
			}
			return "", io.EOF
		}
		return d, nil
	case <-f.ctx.Done():
		return "", f.ctx.Err()
	}
}

func (f *fakeStream) Close() error { return nil }

// scriptedStream 预置好全部增量的流
func scriptedStream(recvErr error, deltas ...string) *fakeStream {
	ch := make(chan string, len(deltas))
	for _, d := range deltas {
		ch <- d
	}
	close(ch)
	return &fakeStream{deltas: ch, recvErr: recvErr}
}

// fakeStreamer 按调用顺序下发预置的流
type fakeStreamer struct {
	mu       sync.Mutex
	pending  []*fakeStream
	startErr error
	calls    [][]llm.Message
}

func (f *fakeStreamer) StreamChat(ctx context.Context, messages []llm.Message) (TokenStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, messages)
	if f.startErr != nil {
		return nil, f.startErr
	}
	st := f.pending[0]
	f.pending = f.pending[1:]
	st.ctx = ctx
	return st, nil
}

func (f *fakeStreamer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeFrames 记录设计代码的持久化调用
type fakeFrames struct {
	mu    sync.Mutex
	saves []string
}

func (f *fakeFrames) SaveDesignCode(_ context.Context, _ string, designCode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, designCode)
	return nil
}

func (f *fakeFrames) saved() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.saves...)
}

// fakeChats 内存里的对话存储
type fakeChats struct {
	mu      sync.Mutex
	history model.MessageList
	saves   []model.MessageList
}

func (f *fakeChats) Get(_ context.Context, _ string) (model.MessageList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history, nil
}

func (f *fakeChats) Save(_ context.Context, _, _ string, messages model.MessageList) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, messages)
	return nil
}

func (f *fakeChats) savedLists() []model.MessageList {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.MessageList(nil), f.saves...)
}

// fakeSink 记录预览推送
type fakeSink struct {
	mu   sync.Mutex
	docs []string
}

func (s *fakeSink) PushPreview(_ string, document string, _ uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, document)
}

func (s *fakeSink) pushed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.docs...)
}

// fakeLocker 可控的跨实例会话锁
type fakeLocker struct {
	acquireOK  bool
	acquireErr error

	mu       sync.Mutex
	released []string
}

func (l *fakeLocker) AcquireGenerationLock(_ context.Context, _, _ string, _ time.Duration) (bool, error) {
	return l.acquireOK, l.acquireErr
}

func (l *fakeLocker) ReleaseGenerationLock(_ context.Context, _, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.released = append(l.released, owner)
	return nil
}

// eventRecorder 收集 emit 回调的事件
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *eventRecorder) types() []string {
	var out []string
	for _, ev := range r.all() {
		out = append(out, ev.Type)
	}
	return out
}

func newGenService(streamer ChatStreamer, frames *fakeFrames, chats *fakeChats, locker SessionLocker, sink *fakeSink) *GenerationService {
	s := NewGenerationService(streamer, frames, chats, locker, sink)
	// 小阈值、近零间隔，让流式提交在测试里立即可见
	s.SetTuning(50, time.Nanosecond)
	return s
}

func TestGenerate_DesignPipeline(t *testing.T) {
	frames := &fakeFrames{}
	chats := &fakeChats{}
	sink := &fakeSink{}
	streamer := &fakeStreamer{pending: []*fakeStream{
		scriptedStream(nil,
			"Sure! Here you go.\n```html\n",
			`<div class="hero">`+strings.Repeat("a", 80),
			strings.Repeat("b", 80),
			"</div>\n```",
		),
	}}
	svc := newGenService(streamer, frames, chats, nil, sink)
	rec := &eventRecorder{}

	err := svc.Generate(context.Background(), "frame-1", "u@example.com", "create a landing page", rec.emit)
	require.NoError(t, err)

	// 流式过程中至少有一次中间提交，流结束后有最终提交
	docs := sink.pushed()
	require.GreaterOrEqual(t, len(docs), 2)
	full := `<div class="hero">` + strings.Repeat("a", 80) + strings.Repeat("b", 80) + "</div>"
	assert.Contains(t, docs[0], `<div class="hero">`)
	assert.NotContains(t, docs[0], "bbb")
	assert.Contains(t, docs[len(docs)-1], full)

	// 完整结果恰好持久化一次，内容是去掉围栏的片段
	require.Equal(t, []string{full}, frames.saved())

	// 对话里追加用户消息和固定的确认回复
	saves := chats.savedLists()
	require.Len(t, saves, 1)
	last := saves[0]
	require.GreaterOrEqual(t, len(last), 2)
	assert.Equal(t, model.MessageRoleUser, last[len(last)-2].Role)
	assert.Equal(t, "create a landing page", last[len(last)-2].Content)
	assert.Equal(t, model.MessageRoleAssistant, last[len(last)-1].Role)
	assert.Equal(t, assistantAck, last[len(last)-1].Content)

	// 事件流以 done 结束，中间是 token
	types := rec.types()
	require.NotEmpty(t, types)
	assert.Equal(t, "done", types[len(types)-1])
	assert.Contains(t, types, "token")
}

func TestGenerate_DesignUsesHistoryAndSystemPrompt(t *testing.T) {
	frames := &fakeFrames{}
	chats := &fakeChats{history: model.MessageList{
		{Role: model.MessageRoleUser, Content: "create a page"},
		{Role: model.MessageRoleAssistant, Content: assistantAck},
	}}
	sink := &fakeSink{}
	streamer := &fakeStreamer{pending: []*fakeStream{
		scriptedStream(nil, "```html\n<p>"+strings.Repeat("x", 60)+"</p>\n```"),
	}}
	svc := newGenService(streamer, frames, chats, nil, sink)

	err := svc.Generate(context.Background(), "frame-1", "u@example.com", "make the header bigger", (&eventRecorder{}).emit)
	require.NoError(t, err)

	require.Equal(t, 1, streamer.callCount())
	messages := streamer.calls[0]
	// system 在前，历史按序，当前消息最后
	require.Len(t, messages, 4)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, DesignSystemPrompt, messages[0].Content)
	assert.Equal(t, "create a page", messages[1].Content)
	assert.Equal(t, "make the header bigger", messages[3].Content)
}

func TestGenerate_ConversationPipeline(t *testing.T) {
	frames := &fakeFrames{}
	chats := &fakeChats{}
	sink := &fakeSink{}
	streamer := &fakeStreamer{pending: []*fakeStream{
		scriptedStream(nil, "Sure, ", "that sounds good."),
	}}
	svc := newGenService(streamer, frames, chats, nil, sink)
	rec := &eventRecorder{}

	err := svc.Generate(context.Background(), "frame-1", "u@example.com", "what do you think?", rec.emit)
	require.NoError(t, err)

	// 普通对话不碰预览和画框
	assert.Empty(t, sink.pushed())
	assert.Empty(t, frames.saved())

	saves := chats.savedLists()
	require.Len(t, saves, 1)
	last := saves[0][len(saves[0])-1]
	assert.Equal(t, model.MessageRoleAssistant, last.Role)
	assert.Equal(t, "Sure, that sounds good.", last.Content)

	types := rec.types()
	assert.Equal(t, "done", types[len(types)-1])
}

func TestGenerate_DesignWithoutMarkupSavesRawReply(t *testing.T) {
	frames := &fakeFrames{}
	chats := &fakeChats{}
	sink := &fakeSink{}
	streamer := &fakeStreamer{pending: []*fakeStream{
		scriptedStream(nil, "I need more details ", "before I can build that."),
	}}
	svc := newGenService(streamer, frames, chats, nil, sink)

	err := svc.Generate(context.Background(), "frame-1", "u@example.com", "build something", (&eventRecorder{}).emit)
	require.NoError(t, err)

	// 没有可提取的页面: 不推预览、不持久化画框，原始输出进对话
	assert.Empty(t, sink.pushed())
	assert.Empty(t, frames.saved())

	saves := chats.savedLists()
	require.Len(t, saves, 1)
	last := saves[0][len(saves[0])-1]
	assert.Equal(t, "I need more details before I can build that.", last.Content)
}

func TestGenerate_UnfencedMarkupFeedsPreviewOnly(t *testing.T) {
	frames := &fakeFrames{}
	chats := &fakeChats{}
	sink := &fakeSink{}
	raw := "Here is your page: <div>" + strings.Repeat("m", 60) + "</div>"
	streamer := &fakeStreamer{pending: []*fakeStream{
		scriptedStream(nil, raw),
	}}
	svc := newGenService(streamer, frames, chats, nil, sink)

	err := svc.Generate(context.Background(), "frame-1", "u@example.com", "create a page", (&eventRecorder{}).emit)
	require.NoError(t, err)

	// 不带围栏的输出进实时预览，但不作为完整页面写画框
	docs := sink.pushed()
	require.NotEmpty(t, docs)
	assert.Contains(t, docs[len(docs)-1], "<div>")
	assert.Empty(t, frames.saved())

	// 对话里保存原始输出而不是固定确认
	saves := chats.savedLists()
	require.Len(t, saves, 1)
	assert.Equal(t, raw, saves[0][len(saves[0])-1].Content)
}

func TestGenerate_ClientDisconnectKeepsResult(t *testing.T) {
	frames := &fakeFrames{}
	chats := &fakeChats{}
	sink := &fakeSink{}
	body := "<p>" + strings.Repeat("k", 60) + "</p>"
	stream := &fakeStream{deltas: make(chan string, 8)}
	streamer := &fakeStreamer{pending: []*fakeStream{stream}}
	svc := newGenService(streamer, frames, chats, nil, sink)

	reqCtx, disconnect := context.WithCancel(context.Background())
	events := make(chan Event, 64)
	done := make(chan error, 1)
	go func() {
		done <- svc.Generate(reqCtx, "frame-1", "u@example.com",
			"create a page", func(ev Event) { events <- ev })
	}()

	// 第一个 token 到达后模拟客户端断开
	stream.deltas <- "```html\n"
	select {
	case ev := <-events:
		require.Equal(t, "token", ev.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no token arrived before the disconnect")
	}
	disconnect()

	// 断开后继续喂完剩余增量
	stream.deltas <- body
	stream.deltas <- "\n```"
	close(stream.deltas)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("generation did not finish after the disconnect")
	}

	// 完整结果照常持久化，对话里是确认而不是错误回复
	require.Equal(t, []string{body}, frames.saved())
	saves := chats.savedLists()
	require.Len(t, saves, 1)
	assert.Equal(t, assistantAck, saves[0][len(saves[0])-1].Content)
}

func TestGenerate_TransportErrorDiscardsPartialData(t *testing.T) {
	frames := &fakeFrames{}
	chats := &fakeChats{}
	sink := &fakeSink{}
	streamer := &fakeStreamer{pending: []*fakeStream{
		scriptedStream(errors.New("connection reset"), "```html\n<div>partial"),
	}}
	svc := newGenService(streamer, frames, chats, nil, sink)
	rec := &eventRecorder{}

	err := svc.Generate(context.Background(), "frame-1", "u@example.com", "create a page", rec.emit)
	require.Error(t, err)

	// 部分数据全部丢弃，对话里只留一条错误回复
	assert.Empty(t, frames.saved())

	saves := chats.savedLists()
	require.Len(t, saves, 1)
	last := saves[0][len(saves[0])-1]
	assert.Equal(t, errorReply, last.Content)

	types := rec.types()
	assert.Contains(t, types, "error")
	assert.NotContains(t, types, "done")
}

func TestGenerate_StartFailureSavesErrorReply(t *testing.T) {
	frames := &fakeFrames{}
	chats := &fakeChats{}
	sink := &fakeSink{}
	streamer := &fakeStreamer{startErr: errors.New("upstream unavailable")}
	svc := newGenService(streamer, frames, chats, nil, sink)
	rec := &eventRecorder{}

	err := svc.Generate(context.Background(), "frame-1", "u@example.com", "create a page", rec.emit)
	require.Error(t, err)

	assert.Empty(t, frames.saved())
	saves := chats.savedLists()
	require.Len(t, saves, 1)
	assert.Equal(t, errorReply, saves[0][len(saves[0])-1].Content)
}

func TestGenerate_RestartAbandonsOldSession(t *testing.T) {
	frames := &fakeFrames{}
	chats := &fakeChats{}
	sink := &fakeSink{}

	oldStream := &fakeStream{deltas: make(chan string, 8)}
	newBody := "<div>newpage" + strings.Repeat("y", 60) + "</div>"
	streamer := &fakeStreamer{pending: []*fakeStream{
		oldStream,
		scriptedStream(nil, "```html\n"+newBody+"\n```"),
	}}
	svc := newGenService(streamer, frames, chats, nil, sink)

	// 会话一: 流挂起在一小段未达阈值的增量上
	firstEvents := make(chan Event, 64)
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- svc.Generate(context.Background(), "frame-1", "u@example.com",
			"create the first page", func(ev Event) { firstEvents <- ev })
	}()
	oldStream.deltas <- "```html\n<p>old"

	// 等会话一消费到第一个 token，确认它已经在跑
	select {
	case ev := <-firstEvents:
		require.Equal(t, "token", ev.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("first session never emitted a token")
	}

	// 会话二取代会话一
	rec := &eventRecorder{}
	err := svc.Generate(context.Background(), "frame-1", "u@example.com", "create the second page", rec.emit)
	require.NoError(t, err)

	// 被取代的会话静默退出，不报错也不留痕迹
	select {
	case err := <-firstDone:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("abandoned session did not exit")
	}

	// 只有会话二的结果被持久化和推送
	require.Equal(t, []string{newBody}, frames.saved())
	for _, doc := range sink.pushed() {
		assert.NotContains(t, doc, "<p>old")
	}

	// 对话里只有会话二的确认，没有旧会话的错误回复
	saves := chats.savedLists()
	require.Len(t, saves, 1)
	assert.Equal(t, assistantAck, saves[0][len(saves[0])-1].Content)
}

func TestGenerate_BusyWhenLockHeldElsewhere(t *testing.T) {
	frames := &fakeFrames{}
	chats := &fakeChats{}
	sink := &fakeSink{}
	streamer := &fakeStreamer{}
	locker := &fakeLocker{acquireOK: false}
	svc := newGenService(streamer, frames, chats, locker, sink)
	rec := &eventRecorder{}

	err := svc.Generate(context.Background(), "frame-1", "u@example.com", "create a page", rec.emit)
	assert.ErrorIs(t, err, ErrGenerationBusy)

	// 锁没拿到就不会发起模型请求
	assert.Equal(t, 0, streamer.callCount())
	assert.Contains(t, rec.types(), "error")
}

func TestGenerate_LockerFailureDegradesGracefully(t *testing.T) {
	frames := &fakeFrames{}
	chats := &fakeChats{}
	sink := &fakeSink{}
	streamer := &fakeStreamer{pending: []*fakeStream{
		scriptedStream(nil, "```html\n<p>"+strings.Repeat("z", 60)+"</p>\n```"),
	}}
	locker := &fakeLocker{acquireOK: false, acquireErr: errors.New("redis down")}
	svc := newGenService(streamer, frames, chats, locker, sink)

	// Redis 故障时退化为单实例语义，生成照常进行
	err := svc.Generate(context.Background(), "frame-1", "u@example.com", "create a page", (&eventRecorder{}).emit)
	require.NoError(t, err)
	assert.Len(t, frames.saved(), 1)
}
