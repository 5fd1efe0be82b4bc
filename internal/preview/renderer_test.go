package preview

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink 记录所有推送，供断言用
type recordingSink struct {
	mu     sync.Mutex
	pushes []sinkPush
}

type sinkPush struct {
	frameID  string
	document string
	seq      uint64
}

func (s *recordingSink) PushPreview(frameID string, document string, seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushes = append(s.pushes, sinkPush{frameID: frameID, document: document, seq: seq})
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pushes)
}

func (s *recordingSink) last() sinkPush {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushes[len(s.pushes)-1]
}

func TestRenderer_ImmediatePush(t *testing.T) {
	sink := &recordingSink{}
	r := NewRenderer("frame-1", sink, 50*time.Millisecond)

	r.Update("<p>one</p>")

	require.Equal(t, 1, sink.count())
	push := sink.last()
	assert.Equal(t, "frame-1", push.frameID)
	assert.Contains(t, push.document, "<p>one</p>")
	assert.Equal(t, uint64(1), push.seq)
}

func TestRenderer_TrailingPushKeepsLatest(t *testing.T) {
	sink := &recordingSink{}
	r := NewRenderer("frame-1", sink, 60*time.Millisecond)

	// 第一次立即推送，随后的密集提交落在间隔内
	r.Update("<p>one</p>")
	r.Update("<p>two</p>")
	r.Update("<p>three</p>")
	require.Equal(t, 1, sink.count())

	// 等定时器到期，尾随推送送出最新值
	assert.Eventually(t, func() bool {
		return sink.count() == 2
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, sink.last().document, "<p>three</p>")
}

func TestRenderer_ForceBypassesInterval(t *testing.T) {
	sink := &recordingSink{}
	r := NewRenderer("frame-1", sink, time.Hour)

	r.Update("<p>one</p>")
	r.Force("<p>final</p>")

	require.Equal(t, 2, sink.count())
	assert.Contains(t, sink.last().document, "<p>final</p>")

	// 最终提交取代了所有待推送的中间值，不会再有多余推送
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, sink.count())
}

func TestRenderer_SeqMonotonic(t *testing.T) {
	sink := &recordingSink{}
	r := NewRenderer("frame-1", sink, time.Millisecond)

	r.Force("<p>a</p>")
	r.Force("<p>b</p>")
	r.Reset()
	r.Force("<p>c</p>")

	require.Equal(t, 3, sink.count())
	sink.mu.Lock()
	defer sink.mu.Unlock()
	for i := 1; i < len(sink.pushes); i++ {
		assert.Greater(t, sink.pushes[i].seq, sink.pushes[i-1].seq)
	}
}

func TestRenderer_PauseResume(t *testing.T) {
	sink := &recordingSink{}
	r := NewRenderer("frame-1", sink, time.Millisecond)

	r.Pause()
	r.Update("<p>one</p>")
	r.Update("<p>two</p>")
	r.Force("<p>three</p>")
	assert.Equal(t, 0, sink.count())

	// 恢复时推送暂停期间的最新值
	r.Resume()
	require.Equal(t, 1, sink.count())
	assert.Contains(t, sink.last().document, "<p>three</p>")
}

func TestRenderer_ResumeWithoutPending(t *testing.T) {
	sink := &recordingSink{}
	r := NewRenderer("frame-1", sink, time.Millisecond)

	r.Pause()
	r.Resume()
	assert.Equal(t, 0, sink.count())
}

func TestRenderer_ResetDropsPending(t *testing.T) {
	sink := &recordingSink{}
	r := NewRenderer("frame-1", sink, time.Hour)

	r.Update("<p>one</p>")
	r.Update("<p>stale</p>")
	r.Reset()

	// 被丢弃的中间值不会再推送
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, sink.count())
}

func TestRenderer_EditModeDocument(t *testing.T) {
	sink := &recordingSink{}
	r := NewRenderer("frame-1", sink, time.Millisecond)

	r.SetEditMode(true)
	r.Force("<p>x</p>")
	assert.Contains(t, sink.last().document, `data-edit-mode="true"`)

	r.SetEditMode(false)
	r.Force("<p>x</p>")
	assert.NotContains(t, sink.last().document, "data-edit-mode")
}
