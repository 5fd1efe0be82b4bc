package markup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottler_Offer(t *testing.T) {
	t.Run("未达阈值不提交", func(t *testing.T) {
		th := NewThrottler(500)
		snapshot := "<div>" + strings.Repeat("a", 289) + "</div>" // 300 字符
		assert.False(t, th.Offer(snapshot))
	})

	t.Run("达到阈值提交", func(t *testing.T) {
		th := NewThrottler(500)
		snapshot := "<div>" + strings.Repeat("a", 509) + "</div>" // 520 字符
		assert.True(t, th.Offer(snapshot))
	})

	t.Run("增长量相对上次提交计算", func(t *testing.T) {
		th := NewThrottler(500)
		require.True(t, th.Offer(strings.Repeat("a", 600)))
		// 相对 600 只增长了 400，不提交
		assert.False(t, th.Offer(strings.Repeat("a", 1000)))
		// 相对 600 增长了 500，提交
		assert.True(t, th.Offer(strings.Repeat("a", 1100)))
	})

	t.Run("空快照永不提交", func(t *testing.T) {
		th := NewThrottler(500)
		assert.False(t, th.Offer(""))
	})
}

func TestThrottler_Flush(t *testing.T) {
	t.Run("非空快照无视增长量", func(t *testing.T) {
		th := NewThrottler(500)
		assert.True(t, th.Flush("<p>tiny</p>"))
	})

	t.Run("空快照不提交", func(t *testing.T) {
		th := NewThrottler(500)
		assert.False(t, th.Flush(""))
	})
}

func TestThrottler_Reset(t *testing.T) {
	th := NewThrottler(500)
	require.True(t, th.Offer(strings.Repeat("a", 600)))

	th.Reset()
	// 重置后以 0 为基准重新计算增长
	assert.True(t, th.Offer(strings.Repeat("a", 500)))
}

func TestAccumulator_AppendAndFinalize(t *testing.T) {
	acc := NewAccumulator(100)

	// 围栏还没出现，提取为空，不提交
	extracted, commit := acc.Append("Let me build that.\n```ht")
	assert.Empty(t, extracted)
	assert.False(t, commit)

	// 围栏出现且内容超过阈值，提交
	body := "<div>" + strings.Repeat("x", 200) + "</div>"
	extracted, commit = acc.Append("ml\n" + body)
	assert.Equal(t, body, extracted)
	assert.True(t, commit)

	// 小增量不提交
	extracted, commit = acc.Append("\n<p>a</p>")
	assert.False(t, commit)
	assert.Contains(t, extracted, "<p>a</p>")

	// Finalize 无视增长量提交最终快照
	final, commit := acc.Finalize()
	assert.True(t, commit)
	assert.Equal(t, body+"\n<p>a</p>", final)
}

func TestAccumulator_FinalizeEmpty(t *testing.T) {
	acc := NewAccumulator(100)
	acc.Append("just a plain answer, no markup")

	final, commit := acc.Finalize()
	assert.Empty(t, final)
	assert.False(t, commit)
}

func TestAccumulator_Fenced(t *testing.T) {
	t.Run("带围栏的输出", func(t *testing.T) {
		acc := NewAccumulator(100)
		acc.Append("```html\n<div>page</div>\n```")
		assert.True(t, acc.Fenced())
	})

	t.Run("无围栏的裸标记", func(t *testing.T) {
		acc := NewAccumulator(100)
		acc.Append("Here is your page: <div>hello</div>")
		assert.False(t, acc.Fenced())
	})
}

func TestAccumulator_Abandon(t *testing.T) {
	acc := NewAccumulator(100)
	assert.False(t, acc.Abandoned())

	acc.Abandon()
	assert.True(t, acc.Abandoned())
}

func TestAccumulator_Raw(t *testing.T) {
	acc := NewAccumulator(100)
	acc.Append("hello ")
	acc.Append("world")
	assert.Equal(t, "hello world", acc.Raw())
}
