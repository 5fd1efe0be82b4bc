package markup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractHTML(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "闭合的围栏代码块",
			raw:      "Here is your page:\n```html\n<div>hello</div>\n```\nEnjoy!",
			expected: "<div>hello</div>",
		},
		{
			name:     "未闭合的围栏代码块",
			raw:      "```html\n<section>\n  <h1>Title</h1>",
			expected: "<section>\n  <h1>Title</h1>",
		},
		{
			name:     "围栏前有说明文字",
			raw:      "Sure! Let me build that.\n\n```html\n<main></main>",
			expected: "<main></main>",
		},
		{
			name:     "没有围栏但整体是标记",
			raw:      "  <p>hi</p>  ",
			expected: "<p>hi</p>",
		},
		{
			name:     "没有围栏且标记前带说明文字",
			raw:      "Here is your page: <div>hello</div>",
			expected: "Here is your page: <div>hello</div>",
		},
		{
			name:     "纯文本",
			raw:      "hello",
			expected: "",
		},
		{
			name:     "围栏尚未出现的前缀",
			raw:      "Sure! Here is ```ht",
			expected: "",
		},
		{
			name:     "空输入",
			raw:      "",
			expected: "",
		},
		{
			name:     "闭合围栏后的补充说明被截掉",
			raw:      "```html\n<div>a</div>\n```\nI used Tailwind classes here.",
			expected: "<div>a</div>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractHTML(tt.raw))
		})
	}
}

// 对提取结果再提取应得到相同输出
func TestExtractHTML_Idempotent(t *testing.T) {
	inputs := []string{
		"```html\n<div>hello</div>\n```",
		"<p>hi</p>",
		"```html\n<section><h1>T</h1>",
		"Here is your page: <div>hello</div>",
		"hello",
	}

	for _, raw := range inputs {
		first := ExtractHTML(raw)
		assert.Equal(t, first, ExtractHTML(first), "输入: %q", raw)
	}
}

func TestExtractHTML_StreamingPrefixes(t *testing.T) {
	// 模拟流式过程: 完整输出的每个前缀都不应让提取崩溃，
	// 且提取结果要么为空要么是标记
	full := "Let me create that.\n```html\n<div class=\"hero\">\n  <h1>Welcome</h1>\n</div>\n```\nDone."
	for i := 0; i <= len(full); i++ {
		extracted := ExtractHTML(full[:i])
		if extracted != "" {
			assert.True(t, strings.HasPrefix(extracted, "<"), "前缀长度 %d: %q", i, extracted)
		}
	}
}
