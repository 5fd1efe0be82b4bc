// Package service 实现业务逻辑层
// 处于 Handler 和 Repository 之间，封装所有业务规则
package service

import (
	"strings"
)

// designKeywords 设计请求的关键词表
// 消息中出现任意一个关键词即判定为设计请求，走页面生成流程；
// 否则视为普通对话，模型的回复只进聊天记录，不动预览
var designKeywords = []string{
	// 动作类
	"create", "build", "make", "design", "generate", "code",
	"add", "update", "change", "modify", "edit", "fix", "remove", "delete", "style",
	// 页面类
	"website", "webpage", "page", "landing", "homepage",
	"login", "signup", "register", "contact", "about", "pricing", "portfolio", "blog", "gallery",
	// 结构类
	"form", "dashboard", "navbar", "header", "footer", "section", "component",
	"button", "card", "modal", "table", "chart", "graph", "slider", "carousel",
	"hero", "sidebar", "menu", "navigation", "layout", "template",
	// 技术类
	"html", "css", "tailwind", "ui", "interface", "responsive", "mobile",
}

// IsDesignRequest 判断用户消息是否是设计请求
// 纯关键词匹配，大小写不敏感
// 参数:
//   - message: 用户消息
//
// 返回:
//   - bool: 是否是设计请求
func IsDesignRequest(message string) bool {
	lower := strings.ToLower(message)
	for _, keyword := range designKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// DesignSystemPrompt 设计请求的 system 提示词
// 要求模型只输出一个 html 代码块，方便提取器工作
const DesignSystemPrompt = `You are Arzuno Builder specialized in web design and development. You create beautiful, modern, responsive web pages using HTML and Tailwind CSS.

Rules:
- Respond with a single ` + "```html" + ` code block containing the complete page markup.
- Use Tailwind CSS utility classes for all styling. The page already loads Tailwind, Flowbite, Font Awesome, Chart.js, AOS, GSAP, Lottie, Swiper, Popper and Tippy from CDN, so you can use them directly.
- Do not include <html>, <head> or <body> tags. Output only the body content.
- Use https://placehold.co URLs for any images you need.
- Make the design polished: proper spacing, hover states, responsive breakpoints.
- When the user asks for a change to an existing page, output the full updated page, not a diff.`

// ConversationSystemPrompt 普通对话的 system 提示词
// 用于非设计请求，模型像产品顾问一样回答
const ConversationSystemPrompt = `You are Arzuno Builder specialized in web design and development. You help users plan and refine their websites through conversation.

Answer briefly and helpfully. If the user seems to want you to actually build or change a page, suggest they describe what they want created, and you will generate it.`

// BuildDesignMessages 构造设计请求的完整消息列表
// system 提示词在前，随后是该画框的历史对话（含当前这条）
// 历史里已有生成结果时模型能在其基础上增量修改
// 参数:
//   - history: 画框的历史消息（user / assistant 轮次）
//
// 返回:
//   - []PromptMessage: 完整消息列表
func BuildDesignMessages(history []PromptMessage) []PromptMessage {
	messages := make([]PromptMessage, 0, len(history)+1)
	messages = append(messages, PromptMessage{Role: "system", Content: DesignSystemPrompt})
	messages = append(messages, history...)
	return messages
}

// BuildConversationMessages 构造普通对话的完整消息列表
// 参数:
//   - history: 画框的历史消息
//
// 返回:
//   - []PromptMessage: 完整消息列表
func BuildConversationMessages(history []PromptMessage) []PromptMessage {
	messages := make([]PromptMessage, 0, len(history)+1)
	messages = append(messages, PromptMessage{Role: "system", Content: ConversationSystemPrompt})
	messages = append(messages, history...)
	return messages
}

// PromptMessage 提示词组装用的消息
// 与 llm.Message 同构，避免 service 包的纯函数依赖 llm 包
type PromptMessage struct {
	Role    string // system / user / assistant
	Content string // 消息内容
}
