// Package llm 提供对 OpenRouter 聊天补全接口的封装
// 支持流式（SSE）读取模型输出
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"arzuno-builder-server/internal/config"
)

// 定义错误类型
var (
	// ErrMissingAPIKey API Key 未配置
	ErrMissingAPIKey = errors.New("llm: api key is not configured")
)

// RequestError 上游返回非 2xx 状态码时的错误
// 保留状态码和响应体，便于排查配额、鉴权等问题
type RequestError struct {
	StatusCode int    // HTTP 状态码
	Body       string // 响应体（截断后的）
}

// Error 实现 error 接口
func (e *RequestError) Error() string {
	return fmt.Sprintf("llm: upstream returned status %d: %s", e.StatusCode, e.Body)
}

// Message 一条聊天消息
// 与 OpenRouter 的消息格式一致
type Message struct {
	Role    string `json:"role"`    // system / user / assistant
	Content string `json:"content"` // 消息内容
}

// chatRequest 聊天补全请求体
type chatRequest struct {
	Model    string    `json:"model"`    // 模型标识
	Messages []Message `json:"messages"` // 消息列表
	Stream   bool      `json:"stream"`   // 是否流式返回
}

// Client OpenRouter 客户端
type Client struct {
	apiKey     string       // API Key
	baseURL    string       // API 基础地址
	model      string       // 使用的模型
	referer    string       // HTTP-Referer 请求头
	title      string       // X-Title 请求头
	httpClient *http.Client // HTTP 客户端
}

// NewClient 创建 OpenRouter 客户端
// 参数:
//   - cfg: AI 配置
//
// 返回:
//   - *Client: 客户端实例
func NewClient(cfg config.AIConfig) *Client {
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		referer: cfg.Referer,
		title:   cfg.Title,
		httpClient: &http.Client{
			// 不设置整体超时，流式响应可能持续数分钟
			// 生命周期由请求的 context 控制
			Timeout: 0,
		},
	}
}

// StreamChat 发起流式聊天补全请求
// 返回 Stream 对象，调用方通过 Recv 逐条读取增量，用完必须 Close
// 参数:
//   - ctx: 上下文，取消后流会中断
//   - messages: 完整的消息列表（含 system 提示词）
//
// 返回:
//   - *Stream: 流式读取对象
//   - error: API Key 缺失、网络错误或上游非 2xx 响应
func (c *Client) StreamChat(ctx context.Context, messages []Message) (*Stream, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	// OpenRouter 用这两个头做应用归属统计
	req.Header.Set("HTTP-Referer", c.referer)
	req.Header.Set("X-Title", c.title)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm: request failed: %w", err)
	}

	// 非 2xx 视为硬错误，读出响应体后立即关闭
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &RequestError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	return newStream(resp.Body), nil
}

// Model 返回客户端配置的模型标识
func (c *Client) Model() string {
	return c.model
}
