package llm

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// streamChunk SSE 数据行中的 JSON 结构
// 只解析需要的字段，其余忽略
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Stream 流式聊天补全的读取器
// 封装 SSE 协议解析，调用方只看到纯文本增量
type Stream struct {
	body    io.ReadCloser // 底层响应体
	scanner *bufio.Scanner
}

// newStream 创建 Stream 实例
func newStream(body io.ReadCloser) *Stream {
	scanner := bufio.NewScanner(body)
	// 单行可能超过默认的 64KB，放宽到 1MB
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Stream{
		body:    body,
		scanner: scanner,
	}
}

// Recv 读取下一条文本增量
// SSE 协议要点:
//   - 只有 "data: " 前缀的行携带数据，其余行（注释、空行）跳过
//   - "[DONE]" 是流结束标记
//   - 无法解析的 JSON 行跳过，不中断整个流
//
// 返回:
//   - string: 文本增量，可能为空字符串（如纯角色标记的块）
//   - error: 流正常结束返回 io.EOF，传输中断返回底层错误
func (s *Stream) Recv() (string, error) {
	for s.scanner.Scan() {
		line := s.scanner.Text()

		// 跳过非数据行
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")

		// 流结束标记
		if payload == "[DONE]" {
			return "", io.EOF
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			// 跳过无法解析的行，继续读后面的数据
			continue
		}

		if len(chunk.Choices) == 0 {
			continue
		}
		return chunk.Choices[0].Delta.Content, nil
	}

	// 扫描结束，区分正常 EOF 和传输错误
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	// 上游没发 [DONE] 就关闭了连接，按正常结束处理
	return "", io.EOF
}

// Close 关闭流，释放底层连接
// 必须调用，即使 Recv 已经返回了 io.EOF
func (s *Stream) Close() error {
	return s.body.Close()
}
