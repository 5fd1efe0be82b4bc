// Package markup 处理模型输出中的 HTML 片段
// 包括从未闭合的代码块中提取标记，以及按增长量节流提交
package markup

import (
	"strings"
)

// htmlFence 模型输出中 HTML 代码块的起始围栏
const htmlFence = "```html"

// codeFence 代码块的结束围栏
const codeFence = "```"

// ExtractHTML 从模型的原始输出中提取 HTML 片段
// 输入可能是流式过程中的任意前缀，代码块常常尚未闭合
// 提取规则:
//  1. 找到 "```html" 围栏，取其后的内容；如果后面出现了闭合的
//     "```" 则截到闭合处，否则取到缓冲区末尾（未闭合也照常提取）
//  2. 没有围栏时，只要缓冲区里出现过 "<"，就认为输入本身是
//     标记类内容，整体返回（去除首尾空白）
//  3. 其余情况（纯文本、围栏还没出现）返回空字符串
//
// 该函数是纯函数，对已提取的结果再提取会得到相同的输出
// 参数:
//   - raw: 模型输出的原始缓冲区
//
// 返回:
//   - string: 提取出的 HTML 片段，无法提取时为空字符串
func ExtractHTML(raw string) string {
	// 规则 1: 围栏代码块
	if idx := strings.Index(raw, htmlFence); idx != -1 {
		body := raw[idx+len(htmlFence):]
		// 截掉闭合围栏之后的内容（通常是模型的补充说明）
		if end := strings.Index(body, codeFence); end != -1 {
			body = body[:end]
		}
		return strings.TrimSpace(body)
	}

	// 规则 2: 输入本身就是标记
	// 模型偶尔不打围栏直接输出 HTML，甚至在前面带一句说明，
	// 所以判断的是"出现过 <"而不是"以 < 开头"
	if strings.Contains(raw, "<") {
		return strings.TrimSpace(raw)
	}

	// 规则 3: 无法提取
	return ""
}
