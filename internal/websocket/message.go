// Package websocket 提供 WebSocket 通信功能
// 预览端按画框加入房间，接收预览文档推送，上报编辑事件
package websocket

import (
	"encoding/json"
	"time"
)

// MessageType 消息类型常量
const (
	// 服务端 → 预览端
	TypePreviewUpdate = "preview:update" // 生成过程中的预览文档推送
	TypeEditorUpdate  = "editor:update"  // 编辑模式下的文档推送
	TypeEditorState   = "editor:state"   // 编辑器状态变更（选中、样式回显）

	// 预览端 → 服务端: 编辑会话生命周期
	TypeEditorEnable  = "editor:enable"  // 进入编辑模式
	TypeEditorDisable = "editor:disable" // 退出编辑模式（丢弃未保存修改）
	TypeEditorSave    = "editor:save"    // 保存修改并退出编辑模式

	// 预览端 → 服务端: 指针和键盘事件
	TypeEditorPointerOver = "editor:pointerover" // 指针进入元素
	TypeEditorPointerOut  = "editor:pointerout"  // 指针离开元素
	TypeEditorClick       = "editor:click"       // 点击元素
	TypeEditorEscape      = "editor:escape"      // Escape 清除选中

	// 预览端 → 服务端: 修改操作
	TypeEditorText        = "editor:text"         // 文本编辑结果
	TypeEditorStyleSet    = "editor:style:set"    // 设置内联样式
	TypeEditorStyleRemove = "editor:style:remove" // 移除内联样式
	TypeEditorClassAdd    = "editor:class:add"    // 添加类名
	TypeEditorClassRemove = "editor:class:remove" // 移除类名
	TypeEditorImageAlt    = "editor:image:alt"    // 修改图片替代文本
	TypeEditorImageSize   = "editor:image:size"   // 修改图片尺寸
	TypeEditorImageSwap   = "editor:image:swap"   // 替换图片（上传或变换）

	// 通用
	TypeHeartbeat = "heartbeat" // 心跳
	TypePong      = "pong"      // 心跳响应
	TypeError     = "error"     // 错误消息
)

// Message WebSocket 消息结构
// 所有消息都使用这个统一的结构
type Message struct {
	Type      string      `json:"type"`      // 消息类型
	Payload   interface{} `json:"payload"`   // 消息内容
	Timestamp int64       `json:"timestamp"` // 时间戳（毫秒）
}

// NewMessage 创建新消息
func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// decodePayload 把 Payload 解析到具体类型
// 入站消息的 Payload 反序列化后是 map，重新编解码一次
func decodePayload(payload interface{}, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// ==================== Payload 类型定义 ====================

// PreviewUpdatePayload 预览文档推送 Payload
type PreviewUpdatePayload struct {
	FrameID  string `json:"frame_id"` // 画框业务标识
	Document string `json:"document"` // 完整的 HTML 文档
	Seq      uint64 `json:"seq"`      // 单调递增的推送序号
}

// EditorStatePayload 编辑器状态 Payload
// 服务端在选中变化后回发，编辑面板据此回显
type EditorStatePayload struct {
	FrameID  string            `json:"frame_id"`
	State    int               `json:"state"`              // 0 空闲 / 1 悬停 / 2 选中
	Selected string            `json:"selected,omitempty"` // 选中元素的标识
	Styles   map[string]string `json:"styles,omitempty"`   // 选中元素的内联样式
	Classes  []string          `json:"classes,omitempty"`  // 选中元素的类名列表
	IsImage  bool              `json:"is_image,omitempty"` // 选中元素是否是图片
}

// NodePayload 只携带元素标识的事件 Payload
type NodePayload struct {
	NodeID string `json:"node_id"` // 元素标识
}

// TextPayload 文本编辑 Payload
type TextPayload struct {
	NodeID string `json:"node_id"`
	Text   string `json:"text"` // 编辑后的文本
}

// StylePayload 样式操作 Payload
type StylePayload struct {
	NodeID string `json:"node_id"`
	Name   string `json:"name"`            // 样式属性名
	Value  string `json:"value,omitempty"` // 样式值（移除时不需要）
}

// ClassPayload 类名操作 Payload
type ClassPayload struct {
	NodeID string `json:"node_id"`
	Class  string `json:"class"` // 类名
}

// ImageAltPayload 图片替代文本 Payload
type ImageAltPayload struct {
	NodeID string `json:"node_id"`
	Alt    string `json:"alt"`
}

// ImageSizePayload 图片尺寸 Payload
type ImageSizePayload struct {
	NodeID string `json:"node_id"`
	Width  int    `json:"width"`  // 宽度（像素）
	Height int    `json:"height"` // 高度（像素）
}

// ImageSwapPayload 图片替换 Payload
// 直接给新地址，或给出变换列表由服务端构造变换 URL
type ImageSwapPayload struct {
	NodeID     string `json:"node_id"`
	Src        string `json:"src,omitempty"`       // 新的图片地址
	FilePath   string `json:"file_path,omitempty"` // 变换时的端点内路径
	Transforms []struct {
		Kind   string `json:"kind"`
		Width  int    `json:"width,omitempty"`
		Height int    `json:"height,omitempty"`
	} `json:"transforms,omitempty"`
}

// ErrorPayload 错误消息 Payload
type ErrorPayload struct {
	Code    int    `json:"code"`    // 错误码
	Message string `json:"message"` // 错误信息
}
