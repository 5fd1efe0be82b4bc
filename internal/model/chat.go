// Package model 定义了与数据库表对应的数据结构
package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// MessageRole 消息角色常量
const (
	MessageRoleUser      = "user"      // 用户消息
	MessageRoleAssistant = "assistant" // AI 助手响应
	MessageRoleSystem    = "system"    // 系统消息
)

// ChatMessage 对话中的一条消息
type ChatMessage struct {
	Role    string `json:"role"`    // user / assistant / system
	Content string `json:"content"` // 消息内容
}

// MessageList 消息列表
// 以 JSON 数组形式整体存储在 chats 表的一个字段中
// （对话历史按画框整体覆盖写入，后写覆盖先写，不做合并）
type MessageList []ChatMessage

// Value 实现 driver.Valuer，序列化为 JSON 写入数据库
func (m MessageList) Value() (driver.Value, error) {
	if m == nil {
		return "[]", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan 实现 sql.Scanner，从数据库读取 JSON 并反序列化
func (m *MessageList) Scan(value interface{}) error {
	if value == nil {
		*m = MessageList{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for MessageList")
	}

	if len(data) == 0 {
		*m = MessageList{}
		return nil
	}
	return json.Unmarshal(data, m)
}

// Chat 对话模型
// 对应数据库表 chats
// 每个画框对应一行对话记录，消息列表作为 JSON 整体存储
type Chat struct {
	// ID 自增主键
	ID int64 `gorm:"primaryKey" json:"id"`

	// FrameID 所属画框的业务标识
	FrameID string `gorm:"size:64;uniqueIndex;not null" json:"frame_id"`

	// CreatedBy 创建者邮箱
	CreatedBy string `gorm:"size:100;index" json:"created_by"`

	// Messages 完整的消息列表（JSON 列）
	Messages MessageList `gorm:"type:json" json:"messages"`

	// CreatedAt 创建时间
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// UpdatedAt 最后保存时间
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Chat) TableName() string {
	return "chats"
}
