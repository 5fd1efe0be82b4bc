// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"
)

// User 用户模型
// 对应数据库表 users
// 存储用户的基本信息，包括认证凭据
type User struct {
	// ID 用户唯一标识，自增主键
	ID int64 `gorm:"primaryKey" json:"id"`

	// Email 用户邮箱，用于登录，全局唯一
	// 项目的 created_by 字段引用此邮箱
	Email string `gorm:"size:100;uniqueIndex;not null" json:"email"`

	// Name 显示名称
	Name string `gorm:"size:100;not null" json:"name"`

	// PasswordHash 密码的 bcrypt 哈希值
	// 永远不要存储明文密码！
	PasswordHash string `gorm:"size:255;not null" json:"-"`

	// Avatar 用户头像 URL，可选
	Avatar *string `gorm:"size:500" json:"avatar,omitempty"`

	// Status 账号状态
	// 1: 正常
	// 0: 禁用
	Status int8 `gorm:"default:1" json:"status"`

	// CreatedAt 创建时间，由 GORM 自动填充
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// UpdatedAt 更新时间，由 GORM 自动更新
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Projects 用户创建的项目（一对多关系，按邮箱关联）
	Projects []Project `gorm:"foreignKey:CreatedBy;references:Email" json:"projects,omitempty"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
