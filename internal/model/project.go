// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"
)

// Project 项目模型
// 对应数据库表 projects
// 一个项目是用户导航的基本单位，拥有一个或多个画框（Frame）
type Project struct {
	// ID 自增主键
	ID int64 `gorm:"primaryKey" json:"id"`

	// ProjectID 项目业务标识（UUID），对外暴露的 ID
	// 前端路由使用此 ID，全局唯一
	ProjectID string `gorm:"size:64;uniqueIndex;not null" json:"project_id"`

	// CreatedBy 创建者邮箱
	CreatedBy string `gorm:"size:100;index;not null" json:"created_by"`

	// CreatedAt 创建时间
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Frames 项目下的所有画框（一对多关系）
	// 当前流程每个项目只使用一个画框，但表结构允许多个
	Frames []Frame `gorm:"foreignKey:ProjectID;references:ProjectID" json:"frames,omitempty"`
}

// TableName 指定表名
func (Project) TableName() string {
	return "projects"
}
