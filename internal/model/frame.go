// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"
)

// Frame 画框模型
// 对应数据库表 frames
// 一个画框保存一个设计变体最近一次提交的完整 HTML 片段
// 注意: design_code 只允许写入完整的生成结果，
// 流式过程中的部分快照只存在于内存，绝不落库
type Frame struct {
	// ID 自增主键
	ID int64 `gorm:"primaryKey" json:"id"`

	// FrameID 画框业务标识（UUID），对外暴露的 ID
	FrameID string `gorm:"size:64;uniqueIndex;not null" json:"frame_id"`

	// ProjectID 所属项目的业务标识
	ProjectID string `gorm:"size:64;index;not null" json:"project_id"`

	// DesignCode 最近保存的 HTML 片段
	// 使用 LONGTEXT 存储，生成的页面可能很大
	DesignCode string `gorm:"type:longtext" json:"design_code"`

	// CreatedAt 创建时间
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// UpdatedAt 最后保存时间
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Project 所属项目（多对一关系）
	Project *Project `gorm:"foreignKey:ProjectID;references:ProjectID" json:"project,omitempty"`
}

// TableName 指定表名
func (Frame) TableName() string {
	return "frames"
}
