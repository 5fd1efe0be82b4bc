package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"arzuno-builder-server/internal/model"
)

// ChatRepository 对话数据访问层
// 对话历史按画框整体存取，一行对应一个画框的全部消息
type ChatRepository struct {
	db *gorm.DB // GORM 数据库连接实例
}

// NewChatRepository 创建 ChatRepository 实例
// 参数:
//   - db: GORM 数据库连接
//
// 返回:
//   - *ChatRepository: 对话仓库实例
func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// GetByFrameID 获取画框的对话记录
// 参数:
//   - ctx: 上下文
//   - frameID: 画框业务标识
//
// 返回:
//   - *model.Chat: 对话对象，如果未找到返回 nil
//   - error: 数据库错误
func (r *ChatRepository) GetByFrameID(ctx context.Context, frameID string) (*model.Chat, error) {
	var chat model.Chat
	err := r.db.WithContext(ctx).Where("frame_id = ?", frameID).First(&chat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &chat, nil
}

// Save 保存画框的完整对话历史
// 不存在则插入，已存在则整体覆盖（后写覆盖先写，不做合并）
// 参数:
//   - ctx: 上下文
//   - chat: 对话对象，需包含 FrameID 和完整消息列表
//
// 返回:
//   - error: 数据库错误
func (r *ChatRepository) Save(ctx context.Context, chat *model.Chat) error {
	// 基于 frame_id 唯一索引做 Upsert
	// 冲突时只覆盖消息列表，创建时间和创建者保持不变
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "frame_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"messages", "updated_at"}),
		}).
		Create(chat).Error
}

// DeleteByFrameID 删除画框的对话记录
// 参数:
//   - ctx: 上下文
//   - frameID: 画框业务标识
//
// 返回:
//   - error: 数据库错误
func (r *ChatRepository) DeleteByFrameID(ctx context.Context, frameID string) error {
	return r.db.WithContext(ctx).Where("frame_id = ?", frameID).Delete(&model.Chat{}).Error
}
