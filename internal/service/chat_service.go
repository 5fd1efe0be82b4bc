package service

import (
	"context"

	"arzuno-builder-server/internal/model"
	"arzuno-builder-server/internal/repository"
)

// ChatService 对话服务
// 对话历史按画框整体覆盖保存
type ChatService struct {
	chatRepo  *repository.ChatRepository  // 对话数据访问层
	frameRepo *repository.FrameRepository // 画框数据访问层
}

// NewChatService 创建 ChatService 实例
func NewChatService(
	chatRepo *repository.ChatRepository,
	frameRepo *repository.FrameRepository,
) *ChatService {
	return &ChatService{
		chatRepo:  chatRepo,
		frameRepo: frameRepo,
	}
}

// Get 获取画框的对话历史
// 参数:
//   - ctx: 上下文
//   - frameID: 画框业务标识
//
// 返回:
//   - model.MessageList: 消息列表，没有记录时返回空列表
//   - error: 数据库错误
func (s *ChatService) Get(ctx context.Context, frameID string) (model.MessageList, error) {
	chat, err := s.chatRepo.GetByFrameID(ctx, frameID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return model.MessageList{}, nil
	}
	return chat.Messages, nil
}

// Save 保存画框的完整对话历史
// 整体覆盖写入，后写覆盖先写，不做消息级合并
// 参数:
//   - ctx: 上下文
//   - frameID: 画框业务标识
//   - email: 创建者邮箱
//   - messages: 完整的消息列表
//
// 返回:
//   - error: 画框不存在返回 ErrFrameNotFound
func (s *ChatService) Save(ctx context.Context, frameID, email string, messages model.MessageList) error {
	// 对话必须挂在已存在的画框上
	exists, err := s.frameRepo.ExistsByFrameID(ctx, frameID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrFrameNotFound
	}

	return s.chatRepo.Save(ctx, &model.Chat{
		FrameID:   frameID,
		CreatedBy: email,
		Messages:  messages,
	})
}
