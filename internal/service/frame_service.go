package service

import (
	"context"
	"errors"

	"arzuno-builder-server/internal/cache"
	"arzuno-builder-server/internal/model"
	"arzuno-builder-server/internal/preview"
	"arzuno-builder-server/internal/repository"
)

// ErrFrameNotFound 画框不存在
var ErrFrameNotFound = errors.New("画框不存在")

// FrameService 画框服务
// 处理画框的加载、保存和导出
type FrameService struct {
	frameRepo *repository.FrameRepository // 画框数据访问层
	chatRepo  *repository.ChatRepository  // 对话数据访问层
	cache     *cache.RedisCache           // Redis 缓存
}

// NewFrameService 创建 FrameService 实例
func NewFrameService(
	frameRepo *repository.FrameRepository,
	chatRepo *repository.ChatRepository,
	cache *cache.RedisCache,
) *FrameService {
	return &FrameService{
		frameRepo: frameRepo,
		chatRepo:  chatRepo,
		cache:     cache,
	}
}

// FrameDetail 画框详情
// 一次请求带回设计代码和对话历史，前端加载画框页面只打一次接口
type FrameDetail struct {
	FrameID    string            `json:"frame_id"`    // 画框业务标识
	ProjectID  string            `json:"project_id"`  // 所属项目的业务标识
	DesignCode string            `json:"design_code"` // 最近保存的 HTML 片段
	Messages   model.MessageList `json:"messages"`    // 对话历史
}

// Get 加载画框详情
// 参数:
//   - ctx: 上下文
//   - frameID: 画框业务标识
//
// 返回:
//   - *FrameDetail: 画框详情，对话不存在时 Messages 为空列表
//   - error: 画框不存在返回 ErrFrameNotFound
func (s *FrameService) Get(ctx context.Context, frameID string) (*FrameDetail, error) {
	frame, err := s.frameRepo.GetByFrameID(ctx, frameID)
	if err != nil {
		return nil, err
	}
	if frame == nil {
		return nil, ErrFrameNotFound
	}

	detail := &FrameDetail{
		FrameID:    frame.FrameID,
		ProjectID:  frame.ProjectID,
		DesignCode: frame.DesignCode,
		Messages:   model.MessageList{},
	}

	chat, err := s.chatRepo.GetByFrameID(ctx, frameID)
	if err != nil {
		return nil, err
	}
	if chat != nil {
		detail.Messages = chat.Messages
	}
	return detail, nil
}

// SaveDesignCode 保存画框的设计代码
// 覆盖写入，后写覆盖先写；同时刷新 Redis 里的快照缓存
// 参数:
//   - ctx: 上下文
//   - frameID: 画框业务标识
//   - designCode: 完整的 HTML 片段
//
// 返回:
//   - error: 画框不存在返回 ErrFrameNotFound
func (s *FrameService) SaveDesignCode(ctx context.Context, frameID, designCode string) error {
	if err := s.frameRepo.UpdateDesignCode(ctx, frameID, designCode); err != nil {
		if errors.Is(err, repository.ErrFrameNotFound) {
			return ErrFrameNotFound
		}
		return err
	}

	// 缓存刷新失败不影响保存结果，快照缓存只是加速项
	_ = s.cache.SetLatestDesignCode(ctx, frameID, designCode)
	return nil
}

// LatestDesignCode 获取画框最近保存的设计代码
// 优先读 Redis 快照，未命中时回源数据库并回填缓存
// 参数:
//   - ctx: 上下文
//   - frameID: 画框业务标识
//
// 返回:
//   - string: HTML 片段
//   - error: 画框不存在返回 ErrFrameNotFound
func (s *FrameService) LatestDesignCode(ctx context.Context, frameID string) (string, error) {
	code, hit, err := s.cache.GetLatestDesignCode(ctx, frameID)
	if err == nil && hit {
		return code, nil
	}

	frame, err := s.frameRepo.GetByFrameID(ctx, frameID)
	if err != nil {
		return "", err
	}
	if frame == nil {
		return "", ErrFrameNotFound
	}

	_ = s.cache.SetLatestDesignCode(ctx, frameID, frame.DesignCode)
	return frame.DesignCode, nil
}

// Export 导出画框为独立的 HTML 文档
// 参数:
//   - ctx: 上下文
//   - frameID: 画框业务标识
//
// 返回:
//   - string: 完整的 HTML 文档，可直接保存为 index.html
//   - error: 画框不存在返回 ErrFrameNotFound
func (s *FrameService) Export(ctx context.Context, frameID string) (string, error) {
	code, err := s.LatestDesignCode(ctx, frameID)
	if err != nil {
		return "", err
	}
	return preview.BuildStandaloneDocument(code), nil
}
