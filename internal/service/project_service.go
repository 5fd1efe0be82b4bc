package service

import (
	"context"
	"errors"

	"arzuno-builder-server/internal/model"
	"arzuno-builder-server/internal/repository"
	"arzuno-builder-server/pkg/util"
)

// 定义业务错误
var (
	ErrProjectNotFound = errors.New("项目不存在")
	ErrNotProjectOwner = errors.New("无权访问该项目")
)

// ProjectService 项目服务
// 处理项目的创建、加载和删除
// 创建项目时会同时创建首个画框，项目永远不会没有画框
type ProjectService struct {
	projectRepo *repository.ProjectRepository // 项目数据访问层
	frameRepo   *repository.FrameRepository   // 画框数据访问层
	chatRepo    *repository.ChatRepository    // 对话数据访问层
}

// NewProjectService 创建 ProjectService 实例
func NewProjectService(
	projectRepo *repository.ProjectRepository,
	frameRepo *repository.FrameRepository,
	chatRepo *repository.ChatRepository,
) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		frameRepo:   frameRepo,
		chatRepo:    chatRepo,
	}
}

// CreateProjectResponse 创建项目响应
type CreateProjectResponse struct {
	ProjectID string `json:"project_id"` // 新项目的业务标识
	FrameID   string `json:"frame_id"`   // 首个画框的业务标识
}

// Create 创建新项目
// 同一事务内创建项目和首个画框，前端拿到两个标识后
// 直接跳转到画框页面
// 参数:
//   - ctx: 上下文
//   - email: 创建者邮箱
//
// 返回:
//   - *CreateProjectResponse: 项目和画框的标识
//   - error: 数据库错误
func (s *ProjectService) Create(ctx context.Context, email string) (*CreateProjectResponse, error) {
	project := &model.Project{
		ProjectID: util.GenerateUUID(),
		CreatedBy: email,
	}
	frame := &model.Frame{
		FrameID:   util.GenerateUUID(),
		ProjectID: project.ProjectID,
	}

	if err := s.projectRepo.CreateWithFrame(ctx, project, frame); err != nil {
		return nil, err
	}

	return &CreateProjectResponse{
		ProjectID: project.ProjectID,
		FrameID:   frame.FrameID,
	}, nil
}

// Get 加载项目及其画框列表
// 参数:
//   - ctx: 上下文
//   - projectID: 项目业务标识
//   - email: 请求者邮箱，用于归属校验
//
// 返回:
//   - *model.Project: 包含画框列表的项目
//   - error: 项目不存在或请求者不是项目创建者
func (s *ProjectService) Get(ctx context.Context, projectID, email string) (*model.Project, error) {
	project, err := s.projectRepo.GetWithFrames(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}
	if project.CreatedBy != email {
		return nil, ErrNotProjectOwner
	}
	return project, nil
}

// List 获取用户的项目列表
// 参数:
//   - ctx: 上下文
//   - email: 用户邮箱
//
// 返回:
//   - []*model.Project: 项目列表，按创建时间倒序
//   - error: 数据库错误
func (s *ProjectService) List(ctx context.Context, email string) ([]*model.Project, error) {
	return s.projectRepo.ListByCreator(ctx, email)
}

// Delete 删除项目
// 项目下的画框和对话一并删除
// 参数:
//   - ctx: 上下文
//   - projectID: 项目业务标识
//   - email: 请求者邮箱
//
// 返回:
//   - error: 项目不存在、无权操作或数据库错误
func (s *ProjectService) Delete(ctx context.Context, projectID, email string) error {
	project, err := s.projectRepo.GetByProjectID(ctx, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return ErrProjectNotFound
	}
	if project.CreatedBy != email {
		return ErrNotProjectOwner
	}
	return s.projectRepo.Delete(ctx, projectID)
}
