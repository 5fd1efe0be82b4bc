package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"arzuno-builder-server/internal/model"
)

// ProjectRepository 项目数据访问层
// 负责项目相关的所有数据库操作
type ProjectRepository struct {
	db *gorm.DB // GORM 数据库连接实例
}

// NewProjectRepository 创建 ProjectRepository 实例
// 参数:
//   - db: GORM 数据库连接
//
// 返回:
//   - *ProjectRepository: 项目仓库实例
func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create 创建新项目
// 参数:
//   - ctx: 上下文
//   - project: 项目对象，ID 字段会被自动填充
//
// 返回:
//   - error: 数据库错误
func (r *ProjectRepository) Create(ctx context.Context, project *model.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

// CreateWithFrame 在一个事务中创建项目及其首个画框
// 项目必须至少拥有一个画框，二者要么同时创建成功，要么都不创建
// 参数:
//   - ctx: 上下文
//   - project: 项目对象
//   - frame: 首个画框对象，ProjectID 需与项目一致
//
// 返回:
//   - error: 数据库错误
func (r *ProjectRepository) CreateWithFrame(ctx context.Context, project *model.Project, frame *model.Frame) error {
	// Transaction 内任何一步出错都会整体回滚
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return err
		}
		return tx.Create(frame).Error
	})
}

// GetByProjectID 根据业务标识获取项目
// 参数:
//   - ctx: 上下文
//   - projectID: 项目业务标识（UUID）
//
// 返回:
//   - *model.Project: 项目对象，如果未找到返回 nil
//   - error: 数据库错误
func (r *ProjectRepository) GetByProjectID(ctx context.Context, projectID string) (*model.Project, error) {
	var project model.Project
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &project, nil
}

// GetWithFrames 获取项目及其全部画框
// 用于项目加载接口，画框按创建时间排序
// 参数:
//   - ctx: 上下文
//   - projectID: 项目业务标识
//
// 返回:
//   - *model.Project: 包含 Frames 的项目对象，未找到返回 nil
//   - error: 数据库错误
func (r *ProjectRepository) GetWithFrames(ctx context.Context, projectID string) (*model.Project, error) {
	var project model.Project
	// Preload 预加载关联的画框列表
	err := r.db.WithContext(ctx).
		Preload("Frames", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("project_id = ?", projectID).
		First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &project, nil
}

// ListByCreator 获取某个用户创建的所有项目
// 按创建时间倒序排列，最新的项目在前
// 参数:
//   - ctx: 上下文
//   - email: 创建者邮箱
//
// 返回:
//   - []*model.Project: 项目列表
//   - error: 数据库错误
func (r *ProjectRepository) ListByCreator(ctx context.Context, email string) ([]*model.Project, error) {
	var projects []*model.Project
	err := r.db.WithContext(ctx).
		Where("created_by = ?", email).
		Order("created_at DESC").
		Find(&projects).Error
	return projects, err
}

// Delete 删除项目及其画框和对话
// 参数:
//   - ctx: 上下文
//   - projectID: 项目业务标识
//
// 返回:
//   - error: 数据库错误
func (r *ProjectRepository) Delete(ctx context.Context, projectID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先收集项目下的画框标识，用于删除关联的对话
		var frameIDs []string
		if err := tx.Model(&model.Frame{}).
			Where("project_id = ?", projectID).
			Pluck("frame_id", &frameIDs).Error; err != nil {
			return err
		}

		if len(frameIDs) > 0 {
			if err := tx.Where("frame_id IN ?", frameIDs).Delete(&model.Chat{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&model.Frame{}).Error; err != nil {
			return err
		}
		return tx.Where("project_id = ?", projectID).Delete(&model.Project{}).Error
	})
}
