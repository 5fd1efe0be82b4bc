package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"arzuno-builder-server/internal/model"
)

// ErrFrameNotFound 画框不存在
// 更新操作需要明确区分"没有这一行"和"写入成功"，
// 因此不像查询那样用 (nil, nil) 表达未找到
var ErrFrameNotFound = errors.New("frame not found")

// FrameRepository 画框数据访问层
// 负责画框（design_code 持久化）相关的所有数据库操作
type FrameRepository struct {
	db *gorm.DB // GORM 数据库连接实例
}

// NewFrameRepository 创建 FrameRepository 实例
// 参数:
//   - db: GORM 数据库连接
//
// 返回:
//   - *FrameRepository: 画框仓库实例
func NewFrameRepository(db *gorm.DB) *FrameRepository {
	return &FrameRepository{db: db}
}

// Create 创建新画框
// 参数:
//   - ctx: 上下文
//   - frame: 画框对象，ID 字段会被自动填充
//
// 返回:
//   - error: 数据库错误
func (r *FrameRepository) Create(ctx context.Context, frame *model.Frame) error {
	return r.db.WithContext(ctx).Create(frame).Error
}

// GetByFrameID 根据业务标识获取画框
// 参数:
//   - ctx: 上下文
//   - frameID: 画框业务标识（UUID）
//
// 返回:
//   - *model.Frame: 画框对象，如果未找到返回 nil
//   - error: 数据库错误
func (r *FrameRepository) GetByFrameID(ctx context.Context, frameID string) (*model.Frame, error) {
	var frame model.Frame
	err := r.db.WithContext(ctx).Where("frame_id = ?", frameID).First(&frame).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &frame, nil
}

// ListByProjectID 获取项目下的所有画框
// 参数:
//   - ctx: 上下文
//   - projectID: 项目业务标识
//
// 返回:
//   - []*model.Frame: 画框列表，按创建时间排序
//   - error: 数据库错误
func (r *FrameRepository) ListByProjectID(ctx context.Context, projectID string) ([]*model.Frame, error) {
	var frames []*model.Frame
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&frames).Error
	return frames, err
}

// UpdateDesignCode 覆盖写入画框的设计代码
// 只在生成完成或用户手动保存时调用，流式中间状态不落库
// 采用后写覆盖先写（last-write-wins），不做内容合并
// 参数:
//   - ctx: 上下文
//   - frameID: 画框业务标识
//   - designCode: 完整的 HTML 片段
//
// 返回:
//   - error: 画框不存在返回 ErrFrameNotFound，其余为数据库错误
func (r *FrameRepository) UpdateDesignCode(ctx context.Context, frameID, designCode string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Frame{}).
		Where("frame_id = ?", frameID).
		Update("design_code", designCode)
	if result.Error != nil {
		return result.Error
	}
	// Update 对不存在的行不会报错，通过影响行数判断
	if result.RowsAffected == 0 {
		return ErrFrameNotFound
	}
	return nil
}

// ExistsByFrameID 检查画框是否存在
// 参数:
//   - ctx: 上下文
//   - frameID: 画框业务标识
//
// 返回:
//   - bool: 是否存在
//   - error: 数据库错误
func (r *FrameRepository) ExistsByFrameID(ctx context.Context, frameID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Frame{}).Where("frame_id = ?", frameID).Count(&count).Error
	return count > 0, err
}
