package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"leave-tracker/internal/model"
	pkgerrors "leave-tracker/pkg/errors"
)

// LeaveRepository 请假申请数据访问接口
type LeaveRepository interface {
	Create(ctx context.Context, leave *model.Leave) error
	// GetByID 查询单条申请（附带申请人）
	GetByID(ctx context.Context, id string) (*model.Leave, error)
	// ListByOwner 按提交时间倒序列出某账号的申请；limit<=0 表示不限
	ListByOwner(ctx context.Context, userID string, limit int) ([]model.Leave, error)
	// ListAll 按提交时间倒序列出全部申请（附带申请人）；status 为空表示不过滤
	ListAll(ctx context.Context, status string, limit int) ([]model.Leave, error)
	// CountByStatus 统计各状态数量；userID 为空表示全部账号
	CountByStatus(ctx context.Context, userID string) (map[string]int64, error)
	// Decide 仅当申请仍为 pending 时写入审批结果，否则返回 ErrStatusConflict
	Decide(ctx context.Context, id, status, comment string, at time.Time) error
}

type leaveRepo struct {
	db *gorm.DB
}

// NewLeaveRepo 创建 LeaveRepository 实例
func NewLeaveRepo(db *gorm.DB) LeaveRepository {
	return &leaveRepo{db: db}
}

func (r *leaveRepo) Create(ctx context.Context, leave *model.Leave) error {
	return r.db.WithContext(ctx).Create(leave).Error
}

func (r *leaveRepo) GetByID(ctx context.Context, id string) (*model.Leave, error) {
	var leave model.Leave
	err := r.db.WithContext(ctx).
		Joins("User").
		Where("leaves.leave_id = ?", id).
		First(&leave).Error
	if err != nil {
		return nil, err
	}
	return &leave, nil
}

func (r *leaveRepo) ListByOwner(ctx context.Context, userID string, limit int) ([]model.Leave, error) {
	var leaves []model.Leave
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("applied_at DESC, leave_id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&leaves).Error; err != nil {
		return nil, err
	}
	return leaves, nil
}

func (r *leaveRepo) ListAll(ctx context.Context, status string, limit int) ([]model.Leave, error) {
	var leaves []model.Leave
	q := r.db.WithContext(ctx).
		Joins("User").
		Order("leaves.applied_at DESC, leaves.leave_id DESC")
	if status != "" {
		q = q.Where("leaves.status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&leaves).Error; err != nil {
		return nil, err
	}
	return leaves, nil
}

func (r *leaveRepo) CountByStatus(ctx context.Context, userID string) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	q := r.db.WithContext(ctx).
		Model(&model.Leave{}).
		Select("status, COUNT(*) AS count").
		Group("status")
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Decide 以 status = 'pending' 作为前置条件的单条 UPDATE，
// 并发审批同一申请时只有一方能命中
func (r *leaveRepo) Decide(ctx context.Context, id, status, comment string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.Leave{}).
		Where("leave_id = ? AND status = ?", id, model.LeaveStatusPending).
		Updates(map[string]interface{}{
			"status":         status,
			"admin_comments": comment,
			"updated_at":     at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrStatusConflict
	}
	return nil
}
