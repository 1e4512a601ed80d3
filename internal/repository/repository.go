package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db    *gorm.DB
	User  UserRepository
	Leave LeaveRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:    db,
		User:  NewUserRepo(db),
		Leave: NewLeaveRepo(db),
	}
}

// WithTx 返回绑定到事务连接的 Repository 副本
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{
		db:    tx,
		User:  NewUserRepo(tx),
		Leave: NewLeaveRepo(tx),
	}
}

// Transaction 在单个事务中执行 fn；fn 返回错误或 panic 时回滚
// 未绑定数据库（单元测试注入 mock）时直接以当前 Repository 执行
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}
