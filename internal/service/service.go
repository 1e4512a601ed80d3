package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"leave-tracker/config"
	"leave-tracker/internal/repository"
	"leave-tracker/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Account AccountService
	Auth    AuthService
	Leave   LeaveService
	Export  ExportService
}

// TokenBlacklist Token 吊销存储（由 Redis 实现，可为 nil）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// NewService 创建 Service 聚合
// blacklist 为 nil 时登出与吊销检查降级为空操作
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) *Service {
	loc, err := cfg.Leave.Location()
	if err != nil {
		loc = time.Local
	}

	account := NewAccountService(repo, logger)
	leave := NewLeaveService(repo, loc, logger)
	return &Service{
		Account: account,
		Auth:    NewAuthService(account, jwtMgr, blacklist, logger),
		Leave:   leave,
		Export:  NewExportService(repo, loc, logger),
	}
}

// Identity 已认证调用者身份，由认证边界解析后显式传入各业务操作
type Identity struct {
	UserID    string
	Username  string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

// requireRole 校验调用者角色
func (i *Identity) requireRole(role string) error {
	if i == nil || i.UserID == "" {
		return ErrUnauthenticated
	}
	if i.Role != role {
		return ErrUnauthorized
	}
	return nil
}
