package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"leave-tracker/internal/model"
	"leave-tracker/internal/repository"
	pkgerrors "leave-tracker/pkg/errors"
)

// 初始化管理员的固定凭据（首次部署后应立即修改数据库中的密码哈希）
const (
	DefaultAdminUsername = "admin"
	DefaultAdminEmail    = "admin@college.edu"
	DefaultAdminPassword = "admin123"
)

const (
	minPasswordLen = 6
	maxPasswordLen = 72 // bcrypt 上限
)

// AccountService 账号业务接口
type AccountService interface {
	// CreateAccount 创建账号，仅保存密码的 bcrypt 哈希
	CreateAccount(ctx context.Context, username, email, password, role string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	// EnsureSingleAdmin 不存在管理员时创建唯一管理员；已存在返回 ErrAdminExists
	EnsureSingleAdmin(ctx context.Context) (*model.User, error)
	// VerifyPassword 比对明文密码与哈希
	VerifyPassword(user *model.User, password string) bool
}

type accountService struct {
	repo     *repository.Repository
	hashCost int
	logger   *zap.Logger
}

// NewAccountService 创建 AccountService 实例
func NewAccountService(repo *repository.Repository, logger *zap.Logger) AccountService {
	return &accountService{repo: repo, hashCost: bcrypt.DefaultCost, logger: logger}
}

// ────────────────────── CreateAccount ──────────────────────

func (s *accountService) CreateAccount(ctx context.Context, username, email, password, role string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" {
		return nil, invalid("username", "用户名不能为空")
	}
	if email == "" {
		return nil, invalid("email", "邮箱不能为空")
	}
	// 只接受裸地址，"Bob <bob@x.edu>" 这类带显示名的写法视为无效
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, invalid("email", "邮箱格式无效")
	}
	if len(password) < minPasswordLen {
		return nil, invalid("password", "密码长度不能少于 6 位")
	}
	if len(password) > maxPasswordLen {
		return nil, invalid("password", "密码长度不能超过 72 字节")
	}
	if role != model.RoleStudent && role != model.RoleAdmin {
		return nil, invalid("role", "角色必须为 student 或 admin")
	}

	exists, err := s.repo.User.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		s.logger.Error("检查账号唯一性失败", zap.Error(err))
		return nil, storeError(err)
	}
	if exists {
		return nil, ErrDuplicateIdentity
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}

	// 唯一约束兜底：并发注册同名账号时由数据库拒绝
	if err := s.repo.User.Create(ctx, user); err != nil {
		if errors.Is(err, pkgerrors.ErrDuplicateKey) {
			return nil, ErrDuplicateIdentity
		}
		s.logger.Error("创建账号失败", zap.String("username", username), zap.Error(err))
		return nil, storeError(err)
	}

	s.logger.Info("账号已创建",
		zap.String("user_id", user.UserID),
		zap.String("username", user.Username),
		zap.String("role", user.Role),
	)
	return user, nil
}

// ────────────────────── Find ──────────────────────

func (s *accountService) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.repo.User.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询账号失败", zap.String("username", username), zap.Error(err))
		return nil, storeError(err)
	}
	return user, nil
}

func (s *accountService) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询账号失败", zap.String("id", id), zap.Error(err))
		return nil, storeError(err)
	}
	return user, nil
}

// ────────────────────── EnsureSingleAdmin ──────────────────────

func (s *accountService) EnsureSingleAdmin(ctx context.Context) (*model.User, error) {
	exists, err := s.repo.User.ExistsByRole(ctx, model.RoleAdmin)
	if err != nil {
		s.logger.Error("检查管理员失败", zap.Error(err))
		return nil, storeError(err)
	}
	if exists {
		return nil, ErrAdminExists
	}

	return s.CreateAccount(ctx, DefaultAdminUsername, DefaultAdminEmail, DefaultAdminPassword, model.RoleAdmin)
}

func (s *accountService) VerifyPassword(user *model.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}
