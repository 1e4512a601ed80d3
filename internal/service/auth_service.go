package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"leave-tracker/internal/dto"
	"leave-tracker/internal/model"
	"leave-tracker/pkg/jwt"
)

// AuthService 认证业务接口
type AuthService interface {
	// Register 注册学生账号
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error)
	// Authenticate 校验用户名与密码；用户不存在与密码错误返回同一错误
	Authenticate(ctx context.Context, username, password string) (*Identity, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	// Logout 吊销当前 Access Token 与同一账号的 Refresh Token
	Logout(ctx context.Context, caller *Identity, refreshToken string) error
	// ResolveToken 将请求携带的 Access Token 解析为调用者身份
	ResolveToken(ctx context.Context, accessToken string) (*Identity, error)
	CurrentUser(ctx context.Context, caller *Identity) (*dto.UserResponse, error)
}

type authService struct {
	accounts  AccountService
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	logger    *zap.Logger

	// dummyHash 用户不存在时仍执行一次 bcrypt 比对，避免通过响应耗时枚举用户名
	dummyHash []byte
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	accounts AccountService,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) AuthService {
	dummy, _ := bcrypt.GenerateFromPassword([]byte("leave-tracker/no-such-user"), bcrypt.DefaultCost)
	return &authService{
		accounts:  accounts,
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		logger:    logger,
		dummyHash: dummy,
	}
}

// ────────────────────── Register ──────────────────────

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	if req.Password != req.ConfirmPassword {
		return nil, invalid("confirm_password", "两次输入的密码不一致")
	}

	user, err := s.accounts.CreateAccount(ctx, req.Username, req.Email, req.Password, model.RoleStudent)
	if err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

// ────────────────────── Authenticate / Login ──────────────────────

func (s *authService) Authenticate(ctx context.Context, username, password string) (*Identity, error) {
	user, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, ErrAuthFailed
		}
		return nil, err
	}
	if !s.accounts.VerifyPassword(user, password) {
		return nil, ErrAuthFailed
	}
	return &Identity{UserID: user.UserID, Username: user.Username, Role: user.Role}, nil
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	identity, err := s.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrAuthFailed) {
			s.logger.Info("登录失败", zap.String("username", req.Username))
		}
		return nil, err
	}

	user, err := s.accounts.FindByID(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	return s.issueTokens(user)
}

// ────────────────────── Refresh ──────────────────────

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil || claims.TokenType != jwt.TokenTypeRefresh || claims.ExpiresAt == nil {
		return nil, ErrUnauthenticated
	}
	if s.isRevoked(ctx, claims.ID) {
		return nil, ErrUnauthenticated
	}

	// 以数据库中的账号为准重新签发
	user, err := s.accounts.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}

	// 轮换：旧 Refresh Token 立即失效
	s.revoke(ctx, claims.ID, claims.ExpiresAt.Time)

	return s.issueTokens(user)
}

// ────────────────────── Logout ──────────────────────

func (s *authService) Logout(ctx context.Context, caller *Identity, refreshToken string) error {
	if caller == nil || caller.TokenID == "" {
		return ErrUnauthenticated
	}
	if s.blacklist == nil {
		s.logger.Warn("Redis 不可用，登出仅由客户端丢弃 Token", zap.String("user_id", caller.UserID))
		return nil
	}
	if err := s.blacklist.BlacklistToken(ctx, caller.TokenID, time.Until(caller.ExpiresAt)); err != nil {
		s.logger.Error("Token 加入黑名单失败", zap.String("user_id", caller.UserID), zap.Error(err))
		return err
	}

	// 只吊销属于调用者本人的 Refresh Token；无效或他人的 Token 忽略
	if refreshToken == "" {
		return nil
	}
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil || claims.TokenType != jwt.TokenTypeRefresh || claims.UserID != caller.UserID || claims.ExpiresAt == nil {
		return nil
	}
	if err := s.blacklist.BlacklistToken(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		s.logger.Error("Refresh Token 加入黑名单失败", zap.String("user_id", caller.UserID), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── ResolveToken ──────────────────────

func (s *authService) ResolveToken(ctx context.Context, accessToken string) (*Identity, error) {
	claims, err := s.jwtMgr.ParseToken(accessToken)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	if claims.TokenType != jwt.TokenTypeAccess || claims.UserID == "" {
		return nil, ErrUnauthenticated
	}
	if s.isRevoked(ctx, claims.ID) {
		return nil, ErrUnauthenticated
	}

	identity := &Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
		TokenID:  claims.ID,
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}

// ────────────────────── CurrentUser ──────────────────────

func (s *authService) CurrentUser(ctx context.Context, caller *Identity) (*dto.UserResponse, error) {
	if caller == nil || caller.UserID == "" {
		return nil, ErrUnauthenticated
	}
	user, err := s.accounts.FindByID(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

// ── 内部辅助 ──

func (s *authService) issueTokens(user *model.User) (*dto.TokenResponse, error) {
	accessToken, err := s.jwtMgr.GenerateAccessToken(user.UserID, user.Username, user.Role)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	refreshToken, err := s.jwtMgr.GenerateRefreshToken(user.UserID, user.Username, user.Role)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:         *toUserResponse(user),
	}, nil
}

// isRevoked Redis 出错时降级放行
func (s *authService) isRevoked(ctx context.Context, jti string) bool {
	if s.blacklist == nil || jti == "" {
		return false
	}
	revoked, err := s.blacklist.IsBlacklisted(ctx, jti)
	if err != nil {
		s.logger.Warn("检查 Token 黑名单失败，降级放行", zap.Error(err))
		return false
	}
	return revoked
}

func (s *authService) revoke(ctx context.Context, jti string, expiresAt time.Time) {
	if s.blacklist == nil || jti == "" {
		return
	}
	if err := s.blacklist.BlacklistToken(ctx, jti, time.Until(expiresAt)); err != nil {
		s.logger.Warn("吊销 Refresh Token 失败", zap.Error(err))
	}
}

func toUserResponse(user *model.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:        user.UserID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}
