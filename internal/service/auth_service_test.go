package service

import (
	"context"
	"errors"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"leave-tracker/config"
	"leave-tracker/internal/dto"
	"leave-tracker/internal/model"
	"leave-tracker/internal/repository"
	"leave-tracker/pkg/jwt"
)

// ── 测试辅助 ──

const testJWTSecret = "test-secret-key-for-unit-testing-2026"

// testClock 每次读取前进一秒，保证提交时间严格递增
type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

type testEnv struct {
	users     *mockUserRepo
	leaves    *mockLeaveRepo
	blacklist *mockBlacklist
	jwtMgr    *jwt.Manager
	clock     *testClock
	accounts  AccountService
	auth      AuthService
	leave     LeaveService
	export    ExportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvAt(t, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), time.UTC)
}

func newTestEnvAt(t *testing.T, now time.Time, loc *time.Location) *testEnv {
	t.Helper()

	authCfg := &config.AuthConfig{
		JWTSecret:       testJWTSecret,
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	}

	users := newMockUserRepo()
	leaves := newMockLeaveRepo(users)
	repo := &repository.Repository{User: users, Leave: leaves}
	logger := zap.NewNop()

	clock := &testClock{t: now}
	blacklist := newMockBlacklist()
	jwtMgr := jwt.NewManager(authCfg)
	accounts := &accountService{repo: repo, hashCost: bcrypt.MinCost, logger: logger}

	return &testEnv{
		users:     users,
		leaves:    leaves,
		blacklist: blacklist,
		jwtMgr:    jwtMgr,
		clock:     clock,
		accounts:  accounts,
		auth:      NewAuthService(accounts, jwtMgr, blacklist, logger),
		leave:     &leaveService{repo: repo, loc: loc, now: clock.now, logger: logger},
		export:    &exportService{repo: repo, loc: loc, now: clock.now, logger: logger},
	}
}

// createUser 直接创建账号并返回其身份
func (e *testEnv) createUser(t *testing.T, username, role string) *Identity {
	t.Helper()
	user, err := e.accounts.CreateAccount(context.Background(), username, username+"@college.edu", "password1", role)
	if err != nil {
		t.Fatalf("创建账号 %s 失败: %v", username, err)
	}
	return &Identity{UserID: user.UserID, Username: user.Username, Role: user.Role}
}

func assertValidation(t *testing.T, err error, field string) {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("期望 ValidationError(%s)，实际: %v", field, err)
	}
	if ve.Field != field {
		t.Errorf("期望字段 %s，实际 %s", field, ve.Field)
	}
	if !errors.Is(err, ErrInvalidRequest) {
		t.Error("ValidationError 应归入 ErrInvalidRequest")
	}
}

// ── 账号测试 ──

func TestCreateAccount_Success(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.accounts.CreateAccount(context.Background(), " alice ", "alice@college.edu", "secret1", model.RoleStudent)
	if err != nil {
		t.Fatalf("期望成功，实际: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("用户名应去除首尾空白，实际 %q", user.Username)
	}
	if user.PasswordHash == "secret1" || user.PasswordHash == "" {
		t.Error("不应保存明文密码")
	}
	if !env.accounts.VerifyPassword(user, "secret1") {
		t.Error("密码哈希应能通过校验")
	}
	if env.accounts.VerifyPassword(user, "secret2") {
		t.Error("错误密码不应通过校验")
	}
}

func TestCreateAccount_DuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.accounts.CreateAccount(ctx, "bob", "bob@x.edu", "secret1", model.RoleStudent); err != nil {
		t.Fatalf("首次创建失败: %v", err)
	}
	_, err := env.accounts.CreateAccount(ctx, "bob", "other@x.edu", "secret2", model.RoleStudent)
	if !errors.Is(err, ErrDuplicateIdentity) {
		t.Errorf("期望 ErrDuplicateIdentity，实际: %v", err)
	}
}

func TestCreateAccount_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.accounts.CreateAccount(ctx, "carol", "shared@x.edu", "secret1", model.RoleStudent)
	_, err := env.accounts.CreateAccount(ctx, "dave", "shared@x.edu", "secret1", model.RoleStudent)
	if !errors.Is(err, ErrDuplicateIdentity) {
		t.Errorf("期望 ErrDuplicateIdentity，实际: %v", err)
	}
}

func TestCreateAccount_Validation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
		password string
		role     string
		field    string
	}{
		{"空用户名", "  ", "a@x.edu", "secret1", model.RoleStudent, "username"},
		{"空邮箱", "a", "", "secret1", model.RoleStudent, "email"},
		{"邮箱格式错误", "a", "not-an-email", "secret1", model.RoleStudent, "email"},
		{"邮箱带显示名", "a", "Bob <bob@x.edu>", "secret1", model.RoleStudent, "email"},
		{"密码过短", "a", "a@x.edu", "12345", model.RoleStudent, "password"},
		{"未知角色", "a", "a@x.edu", "secret1", "guest", "role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.accounts.CreateAccount(context.Background(), tt.username, tt.email, tt.password, tt.role)
			assertValidation(t, err, tt.field)
		})
	}
}

func TestCreateAccount_StoreUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.users.err = errors.New("connection refused")

	_, err := env.accounts.CreateAccount(context.Background(), "eve", "eve@x.edu", "secret1", model.RoleStudent)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("期望 ErrStoreUnavailable，实际: %v", err)
	}
}

func TestFindByUsername_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.accounts.FindByUsername(context.Background(), "ghost")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

func TestEnsureSingleAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin, err := env.accounts.EnsureSingleAdmin(ctx)
	if err != nil {
		t.Fatalf("首次创建管理员失败: %v", err)
	}
	if admin.Username != DefaultAdminUsername || admin.Email != DefaultAdminEmail || admin.Role != model.RoleAdmin {
		t.Errorf("管理员信息不符: %+v", admin)
	}
	if !env.accounts.VerifyPassword(admin, DefaultAdminPassword) {
		t.Error("管理员默认密码应可校验")
	}

	if _, err := env.accounts.EnsureSingleAdmin(ctx); !errors.Is(err, ErrAdminExists) {
		t.Errorf("第二次应返回 ErrAdminExists，实际: %v", err)
	}
}

// ── 注册测试 ──

func TestRegister_Success(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.auth.Register(context.Background(), &dto.RegisterRequest{
		Username:        "alice",
		Email:           "alice@college.edu",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	})
	if err != nil {
		t.Fatalf("期望注册成功，实际: %v", err)
	}
	if resp.Role != model.RoleStudent {
		t.Errorf("注册账号应为 student，实际 %s", resp.Role)
	}
}

func TestRegister_PasswordMismatch(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.auth.Register(context.Background(), &dto.RegisterRequest{
		Username:        "alice",
		Email:           "alice@college.edu",
		Password:        "secret1",
		ConfirmPassword: "secret2",
	})
	assertValidation(t, err, "confirm_password")
}

// ── 登录测试 ──

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", model.RoleStudent)

	resp, err := env.auth.Login(context.Background(), &dto.LoginRequest{Username: "alice", Password: "password1"})
	if err != nil {
		t.Fatalf("期望登录成功，实际: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("应返回 Access 与 Refresh Token")
	}
	if resp.ExpiresIn != int((15 * time.Minute).Seconds()) {
		t.Errorf("ExpiresIn 不符: %d", resp.ExpiresIn)
	}
	if resp.User.Username != "alice" {
		t.Errorf("用户信息不符: %+v", resp.User)
	}

	claims, err := env.jwtMgr.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("解析 AccessToken 失败: %v", err)
	}
	if claims.Role != model.RoleStudent || claims.TokenType != jwt.TokenTypeAccess {
		t.Errorf("Claims 不符: %+v", claims)
	}
}

func TestLogin_FailuresIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", model.RoleStudent)
	ctx := context.Background()

	_, wrongPwd := env.auth.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "nope"})
	_, unknown := env.auth.Login(ctx, &dto.LoginRequest{Username: "ghost", Password: "nope"})

	if !errors.Is(wrongPwd, ErrAuthFailed) || !errors.Is(unknown, ErrAuthFailed) {
		t.Fatalf("期望均为 ErrAuthFailed，实际: %v / %v", wrongPwd, unknown)
	}
	if wrongPwd.Error() != unknown.Error() {
		t.Error("密码错误与用户不存在的错误信息应一致")
	}
}

func TestLogin_IssuesTokenForAuthenticatedIdentity(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", model.RoleStudent)
	ctx := context.Background()

	id, err := env.auth.Authenticate(ctx, "alice", "password1")
	if err != nil {
		t.Fatalf("期望认证成功，实际: %v", err)
	}
	resp, err := env.auth.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "password1"})
	if err != nil {
		t.Fatalf("期望登录成功，实际: %v", err)
	}
	claims, _ := env.jwtMgr.ParseToken(resp.AccessToken)
	if claims == nil || claims.UserID != id.UserID || claims.Role != id.Role {
		t.Errorf("Token 身份应与认证结果一致: %+v / %+v", claims, id)
	}
}

func TestLogin_StoreUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", model.RoleStudent)
	env.users.err = errors.New("connection refused")

	_, err := env.auth.Login(context.Background(), &dto.LoginRequest{Username: "alice", Password: "password1"})
	if !errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrAuthFailed) {
		t.Errorf("存储故障不应被当作认证失败，实际: %v", err)
	}
}

func TestAuthenticate_ReturnsRole(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "root", model.RoleAdmin)

	id, err := env.auth.Authenticate(context.Background(), "root", "password1")
	if err != nil {
		t.Fatalf("期望认证成功，实际: %v", err)
	}
	if id.Role != model.RoleAdmin {
		t.Errorf("期望管理员身份，实际 %+v", id)
	}
}

// ── Token 测试 ──

func TestResolveToken_Success(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", model.RoleStudent)
	ctx := context.Background()

	resp, _ := env.auth.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "password1"})
	id, err := env.auth.ResolveToken(ctx, resp.AccessToken)
	if err != nil {
		t.Fatalf("期望解析成功，实际: %v", err)
	}
	if id.Username != "alice" || id.Role != model.RoleStudent || id.TokenID == "" {
		t.Errorf("身份不符: %+v", id)
	}
	if id.ExpiresAt.IsZero() {
		t.Error("应携带过期时间")
	}
}

func TestResolveToken_RejectsRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", model.RoleStudent)
	ctx := context.Background()

	resp, _ := env.auth.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "password1"})
	if _, err := env.auth.ResolveToken(ctx, resp.RefreshToken); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Refresh Token 不能用于访问接口，实际: %v", err)
	}
	if _, err := env.auth.ResolveToken(ctx, "garbage"); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("无效 Token 应返回 ErrUnauthenticated，实际: %v", err)
	}
}

func TestLogout_RevokesAccessToken(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", model.RoleStudent)
	ctx := context.Background()

	resp, _ := env.auth.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "password1"})
	id, _ := env.auth.ResolveToken(ctx, resp.AccessToken)

	if err := env.auth.Logout(ctx, id, ""); err != nil {
		t.Fatalf("登出失败: %v", err)
	}
	if ttl := env.blacklist.revoked[id.TokenID]; ttl <= 0 {
		t.Errorf("黑名单 TTL 应为正数，实际 %v", ttl)
	}
	if _, err := env.auth.ResolveToken(ctx, resp.AccessToken); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("登出后 Token 应失效，实际: %v", err)
	}
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", model.RoleStudent)
	ctx := context.Background()

	resp, _ := env.auth.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "password1"})
	id, _ := env.auth.ResolveToken(ctx, resp.AccessToken)

	if err := env.auth.Logout(ctx, id, resp.RefreshToken); err != nil {
		t.Fatalf("登出失败: %v", err)
	}
	if _, err := env.auth.Refresh(ctx, resp.RefreshToken); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("登出后 Refresh Token 不应再签发新 Token，实际: %v", err)
	}
}

func TestLogout_IgnoresOtherUsersRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", model.RoleStudent)
	env.createUser(t, "bob", model.RoleStudent)
	ctx := context.Background()

	aliceTok, _ := env.auth.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "password1"})
	bobTok, _ := env.auth.Login(ctx, &dto.LoginRequest{Username: "bob", Password: "password1"})
	alice, _ := env.auth.ResolveToken(ctx, aliceTok.AccessToken)

	if err := env.auth.Logout(ctx, alice, bobTok.RefreshToken); err != nil {
		t.Fatalf("登出失败: %v", err)
	}
	if _, err := env.auth.Refresh(ctx, bobTok.RefreshToken); err != nil {
		t.Errorf("他人的 Refresh Token 不应被吊销，实际: %v", err)
	}
}

func TestLogout_WithoutBlacklist(t *testing.T) {
	env := newTestEnv(t)
	auth := NewAuthService(env.accounts, env.jwtMgr, nil, zap.NewNop())

	err := auth.Logout(context.Background(), &Identity{UserID: "u1", TokenID: "jti-1", ExpiresAt: time.Now().Add(time.Minute)}, "")
	if err != nil {
		t.Errorf("无黑名单时登出应降级成功，实际: %v", err)
	}
}

func TestResolveToken_BlacklistErrorDegrades(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", model.RoleStudent)
	ctx := context.Background()

	resp, _ := env.auth.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "password1"})
	env.blacklist.err = errors.New("redis down")

	if _, err := env.auth.ResolveToken(ctx, resp.AccessToken); err != nil {
		t.Errorf("黑名单不可用时应降级放行，实际: %v", err)
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", model.RoleStudent)
	ctx := context.Background()

	first, _ := env.auth.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "password1"})

	second, err := env.auth.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("期望刷新成功，实际: %v", err)
	}
	if second.AccessToken == "" || second.RefreshToken == first.RefreshToken {
		t.Error("应签发新的 Token 对")
	}

	if _, err := env.auth.Refresh(ctx, first.RefreshToken); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("旧 Refresh Token 应已失效，实际: %v", err)
	}
}

func TestRefresh_AccessTokenNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", model.RoleStudent)
	ctx := context.Background()

	resp, _ := env.auth.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "password1"})
	if _, err := env.auth.Refresh(ctx, resp.AccessToken); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Access Token 不能用于刷新，实际: %v", err)
	}
}

func TestRefresh_RequiresExpiry(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.RoleStudent)

	claims := jwt.Claims{
		UserID:    alice.UserID,
		Username:  alice.Username,
		Role:      alice.Role,
		TokenType: jwt.TokenTypeRefresh,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:       "no-exp",
			Issuer:   "leave-tracker",
			IssuedAt: jwtv5.NewNumericDate(time.Now()),
		},
	}
	token, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("签名失败: %v", err)
	}

	if _, err := env.auth.Refresh(context.Background(), token); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("缺少过期时间的 Refresh Token 应被拒绝，实际: %v", err)
	}
}

func TestCurrentUser(t *testing.T) {
	env := newTestEnv(t)
	id := env.createUser(t, "alice", model.RoleStudent)

	resp, err := env.auth.CurrentUser(context.Background(), id)
	if err != nil {
		t.Fatalf("期望成功，实际: %v", err)
	}
	if resp.Email != "alice@college.edu" {
		t.Errorf("邮箱不符: %s", resp.Email)
	}

	if _, err := env.auth.CurrentUser(context.Background(), nil); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("无身份应返回 ErrUnauthenticated，实际: %v", err)
	}
}
