package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"leave-tracker/config"
	"leave-tracker/internal/dto"
	"leave-tracker/internal/service"
	"leave-tracker/pkg/response"
)

const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/api/v1/auth"
)

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc      service.AuthService
	cookieMaxAge int
	cookieSecure bool
}

// NewAuthHandler 创建 AuthHandler
// cfg 为 nil 时 Refresh Cookie 有效期取 24 小时且不设置 Secure
func NewAuthHandler(authSvc service.AuthService, cfg *config.Config) *AuthHandler {
	h := &AuthHandler{authSvc: authSvc, cookieMaxAge: int((24 * time.Hour).Seconds())}
	if cfg != nil {
		if cfg.Auth.RefreshTokenTTL > 0 {
			h.cookieMaxAge = int(cfg.Auth.RefreshTokenTTL.Seconds())
		}
		h.cookieSecure = strings.HasPrefix(cfg.Server.BaseURL, "https://")
	}
	return h
}

// Register 注册学生账号
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.authSvc.Register(c.Request.Context(), &req)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	response.Created(c, result)
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken, h.cookieMaxAge)
	response.OK(c, result)
}

// RefreshToken 刷新 Token
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}
	if req.RefreshToken == "" {
		if cookie, err := c.Cookie(refreshCookieName); err == nil {
			req.RefreshToken = cookie
		}
	}
	if req.RefreshToken == "" {
		response.BadRequest(c, 10001, "缺少 refresh_token")
		return
	}

	result, err := h.authSvc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken, h.cookieMaxAge)
	response.OK(c, result)
}

// Logout 用户登出，同时吊销请求体或 Cookie 中的 Refresh Token
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	var req dto.LogoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}
	if req.RefreshToken == "" {
		if cookie, err := c.Cookie(refreshCookieName); err == nil {
			req.RefreshToken = cookie
		}
	}

	if err := h.authSvc.Logout(c.Request.Context(), identity, req.RefreshToken); err != nil {
		handleAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, "", -1)
	response.OK(c, nil)
}

// GetCurrentUser 当前登录账号
// GET /api/v1/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	result, err := h.authSvc.CurrentUser(c.Request.Context(), identity)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, value, maxAge, refreshCookiePath, "", h.cookieSecure, true)
}

func handleAuthError(c *gin.Context, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		response.InvalidField(c, ve.Field, ve.Detail)
	case errors.Is(err, service.ErrAuthFailed):
		response.Unauthorized(c, 11001, "用户名或密码错误")
	case errors.Is(err, service.ErrDuplicateIdentity):
		response.Conflict(c, 11002, "用户名或邮箱已存在")
	case errors.Is(err, service.ErrUnauthenticated), errors.Is(err, service.ErrUserNotFound):
		response.Unauthorized(c, 10002, "未认证")
	case errors.Is(err, service.ErrStoreUnavailable):
		response.StoreUnavailable(c)
	default:
		response.InternalError(c)
	}
}
