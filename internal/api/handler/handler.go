package handler

import (
	"leave-tracker/config"
	"leave-tracker/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth  *AuthHandler
	Leave *LeaveHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, cfg *config.Config) *Handler {
	return &Handler{
		Auth:  NewAuthHandler(svc.Auth, cfg),
		Leave: NewLeaveHandler(svc.Leave, svc.Export),
	}
}
