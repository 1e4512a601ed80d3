package handler

import (
	"github.com/gin-gonic/gin"

	"leave-tracker/internal/api/middleware"
	"leave-tracker/internal/service"
	"leave-tracker/pkg/response"
)

// MustGetIdentity 从 Gin 上下文中提取 JWT 中间件注入的调用者身份。
// 未注入时写入 401 响应并返回 false，调用方应直接 return。
func MustGetIdentity(c *gin.Context) (*service.Identity, bool) {
	v, exists := c.Get(middleware.IdentityKey)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	identity, ok := v.(*service.Identity)
	if !ok || identity == nil || identity.UserID == "" {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	return identity, true
}

// respondBindError 写入请求体绑定失败的响应；读取时超出 BodyLimit 返回 413
func respondBindError(c *gin.Context, err error) {
	if middleware.IsBodyTooLarge(err) {
		response.PayloadTooLarge(c)
		return
	}
	response.InvalidField(c, err.Error(), "参数校验失败")
}
