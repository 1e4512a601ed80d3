package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"leave-tracker/internal/service"
	"leave-tracker/pkg/response"
)

// IdentityKey gin.Context 中保存调用者身份的键
const IdentityKey = "identity"

// IdentityResolver 将 Access Token 解析为调用者身份（由 AuthService 实现）
type IdentityResolver interface {
	ResolveToken(ctx context.Context, accessToken string) (*service.Identity, error)
}

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取 Access Token，解析出的身份注入上下文
func JWTAuth(resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		identity, err := resolver.ResolveToken(c.Request.Context(), parts[1])
		if err != nil {
			response.Unauthorized(c, 10002, "Token 无效或已过期")
			c.Abort()
			return
		}

		c.Set(IdentityKey, identity)
		c.Set("user_id", identity.UserID)
		c.Set("role", identity.Role)

		c.Next()
	}
}

// RoleAuth 角色权限中间件
// 角色不符时统一提示以正确角色登录，不暴露接口所需的具体角色
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		if role == "" {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		for _, r := range allowedRoles {
			if role == r {
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, service.ErrUnauthorized.Error())
		c.Abort()
	}
}
