package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"leave-tracker/config"
	"leave-tracker/internal/api/handler"
	"leave-tracker/internal/api/middleware"
	"leave-tracker/internal/model"
	"leave-tracker/pkg/response"
)

// maxBodyBytes 请求体上限
const maxBodyBytes = 1 << 20

// Pinger 数据库健康检查（*sql.DB 实现）
type Pinger interface {
	PingContext(ctx context.Context) error
}

// CachePinger Redis 健康检查（*redis.Client 实现）
type CachePinger interface {
	Ping(ctx context.Context) error
}

// Deps 路由所需的外部依赖
// Limiter 为 nil 时登录接口不限流；Cache 为 nil 时健康检查不包含 Redis
type Deps struct {
	Resolver middleware.IdentityResolver
	Limiter  middleware.RateLimiter
	DB       Pinger
	Cache    CachePinger
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, deps Deps, logger *zap.Logger) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 入口与健康检查 ──
	r.GET("/", landing)
	r.GET("/health", health(deps.DB, deps.Cache))

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", middleware.RateLimit(deps.Limiter, cfg.Auth.LoginRateLimit, cfg.Auth.LoginRateWindow), h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(deps.Resolver))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// 学生
			leaves := authorized.Group("/leaves", middleware.RoleAuth(model.RoleStudent))
			{
				leaves.POST("", h.Leave.Submit)
				leaves.GET("", h.Leave.ListMine)
				leaves.GET("/dashboard", h.Leave.Dashboard)
				leaves.GET("/calendar.ics", h.Leave.Calendar)
			}

			// 管理员
			admin := authorized.Group("/admin/leaves", middleware.RoleAuth(model.RoleAdmin))
			{
				admin.GET("", h.Leave.AdminList)
				admin.GET("/dashboard", h.Leave.Dashboard)
				admin.GET("/export", h.Leave.Export)
				admin.POST("/:id/decision", h.Leave.Decide)
			}
		}
	}

	return r
}

// landingEndpoints 入口页列出的主要接口
var landingEndpoints = gin.H{
	"register":         "POST /api/v1/auth/register",
	"login":            "POST /api/v1/auth/login",
	"student_leaves":   "GET|POST /api/v1/leaves",
	"student_home":     "GET /api/v1/leaves/dashboard",
	"admin_leaves":     "GET /api/v1/admin/leaves",
	"admin_home":       "GET /api/v1/admin/leaves/dashboard",
	"admin_decision":   "POST /api/v1/admin/leaves/:id/decision",
	"admin_export":     "GET /api/v1/admin/leaves/export",
	"student_calendar": "GET /api/v1/leaves/calendar.ics",
}

func landing(c *gin.Context) {
	response.OK(c, gin.H{
		"service":   "leave-tracker",
		"endpoints": landingEndpoints,
	})
}

func health(db Pinger, cache CachePinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		result := gin.H{"status": "ok"}
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				result["status"] = "unavailable"
				result["database"] = "down"
				c.JSON(http.StatusServiceUnavailable, result)
				return
			}
			result["database"] = "up"
		}
		// Redis 不可用时服务降级运行，不影响整体状态
		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				result["redis"] = "down"
			} else {
				result["redis"] = "up"
			}
		}
		c.JSON(http.StatusOK, result)
	}
}
