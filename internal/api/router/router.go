package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sugang-timetable/backend/config"
	"sugang-timetable/backend/internal/api/handler"
	"sugang-timetable/backend/internal/api/middleware"
	"sugang-timetable/backend/internal/api/validator"
	"sugang-timetable/backend/pkg/jwt"
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时写接口不限流
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, limiter middleware.RateLimiter, logger *zap.Logger) (*gin.Engine, error) {
	if err := validator.Register(); err != nil {
		return nil, err
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit, logger))

	// ── 健康检查与指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	writeLimit := middleware.RateLimit(limiter, cfg.Server.RateLimit.Limit, cfg.Server.RateLimit.Window)
	{
		// 课程模块
		lectures := v1.Group("/lectures")
		{
			lectures.GET("", h.Lecture.Search)
			lectures.GET("/:id", h.Lecture.Get)
		}

		// 时间表模块
		timetables := v1.Group("/timetables")
		{
			timetables.POST("", writeLimit, h.Timetable.Create)
			timetables.GET("", h.Timetable.List)
			timetables.GET("/:id", h.Timetable.Get)
			timetables.PATCH("/:id", writeLimit, h.Timetable.Update)
			timetables.DELETE("/:id", writeLimit, h.Timetable.Delete)
			timetables.POST("/:id/lectures", writeLimit, h.Timetable.AddLecture)
			timetables.DELETE("/:id/lectures/:lectureId", writeLimit, h.Timetable.RemoveLecture)
			timetables.GET("/:id/export", h.Timetable.Export)
		}

		// 目录同步（管理员）
		catalog := v1.Group("/catalog")
		catalog.Use(middleware.RoleAuth("admin"))
		{
			catalog.POST("/refresh", writeLimit, h.Catalog.Refresh)
		}
	}

	return r, nil
}
