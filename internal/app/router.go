package app

import (
	"strconv"
	"time"

	"github.com/gannfg/obelisk-learning-sub002/docs"
	"github.com/gannfg/obelisk-learning-sub002/internal/config"
	"github.com/gannfg/obelisk-learning-sub002/internal/middleware"
	"github.com/gannfg/obelisk-learning-sub002/internal/model"
	"github.com/gannfg/obelisk-learning-sub002/internal/util"
	"github.com/gannfg/obelisk-learning-sub002/pkg/monitoring"
	"github.com/gannfg/obelisk-learning-sub002/pkg/security"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerStudentRoutes(authGroup, c, cfg)
	}

	// 3. 管理员相关接口
	a.registerAdminRoutes(router, c, repos, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	// 二维码中的链接
	router.GET(util.CheckinPathSegment+":token", c.checkIn.Redirect)

	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers, cfg *config.Config) {
	// 签到提交按用户单独限流
	checkinLimiter := security.KeyedRateLimiter(cfg.RateLimit.CheckinPerMinute, time.Minute, func(ctx *gin.Context) string {
		if user := util.GetUserFromContext(ctx); user != nil {
			return "u:" + strconv.FormatUint(uint64(user.UserID), 10)
		}
		return ctx.ClientIP()
	})

	rg.GET("/checkin/:token", c.checkIn.VerifyToken)
	rg.POST("/checkin", checkinLimiter, c.checkIn.CheckIn)
	rg.GET("/workshops/:id", c.workshop.Get)

	// 成长体系
	rg.GET("/progress", c.progress.GetProgress)
	rg.GET("/progress/leaderboard", c.progress.GetLeaderboard)
	rg.GET("/badges", c.progress.GetBadges)

	// 通知
	rg.GET("/notifications", c.notification.List)
	rg.GET("/notifications/ws", c.notification.WebSocket)
	rg.PATCH("/notifications/:id/read", c.notification.MarkRead)
	rg.POST("/notifications/read-all", c.notification.MarkAllRead)
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(
		middleware.AuthMiddleware(cfg),
		middleware.RoleMiddleware(model.Admin),
		middleware.ActivityMiddleware(repos.user),
	)
	{
		admin.POST("/workshops", c.workshop.Create)
		admin.POST("/workshops/:id/rotate-token", c.workshop.RotateToken)
		admin.GET("/workshops/:id/qrcode", c.workshop.QRCode)

		admin.GET("/workshops/:id/attendance", c.attendance.List)
		admin.POST("/workshops/:id/attendance", c.checkIn.ManualCheckIn)
		admin.POST("/workshops/:id/attendance/archive", c.attendance.Archive)

		admin.POST("/completions", c.completion.Complete)
	}
}
