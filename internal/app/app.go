package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gannfg/obelisk-learning-sub002/internal/config"
	"github.com/gannfg/obelisk-learning-sub002/internal/controller"
	"github.com/gannfg/obelisk-learning-sub002/internal/repository"
	"github.com/gannfg/obelisk-learning-sub002/internal/service"
	"github.com/gannfg/obelisk-learning-sub002/pkg/configwatcher"
	"github.com/gannfg/obelisk-learning-sub002/pkg/database"
	"github.com/gannfg/obelisk-learning-sub002/pkg/logger"
	"github.com/gannfg/obelisk-learning-sub002/pkg/monitoring"
	"github.com/gannfg/obelisk-learning-sub002/pkg/security"
	"github.com/gannfg/obelisk-learning-sub002/pkg/tracing"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	ConfigDir       string
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user         *repository.UserRepository
	workshop     *repository.WorkshopRepository
	attendance   *repository.AttendanceRepository
	progress     *repository.ProgressRepository
	badge        *repository.BadgeRepository
	notification *repository.NotificationRepository
}

type services struct {
	storage         *service.StorageService
	notificationHub *service.NotificationHub
	notification    *service.NotificationService
	workshop        *service.WorkshopService
	attendance      *service.AttendanceService
	badge           *service.BadgeService
	progression     *service.ProgressionService
	checkIn         *service.CheckInService
	completion      *service.CompletionService
}

type controllers struct {
	checkIn      *controller.CheckInController
	workshop     *controller.WorkshopController
	attendance   *controller.AttendanceController
	progress     *controller.ProgressController
	completion   *controller.CompletionController
	notification *controller.NotificationController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) applyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:         repository.NewUserRepository(db),
		workshop:     repository.NewWorkshopRepository(db),
		attendance:   repository.NewAttendanceRepository(db),
		progress:     repository.NewProgressRepository(db),
		badge:        repository.NewBadgeRepository(db),
		notification: repository.NewNotificationRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)

	s.notificationHub = service.NewNotificationHub(rdb)
	go s.notificationHub.Run()

	s.notification = service.NewNotificationService(repos.notification, s.notificationHub, cfg.Notification.Workers, cfg.Notification.QueueSize)
	s.notification.Start()

	s.workshop = service.NewWorkshopService(repos.workshop, rdb, cfg.Server.PublicURL, cfg.Checkin.TokenTTL(), cfg.Checkin.CacheTTL)
	s.attendance = service.NewAttendanceService(repos.attendance, repos.user, s.storage)
	s.badge = service.NewBadgeService(repos.badge, repos.attendance, s.notification)
	s.progression = service.NewProgressionService(repos.progress, s.badge, s.notification, cfg.Progression.MilestoneMode)

	s.checkIn = service.NewCheckInService(
		s.workshop,
		service.NewTokenVerifier(),
		s.attendance,
		s.progression,
		s.badge,
		s.notification,
		cfg.Checkin.XPReward,
	)
	s.completion = service.NewCompletionService(s.progression, s.badge, s.notification)

	// 配置热更新：签到经验值与里程碑模式
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		s.checkIn.SetDefaultXP(newCfg.Checkin.XPReward)
		s.progression.SetMilestoneMode(newCfg.Progression.MilestoneMode)
		logger.Log.Info("progression settings reloaded",
			zap.Int("xpReward", newCfg.Checkin.XPReward),
			zap.String("milestoneMode", s.progression.MilestoneMode()))
	})

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		checkIn:      controller.NewCheckInController(s.checkIn, a.Config.Server.FrontendURL),
		workshop:     controller.NewWorkshopController(s.workshop),
		attendance:   controller.NewAttendanceController(s.checkIn, s.attendance),
		progress:     controller.NewProgressController(s.progression, s.badge),
		completion:   controller.NewCompletionController(s.completion),
		notification: controller.NewNotificationController(s.notification, s.notificationHub),
		health:       controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, window))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	app := &App{
		Config:    cfg,
		ConfigDir: "configs",
		DB:        db,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// Redis 只用于缓存和多实例推送，不可用时降级为单机模式
		logger.Log.Warn("Redis unavailable, running without cache and pub/sub", zap.Error(err))
		rdb = nil
	}
	app.Redis = rdb

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("obelisk-checkin", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	go func() {
		configFile := filepath.Join(a.ConfigDir, "config.yaml")
		if err := configwatcher.WatchConfig(watchCtx, configFile, a.applyConfig); err != nil {
			logger.Log.Warn("Config watcher disabled", zap.Error(err))
		}
	}()

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	// 先停止接收请求，再排空通知队列并断开 WebSocket
	if a.services != nil {
		a.services.notification.Stop(ctx)
		a.services.notificationHub.Stop()
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	logger.Log.Info("Server exiting")
}
