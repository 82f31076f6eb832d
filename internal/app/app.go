package app

import (
	"context"
	"errors"
	"fmt"
	"learnhub/internal/config"
	"learnhub/internal/controller"
	"learnhub/internal/middleware"
	"learnhub/internal/model"
	"learnhub/internal/repository"
	"learnhub/internal/service"
	"learnhub/pkg/configwatcher"
	"learnhub/pkg/database"
	"learnhub/pkg/logger"
	"learnhub/pkg/monitoring"
	"learnhub/pkg/security"
	"learnhub/pkg/tracing"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	services        *services
	tracer          *sdktrace.TracerProvider
	mu              sync.Mutex
	configCallbacks []func(*config.Config)

	catalogMu        sync.Mutex
	catalogPath      string
	watchCtx         context.Context
	stopCatalogWatch context.CancelFunc
}

type repositories struct {
	course   *repository.CourseRepository
	user     repository.UserStore
	progress repository.ProgressStore
	cache    repository.RecommendationCache
}

type services struct {
	course         *service.CourseService
	user           *service.UserService
	progress       *service.ProgressService
	recommendation *service.RecommendationService
}

type controllers struct {
	user     *controller.UserController
	progress *controller.ProgressController
	course   *controller.CourseController
	health   *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig 依次执行已注册的回调，配置热更新时调用
func (a *App) ApplyConfig(cfg *config.Config) {
	a.mu.Lock()
	callbacks := append([]func(*config.Config){}, a.configCallbacks...)
	a.mu.Unlock()

	for _, cb := range callbacks {
		cb(cfg)
	}
}

func loadCatalog(cfg *config.CatalogConfig) ([]model.Course, error) {
	if cfg.Path == "" {
		return repository.DefaultCourses(), nil
	}
	return repository.LoadCatalogFile(cfg.Path)
}

func (a *App) initRepositories(cfg *config.Config) (*repositories, error) {
	courses, err := loadCatalog(&cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	repos := &repositories{course: repository.NewCourseRepository(courses)}

	if a.DB != nil {
		repos.user = repository.NewUserRepository(a.DB)
		repos.progress = repository.NewProgressRepository(a.DB)
	} else {
		repos.user = repository.NewMemoryUserRepository()
		repos.progress = repository.NewMemoryProgressRepository()
	}

	switch {
	case a.Redis != nil:
		repos.cache = repository.NewRedisRecommendationCache(a.Redis, cfg.Recommend.CacheTTL)
	case cfg.Recommend.CacheTTL > 0:
		// 未启用 redis 时退化为进程内缓存
		repos.cache = repository.NewMemoryRecommendationCache(cfg.Recommend.CacheTTL)
	}
	return repos, nil
}

func (a *App) initServices(repos *repositories, cfg *config.Config) (*services, error) {
	course, err := service.NewCourseService(repos.course)
	if err != nil {
		return nil, err
	}

	s := &services{course: course}
	s.user = service.NewUserService(repos.user, repos.progress, repos.cache)
	s.progress = service.NewProgressService(repos.progress, repos.user, course, repos.cache, cfg.Progress.RequireRegistration)
	s.recommendation = service.NewRecommendationService(repos.user, repos.progress, course, repos.cache, cfg.Recommend.TopN)
	return s, nil
}

func (a *App) initControllers(s *services) *controllers {
	health := controller.NewHealthController(a.DB, a.Redis)
	health.LocalCache = a.Redis == nil && a.Config.Recommend.CacheTTL > 0

	return &controllers{
		user:     controller.NewUserController(s.user, s.recommendation),
		progress: controller.NewProgressController(s.progress),
		course:   controller.NewCourseController(s.course),
		health:   health,
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// registerConfigCallbacks 热更新只应用可以在线切换的配置项
func (a *App) registerConfigCallbacks(s *services) {
	a.RegisterConfigCallback(func(cfg *config.Config) {
		logger.SetLevel(cfg)
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		s.recommendation.SetDefaultTopN(cfg.Recommend.TopN)
		s.progress.SetRequireRegistration(cfg.Progress.RequireRegistration)
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		a.catalogMu.Lock()
		defer a.catalogMu.Unlock()
		if cfg.Catalog.Path == "" || cfg.Catalog.Path == a.catalogPath {
			return
		}
		if !a.reloadCatalog(cfg.Catalog.Path) {
			return
		}
		a.catalogPath = cfg.Catalog.Path
		a.watchCatalogLocked()
	})
}

// reloadCatalog 读取目录文件并重建索引，失败时保留当前目录
func (a *App) reloadCatalog(path string) bool {
	courses, err := repository.LoadCatalogFile(path)
	if err != nil {
		logger.Log.Error("Failed to load catalog", zap.String("path", path), zap.Error(err))
		return false
	}
	if err := a.services.course.Reload(courses); err != nil {
		logger.Log.Error("Failed to reload catalog", zap.String("path", path), zap.Error(err))
		return false
	}
	return true
}

// watchCatalogLocked 监听当前目录文件的原地修改，目录路径变化时替换旧的监听。调用方持有 catalogMu
func (a *App) watchCatalogLocked() {
	if a.watchCtx == nil || a.catalogPath == "" {
		return
	}
	if a.stopCatalogWatch != nil {
		a.stopCatalogWatch()
	}
	ctx, cancel := context.WithCancel(a.watchCtx)
	a.stopCatalogWatch = cancel

	path := a.catalogPath
	go func() {
		err := configwatcher.WatchFile(ctx, path, func() {
			a.catalogMu.Lock()
			defer a.catalogMu.Unlock()
			if a.catalogPath == path {
				a.reloadCatalog(path)
			}
		})
		if err != nil {
			logger.Log.Error("Catalog watcher stopped", zap.String("path", path), zap.Error(err))
		}
	}()
}

// NewApp 按配置组装存储、服务与路由。database.driver 为 memory 时不连接数据库，
// redis.enabled 为 false 时不启用推荐缓存
func NewApp(cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)

	app := &App{Config: cfg, catalogPath: cfg.Catalog.Path}

	if cfg.Database.Driver != database.DriverMemory {
		db, err := database.InitDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("init database: %w", err)
		}
		app.DB = db
	}

	if cfg.Redis.Enabled {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			// 缓存是可选的，连接失败时退化为直接计算
			logger.Log.Warn("Redis unavailable, recommendation cache disabled", zap.Error(err))
		} else {
			app.Redis = rdb
		}
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		app.tracer = tp
	}

	repos, err := app.initRepositories(cfg)
	if err != nil {
		return nil, err
	}
	services, err := app.initServices(repos, cfg)
	if err != nil {
		return nil, err
	}
	app.services = services
	controllers := app.initControllers(services)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)
	app.registerConfigCallbacks(services)

	logger.Log.Info("Application initialized",
		zap.String("database", cfg.Database.Driver),
		zap.Bool("cache", app.Redis != nil),
		zap.Int("courses", len(services.course.List())),
	)
	return app, nil
}

// Close 释放外部连接
func (a *App) Close() {
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	logger.Log.Sync()
}

func (a *App) Run() error {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.Config.Server.WatchConfig && a.Config.Path != "" {
		go func() {
			if err := configwatcher.WatchConfig(ctx, a.Config.Path, a.ApplyConfig); err != nil {
				logger.Log.Error("Config watcher stopped", zap.Error(err))
			}
		}()

		a.catalogMu.Lock()
		a.watchCtx = ctx
		a.watchCatalogLocked()
		a.catalogMu.Unlock()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Log.Info("Server exiting")
	return nil
}
