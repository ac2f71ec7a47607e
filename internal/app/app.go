package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"solveit_backend/internal/config"
	"solveit_backend/internal/controller"
	"solveit_backend/internal/repository"
	"solveit_backend/internal/service"
	"solveit_backend/pkg/configwatcher"
	"solveit_backend/pkg/database"
	"solveit_backend/pkg/logger"
	"solveit_backend/pkg/monitoring"
	"solveit_backend/pkg/security"
	"solveit_backend/pkg/tracing"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user        *repository.UserRepository
	service     *repository.CompanyServiceRepository
	interaction *repository.InteractionRepository
}

type services struct {
	auth        *service.AuthService
	storage     *service.StorageService
	vectors     *service.VectorStore
	transcriber *service.OpenAITranscriber
	policy      *service.FallbackPolicy
	hub         *service.NotificationHub
	request     *service.RequestService
	interaction *service.InteractionService
	registry    *service.RegistryService
}

type controllers struct {
	auth          *controller.AuthController
	userDashboard *controller.UserDashboardController
	company       *controller.CompanyDashboardController
	transcription *controller.TranscriptionController
	websocket     *controller.WebSocketController
	health        *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) reloadConfig(cfg *config.Config) {
	for _, callback := range a.configCallbacks {
		callback(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:        repository.NewUserRepository(db),
		service:     repository.NewCompanyServiceRepository(db),
		interaction: repository.NewInteractionRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) (*services, error) {
	s := &services{}

	storage, err := service.NewStorageService(cfg)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	s.storage = storage

	s.vectors, err = service.NewVectorStoreFromConfig(cfg.Retrieval, cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("init vector store: %w", err)
	}

	s.transcriber = service.NewOpenAITranscriber(cfg.AI, cfg.Audio)
	generator := service.NewOpenAIGenerator(cfg.AI)

	s.policy = service.NewFallbackPolicy(cfg.Pipeline.FallbackPhrases)
	a.RegisterConfigCallback(func(next *config.Config) {
		s.policy.SetPhrases(next.Pipeline.FallbackPhrases)
		logger.Log.Info("Fallback phrases reloaded", zap.Strings("phrases", s.policy.Phrases()))
	})

	s.hub = service.NewNotificationHub(rdb, security.CheckOrigin(cfg.CORS.AllowedOrigins))

	s.auth = service.NewAuthService(repos.user, cfg)

	s.request = service.NewRequestService(
		repos.user,
		repos.service,
		repos.interaction,
		s.transcriber,
		s.vectors,
		generator,
		s.policy,
		service.RequestOptions{
			TopK:           cfg.Retrieval.TopK,
			PersistTimeout: cfg.Pipeline.PersistTimeout,
			ArchiveAudio:   cfg.Audio.Archive,
		},
	)
	s.request.Storage = s.storage
	s.request.Notifier = s.hub

	s.interaction = service.NewInteractionService(repos.user, repos.interaction, s.hub, service.NewMailer(cfg.Mail))
	s.registry = service.NewRegistryService(repos.user, repos.service, s.vectors, s.storage, service.NewChunker(cfg.Retrieval))

	return s, nil
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:          controller.NewAuthController(s.auth),
		userDashboard: controller.NewUserDashboardController(s.request, s.interaction, s.registry),
		company:       controller.NewCompanyDashboardController(s.registry, s.interaction),
		transcription: controller.NewTranscriptionController(s.transcriber),
		websocket:     controller.NewWebSocketController(s.hub),
		health:        controller.NewHealthController(db, a.Redis, s.vectors, a.Config.AI),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.Middlewares(cfg)...)

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// Migrate 只建表，供 migrate 子命令使用
func Migrate(cfg *config.Config) error {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == "debug")
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	return database.Migrate(db)
}

func NewApp(cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == "debug")
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}
	if rdb == nil {
		logger.Log.Info("Redis not configured, live updates use local fan-out")
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		app.tracer = tp
	}

	repos := app.initRepositories(db)
	services, err := app.initServices(repos, cfg, rdb)
	if err != nil {
		return nil, err
	}
	app.services = services
	controllers := app.initControllers(services, db)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app, nil
}

// Run 阻塞直到收到退出信号，随后优雅关闭
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go a.services.hub.Run(ctx)

	if a.Config.Path != "" {
		go func() {
			if err := configwatcher.WatchConfig(ctx, a.Config.Path, a.reloadConfig); err != nil {
				logger.Log.Warn("Config watcher stopped", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	logger.Log.Info("Shutting down server...")

	// 先断开 WebSocket，再关闭 HTTP
	a.services.hub.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Log.Info("Server exiting")
	_ = logger.Log.Sync()
	return nil
}
