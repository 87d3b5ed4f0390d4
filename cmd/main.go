package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"lumina_shop/internal/config"
	"lumina_shop/internal/controller"
	"lumina_shop/internal/middleware"
	"lumina_shop/internal/model"
	"lumina_shop/internal/repository"
	"lumina_shop/internal/router"
	"lumina_shop/internal/service"
	"lumina_shop/internal/task"
	"lumina_shop/pkg/database"
	"lumina_shop/pkg/logger"
	"lumina_shop/pkg/seed"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径，默认查找 ./config.yaml")
	hashPassword := flag.String("hash-password", "", "生成后台密码的 bcrypt 哈希后退出")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := service.HashPassword(*hashPassword)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 2. 初始化依赖
	deps, err := initDependencies(cfg, log)
	if err != nil {
		log.Fatal("初始化依赖失败", zap.Error(err))
	}
	defer deps.Close()

	// 3. 启动定时任务
	if err := deps.Tasks.Start(); err != nil {
		log.Fatal("启动定时任务失败", zap.Error(err))
	}
	defer deps.Tasks.Stop()

	// 4. 初始化路由
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinLogger(log))
	opts := router.Options{
		AllowOrigins:  cfg.Server.AllowOrigins,
		ChatInterval:  cfg.Limit.ChatInterval,
		LoginInterval: cfg.Limit.LoginInterval,
	}
	if cfg.Storage.Provider == "local" {
		opts.UploadDir = cfg.Storage.LocalDir
	}
	router.InitRoutes(r, deps.Controllers, opts)

	// 5. 启动服务
	startServer(r, cfg.Server, log)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Redis       *redis.Client
	Repos       *Repositories
	Services    *Services
	Controllers router.Controllers
	Tasks       *task.TaskManager
}

// Repositories 仓库集合
type Repositories struct {
	State     repository.StateRepository
	AICallLog repository.AICallLogRepository
}

// Services 服务集合
type Services struct {
	Catalog   *service.CatalogService
	Shoppers  *service.ShopperService
	Locale    *service.LocaleService
	Assistant *service.AssistantService
	Chat      *service.ChatService
	Checkout  *service.CheckoutService
	Admin     *service.AdminService
	Storage   service.StorageProvider
}

// Close 释放连接
func (d *Dependencies) Close() {
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	if d.DB != nil {
		_ = database.Close(d.DB)
	}
}

// ==================== 初始化函数 ====================

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, log *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{}

	// -------- 数据库 --------
	db, err := database.InitDB(database.Options{
		Driver:   cfg.Database.Driver,
		DSN:      cfg.Database.DSN,
		LogLevel: logger.GormLevel(cfg.Log.Level),
	}, &model.StateEntry{}, &model.AICallLog{})
	if err != nil {
		return nil, err
	}
	deps.DB = db
	log.Info("数据库连接成功", zap.String("driver", cfg.Database.Driver))

	// -------- Repo 层 --------
	repos, err := initRepositories(cfg, deps, log)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Repos = repos

	// -------- 业务服务 --------
	services, err := initServices(cfg, repos, log)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Services = services

	// -------- Controller 层 --------
	deps.Controllers = router.Controllers{
		Storefront: controller.NewStorefrontController(services.Catalog, services.Shoppers, services.Locale, log),
		Shopper:    controller.NewShopperController(services.Catalog, services.Shoppers, services.Checkout, services.Locale, log),
		Chat:       controller.NewChatController(services.Chat, services.Catalog, log),
		Locale:     controller.NewLocaleController(services.Locale),
		Admin:      controller.NewAdminController(services.Admin, services.Catalog, services.Storage, repos.AICallLog, log),
	}

	// -------- 定时任务 --------
	deps.Tasks = task.NewTaskManager(&task.TaskManagerDeps{
		Catalog:     services.Catalog,
		CallLogRepo: repos.AICallLog,
		Sessions: map[string]task.IdleEvicter{
			"shopper": services.Shoppers,
			"chat":    services.Chat,
		},
		Logger: log,
	}, &task.TaskManagerConfig{
		CouponEnabled:       cfg.Tasks.CouponEnabled,
		CouponSweepCron:     cfg.Tasks.CouponSweepCron,
		LogRetentionEnabled: cfg.Tasks.LogRetentionEnabled,
		LogRetentionCron:    cfg.Tasks.LogRetentionCron,
		LogRetentionDays:    cfg.Tasks.LogRetentionDays,
		SessionSweepEnabled: cfg.Tasks.SessionSweepEnabled,
		SessionSweepCron:    cfg.Tasks.SessionSweepCron,
		SessionIdleTTL:      cfg.Tasks.SessionIdleTTL,
	})

	return deps, nil
}

// initRepositories 状态存储按配置选择数据库或 redis
func initRepositories(cfg *config.Config, deps *Dependencies, log *zap.Logger) (*Repositories, error) {
	repos := &Repositories{
		AICallLog: repository.NewAICallLogRepository(deps.DB),
	}

	switch cfg.State.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("连接 redis 失败: %w", err)
		}
		deps.Redis = client
		repos.State = repository.NewRedisStateRepository(client, cfg.State.TTL)
		log.Info("购物状态存储: redis", zap.String("addr", cfg.Redis.Addr))
	default:
		repos.State = repository.NewStateRepository(deps.DB)
		log.Info("购物状态存储: database")
	}

	return repos, nil
}

// initServices 初始化业务服务
func initServices(cfg *config.Config, repos *Repositories, log *zap.Logger) (*Services, error) {
	catalogSeed, err := seed.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("加载商品目录失败: %w", err)
	}
	catalog, err := service.NewCatalogService(catalogSeed, log)
	if err != nil {
		return nil, err
	}

	translations, err := seed.LoadTranslations()
	if err != nil {
		return nil, fmt.Errorf("加载翻译失败: %w", err)
	}

	assistant := service.NewAssistantService(initGenerator(cfg.AI, log), repos.AICallLog, log)

	storage, err := service.NewStorageProvider(&service.StorageConfig{
		Provider:  cfg.Storage.Provider,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Endpoint:  cfg.Storage.Endpoint,
		CDNDomain: cfg.Storage.CDNDomain,
		BasePath:  cfg.Storage.BasePath,
		LocalDir:  cfg.Storage.LocalDir,
		BaseURL:   cfg.Storage.BaseURL,
	})
	if err != nil {
		// 图片上传不可用不影响前台
		log.Warn("存储服务初始化失败", zap.Error(err))
		storage = nil
	}

	middleware.SetJWTConfig(&middleware.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenTTL: cfg.JWT.TTL,
		Issuer:         cfg.JWT.Issuer,
	})
	if cfg.JWT.Secret == "" {
		log.Warn("未配置 jwt.secret，使用默认密钥")
	}
	if cfg.Admin.PasswordHash == "" {
		log.Warn("未配置 admin.password_hash，后台登录已禁用")
	}

	return &Services{
		Catalog:   catalog,
		Shoppers:  service.NewShopperService(repos.State, cfg.Toast.TTL, log),
		Locale:    service.NewLocaleService(translations, cfg.Locale.ExchangeRate),
		Assistant: assistant,
		Chat:      service.NewChatService(assistant, catalog),
		Checkout:  service.NewCheckoutService(cfg.Checkout.Delay, log),
		Admin:     service.NewAdminService(cfg.Admin.Username, cfg.Admin.PasswordHash, log),
		Storage:   storage,
	}, nil
}

// initGenerator 未配置 API Key 时返回 nil，导购回复走兜底文案
func initGenerator(cfg config.AIConfig, log *zap.Logger) service.TextGenerator {
	if cfg.APIKey == "" {
		log.Warn("未配置 AI API Key，导购助手将返回兜底回复")
		return nil
	}
	if cfg.Transport == "rest" {
		return service.NewRESTGenerator(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout)
	}
	return service.NewGeminiGenerator(cfg.APIKey, cfg.Model, &http.Client{Timeout: cfg.Timeout})
}

// ==================== 服务启动 ====================

// startServer 启动服务，收到退出信号后优雅关闭
func startServer(r *gin.Engine, cfg config.ServerConfig, log *zap.Logger) {
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Info("服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("服务启动失败", zap.Error(err))
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("服务强制关闭", zap.Error(err))
		return
	}

	log.Info("服务已退出")
}
