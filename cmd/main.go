package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"campaign-ledger/config"
	"campaign-ledger/internal/api/admin"
	"campaign-ledger/internal/api/campaign"
	"campaign-ledger/internal/errors"
	"campaign-ledger/internal/metrics"
	"campaign-ledger/internal/middleware"
	"campaign-ledger/internal/model"
	"campaign-ledger/internal/repository/interfaces"
	"campaign-ledger/internal/repository/memory"
	"campaign-ledger/internal/repository/sqlrepo"
	"campaign-ledger/internal/service"
	"campaign-ledger/internal/storage"
	"campaign-ledger/internal/transfer"
	"campaign-ledger/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			util.Logger.Error("程序发生严重错误", zap.Any("error", r))
		}
	}()

	// 初始化配置
	config.Init()
	cfg := config.AppConfig

	// 初始化日志
	util.InitLogger(cfg.LogLevel)
	defer util.Logger.Sync()

	util.Logger.Info("应用程序启动", zap.String("store", cfg.StoreDriver))

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	ledgerRepo, payoutRepo, db := openStore(rootCtx, cfg)
	if db != nil {
		defer db.Close()
	}

	// 注册自定义验证器
	if err := util.RegisterBindingValidators(); err != nil {
		util.Logger.Fatal("注册验证器失败", zap.Error(err))
	}

	snapshotStore := openStorage(rootCtx, cfg)
	defer func() {
		if err := storage.Close(snapshotStore); err != nil {
			util.Logger.Warn("关闭快照存储失败", zap.Error(err))
		}
	}()

	admins := make([]model.Address, 0, len(cfg.AdminAddresses))
	for _, raw := range cfg.AdminAddresses {
		addr, err := model.ParseAddress(raw)
		if err != nil {
			util.Logger.Fatal("无效的管理员地址", zap.String("address", raw), zap.Error(err))
		}
		admins = append(admins, addr)
	}

	// 初始化出账、通知和服务
	book := transfer.NewBook(payoutRepo)
	transferer := transfer.NewRetrying(book, cfg.TransferMaxRetries, 200*time.Millisecond)

	opts := make([]service.LedgerOption, 0, 1)
	var notifier service.Notifier
	if n := service.NewNotifyService(
		service.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		cfg.AlertEmail,
	); n != nil {
		notifier = n
		opts = append(opts, service.WithNotifier(n))
		util.Logger.Info("已启用邮件通知", zap.String("to", cfg.AlertEmail))
	}

	ledgerService := service.NewLedgerService(ledgerRepo, transferer, opts...)
	statsService := service.NewStatsService(ledgerService)
	expiryService := service.NewExpiryService(ledgerService, notifier)
	snapshotService := service.NewSnapshotService(ledgerService, snapshotStore)

	campaignHandler := campaign.NewCampaignHandler(ledgerService, statsService)
	analytics := errors.NewErrorAnalytics()
	adminHandler := admin.NewAdminHandler(analytics, snapshotService, book)

	// 启动定时任务检查过期活动
	go runTicker(rootCtx, cfg.ExpiryCheckInterval, "检查过期活动", func(ctx context.Context) error {
		_, err := expiryService.CheckExpiredCampaigns(ctx)
		return err
	})
	// 定期导出账本快照
	go runTicker(rootCtx, cfg.SnapshotInterval, "导出账本快照", func(ctx context.Context) error {
		_, err := snapshotService.Export(ctx)
		return err
	})

	// 设置 Gin 路由
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ErrorMonitorMiddleware(analytics))
	r.Use(middleware.RecoveryMiddleware())

	// 配置 CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.FrontendURL}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Length",
		"Content-Type",
		"Authorization",
		middleware.RequestIDHeader,
	}
	corsConfig.ExposeHeaders = []string{
		"Content-Length",
		"Content-Type",
		middleware.RequestIDHeader,
	}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) {
		if db != nil {
			if err := db.PingContext(c.Request.Context()); err != nil {
				errors.HandleError(c, errors.Wrap(errors.ErrDatabase, "数据库不可用", err))
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// 定义 API 路由
	api := r.Group("/api")
	{
		authorized := api.Group("/")
		authorized.Use(middleware.AuthMiddleware(cfg.JWTSecret))
		campaignHandler.RegisterRoutes(api, authorized)

		// 管理员路由组
		adminRoutes := api.Group("/admin")
		adminRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret), middleware.AdminMiddleware(admins))
		adminHandler.RegisterRoutes(adminRoutes)
	}

	if cfg.Debug {
		util.Logger.Info("已注册的路由列表：")
		for _, route := range r.Routes() {
			util.Logger.Info("路由",
				zap.String("method", route.Method),
				zap.String("path", route.Path),
				zap.String("handler", route.Handler))
		}
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 在一个新的 goroutine 中启动服务器
	go func() {
		util.Logger.Info("服务器正在启动", zap.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			util.Logger.Fatal("启动服务器失败", zap.Error(err))
		}
	}()

	// 等待中断信号以优雅地关闭服务器（设置 5 秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	util.Logger.Info("正在关闭服务器...")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		util.Logger.Error("服务器强制关闭", zap.Error(err))
	}

	util.Logger.Info("服务器已优雅关闭")
}

// openStore 按配置选择账本存储，内存存储时 db 为 nil
func openStore(ctx context.Context, cfg config.Config) (interfaces.LedgerRepository, interfaces.PayoutRepository, *sql.DB) {
	switch cfg.StoreDriver {
	case config.StoreMySQL:
		db, err := sqlrepo.OpenMySQL(ctx, sqlrepo.MySQLOptions{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
		})
		if err != nil {
			util.Logger.Fatal("连接数据库失败", zap.Error(err))
		}
		return sqlrepo.NewLedgerRepository(db), sqlrepo.NewPayoutRepository(db), db
	case config.StoreSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			util.Logger.Fatal("创建数据目录失败", zap.Error(err), zap.String("path", cfg.SQLitePath))
		}
		db, err := sqlrepo.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			util.Logger.Fatal("打开 SQLite 失败", zap.Error(err))
		}
		return sqlrepo.NewLedgerRepository(db), sqlrepo.NewPayoutRepository(db), db
	default:
		util.Logger.Warn("使用内存存储，进程退出后账本数据不保留")
		return memory.NewLedgerRepository(), memory.NewPayoutRepository(), nil
	}
}

func openStorage(ctx context.Context, cfg config.Config) storage.Storage {
	switch cfg.StorageBackend {
	case "s3":
		s, err := storage.NewS3Client(cfg.S3Region, cfg.S3Bucket)
		if err != nil {
			util.Logger.Fatal("初始化 S3 存储失败", zap.Error(err))
		}
		return s
	case "gcs":
		s, err := storage.NewGCSClient(ctx, cfg.GCSBucketName, cfg.GCSCredentialsFile)
		if err != nil {
			util.Logger.Fatal("初始化 GCS 存储失败", zap.Error(err))
		}
		return s
	default:
		s, err := storage.NewLocalStorage(cfg.LocalStoragePath)
		if err != nil {
			util.Logger.Fatal("初始化本地存储失败", zap.Error(err))
		}
		return s
	}
}

// runTicker 周期执行后台任务直到 ctx 取消，interval 非正时不启动
func runTicker(ctx context.Context, interval time.Duration, name string, task func(context.Context) error) {
	if interval <= 0 {
		util.Logger.Info("定时任务已禁用", zap.String("task", name))
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			util.Logger.Debug("开始"+name, zap.String("task", name))
			if err := task(ctx); err != nil {
				util.Logger.Error(name+"失败", zap.Error(err))
			}
		}
	}
}
