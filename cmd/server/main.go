package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/visutech/vims/internal/api/handlers"
	"github.com/visutech/vims/internal/config"
	"github.com/visutech/vims/internal/license"
	"github.com/visutech/vims/internal/notify"
	"github.com/visutech/vims/internal/repository"
	"github.com/visutech/vims/internal/scheduler"
	"github.com/visutech/vims/internal/sentlog"
	"github.com/visutech/vims/internal/service"
	"github.com/visutech/vims/pkg/ws"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	logger.Info("Starting VIMS", zap.String("port", cfg.ServerPort))

	// 创建 context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 连接数据库
	db, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect database", zap.Error(err))
	}
	defer db.Close()

	// 执行数据库迁移
	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Info("Database migrated successfully")

	// 创建 Repository
	vehicleRepo := repository.NewVehicleRepository(db)
	inspectionRepo := repository.NewInspectionRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// 消息模板与三个发送渠道
	templates := notify.NewTemplates(settingRepo, logger)
	channels := []notify.Channel{
		notify.NewEmailSender(cfg, templates, logger),
		notify.NewSMSSender(templates, logger, cfg.SendTimeout),
		notify.NewWhatsAppSender(cfg, templates, logger),
	}

	// 许可门禁
	gate := license.NewGate(settingRepo, logger)

	// 批量发送去重（可选）
	var sent service.SentLog
	if cfg.ReminderDedupe {
		log := sentlog.New(cfg.RedisAddr, cfg.RedisPassword, logger)
		defer log.Close()
		sent = log
		logger.Info("Reminder dedupe enabled", zap.String("redis", cfg.RedisAddr))
	}

	// 创建 WebSocket Hub
	wsHub := ws.NewHub(logger)
	go wsHub.Run()

	// 业务服务
	reminderService := service.NewReminderService(
		logger,
		vehicleRepo,
		inspectionRepo,
		notificationRepo,
		channels,
		sent,
		wsHub,
	)
	inspectionService := service.NewInspectionService(
		logger,
		vehicleRepo,
		inspectionRepo,
		notificationRepo,
		channels,
	)

	// 新连接先看到当前待提醒列表
	wsHub.SetInitDataProvider(func() interface{} {
		initCtx, initCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer initCancel()
		pending, err := reminderService.PendingReminders(initCtx)
		if err != nil {
			logger.Warn("Failed to load init data for websocket", zap.Error(err))
			return nil
		}
		return pending
	})

	// 每日定时提醒任务
	reminderJob, err := scheduler.New(cfg.ReminderCron, cfg.ReminderTimezone, logger, reminderService)
	if err != nil {
		logger.Fatal("Failed to create reminder scheduler", zap.Error(err))
	}
	if err := reminderJob.Start(); err != nil {
		logger.Fatal("Failed to start reminder scheduler", zap.Error(err))
	}

	// 创建 HTTP 处理器
	handler := handlers.NewHandler(
		logger,
		vehicleRepo,
		inspectionRepo,
		settingRepo,
		inspectionService,
		reminderService,
		gate,
		wsHub,
	)

	// 设置 Gin 模式
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// 注册路由
	handler.RegisterRoutes(router)

	// 启动 HTTP 服务器
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", server.Addr))

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// 停止定时任务
	reminderJob.Stop()

	// 优雅关闭
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// initLogger 初始化日志
func initLogger(debug bool) *zap.Logger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	logger, _ := config.Build()
	return logger
}

// corsMiddleware CORS 中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
