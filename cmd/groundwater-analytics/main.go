package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"groundwater-analytics/internal/common/logger"
	"groundwater-analytics/internal/config"
	"groundwater-analytics/internal/service"

	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化Logger
	zapLogger, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "groundwater-analytics")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting groundwater-analytics service",
		zap.String("version", "1.0.0"),
		zap.String("data_topic", cfg.Ingest.Topics.Data),
		zap.String("events_stream", cfg.Ingest.Streams.Events),
		zap.String("scoring_stream", cfg.Ingest.Streams.Scoring),
	)

	// 创建服务
	analyticsService, err := service.NewAnalyticsService(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create analytics service", zap.Error(err))
	}

	// 启动服务
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := analyticsService.Start(ctx); err != nil {
		zapLogger.Fatal("Failed to start analytics service", zap.Error(err))
	}

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	zapLogger.Info("Received signal, shutting down", zap.String("signal", sig.String()))

	// 优雅关闭
	cancel()
	analyticsService.Stop()

	zapLogger.Info("Service stopped")
}
