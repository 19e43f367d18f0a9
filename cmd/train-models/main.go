// 为活跃传感器批量训练水位预测模型的命令行工具
//
// 用法：
//
//	train-models                       训练全部活跃传感器
//	train-models -station ST001 -sensor well_1   只训练指定传感器
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"groundwater-analytics/internal/cache"
	"groundwater-analytics/internal/common/database"
	"groundwater-analytics/internal/common/logger"
	commonredis "groundwater-analytics/internal/common/redis"
	"groundwater-analytics/internal/config"
	"groundwater-analytics/internal/forecast"
	"groundwater-analytics/internal/models"
	"groundwater-analytics/internal/repository"
	"groundwater-analytics/internal/timeseries"

	"go.uber.org/zap"
)

func main() {
	stationID := flag.String("station", "", "只训练指定站点")
	sensorID := flag.String("sensor", "", "只训练指定传感器（需同时指定 -station）")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.Log.Level, "console", "train-models")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()

	redisClient := commonredis.NewRedisClient(&cfg.Redis)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		zapLogger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	influxStore := timeseries.NewInfluxStore(&cfg.Influx, zapLogger)
	defer influxStore.Close()

	modelStore := forecast.NewModelStore(cfg.Analytics.ModelDir)
	registry, err := forecast.NewRegistry(modelStore, cfg.Analytics.RegistryCapacity, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create model registry", zap.Error(err))
	}
	forecastRepo := repository.NewForecastRepository(db, zapLogger)
	forecastService := forecast.NewService(influxStore, forecastRepo, modelStore, registry, cfg.Analytics, zapLogger)

	// 确定训练目标
	var targets []cache.SensorKey
	if *stationID != "" && *sensorID != "" {
		targets = []cache.SensorKey{{StationID: *stationID, SensorID: *sensorID}}
	} else {
		cacheManager := cache.NewCacheManager(redisClient, zapLogger)
		targets, err = cacheManager.ActiveSensors(ctx)
		if err != nil {
			zapLogger.Fatal("Failed to list active sensors", zap.Error(err))
		}
	}
	if len(targets) == 0 {
		zapLogger.Warn("No sensors to train")
		return
	}

	trained, failed := 0, 0
	for _, key := range targets {
		result := forecastService.Train(ctx, key.StationID, key.SensorID)
		switch result.Status {
		case models.TrainStatusSuccess:
			trained++
			zapLogger.Info("Model trained",
				zap.String("station_id", key.StationID),
				zap.String("sensor_id", key.SensorID),
				zap.Float64("mae", result.MAE),
				zap.Float64("rmse", result.RMSE),
				zap.Int("training_samples", result.TrainingSamples),
			)
		default:
			failed++
			zapLogger.Warn("Model not trained",
				zap.String("station_id", key.StationID),
				zap.String("sensor_id", key.SensorID),
				zap.String("status", result.Status),
				zap.String("message", result.Message),
			)
		}
	}

	zapLogger.Info("Training run finished",
		zap.Int("trained", trained),
		zap.Int("skipped", failed),
	)
	if trained == 0 && failed > 0 {
		os.Exit(1)
	}
}
