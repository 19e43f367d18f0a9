// Package service 组装地下水遥测分析服务
package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"groundwater-analytics/internal/alert"
	"groundwater-analytics/internal/analyzer"
	"groundwater-analytics/internal/anomaly"
	"groundwater-analytics/internal/cache"
	"groundwater-analytics/internal/common/database"
	"groundwater-analytics/internal/common/mqtt"
	commonredis "groundwater-analytics/internal/common/redis"
	"groundwater-analytics/internal/config"
	"groundwater-analytics/internal/consumer"
	"groundwater-analytics/internal/forecast"
	"groundwater-analytics/internal/models"
	"groundwater-analytics/internal/repository"
	"groundwater-analytics/internal/risk"
	"groundwater-analytics/internal/telemetry"
	"groundwater-analytics/internal/timeseries"
	"groundwater-analytics/internal/weather"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// 补给估算的默认回看天数
const rechargePeriodDays = 30

// AnalyticsService 遥测分析服务
// 持有全部基础设施连接和各业务组件，负责启动/停止
type AnalyticsService struct {
	cfg    *config.Config
	logger *zap.Logger

	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqtt.Client
	influxStore *timeseries.InfluxStore

	cacheManager *cache.CacheManager
	processor    *telemetry.Processor

	mqttConsumer   *consumer.MQTTConsumer
	streamConsumer *consumer.StreamConsumer
	workerPool     *anomaly.WorkerPool

	analyzer        *analyzer.Analyzer
	forecastService *forecast.Service
	assessor        *risk.Assessor
	weatherClient   *weather.Client
	anomalyRepo     *repository.AnomalyRepository

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAnalyticsService 创建服务并建立全部基础设施连接
func NewAnalyticsService(cfg *config.Config, logger *zap.Logger) (*AnalyticsService, error) {
	// 1. 基础设施连接
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	redisClient := commonredis.NewRedisClient(&cfg.Redis)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	mqttClient, err := mqtt.NewClient(&cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker: %w", err)
	}

	influxStore := timeseries.NewInfluxStore(&cfg.Influx, logger)

	// 2. 仓库与缓存
	anomalyRepo := repository.NewAnomalyRepository(db, logger)
	forecastRepo := repository.NewForecastRepository(db, logger)
	assessmentRepo := repository.NewAssessmentRepository(db, logger)
	rechargeRepo := repository.NewRechargeRepository(db, logger)
	cacheManager := cache.NewCacheManager(redisClient, logger)

	// 3. 业务组件
	alertPublisher := alert.NewPublisher(redisClient, cfg.Ingest.Streams.Alerts, logger)
	detector := anomaly.NewDetector(influxStore, anomalyRepo, alertPublisher, cfg.Analytics, logger)
	workerPool := anomaly.NewWorkerPool(redisClient, detector, cfg.Ingest.Streams.Scoring, cfg.Ingest.ScoringWorkers, cfg.Ingest.BatchSize, logger)

	processor := telemetry.NewProcessor(influxStore, cacheManager, redisClient, cfg.Ingest.Streams.Scoring, logger)
	mqttConsumer := consumer.NewMQTTConsumer(mqttClient, processor, cfg.Ingest.Topics.Data, cfg.Ingest.Topics.Status, cfg.MQTT.QoS, logger)
	streamConsumer := consumer.NewStreamConsumer(redisClient, processor, cfg.Ingest.Streams.Events, cfg.Ingest.ConsumerGroup, cfg.Ingest.ConsumerName, cfg.Ingest.BatchSize, logger)

	batchAnalyzer := analyzer.NewAnalyzer(influxStore, cacheManager, cfg.Analytics, logger)

	modelStore := forecast.NewModelStore(cfg.Analytics.ModelDir)
	registry, err := forecast.NewRegistry(modelStore, cfg.Analytics.RegistryCapacity, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create model registry: %w", err)
	}
	forecastService := forecast.NewService(influxStore, forecastRepo, modelStore, registry, cfg.Analytics, logger)

	assessor := risk.NewAssessor(influxStore, assessmentRepo, rechargeRepo, cfg.Analytics, logger)
	weatherClient := weather.NewClient(cfg.Weather.BaseURL, cfg.Weather.APIKey, influxStore, logger)

	return &AnalyticsService{
		cfg:             cfg,
		logger:          logger,
		db:              db,
		redisClient:     redisClient,
		mqttClient:      mqttClient,
		influxStore:     influxStore,
		cacheManager:    cacheManager,
		processor:       processor,
		mqttConsumer:    mqttConsumer,
		streamConsumer:  streamConsumer,
		workerPool:      workerPool,
		analyzer:        batchAnalyzer,
		forecastService: forecastService,
		assessor:        assessor,
		weatherClient:   weatherClient,
		anomalyRepo:     anomalyRepo,
	}, nil
}

// Start 启动全部消费者和定时任务
func (s *AnalyticsService) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	// 评分 worker 池
	if err := s.workerPool.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scoring workers: %w", err)
	}

	// MQTT 接入
	if err := s.mqttConsumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start mqtt consumer: %w", err)
	}

	// Redis Streams 接入
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.streamConsumer.Start(ctx); err != nil && err != context.Canceled {
			s.logger.Error("Stream consumer exited", zap.Error(err))
		}
	}()

	// 趋势/模式/健康批处理
	s.wg.Add(1)
	go s.runPeriodic(ctx, s.cfg.Analytics.BatchInterval, "batch analysis", func(ctx context.Context) {
		if err := s.analyzer.RunBatch(ctx); err != nil {
			s.logger.Error("Batch analysis failed", zap.Error(err))
		}
	})

	// 干旱风险评估 + 补给估算
	s.wg.Add(1)
	go s.runPeriodic(ctx, s.cfg.Analytics.AssessmentInterval, "risk assessment", s.runAssessments)

	s.logger.Info("Analytics service started")
	return nil
}

// Stop 停止服务并释放连接
func (s *AnalyticsService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.mqttConsumer.Stop()
	s.streamConsumer.Stop()
	s.workerPool.Stop()
	s.wg.Wait()

	s.mqttClient.Disconnect()
	s.influxStore.Close()
	if err := s.redisClient.Close(); err != nil {
		s.logger.Warn("Failed to close redis client", zap.Error(err))
	}
	if err := s.db.Close(); err != nil {
		s.logger.Warn("Failed to close database", zap.Error(err))
	}
	s.logger.Info("Analytics service stopped")
}

// runPeriodic 按固定间隔执行任务，直到 ctx 取消
func (s *AnalyticsService) runPeriodic(ctx context.Context, interval time.Duration, name string, task func(context.Context)) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.logger.Debug("Running periodic task", zap.String("task", name))
			task(ctx)
		}
	}
}

// runAssessments 对全部活跃站点评估干旱风险并估算补给
func (s *AnalyticsService) runAssessments(ctx context.Context) {
	sensors, err := s.cacheManager.ActiveSensors(ctx)
	if err != nil {
		s.logger.Error("Failed to list active sensors", zap.Error(err))
		return
	}

	stations := make(map[string]bool)
	for _, key := range sensors {
		if _, err := s.assessor.AssessDroughtRisk(ctx, key.StationID, key.SensorID); err != nil {
			s.logger.Error("Drought risk assessment failed",
				zap.String("station_id", key.StationID),
				zap.String("sensor_id", key.SensorID),
				zap.Error(err),
			)
		}
		stations[key.StationID] = true
	}

	// 补给估算按站点去重
	for stationID := range stations {
		if _, err := s.assessor.EstimateRecharge(ctx, stationID, rechargePeriodDays); err != nil {
			s.logger.Error("Recharge estimation failed",
				zap.String("station_id", stationID),
				zap.Error(err),
			)
		}
	}
}

// GetLatest 查询某传感器的最新读数
func (s *AnalyticsService) GetLatest(ctx context.Context, stationID, sensorID string) (map[string]string, error) {
	return s.processor.GetLatest(ctx, stationID, sensorID)
}

// GetStationLatest 查询某站点全部传感器的最新读数
func (s *AnalyticsService) GetStationLatest(ctx context.Context, stationID string) (map[string]map[string]string, error) {
	return s.processor.GetStationLatest(ctx, stationID)
}

// TrainModel 训练某传感器的水位预测模型
func (s *AnalyticsService) TrainModel(ctx context.Context, stationID, sensorID string) *models.TrainResult {
	return s.forecastService.Train(ctx, stationID, sensorID)
}

// PredictWaterLevel 预测未来水位
func (s *AnalyticsService) PredictWaterLevel(ctx context.Context, stationID, sensorID string, horizonHours int) ([]*models.ForecastPoint, error) {
	return s.forecastService.Predict(ctx, stationID, sensorID, horizonHours)
}

// AssessDroughtRisk 评估某站点的干旱风险
func (s *AnalyticsService) AssessDroughtRisk(ctx context.Context, stationID, sensorID string) (*models.DroughtRiskAssessment, error) {
	return s.assessor.AssessDroughtRisk(ctx, stationID, sensorID)
}

// EstimateRecharge 估算某站点的地下水补给
func (s *AnalyticsService) EstimateRecharge(ctx context.Context, stationID string, days int) (*models.RechargeEstimate, error) {
	return s.assessor.EstimateRecharge(ctx, stationID, days)
}

// ResolveAnomaly 标记异常已处理
func (s *AnalyticsService) ResolveAnomaly(ctx context.Context, id string) error {
	return s.anomalyRepo.ResolveAnomaly(ctx, id)
}

// FetchWeather 拉取并存储某站点的当前天气
func (s *AnalyticsService) FetchWeather(ctx context.Context, stationID string, lat, lon float64) error {
	return s.weatherClient.FetchAndStore(ctx, stationID, lat, lon)
}
