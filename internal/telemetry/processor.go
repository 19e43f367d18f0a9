// Package telemetry 遥测接入处理
//
// 读数经过校验后写入时序库并更新最新值缓存，
// 随后投递到内部评分队列做异常检测（解耦，不阻塞接入路径）。
// 交付语义为至多一次：校验失败或写入失败都记录日志后丢弃，不重试。
package telemetry

import (
	"context"
	"fmt"
	"time"

	"groundwater-analytics/internal/cache"
	commonredis "groundwater-analytics/internal/common/redis"
	"groundwater-analytics/internal/models"
	"groundwater-analytics/internal/timeseries"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ScoringRequest 投递到评分队列的消息
type ScoringRequest struct {
	StationID string    `json:"station_id"`
	SensorID  string    `json:"sensor_id"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Processor 遥测处理器
type Processor struct {
	store         timeseries.Store
	cacheManager  *cache.CacheManager
	redisClient   *redis.Client
	scoringStream string
	logger        *zap.Logger
}

// NewProcessor 创建遥测处理器
func NewProcessor(store timeseries.Store, cacheManager *cache.CacheManager, redisClient *redis.Client, scoringStream string, logger *zap.Logger) *Processor {
	return &Processor{
		store:         store,
		cacheManager:  cacheManager,
		redisClient:   redisClient,
		scoringStream: scoringStream,
		logger:        logger,
	}
}

// HandleData 处理一条数据读数
// 1. 校验 payload，失败则丢弃并记录
// 2. 补充 received_at 接收时间
// 3. 写入时序库（失败即丢弃，不重试）
// 4. 更新最新值缓存、登记活跃传感器
// 5. 投递评分队列（尽力而为）
func (p *Processor) HandleData(ctx context.Context, stationID, sensorID string, payload map[string]interface{}) error {
	// 1. 校验
	reading, err := models.ParseSensorPayload(stationID, sensorID, payload)
	if err != nil {
		p.logger.Warn("Discarding invalid sensor payload",
			zap.String("station_id", stationID),
			zap.String("sensor_id", sensorID),
			zap.Error(err),
		)
		return nil
	}

	// 2. 接收时间
	reading.ReceivedAt = time.Now().UTC()

	// 3. 写入时序库
	if err := p.store.WritePoint(ctx, buildSensorPoint(reading)); err != nil {
		p.logger.Error("Failed to store sensor reading, discarding",
			zap.String("station_id", stationID),
			zap.String("sensor_id", sensorID),
			zap.Time("timestamp", reading.Timestamp),
			zap.Error(err),
		)
		return nil
	}

	// 4. 缓存与活跃登记（尽力而为，失败不影响接入）
	if err := p.cacheManager.SetLatestData(ctx, reading); err != nil {
		p.logger.Warn("Failed to update latest data cache", zap.Error(err))
	}
	if err := p.cacheManager.RegisterActiveSensor(ctx, stationID, sensorID); err != nil {
		p.logger.Warn("Failed to register active sensor", zap.Error(err))
	}

	// 5. 投递评分队列
	req := ScoringRequest{
		StationID: reading.StationID,
		SensorID:  reading.SensorID,
		Timestamp: reading.Timestamp,
		Value:     reading.Value,
	}
	if _, err := commonredis.PublishJSONToStream(ctx, p.redisClient, p.scoringStream, req); err != nil {
		p.logger.Warn("Failed to enqueue scoring request",
			zap.String("station_id", stationID),
			zap.String("sensor_id", sensorID),
			zap.Error(err),
		)
	}

	p.logger.Debug("Sensor reading processed",
		zap.String("station_id", stationID),
		zap.String("sensor_id", sensorID),
		zap.Float64("value", reading.Value),
	)
	return nil
}

// HandleStatus 处理一条状态上报（只更新缓存，不写时序库）
func (p *Processor) HandleStatus(ctx context.Context, stationID, sensorID string, payload map[string]interface{}) error {
	status := &models.SensorStatus{
		StationID:       stationID,
		SensorID:        sensorID,
		BatteryLevel:    stringField(payload, "battery_level"),
		SignalStrength:  stringField(payload, "signal_strength"),
		FirmwareVersion: stringField(payload, "firmware_version"),
		Status:          stringField(payload, "status"),
		LastSeen:        stringField(payload, "timestamp"),
	}
	if status.LastSeen == "" {
		status.LastSeen = time.Now().UTC().Format(time.RFC3339)
	}

	if err := p.cacheManager.SetSensorStatus(ctx, status); err != nil {
		p.logger.Warn("Failed to cache sensor status",
			zap.String("station_id", stationID),
			zap.String("sensor_id", sensorID),
			zap.Error(err),
		)
	}
	return nil
}

// GetLatest 查询某传感器的最新读数
func (p *Processor) GetLatest(ctx context.Context, stationID, sensorID string) (map[string]string, error) {
	return p.cacheManager.GetLatestData(ctx, stationID, sensorID)
}

// GetStationLatest 查询某站点全部传感器的最新读数
func (p *Processor) GetStationLatest(ctx context.Context, stationID string) (map[string]map[string]string, error) {
	return p.cacheManager.GetStationLatest(ctx, stationID)
}

// buildSensorPoint 构造 sensor_data 数据点
func buildSensorPoint(r *models.SensorReading) timeseries.Point {
	tags := map[string]string{
		"station_id": r.StationID,
		"sensor_id":  r.SensorID,
	}
	for k, v := range r.ExtraTags {
		tags[k] = v
	}

	fields := map[string]interface{}{
		"value": r.Value,
	}
	for k, v := range r.ExtraFields {
		fields[k] = v
	}

	return timeseries.Point{
		Measurement: timeseries.MeasurementSensorData,
		Tags:        tags,
		Fields:      fields,
		Time:        r.Timestamp,
	}
}

func stringField(payload map[string]interface{}, key string) string {
	switch v := payload[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%v", v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
