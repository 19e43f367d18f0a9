// Package cache 提供 Redis 缓存访问
//
// 缓存键约定（与快照语义一致，全部 last-write-wins）：
// - latest_data:{station_id}:{sensor_id}   最新读数，TTL 1 小时
// - sensor_status:{station_id}:{sensor_id} 传感器状态，TTL 24 小时
// - sensor_health:{station_id}:{sensor_id} 健康快照，TTL 24 小时
// - active:sensors                         活跃传感器集合（批处理调度用）
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"groundwater-analytics/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// TTL 约定
const (
	latestTTL = time.Hour
	statusTTL = 24 * time.Hour
	healthTTL = 24 * time.Hour
)

const activeSensorsKey = "active:sensors"

// SensorKey 传感器标识
type SensorKey struct {
	StationID string
	SensorID  string
}

// CacheManager 缓存管理器
type CacheManager struct {
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewCacheManager 创建缓存管理器
func NewCacheManager(redisClient *redis.Client, logger *zap.Logger) *CacheManager {
	return &CacheManager{
		redisClient: redisClient,
		logger:      logger,
	}
}

// SetLatestData 更新最新读数缓存（TTL 1 小时）
func (m *CacheManager) SetLatestData(ctx context.Context, reading *models.SensorReading) error {
	key := fmt.Sprintf("latest_data:%s:%s", reading.StationID, reading.SensorID)

	if err := m.redisClient.HSet(ctx, key, map[string]interface{}{
		"timestamp":   reading.Timestamp.Format(time.RFC3339),
		"value":       reading.Value,
		"unit":        reading.Unit,
		"received_at": reading.ReceivedAt.Format(time.RFC3339),
	}).Err(); err != nil {
		return fmt.Errorf("failed to cache latest data: %w", err)
	}

	return m.redisClient.Expire(ctx, key, latestTTL).Err()
}

// GetLatestData 获取最新读数缓存
func (m *CacheManager) GetLatestData(ctx context.Context, stationID, sensorID string) (map[string]string, error) {
	key := fmt.Sprintf("latest_data:%s:%s", stationID, sensorID)

	data, err := m.redisClient.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get latest data: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("latest data not found for %s/%s", stationID, sensorID)
	}

	return data, nil
}

// GetStationLatest 获取某站点所有传感器的最新读数
func (m *CacheManager) GetStationLatest(ctx context.Context, stationID string) (map[string]map[string]string, error) {
	pattern := fmt.Sprintf("latest_data:%s:*", stationID)

	keys, err := m.redisClient.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to scan latest data keys: %w", err)
	}

	results := make(map[string]map[string]string)
	for _, key := range keys {
		parts := strings.Split(key, ":")
		sensorID := parts[len(parts)-1]

		data, err := m.redisClient.HGetAll(ctx, key).Result()
		if err != nil {
			m.logger.Warn("Failed to read latest data key",
				zap.String("key", key),
				zap.Error(err),
			)
			continue
		}
		results[sensorID] = data
	}

	return results, nil
}

// SetSensorStatus 更新传感器状态缓存（TTL 24 小时，不写时序库）
func (m *CacheManager) SetSensorStatus(ctx context.Context, status *models.SensorStatus) error {
	key := fmt.Sprintf("sensor_status:%s:%s", status.StationID, status.SensorID)

	if err := m.redisClient.HSet(ctx, key, map[string]interface{}{
		"last_seen":        status.LastSeen,
		"battery_level":    status.BatteryLevel,
		"signal_strength":  status.SignalStrength,
		"firmware_version": status.FirmwareVersion,
		"status":           status.Status,
	}).Err(); err != nil {
		return fmt.Errorf("failed to cache sensor status: %w", err)
	}

	return m.redisClient.Expire(ctx, key, statusTTL).Err()
}

// GetSensorStatus 获取传感器状态缓存
func (m *CacheManager) GetSensorStatus(ctx context.Context, stationID, sensorID string) (map[string]string, error) {
	key := fmt.Sprintf("sensor_status:%s:%s", stationID, sensorID)

	data, err := m.redisClient.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get sensor status: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("sensor status not found for %s/%s", stationID, sensorID)
	}

	return data, nil
}

// SetHealthSnapshot 更新健康快照缓存（TTL 24 小时，批处理覆盖写）
func (m *CacheManager) SetHealthSnapshot(ctx context.Context, snapshot *models.HealthSnapshot) error {
	key := fmt.Sprintf("sensor_health:%s:%s", snapshot.StationID, snapshot.SensorID)

	if err := m.redisClient.HSet(ctx, key, map[string]interface{}{
		"data_availability": snapshot.DataAvailability,
		"value_range":       snapshot.ValueRange,
		"value_std":         snapshot.ValueStd,
		"last_update":       snapshot.LastUpdate,
		"updated_at":        snapshot.UpdatedAt.Format(time.RFC3339),
	}).Err(); err != nil {
		return fmt.Errorf("failed to cache health snapshot: %w", err)
	}

	return m.redisClient.Expire(ctx, key, healthTTL).Err()
}

// GetHealthSnapshot 获取健康快照缓存
func (m *CacheManager) GetHealthSnapshot(ctx context.Context, stationID, sensorID string) (map[string]string, error) {
	key := fmt.Sprintf("sensor_health:%s:%s", stationID, sensorID)

	data, err := m.redisClient.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get health snapshot: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("health snapshot not found for %s/%s", stationID, sensorID)
	}

	return data, nil
}

// RegisterActiveSensor 登记活跃传感器（批处理调度的数据来源）
func (m *CacheManager) RegisterActiveSensor(ctx context.Context, stationID, sensorID string) error {
	member := stationID + ":" + sensorID
	return m.redisClient.SAdd(ctx, activeSensorsKey, member).Err()
}

// ActiveSensors 返回所有活跃传感器
func (m *CacheManager) ActiveSensors(ctx context.Context) ([]SensorKey, error) {
	members, err := m.redisClient.SMembers(ctx, activeSensorsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list active sensors: %w", err)
	}

	var keys []SensorKey
	for _, member := range members {
		parts := strings.SplitN(member, ":", 2)
		if len(parts) != 2 {
			continue
		}
		keys = append(keys, SensorKey{StationID: parts[0], SensorID: parts[1]})
	}

	return keys, nil
}
