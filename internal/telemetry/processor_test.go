package telemetry

import (
	"context"
	"testing"

	"groundwater-analytics/internal/cache"
	"groundwater-analytics/internal/timeseries"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testScoringStream = "sensor:scoring:stream"

func setupTestProcessor(t *testing.T) (*Processor, *timeseries.MemoryStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	store := timeseries.NewMemoryStore()
	logger := zap.NewNop()
	cacheManager := cache.NewCacheManager(redisClient, logger)

	processor := NewProcessor(store, cacheManager, redisClient, testScoringStream, logger)
	return processor, store, mr
}

func TestProcessor_HandleData_StoresAndCaches(t *testing.T) {
	processor, store, mr := setupTestProcessor(t)
	ctx := context.Background()

	payload := map[string]interface{}{
		"timestamp":   "2024-01-01T00:00:00Z",
		"value":       12.5,
		"unit":        "meters",
		"temperature": 18.2,
		"quality":     "good",
	}

	err := processor.HandleData(ctx, "ST001", "well_1", payload)
	require.NoError(t, err)

	// 写入时序库
	points := store.Points()
	require.Len(t, points, 1)
	assert.Equal(t, timeseries.MeasurementSensorData, points[0].Measurement)
	assert.Equal(t, "ST001", points[0].Tags["station_id"])
	assert.Equal(t, "well_1", points[0].Tags["sensor_id"])
	assert.Equal(t, "good", points[0].Tags["quality"])
	assert.Equal(t, 12.5, points[0].Fields["value"])
	assert.Equal(t, 18.2, points[0].Fields["temperature"])

	// 更新最新值缓存
	latest, err := processor.GetLatest(ctx, "ST001", "well_1")
	require.NoError(t, err)
	assert.Equal(t, "12.5", latest["value"])
	assert.Equal(t, "meters", latest["unit"])

	// 登记活跃传感器
	members, err := mr.Members("active:sensors")
	require.NoError(t, err)
	assert.Contains(t, members, "ST001:well_1")

	// 投递评分队列
	assert.True(t, mr.Exists(testScoringStream))
}

func TestProcessor_HandleData_InvalidPayloadDropped(t *testing.T) {
	processor, store, mr := setupTestProcessor(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		payload map[string]interface{}
	}{
		{
			name:    "missing timestamp",
			payload: map[string]interface{}{"value": 12.5, "unit": "meters"},
		},
		{
			name:    "missing value",
			payload: map[string]interface{}{"timestamp": "2024-01-01T00:00:00Z", "unit": "meters"},
		},
		{
			name:    "missing unit",
			payload: map[string]interface{}{"timestamp": "2024-01-01T00:00:00Z", "value": 12.5},
		},
		{
			name:    "malformed timestamp",
			payload: map[string]interface{}{"timestamp": "not-a-time", "value": 12.5, "unit": "meters"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// 丢弃但不向调用方抛错
			err := processor.HandleData(ctx, "ST001", "well_1", tt.payload)
			assert.NoError(t, err)
		})
	}

	assert.Empty(t, store.Points())
	assert.False(t, mr.Exists(testScoringStream))
}

func TestProcessor_HandleStatus_CachesOnly(t *testing.T) {
	processor, store, _ := setupTestProcessor(t)
	ctx := context.Background()

	payload := map[string]interface{}{
		"timestamp":        "2024-01-01T00:00:00Z",
		"battery_level":    87.0,
		"signal_strength":  -71.0,
		"firmware_version": "2.1.0",
		"status":           "ok",
	}

	err := processor.HandleStatus(ctx, "ST001", "well_1", payload)
	require.NoError(t, err)

	// 状态不写时序库
	assert.Empty(t, store.Points())

	status, err := processor.cacheManager.GetSensorStatus(ctx, "ST001", "well_1")
	require.NoError(t, err)
	assert.Equal(t, "87", status["battery_level"])
	assert.Equal(t, "ok", status["status"])
	assert.Equal(t, "2024-01-01T00:00:00Z", status["last_seen"])
}

func TestProcessor_GetStationLatest(t *testing.T) {
	processor, _, _ := setupTestProcessor(t)
	ctx := context.Background()

	for _, sensorID := range []string{"well_1", "well_2"} {
		err := processor.HandleData(ctx, "ST001", sensorID, map[string]interface{}{
			"timestamp": "2024-01-01T00:00:00Z",
			"value":     10.0,
			"unit":      "meters",
		})
		require.NoError(t, err)
	}

	results, err := processor.GetStationLatest(ctx, "ST001")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
