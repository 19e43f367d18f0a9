package alert

import (
	"context"
	"encoding/json"
	"testing"

	"groundwater-analytics/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublisher_PublishAlert(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	publisher := NewPublisher(redisClient, "alerts:stream", zap.NewNop())

	event := &models.AlertEvent{
		StationID: "ST001",
		AlertType: "sensor_anomaly",
		Severity:  models.SeverityHigh,
		Title:     "Sensor Anomaly Detected - well_1",
		Message:   "Statistical anomaly detected in sensor well_1. Z-score: 6.20",
		Metadata:  map[string]interface{}{"sensor_id": "well_1"},
	}

	err := publisher.PublishAlert(context.Background(), event)
	require.NoError(t, err)

	msgs, err := redisClient.XRange(context.Background(), "alerts:stream", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	raw, ok := msgs[0].Values["data"].(string)
	require.True(t, ok)

	var decoded models.AlertEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, "ST001", decoded.StationID)
	assert.Equal(t, "sensor_anomaly", decoded.AlertType)
	assert.Equal(t, models.SeverityHigh, decoded.Severity)
}
