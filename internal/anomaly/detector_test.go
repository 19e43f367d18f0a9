package anomaly

import (
	"context"
	"testing"
	"time"

	"groundwater-analytics/internal/config"
	"groundwater-analytics/internal/models"
	"groundwater-analytics/internal/timeseries"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAnomalyStore struct {
	records []*models.AnomalyRecord
}

func (s *fakeAnomalyStore) InsertAnomaly(ctx context.Context, record *models.AnomalyRecord) error {
	s.records = append(s.records, record)
	return nil
}

type fakeAlertSink struct {
	events []*models.AlertEvent
}

func (s *fakeAlertSink) PublishAlert(ctx context.Context, event *models.AlertEvent) error {
	s.events = append(s.events, event)
	return nil
}

func testAnalyticsConfig() config.AnalyticsConfig {
	return config.AnalyticsConfig{
		AnomalyWindowDays:   30,
		AnomalyMinPoints:    10,
		AnomalyZThreshold:   3.0,
		AnomalyHighSeverity: 5.0,
		QueryTimeout:        5 * time.Second,
	}
}

// writeHistory 写入交替 10.0/10.2 的历史序列（均值 10.1，总体标准差 0.1）
func writeHistory(t *testing.T, store *timeseries.MemoryStore, n int, base time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		value := 10.0
		if i%2 == 1 {
			value = 10.2
		}
		err := store.WritePoint(context.Background(), timeseries.Point{
			Measurement: timeseries.MeasurementSensorData,
			Tags:        map[string]string{"station_id": "ST001", "sensor_id": "well_1"},
			Fields:      map[string]interface{}{"value": value},
			Time:        base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}
}

func setupDetector(t *testing.T) (*Detector, *timeseries.MemoryStore, *fakeAnomalyStore, *fakeAlertSink) {
	store := timeseries.NewMemoryStore()
	anomalies := &fakeAnomalyStore{}
	alerts := &fakeAlertSink{}
	detector := NewDetector(store, anomalies, alerts, testAnalyticsConfig(), zap.NewNop())
	return detector, store, anomalies, alerts
}

func TestDetector_NormalValueNoAnomaly(t *testing.T) {
	detector, store, anomalies, _ := setupDetector(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writeHistory(t, store, 30, base)

	record, err := detector.Detect(context.Background(), "ST001", "well_1", base.Add(31*time.Hour), 10.1)

	require.NoError(t, err)
	assert.Nil(t, record)
	assert.Empty(t, anomalies.records)
}

func TestDetector_OutlierFlaggedMedium(t *testing.T) {
	detector, store, anomalies, alerts := setupDetector(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writeHistory(t, store, 30, base)

	// z = |10.45 - 10.1| / 0.1 = 3.5
	record, err := detector.Detect(context.Background(), "ST001", "well_1", base.Add(31*time.Hour), 10.45)

	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, models.SeverityMedium, record.Severity)
	assert.Equal(t, "statistical_outlier", record.AnomalyType)
	assert.InDelta(t, 3.5, record.AnomalyScore, 1e-9)
	assert.InDelta(t, 10.1, record.ExpectedValue, 1e-9)
	assert.Equal(t, 10.45, record.ActualValue)

	require.Len(t, anomalies.records, 1)
	require.Len(t, alerts.events, 1)
	assert.Equal(t, "sensor_anomaly", alerts.events[0].AlertType)
	assert.Equal(t, models.SeverityMedium, alerts.events[0].Severity)
}

func TestDetector_ExtremeOutlierFlaggedHigh(t *testing.T) {
	detector, store, _, alerts := setupDetector(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writeHistory(t, store, 30, base)

	// z = |11.0 - 10.1| / 0.1 = 9.0 > 5.0
	record, err := detector.Detect(context.Background(), "ST001", "well_1", base.Add(31*time.Hour), 11.0)

	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, models.SeverityHigh, record.Severity)
	assert.Equal(t, models.SeverityHigh, alerts.events[0].Severity)
}

func TestDetector_InsufficientHistorySkipped(t *testing.T) {
	detector, store, anomalies, _ := setupDetector(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writeHistory(t, store, 9, base)

	record, err := detector.Detect(context.Background(), "ST001", "well_1", base.Add(10*time.Hour), 99.0)

	require.NoError(t, err)
	assert.Nil(t, record)
	assert.Empty(t, anomalies.records)
}

func TestDetector_ZeroVarianceSkipped(t *testing.T) {
	detector, store, anomalies, _ := setupDetector(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		err := store.WritePoint(context.Background(), timeseries.Point{
			Measurement: timeseries.MeasurementSensorData,
			Tags:        map[string]string{"station_id": "ST001", "sensor_id": "well_1"},
			Fields:      map[string]interface{}{"value": 10.0},
			Time:        base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	record, err := detector.Detect(context.Background(), "ST001", "well_1", base.Add(21*time.Hour), 99.0)

	require.NoError(t, err)
	assert.Nil(t, record)
	assert.Empty(t, anomalies.records)
}

func TestDetector_OldHistoryOutsideWindowIgnored(t *testing.T) {
	detector, store, anomalies, _ := setupDetector(t)
	// 全部历史落在 30 天窗口之外
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	writeHistory(t, store, 30, base)

	record, err := detector.Detect(context.Background(), "ST001", "well_1", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 99.0)

	require.NoError(t, err)
	assert.Nil(t, record)
	assert.Empty(t, anomalies.records)
}
