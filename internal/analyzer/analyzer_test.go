package analyzer

import (
	"context"
	"math"
	"testing"
	"time"

	"groundwater-analytics/internal/cache"
	"groundwater-analytics/internal/config"
	"groundwater-analytics/internal/models"
	"groundwater-analytics/internal/timeseries"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testAnalyticsConfig() config.AnalyticsConfig {
	return config.AnalyticsConfig{
		PatternMinPoints:    24,
		DailyMinHours:       12,
		DailyVarianceRatio:  0.10,
		WeeklyMinDays:       4,
		WeeklyVarianceRatio: 0.05,
		QueryTimeout:        5 * time.Second,
		BatchLookback:       7 * 24 * time.Hour,
	}
}

func setupAnalyzer(t *testing.T) (*Analyzer, *timeseries.MemoryStore, *cache.CacheManager) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	store := timeseries.NewMemoryStore()
	logger := zap.NewNop()
	cacheManager := cache.NewCacheManager(redisClient, logger)

	return NewAnalyzer(store, cacheManager, testAnalyticsConfig(), logger), store, cacheManager
}

func writeSeries(t *testing.T, store *timeseries.MemoryStore, base time.Time, values []float64) {
	t.Helper()
	for i, v := range values {
		err := store.WritePoint(context.Background(), timeseries.Point{
			Measurement: timeseries.MeasurementSensorData,
			Tags:        map[string]string{"station_id": "ST001", "sensor_id": "well_1"},
			Fields:      map[string]interface{}{"value": v},
			Time:        base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}
}

func TestAnalyzeTrend_LinearIncrease(t *testing.T) {
	analyzer, store, _ := setupAnalyzer(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	values := make([]float64, 48)
	for i := range values {
		values[i] = 10.0 + 0.01*float64(i)
	}
	writeSeries(t, store, base, values)

	snapshot, err := analyzer.AnalyzeTrend(context.Background(), "ST001", "well_1", base, base.Add(48*time.Hour))

	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.InDelta(t, 0.01, snapshot.Slope, 1e-9)
	assert.InDelta(t, 1.0, snapshot.Correlation, 1e-9)
	assert.InDelta(t, 0.01, snapshot.RateOfChangePerHour, 1e-9)
	assert.Equal(t, models.TrendIncreasing, snapshot.Direction)

	// 追加写入 trend_data
	var trendPoints int
	for _, p := range store.Points() {
		if p.Measurement == timeseries.MeasurementTrendData {
			trendPoints++
			assert.InDelta(t, 0.01, p.Fields["slope"].(float64), 1e-9)
		}
	}
	assert.Equal(t, 1, trendPoints)
}

func TestAnalyzeTrend_Decreasing(t *testing.T) {
	analyzer, store, _ := setupAnalyzer(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	values := []float64{12.0, 11.5, 11.0, 10.5, 10.0}
	writeSeries(t, store, base, values)

	snapshot, err := analyzer.AnalyzeTrend(context.Background(), "ST001", "well_1", base, base.Add(5*time.Hour))

	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, models.TrendDecreasing, snapshot.Direction)
	assert.InDelta(t, -0.5, snapshot.RateOfChangePerHour, 1e-9)
}

func TestAnalyzeTrend_InsufficientData(t *testing.T) {
	analyzer, store, _ := setupAnalyzer(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writeSeries(t, store, base, []float64{10.0})

	snapshot, err := analyzer.AnalyzeTrend(context.Background(), "ST001", "well_1", base, base.Add(time.Hour))

	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestDetectPatterns_DailyCycle(t *testing.T) {
	analyzer, store, _ := setupAnalyzer(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// 7 天逐小时正弦日循环
	values := make([]float64, 7*24)
	for i := range values {
		hour := float64(i % 24)
		values[i] = 10.0 + math.Sin(2*math.Pi*hour/24)
	}
	writeSeries(t, store, base, values)

	patterns, err := analyzer.DetectPatterns(context.Background(), "ST001", "well_1", base, base.Add(7*24*time.Hour))

	require.NoError(t, err)
	require.NotEmpty(t, patterns)
	assert.Equal(t, models.PatternDaily, patterns[0].PatternType)
	assert.Len(t, patterns[0].Averages, 24)
	assert.Greater(t, patterns[0].Confidence, 0.5)
	assert.LessOrEqual(t, patterns[0].Confidence, 1.0)
}

func TestDetectPatterns_FlatSeriesNoPattern(t *testing.T) {
	analyzer, store, _ := setupAnalyzer(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	values := make([]float64, 48)
	for i := range values {
		values[i] = 10.0
	}
	writeSeries(t, store, base, values)

	patterns, err := analyzer.DetectPatterns(context.Background(), "ST001", "well_1", base, base.Add(48*time.Hour))

	require.NoError(t, err)
	assert.Empty(t, patterns)
}

func TestDetectPatterns_TooFewPoints(t *testing.T) {
	analyzer, store, _ := setupAnalyzer(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writeSeries(t, store, base, make([]float64, 10))

	patterns, err := analyzer.DetectPatterns(context.Background(), "ST001", "well_1", base, base.Add(10*time.Hour))

	require.NoError(t, err)
	assert.Empty(t, patterns)
}

func TestAssessHealth(t *testing.T) {
	analyzer, store, cacheManager := setupAnalyzer(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	writeSeries(t, store, base, []float64{10.0, 10.5, 11.0, 10.2})

	snapshot, err := analyzer.AssessHealth(context.Background(), "ST001", "well_1", base, base.Add(4*time.Hour))

	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.InDelta(t, 4.0/24.0, snapshot.DataAvailability, 1e-9)
	assert.InDelta(t, 1.0, snapshot.ValueRange, 1e-9)
	assert.Equal(t, base.Add(3*time.Hour).Format(time.RFC3339), snapshot.LastUpdate)

	// 写入缓存
	cached, err := cacheManager.GetHealthSnapshot(context.Background(), "ST001", "well_1")
	require.NoError(t, err)
	assert.Equal(t, "1", cached["value_range"])
}

func TestAssessHealth_NoData(t *testing.T) {
	analyzer, _, _ := setupAnalyzer(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	snapshot, err := analyzer.AssessHealth(context.Background(), "ST001", "well_1", base, base.Add(time.Hour))

	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestDownsampleReadings_TenMinuteMeans(t *testing.T) {
	analyzer, store, _ := setupAnalyzer(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// 逐分钟读数，跨两个 10 分钟窗口
	for i := 0; i < 15; i++ {
		err := store.WritePoint(context.Background(), timeseries.Point{
			Measurement: timeseries.MeasurementSensorData,
			Tags:        map[string]string{"station_id": "ST001", "sensor_id": "well_1"},
			Fields:      map[string]interface{}{"value": float64(i)},
			Time:        base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	written, err := analyzer.DownsampleReadings(context.Background(), "ST001", "well_1", base, base.Add(time.Hour))

	require.NoError(t, err)
	assert.Equal(t, 2, written)

	var downsampled []timeseries.Point
	for _, p := range store.Points() {
		if p.Measurement == timeseries.MeasurementSensorDownsampled {
			downsampled = append(downsampled, p)
		}
	}
	require.Len(t, downsampled, 2)

	// 窗口 00:00-00:10 含 0..9，窗口 00:10-00:20 含 10..14
	assert.Equal(t, base, downsampled[0].Time)
	assert.Equal(t, 4.5, downsampled[0].Fields["value"])
	assert.Equal(t, base.Add(10*time.Minute), downsampled[1].Time)
	assert.Equal(t, 12.0, downsampled[1].Fields["value"])
	assert.Equal(t, "10m", downsampled[0].Tags["interval"])
}

func TestDownsampleReadings_NoData(t *testing.T) {
	analyzer, store, _ := setupAnalyzer(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	written, err := analyzer.DownsampleReadings(context.Background(), "ST001", "well_1", base, base.Add(time.Hour))

	require.NoError(t, err)
	assert.Equal(t, 0, written)
	assert.Empty(t, store.Points())
}

func TestRunBatch_CoversActiveSensors(t *testing.T) {
	analyzer, store, cacheManager := setupAnalyzer(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-48 * time.Hour)
	writeSeries(t, store, base, []float64{10.0, 10.1, 10.2, 10.3})
	require.NoError(t, cacheManager.RegisterActiveSensor(ctx, "ST001", "well_1"))

	err := analyzer.RunBatch(ctx)
	require.NoError(t, err)

	// 趋势写入完成
	var trendPoints int
	for _, p := range store.Points() {
		if p.Measurement == timeseries.MeasurementTrendData {
			trendPoints++
		}
	}
	assert.Equal(t, 1, trendPoints)

	// 健康快照写入缓存
	_, err = cacheManager.GetHealthSnapshot(ctx, "ST001", "well_1")
	assert.NoError(t, err)
}
