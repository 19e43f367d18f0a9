package analyzer

import (
	"context"
	"fmt"
	"time"

	"groundwater-analytics/internal/models"
	"groundwater-analytics/internal/timeseries"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// AnalyzeTrend 对窗口内的读数做线性趋势拟合
// 斜率按样本序号拟合（等距近似），变化率按首尾实际时间差折算每小时。
// 点数不足 2 时返回 nil, nil。
func (a *Analyzer) AnalyzeTrend(ctx context.Context, stationID, sensorID string, start, stop time.Time) (*models.TrendSnapshot, error) {
	queryCtx, cancel := context.WithTimeout(ctx, a.cfg.QueryTimeout)
	defer cancel()

	samples, err := a.store.QueryValues(queryCtx, timeseries.MeasurementSensorData, stationID, sensorID, "value", start, stop)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	if len(samples) < 2 {
		return nil, nil
	}

	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = float64(i)
		ys[i] = s.Value
	}

	_, slope := stat.LinearRegression(xs, ys, nil, false)
	correlation := stat.Correlation(xs, ys, nil)

	// 变化率：首尾差值除以实际小时跨度，跨度为零则取 0
	var ratePerHour float64
	hours := samples[len(samples)-1].Timestamp.Sub(samples[0].Timestamp).Hours()
	if hours > 0 {
		ratePerHour = (ys[len(ys)-1] - ys[0]) / hours
	}

	direction := models.TrendStable
	switch {
	case slope > 0:
		direction = models.TrendIncreasing
	case slope < 0:
		direction = models.TrendDecreasing
	}

	snapshot := &models.TrendSnapshot{
		StationID:           stationID,
		SensorID:            sensorID,
		Slope:               slope,
		Correlation:         correlation,
		RateOfChangePerHour: ratePerHour,
		Direction:           direction,
		ComputedAt:          time.Now().UTC(),
	}

	point := timeseries.Point{
		Measurement: timeseries.MeasurementTrendData,
		Tags: map[string]string{
			"station_id": stationID,
			"sensor_id":  sensorID,
		},
		Fields: map[string]interface{}{
			"slope":                   snapshot.Slope,
			"correlation":             snapshot.Correlation,
			"rate_of_change_per_hour": snapshot.RateOfChangePerHour,
		},
		Time: snapshot.ComputedAt,
	}
	if err := a.store.WritePoint(ctx, point); err != nil {
		a.logger.Error("Failed to store trend data",
			zap.String("station_id", stationID),
			zap.String("sensor_id", sensorID),
			zap.Error(err),
		)
	}

	return snapshot, nil
}
