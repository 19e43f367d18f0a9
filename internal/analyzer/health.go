package analyzer

import (
	"context"
	"fmt"
	"time"

	"groundwater-analytics/internal/models"
	"groundwater-analytics/internal/timeseries"

	"gonum.org/v1/gonum/stat"
)

// 按每天 24 条读数估算可用性
const expectedReadingsPerDay = 24

// AssessHealth 计算传感器健康快照并写入缓存（覆盖写，TTL 24 小时）
// 窗口内没有读数时返回 nil, nil。
func (a *Analyzer) AssessHealth(ctx context.Context, stationID, sensorID string, start, stop time.Time) (*models.HealthSnapshot, error) {
	queryCtx, cancel := context.WithTimeout(ctx, a.cfg.QueryTimeout)
	defer cancel()

	samples, err := a.store.QueryValues(queryCtx, timeseries.MeasurementSensorData, stationID, sensorID, "value", start, stop)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	if len(samples) == 0 {
		return nil, nil
	}

	values := make([]float64, len(samples))
	min, max := samples[0].Value, samples[0].Value
	for i, s := range samples {
		values[i] = s.Value
		if s.Value < min {
			min = s.Value
		}
		if s.Value > max {
			max = s.Value
		}
	}

	var valueStd float64
	if len(values) > 1 {
		valueStd = stat.PopStdDev(values, nil)
	}

	snapshot := &models.HealthSnapshot{
		StationID:        stationID,
		SensorID:         sensorID,
		DataAvailability: float64(len(samples)) / expectedReadingsPerDay,
		ValueRange:       max - min,
		ValueStd:         valueStd,
		LastUpdate:       samples[len(samples)-1].Timestamp.Format(time.RFC3339),
		UpdatedAt:        time.Now().UTC(),
	}

	if err := a.cacheManager.SetHealthSnapshot(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to cache health snapshot: %w", err)
	}
	return snapshot, nil
}
