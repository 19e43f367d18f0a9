package analyzer

import (
	"context"
	"fmt"
	"time"

	"groundwater-analytics/internal/timeseries"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// 降采样目标粒度
const downsampleInterval = 10 * time.Minute

// DownsampleReadings 把窗口内的原始读数聚合为 10 分钟均值
// 写入 sensor_data_downsampled 测点（interval 标签标注粒度），
// 时间戳取所在窗口的起点。无数据时静默返回。
func (a *Analyzer) DownsampleReadings(ctx context.Context, stationID, sensorID string, start, stop time.Time) (int, error) {
	queryCtx, cancel := context.WithTimeout(ctx, a.cfg.QueryTimeout)
	defer cancel()

	samples, err := a.store.QueryValues(queryCtx, timeseries.MeasurementSensorData, stationID, sensorID, "value", start, stop)
	if err != nil {
		return 0, fmt.Errorf("failed to query readings: %w", err)
	}
	if len(samples) == 0 {
		return 0, nil
	}

	written := 0
	bucket := samples[0].Timestamp.Truncate(downsampleInterval)
	var values []float64
	flush := func() {
		if len(values) == 0 {
			return
		}
		point := timeseries.Point{
			Measurement: timeseries.MeasurementSensorDownsampled,
			Tags: map[string]string{
				"station_id": stationID,
				"sensor_id":  sensorID,
				"interval":   "10m",
			},
			Fields: map[string]interface{}{"value": stat.Mean(values, nil)},
			Time:   bucket,
		}
		if err := a.store.WritePoint(ctx, point); err != nil {
			a.logger.Error("Failed to store downsampled point",
				zap.String("station_id", stationID),
				zap.String("sensor_id", sensorID),
				zap.Time("bucket", bucket),
				zap.Error(err),
			)
			return
		}
		written++
	}

	// 采样按时间升序，逐窗口累积
	for _, s := range samples {
		b := s.Timestamp.Truncate(downsampleInterval)
		if !b.Equal(bucket) {
			flush()
			bucket = b
			values = values[:0]
		}
		values = append(values, s.Value)
	}
	flush()

	return written, nil
}
