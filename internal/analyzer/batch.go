package analyzer

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunBatch 对全部活跃传感器跑一轮趋势/模式/健康分析和降采样
// 单个传感器失败不会中断整轮，只记录日志。
func (a *Analyzer) RunBatch(ctx context.Context) error {
	sensors, err := a.cacheManager.ActiveSensors(ctx)
	if err != nil {
		return err
	}

	stop := time.Now().UTC()
	start := stop.Add(-a.cfg.BatchLookback)

	for _, key := range sensors {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if _, err := a.AnalyzeTrend(ctx, key.StationID, key.SensorID, start, stop); err != nil {
			a.logger.Error("Trend analysis failed",
				zap.String("station_id", key.StationID),
				zap.String("sensor_id", key.SensorID),
				zap.Error(err),
			)
		}
		if _, err := a.DetectPatterns(ctx, key.StationID, key.SensorID, start, stop); err != nil {
			a.logger.Error("Pattern detection failed",
				zap.String("station_id", key.StationID),
				zap.String("sensor_id", key.SensorID),
				zap.Error(err),
			)
		}
		if _, err := a.AssessHealth(ctx, key.StationID, key.SensorID, start, stop); err != nil {
			a.logger.Error("Health assessment failed",
				zap.String("station_id", key.StationID),
				zap.String("sensor_id", key.SensorID),
				zap.Error(err),
			)
		}
		if _, err := a.DownsampleReadings(ctx, key.StationID, key.SensorID, start, stop); err != nil {
			a.logger.Error("Downsampling failed",
				zap.String("station_id", key.StationID),
				zap.String("sensor_id", key.SensorID),
				zap.Error(err),
			)
		}
	}

	a.logger.Info("Batch analysis completed",
		zap.Int("sensors", len(sensors)),
		zap.Time("window_start", start),
		zap.Time("window_stop", stop),
	)
	return nil
}
