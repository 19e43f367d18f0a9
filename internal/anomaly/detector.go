// Package anomaly 水位读数异常检测
//
// 检测与接入路径解耦：接入侧把读数投递到评分队列，
// 本包的 worker 池消费队列并做 z-score 评分。
package anomaly

import (
	"context"
	"fmt"
	"math"
	"time"

	"groundwater-analytics/internal/config"
	"groundwater-analytics/internal/models"
	"groundwater-analytics/internal/timeseries"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// AnomalyStore 异常记录持久化接口
type AnomalyStore interface {
	InsertAnomaly(ctx context.Context, record *models.AnomalyRecord) error
}

// AlertSink 报警事件投递接口
type AlertSink interface {
	PublishAlert(ctx context.Context, event *models.AlertEvent) error
}

// Detector 基于 z-score 的统计离群检测器
type Detector struct {
	store     timeseries.Store
	anomalies AnomalyStore
	alerts    AlertSink
	cfg       config.AnalyticsConfig
	logger    *zap.Logger
}

// NewDetector 创建检测器
func NewDetector(store timeseries.Store, anomalies AnomalyStore, alerts AlertSink, cfg config.AnalyticsConfig, logger *zap.Logger) *Detector {
	return &Detector{
		store:     store,
		anomalies: anomalies,
		alerts:    alerts,
		cfg:       cfg,
		logger:    logger,
	}
}

// Detect 对一条读数做异常评分
// 历史窗口为读数时刻前 AnomalyWindowDays 天；
// 点数不足或方差为零时静默跳过（返回 nil, nil）。
// 超过阈值时落库异常记录并投递报警事件，返回记录。
func (d *Detector) Detect(ctx context.Context, stationID, sensorID string, timestamp time.Time, value float64) (*models.AnomalyRecord, error) {
	queryCtx, cancel := context.WithTimeout(ctx, d.cfg.QueryTimeout)
	defer cancel()

	start := timestamp.AddDate(0, 0, -d.cfg.AnomalyWindowDays)
	samples, err := d.store.QueryValues(queryCtx, timeseries.MeasurementSensorData, stationID, sensorID, "value", start, timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}

	if len(samples) < d.cfg.AnomalyMinPoints {
		return nil, nil
	}

	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Value
	}

	mean := stat.Mean(values, nil)
	std := stat.PopStdDev(values, nil)
	if std == 0 {
		return nil, nil
	}

	zScore := math.Abs(value-mean) / std
	if zScore <= d.cfg.AnomalyZThreshold {
		return nil, nil
	}

	severity := models.SeverityMedium
	if zScore > d.cfg.AnomalyHighSeverity {
		severity = models.SeverityHigh
	}

	record := &models.AnomalyRecord{
		StationID:     stationID,
		SensorID:      sensorID,
		Timestamp:     timestamp,
		AnomalyType:   "statistical_outlier",
		Severity:      severity,
		AnomalyScore:  zScore,
		ExpectedValue: mean,
		ActualValue:   value,
		Description:   fmt.Sprintf("Statistical anomaly detected: z-score=%.2f", zScore),
	}

	if err := d.anomalies.InsertAnomaly(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store anomaly: %w", err)
	}

	// 报警投递尽力而为，失败不影响记录落库
	event := &models.AlertEvent{
		StationID: stationID,
		AlertType: "sensor_anomaly",
		Severity:  severity,
		Title:     fmt.Sprintf("Sensor Anomaly Detected - %s", sensorID),
		Message:   fmt.Sprintf("Statistical anomaly detected in sensor %s. Z-score: %.2f", sensorID, zScore),
		Metadata: map[string]interface{}{
			"sensor_id":      sensorID,
			"anomaly_score":  zScore,
			"expected_value": mean,
			"actual_value":   value,
		},
	}
	if err := d.alerts.PublishAlert(ctx, event); err != nil {
		d.logger.Warn("Failed to publish anomaly alert",
			zap.String("station_id", stationID),
			zap.String("sensor_id", sensorID),
			zap.Error(err),
		)
	}

	d.logger.Info("Anomaly detected",
		zap.String("station_id", stationID),
		zap.String("sensor_id", sensorID),
		zap.Float64("z_score", zScore),
		zap.String("severity", severity),
	)
	return record, nil
}
