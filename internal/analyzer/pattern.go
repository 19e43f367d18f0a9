package analyzer

import (
	"context"
	"fmt"
	"math"
	"time"

	"groundwater-analytics/internal/models"
	"groundwater-analytics/internal/timeseries"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// DetectPatterns 检测窗口内的日/周周期模式
// 判定标准：分组均值的方差超过总方差的给定比例（日 10%，周 5%），
// 且分组覆盖足够（日模式至少 12 个小时段，周模式至少 4 个星期日）。
// 总点数不足 PatternMinPoints 时返回空。
func (a *Analyzer) DetectPatterns(ctx context.Context, stationID, sensorID string, start, stop time.Time) ([]*models.PatternRecord, error) {
	queryCtx, cancel := context.WithTimeout(ctx, a.cfg.QueryTimeout)
	defer cancel()

	samples, err := a.store.QueryValues(queryCtx, timeseries.MeasurementSensorData, stationID, sensorID, "value", start, stop)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	if len(samples) < a.cfg.PatternMinPoints {
		return nil, nil
	}

	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Value
	}
	totalVariance := stat.PopVariance(values, nil)

	var patterns []*models.PatternRecord

	daily := detectGroupedPattern(samples, totalVariance, models.PatternDaily, a.cfg.DailyMinHours, a.cfg.DailyVarianceRatio, func(t time.Time) int {
		return t.Hour()
	})
	if daily != nil {
		patterns = append(patterns, daily)
	}

	weekly := detectGroupedPattern(samples, totalVariance, models.PatternWeekly, a.cfg.WeeklyMinDays, a.cfg.WeeklyVarianceRatio, func(t time.Time) int {
		// 周一为 0，与分析约定一致
		return (int(t.Weekday()) + 6) % 7
	})
	if weekly != nil {
		patterns = append(patterns, weekly)
	}

	computedAt := time.Now().UTC()
	for _, p := range patterns {
		p.StationID = stationID
		p.SensorID = sensorID
		p.ComputedAt = computedAt

		point := timeseries.Point{
			Measurement: timeseries.MeasurementPatternData,
			Tags: map[string]string{
				"station_id":   stationID,
				"sensor_id":    sensorID,
				"pattern_type": p.PatternType,
			},
			Fields: map[string]interface{}{
				"variance":   p.Variance,
				"confidence": p.Confidence,
			},
			Time: computedAt,
		}
		if err := a.store.WritePoint(ctx, point); err != nil {
			a.logger.Error("Failed to store pattern data",
				zap.String("station_id", stationID),
				zap.String("sensor_id", sensorID),
				zap.String("pattern_type", p.PatternType),
				zap.Error(err),
			)
		}
	}

	return patterns, nil
}

// detectGroupedPattern 按分组键聚合并比较组间方差和总方差
func detectGroupedPattern(samples []timeseries.Sample, totalVariance float64, patternType string, minGroups int, varianceRatio float64, groupKey func(time.Time) int) *models.PatternRecord {
	groups := make(map[int][]float64)
	for _, s := range samples {
		key := groupKey(s.Timestamp)
		groups[key] = append(groups[key], s.Value)
	}
	if len(groups) < minGroups {
		return nil
	}

	averages := make(map[int]float64, len(groups))
	means := make([]float64, 0, len(groups))
	for key, vals := range groups {
		mean := stat.Mean(vals, nil)
		averages[key] = mean
		means = append(means, mean)
	}

	groupVariance := stat.PopVariance(means, nil)
	if groupVariance <= totalVariance*varianceRatio {
		return nil
	}

	return &models.PatternRecord{
		PatternType: patternType,
		Averages:    averages,
		Variance:    groupVariance,
		Confidence:  math.Min(1.0, groupVariance/totalVariance),
	}
}
