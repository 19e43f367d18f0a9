package risk

import (
	"context"
	"fmt"
	"time"

	"groundwater-analytics/internal/models"
	"groundwater-analytics/internal/timeseries"

	"go.uber.org/zap"
)

// 水量平衡法的固定置信度
const rechargeConfidence = 0.7

// 补给估算读取的水位传感器
const waterLevelSensorID = "water_level"

// EstimateRecharge 用水量平衡法估算某站点 days 天内的地下水补给量
// recharge_mm = max(0, 水位变化 m × 1000) + 累计降雨 mm
// 水位点数不足时返回 insufficient_data 且不落库。
func (a *Assessor) EstimateRecharge(ctx context.Context, stationID string, days int) (*models.RechargeEstimate, error) {
	queryCtx, cancel := context.WithTimeout(ctx, a.cfg.QueryTimeout)
	defer cancel()

	now := time.Now().UTC()
	start := now.AddDate(0, 0, -days)

	samples, err := a.store.QueryValues(queryCtx, timeseries.MeasurementSensorData, stationID, waterLevelSensorID, "value", start, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query water levels: %w", err)
	}
	if len(samples) < a.cfg.RechargeMinPoints {
		return &models.RechargeEstimate{
			StationID:  stationID,
			Date:       now,
			Method:     models.RechargeMethodInsufficientData,
			PeriodDays: days,
		}, nil
	}

	levelChange := samples[len(samples)-1].Value - samples[0].Value

	weather, err := a.store.QueryStationFields(queryCtx, timeseries.MeasurementWeatherData, stationID, start, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query rainfall: %w", err)
	}
	var totalRainfall float64
	for _, w := range weather {
		if w.Field == "rainfall_mm" {
			totalRainfall += w.Value
		}
	}

	// 水位上升折算为 mm，下降不计入
	rechargeMM := totalRainfall
	if levelChange > 0 {
		rechargeMM += levelChange * 1000
	}

	estimate := &models.RechargeEstimate{
		StationID:       stationID,
		Date:            now,
		RechargeMM:      rechargeMM,
		Method:          models.RechargeMethodWaterBalance,
		RainfallMM:      totalRainfall,
		LevelChangeM:    levelChange,
		PeriodDays:      days,
		ConfidenceScore: rechargeConfidence,
	}

	if err := a.recharges.InsertEstimate(ctx, estimate); err != nil {
		return nil, fmt.Errorf("failed to store recharge estimate: %w", err)
	}

	a.logger.Info("Recharge estimated",
		zap.String("station_id", stationID),
		zap.Float64("recharge_mm", rechargeMM),
		zap.Float64("rainfall_mm", totalRainfall),
		zap.Int("period_days", days),
	)
	return estimate, nil
}
