// Package risk 干旱风险评估与地下水补给估算
package risk

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

// 近期趋势取最后 7 个采样点拟合
const trendSampleCount = 7

// AssessmentStore 评估结果持久化接口
type AssessmentStore interface {
	InsertAssessment(ctx context.Context, a *models.DroughtRiskAssessment) error
}

// RechargeStore 补给估算持久化接口
type RechargeStore interface {
	InsertEstimate(ctx context.Context, e *models.RechargeEstimate) error
}

// Assessor 风险评估器
type Assessor struct {
	store       timeseries.Store
	assessments AssessmentStore
	recharges   RechargeStore
	cfg         config.AnalyticsConfig
	logger      *zap.Logger
}

// NewAssessor 创建风险评估器
func NewAssessor(store timeseries.Store, assessments AssessmentStore, recharges RechargeStore, cfg config.AnalyticsConfig, logger *zap.Logger) *Assessor {
	return &Assessor{
		store:       store,
		assessments: assessments,
		recharges:   recharges,
		cfg:         cfg,
		logger:      logger,
	}
}

// AssessDroughtRisk 评估某站点的干旱风险
//
// 风险分累加规则（0~1）：
//   - 当前水位低于均值一个标准差 +0.3，仅低于均值 +0.1
//   - 近期趋势斜率 < -0.01 +0.2，< -0.005 +0.1
//   - 当前水位在历史最低值 110% 以内 +0.3，120% 以内 +0.1
//
// 等级：>=0.7 critical，>=0.5 high，>=0.3 medium，否则 low。
// 窗口内无数据时返回 unknown 且不落库。
func (a *Assessor) AssessDroughtRisk(ctx context.Context, stationID, sensorID string) (*models.DroughtRiskAssessment, error) {
	queryCtx, cancel := context.WithTimeout(ctx, a.cfg.QueryTimeout)
	defer cancel()

	now := time.Now().UTC()
	start := now.AddDate(0, 0, -a.cfg.RiskWindowDays)
	samples, err := a.store.QueryValues(queryCtx, timeseries.MeasurementSensorData, stationID, sensorID, "value", start, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query water levels: %w", err)
	}
	if len(samples) == 0 {
		return &models.DroughtRiskAssessment{
			StationID:      stationID,
			AssessmentDate: now,
			RiskLevel:      models.RiskLevelUnknown,
			DaysToDrought:  models.DaysToDroughtNone,
		}, nil
	}

	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Value
	}

	current := values[len(values)-1]
	mean := stat.Mean(values, nil)
	std := stat.PopStdDev(values, nil)
	min := values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
	}

	trendSlope := recentTrendSlope(values)

	riskScore := 0.0
	switch {
	case current < mean-std:
		riskScore += 0.3
	case current < mean:
		riskScore += 0.1
	}
	switch {
	case trendSlope < -0.01:
		riskScore += 0.2
	case trendSlope < -0.005:
		riskScore += 0.1
	}
	switch {
	case current < min*1.1:
		riskScore += 0.3
	case current < min*1.2:
		riskScore += 0.1
	}

	riskLevel := models.RiskLevelLow
	switch {
	case riskScore >= 0.7:
		riskLevel = models.RiskLevelCritical
	case riskScore >= 0.5:
		riskLevel = models.RiskLevelHigh
	case riskScore >= 0.3:
		riskLevel = models.RiskLevelMedium
	}

	daysToDrought := models.DaysToDroughtNone
	if trendSlope < 0 {
		daysToDrought = int((current - min) / math.Abs(trendSlope) * 24)
	}

	trend := models.TrendStable
	switch {
	case trendSlope < 0:
		trend = models.TrendDecreasing
	case trendSlope > 0:
		trend = models.TrendIncreasing
	}

	assessment := &models.DroughtRiskAssessment{
		StationID:         stationID,
		AssessmentDate:    now,
		RiskLevel:         riskLevel,
		RiskScore:         riskScore,
		DaysToDrought:     daysToDrought,
		CurrentLevelM:     current,
		HistoricalAverage: mean,
		Trend:             trend,
		TrendSlope:        trendSlope,
	}

	if err := a.assessments.InsertAssessment(ctx, assessment); err != nil {
		return nil, fmt.Errorf("failed to store assessment: %w", err)
	}

	a.logger.Info("Drought risk assessed",
		zap.String("station_id", stationID),
		zap.String("risk_level", riskLevel),
		zap.Float64("risk_score", riskScore),
		zap.Int("days_to_drought", daysToDrought),
	)
	return assessment, nil
}

// recentTrendSlope 最后 7 个采样点的线性斜率（不足 8 个点时返回 0）
func recentTrendSlope(values []float64) float64 {
	if len(values) <= trendSampleCount {
		return 0
	}
	recent := values[len(values)-trendSampleCount:]
	xs := make([]float64, trendSampleCount)
	for i := range xs {
		xs[i] = float64(i)
	}
	_, slope := stat.LinearRegression(xs, recent, nil, false)
	return slope
}
