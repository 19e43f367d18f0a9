package models

import "time"

// 干旱风险等级
const (
	RiskLevelCritical = "critical"
	RiskLevelHigh     = "high"
	RiskLevelMedium   = "medium"
	RiskLevelLow      = "low"
	RiskLevelUnknown  = "unknown"
)

// DaysToDroughtNone 无近期干旱风险的哨兵值
const DaysToDroughtNone = 999

// DroughtRiskAssessment 干旱风险评估快照（每次评估产出一条，不可变）
type DroughtRiskAssessment struct {
	ID                string    `json:"id"`
	StationID         string    `json:"station_id"`
	AssessmentDate    time.Time `json:"assessment_date"`
	RiskLevel         string    `json:"risk_level"`
	RiskScore         float64   `json:"risk_score"`
	DaysToDrought     int       `json:"days_to_drought"`
	CurrentLevelM     float64   `json:"current_level"`
	HistoricalAverage float64   `json:"historical_average"`
	Trend             string    `json:"trend"`
	TrendSlope        float64   `json:"trend_slope"`
}

// 补给估算方法/状态
const (
	RechargeMethodWaterBalance     = "water_balance"
	RechargeMethodInsufficientData = "insufficient_data"
)

// RechargeEstimate 地下水补给估算快照（不可变）
type RechargeEstimate struct {
	ID              string    `json:"id"`
	StationID       string    `json:"station_id"`
	Date            time.Time `json:"date"`
	RechargeMM      float64   `json:"recharge_mm"`
	Method          string    `json:"method"`
	RainfallMM      float64   `json:"rainfall_mm"`
	LevelChangeM    float64   `json:"level_change_m"`
	PeriodDays      int       `json:"period_days"`
	ConfidenceScore float64   `json:"confidence_score"`
}
