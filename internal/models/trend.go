package models

import "time"

// 趋势方向
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// TrendSnapshot 趋势分析快照（每次批处理产出一条，追加写入时序库）
type TrendSnapshot struct {
	StationID           string    `json:"station_id"`
	SensorID            string    `json:"sensor_id"`
	Slope               float64   `json:"slope"`
	Correlation         float64   `json:"correlation"`
	RateOfChangePerHour float64   `json:"rate_of_change_per_hour"`
	Direction           string    `json:"trend_direction"`
	ComputedAt          time.Time `json:"computed_at"`
}

// 模式类型
const (
	PatternDaily  = "daily"
	PatternWeekly = "weekly"
)

// PatternRecord 周期模式检测结果
type PatternRecord struct {
	StationID   string          `json:"station_id"`
	SensorID    string          `json:"sensor_id"`
	PatternType string          `json:"pattern_type"`
	Averages    map[int]float64 `json:"averages"` // 日模式按小时，周模式按星期
	Variance    float64         `json:"variance"`
	Confidence  float64         `json:"confidence"`
	ComputedAt  time.Time       `json:"computed_at"`
}
