package models

import "time"

// 异常严重度
const (
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// AnomalyRecord 异常检测记录
// 创建后只允许修改 is_resolved 字段
type AnomalyRecord struct {
	ID            string    `json:"id"`
	StationID     string    `json:"station_id"`
	SensorID      string    `json:"sensor_id"`
	Timestamp     time.Time `json:"timestamp"`
	AnomalyType   string    `json:"anomaly_type"`
	Severity      string    `json:"severity"`
	AnomalyScore  float64   `json:"anomaly_score"`
	ExpectedValue float64   `json:"expected_value"`
	ActualValue   float64   `json:"actual_value"`
	Description   string    `json:"description"`
	IsResolved    bool      `json:"is_resolved"`
	CreatedAt     time.Time `json:"created_at"`
}

// AlertEvent 发往报警接收端的事件
type AlertEvent struct {
	StationID string                 `json:"station_id"`
	AlertType string                 `json:"alert_type"`
	Severity  string                 `json:"severity"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Metadata  map[string]interface{} `json:"metadata"`
}
