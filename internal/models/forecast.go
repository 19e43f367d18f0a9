package models

import "time"

// 训练结果状态
const (
	TrainStatusSuccess              = "success"
	TrainStatusError                = "error"
	TrainStatusInsufficientData     = "insufficient_data"
	TrainStatusInsufficientFeatures = "insufficient_features"
)

// TrainResult 训练结果
// 训练永远返回结构化结果，不向调用方抛异常
type TrainResult struct {
	Status          string  `json:"status"`
	Message         string  `json:"message,omitempty"`
	MAE             float64 `json:"mae,omitempty"`
	RMSE            float64 `json:"rmse,omitempty"`
	TrainingSamples int     `json:"training_samples,omitempty"`
	TestSamples     int     `json:"test_samples,omitempty"`
}

// ForecastPoint 单个预测点（不可变，追加写入）
type ForecastPoint struct {
	StationID       string    `json:"station_id"`
	SensorID        string    `json:"sensor_id"`
	Timestamp       time.Time `json:"timestamp"`
	PredictedLevel  float64   `json:"predicted_level"`
	ConfidenceLower float64   `json:"confidence_lower"`
	ConfidenceUpper float64   `json:"confidence_upper"`
	HorizonHours    int       `json:"horizon_hours"`
	ModelName       string    `json:"model_name"`
	ModelVersion    string    `json:"model_version"`
}
