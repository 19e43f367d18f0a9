package models

import (
	"fmt"
	"time"
)

// 保留字段：不会被折叠进额外字段的 key
var reservedKeys = map[string]bool{
	"station_id":  true,
	"sensor_id":   true,
	"timestamp":   true,
	"value":       true,
	"unit":        true,
	"received_at": true,
	"type":        true,
}

// SensorReading 单条传感器读数
// 以 (station_id, sensor_id, timestamp) 唯一标识，写入后不可变
type SensorReading struct {
	StationID  string    `json:"station_id"`
	SensorID   string    `json:"sensor_id"`
	Timestamp  time.Time `json:"timestamp"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	ReceivedAt time.Time `json:"received_at"`

	// 额外字段：数值折叠为附加 field，其余折叠为字符串 tag
	ExtraFields map[string]float64 `json:"extra_fields,omitempty"`
	ExtraTags   map[string]string  `json:"extra_tags,omitempty"`
}

// ParseSensorPayload 从原始 payload 构建 SensorReading
// 必需字段：timestamp（ISO-8601 字符串）、value（数值）、unit（字符串）
// 缺失必需字段返回错误，由调用方丢弃并记录（不向上抛）
func ParseSensorPayload(stationID, sensorID string, payload map[string]interface{}) (*SensorReading, error) {
	rawTS, ok := payload["timestamp"].(string)
	if !ok || rawTS == "" {
		return nil, fmt.Errorf("missing required field: timestamp")
	}
	ts, err := time.Parse(time.RFC3339, rawTS)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", rawTS, err)
	}

	value, ok := toFloat(payload["value"])
	if !ok {
		return nil, fmt.Errorf("missing required field: value")
	}

	unit, ok := payload["unit"].(string)
	if !ok || unit == "" {
		return nil, fmt.Errorf("missing required field: unit")
	}

	reading := &SensorReading{
		StationID: stationID,
		SensorID:  sensorID,
		Timestamp: ts,
		Value:     value,
		Unit:      unit,
	}

	// 折叠非保留字段
	for k, v := range payload {
		if reservedKeys[k] {
			continue
		}
		if f, ok := toFloat(v); ok {
			if reading.ExtraFields == nil {
				reading.ExtraFields = make(map[string]float64)
			}
			reading.ExtraFields[k] = f
		} else {
			if reading.ExtraTags == nil {
				reading.ExtraTags = make(map[string]string)
			}
			reading.ExtraTags[k] = fmt.Sprintf("%v", v)
		}
	}

	return reading, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// SensorStatus 传感器状态上报（不写时序库，只更新缓存）
type SensorStatus struct {
	StationID       string `json:"station_id"`
	SensorID        string `json:"sensor_id"`
	BatteryLevel    string `json:"battery_level"`
	SignalStrength  string `json:"signal_strength"`
	FirmwareVersion string `json:"firmware_version"`
	Status          string `json:"status"`
	LastSeen        string `json:"last_seen"`
}

// HealthSnapshot 传感器健康快照（批处理产出，缓存 24h，last-write-wins）
type HealthSnapshot struct {
	StationID        string    `json:"station_id"`
	SensorID         string    `json:"sensor_id"`
	DataAvailability float64   `json:"data_availability"`
	ValueRange       float64   `json:"value_range"`
	ValueStd         float64   `json:"value_std"`
	LastUpdate       string    `json:"last_update"`
	UpdatedAt        time.Time `json:"updated_at"`
}
