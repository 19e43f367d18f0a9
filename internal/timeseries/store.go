// Package timeseries 封装时序库访问
//
// 测点（measurement）约定：
// - sensor_data：传感器读数，tags: station_id/sensor_id，field: value + 额外字段
// - sensor_data_downsampled：降采样均值，tags 额外带 interval
// - weather_data：气象数据，tags: station_id/source
// - trend_data：趋势分析结果
// - pattern_data：周期模式结果，tags 额外带 pattern_type
package timeseries

import (
	"context"
	"time"
)

// 测点名称
const (
	MeasurementSensorData        = "sensor_data"
	MeasurementSensorDownsampled = "sensor_data_downsampled"
	MeasurementWeatherData       = "weather_data"
	MeasurementTrendData         = "trend_data"
	MeasurementPatternData       = "pattern_data"
)

// Point 一条待写入的时序数据点
type Point struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]interface{}
	Time        time.Time
}

// Sample 单字段查询结果（按时间升序）
type Sample struct {
	Timestamp time.Time
	Value     float64
}

// FieldSample 多字段查询结果
type FieldSample struct {
	Timestamp time.Time
	Field     string
	Value     float64
}

// Store 时序库抽象（便于在单元测试中替换 InfluxDB）
type Store interface {
	// WritePoint 追加写入一个数据点
	WritePoint(ctx context.Context, p Point) error
	// QueryValues 查询某站点/传感器的单字段序列
	QueryValues(ctx context.Context, measurement, stationID, sensorID, field string, start, stop time.Time) ([]Sample, error)
	// QueryStationFields 查询某站点一个测点下的所有字段（气象数据用）
	QueryStationFields(ctx context.Context, measurement, stationID string, start, stop time.Time) ([]FieldSample, error)
}
