package timeseries

import (
	"context"
	"fmt"
	"time"

	"groundwater-analytics/internal/common/config"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"go.uber.org/zap"
)

// InfluxStore 基于 InfluxDB 2.x 的时序库实现
type InfluxStore struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	queryAPI api.QueryAPI
	bucket   string
	logger   *zap.Logger
}

// NewInfluxStore 创建 InfluxDB 客户端
func NewInfluxStore(cfg *config.InfluxConfig, logger *zap.Logger) *InfluxStore {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxStore{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		queryAPI: client.QueryAPI(cfg.Org),
		bucket:   cfg.Bucket,
		logger:   logger,
	}
}

// WritePoint 追加写入一个数据点
func (s *InfluxStore) WritePoint(ctx context.Context, p Point) error {
	point := influxdb2.NewPoint(p.Measurement, p.Tags, p.Fields, p.Time)
	if err := s.writeAPI.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("failed to write point to %s: %w", p.Measurement, err)
	}
	return nil
}

// QueryValues 查询某站点/传感器的单字段序列（按时间升序）
func (s *InfluxStore) QueryValues(ctx context.Context, measurement, stationID, sensorID, field string, start, stop time.Time) ([]Sample, error) {
	flux := fmt.Sprintf(`
		from(bucket: %q)
		|> range(start: %s, stop: %s)
		|> filter(fn: (r) => r["_measurement"] == %q)
		|> filter(fn: (r) => r["station_id"] == %q)
		|> filter(fn: (r) => r["sensor_id"] == %q)
		|> filter(fn: (r) => r["_field"] == %q)
		|> sort(columns: ["_time"])
	`, s.bucket, start.Format(time.RFC3339), stop.Format(time.RFC3339), measurement, stationID, sensorID, field)

	result, err := s.queryAPI.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", measurement, err)
	}

	var samples []Sample
	for result.Next() {
		record := result.Record()
		value, ok := record.Value().(float64)
		if !ok {
			continue
		}
		samples = append(samples, Sample{
			Timestamp: record.Time(),
			Value:     value,
		})
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("query iteration error: %w", result.Err())
	}

	return samples, nil
}

// QueryStationFields 查询某站点一个测点下的所有字段（按时间升序）
func (s *InfluxStore) QueryStationFields(ctx context.Context, measurement, stationID string, start, stop time.Time) ([]FieldSample, error) {
	flux := fmt.Sprintf(`
		from(bucket: %q)
		|> range(start: %s, stop: %s)
		|> filter(fn: (r) => r["_measurement"] == %q)
		|> filter(fn: (r) => r["station_id"] == %q)
		|> sort(columns: ["_time"])
	`, s.bucket, start.Format(time.RFC3339), stop.Format(time.RFC3339), measurement, stationID)

	result, err := s.queryAPI.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", measurement, err)
	}

	var samples []FieldSample
	for result.Next() {
		record := result.Record()
		value, ok := record.Value().(float64)
		if !ok {
			continue
		}
		samples = append(samples, FieldSample{
			Timestamp: record.Time(),
			Field:     record.Field(),
			Value:     value,
		})
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("query iteration error: %w", result.Err())
	}

	return samples, nil
}

// Close 关闭客户端
func (s *InfluxStore) Close() {
	s.client.Close()
}
