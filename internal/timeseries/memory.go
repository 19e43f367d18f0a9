package timeseries

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore 内存时序库实现（单元测试和本地开发用）
type MemoryStore struct {
	mu     sync.RWMutex
	points []Point
}

// NewMemoryStore 创建内存时序库
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// WritePoint 追加写入一个数据点
func (s *MemoryStore) WritePoint(ctx context.Context, p Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points = append(s.points, p)
	return nil
}

// QueryValues 查询某站点/传感器的单字段序列（按时间升序）
func (s *MemoryStore) QueryValues(ctx context.Context, measurement, stationID, sensorID, field string, start, stop time.Time) ([]Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var samples []Sample
	for _, p := range s.points {
		if p.Measurement != measurement {
			continue
		}
		if p.Tags["station_id"] != stationID || p.Tags["sensor_id"] != sensorID {
			continue
		}
		if p.Time.Before(start) || p.Time.After(stop) {
			continue
		}
		raw, ok := p.Fields[field]
		if !ok {
			continue
		}
		value, ok := toFloat64(raw)
		if !ok {
			continue
		}
		samples = append(samples, Sample{Timestamp: p.Time, Value: value})
	}

	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Timestamp.Before(samples[j].Timestamp)
	})
	return samples, nil
}

// QueryStationFields 查询某站点一个测点下的所有字段（按时间升序）
func (s *MemoryStore) QueryStationFields(ctx context.Context, measurement, stationID string, start, stop time.Time) ([]FieldSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var samples []FieldSample
	for _, p := range s.points {
		if p.Measurement != measurement {
			continue
		}
		if p.Tags["station_id"] != stationID {
			continue
		}
		if p.Time.Before(start) || p.Time.After(stop) {
			continue
		}
		for field, raw := range p.Fields {
			value, ok := toFloat64(raw)
			if !ok {
				continue
			}
			samples = append(samples, FieldSample{Timestamp: p.Time, Field: field, Value: value})
		}
	}

	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Timestamp.Before(samples[j].Timestamp)
	})
	return samples, nil
}

// Points 返回全部已写入的点（测试断言用）
func (s *MemoryStore) Points() []Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

func toFloat64(v interface{}) (float64, bool) {
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
