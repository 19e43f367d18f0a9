package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func hourlyRows(n int, value func(i int) float64) []Row {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{
			Timestamp:  base.Add(time.Duration(i) * time.Hour),
			WaterLevel: value(i),
		}
	}
	return rows
}

func TestBuildFeatures_NoWeather(t *testing.T) {
	rows := hourlyRows(60, func(i int) float64 { return float64(i) })

	set := BuildFeatures(rows)

	// 4 日历 + 6 滞后 + 3×2 滚动
	require.Len(t, set.Names, 16)
	// 前 24 行因 24h 滞后缺失被丢弃
	require.Len(t, set.X, 36)
	require.Len(t, set.Y, 36)

	// 第一个有效行对应 i=24
	assert.Equal(t, 24.0, set.Y[0])
	row := set.X[0]
	nameIdx := indexOf(set.Names, "water_level_lag_1h")
	assert.Equal(t, 23.0, row[nameIdx])
	nameIdx = indexOf(set.Names, "water_level_lag_24h")
	assert.Equal(t, 0.0, row[nameIdx])

	// 6h 滚动均值覆盖 values[19..24]
	nameIdx = indexOf(set.Names, "water_level_mean_6h")
	assert.InDelta(t, 21.5, row[nameIdx], 1e-9)
	nameIdx = indexOf(set.Names, "water_level_std_6h")
	expected := stat.StdDev([]float64{19, 20, 21, 22, 23, 24}, nil)
	assert.InDelta(t, expected, row[nameIdx], 1e-9)
}

func TestBuildFeatures_CalendarColumns(t *testing.T) {
	rows := hourlyRows(30, func(i int) float64 { return 10.0 })

	set := BuildFeatures(rows)

	require.NotEmpty(t, set.X)
	row := set.X[0]
	// i=24 对应 2024-01-02T00:00:00Z（周二）
	assert.Equal(t, 0.0, row[indexOf(set.Names, "hour")])
	assert.Equal(t, 2.0, row[indexOf(set.Names, "day_of_year")])
	assert.Equal(t, 1.0, row[indexOf(set.Names, "month")])
	assert.Equal(t, 0.0, row[indexOf(set.Names, "is_weekend")])
}

func TestBuildFeatures_WithWeather(t *testing.T) {
	rows := hourlyRows(60, func(i int) float64 { return float64(i) })
	// 气象数据从第 5 行才开始出现
	for i := 5; i < 60; i++ {
		rows[i].Weather = map[string]float64{"temperature_c": 20.0 + float64(i)}
	}

	set := BuildFeatures(rows)

	// 16 基础列 + temperature_c 及其 4 个滞后
	require.Len(t, set.Names, 21)
	assert.Contains(t, set.Names, "temperature_c")
	assert.Contains(t, set.Names, "temperature_c_lag_24h")

	// 行 i 需要 filled[i-24] 非 NaN，即 i >= 29
	require.Len(t, set.X, 31)
	assert.Equal(t, 29.0, set.Y[0])

	row := set.X[0]
	assert.Equal(t, 49.0, row[indexOf(set.Names, "temperature_c")])
	// i=29 的 24h 滞后落在前向填充起点
	assert.Equal(t, 25.0, row[indexOf(set.Names, "temperature_c_lag_24h")])
}

func TestBuildFeatures_UnknownWeatherFieldIgnored(t *testing.T) {
	rows := hourlyRows(30, func(i int) float64 { return 10.0 })
	for i := range rows {
		rows[i].Weather = map[string]float64{"wind_speed_ms": 3.0}
	}

	set := BuildFeatures(rows)

	require.Len(t, set.Names, 16)
	assert.NotContains(t, set.Names, "wind_speed_ms")
}

func TestBuildFeatures_Empty(t *testing.T) {
	set := BuildFeatures(nil)
	assert.Empty(t, set.X)
	assert.Empty(t, set.Y)
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
