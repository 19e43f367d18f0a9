// Package forecast 水位预测
//
// 管线：原始读数 + 气象数据 → 特征矩阵 → 标准化 → 随机森林回归。
// 训练产物（模型 + 标准化器）以 gob 落盘，经 LRU 注册表复用。
package forecast

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// 特征构造参数
var (
	lagHours        = []int{1, 2, 3, 6, 12, 24}
	rollingWindows  = []int{6, 12, 24}
	weatherLagHours = []int{1, 6, 12, 24}
)

// 参与特征构造的气象字段（按字母序遍历保证列顺序稳定）
var weatherFeatureFields = []string{"humidity_percent", "pressure_hpa", "rainfall_mm", "temperature_c"}

// Row 一行训练数据：某时刻的水位和当时可用的气象观测
type Row struct {
	Timestamp  time.Time
	WaterLevel float64
	Weather    map[string]float64
}

// FeatureSet 构造完成的特征矩阵
type FeatureSet struct {
	X     [][]float64
	Y     []float64
	Names []string
}

// BuildFeatures 从按时间升序的行构造特征矩阵
// 特征：日历（hour/day_of_year/month/is_weekend）、水位滞后、
// 滚动均值/标准差（样本标准差）、气象字段前向填充 + 滞后。
// 任一特征缺失的行被整行丢弃（前 24 行必然被丢弃）。
func BuildFeatures(rows []Row) *FeatureSet {
	if len(rows) == 0 {
		return &FeatureSet{}
	}

	// 出现过的气象字段，按字母序
	present := make(map[string]bool)
	for _, r := range rows {
		for f := range r.Weather {
			present[f] = true
		}
	}
	var weatherFields []string
	for _, f := range weatherFeatureFields {
		if present[f] {
			weatherFields = append(weatherFields, f)
		}
	}
	sort.Strings(weatherFields)

	// 气象字段前向填充（起始缺口保持 NaN）
	filled := make(map[string][]float64, len(weatherFields))
	for _, f := range weatherFields {
		series := make([]float64, len(rows))
		last := math.NaN()
		for i, r := range rows {
			if v, ok := r.Weather[f]; ok {
				last = v
			}
			series[i] = last
		}
		filled[f] = series
	}

	names := FeatureNames(weatherFields)

	values := make([]float64, len(rows))
	for i, r := range rows {
		values[i] = r.WaterLevel
	}

	set := &FeatureSet{Names: names}
	for i := range rows {
		vector := buildRowVector(rows[i].Timestamp, values, filled, weatherFields, i)
		if vector == nil {
			continue
		}
		set.X = append(set.X, vector)
		set.Y = append(set.Y, values[i])
	}
	return set
}

// FeatureNames 返回给定气象字段组合下的特征列名（训练/预测共用）
func FeatureNames(weatherFields []string) []string {
	names := []string{"hour", "day_of_year", "month", "is_weekend"}
	for _, lag := range lagHours {
		names = append(names, fmt.Sprintf("water_level_lag_%dh", lag))
	}
	for _, w := range rollingWindows {
		names = append(names, fmt.Sprintf("water_level_mean_%dh", w))
		names = append(names, fmt.Sprintf("water_level_std_%dh", w))
	}
	for _, f := range weatherFields {
		names = append(names, f)
		for _, lag := range weatherLagHours {
			names = append(names, fmt.Sprintf("%s_lag_%dh", f, lag))
		}
	}
	return names
}

// buildRowVector 构造第 i 行的特征向量，任一特征缺失返回 nil
func buildRowVector(ts time.Time, values []float64, filled map[string][]float64, weatherFields []string, i int) []float64 {
	var vector []float64
	vector = append(vector, CalendarFeatures(ts)...)

	for _, lag := range lagHours {
		if i < lag {
			return nil
		}
		vector = append(vector, values[i-lag])
	}

	for _, w := range rollingWindows {
		if i < w-1 {
			return nil
		}
		window := values[i-w+1 : i+1]
		vector = append(vector, stat.Mean(window, nil))
		vector = append(vector, stat.StdDev(window, nil))
	}

	for _, f := range weatherFields {
		series := filled[f]
		if math.IsNaN(series[i]) {
			return nil
		}
		vector = append(vector, series[i])
		for _, lag := range weatherLagHours {
			if i < lag || math.IsNaN(series[i-lag]) {
				return nil
			}
			vector = append(vector, series[i-lag])
		}
	}

	return vector
}

// CalendarFeatures 预测时刻的日历特征
func CalendarFeatures(ts time.Time) []float64 {
	isWeekend := 0.0
	if wd := ts.Weekday(); wd == time.Saturday || wd == time.Sunday {
		isWeekend = 1.0
	}
	return []float64{
		float64(ts.Hour()),
		float64(ts.YearDay()),
		float64(int(ts.Month())),
		isWeekend,
	}
}
