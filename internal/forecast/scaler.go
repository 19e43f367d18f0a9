package forecast

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler 按列标准化（均值 0、方差 1）
// 字段导出以便 gob 序列化
type StandardScaler struct {
	Mean         []float64
	Std          []float64
	FeatureNames []string
}

// FitScaler 在训练集上拟合标准化参数
// 零方差列的 Std 置 1，变换后恒为 0
func FitScaler(x [][]float64, names []string) *StandardScaler {
	if len(x) == 0 {
		return &StandardScaler{FeatureNames: names}
	}

	cols := len(x[0])
	scaler := &StandardScaler{
		Mean:         make([]float64, cols),
		Std:          make([]float64, cols),
		FeatureNames: names,
	}

	column := make([]float64, len(x))
	for j := 0; j < cols; j++ {
		for i := range x {
			column[i] = x[i][j]
		}
		scaler.Mean[j] = stat.Mean(column, nil)
		std := stat.PopStdDev(column, nil)
		if std == 0 {
			std = 1
		}
		scaler.Std[j] = std
	}
	return scaler
}

// Transform 标准化一批样本（返回新矩阵，不修改输入）
func (s *StandardScaler) Transform(x [][]float64) ([][]float64, error) {
	out := make([][]float64, len(x))
	for i, row := range x {
		scaled, err := s.TransformRow(row)
		if err != nil {
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}

// TransformRow 标准化单个样本
func (s *StandardScaler) TransformRow(row []float64) ([]float64, error) {
	if len(row) != len(s.Mean) {
		return nil, fmt.Errorf("feature count mismatch: got %d, want %d", len(row), len(s.Mean))
	}
	scaled := make([]float64, len(row))
	for j, v := range row {
		scaled[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return scaled, nil
}
