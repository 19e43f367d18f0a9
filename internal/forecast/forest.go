package forecast

import (
	"fmt"
	"math/rand"
)

// 随机森林超参数
const (
	forestTrees    = 100
	forestMaxDepth = 10
	forestSeed     = 42
)

// RandomForest 随机森林回归器
// 字段导出以便 gob 序列化
type RandomForest struct {
	Trees       []*TreeNode
	NumFeatures int
}

// TrainForest 训练随机森林
// 每棵树用有放回抽样的自助样本，分裂时抽取 p/3 个特征（至少 1 个）。
// 固定种子保证同一数据训练结果可复现。
func TrainForest(x [][]float64, y []float64) (*RandomForest, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("invalid training set: %d samples, %d targets", len(x), len(y))
	}

	numFeatures := len(x[0])
	featureSubset := numFeatures / 3
	if featureSubset < 1 {
		featureSubset = 1
	}

	rng := rand.New(rand.NewSource(forestSeed))
	forest := &RandomForest{
		Trees:       make([]*TreeNode, forestTrees),
		NumFeatures: numFeatures,
	}

	n := len(x)
	for t := 0; t < forestTrees; t++ {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = rng.Intn(n)
		}
		forest.Trees[t] = buildTree(x, y, indices, 0, forestMaxDepth, featureSubset, rng)
	}
	return forest, nil
}

// Predict 单样本预测（全部树的均值）
func (f *RandomForest) Predict(row []float64) (float64, error) {
	if len(row) != f.NumFeatures {
		return 0, fmt.Errorf("feature count mismatch: got %d, want %d", len(row), f.NumFeatures)
	}
	var sum float64
	for _, tree := range f.Trees {
		sum += tree.Predict(row)
	}
	return sum / float64(len(f.Trees)), nil
}

// PredictBatch 批量预测
func (f *RandomForest) PredictBatch(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i, row := range x {
		p, err := f.Predict(row)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}
