package forecast

import (
	"math"
	"math/rand"
	"sort"
)

// TreeNode 回归树节点
// 字段导出以便 gob 序列化
type TreeNode struct {
	FeatureIndex int
	Threshold    float64
	Value        float64
	Left         *TreeNode
	Right        *TreeNode
}

// IsLeaf 是否叶节点
func (n *TreeNode) IsLeaf() bool {
	return n.Left == nil && n.Right == nil
}

// Predict 单样本预测
func (n *TreeNode) Predict(row []float64) float64 {
	node := n
	for !node.IsLeaf() {
		if row[node.FeatureIndex] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

// buildTree 递归构建回归树（方差最小化分裂）
// 每次分裂只考察随机抽取的 featureSubset 个特征
func buildTree(x [][]float64, y []float64, indices []int, depth, maxDepth, featureSubset int, rng *rand.Rand) *TreeNode {
	node := &TreeNode{Value: meanAt(y, indices)}

	if depth >= maxDepth || len(indices) < 2 {
		return node
	}
	if varianceAt(y, indices) == 0 {
		return node
	}

	featIdx, threshold, ok := bestSplit(x, y, indices, featureSubset, rng)
	if !ok {
		return node
	}

	var left, right []int
	for _, i := range indices {
		if x[i][featIdx] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return node
	}

	node.FeatureIndex = featIdx
	node.Threshold = threshold
	node.Left = buildTree(x, y, left, depth+1, maxDepth, featureSubset, rng)
	node.Right = buildTree(x, y, right, depth+1, maxDepth, featureSubset, rng)
	return node
}

// bestSplit 在随机特征子集上找加权方差最小的分裂点
// 按特征值排序后用前缀和单趟扫描，每个特征 O(n log n)
func bestSplit(x [][]float64, y []float64, indices []int, featureSubset int, rng *rand.Rand) (int, float64, bool) {
	numFeatures := len(x[indices[0]])
	perm := rng.Perm(numFeatures)
	if featureSubset < numFeatures {
		perm = perm[:featureSubset]
	}

	n := len(indices)
	var totalSum, totalSq float64
	for _, i := range indices {
		totalSum += y[i]
		totalSq += y[i] * y[i]
	}

	bestScore := math.Inf(1)
	bestFeature := -1
	bestThreshold := 0.0

	sorted := make([]int, n)
	for _, j := range perm {
		copy(sorted, indices)
		sort.Slice(sorted, func(a, b int) bool {
			return x[sorted[a]][j] < x[sorted[b]][j]
		})

		var leftSum, leftSq float64
		for k := 0; k < n-1; k++ {
			v := y[sorted[k]]
			leftSum += v
			leftSq += v * v

			// 相同取值之间不能分裂
			if x[sorted[k]][j] == x[sorted[k+1]][j] {
				continue
			}

			leftN := float64(k + 1)
			rightN := float64(n - k - 1)
			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq

			leftVar := leftSq/leftN - (leftSum/leftN)*(leftSum/leftN)
			rightVar := rightSq/rightN - (rightSum/rightN)*(rightSum/rightN)
			score := leftVar*leftN + rightVar*rightN

			if score < bestScore {
				bestScore = score
				bestFeature = j
				bestThreshold = (x[sorted[k]][j] + x[sorted[k+1]][j]) / 2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

func meanAt(y []float64, indices []int) float64 {
	var sum float64
	for _, i := range indices {
		sum += y[i]
	}
	return sum / float64(len(indices))
}

func varianceAt(y []float64, indices []int) float64 {
	mean := meanAt(y, indices)
	var sum float64
	for _, i := range indices {
		d := y[i] - mean
		sum += d * d
	}
	return sum / float64(len(indices))
}
