package ml

import (
	"fmt"
	"math/rand"
	"sort"
)

// TreeNode 扁平存储的回归树节点，Left/Right 为 -1 时表示叶子
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// RegressionTree CART 回归树，按平方误差最小化切分
type RegressionTree struct {
	Nodes []TreeNode `json:"nodes"`
}

func (t *RegressionTree) predictOne(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// validate 子节点下标必须落在节点表内且大于父节点，保证预测时一定走到叶子
func (t *RegressionTree) validate(nFeatures int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("%w: tree has no nodes", ErrInvalidModel)
	}
	for i, n := range t.Nodes {
		if n.Left < 0 {
			if !finite(n.Value) {
				return fmt.Errorf("%w: node %d has non-finite value", ErrInvalidModel, i)
			}
			continue
		}
		if n.Left <= i || n.Left >= len(t.Nodes) || n.Right <= i || n.Right >= len(t.Nodes) {
			return fmt.Errorf("%w: node %d has children (%d, %d) out of range", ErrInvalidModel, i, n.Left, n.Right)
		}
		if n.Feature < 0 || n.Feature >= nFeatures {
			return fmt.Errorf("%w: node %d splits on feature %d of %d", ErrInvalidModel, i, n.Feature, nFeatures)
		}
		if !finite(n.Threshold) {
			return fmt.Errorf("%w: node %d has non-finite threshold", ErrInvalidModel, i)
		}
	}
	return nil
}

type treeBuilder struct {
	X               [][]float64
	y               []float64
	maxDepth        int
	minSamplesSplit int
	nodes           []TreeNode
}

func (b *treeBuilder) leaf(idx []int) int {
	var sum float64
	for _, i := range idx {
		sum += b.y[i]
	}
	b.nodes = append(b.nodes, TreeNode{Feature: -1, Left: -1, Right: -1, Value: sum / float64(len(idx))})
	return len(b.nodes) - 1
}

// build 递归建树，返回节点下标
func (b *treeBuilder) build(idx []int, depth int) int {
	if len(idx) < b.minSamplesSplit || (b.maxDepth > 0 && depth >= b.maxDepth) {
		return b.leaf(idx)
	}

	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		return b.leaf(idx)
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	node := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{Feature: feature, Threshold: threshold})
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[node].Left = l
	b.nodes[node].Right = r
	return node
}

// bestSplit 在所有特征上寻找使左右子集平方误差之和最小的阈值
func (b *treeBuilder) bestSplit(idx []int) (int, float64, bool) {
	n := len(idx)
	var total, totalSq float64
	for _, i := range idx {
		total += b.y[i]
		totalSq += b.y[i] * b.y[i]
	}
	parentSSE := totalSq - total*total/float64(n)
	if parentSSE <= 1e-12 {
		return 0, 0, false
	}

	bestFeature, bestThreshold := -1, 0.0
	bestSSE := parentSSE
	sorted := make([]int, n)

	for f := 0; f < len(b.X[idx[0]]); f++ {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool {
			return b.X[sorted[a]][f] < b.X[sorted[c]][f]
		})

		var leftSum, leftSq float64
		for k := 0; k < n-1; k++ {
			yi := b.y[sorted[k]]
			leftSum += yi
			leftSq += yi * yi

			cur, next := b.X[sorted[k]][f], b.X[sorted[k+1]][f]
			if cur == next {
				continue
			}

			nl, nr := float64(k+1), float64(n-k-1)
			rightSum, rightSq := total-leftSum, totalSq-leftSq
			sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			if sse < bestSSE-1e-12 {
				bestSSE = sse
				bestFeature = f
				bestThreshold = (cur + next) / 2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

// RandomForestRegressor 随机森林回归，每棵树在自助采样集上训练，预测取平均
type RandomForestRegressor struct {
	NEstimators     int               `json:"n_estimators"`
	MaxDepth        int               `json:"max_depth"`
	MinSamplesSplit int               `json:"min_samples_split"`
	Seed            int64             `json:"seed"`
	NFeatures       int               `json:"n_features"`
	Trees           []*RegressionTree `json:"trees"`
}

// NewRandomForestRegressor MaxDepth 为 0 表示不限制深度
func NewRandomForestRegressor(nEstimators int, seed int64) *RandomForestRegressor {
	if nEstimators <= 0 {
		nEstimators = 100
	}
	return &RandomForestRegressor{
		NEstimators:     nEstimators,
		MinSamplesSplit: 2,
		Seed:            seed,
	}
}

func (f *RandomForestRegressor) Fitted() bool {
	return len(f.Trees) > 0
}

// Validate 检查反序列化得到的森林结构完整，可以安全预测
func (f *RandomForestRegressor) Validate() error {
	if !f.Fitted() {
		return ErrNotFitted
	}
	if f.NFeatures <= 0 {
		return fmt.Errorf("%w: n_features %d", ErrInvalidModel, f.NFeatures)
	}
	for i, t := range f.Trees {
		if t == nil {
			return fmt.Errorf("%w: tree %d is null", ErrInvalidModel, i)
		}
		if err := t.validate(f.NFeatures); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

func (f *RandomForestRegressor) Fit(X [][]float64, y []float64) error {
	cols, err := checkMatrix(X)
	if err != nil {
		return err
	}
	if len(y) != len(X) {
		return ErrShapeMismatch
	}
	minSplit := f.MinSamplesSplit
	if minSplit < 2 {
		minSplit = 2
	}

	rng := rand.New(rand.NewSource(f.Seed))
	n := len(X)
	trees := make([]*RegressionTree, 0, f.NEstimators)
	for t := 0; t < f.NEstimators; t++ {
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.Intn(n)
		}
		b := &treeBuilder{X: X, y: y, maxDepth: f.MaxDepth, minSamplesSplit: minSplit}
		b.build(sample, 0)
		trees = append(trees, &RegressionTree{Nodes: b.nodes})
	}

	f.Trees = trees
	f.NFeatures = cols
	return nil
}

func (f *RandomForestRegressor) Predict(X [][]float64) ([]float64, error) {
	if !f.Fitted() {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(X))
	for i, x := range X {
		if len(x) != f.NFeatures {
			return nil, ErrShapeMismatch
		}
		var sum float64
		for _, t := range f.Trees {
			sum += t.predictOne(x)
		}
		out[i] = sum / float64(len(f.Trees))
	}
	return out, nil
}
