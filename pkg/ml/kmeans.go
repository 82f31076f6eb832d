package ml

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// KMeans k-means 聚类，k-means++ 初始化，多次重启取惯性最小的结果
type KMeans struct {
	K         int         `json:"k"`
	NInit     int         `json:"n_init"`
	MaxIter   int         `json:"max_iter"`
	Tol       float64     `json:"tol"`
	Seed      int64       `json:"seed"`
	Centroids [][]float64 `json:"centroids"`
	Inertia   float64     `json:"inertia"`
}

func NewKMeans(k int, seed int64) *KMeans {
	return &KMeans{
		K:       k,
		NInit:   10,
		MaxIter: 300,
		Tol:     1e-4,
		Seed:    seed,
	}
}

func (km *KMeans) Fitted() bool {
	return len(km.Centroids) > 0
}

// Validate 检查中心数与 K 一致、每个中心维度相同且取值有限
func (km *KMeans) Validate() error {
	if !km.Fitted() {
		return ErrNotFitted
	}
	if km.K != len(km.Centroids) {
		return fmt.Errorf("%w: k=%d but %d centroids", ErrInvalidModel, km.K, len(km.Centroids))
	}
	dim := len(km.Centroids[0])
	if dim == 0 {
		return fmt.Errorf("%w: empty centroid", ErrInvalidModel)
	}
	for i, c := range km.Centroids {
		if len(c) != dim {
			return fmt.Errorf("%w: centroid %d has %d dims, want %d", ErrInvalidModel, i, len(c), dim)
		}
		for _, v := range c {
			if !finite(v) {
				return fmt.Errorf("%w: centroid %d has non-finite value", ErrInvalidModel, i)
			}
		}
	}
	return nil
}

// Dims 中心的维度，未训练时为 0
func (km *KMeans) Dims() int {
	if !km.Fitted() {
		return 0
	}
	return len(km.Centroids[0])
}

func (km *KMeans) Fit(X [][]float64) error {
	if _, err := checkMatrix(X); err != nil {
		return err
	}
	if km.K <= 0 {
		return ErrInvalidArgument
	}
	if len(X) < km.K {
		return ErrTooFewSamples
	}
	nInit := km.NInit
	if nInit <= 0 {
		nInit = 1
	}

	rng := rand.New(rand.NewSource(km.Seed))
	var best [][]float64
	bestInertia := math.Inf(1)
	for run := 0; run < nInit; run++ {
		centroids, inertia := km.lloyd(X, km.initPlusPlus(X, rng))
		if inertia < bestInertia {
			best, bestInertia = centroids, inertia
		}
	}

	km.Centroids = best
	km.Inertia = bestInertia
	return nil
}

func (km *KMeans) Predict(X [][]float64) ([]int, error) {
	if !km.Fitted() {
		return nil, ErrNotFitted
	}
	labels := make([]int, len(X))
	for i, x := range X {
		if len(x) != len(km.Centroids[0]) {
			return nil, ErrShapeMismatch
		}
		labels[i], _ = nearest(x, km.Centroids)
	}
	return labels, nil
}

func (km *KMeans) FitPredict(X [][]float64) ([]int, error) {
	if err := km.Fit(X); err != nil {
		return nil, err
	}
	return km.Predict(X)
}

// initPlusPlus 按与已选中心距离平方成比例的概率挑选初始中心
func (km *KMeans) initPlusPlus(X [][]float64, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, km.K)
	centroids = append(centroids, clone(X[rng.Intn(len(X))]))

	dist := make([]float64, len(X))
	for len(centroids) < km.K {
		var total float64
		for i, x := range X {
			_, d := nearest(x, centroids)
			dist[i] = d
			total += d
		}

		next := len(X) - 1
		if total > 0 {
			target := rng.Float64() * total
			var acc float64
			for i, d := range dist {
				acc += d
				if acc >= target {
					next = i
					break
				}
			}
		} else {
			next = rng.Intn(len(X))
		}
		centroids = append(centroids, clone(X[next]))
	}
	return centroids
}

func (km *KMeans) lloyd(X [][]float64, centroids [][]float64) ([][]float64, float64) {
	dim := len(X[0])
	labels := make([]int, len(X))

	for iter := 0; iter < km.MaxIter; iter++ {
		for i, x := range X {
			labels[i], _ = nearest(x, centroids)
		}

		sums := make([][]float64, km.K)
		counts := make([]int, km.K)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, x := range X {
			floats.Add(sums[labels[i]], x)
			counts[labels[i]]++
		}

		var shift float64
		for c := range centroids {
			if counts[c] == 0 {
				// 空簇移到离当前中心最远的样本上
				sums[c] = clone(X[farthest(X, centroids, labels)])
				counts[c] = 1
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			shift += sqDist(sums[c], centroids[c])
			centroids[c] = sums[c]
		}
		if shift <= km.Tol {
			break
		}
	}

	var inertia float64
	for _, x := range X {
		_, d := nearest(x, centroids)
		inertia += d
	}
	return centroids, inertia
}

func nearest(x []float64, centroids [][]float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := sqDist(x, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

func farthest(X [][]float64, centroids [][]float64, labels []int) int {
	idx, maxDist := 0, -1.0
	for i, x := range X {
		if d := sqDist(x, centroids[labels[i]]); d > maxDist {
			idx, maxDist = i, d
		}
	}
	return idx
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
