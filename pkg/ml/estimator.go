// Package ml 提供推荐与零售分析所需的最小机器学习组件。
//
// 所有模型都遵循 Fit / Predict / Transform 的约定，调用方只依赖下面的接口，
// 具体实现可以随时替换。
package ml

import (
	"errors"
	"math"
)

var (
	ErrNotFitted       = errors.New("ml: model not fitted")
	ErrEmptyInput      = errors.New("ml: empty input")
	ErrShapeMismatch   = errors.New("ml: shape mismatch")
	ErrTooFewSamples   = errors.New("ml: fewer samples than clusters")
	ErrInvalidArgument = errors.New("ml: invalid argument")
	ErrInvalidModel    = errors.New("ml: invalid model")
)

// Regressor 回归模型
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) ([]float64, error)
	Fitted() bool
	Validate() error
}

// Clusterer 聚类模型
type Clusterer interface {
	Fit(X [][]float64) error
	Predict(X [][]float64) ([]int, error)
	Fitted() bool
	Validate() error
}

// Transformer 特征变换
type Transformer interface {
	Fit(X [][]float64) error
	Transform(X [][]float64) ([][]float64, error)
	Fitted() bool
	Validate() error
}

var (
	_ Regressor   = (*RandomForestRegressor)(nil)
	_ Clusterer   = (*KMeans)(nil)
	_ Transformer = (*StandardScaler)(nil)
)

// checkMatrix 校验矩阵非空且每行列数一致，返回列数
func checkMatrix(X [][]float64) (int, error) {
	if len(X) == 0 {
		return 0, ErrEmptyInput
	}
	cols := len(X[0])
	if cols == 0 {
		return 0, ErrEmptyInput
	}
	for _, row := range X {
		if len(row) != cols {
			return 0, ErrShapeMismatch
		}
	}
	return cols, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
