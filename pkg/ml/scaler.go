package ml

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler 按列标准化为零均值、单位方差（总体标准差）
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

func (s *StandardScaler) Fitted() bool {
	return len(s.Mean) > 0
}

// Validate 均值与标准差长度一致，标准差必须为正的有限值
func (s *StandardScaler) Validate() error {
	if !s.Fitted() {
		return ErrNotFitted
	}
	if len(s.Scale) != len(s.Mean) {
		return fmt.Errorf("%w: %d means but %d scales", ErrInvalidModel, len(s.Mean), len(s.Scale))
	}
	for j := range s.Mean {
		if !finite(s.Mean[j]) || !finite(s.Scale[j]) || s.Scale[j] <= 0 {
			return fmt.Errorf("%w: column %d has mean %v scale %v", ErrInvalidModel, j, s.Mean[j], s.Scale[j])
		}
	}
	return nil
}

func (s *StandardScaler) Fit(X [][]float64) error {
	cols, err := checkMatrix(X)
	if err != nil {
		return err
	}

	mean := make([]float64, cols)
	scale := make([]float64, cols)
	col := make([]float64, len(X))
	for j := 0; j < cols; j++ {
		for i, row := range X {
			col[i] = row[j]
		}
		m, std := stat.PopMeanStdDev(col, nil)
		mean[j] = m
		// 常量列保持原值
		if std == 0 {
			std = 1
		}
		scale[j] = std
	}

	s.Mean = mean
	s.Scale = scale
	return nil
}

func (s *StandardScaler) Transform(X [][]float64) ([][]float64, error) {
	if !s.Fitted() {
		return nil, ErrNotFitted
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		if len(row) != len(s.Mean) {
			return nil, ErrShapeMismatch
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Mean[j]) / s.Scale[j]
		}
		out[i] = scaled
	}
	return out, nil
}

func (s *StandardScaler) FitTransform(X [][]float64) ([][]float64, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}
