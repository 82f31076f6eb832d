package ml

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"learn", "the", "basics", "of", "python"}, Tokenize("Learn the basics of Python, a b"))
	assert.Empty(t, Tokenize(""))
}

func TestTfidfRanksMatchingDocument(t *testing.T) {
	docs := []string{
		"Learn the basics of Python programming language, including variables, loops, and functions",
		"Understanding core concepts of machine learning, AI, and data analysis",
		"Learn HTML, CSS, and JavaScript fundamentals for web development",
	}
	v := NewTfidfVectorizer()
	rows, err := v.FitTransform(docs)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	for _, row := range rows {
		assert.InDelta(t, 1.0, row.Norm(), 1e-9)
	}

	q, err := v.Transform([]string{"python programming"})
	require.NoError(t, err)
	s0 := CosineSimilarity(q[0], rows[0])
	assert.Greater(t, s0, 0.0)
	assert.Equal(t, 0.0, CosineSimilarity(q[0], rows[1]))
	assert.Equal(t, 0.0, CosineSimilarity(q[0], rows[2]))
}

func TestTfidfTransformBeforeFit(t *testing.T) {
	_, err := NewTfidfVectorizer().Transform([]string{"x"})
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestTfidfUnknownTermsGiveZeroVector(t *testing.T) {
	v := NewTfidfVectorizer()
	require.NoError(t, v.Fit([]string{"alpha beta"}))
	q, err := v.Transform([]string{"gamma"})
	require.NoError(t, err)
	assert.Empty(t, q[0].Indices)
	assert.Equal(t, 0.0, CosineSimilarity(q[0], q[0]))
}

func TestSparseDot(t *testing.T) {
	a := SparseVector{Indices: []int{0, 2, 5}, Values: []float64{1, 2, 3}}
	b := SparseVector{Indices: []int{2, 3, 5}, Values: []float64{4, 7, 1}}
	assert.Equal(t, 11.0, a.Dot(b))
}

func TestStandardScaler(t *testing.T) {
	s := NewStandardScaler()
	out, err := s.FitTransform([][]float64{{1, 5}, {3, 5}})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 5}, s.Mean)
	assert.Equal(t, []float64{1, 1}, s.Scale)
	assert.Equal(t, [][]float64{{-1, 0}, {1, 0}}, out)

	_, err = NewStandardScaler().Transform([][]float64{{1}})
	assert.ErrorIs(t, err, ErrNotFitted)
	_, err = s.Transform([][]float64{{1}})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestRandomForestLearnsStepFunction(t *testing.T) {
	var X [][]float64
	var y []float64
	for i := 0; i < 40; i++ {
		x := float64(i)
		X = append(X, []float64{x, 0})
		if i < 20 {
			y = append(y, 10)
		} else {
			y = append(y, 50)
		}
	}

	f := NewRandomForestRegressor(20, 42)
	require.NoError(t, f.Fit(X, y))
	pred, err := f.Predict([][]float64{{2, 0}, {37, 0}})
	require.NoError(t, err)
	assert.InDelta(t, 10, pred[0], 1e-9)
	assert.InDelta(t, 50, pred[1], 1e-9)
}

func TestRandomForestDeterministic(t *testing.T) {
	X := [][]float64{{1, 2}, {2, 1}, {3, 4}, {4, 3}, {5, 5}, {6, 1}}
	y := []float64{3, 5, 2, 8, 1, 9}
	a := NewRandomForestRegressor(10, 7)
	b := NewRandomForestRegressor(10, 7)
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))
	pa, _ := a.Predict([][]float64{{3.5, 2}})
	pb, _ := b.Predict([][]float64{{3.5, 2}})
	assert.Equal(t, pa, pb)
}

func TestRandomForestErrors(t *testing.T) {
	f := NewRandomForestRegressor(5, 1)
	_, err := f.Predict([][]float64{{1}})
	assert.ErrorIs(t, err, ErrNotFitted)
	assert.ErrorIs(t, f.Fit(nil, nil), ErrEmptyInput)
	assert.ErrorIs(t, f.Fit([][]float64{{1}, {2}}, []float64{1}), ErrShapeMismatch)

	require.NoError(t, f.Fit([][]float64{{1}, {2}}, []float64{1, 2}))
	_, err = f.Predict([][]float64{{1, 2}})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestKMeansSeparatesBlobs(t *testing.T) {
	X := [][]float64{
		{0, 0}, {0.1, 0}, {0, 0.1},
		{10, 10}, {10.1, 10}, {10, 10.1},
	}
	km := NewKMeans(2, 42)
	labels, err := km.FitPredict(X)
	require.NoError(t, err)
	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[0], labels[2])
	assert.Equal(t, labels[3], labels[4])
	assert.NotEqual(t, labels[0], labels[3])
	assert.False(t, math.IsInf(km.Inertia, 0))
}

func TestKMeansErrors(t *testing.T) {
	km := NewKMeans(4, 1)
	_, err := km.Predict([][]float64{{1}})
	assert.ErrorIs(t, err, ErrNotFitted)
	assert.ErrorIs(t, km.Fit([][]float64{{1}, {2}}), ErrTooFewSamples)
	assert.ErrorIs(t, NewKMeans(0, 1).Fit([][]float64{{1}}), ErrInvalidArgument)
}

func TestValidateFittedModels(t *testing.T) {
	X := [][]float64{{1, 2}, {2, 1}, {3, 4}, {4, 3}, {5, 5}, {6, 1}}
	y := []float64{3, 5, 2, 8, 1, 9}

	f := NewRandomForestRegressor(10, 7)
	assert.ErrorIs(t, f.Validate(), ErrNotFitted)
	require.NoError(t, f.Fit(X, y))
	assert.NoError(t, f.Validate())

	km := NewKMeans(2, 7)
	assert.ErrorIs(t, km.Validate(), ErrNotFitted)
	require.NoError(t, km.Fit(X))
	assert.NoError(t, km.Validate())
	assert.Equal(t, 2, km.Dims())

	s := NewStandardScaler()
	assert.ErrorIs(t, s.Validate(), ErrNotFitted)
	require.NoError(t, s.Fit([][]float64{{1, 5}, {3, 5}}))
	assert.NoError(t, s.Validate())
}

func TestRandomForestValidateRejectsBrokenTrees(t *testing.T) {
	leaf := TreeNode{Feature: -1, Left: -1, Right: -1, Value: 1}
	cases := map[string]*RandomForestRegressor{
		"empty nodes":          {NFeatures: 3, Trees: []*RegressionTree{{}}},
		"null tree":            {NFeatures: 3, Trees: []*RegressionTree{nil}},
		"no features":          {NFeatures: 0, Trees: []*RegressionTree{{Nodes: []TreeNode{leaf}}}},
		"child out of range":   {NFeatures: 3, Trees: []*RegressionTree{{Nodes: []TreeNode{{Feature: 0, Left: 5, Right: 6}}}}},
		"self loop":            {NFeatures: 3, Trees: []*RegressionTree{{Nodes: []TreeNode{{Feature: 0, Left: 0, Right: 0}}}}},
		"feature out of range": {NFeatures: 3, Trees: []*RegressionTree{{Nodes: []TreeNode{{Feature: 3, Left: 1, Right: 2}, leaf, leaf}}}},
		"nan leaf":             {NFeatures: 3, Trees: []*RegressionTree{{Nodes: []TreeNode{{Feature: -1, Left: -1, Right: -1, Value: math.NaN()}}}}},
	}
	for name, f := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, f.Validate(), ErrInvalidModel)
		})
	}
}

func TestKMeansValidateRejectsBrokenCentroids(t *testing.T) {
	cases := map[string]*KMeans{
		"k mismatch": {K: 4, Centroids: [][]float64{{0, 0, 0}}},
		"ragged":     {K: 2, Centroids: [][]float64{{0, 0, 0}, {1, 1}}},
		"empty":      {K: 1, Centroids: [][]float64{{}}},
		"non-finite": {K: 1, Centroids: [][]float64{{0, math.Inf(1), 0}}},
	}
	for name, km := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, km.Validate(), ErrInvalidModel)
		})
	}
}

func TestStandardScalerValidateRejectsBrokenColumns(t *testing.T) {
	cases := map[string]*StandardScaler{
		"length mismatch": {Mean: []float64{0, 0, 0}, Scale: []float64{1, 1}},
		"zero scale":      {Mean: []float64{0, 0, 0}, Scale: []float64{1, 0, 1}},
		"nan mean":        {Mean: []float64{math.NaN()}, Scale: []float64{1}},
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, s.Validate(), ErrInvalidModel)
		})
	}
}
