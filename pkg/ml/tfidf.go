package ml

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

var tokenPattern = regexp.MustCompile(`\b\w\w+\b`)

// Tokenize 小写化后提取长度不小于 2 的单词
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// SparseVector 稀疏向量，Indices 严格递增
type SparseVector struct {
	Indices []int     `json:"indices"`
	Values  []float64 `json:"values"`
}

// Dot 两个稀疏向量的内积
func (v SparseVector) Dot(o SparseVector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.Indices) && j < len(o.Indices) {
		switch {
		case v.Indices[i] == o.Indices[j]:
			sum += v.Values[i] * o.Values[j]
			i++
			j++
		case v.Indices[i] < o.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Norm L2 范数
func (v SparseVector) Norm() float64 {
	if len(v.Values) == 0 {
		return 0
	}
	return floats.Norm(v.Values, 2)
}

// TfidfVectorizer 词频-逆文档频率向量化器
//
// 词表在 Fit 时固定，Transform 时忽略词表外的词。idf 使用平滑公式
// ln((1+n)/(1+df)) + 1，每一行做 L2 归一化。
type TfidfVectorizer struct {
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
}

func NewTfidfVectorizer() *TfidfVectorizer {
	return &TfidfVectorizer{}
}

func (t *TfidfVectorizer) Fitted() bool {
	return t.Vocabulary != nil
}

// Fit 基于文档集合构建词表与 idf
func (t *TfidfVectorizer) Fit(docs []string) error {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, tok := range Tokenize(doc) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	n := float64(len(docs))
	t.Vocabulary = make(map[string]int, len(terms))
	t.IDF = make([]float64, len(terms))
	for i, term := range terms {
		t.Vocabulary[term] = i
		t.IDF[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return nil
}

// Transform 将文档转换为归一化后的 tf-idf 稀疏向量
func (t *TfidfVectorizer) Transform(docs []string) ([]SparseVector, error) {
	if !t.Fitted() {
		return nil, ErrNotFitted
	}

	out := make([]SparseVector, len(docs))
	for d, doc := range docs {
		counts := make(map[int]float64)
		for _, tok := range Tokenize(doc) {
			if idx, ok := t.Vocabulary[tok]; ok {
				counts[idx]++
			}
		}

		vec := SparseVector{
			Indices: make([]int, 0, len(counts)),
			Values:  make([]float64, 0, len(counts)),
		}
		for idx := range counts {
			vec.Indices = append(vec.Indices, idx)
		}
		sort.Ints(vec.Indices)
		for _, idx := range vec.Indices {
			vec.Values = append(vec.Values, counts[idx]*t.IDF[idx])
		}

		if norm := vec.Norm(); norm > 0 {
			floats.Scale(1/norm, vec.Values)
		}
		out[d] = vec
	}
	return out, nil
}

// FitTransform 先 Fit 再 Transform
func (t *TfidfVectorizer) FitTransform(docs []string) ([]SparseVector, error) {
	if err := t.Fit(docs); err != nil {
		return nil, err
	}
	return t.Transform(docs)
}

// CosineSimilarity 余弦相似度，任一向量为零向量时返回 0
func CosineSimilarity(a, b SparseVector) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	return a.Dot(b) / (na * nb)
}
