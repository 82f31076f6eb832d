package service

import (
	"fmt"
	"hash/fnv"
	"learnhub/internal/model"
	"learnhub/pkg/ml"
	"sort"

	"github.com/goccy/go-json"
)

// RankedCourse 检索结果中的一门课程及其相似度
type RankedCourse struct {
	Course model.Course
	Score  float64
}

// CatalogIndex 课程描述的 tf-idf 索引，词表在构建时固定
type CatalogIndex struct {
	courses    []model.Course
	vectorizer *ml.TfidfVectorizer
	rows       []ml.SparseVector
	version    string
}

// BuildIndex 基于全部课程描述重新拟合向量化器
func BuildIndex(courses []model.Course) (*CatalogIndex, error) {
	idx := &CatalogIndex{
		courses:    make([]model.Course, len(courses)),
		vectorizer: ml.NewTfidfVectorizer(),
	}
	docs := make([]string, len(courses))
	for i, c := range courses {
		idx.courses[i] = c.Clone()
		docs[i] = c.Description
	}

	version, err := catalogVersion(idx.courses)
	if err != nil {
		return nil, err
	}
	idx.version = version
	if len(docs) == 0 {
		return idx, nil
	}

	rows, err := idx.vectorizer.FitTransform(docs)
	if err != nil {
		return nil, err
	}
	idx.rows = rows
	return idx, nil
}

// catalogVersion 目录内容的指纹，内容相同的目录得到相同的值，重启后仍然稳定
func catalogVersion(courses []model.Course) (string, error) {
	data, err := json.Marshal(courses)
	if err != nil {
		return "", fmt.Errorf("fingerprint catalog: %w", err)
	}
	h := fnv.New64a()
	h.Write(data)
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// Version 构建索引时目录的指纹，用作推荐缓存键的一部分
func (idx *CatalogIndex) Version() string {
	return idx.version
}

// Len 索引中的课程数
func (idx *CatalogIndex) Len() int {
	return len(idx.courses)
}

// Rank 按与查询的余弦相似度降序排列课程，分数相同保持目录顺序。
// topN <= 0 或超过目录大小时返回全部课程
func (idx *CatalogIndex) Rank(query string, topN int) []RankedCourse {
	if len(idx.courses) == 0 {
		return []RankedCourse{}
	}

	qv, err := idx.vectorizer.Transform([]string{query})
	if err != nil {
		return []RankedCourse{}
	}

	ranked := make([]RankedCourse, len(idx.courses))
	for i, c := range idx.courses {
		ranked[i] = RankedCourse{Course: c.Clone(), Score: ml.CosineSimilarity(qv[0], idx.rows[i])}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if topN > 0 && topN < len(ranked) {
		ranked = ranked[:topN]
	}
	return ranked
}
