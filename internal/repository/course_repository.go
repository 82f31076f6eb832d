package repository

import (
	"fmt"
	"learnhub/internal/model"
	"learnhub/internal/util"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// CourseRepository 内存中的课程目录
type CourseRepository struct {
	mu      sync.RWMutex
	courses []model.Course
}

func NewCourseRepository(courses []model.Course) *CourseRepository {
	r := &CourseRepository{}
	r.Replace(courses)
	return r
}

// List 按目录顺序返回全部课程的副本
func (r *CourseRepository) List() []model.Course {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Course, len(r.courses))
	for i, c := range r.courses {
		out[i] = c.Clone()
	}
	return out
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.courses {
		if c.ID == id {
			course := c.Clone()
			return &course, nil
		}
	}
	return nil, util.ErrCourseNotFound
}

// Replace 整体替换目录内容
func (r *CourseRepository) Replace(courses []model.Course) {
	cp := make([]model.Course, len(courses))
	for i, c := range courses {
		cp[i] = c.Clone()
	}

	r.mu.Lock()
	r.courses = cp
	r.mu.Unlock()
}

// LoadCatalogFile 从 YAML 文件读取课程目录，课程 ID 不能重复
func LoadCatalogFile(path string) ([]model.Course, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var courses []model.Course
	if err := yaml.Unmarshal(data, &courses); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	seen := make(map[uint]struct{}, len(courses))
	for _, c := range courses {
		if _, ok := seen[c.ID]; ok {
			return nil, fmt.Errorf("catalog %s: duplicate course id %d", path, c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return courses, nil
}

// DefaultCourses 内置示例课程
func DefaultCourses() []model.Course {
	return []model.Course{
		{
			ID:          1,
			Name:        "Introduction to Python",
			Description: "Learn the basics of Python programming language, including variables, loops, and functions",
			Difficulty:  "beginner",
			Topics:      []string{"programming", "python", "computer science"},
			Modules: []model.CourseModule{
				{ID: 1, Title: "Variables and Data Types", Duration: 30},
				{ID: 2, Title: "Control Flow", Duration: 45},
				{ID: 3, Title: "Functions", Duration: 40},
			},
		},
		{
			ID:          2,
			Name:        "Machine Learning Fundamentals",
			Description: "Understanding core concepts of machine learning, AI, and data analysis",
			Difficulty:  "intermediate",
			Topics:      []string{"AI", "machine learning", "data science"},
			Modules: []model.CourseModule{
				{ID: 1, Title: "Introduction to ML", Duration: 45},
				{ID: 2, Title: "Supervised Learning", Duration: 60},
				{ID: 3, Title: "Model Evaluation", Duration: 45},
			},
		},
		{
			ID:          3,
			Name:        "Web Development Basics",
			Description: "Learn HTML, CSS, and JavaScript fundamentals for web development",
			Difficulty:  "beginner",
			Topics:      []string{"web development", "HTML", "CSS", "JavaScript"},
			Modules: []model.CourseModule{
				{ID: 1, Title: "HTML Basics", Duration: 30},
				{ID: 2, Title: "CSS Styling", Duration: 45},
				{ID: 3, Title: "JavaScript Fundamentals", Duration: 60},
			},
		},
	}
}
