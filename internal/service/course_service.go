package service

import (
	"fmt"
	"learnhub/internal/model"
	"learnhub/internal/repository"
	"learnhub/pkg/logger"
	"sync"

	"go.uber.org/zap"
)

// CourseService 课程目录与相似度索引，目录变化时整体重建索引
type CourseService struct {
	CourseRepo *repository.CourseRepository

	mu    sync.RWMutex
	index *CatalogIndex
}

func NewCourseService(courseRepo *repository.CourseRepository) (*CourseService, error) {
	index, err := BuildIndex(courseRepo.List())
	if err != nil {
		return nil, fmt.Errorf("build catalog index: %w", err)
	}
	return &CourseService{CourseRepo: courseRepo, index: index}, nil
}

func (s *CourseService) List() []model.Course {
	return s.CourseRepo.List()
}

func (s *CourseService) Get(id uint) (*model.Course, error) {
	return s.CourseRepo.FindByID(id)
}

// Index 当前生效的索引
func (s *CourseService) Index() *CatalogIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// Reload 替换目录并重建索引，索引构建失败时保持原目录
func (s *CourseService) Reload(courses []model.Course) error {
	index, err := BuildIndex(courses)
	if err != nil {
		return fmt.Errorf("build catalog index: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.CourseRepo.Replace(courses)
	s.index = index
	logger.Log.Info("Course catalog reloaded", zap.Int("courses", index.Len()))
	return nil
}
