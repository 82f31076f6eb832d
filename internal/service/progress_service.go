package service

import (
	"context"
	"errors"
	"fmt"
	"learnhub/internal/model"
	"learnhub/internal/repository"
	"learnhub/internal/util"
	"learnhub/pkg/logger"
	"learnhub/pkg/monitoring"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ProgressService 记录模块完成度并维护课程总进度
type ProgressService struct {
	ProgressRepo repository.ProgressStore
	UserRepo     repository.UserStore
	Courses      *CourseService
	Cache        repository.RecommendationCache

	requireRegistration atomic.Bool
	// 读-改-写整条记录，串行化写入
	mu sync.Mutex
}

func NewProgressService(progressRepo repository.ProgressStore, userRepo repository.UserStore, courses *CourseService, cache repository.RecommendationCache, requireRegistration bool) *ProgressService {
	s := &ProgressService{
		ProgressRepo: progressRepo,
		UserRepo:     userRepo,
		Courses:      courses,
		Cache:        cache,
	}
	s.requireRegistration.Store(requireRegistration)
	return s
}

// SetRequireRegistration 配置热更新时调用
func (s *ProgressService) SetRequireRegistration(v bool) {
	s.requireRegistration.Store(v)
}

// SetModuleProgress 写入模块完成度后按完整模块表重算总进度。
// 课程不存在时记录照常保存，总进度为 0
func (s *ProgressService) SetModuleProgress(ctx context.Context, userID string, courseID, moduleID uint, percent float64) (*model.CourseProgress, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, util.ErrMissingFields
	}
	if math.IsNaN(percent) || percent < util.MinProgress || percent > util.MaxProgress {
		return nil, util.ErrInvalidProgress
	}
	if s.requireRegistration.Load() {
		if _, err := s.UserRepo.FindByID(userID); err != nil {
			return nil, err
		}
	}

	course, err := s.Courses.Get(courseID)
	if err != nil && !errors.Is(err, util.ErrCourseNotFound) {
		return nil, err
	}

	s.mu.Lock()
	progress, err := s.ProgressRepo.Find(userID, courseID)
	if errors.Is(err, util.ErrProgressNotFound) {
		progress = &model.CourseProgress{UserID: userID, CourseID: courseID}
		err = nil
	}
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if progress.Modules == nil {
		progress.Modules = make(map[uint]float64)
	}

	progress.Modules[moduleID] = percent
	progress.Recompute(course)
	err = s.ProgressRepo.Save(progress)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("save progress: %w", err)
	}

	invalidateRecommendations(ctx, s.Cache, userID)
	monitoring.ProgressUpdates.Inc()
	logger.Log.Debug("Progress updated",
		zap.String("user_id", userID),
		zap.Uint("course_id", courseID),
		zap.Uint("module_id", moduleID),
		zap.Float64("overall", progress.OverallProgress),
	)
	return progress, nil
}

// GetProgress 没有记录时返回空记录和 false，总进度视为 0
func (s *ProgressService) GetProgress(userID string, courseID uint) (*model.CourseProgress, bool, error) {
	progress, err := s.ProgressRepo.Find(userID, courseID)
	if errors.Is(err, util.ErrProgressNotFound) {
		return &model.CourseProgress{UserID: userID, CourseID: courseID, Modules: map[uint]float64{}}, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return progress, true, nil
}

// ListProgress 用户全部课程的进度，按课程 ID 排序
func (s *ProgressService) ListProgress(userID string) ([]model.CourseProgress, error) {
	list, err := s.ProgressRepo.FindByUser(userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.CourseProgress{}
	}
	return list, nil
}
