package service

import (
	"context"
	"fmt"
	"learnhub/internal/model"
	"learnhub/internal/repository"
	"learnhub/internal/util"
	"learnhub/pkg/logger"
	"learnhub/pkg/monitoring"
	"strings"
	"time"

	"go.uber.org/zap"
)

// UserService 处理用户注册与查询
type UserService struct {
	UserRepo     repository.UserStore
	ProgressRepo repository.ProgressStore
	Cache        repository.RecommendationCache
}

// NewUserService cache 可以为 nil
func NewUserService(userRepo repository.UserStore, progressRepo repository.ProgressStore, cache repository.RecommendationCache) *UserService {
	return &UserService{
		UserRepo:     userRepo,
		ProgressRepo: progressRepo,
		Cache:        cache,
	}
}

// Register 注册或覆盖用户，重新注册会清空该用户的学习进度
func (s *UserService) Register(ctx context.Context, id, interests, learningStyle string) (*model.User, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.TrimSpace(interests) == "" || strings.TrimSpace(learningStyle) == "" {
		return nil, util.ErrMissingFields
	}

	user := &model.User{
		ID:            id,
		Interests:     interests,
		LearningStyle: learningStyle,
		RegisteredAt:  time.Now(),
	}
	if err := s.UserRepo.Save(user); err != nil {
		return nil, fmt.Errorf("save user %s: %w", id, err)
	}
	if err := s.ProgressRepo.DeleteByUser(id); err != nil {
		return nil, fmt.Errorf("reset progress for %s: %w", id, err)
	}
	invalidateRecommendations(ctx, s.Cache, id)

	monitoring.UserRegistrations.Inc()
	logger.Log.Info("User registered", zap.String("user_id", id), zap.String("learning_style", learningStyle))
	return user, nil
}

// Lookup 未注册返回 util.ErrUserNotFound
func (s *UserService) Lookup(id string) (*model.User, error) {
	return s.UserRepo.FindByID(id)
}

func invalidateRecommendations(ctx context.Context, cache repository.RecommendationCache, userID string) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx, userID); err != nil {
		logger.Log.Warn("Failed to invalidate recommendation cache", zap.String("user_id", userID), zap.Error(err))
	}
}
