package service

import (
	"context"
	"errors"
	"learnhub/internal/model"
	"learnhub/internal/repository"
	"learnhub/internal/util"
	"learnhub/pkg/logger"
	"learnhub/pkg/monitoring"
	"learnhub/pkg/tracing"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const DefaultTopN = 2

// RecommendationService 按用户兴趣检索课程并附带学习进度
type RecommendationService struct {
	UserRepo     repository.UserStore
	ProgressRepo repository.ProgressStore
	Courses      *CourseService
	Cache        repository.RecommendationCache

	topN atomic.Int64
}

func NewRecommendationService(userRepo repository.UserStore, progressRepo repository.ProgressStore, courses *CourseService, cache repository.RecommendationCache, topN int) *RecommendationService {
	s := &RecommendationService{
		UserRepo:     userRepo,
		ProgressRepo: progressRepo,
		Courses:      courses,
		Cache:        cache,
	}
	s.SetDefaultTopN(topN)
	return s
}

// SetDefaultTopN 非正数回退到 DefaultTopN
func (s *RecommendationService) SetDefaultTopN(n int) {
	if n <= 0 {
		n = DefaultTopN
	}
	s.topN.Store(int64(n))
}

func (s *RecommendationService) DefaultTopN() int {
	return int(s.topN.Load())
}

// Recommend 未注册用户返回空列表；topN <= 0 使用默认值
func (s *RecommendationService) Recommend(ctx context.Context, userID string, topN int) (recs []model.Recommendation, err error) {
	if topN <= 0 {
		topN = s.DefaultTopN()
	}
	ctx, span := tracing.Start(ctx, "RecommendationService.Recommend",
		attribute.String("user_id", userID),
		attribute.Int("top_n", topN),
	)
	defer func() { tracing.End(span, err) }()

	// 版本号要在读取用户和进度之前取得，期间发生的失效会让后面的写入被丢弃
	cacheState := util.CacheDisabled
	var version int64
	cacheable := false
	if s.Cache != nil {
		cacheState = util.CacheMiss
		v, cerr := s.Cache.Version(ctx, userID)
		if cerr != nil {
			logger.Log.Warn("Recommendation cache version read failed", zap.String("user_id", userID), zap.Error(cerr))
		} else {
			version, cacheable = v, true
		}
	}

	user, err := s.UserRepo.FindByID(userID)
	if errors.Is(err, util.ErrUserNotFound) {
		return []model.Recommendation{}, nil
	}
	if err != nil {
		return nil, err
	}

	// 索引与缓存键取自同一快照，目录重载后旧条目自然失效
	index := s.Courses.Index()
	key := repository.RecommendationKey{Catalog: index.Version(), TopN: topN}

	if cacheable {
		cached, ok, cerr := s.Cache.Get(ctx, userID, key)
		if cerr != nil {
			logger.Log.Warn("Recommendation cache read failed", zap.String("user_id", userID), zap.Error(cerr))
		}
		if ok {
			monitoring.RecommendationCounter.WithLabelValues(util.CacheHit).Inc()
			return cached, nil
		}
	}

	progress, err := s.ProgressRepo.FindByUser(userID)
	if err != nil {
		return nil, err
	}
	overall := make(map[uint]float64, len(progress))
	for _, p := range progress {
		overall[p.CourseID] = p.OverallProgress
	}

	ranked := index.Rank(user.Interests, topN)
	recs = make([]model.Recommendation, 0, len(ranked))
	for _, r := range ranked {
		recs = append(recs, model.Recommendation{
			Course:   r.Course,
			Score:    r.Score,
			Progress: overall[r.Course.ID],
		})
	}

	if cacheable {
		if cerr := s.Cache.Set(ctx, userID, key, version, recs); cerr != nil {
			logger.Log.Warn("Recommendation cache write failed", zap.String("user_id", userID), zap.Error(cerr))
		}
	}
	monitoring.RecommendationCounter.WithLabelValues(cacheState).Inc()
	return recs, nil
}
