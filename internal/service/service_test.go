package service

import (
	"context"
	"errors"
	"learnhub/internal/model"
	"learnhub/internal/repository"
	"learnhub/internal/util"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	users     *repository.MemoryUserRepository
	progress  *repository.MemoryProgressRepository
	courses   *CourseService
	userSvc   *UserService
	progSvc   *ProgressService
	recommend *RecommendationService
}

func newTestEnv(t *testing.T, cache repository.RecommendationCache) *testEnv {
	t.Helper()
	courses, err := NewCourseService(repository.NewCourseRepository(repository.DefaultCourses()))
	require.NoError(t, err)

	env := &testEnv{
		users:    repository.NewMemoryUserRepository(),
		progress: repository.NewMemoryProgressRepository(),
		courses:  courses,
	}
	env.userSvc = NewUserService(env.users, env.progress, cache)
	env.progSvc = NewProgressService(env.progress, env.users, courses, cache, false)
	env.recommend = NewRecommendationService(env.users, env.progress, courses, cache, DefaultTopN)
	return env
}

// mockCache 基于 testify/mock 的推荐缓存
type mockCache struct {
	mock.Mock
}

func (m *mockCache) Version(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCache) Get(ctx context.Context, userID string, key repository.RecommendationKey) ([]model.Recommendation, bool, error) {
	args := m.Called(ctx, userID, key)
	recs, _ := args.Get(0).([]model.Recommendation)
	return recs, args.Bool(1), args.Error(2)
}

func (m *mockCache) Set(ctx context.Context, userID string, key repository.RecommendationKey, version int64, recs []model.Recommendation) error {
	return m.Called(ctx, userID, key, version, recs).Error(0)
}

func (m *mockCache) Invalidate(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func courseNames(ranked []RankedCourse) []string {
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.Course.Name
	}
	return out
}

func TestRankPythonProgramming(t *testing.T) {
	idx, err := BuildIndex(repository.DefaultCourses())
	require.NoError(t, err)

	ranked := idx.Rank("python programming", 2)
	require.Len(t, ranked, 2)
	assert.Equal(t, "Introduction to Python", ranked[0].Course.Name)
	assert.Greater(t, ranked[0].Score, ranked[1].Score)

	web := idx.Rank("web development", 1)
	require.Len(t, web, 1)
	assert.Equal(t, "Web Development Basics", web[0].Course.Name)
}

func TestRankTiesKeepCatalogOrder(t *testing.T) {
	idx, err := BuildIndex(repository.DefaultCourses())
	require.NoError(t, err)

	ranked := idx.Rank("underwater basket weaving", 0)
	assert.Equal(t, []string{"Introduction to Python", "Machine Learning Fundamentals", "Web Development Basics"}, courseNames(ranked))
	for _, r := range ranked {
		assert.Zero(t, r.Score)
	}

	assert.Len(t, idx.Rank("python", 10), 3)
}

func TestRankEmptyCatalog(t *testing.T) {
	idx, err := BuildIndex(nil)
	require.NoError(t, err)
	ranked := idx.Rank("python", 2)
	assert.NotNil(t, ranked)
	assert.Empty(t, ranked)
}

func TestCourseServiceReload(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.courses.Reload([]model.Course{
		{ID: 10, Name: "Go Concurrency", Description: "goroutines channels and select"},
	}))

	assert.Len(t, env.courses.List(), 1)
	_, err := env.courses.Get(1)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)

	ranked := env.courses.Index().Rank("channels", 2)
	require.Len(t, ranked, 1)
	assert.Equal(t, uint(10), ranked[0].Course.ID)
	assert.Greater(t, ranked[0].Score, 0.0)
}

func TestRegisterLastWriteWins(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.userSvc.Register(ctx, "alice", "python programming", "visual")
	require.NoError(t, err)
	_, err = env.userSvc.Register(ctx, "alice", "web development", "hands-on")
	require.NoError(t, err)

	user, err := env.userSvc.Lookup("alice")
	require.NoError(t, err)
	assert.Equal(t, "web development", user.Interests)
	assert.Equal(t, "hands-on", user.LearningStyle)
	assert.False(t, user.RegisteredAt.IsZero())

	_, err = env.userSvc.Lookup("bob")
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.userSvc.Register(context.Background(), "", "python", "visual")
	assert.ErrorIs(t, err, util.ErrMissingFields)
	_, err = env.userSvc.Register(context.Background(), "alice", "  ", "visual")
	assert.ErrorIs(t, err, util.ErrMissingFields)
}

func TestReRegistrationResetsProgress(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.userSvc.Register(ctx, "alice", "python", "visual")
	require.NoError(t, err)
	_, err = env.progSvc.SetModuleProgress(ctx, "alice", 1, 1, 100)
	require.NoError(t, err)

	_, err = env.userSvc.Register(ctx, "alice", "python", "visual")
	require.NoError(t, err)

	list, err := env.progSvc.ListProgress("alice")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestOverallProgressRecomputed(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	p, err := env.progSvc.SetModuleProgress(ctx, "alice", 1, 1, 100)
	require.NoError(t, err)
	assert.InDelta(t, 100.0/3, p.OverallProgress, 1e-9)

	p, err = env.progSvc.SetModuleProgress(ctx, "alice", 1, 2, 50)
	require.NoError(t, err)
	assert.InDelta(t, 100.0/3, p.OverallProgress, 1e-9)

	p, err = env.progSvc.SetModuleProgress(ctx, "alice", 1, 2, 100)
	require.NoError(t, err)
	assert.InDelta(t, 200.0/3, p.OverallProgress, 1e-9)

	// 完成度回退时总进度随之下降
	p, err = env.progSvc.SetModuleProgress(ctx, "alice", 1, 1, 20)
	require.NoError(t, err)
	assert.InDelta(t, 100.0/3, p.OverallProgress, 1e-9)

	// 不属于课程的模块不计入
	p, err = env.progSvc.SetModuleProgress(ctx, "alice", 1, 99, 100)
	require.NoError(t, err)
	assert.InDelta(t, 100.0/3, p.OverallProgress, 1e-9)
	assert.Len(t, p.Modules, 3)

	got, ok, err := env.progSvc.GetProgress("alice", 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, p.OverallProgress, got.OverallProgress)
}

func TestProgressValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	for _, v := range []float64{-1, 100.5} {
		_, err := env.progSvc.SetModuleProgress(ctx, "alice", 1, 1, v)
		assert.ErrorIs(t, err, util.ErrInvalidProgress)
	}
	for _, v := range []float64{0, 100} {
		_, err := env.progSvc.SetModuleProgress(ctx, "alice", 1, 1, v)
		assert.NoError(t, err)
	}
}

func TestProgressUnknownCourseStored(t *testing.T) {
	env := newTestEnv(t, nil)
	p, err := env.progSvc.SetModuleProgress(context.Background(), "alice", 42, 1, 100)
	require.NoError(t, err)
	assert.Zero(t, p.OverallProgress)

	got, ok, err := env.progSvc.GetProgress("alice", 42)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 100.0, got.Modules[1])
}

func TestGetProgressAbsent(t *testing.T) {
	env := newTestEnv(t, nil)
	got, ok, err := env.progSvc.GetProgress("nobody", 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, got.OverallProgress)
	assert.NotNil(t, got.Modules)
}

func TestProgressRequireRegistration(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.progSvc.SetRequireRegistration(true)

	_, err := env.progSvc.SetModuleProgress(ctx, "ghost", 1, 1, 50)
	assert.ErrorIs(t, err, util.ErrUserNotFound)

	_, err = env.userSvc.Register(ctx, "ghost", "python", "visual")
	require.NoError(t, err)
	_, err = env.progSvc.SetModuleProgress(ctx, "ghost", 1, 1, 50)
	assert.NoError(t, err)
}

func TestConcurrentProgressWrites(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, m := range []uint{1, 2, 3} {
		wg.Add(1)
		go func(module uint) {
			defer wg.Done()
			_, err := env.progSvc.SetModuleProgress(ctx, "alice", 2, module, 100)
			assert.NoError(t, err)
		}(m)
	}
	wg.Wait()

	got, _, err := env.progSvc.GetProgress("alice", 2)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.OverallProgress)
}

func TestRecommendUnknownUserEmpty(t *testing.T) {
	env := newTestEnv(t, nil)
	recs, err := env.recommend.Recommend(context.Background(), "nobody", 2)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestRecommendWithProgress(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.userSvc.Register(ctx, "alice", "python programming", "visual")
	require.NoError(t, err)
	_, err = env.progSvc.SetModuleProgress(ctx, "alice", 1, 1, 100)
	require.NoError(t, err)

	recs, err := env.recommend.Recommend(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, recs, DefaultTopN)
	assert.Equal(t, "Introduction to Python", recs[0].Name)
	assert.InDelta(t, 100.0/3, recs[0].Progress, 1e-9)
	assert.Zero(t, recs[1].Progress)

	all, err := env.recommend.Recommend(ctx, "alice", 5)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSetDefaultTopN(t *testing.T) {
	env := newTestEnv(t, nil)
	env.recommend.SetDefaultTopN(1)
	assert.Equal(t, 1, env.recommend.DefaultTopN())
	env.recommend.SetDefaultTopN(-3)
	assert.Equal(t, DefaultTopN, env.recommend.DefaultTopN())
}

func TestRecommendationCacheFlow(t *testing.T) {
	cache := new(mockCache)
	env := newTestEnv(t, cache)
	ctx := context.Background()
	key := repository.RecommendationKey{Catalog: env.courses.Index().Version(), TopN: 2}

	cache.On("Invalidate", mock.Anything, "alice").Return(nil)
	_, err := env.userSvc.Register(ctx, "alice", "python programming", "visual")
	require.NoError(t, err)

	cache.On("Version", mock.Anything, "alice").Return(int64(3), nil)
	cache.On("Get", mock.Anything, "alice", key).Return(nil, false, nil).Once()
	cache.On("Set", mock.Anything, "alice", key, int64(3), mock.Anything).Return(nil).Once()
	recs, err := env.recommend.Recommend(ctx, "alice", 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	cached := []model.Recommendation{{Course: model.Course{ID: 3, Name: "cached"}}}
	cache.On("Get", mock.Anything, "alice", key).Return(cached, true, nil).Once()
	got, err := env.recommend.Recommend(ctx, "alice", 2)
	require.NoError(t, err)
	assert.Equal(t, cached, got)

	_, err = env.progSvc.SetModuleProgress(ctx, "alice", 1, 1, 100)
	require.NoError(t, err)

	cache.AssertNumberOfCalls(t, "Invalidate", 2)
	cache.AssertExpectations(t)
}

func TestRecommendationCacheErrorsIgnored(t *testing.T) {
	cache := new(mockCache)
	env := newTestEnv(t, cache)
	ctx := context.Background()

	cache.On("Invalidate", mock.Anything, "alice").Return(errors.New("redis down"))
	cache.On("Version", mock.Anything, "alice").Return(int64(0), nil)
	cache.On("Get", mock.Anything, "alice", mock.Anything).Return(nil, false, errors.New("redis down"))
	cache.On("Set", mock.Anything, "alice", mock.Anything, int64(0), mock.Anything).Return(errors.New("redis down"))

	_, err := env.userSvc.Register(ctx, "alice", "machine learning", "visual")
	require.NoError(t, err)

	recs, err := env.recommend.Recommend(ctx, "alice", 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Machine Learning Fundamentals", recs[0].Name)
}

func TestRecommendationCacheVersionErrorSkipsCache(t *testing.T) {
	cache := new(mockCache)
	env := newTestEnv(t, cache)
	ctx := context.Background()

	cache.On("Invalidate", mock.Anything, "alice").Return(nil)
	cache.On("Version", mock.Anything, "alice").Return(int64(0), errors.New("redis down"))

	_, err := env.userSvc.Register(ctx, "alice", "machine learning", "visual")
	require.NoError(t, err)

	recs, err := env.recommend.Recommend(ctx, "alice", 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	cache.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecommendAfterCatalogReload(t *testing.T) {
	env := newTestEnv(t, repository.NewMemoryRecommendationCache(time.Hour))
	ctx := context.Background()

	_, err := env.userSvc.Register(ctx, "alice", "python programming", "visual")
	require.NoError(t, err)
	before, err := env.recommend.Recommend(ctx, "alice", 2)
	require.NoError(t, err)
	require.Len(t, before, 2)
	oldVersion := env.courses.Index().Version()

	require.NoError(t, env.courses.Reload([]model.Course{
		{ID: 10, Name: "Go Concurrency", Description: "Goroutines, channels and python interop"},
	}))
	assert.NotEqual(t, oldVersion, env.courses.Index().Version())

	after, err := env.recommend.Recommend(ctx, "alice", 2)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, uint(10), after[0].ID)
	for _, r := range after {
		_, err := env.courses.Get(r.ID)
		assert.NoError(t, err, "course %d must be in the catalog", r.ID)
	}
}

func TestRecommendationsRefreshAfterProgress(t *testing.T) {
	env := newTestEnv(t, repository.NewMemoryRecommendationCache(time.Hour))
	ctx := context.Background()

	_, err := env.userSvc.Register(ctx, "alice", "python programming", "visual")
	require.NoError(t, err)
	first, err := env.recommend.Recommend(ctx, "alice", 1)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Zero(t, first[0].Progress)

	_, err = env.progSvc.SetModuleProgress(ctx, "alice", first[0].ID, first[0].Modules[0].ID, 100)
	require.NoError(t, err)

	second, err := env.recommend.Recommend(ctx, "alice", 1)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Greater(t, second[0].Progress, 0.0)
}
