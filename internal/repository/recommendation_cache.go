package repository

import (
	"context"
	"errors"
	"fmt"
	"learnhub/internal/model"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
)

// RecommendationKey 缓存条目的定位信息，Catalog 为目录指纹，目录变化后旧条目不会再命中
type RecommendationKey struct {
	Catalog string
	TopN    int
}

func (k RecommendationKey) field() string {
	return fmt.Sprintf("%s:%d", k.Catalog, k.TopN)
}

// RecommendationCache 推荐结果缓存。
//
// 每个用户有一个版本号，Invalidate 会递增版本号；Set 只在版本号与调用方读取时一致的情况下写入，
// 避免并发的进度更新之后又写回旧结果。
type RecommendationCache interface {
	Version(ctx context.Context, userID string) (int64, error)
	Get(ctx context.Context, userID string, key RecommendationKey) ([]model.Recommendation, bool, error)
	Set(ctx context.Context, userID string, key RecommendationKey, version int64, recs []model.Recommendation) error
	Invalidate(ctx context.Context, userID string) error
}

// RedisRecommendationCache 每个用户一个 hash，field 为 目录指纹:topN，版本号单独存放
type RedisRecommendationCache struct {
	Redis  *redis.Client
	TTL    time.Duration
	prefix string
}

func NewRedisRecommendationCache(rdb *redis.Client, ttl time.Duration) *RedisRecommendationCache {
	return &RedisRecommendationCache{Redis: rdb, TTL: ttl, prefix: "recommend:user:"}
}

func (c *RedisRecommendationCache) key(userID string) string {
	return c.prefix + userID
}

func (c *RedisRecommendationCache) versionKey(userID string) string {
	return c.prefix + userID + ":version"
}

func versionOf(cmd *redis.StringCmd) (int64, error) {
	v, err := cmd.Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *RedisRecommendationCache) Version(ctx context.Context, userID string) (int64, error) {
	return versionOf(c.Redis.Get(ctx, c.versionKey(userID)))
}

func (c *RedisRecommendationCache) Get(ctx context.Context, userID string, key RecommendationKey) ([]model.Recommendation, bool, error) {
	raw, err := c.Redis.HGet(ctx, c.key(userID), key.field()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var recs []model.Recommendation
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, false, fmt.Errorf("decode cached recommendations: %w", err)
	}
	return recs, true, nil
}

// Set 通过 WATCH 版本号实现条件写入，版本已变化或事务冲突时放弃写入
func (c *RedisRecommendationCache) Set(ctx context.Context, userID string, key RecommendationKey, version int64, recs []model.Recommendation) error {
	data, err := json.Marshal(recs)
	if err != nil {
		return err
	}

	hkey, vkey := c.key(userID), c.versionKey(userID)
	err = c.Redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := versionOf(tx.Get(ctx, vkey))
		if err != nil {
			return err
		}
		if current != version {
			return nil
		}
		fields, err := tx.HKeys(ctx, hkey).Result()
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			// 清理旧目录留下的条目
			for _, f := range fields {
				if !strings.HasPrefix(f, key.Catalog+":") {
					pipe.HDel(ctx, hkey, f)
				}
			}
			pipe.HSet(ctx, hkey, key.field(), data)
			if c.TTL > 0 {
				pipe.Expire(ctx, hkey, c.TTL)
			}
			return nil
		})
		return err
	}, vkey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (c *RedisRecommendationCache) Invalidate(ctx context.Context, userID string) error {
	pipe := c.Redis.TxPipeline()
	pipe.Incr(ctx, c.versionKey(userID))
	pipe.Del(ctx, c.key(userID))
	_, err := pipe.Exec(ctx)
	return err
}

type cachedRecommendations struct {
	recs      []model.Recommendation
	expiresAt time.Time
}

type userRecommendations struct {
	version int64
	entries map[RecommendationKey]cachedRecommendations
}

// MemoryRecommendationCache 未启用 redis 时使用的进程内缓存
type MemoryRecommendationCache struct {
	TTL time.Duration

	mu    sync.Mutex
	users map[string]*userRecommendations
	now   func() time.Time
}

func NewMemoryRecommendationCache(ttl time.Duration) *MemoryRecommendationCache {
	return &MemoryRecommendationCache{
		TTL:   ttl,
		users: make(map[string]*userRecommendations),
		now:   time.Now,
	}
}

func (c *MemoryRecommendationCache) user(userID string) *userRecommendations {
	u, ok := c.users[userID]
	if !ok {
		u = &userRecommendations{entries: make(map[RecommendationKey]cachedRecommendations)}
		c.users[userID] = u
	}
	return u
}

func (c *MemoryRecommendationCache) Version(_ context.Context, userID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if u, ok := c.users[userID]; ok {
		return u.version, nil
	}
	return 0, nil
}

func (c *MemoryRecommendationCache) Get(_ context.Context, userID string, key RecommendationKey) ([]model.Recommendation, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	u, ok := c.users[userID]
	if !ok {
		return nil, false, nil
	}
	entry, ok := u.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		delete(u.entries, key)
		return nil, false, nil
	}
	return append([]model.Recommendation{}, entry.recs...), true, nil
}

func (c *MemoryRecommendationCache) Set(_ context.Context, userID string, key RecommendationKey, version int64, recs []model.Recommendation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	u := c.user(userID)
	if u.version != version {
		return nil
	}
	for k := range u.entries {
		if k.Catalog != key.Catalog {
			delete(u.entries, k)
		}
	}

	entry := cachedRecommendations{recs: append([]model.Recommendation{}, recs...)}
	if c.TTL > 0 {
		entry.expiresAt = c.now().Add(c.TTL)
	}
	u.entries[key] = entry
	return nil
}

func (c *MemoryRecommendationCache) Invalidate(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	u := c.user(userID)
	u.version++
	u.entries = make(map[RecommendationKey]cachedRecommendations)
	return nil
}
