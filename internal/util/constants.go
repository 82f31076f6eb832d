package util

// 进度取值范围
const (
	MinProgress = 0.0
	MaxProgress = 100.0
)

// 推荐结果缓存状态，用作指标标签
const (
	CacheHit      = "hit"
	CacheMiss     = "miss"
	CacheDisabled = "disabled"
)
