// Package retail 零售分析工具包：库存需求预测、动态定价、客户分群与营销规则。
//
// 三个模型各自独立，都有 untrained / trained 两种状态。未训练时调用依赖模型的
// 方法会返回 ErrNotTrained，不会返回默认值。训练使用排他锁，预测使用共享锁。
package retail

import (
	"math"
	"sync"
	"time"

	"learnhub/pkg/logger"
	"learnhub/pkg/ml"
	"learnhub/pkg/monitoring"

	"go.uber.org/zap"
)

// estimatorState 记录单个模型的训练状态
type estimatorState struct {
	name          string
	trained       bool
	version       int
	lastTrainedAt time.Time
	mu            sync.RWMutex
}

func (s *estimatorState) markTrained(at time.Time) {
	s.trained = true
	s.version++
	s.lastTrainedAt = at
}

// observeTraining 记录训练耗时与结果
func observeTraining(name string, start time.Time, n int, err error) {
	monitoring.ObserveTraining(name, start, err)
	if err != nil {
		logger.Log.Warn("Model training failed", zap.String("model", name), zap.Int("samples", n), zap.Error(err))
		return
	}
	logger.Log.Info("Model trained", zap.String("model", name), zap.Int("samples", n), zap.Duration("took", time.Since(start)))
}

// Status 模型状态快照
type Status struct {
	Name          string    `json:"name"`
	Trained       bool      `json:"trained"`
	Version       int       `json:"version"`
	LastTrainedAt time.Time `json:"last_trained_at,omitempty"`
}

func (s *estimatorState) status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{Name: s.name, Trained: s.trained, Version: s.version, LastTrainedAt: s.lastTrainedAt}
}

// Toolkit 持有每个关注点至多一个已训练模型，以及一个客户特征标准化器
type Toolkit struct {
	opts Options

	inventoryState estimatorState
	inventory      ml.Regressor

	pricingState estimatorState
	pricing      ml.Regressor

	segmentState estimatorState
	segments     *ml.KMeans
	scaler       *ml.StandardScaler
	labels       map[int]string
}

func NewToolkit(opts Options) *Toolkit {
	return &Toolkit{
		opts:           opts.withDefaults(),
		inventoryState: estimatorState{name: "inventory"},
		pricingState:   estimatorState{name: "pricing"},
		segmentState:   estimatorState{name: "segmentation"},
		scaler:         ml.NewStandardScaler(),
	}
}

// Status 返回三个模型的状态
func (t *Toolkit) Status() []Status {
	return []Status{t.inventoryState.status(), t.pricingState.status(), t.segmentState.status()}
}

func (t *Toolkit) newForest() *ml.RandomForestRegressor {
	return ml.NewRandomForestRegressor(t.opts.Trees, t.opts.Seed)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
