package retail

import (
	"context"
	"fmt"
	"time"

	"learnhub/pkg/ml"
	"learnhub/pkg/storage"

	"github.com/goccy/go-json"
)

const (
	InventoryArtifact    = "inventory_model.json"
	PricingArtifact      = "pricing_model.json"
	SegmentationArtifact = "segmentation_model.json"
	ScalerArtifact       = "scaler.json"

	contentTypeJSON = "application/json"

	// 三个模型都使用三维特征
	featureCount = 3
)

type artifact[T any] struct {
	Kind      string    `json:"kind"`
	Version   int       `json:"version"`
	TrainedAt time.Time `json:"trained_at"`
	Model     T         `json:"model"`
}

type segmentationModel struct {
	KMeans *ml.KMeans     `json:"kmeans"`
	Labels map[int]string `json:"labels"`
}

// Save 把已训练的模型写入本地目录，每个关注点一个文件，未训练的模型跳过
func (t *Toolkit) Save(ctx context.Context, dir string) error {
	return t.SaveTo(ctx, storage.NewLocalProvider(dir), "")
}

// Load 从本地目录加载全部模型，任一文件缺失或损坏都会返回错误
func (t *Toolkit) Load(ctx context.Context, dir string) error {
	return t.LoadFrom(ctx, storage.NewLocalProvider(dir), "")
}

// SaveTo 写入任意存储后端，prefix 为对象名前缀
func (t *Toolkit) SaveTo(ctx context.Context, store storage.Provider, prefix string) error {
	if err := saveForest(ctx, store, prefix, InventoryArtifact, &t.inventoryState, func() ml.Regressor { return t.inventory }); err != nil {
		return err
	}
	if err := saveForest(ctx, store, prefix, PricingArtifact, &t.pricingState, func() ml.Regressor { return t.pricing }); err != nil {
		return err
	}

	t.segmentState.mu.RLock()
	defer t.segmentState.mu.RUnlock()
	if t.segmentState.trained {
		seg := artifact[segmentationModel]{
			Kind:      t.segmentState.name,
			Version:   t.segmentState.version,
			TrainedAt: t.segmentState.lastTrainedAt,
			Model:     segmentationModel{KMeans: t.segments, Labels: t.labels},
		}
		if err := writeArtifact(ctx, store, storage.Join(prefix, SegmentationArtifact), seg); err != nil {
			return err
		}
	}
	if t.scaler != nil && t.scaler.Fitted() {
		sc := artifact[*ml.StandardScaler]{Kind: "scaler", Version: t.segmentState.version, TrainedAt: t.segmentState.lastTrainedAt, Model: t.scaler}
		if err := writeArtifact(ctx, store, storage.Join(prefix, ScalerArtifact), sc); err != nil {
			return err
		}
	}
	return nil
}

func saveForest(ctx context.Context, store storage.Provider, prefix, name string, state *estimatorState, model func() ml.Regressor) error {
	state.mu.RLock()
	defer state.mu.RUnlock()
	if !state.trained {
		return nil
	}

	forest, ok := model().(*ml.RandomForestRegressor)
	if !ok {
		return fmt.Errorf("save %s: unsupported model type %T", state.name, model())
	}
	return writeArtifact(ctx, store, storage.Join(prefix, name), artifact[*ml.RandomForestRegressor]{
		Kind:      state.name,
		Version:   state.version,
		TrainedAt: state.lastTrainedAt,
		Model:     forest,
	})
}

// LoadFrom 先解码全部文件，全部成功后才替换当前模型
func (t *Toolkit) LoadFrom(ctx context.Context, store storage.Provider, prefix string) error {
	var (
		inv    artifact[*ml.RandomForestRegressor]
		price  artifact[*ml.RandomForestRegressor]
		seg    artifact[segmentationModel]
		scaler artifact[*ml.StandardScaler]
	)
	if err := readArtifact(ctx, store, storage.Join(prefix, InventoryArtifact), &inv); err != nil {
		return err
	}
	if err := readArtifact(ctx, store, storage.Join(prefix, PricingArtifact), &price); err != nil {
		return err
	}
	if err := readArtifact(ctx, store, storage.Join(prefix, SegmentationArtifact), &seg); err != nil {
		return err
	}
	if err := readArtifact(ctx, store, storage.Join(prefix, ScalerArtifact), &scaler); err != nil {
		return err
	}

	if err := validateForest(InventoryArtifact, inv.Model); err != nil {
		return err
	}
	if err := validateForest(PricingArtifact, price.Model); err != nil {
		return err
	}
	if err := validateSegmentation(seg.Model); err != nil {
		return err
	}
	if err := validateScaler(scaler.Model); err != nil {
		return err
	}

	t.inventoryState.mu.Lock()
	defer t.inventoryState.mu.Unlock()
	t.pricingState.mu.Lock()
	defer t.pricingState.mu.Unlock()
	t.segmentState.mu.Lock()
	defer t.segmentState.mu.Unlock()

	t.inventory = inv.Model
	restoreState(&t.inventoryState, inv.Version, inv.TrainedAt)
	t.pricing = price.Model
	restoreState(&t.pricingState, price.Version, price.TrainedAt)
	t.segments = seg.Model.KMeans
	t.labels = seg.Model.Labels
	t.scaler = scaler.Model
	restoreState(&t.segmentState, seg.Version, seg.TrainedAt)
	return nil
}

func validateForest(name string, f *ml.RandomForestRegressor) error {
	if f == nil {
		return fmt.Errorf("load %s: %w", name, ErrCorruptArtifact)
	}
	if err := f.Validate(); err != nil {
		return fmt.Errorf("load %s: %w: %w", name, ErrCorruptArtifact, err)
	}
	if f.NFeatures != featureCount {
		return fmt.Errorf("load %s: %w: %d features, want %d", name, ErrCorruptArtifact, f.NFeatures, featureCount)
	}
	return nil
}

func validateSegmentation(m segmentationModel) error {
	if m.KMeans == nil {
		return fmt.Errorf("load %s: %w", SegmentationArtifact, ErrCorruptArtifact)
	}
	if err := m.KMeans.Validate(); err != nil {
		return fmt.Errorf("load %s: %w: %w", SegmentationArtifact, ErrCorruptArtifact, err)
	}
	if dims := m.KMeans.Dims(); dims != featureCount {
		return fmt.Errorf("load %s: %w: centroids have %d dims, want %d", SegmentationArtifact, ErrCorruptArtifact, dims, featureCount)
	}
	for cluster := range m.Labels {
		if cluster < 0 || cluster >= m.KMeans.K {
			return fmt.Errorf("load %s: %w: label for unknown cluster %d", SegmentationArtifact, ErrCorruptArtifact, cluster)
		}
	}
	return nil
}

func validateScaler(s *ml.StandardScaler) error {
	if s == nil {
		return fmt.Errorf("load %s: %w", ScalerArtifact, ErrCorruptArtifact)
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("load %s: %w: %w", ScalerArtifact, ErrCorruptArtifact, err)
	}
	if len(s.Mean) != featureCount {
		return fmt.Errorf("load %s: %w: %d columns, want %d", ScalerArtifact, ErrCorruptArtifact, len(s.Mean), featureCount)
	}
	return nil
}

func restoreState(s *estimatorState, version int, trainedAt time.Time) {
	s.trained = true
	s.version = version
	s.lastTrainedAt = trainedAt
}

func writeArtifact(ctx context.Context, store storage.Provider, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := storage.PutBytes(ctx, store, name, data, contentTypeJSON); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func readArtifact(ctx context.Context, store storage.Provider, name string, v any) error {
	data, err := storage.GetBytes(ctx, store, name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w: %w", name, ErrCorruptArtifact, err)
	}
	return nil
}
