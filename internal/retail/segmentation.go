package retail

import (
	"fmt"
	"sort"
	"time"

	"learnhub/pkg/ml"
)

const (
	SegmentVIP    = "VIP"
	SegmentLoyal  = "Loyal"
	SegmentRecent = "Recent"
	SegmentAtRisk = "At Risk"

	segmentThreshold = 0.5
)

// SegmentLabel 对标准化后的簇均值打标签
func SegmentLabel(recency, frequency, monetary float64) string {
	switch {
	case frequency > segmentThreshold && monetary > segmentThreshold:
		return SegmentVIP
	case frequency > segmentThreshold:
		return SegmentLoyal
	case recency <= segmentThreshold:
		return SegmentRecent
	default:
		return SegmentAtRisk
	}
}

func rfm(c CustomerRecord) []float64 {
	return []float64{c.Recency, c.Frequency, c.Monetary}
}

// SegmentCustomers 标准化 RFM 特征后做 k-means 聚类，并基于标准化后的簇均值打标签
func (t *Toolkit) SegmentCustomers(customers []CustomerRecord) (seg *Segmentation, err error) {
	start := time.Now()
	defer func() { observeTraining("segmentation", start, len(customers), err) }()

	if len(customers) == 0 {
		return nil, ErrEmptyTrainingSet
	}

	raw := make([][]float64, len(customers))
	for i, c := range customers {
		raw[i] = rfm(c)
	}

	scaler := ml.NewStandardScaler()
	scaled, err := scaler.FitTransform(raw)
	if err != nil {
		return nil, fmt.Errorf("scale customer features: %w", err)
	}

	km := ml.NewKMeans(t.opts.Segments, t.opts.Seed)
	assignments, err := km.FitPredict(scaled)
	if err != nil {
		return nil, fmt.Errorf("cluster customers: %w", err)
	}

	profiles := buildProfiles(raw, scaled, assignments)
	labels := make(map[int]string, len(profiles))
	for _, p := range profiles {
		labels[p.Cluster] = p.Label
	}

	t.segmentState.mu.Lock()
	defer t.segmentState.mu.Unlock()
	t.scaler = scaler
	t.segments = km
	t.labels = labels
	t.segmentState.markTrained(time.Now())

	return &Segmentation{
		Labels:      copyLabels(labels),
		Assignments: assignments,
		Profiles:    profiles,
	}, nil
}

// ClassifyCustomer 将新客户分配到已训练的簇
func (t *Toolkit) ClassifyCustomer(c CustomerRecord) (int, string, error) {
	t.segmentState.mu.RLock()
	defer t.segmentState.mu.RUnlock()

	if !t.segmentState.trained {
		return 0, "", fmt.Errorf("segmentation: %w", ErrNotTrained)
	}

	scaled, err := t.scaler.Transform([][]float64{rfm(c)})
	if err != nil {
		return 0, "", fmt.Errorf("classify customer: %w", err)
	}
	cluster, err := t.segments.Predict(scaled)
	if err != nil {
		return 0, "", fmt.Errorf("classify customer: %w", err)
	}

	label, ok := t.labels[cluster[0]]
	if !ok {
		label = SegmentLabel(scaled[0][0], scaled[0][1], scaled[0][2])
	}
	return cluster[0], label, nil
}

// buildProfiles 按簇分组求均值，只包含有成员的簇，按簇编号排序
func buildProfiles(raw, scaled [][]float64, assignments []int) []SegmentProfile {
	byCluster := make(map[int]*SegmentProfile)
	for i, c := range assignments {
		p, ok := byCluster[c]
		if !ok {
			p = &SegmentProfile{Cluster: c}
			byCluster[c] = p
		}
		p.Size++
		for j := 0; j < 3; j++ {
			p.Raw[j] += raw[i][j]
			p.Scaled[j] += scaled[i][j]
		}
	}

	out := make([]SegmentProfile, 0, len(byCluster))
	for _, p := range byCluster {
		for j := 0; j < 3; j++ {
			p.Raw[j] /= float64(p.Size)
			p.Scaled[j] /= float64(p.Size)
		}
		p.Label = SegmentLabel(p.Scaled[0], p.Scaled[1], p.Scaled[2])
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cluster < out[j].Cluster })
	return out
}

func copyLabels(in map[int]string) map[int]string {
	out := make(map[int]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
