package retail

import (
	"fmt"
	"math"
	"time"
)

const (
	priceCandidates = 50
	minMarkup       = 1.1
	maxCompetitive  = 1.2
	defaultMarkup   = 1.5
)

// TrainPricing 用竞品价格、成本、库存水平拟合需求
func (t *Toolkit) TrainPricing(data []PricingRecord) (err error) {
	start := time.Now()
	defer func() { observeTraining("pricing", start, len(data), err) }()

	if len(data) == 0 {
		return ErrEmptyTrainingSet
	}

	X := make([][]float64, len(data))
	y := make([]float64, len(data))
	for i, r := range data {
		X[i] = []float64{r.CompetitorPrice, r.Cost, r.InventoryLevel}
		y[i] = r.Demand
	}

	model := t.newForest()
	if err := model.Fit(X, y); err != nil {
		return fmt.Errorf("train pricing model: %w", err)
	}

	t.pricingState.mu.Lock()
	defer t.pricingState.mu.Unlock()
	t.pricing = model
	t.pricingState.markTrained(time.Now())
	return nil
}

// PriceCandidates 在 [cost×1.1, competitor×1.2] 上均匀取 50 个候选价格（含两端）
func PriceCandidates(competitorPrice, cost float64) []float64 {
	start, stop := cost*minMarkup, competitorPrice*maxCompetitive
	out := make([]float64, priceCandidates)
	step := (stop - start) / float64(priceCandidates-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[priceCandidates-1] = stop
	return out
}

// RecommendPrice 线性扫描候选价格，取 预测需求 × (价格 − 成本) 最大者。
// 模型输入只有三个市场特征，与候选价格无关，收益只随价格项变化。
func (t *Toolkit) RecommendPrice(competitorPrice, cost, inventoryLevel float64) (*PriceRecommendation, error) {
	t.pricingState.mu.RLock()
	defer t.pricingState.mu.RUnlock()

	if !t.pricingState.trained {
		return nil, fmt.Errorf("pricing: %w", ErrNotTrained)
	}
	if competitorPrice <= 0 || cost <= 0 {
		return nil, ErrInvalidPriceRange
	}

	pred, err := t.pricing.Predict([][]float64{{competitorPrice, cost, inventoryLevel}})
	if err != nil {
		return nil, fmt.Errorf("predict demand: %w", err)
	}
	demand := pred[0]

	candidates := PriceCandidates(competitorPrice, cost)
	maxRevenue := 0.0
	optimal := cost * defaultMarkup
	for _, price := range candidates {
		revenue := demand * (price - cost)
		if revenue > maxRevenue {
			maxRevenue = revenue
			optimal = price
		}
	}

	// 没有候选价格产生正收益时，默认加价结果也要落在候选区间内
	lo := math.Min(candidates[0], candidates[len(candidates)-1])
	hi := math.Max(candidates[0], candidates[len(candidates)-1])
	optimal = math.Max(lo, math.Min(hi, optimal))

	return &PriceRecommendation{
		RecommendedPrice: round2(optimal),
		EstimatedRevenue: round2(maxRevenue),
		ProfitMargin:     round2((optimal - cost) / optimal * 100),
	}, nil
}
