package retail

import (
	"fmt"
	"time"
)

const safetyStockRatio = 0.2

// TrainInventory 用周末、节假日、库存水平三个特征拟合销量
func (t *Toolkit) TrainInventory(history []SalesRecord) (err error) {
	start := time.Now()
	defer func() { observeTraining("inventory", start, len(history), err) }()

	if len(history) == 0 {
		return ErrEmptyTrainingSet
	}

	X := make([][]float64, len(history))
	y := make([]float64, len(history))
	for i, r := range history {
		X[i] = inventoryFeatures(r.StockLevel, r.IsWeekend, r.IsHoliday)
		y[i] = r.QuantitySold
	}

	model := t.newForest()
	if err := model.Fit(X, y); err != nil {
		return fmt.Errorf("train inventory model: %w", err)
	}

	t.inventoryState.mu.Lock()
	defer t.inventoryState.mu.Unlock()
	t.inventory = model
	t.inventoryState.markTrained(time.Now())
	return nil
}

// PredictInventory 预测需求，安全库存为需求的 20%，再订货点 = 需求 + 安全库存
func (t *Toolkit) PredictInventory(currentStock float64, isWeekend, isHoliday bool) (*InventoryPlan, error) {
	t.inventoryState.mu.RLock()
	defer t.inventoryState.mu.RUnlock()

	if !t.inventoryState.trained {
		return nil, fmt.Errorf("inventory: %w", ErrNotTrained)
	}

	pred, err := t.inventory.Predict([][]float64{inventoryFeatures(currentStock, isWeekend, isHoliday)})
	if err != nil {
		return nil, fmt.Errorf("predict inventory: %w", err)
	}

	demand := pred[0]
	safety := demand * safetyStockRatio
	return &InventoryPlan{
		PredictedDemand: round2(demand),
		ReorderPoint:    round2(demand + safety),
		SafetyStock:     round2(safety),
	}, nil
}

func inventoryFeatures(stock float64, isWeekend, isHoliday bool) []float64 {
	return []float64{boolFeature(isWeekend), boolFeature(isHoliday), stock}
}
