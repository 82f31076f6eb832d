package retail

import (
	"errors"
	"time"
)

var (
	ErrNotTrained        = errors.New("model not trained, please train the model first")
	ErrEmptyTrainingSet  = errors.New("training set is empty")
	ErrInvalidPriceRange = errors.New("cost and competitor price must be positive")
	ErrCorruptArtifact   = errors.New("corrupt model artifact")
)

// SalesRecord 一条历史销售数据
type SalesRecord struct {
	Date         time.Time `json:"date"`
	ProductID    int       `json:"product_id"`
	QuantitySold float64   `json:"quantity_sold"`
	StockLevel   float64   `json:"stock_level"`
	IsWeekend    bool      `json:"is_weekend"`
	IsHoliday    bool      `json:"is_holiday"`
}

// PricingRecord 一条历史定价数据，Price 不参与训练
type PricingRecord struct {
	Price           float64 `json:"price"`
	Demand          float64 `json:"demand"`
	CompetitorPrice float64 `json:"competitor_price"`
	Cost            float64 `json:"cost"`
	InventoryLevel  float64 `json:"inventory_level"`
}

// CustomerRecord RFM 特征：距上次购买天数、购买次数、消费总额
type CustomerRecord struct {
	CustomerID int     `json:"customer_id"`
	Recency    float64 `json:"recency"`
	Frequency  float64 `json:"frequency"`
	Monetary   float64 `json:"monetary"`
}

type InventoryPlan struct {
	PredictedDemand float64 `json:"predicted_demand"`
	ReorderPoint    float64 `json:"reorder_point"`
	SafetyStock     float64 `json:"safety_stock"`
}

type PriceRecommendation struct {
	RecommendedPrice float64 `json:"recommended_price"`
	EstimatedRevenue float64 `json:"estimated_revenue"`
	ProfitMargin     float64 `json:"profit_margin"`
}

// SegmentProfile 每个簇的规模、原始均值与标准化后的均值
type SegmentProfile struct {
	Cluster int        `json:"cluster"`
	Label   string     `json:"label"`
	Size    int        `json:"size"`
	Raw     [3]float64 `json:"raw_mean"`
	Scaled  [3]float64 `json:"scaled_mean"`
}

// Segmentation 聚类结果：簇标签与每个客户的簇编号（与输入顺序一致）
type Segmentation struct {
	Labels      map[int]string   `json:"labels"`
	Assignments []int            `json:"assignments"`
	Profiles    []SegmentProfile `json:"profiles"`
}

// Options 训练参数
type Options struct {
	Trees    int
	Segments int
	Seed     int64
}

func (o Options) withDefaults() Options {
	if o.Trees <= 0 {
		o.Trees = 100
	}
	if o.Segments <= 0 {
		o.Segments = 4
	}
	return o
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
