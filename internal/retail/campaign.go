package retail

// Campaign 客群对应的营销动作
type Campaign struct {
	DiscountLevel    float64 `json:"discount_level"`
	MarketingMessage string  `json:"marketing_message"`
	ProductFocus     string  `json:"product_focus"`
}

var campaigns = map[string]Campaign{
	SegmentVIP: {
		DiscountLevel:    0.15,
		MarketingMessage: "Exclusive VIP offer just for you!",
		ProductFocus:     "Premium items",
	},
	SegmentLoyal: {
		DiscountLevel:    0.1,
		MarketingMessage: "Special offer for our loyal customer!",
		ProductFocus:     "New arrivals",
	},
	SegmentRecent: {
		DiscountLevel:    0.05,
		MarketingMessage: "Welcome back! Check out our latest items",
		ProductFocus:     "Popular items",
	},
	SegmentAtRisk: {
		DiscountLevel:    0.2,
		MarketingMessage: "We miss you! Come back and save big",
		ProductFocus:     "Best sellers",
	},
}

// CampaignFor 未知标签按 Recent 处理
func CampaignFor(segment string) Campaign {
	if c, ok := campaigns[segment]; ok {
		return c
	}
	return campaigns[SegmentRecent]
}
