// 零售分析工具包演示脚本
//
// 用随机生成的销售、定价、客户数据训练三个模型，输出预测结果，
// 并把模型写入 storage 配置指定的存储后端后重新加载校验。
//
// 用法: go run scripts/shopsense_demo.go -config configs

package main

import (
	"context"
	"flag"
	"fmt"
	"learnhub/internal/config"
	"learnhub/internal/retail"
	"learnhub/pkg/logger"
	"learnhub/pkg/storage"
	"log"
	"math/rand"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

func main() {
	configDir := flag.String("config", "configs", "配置文件所在目录")
	samples := flag.Int("samples", 100, "每类训练样本数量")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Printf("配置文件读取失败，使用默认配置: %v", err)
		cfg = config.Default()
	}
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	rng := rand.New(rand.NewSource(cfg.Retail.Seed))
	toolkit := retail.NewToolkit(retail.Options{
		Trees:    cfg.Retail.Trees,
		Segments: cfg.Retail.Segments,
		Seed:     cfg.Retail.Seed,
	})

	if err := toolkit.TrainInventory(salesHistory(rng, *samples)); err != nil {
		log.Fatalf("训练库存模型失败: %v", err)
	}
	plan, err := toolkit.PredictInventory(180, true, false)
	if err != nil {
		log.Fatalf("库存预测失败: %v", err)
	}
	printJSON("Inventory Optimization Results", plan)

	if err := toolkit.TrainPricing(pricingData(rng, *samples)); err != nil {
		log.Fatalf("训练定价模型失败: %v", err)
	}
	price, err := toolkit.RecommendPrice(25.0, 15.0, 150)
	if err != nil {
		log.Fatalf("定价推荐失败: %v", err)
	}
	printJSON("Dynamic Pricing Results", price)

	seg, err := toolkit.SegmentCustomers(customerData(rng, *samples))
	if err != nil {
		log.Fatalf("客户分群失败: %v", err)
	}
	printJSON("Customer Segmentation Results", seg.Labels)
	printJSON("Personalized Recommendations for VIP", retail.CampaignFor(retail.SegmentVIP))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store := storage.New(&cfg.Storage)
	if err := toolkit.SaveTo(ctx, store, cfg.Retail.ModelPrefix); err != nil {
		log.Fatalf("保存模型失败: %v", err)
	}

	reloaded := retail.NewToolkit(retail.Options{Trees: cfg.Retail.Trees, Segments: cfg.Retail.Segments, Seed: cfg.Retail.Seed})
	if err := reloaded.LoadFrom(ctx, store, cfg.Retail.ModelPrefix); err != nil {
		log.Fatalf("加载模型失败: %v", err)
	}
	again, err := reloaded.PredictInventory(180, true, false)
	if err != nil {
		log.Fatalf("加载后预测失败: %v", err)
	}
	logger.Log.Info("Models saved and reloaded",
		zap.String("storage", cfg.Storage.Type),
		zap.Bool("identical", *again == *plan),
	)
}

func salesHistory(rng *rand.Rand, n int) []retail.SalesRecord {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]retail.SalesRecord, n)
	for i := range out {
		day := start.AddDate(0, 0, i)
		out[i] = retail.SalesRecord{
			Date:         day,
			ProductID:    1,
			QuantitySold: 50 + rng.NormFloat64()*10,
			StockLevel:   200 + rng.NormFloat64()*20,
			IsWeekend:    day.Weekday() == time.Saturday || day.Weekday() == time.Sunday,
		}
	}
	return out
}

func pricingData(rng *rand.Rand, n int) []retail.PricingRecord {
	out := make([]retail.PricingRecord, n)
	for i := range out {
		out[i] = retail.PricingRecord{
			Price:           10 + rng.Float64()*40,
			Demand:          100 + rng.NormFloat64()*20,
			CompetitorPrice: 15 + rng.Float64()*30,
			Cost:            5 + rng.Float64()*20,
			InventoryLevel:  50 + rng.Float64()*150,
		}
	}
	return out
}

func customerData(rng *rand.Rand, n int) []retail.CustomerRecord {
	out := make([]retail.CustomerRecord, n)
	for i := range out {
		out[i] = retail.CustomerRecord{
			CustomerID: i,
			Recency:    1 + rng.Float64()*99,
			Frequency:  1 + rng.Float64()*49,
			Monetary:   100 + rng.Float64()*4900,
		}
	}
	return out
}

func printJSON(title string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("%s: %v", title, err)
		return
	}
	fmt.Printf("\n%s:\n%s\n", title, data)
}
