// @title LearnHub API
// @version 1.0
// @description 课程推荐与学习进度服务。

// @host localhost:8080
// @BasePath /

package main

import (
	"flag"
	"learnhub/internal/app"
	"learnhub/internal/config"
	"log"
)

func main() {
	configDir := flag.String("config", "configs", "配置文件所在目录")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	application, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer application.Close()

	if err := application.Run(); err != nil {
		log.Printf("Server error: %v", err)
	}
}
