package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"PricePulse/internal/di"
	"PricePulse/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// optional .env for local development; real deployments set env vars
	_ = godotenv.Load()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s monitor_enabled=%v", cfg.Environment, cfg.Monitor.Enabled)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	log.Printf("postgres: connected - db: %s", cfg.Postgres.Database)
	log.Printf("clickhouse: connected and schema ready - db: %s", cfg.ClickHouse.Database)
	log.Printf("kafka: brokers=%v alerts_topic=%s", cfg.Kafka.Brokers, cfg.Kafka.AlertsTopic)

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
