// main.go
package main

import (
	"log"

	"travel-booking/cmd"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/wire"
	"travel-booking/pkg/database"
	"travel-booking/pkg/lock"
	"travel-booking/pkg/sepay"
	"travel-booking/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Name, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	if config.SePay.WebhookSecret == "" {
		logger.Warn("SEPAY_WEBHOOK_SECRET is empty; every webhook will be rejected")
	}

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// Connect to redis for per-booking locks
	redisClient, err := lock.InitRedis(config.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	locker := lock.NewRedisLocker(redisClient, config.Payment.LockTTL)

	processor := sepay.NewClient(sepay.ClientConfig{
		BaseURL:          config.SePay.APIBaseURL,
		APIToken:         config.SePay.APIToken,
		Secret:           config.SePay.WebhookSecret,
		AccountNumber:    config.SePay.AccountNumber,
		Timeout:          config.SePay.Timeout,
		BreakerThreshold: config.SePay.BreakerThreshold,
	})

	// Initialize all repositories
	repos := repository.NewRepository(db, logger)

	// Wire all dependencies
	app, err := wire.Wiring(repos, locker, processor, config, logger)
	if err != nil {
		logger.Fatal("Failed to wire application", zap.Error(err))
	}

	if err := cmd.APIServer(app.Router, config.App.Port, logger); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}
