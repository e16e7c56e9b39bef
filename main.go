package main

import (
	"context"
	"time"

	"surveyguard/internal/anomaly"
	"surveyguard/internal/config"
	"surveyguard/internal/database"
	"surveyguard/internal/detection"
	"surveyguard/internal/fraud"
	"surveyguard/internal/handlers"
	logger "surveyguard/internal/logging"
	"surveyguard/internal/models"
	"surveyguard/internal/reports"
	"surveyguard/internal/repository"
	"surveyguard/internal/router"
	"surveyguard/internal/services"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	log, err := logger.Init(".")
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	if err := config.Init(".", log); err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	database.Init(log)
	store := repository.New(database.DB)

	catalog, err := models.LoadCatalog(config.Conf.Server.CatalogPath)
	if err != nil {
		log.Fatal("Failed to load survey catalog", zap.Error(err))
	}

	// Redis backs the fraud velocity counters; the detector falls back to
	// database counts when it is unreachable, so startup never blocks on it.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.Conf.Redis.Addr,
		Password: config.Conf.Redis.Password,
		DB:       config.Conf.Redis.DB,
	})
	velocityCache := fraud.NewVelocityCache(redisClient, log)

	textQuality := detection.NewTextQualityClient(
		config.Conf.TextQuality.Endpoint,
		config.Conf.TextQuality.APIKey,
		time.Duration(config.Conf.TextQuality.TimeoutMS)*time.Millisecond,
	)

	analyzer := detection.NewAnalyzer(config.Conf.Detection, textQuality, log)
	fraudDetector := fraud.NewDetector(config.Conf.Fraud, config.Conf.Detection.RiskLevels, store, velocityCache, log)
	timingDetector := anomaly.NewDetector(config.Conf.Timing)

	analysis := services.NewAnalysisService(store, analyzer, fraudDetector, timingDetector, catalog, config.Conf.Grid, log)
	aggregator := reports.NewAggregator(store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	scheduler := services.NewScheduler(config.Conf.Scheduler, store, analysis, log)
	scheduler.Start(ctx)

	r := router.Setup(log,
		handlers.NewAnalysisHandler(log, analysis),
		handlers.NewReportsHandler(log, aggregator),
	)

	port := ":" + config.Conf.Server.Port
	log.Info("Server listening on http://localhost" + port)
	if err := r.Run(port); err != nil {
		log.Fatal("Failed to run Gin server", zap.Error(err))
	}
}
