package database

import (
	"fmt"

	"surveyguard/internal/config"
	logging "surveyguard/internal/logging"
	"surveyguard/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(log *zap.Logger) {
	var err error
	dbConf := config.Conf.Database
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		dbConf.Host, dbConf.User, dbConf.Password, dbConf.DBName, dbConf.Port)

	gormLogger := logging.NewGormZapLogger(log)

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})

	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	log.Info("Database connection established successfully.")
	runMigrations(log)
}

func runMigrations(log *zap.Logger) {
	// GORM's AutoMigrate will create tables, columns, and foreign keys.
	// Composite indexes past what the struct tags declare are handled below.
	err := DB.AutoMigrate(
		&models.Session{},
		&models.Event{},
		&models.Answer{},
		&models.DetectionResult{},
		&models.FraudIndicator{},
		&models.GridResponse{},
		&models.TimingAnalysis{},
	)
	if err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}
	log.Info("Database migrations completed successfully.")

	// Every result table is queried by hierarchy scope plus recency, and
	// events are always read per session in timestamp order.
	customIndexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_attempt ON sessions (survey_id, platform_id, respondent_id, attempt);`,
		`CREATE INDEX IF NOT EXISTS idx_events_session_ts ON events (session_id, timestamp);`,
		`CREATE INDEX IF NOT EXISTS idx_detection_recency ON detection_results (survey_id, analyzed_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_detection_session_recency ON detection_results (session_id, analyzed_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_fraud_recency ON fraud_indicators (survey_id, analyzed_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_grid_recency ON grid_responses (survey_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_timing_recency ON timing_analyses (survey_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_answers_question ON answers (question_id, session_id);`,
	}
	for _, idx := range customIndexes {
		if err := DB.Exec(idx).Error; err != nil {
			log.Fatal("Failed to create custom index", zap.Error(err))
		}
	}
	log.Info("Custom indexes ensured successfully.")
}
