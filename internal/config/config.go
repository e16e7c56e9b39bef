package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Conf holds the application configuration, making it accessible globally.
var Conf *Config

// Config struct is the top-level configuration structure.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Detection   DetectionConfig   `mapstructure:"detection"`
	Fraud       FraudConfig       `mapstructure:"fraud"`
	Timing      TimingConfig      `mapstructure:"timing"`
	Grid        GridConfig        `mapstructure:"grid"`
	TextQuality TextQualityConfig `mapstructure:"textquality"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
}

// ServerConfig holds server-related settings.
type ServerConfig struct {
	Port        string `mapstructure:"port"`
	CatalogPath string `mapstructure:"catalog_path"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// RedisConfig holds the velocity-counter store settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Directory  string `mapstructure:"directory"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// DetectionConfig drives the bot-score aggregator and the method scorers.
// MethodWeights left empty means equal weighting across applicable methods.
type DetectionConfig struct {
	MinEventsForAnalysis          int                `mapstructure:"min_events_for_analysis"`
	ConfidenceThreshold           float64            `mapstructure:"confidence_threshold"`
	RiskLevels                    map[string]float64 `mapstructure:"risk_levels"`
	CriticalRequiresCorroboration bool               `mapstructure:"critical_requires_corroboration"`
	EnabledMethods                map[string]bool    `mapstructure:"enabled_methods"`
	MethodWeights                 map[string]float64 `mapstructure:"method_weights"`
}

// FraudConfig drives the fraud detector. SubScoreWeights left empty means
// equal weighting across the four sub-scores.
type FraudConfig struct {
	DuplicateSimilarityThreshold float64            `mapstructure:"duplicate_similarity_threshold"`
	IPUsageCap                   int                `mapstructure:"ip_usage_cap"`
	FingerprintUsageCap          int                `mapstructure:"fingerprint_usage_cap"`
	VelocityCeilingPerHour       float64            `mapstructure:"velocity_ceiling_per_hour"`
	LookbackDays                 int                `mapstructure:"lookback_days"`
	SubScoreWeights              map[string]float64 `mapstructure:"sub_score_weights"`
}

// TimingConfig drives the timing anomaly detector.
type TimingConfig struct {
	SpeederThresholdMS   float64 `mapstructure:"speeder_threshold_ms"`
	FlatlinerThresholdMS float64 `mapstructure:"flatliner_threshold_ms"`
	AnomalyZThreshold    float64 `mapstructure:"anomaly_z_threshold"`
}

// GridConfig drives the grid pattern detector.
type GridConfig struct {
	StraightLineThreshold float64 `mapstructure:"straight_line_threshold"`
}

// TextQualityConfig points at the external text-quality scorer.
type TextQualityConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	APIKey    string `mapstructure:"api_key"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
}

// SchedulerConfig drives the background analysis sweep.
type SchedulerConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
	MaxConcurrent   int `mapstructure:"max_concurrent"`
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "5050")
	v.SetDefault("server.catalog_path", "config/surveys.yaml")

	// Database defaults
	v.SetDefault("database.host", "db")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "user")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.dbname", "surveyguard-db")

	// Redis defaults
	v.SetDefault("redis.addr", "redis:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Logging defaults
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.max_size", 10)   // 10 MB
	v.SetDefault("logging.max_backups", 3) // Keep 3 backups
	v.SetDefault("logging.max_age", 7)     // 7 days
	v.SetDefault("logging.compress", true) // Compress old logs

	// Detection defaults
	v.SetDefault("detection.min_events_for_analysis", 50)
	v.SetDefault("detection.confidence_threshold", 0.7)
	v.SetDefault("detection.risk_levels", map[string]float64{
		"medium":   0.3,
		"high":     0.7,
		"critical": 0.9,
	})
	v.SetDefault("detection.critical_requires_corroboration", true)
	v.SetDefault("detection.enabled_methods", map[string]bool{
		"keystroke_analysis": true,
		"mouse_analysis":     true,
		"timing_analysis":    true,
		"device_analysis":    true,
		"network_analysis":   true,
		"text_quality":       false,
	})

	// Fraud defaults
	v.SetDefault("fraud.duplicate_similarity_threshold", 0.85)
	v.SetDefault("fraud.ip_usage_cap", 10)
	v.SetDefault("fraud.fingerprint_usage_cap", 10)
	v.SetDefault("fraud.velocity_ceiling_per_hour", 20.0)
	v.SetDefault("fraud.lookback_days", 30)

	// Timing defaults
	v.SetDefault("timing.speeder_threshold_ms", 2000.0)
	v.SetDefault("timing.flatliner_threshold_ms", 300000.0)
	v.SetDefault("timing.anomaly_z_threshold", 2.5)

	// Grid defaults
	v.SetDefault("grid.straight_line_threshold", 0.8)

	// Text-quality scorer defaults
	v.SetDefault("textquality.endpoint", "")
	v.SetDefault("textquality.timeout_ms", 5000)

	// Scheduler defaults
	v.SetDefault("scheduler.interval_seconds", 60)
	v.SetDefault("scheduler.max_concurrent", 8)
}

// Init initializes the configuration with Viper.
func Init(projectRoot string, log *zap.Logger) error {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// --- File Configuration ---
	v.AddConfigPath(filepath.Join(projectRoot, "config"))
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// --- Environment Variable Binding ---
	v.SetEnvPrefix("SURVEYGUARD") // e.g., SURVEYGUARD_SERVER_PORT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read the initial configuration from the file.
	// It's okay if the file doesn't exist; defaults and env vars will be used.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal the config into our global Conf variable
	if err := v.Unmarshal(&Conf); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}

	// Set up a watch for configuration changes for hot-reloading
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("Configuration file changed, reloading.", zap.String("file", e.Name))
		if err := v.Unmarshal(&Conf); err != nil {
			log.Error("Error reloading configuration", zap.Error(err))
		}
	})

	log.Info("Configuration loaded successfully")
	return nil
}
