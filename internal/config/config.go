package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	ServicePort int
	Database    DatabaseConfig
	RabbitMQ    RabbitMQConfig
	Wells       WellDefaultsConfig
	Estimator   EstimatorConfig
	Production  ProductionConfig
	Watchdog    WatchdogConfig
	Health      HealthConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// RabbitMQConfig holds RabbitMQ connection and queue settings
type RabbitMQConfig struct {
	URL                 string
	PacketExchange      string
	PacketQueue         string
	PacketRoutingKey    string
	RetriggerRoutingKey string
	StatusExchange      string
	StatusRoutingKey    string
	DLQQueue            string
	PrefetchCount       int
}

// WellDefaultsConfig holds fallback values for wells missing from the
// config table, plus the battery volume constant.
type WellDefaultsConfig struct {
	DefaultTanks           float64
	DefaultBottomLevelFeet float64
	DefaultPullBbls        float64
	BblsPerFoot            float64
}

// EstimatorConfig holds the flow-rate estimator and anomaly filter tuning.
// The ratio and step thresholds are empirically tuned; they are config, not
// code.
type EstimatorConfig struct {
	FlagRatio     float64
	AnomalyRatio  float64
	MinKnownGood  int
	RollingWindow int
	StepMinRates  int
	StepLookback  int
	StepThreshold float64
	HistoryLimit  int
}

// ProductionConfig holds daily-volume aggregation settings.
type ProductionConfig struct {
	HistoryLimit int
	MaxRateDays  float64
}

// WatchdogConfig holds stranded-packet reconciliation settings.
type WatchdogConfig struct {
	Interval     time.Duration
	StaleAfter   time.Duration
	RewriteDelay time.Duration
}

// HealthConfig holds system health monitor settings.
type HealthConfig struct {
	Interval      time.Duration
	WarningStuck  int
	CriticalStuck int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "tank-pull-worker"),
		ServicePort: getEnvAsInt("SERVICE_PORT", 8081),
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:                 getEnv("RABBITMQ_URL", ""),
			PacketExchange:      getEnv("RABBITMQ_PACKET_EXCHANGE", "tank-pull.packets.exchange"),
			PacketQueue:         getEnv("RABBITMQ_PACKET_QUEUE", "tank-pull.packets.queue"),
			PacketRoutingKey:    getEnv("RABBITMQ_PACKET_ROUTING_KEY", "packet.incoming"),
			RetriggerRoutingKey: getEnv("RABBITMQ_RETRIGGER_ROUTING_KEY", "packet.retriggered"),
			StatusExchange:      getEnv("RABBITMQ_STATUS_EXCHANGE", "tank-pull.status.exchange"),
			StatusRoutingKey:    getEnv("RABBITMQ_STATUS_ROUTING_KEY", "well.status.updated"),
			DLQQueue:            getEnv("RABBITMQ_DLQ_QUEUE", "tank-pull.packets.dlq"),
			PrefetchCount:       getEnvAsInt("RABBITMQ_PREFETCH", 10),
		},
		Wells: WellDefaultsConfig{
			DefaultTanks:           getEnvAsFloat("WELL_DEFAULT_TANKS", 1),
			DefaultBottomLevelFeet: getEnvAsFloat("WELL_DEFAULT_BOTTOM_LEVEL_FEET", 3),
			DefaultPullBbls:        getEnvAsFloat("WELL_DEFAULT_PULL_BBLS", 140),
			BblsPerFoot:            getEnvAsFloat("WELL_BBLS_PER_FOOT", 20),
		},
		Estimator: EstimatorConfig{
			FlagRatio:     getEnvAsFloat("AFR_FLAG_RATIO", 1.5),
			AnomalyRatio:  getEnvAsFloat("AFR_ANOMALY_RATIO", 2.0),
			MinKnownGood:  getEnvAsInt("AFR_MIN_KNOWN_GOOD", 3),
			RollingWindow: getEnvAsInt("AFR_ROLLING_WINDOW", 5),
			StepMinRates:  getEnvAsInt("AFR_STEP_MIN_RATES", 5),
			StepLookback:  getEnvAsInt("AFR_STEP_LOOKBACK", 3),
			StepThreshold: getEnvAsFloat("AFR_STEP_THRESHOLD", 0.10),
			HistoryLimit:  getEnvAsInt("AFR_HISTORY_LIMIT", 15),
		},
		Production: ProductionConfig{
			HistoryLimit: getEnvAsInt("PRODUCTION_HISTORY_LIMIT", 500),
			MaxRateDays:  getEnvAsFloat("PRODUCTION_MAX_RATE_DAYS", 365),
		},
		Watchdog: WatchdogConfig{
			Interval:     getEnvAsDuration("WATCHDOG_INTERVAL", 5*time.Minute),
			StaleAfter:   getEnvAsDuration("WATCHDOG_STALE_AFTER", 2*time.Minute),
			RewriteDelay: getEnvAsDuration("WATCHDOG_REWRITE_DELAY", 250*time.Millisecond),
		},
		Health: HealthConfig{
			Interval:      getEnvAsDuration("HEALTH_INTERVAL", 10*time.Minute),
			WarningStuck:  getEnvAsInt("HEALTH_WARNING_STUCK", 5),
			CriticalStuck: getEnvAsInt("HEALTH_CRITICAL_STUCK", 20),
		},
	}

	// Validate required fields
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set in environment variables")
	}
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required but not set in environment variables")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
