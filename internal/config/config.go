package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"banking-platform/internal/models"
)

// Load assembles a service configuration from the environment. serviceName
// selects the default consumer group so both binaries share one loader.
func Load(serviceName string) (*models.Config, error) {
	requestTimeout, err := getEnvDuration("SERVER_REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	retryBackoff, err := getEnvDuration("KAFKA_RETRY_BACKOFF", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}

	retryWait, err := getEnvDuration("PEER_RETRY_WAIT", 200*time.Millisecond)
	if err != nil {
		return nil, err
	}

	openStateWait, err := getEnvDuration("PEER_BREAKER_OPEN_WAIT", 20*time.Second)
	if err != nil {
		return nil, err
	}

	callTimeout, err := getEnvDuration("PEER_CALL_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	jwtExpiry, err := getEnvDuration("JWT_EXPIRY", 1*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg := &models.Config{
		ServiceName: serviceName,
		Server: models.ServerConfig{
			Port:           getEnvInt("SERVER_PORT", 8080),
			RequestTimeout: requestTimeout,
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: models.DatabaseConfig{
			URL:             getEnvString("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MinIdleConns:    getEnvInt("DB_MIN_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Kafka: models.KafkaConfig{
			Brokers:       getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			ConsumerGroup: getEnvString("KAFKA_CONSUMER_GROUP", serviceName+"-group"),
			QueueSize:     getEnvInt("EVENT_QUEUE_SIZE", 1024),
			PublishRetry:  getEnvInt("KAFKA_PUBLISH_RETRY", 5),
			RetryBackoff:  retryBackoff,
		},
		Peer: models.PeerConfig{
			BaseURL:              getEnvString("PEER_BASE_URL", ""),
			MaxAttempts:          getEnvInt("PEER_RETRY_MAX_ATTEMPTS", 2),
			RetryWait:            retryWait,
			WindowSize:           getEnvInt("PEER_BREAKER_WINDOW_SIZE", 20),
			MinimumCalls:         getEnvInt("PEER_BREAKER_MINIMUM_CALLS", 5),
			FailureRateThreshold: getEnvFloat("PEER_BREAKER_FAILURE_RATE", 0.5),
			OpenStateWait:        openStateWait,
			HalfOpenProbes:       getEnvInt("PEER_BREAKER_HALF_OPEN_PROBES", 3),
			CallTimeout:          callTimeout,
		},
		Security: models.SecurityConfig{
			Enabled:   getEnvBool("SECURITY_ENABLED", true),
			JWTSecret: getEnvString("JWT_SECRET", ""),
			JWTExpiry: jwtExpiry,
		},
	}

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.Security.Enabled && cfg.Security.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set when SECURITY_ENABLED=true")
	}

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
