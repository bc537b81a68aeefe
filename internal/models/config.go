package models

import "time"

// Config represents one service's configuration, assembled from the environment.
type Config struct {
	ServiceName string
	Server      ServerConfig
	Database    DatabaseConfig
	Kafka       KafkaConfig
	Peer        PeerConfig
	Security    SecurityConfig
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port           int
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MinIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// KafkaConfig holds message-bus settings.
type KafkaConfig struct {
	Brokers       []string
	ConsumerGroup string
	QueueSize     int
	PublishRetry  int
	RetryBackoff  time.Duration
}

// PeerConfig holds the resilient peer-client settings.
type PeerConfig struct {
	BaseURL              string
	MaxAttempts          int
	RetryWait            time.Duration
	WindowSize           int
	MinimumCalls         int
	FailureRateThreshold float64
	OpenStateWait        time.Duration
	HalfOpenProbes       int
	CallTimeout          time.Duration
}

// SecurityConfig holds JWT settings.
type SecurityConfig struct {
	Enabled   bool
	JWTSecret string
	JWTExpiry time.Duration
}
