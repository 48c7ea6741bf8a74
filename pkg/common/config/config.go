package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers      []string
	KafkaGroupID      string
	EmergencyTopic    string
	AlertRulesPath    string
	AlertDedupeWindow time.Duration

	// Emergency token
	TokenPassphrase string
	TokenSalt       string
	TokenTTL        time.Duration
	StatusCacheTTL  time.Duration

	// Auth
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	JWTTTL      time.Duration

	// OIDC (responder organization SSO)
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string

	// Demo fixtures
	SeedDemoData bool
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1*1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "lifeline"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "lifeline123"),
		PostgresDB:       getEnv("POSTGRES_DB", "lifeline"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:      getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:      getEnv("KAFKA_GROUP_ID", "lifeline-platform"),
		EmergencyTopic:    getEnv("EMERGENCY_TOPIC", "emergency-events"),
		AlertRulesPath:    getEnv("ALERT_RULES_PATH", ""),
		AlertDedupeWindow: getDuration("ALERT_DEDUPE_WINDOW", 5*time.Minute),

		// The defaults reproduce the legacy single-deployment key: every
		// instance started with them derives the identical encryption key.
		// Production deployments must set both variables from a secret store.
		TokenPassphrase: getEnv("TOKEN_PASSPHRASE", "emergency_healthcare_secret_key_2024"),
		TokenSalt:       getEnv("TOKEN_SALT", "emergency_salt_1234"),
		TokenTTL:        getDuration("TOKEN_TTL", 2*time.Hour),
		StatusCacheTTL:  getDuration("STATUS_CACHE_TTL", 2*time.Hour),

		JWTSecret:   getEnv("JWT_SECRET", "emergency-healthcare-secret-key-2024"),
		JWTIssuer:   getEnv("JWT_ISSUER", "lifeline-platform"),
		JWTAudience: getEnv("JWT_AUDIENCE", "lifeline-clients"),
		JWTTTL:      getDuration("JWT_TTL", 12*time.Hour),

		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),

		SeedDemoData: getBoolEnv("SEED_DEMO_DATA", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
