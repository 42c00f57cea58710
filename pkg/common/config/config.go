package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/synaptica-ai/oncorisk/pkg/common/logger"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64
	RateLimitRPS   int
	RateLimitBurst int

	// Prediction service
	PredictorBaseURL        string
	PredictorRequestTimeout time.Duration
	PredictorTokenURL       string
	PredictorClientID       string
	PredictorClientSecret   string
	PredictorBreakerEnabled bool

	// Sessions
	AutoExplain      bool
	SessionTTL       time.Duration
	SessionCacheSize int
	FieldCatalogPath string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers     []string
	KafkaEventsTopic string
	KafkaGroupID     string

	// Database
	HistoryEnabled   bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
}

// Load reads configuration from the environment and an optional oncorisk.yaml.
// Environment variables win over the file; the file wins over defaults.
func Load() *Config {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("oncorisk")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/oncorisk/")
	v.AutomaticEnv()

	if err := readConfigFile(v); err != nil {
		logger.Log.WithError(err).WithField("file", v.ConfigFileUsed()).Error("Failed to read config file, using defaults and environment")
	}

	return fromViper(v)
}

// readConfigFile loads the optional config file. Only a missing file is ignored.
func readConfigFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err == nil || errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("failed to read config file: %w", err)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_port", "8080")
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("read_timeout", 30*time.Second)
	v.SetDefault("write_timeout", 30*time.Second)
	v.SetDefault("max_request_body_bytes", 1024*1024)
	v.SetDefault("rate_limit_rps", 50)
	v.SetDefault("rate_limit_burst", 100)

	v.SetDefault("predictor_base_url", "http://localhost:8000")
	v.SetDefault("predictor_request_timeout", time.Duration(0))
	v.SetDefault("predictor_token_url", "")
	v.SetDefault("predictor_client_id", "")
	v.SetDefault("predictor_client_secret", "")
	v.SetDefault("predictor_breaker_enabled", false)

	v.SetDefault("auto_explain", false)
	v.SetDefault("session_ttl", 24*time.Hour)
	v.SetDefault("session_cache_size", 1024)
	v.SetDefault("field_catalog_path", "")

	v.SetDefault("redis_host", "")
	v.SetDefault("redis_port", "6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	v.SetDefault("kafka_brokers", "")
	v.SetDefault("kafka_events_topic", "oncorisk.assessments")
	v.SetDefault("kafka_group_id", "oncorisk-audit")

	v.SetDefault("history_enabled", false)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", "5432")
	v.SetDefault("postgres_user", "synaptica")
	v.SetDefault("postgres_password", "synaptica123")
	v.SetDefault("postgres_db", "oncorisk")
	v.SetDefault("postgres_sslmode", "disable")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		ServerPort:     v.GetString("server_port"),
		ServerHost:     v.GetString("server_host"),
		ReadTimeout:    v.GetDuration("read_timeout"),
		WriteTimeout:   v.GetDuration("write_timeout"),
		MaxRequestBody: v.GetInt64("max_request_body_bytes"),
		RateLimitRPS:   v.GetInt("rate_limit_rps"),
		RateLimitBurst: v.GetInt("rate_limit_burst"),

		PredictorBaseURL:        strings.TrimRight(v.GetString("predictor_base_url"), "/"),
		PredictorRequestTimeout: v.GetDuration("predictor_request_timeout"),
		PredictorTokenURL:       v.GetString("predictor_token_url"),
		PredictorClientID:       v.GetString("predictor_client_id"),
		PredictorClientSecret:   v.GetString("predictor_client_secret"),
		PredictorBreakerEnabled: v.GetBool("predictor_breaker_enabled"),

		AutoExplain:      v.GetBool("auto_explain"),
		SessionTTL:       v.GetDuration("session_ttl"),
		SessionCacheSize: v.GetInt("session_cache_size"),
		FieldCatalogPath: v.GetString("field_catalog_path"),

		RedisHost:     v.GetString("redis_host"),
		RedisPort:     v.GetString("redis_port"),
		RedisPassword: v.GetString("redis_password"),
		RedisDB:       v.GetInt("redis_db"),

		KafkaBrokers:     splitList(v.GetString("kafka_brokers")),
		KafkaEventsTopic: v.GetString("kafka_events_topic"),
		KafkaGroupID:     v.GetString("kafka_group_id"),

		HistoryEnabled:   v.GetBool("history_enabled"),
		PostgresHost:     v.GetString("postgres_host"),
		PostgresPort:     v.GetString("postgres_port"),
		PostgresUser:     v.GetString("postgres_user"),
		PostgresPassword: v.GetString("postgres_password"),
		PostgresDB:       v.GetString("postgres_db"),
		PostgresSSLMode:  v.GetString("postgres_sslmode"),
	}
}

// Validate checks the settings every binary depends on.
func (c *Config) Validate() error {
	if c.PredictorBaseURL == "" {
		return errors.New("predictor base URL is required")
	}
	u, err := url.Parse(c.PredictorBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid predictor base URL: %q", c.PredictorBaseURL)
	}
	if c.PredictorClientID != "" && c.PredictorTokenURL == "" {
		return errors.New("predictor token URL is required when a client id is set")
	}
	if c.SessionCacheSize <= 0 {
		return fmt.Errorf("invalid session cache size: %d", c.SessionCacheSize)
	}
	if c.PredictorRequestTimeout < 0 {
		return fmt.Errorf("invalid predictor request timeout: %s", c.PredictorRequestTimeout)
	}
	return nil
}

// RedisEnabled reports whether sessions should be persisted to Redis.
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

// KafkaEnabled reports whether interaction events should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.PostgresHost,
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresDB,
		c.PostgresPort,
		c.PostgresSSLMode,
	)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
