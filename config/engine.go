package config

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// KafkaConsumerConfig defines configuration for Kafka consumer
type KafkaConsumerConfig struct {
	Brokers           []string `yaml:"brokers"`             // e.g., ["kafka1:9092", "kafka2:9092"]
	Topic             string   `yaml:"topic"`               // Topic to consume from
	GroupID           string   `yaml:"group_id"`            // Consumer group ID
	Count             int      `yaml:"count"`               // Number of consumers to create
	SessionTimeout    string   `yaml:"session_timeout"`     // Kafka session timeout
	HeartbeatInterval string   `yaml:"heartbeat_interval"`  // Kafka heartbeat interval
	MaxProcessingTime string   `yaml:"max_processing_time"` // Maximum time for processing a message
	AutoOffsetReset   string   `yaml:"auto_offset_reset"`   // earliest/latest
}

// UsesMock reports whether the fixed-message mock consumer was requested
func (c *KafkaConsumerConfig) UsesMock() bool {
	return len(c.Brokers) == 0 || c.Brokers[0] == "mock://local"
}

// SetDefaults sets reasonable default values for Kafka consumer configuration
func (c *KafkaConsumerConfig) SetDefaults() {
	logger := zap.S()
	if c.Count <= 0 {
		c.Count = 1
		logger.Warnf("kafka_consumer.count not set or invalid, defaulting to %d", c.Count)
	}
	if c.SessionTimeout == "" {
		c.SessionTimeout = "30s"
		logger.Warnf("kafka_consumer.session_timeout not set, defaulting to %s", c.SessionTimeout)
	}
	if c.HeartbeatInterval == "" {
		c.HeartbeatInterval = "3s"
		logger.Warnf("kafka_consumer.heartbeat_interval not set, defaulting to %s", c.HeartbeatInterval)
	}
	if c.MaxProcessingTime == "" {
		c.MaxProcessingTime = "5m"
		logger.Warnf("kafka_consumer.max_processing_time not set, defaulting to %s", c.MaxProcessingTime)
	}
	if c.AutoOffsetReset == "" {
		c.AutoOffsetReset = "earliest"
		logger.Warnf("kafka_consumer.auto_offset_reset not set, defaulting to %s", c.AutoOffsetReset)
	}
}

// WorkerConfig defines configuration for anchor worker processing
type WorkerConfig struct {
	Concurrency        int    `yaml:"concurrency"`          // Number of concurrent workers per consumer
	BatchSize          int    `yaml:"batch_size"`           // Number of anchor requests claimed together
	BatchTimeout       string `yaml:"batch_timeout"`        // Maximum wait time for batch
	ConsumerRetryDelay string `yaml:"consumer_retry_delay"` // Delay when consumer encounters errors
	BlockchainTimeout  string `yaml:"blockchain_timeout"`   // Timeout for one anchoring write
	RetrySweepInterval string `yaml:"retry_sweep_interval"` // How often requests left for retry are re-anchored
}

// SetDefaults sets reasonable default values for worker configuration
func (c *WorkerConfig) SetDefaults() {
	logger := zap.S()
	if c.Concurrency <= 0 {
		c.Concurrency = 1
		logger.Warnf("worker.concurrency not set or invalid, defaulting to %d", c.Concurrency)
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 20
		logger.Warnf("worker.batch_size not set or invalid, defaulting to %d", c.BatchSize)
	}
	if c.BatchTimeout == "" {
		c.BatchTimeout = "1s"
		logger.Warnf("worker.batch_timeout not set, defaulting to %s", c.BatchTimeout)
	}
	if c.ConsumerRetryDelay == "" {
		c.ConsumerRetryDelay = "5s"
		logger.Warnf("worker.consumer_retry_delay not set, defaulting to %s", c.ConsumerRetryDelay)
	}
	if c.BlockchainTimeout == "" {
		c.BlockchainTimeout = "60s"
		logger.Warnf("worker.blockchain_timeout not set, defaulting to %s", c.BlockchainTimeout)
	}
	if c.RetrySweepInterval == "" {
		c.RetrySweepInterval = "30s"
		logger.Warnf("worker.retry_sweep_interval not set, defaulting to %s", c.RetrySweepInterval)
	}
}

// MonitoringConfig defines monitoring configuration shared by both processes
type MonitoringConfig struct {
	EnableMetrics   bool   `yaml:"enable_metrics"`    // Enable metrics collection
	MetricsPath     string `yaml:"metrics_path"`      // Metrics endpoint path
	MetricsAddr     string `yaml:"metrics_addr"`      // Listen address when the process has no HTTP server
	HealthCheckPath string `yaml:"health_check_path"` // Health check endpoint path
	LogLevel        string `yaml:"log_level"`         // Logging level
	LogFormat       string `yaml:"log_format"`        // json/console
}

// SetDefaults sets reasonable default values for monitoring configuration
func (c *MonitoringConfig) SetDefaults() {
	logger := zap.S()
	if c.MetricsPath == "" {
		c.MetricsPath = "/metrics"
		logger.Warnf("monitoring.metrics_path not set, defaulting to %s", c.MetricsPath)
	}
	if c.HealthCheckPath == "" {
		c.HealthCheckPath = "/health"
		logger.Warnf("monitoring.health_check_path not set, defaulting to %s", c.HealthCheckPath)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
		logger.Warnf("monitoring.log_level not set, defaulting to %s", c.LogLevel)
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
}

// EngineConfig defines all configuration for the Anchor Engine
type EngineConfig struct {
	// Anchor store; "memory://local" selects the in-process store
	Database DatabaseConfig `yaml:"database"`

	// Kafka Consumer Configuration
	KafkaConsumer KafkaConsumerConfig `yaml:"kafka_consumer"`

	// Worker Configuration
	Worker WorkerConfig `yaml:"worker"`

	// Business Rules Configuration
	MaxTaskRetries int `yaml:"max_task_retries"` // Maximum anchoring attempts per request

	// Monitoring Configuration
	Monitoring MonitoringConfig `yaml:"monitoring"`

	// Blockchain Client Configuration
	BlockchainClientConfigPath string `yaml:"blockchain_client_config_path"`
}

// LoadEngineConfig loads configuration from the specified YAML file path
func LoadEngineConfig(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg EngineConfig
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML config file: %w", err)
	}

	ApplyDatabaseEnv(&cfg.Database, NewEnv())

	// Set default values for all configurations
	cfg.Database.SetDefaults()
	cfg.KafkaConsumer.SetDefaults()
	cfg.Worker.SetDefaults()
	cfg.Monitoring.SetDefaults()

	// Set default for business rules
	if cfg.MaxTaskRetries <= 0 {
		cfg.MaxTaskRetries = 5
		zap.S().Warnf("max_task_retries not set or invalid, defaulting to %d", cfg.MaxTaskRetries)
	}

	if cfg.BlockchainClientConfigPath == "" {
		return nil, fmt.Errorf("configuration error: blockchain_client_config_path is required")
	}

	// Validate database configuration
	if err := cfg.Database.Validate(); err != nil {
		return nil, fmt.Errorf("database configuration error: %w", err)
	}

	return &cfg, nil
}
