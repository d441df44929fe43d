package config

import (
	"fmt"

	"go.uber.org/zap"
)

// DatabaseConfig defines the unified database configuration structure
// This is used by both the gateway and the anchor engine
type DatabaseConfig struct {
	DSN            string `yaml:"dsn" json:"dsn"`                         // PostgreSQL connection string
	MaxConnections int    `yaml:"max_connections" json:"max_connections"` // Maximum number of connections
	MinConnections int    `yaml:"min_connections" json:"min_connections"` // Minimum number of connections
	MaxIdleTime    string `yaml:"max_idle_time" json:"max_idle_time"`     // Maximum time a connection can be idle
	MaxLifetime    string `yaml:"max_lifetime" json:"max_lifetime"`       // Maximum lifetime of a connection
}

// SetDefaults sets sensible default values for the database configuration
func (c *DatabaseConfig) SetDefaults() {
	logger := zap.S()
	if c.MaxConnections <= 0 {
		c.MaxConnections = 20
		logger.Warnf("database.max_connections not set or invalid, defaulting to %d", c.MaxConnections)
	}
	if c.MinConnections <= 0 {
		c.MinConnections = 2
		logger.Warnf("database.min_connections not set or invalid, defaulting to %d", c.MinConnections)
	}
	if c.MaxIdleTime == "" {
		c.MaxIdleTime = "1h"
		logger.Warnf("database.max_idle_time not set, defaulting to %s", c.MaxIdleTime)
	}
	if c.MaxLifetime == "" {
		c.MaxLifetime = "24h"
		logger.Warnf("database.max_lifetime not set, defaulting to %s", c.MaxLifetime)
	}
}

// UsesMemoryStore reports whether the in-process anchor store was requested
func (c *DatabaseConfig) UsesMemoryStore() bool {
	return c.DSN == "memory://local"
}

// Validate validates the database configuration
func (c *DatabaseConfig) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}
	if c.MaxConnections <= 0 {
		return fmt.Errorf("database max_connections must be positive")
	}
	if c.MinConnections < 0 {
		return fmt.Errorf("database min_connections cannot be negative")
	}
	if c.MinConnections > c.MaxConnections {
		return fmt.Errorf("database min_connections (%d) cannot be greater than max_connections (%d)",
			c.MinConnections, c.MaxConnections)
	}
	return nil
}

// LogConfiguration logs the database configuration (excluding sensitive DSN)
func (c *DatabaseConfig) LogConfiguration(logger *zap.SugaredLogger) {
	logger.Infof("Database Configuration: max_connections=%d min_connections=%d max_idle_time=%s max_lifetime=%s dsn=[configured]",
		c.MaxConnections, c.MinConnections, c.MaxIdleTime, c.MaxLifetime)
}
