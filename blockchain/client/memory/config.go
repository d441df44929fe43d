package memory

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// MemoryConfig stores in-process ledger configuration
type MemoryConfig struct {
	// 0 disables automatic mining; blocks are then produced only by Mine
	AutoMineIntervalMillis int  `yaml:"auto_mine_interval_millis"`
	Signer                 bool `yaml:"signer"`
}

// AutoMineInterval returns the mining period
func (c *MemoryConfig) AutoMineInterval() time.Duration {
	return time.Duration(c.AutoMineIntervalMillis) * time.Millisecond
}

// LoadMemoryConfig loads the in-process ledger configuration. A missing file yields
// a ledger that mines every second and accepts writes.
func LoadMemoryConfig(path string) (*MemoryConfig, error) {
	cfg := &MemoryConfig{AutoMineIntervalMillis: 1000, Signer: true}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read memory ledger config file '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse memory ledger YAML config file: %w", err)
	}
	return cfg, nil
}
