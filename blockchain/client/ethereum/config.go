package ethereum

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// EthereumConfig stores Ethereum-specific configuration
type EthereumConfig struct {
	// 0 asks the node
	ChainID int64 `yaml:"chain_id"`

	// --- Receipts ---
	WaitForReceipt        bool `yaml:"wait_for_receipt"`
	ReceiptTimeoutSeconds int  `yaml:"receipt_timeout_seconds"`
	ReceiptPollMillis     int  `yaml:"receipt_poll_millis"`

	// --- History ---
	HistoryFromBlock uint64 `yaml:"history_from_block"`
	RecordedEvent    string `yaml:"recorded_event"`
	StatusEvent      string `yaml:"status_event"`
	StatusField      string `yaml:"status_field"`
}

// SetDefaults fills unset fields
func (c *EthereumConfig) SetDefaults() {
	if c.ReceiptTimeoutSeconds <= 0 {
		c.ReceiptTimeoutSeconds = 60
	}
	if c.ReceiptPollMillis <= 0 {
		c.ReceiptPollMillis = 1000
	}
	if c.RecordedEvent == "" {
		c.RecordedEvent = "WasteItemRecorded"
	}
	if c.StatusEvent == "" {
		c.StatusEvent = "WasteItemStatusUpdated"
	}
	if c.StatusField == "" {
		c.StatusField = "status"
	}
}

// LoadEthereumConfig loads Ethereum configuration from the specified YAML file path.
// A missing file yields the defaults.
func LoadEthereumConfig(path string) (*EthereumConfig, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path of Ethereum config file: %w", err)
	}

	var cfg EthereumConfig
	data, err := os.ReadFile(absPath)
	switch {
	case os.IsNotExist(err):
		zap.S().Warnf("Ethereum config '%s' not found, using defaults", absPath)
	case err != nil:
		return nil, fmt.Errorf("failed to read Ethereum config file '%s': %w", absPath, err)
	default:
		zap.S().Infof("Loading Ethereum configuration from '%s'...", absPath)
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse Ethereum YAML config file: %w", err)
		}
	}

	cfg.SetDefaults()
	return &cfg, nil
}
