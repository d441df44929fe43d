package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// MinGasSafetyMargin is the smallest multiplier applied to a write's cost estimate
	MinGasSafetyMargin = 1.5
)

// NetworkConfig is one deployment target: a node and the contract deployed on it
type NetworkConfig struct {
	NodeEndpoint    string `yaml:"node_endpoint"`
	ContractAddress string `yaml:"contract_address"`
}

// MethodNames binds the logical contract surface to deployed method names
type MethodNames struct {
	RecordItem   string `yaml:"record_item"`
	History      string `yaml:"history"`
	VerifyVendor string `yaml:"verify_vendor"`
}

// BlockchainConfig stores common blockchain configuration across all blockchain types
type BlockchainConfig struct {
	// --- Blockchain Type Selection ---
	BlockchainType string `yaml:"blockchain_type"` // "ethereum", "chainmaker", "memory"

	// --- Network Profiles ---
	Environment string                   `yaml:"environment"` // Selects one of Networks
	Networks    map[string]NetworkConfig `yaml:"networks"`

	// Path or http(s) URL of the contract interface descriptor (ABI)
	ContractDescriptor string `yaml:"contract_descriptor"`

	Methods MethodNames `yaml:"methods"`

	// --- Common Behavior Configuration ---
	RetryLimit         int     `yaml:"retry_limit"`          // SDK-level transaction query retries (ChainMaker)
	RetryInterval      int     `yaml:"retry_interval"`       // Milliseconds between those retries (ChainMaker)
	TimeoutSeconds     int     `yaml:"timeout_seconds"`      // Bound on a single node RPC
	DialTimeoutSeconds int     `yaml:"dial_timeout_seconds"` // Bound on Initialize
	GasSafetyMargin    float64 `yaml:"gas_safety_margin"`

	// Loaded from the environment only, never from files, never logged
	SignerKey string `yaml:"-"`

	// --- Chain-specific Configuration ---
	// This will be loaded separately based on blockchain type
	ChainSpecific any `yaml:"-"`
}

// SetDefaults fills unset fields with working values
func (c *BlockchainConfig) SetDefaults() {
	logger := zap.S()
	if c.BlockchainType == "" {
		c.BlockchainType = "ethereum"
		logger.Warnf("blockchain_type not set, defaulting to %s", c.BlockchainType)
	}
	if c.Environment == "" {
		c.Environment = EnvDevelopment
		logger.Warnf("environment not set, defaulting to %s", c.Environment)
	}
	if c.Methods.RecordItem == "" {
		c.Methods.RecordItem = "recordWasteItem"
	}
	if c.Methods.History == "" {
		c.Methods.History = "getWasteItemHistory"
	}
	if c.Methods.VerifyVendor == "" {
		c.Methods.VerifyVendor = "verifyVendor"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 15
		logger.Warnf("timeout_seconds not set or invalid, defaulting to %d", c.TimeoutSeconds)
	}
	if c.DialTimeoutSeconds <= 0 {
		c.DialTimeoutSeconds = 10
		logger.Warnf("dial_timeout_seconds not set or invalid, defaulting to %d", c.DialTimeoutSeconds)
	}
	if c.GasSafetyMargin < MinGasSafetyMargin {
		if c.GasSafetyMargin != 0 {
			logger.Warnf("gas_safety_margin %.2f is below %.2f, raising it", c.GasSafetyMargin, MinGasSafetyMargin)
		}
		c.GasSafetyMargin = MinGasSafetyMargin
	}
}

// ActiveNetwork returns the network profile selected by Environment
func (c *BlockchainConfig) ActiveNetwork() (NetworkConfig, error) {
	network, ok := c.Networks[c.Environment]
	if !ok {
		return NetworkConfig{}, fmt.Errorf("no network profile configured for environment '%s'", c.Environment)
	}
	return network, nil
}

// Validate checks the fields every process needs. The signer key is not
// checked here: read-only flows run without it.
func (c *BlockchainConfig) Validate() error {
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		return fmt.Errorf("environment must be '%s' or '%s', got '%s'", EnvDevelopment, EnvProduction, c.Environment)
	}
	if c.GasSafetyMargin < MinGasSafetyMargin {
		return fmt.Errorf("gas_safety_margin must be at least %.1f", MinGasSafetyMargin)
	}
	if c.BlockchainType == "memory" {
		return nil
	}
	network, err := c.ActiveNetwork()
	if err != nil {
		return err
	}
	if network.NodeEndpoint == "" {
		return fmt.Errorf("node_endpoint is required for environment '%s'", c.Environment)
	}
	if network.ContractAddress == "" {
		return fmt.Errorf("contract_address is required for environment '%s'", c.Environment)
	}
	return nil
}

// LogConfiguration logs the blockchain configuration (excluding the signer key)
func (c *BlockchainConfig) LogConfiguration(logger *zap.SugaredLogger) {
	network, _ := c.ActiveNetwork()
	signer := "[not configured]"
	if c.SignerKey != "" {
		signer = "[configured]"
	}
	logger.Infof("Blockchain Configuration: type=%s env=%s endpoint=%s contract=%s timeout=%ds margin=%.2f signer=%s",
		c.BlockchainType, c.Environment, network.NodeEndpoint, network.ContractAddress,
		c.TimeoutSeconds, c.GasSafetyMargin, signer)
}

// LoadBlockchainConfig loads blockchain configuration from the specified YAML file path
// and applies environment overrides.
func LoadBlockchainConfig(path string) (*BlockchainConfig, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path of config file: %w", err)
	}

	zap.S().Infof("Loading blockchain configuration from '%s'...", absPath)

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", absPath, err)
	}

	var cfg BlockchainConfig
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML config file: %w", err)
	}

	cfg.SetDefaults()
	ApplyBlockchainEnv(&cfg, NewEnv())

	// A relative descriptor path is resolved against the config file location
	if cfg.ContractDescriptor != "" && !isURL(cfg.ContractDescriptor) && !filepath.IsAbs(cfg.ContractDescriptor) {
		cfg.ContractDescriptor = filepath.Join(filepath.Dir(absPath), cfg.ContractDescriptor)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("blockchain configuration error: %w", err)
	}

	zap.S().Info("Blockchain configuration loaded successfully.")
	return &cfg, nil
}
