package chainmaker

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// NodeConfig stores detailed configuration for a single ChainMaker node
type NodeConfig struct {
	Address     string   `yaml:"address"`
	ConnCount   int      `yaml:"conn_count"`
	UseTLS      bool     `yaml:"use_tls"`
	TLSHostName string   `yaml:"tls_host_name"`
	CaPaths     []string `yaml:"ca_paths"`
}

// ChainMakerConfig stores ChainMaker-specific configuration.
// The contract name comes from the active network profile's contract_address.
type ChainMakerConfig struct {
	// --- SDK Connection Required ---
	ChainID string `yaml:"chain_id"`
	OrgID   string `yaml:"org_id"`

	// TLS Connection Credentials
	UserKeyPath  string `yaml:"user_key_path"`
	UserCertPath string `yaml:"user_cert_path"`

	// Transaction Signing Credentials
	UserSignKeyPath  string `yaml:"user_sign_key_path"`
	UserSignCertPath string `yaml:"user_sign_cert_path"`

	// When empty, a single plain node is built from the profile's node_endpoint
	Nodes []NodeConfig `yaml:"nodes"`

	// --- Business Logic ---
	// Wait for the write to be included before returning
	SyncWrites bool `yaml:"sync_writes"`
}

// SetDefaults fills unset fields
func (c *ChainMakerConfig) SetDefaults() {
	for i := range c.Nodes {
		if c.Nodes[i].ConnCount <= 0 {
			c.Nodes[i].ConnCount = 10
		}
	}
}

// Validate checks the fields the SDK cannot start without
func (c *ChainMakerConfig) Validate() error {
	if c.ChainID == "" {
		return fmt.Errorf("chain_id is required")
	}
	if c.OrgID == "" {
		return fmt.Errorf("org_id is required")
	}
	for _, node := range c.Nodes {
		if node.UseTLS && len(node.CaPaths) == 0 {
			return fmt.Errorf("node %s has TLS enabled but no ca_paths provided", node.Address)
		}
	}
	return nil
}

// LoadChainMakerConfig loads ChainMaker configuration from the specified YAML file path
func LoadChainMakerConfig(path string) (*ChainMakerConfig, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path of ChainMaker config file: %w", err)
	}

	zap.S().Infof("Loading ChainMaker configuration from '%s'...", absPath)

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read ChainMaker config file '%s': %w", absPath, err)
	}

	var cfg ChainMakerConfig
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ChainMaker YAML config file: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("ChainMaker configuration error: %w", err)
	}

	zap.S().Info("ChainMaker configuration loaded successfully.")
	return &cfg, nil
}
