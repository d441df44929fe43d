package config

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment override, e.g. EWASTE_SIGNER_KEY
const EnvPrefix = "EWASTE"

// NewEnv returns a viper instance bound to the process environment
func NewEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// ApplyBlockchainEnv overrides file values with the environment.
// EWASTE_ENV picks the profile; EWASTE_<PROFILE>_NODE_ENDPOINT and friends
// override one profile, EWASTE_NODE_ENDPOINT and friends override the active one.
func ApplyBlockchainEnv(cfg *BlockchainConfig, v *viper.Viper) {
	if env := v.GetString("env"); env != "" {
		cfg.Environment = strings.ToLower(env)
	}
	if blockchainType := v.GetString("blockchain_type"); blockchainType != "" {
		cfg.BlockchainType = blockchainType
	}
	if descriptor := v.GetString("contract_descriptor"); descriptor != "" {
		cfg.ContractDescriptor = descriptor
	}

	if cfg.Networks == nil {
		cfg.Networks = make(map[string]NetworkConfig)
	}
	for _, profile := range []string{EnvDevelopment, EnvProduction} {
		network := cfg.Networks[profile]
		changed := false
		if endpoint := v.GetString(profile + "_node_endpoint"); endpoint != "" {
			network.NodeEndpoint = endpoint
			changed = true
		}
		if address := v.GetString(profile + "_contract_address"); address != "" {
			network.ContractAddress = address
			changed = true
		}
		if changed {
			cfg.Networks[profile] = network
		}
	}

	active := cfg.Networks[cfg.Environment]
	changed := false
	if endpoint := v.GetString("node_endpoint"); endpoint != "" {
		active.NodeEndpoint = endpoint
		changed = true
	}
	if address := v.GetString("contract_address"); address != "" {
		active.ContractAddress = address
		changed = true
	}
	if changed {
		cfg.Networks[cfg.Environment] = active
	}

	cfg.SignerKey = strings.TrimSpace(v.GetString("signer_key"))
}

// ApplyDatabaseEnv overrides the DSN with EWASTE_DATABASE_DSN when set
func ApplyDatabaseEnv(cfg *DatabaseConfig, v *viper.Viper) {
	if dsn := v.GetString("database_dsn"); dsn != "" {
		cfg.DSN = dsn
	}
}

func isURL(value string) bool {
	return strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://")
}
