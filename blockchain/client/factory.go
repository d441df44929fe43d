package blockchain

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/client/chainmaker"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/client/ethereum"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/client/memory"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/config"
)

// BlockchainType represents the type of blockchain client
type BlockchainType string

const (
	Ethereum   BlockchainType = "ethereum"
	ChainMaker BlockchainType = "chainmaker"
	Memory     BlockchainType = "memory"
)

// LoadChainSpecificConfig loads chain-specific configuration based on blockchain type
func LoadChainSpecificConfig(blockchainType string, configDir string) (any, error) {
	switch BlockchainType(blockchainType) {
	case Ethereum, "":
		return ethereum.LoadEthereumConfig(filepath.Join(configDir, "clients", "ethereum.yml"))
	case ChainMaker:
		return chainmaker.LoadChainMakerConfig(filepath.Join(configDir, "clients", "chainmaker.yml"))
	case Memory:
		return memory.LoadMemoryConfig(filepath.Join(configDir, "clients", "memory.yml"))
	default:
		return nil, fmt.Errorf("unsupported blockchain type: %s", blockchainType)
	}
}

// NewDialer returns the dialer for the configured blockchain type.
// For the memory type the returned ledger is non-nil so callers can mine.
func NewDialer(cfg *config.BlockchainConfig, logger *zap.SugaredLogger) (Dialer, *memory.Ledger, error) {
	switch BlockchainType(cfg.BlockchainType) {
	case Ethereum, "":
		ethCfg, ok := cfg.ChainSpecific.(*ethereum.EthereumConfig)
		if !ok {
			return nil, nil, fmt.Errorf("invalid Ethereum configuration type")
		}
		return func(ctx context.Context, target Target) (Backend, error) {
			return ethereum.Dial(ctx, target, cfg.Methods, ethCfg, logger)
		}, nil, nil

	case ChainMaker:
		cmCfg, ok := cfg.ChainSpecific.(*chainmaker.ChainMakerConfig)
		if !ok {
			return nil, nil, fmt.Errorf("invalid ChainMaker configuration type")
		}
		return func(ctx context.Context, target Target) (Backend, error) {
			return chainmaker.Dial(ctx, target, cfg, cmCfg, logger)
		}, nil, nil

	case Memory:
		memCfg, ok := cfg.ChainSpecific.(*memory.MemoryConfig)
		if !ok {
			memCfg = &memory.MemoryConfig{Signer: true}
		}
		ledger := memory.NewLedger(cfg.Methods, logger)
		return func(ctx context.Context, target Target) (Backend, error) {
			return ledger.Backend(memCfg.Signer || target.SignerKey != ""), nil
		}, ledger, nil

	default:
		return nil, nil, fmt.Errorf("unsupported blockchain type: %s", cfg.BlockchainType)
	}
}

// NewLedgerClientFromFile builds an unconnected ledger client from configuration files.
// The memory ledger is returned when that backend is selected.
func NewLedgerClientFromFile(configPath string, logger *zap.SugaredLogger) (*LedgerClient, *memory.Ledger, error) {
	// Load common configuration
	cfg, err := config.LoadBlockchainConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load common config from file '%s': %w", configPath, err)
	}

	// Load chain-specific configuration
	configDir := filepath.Dir(configPath)
	chainSpecificCfg, err := LoadChainSpecificConfig(cfg.BlockchainType, configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load chain-specific config: %w", err)
	}
	cfg.ChainSpecific = chainSpecificCfg
	cfg.LogConfiguration(logger)

	dial, ledger, err := NewDialer(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	client, err := NewLedgerClient(cfg, dial, logger)
	if err != nil {
		return nil, nil, err
	}
	return client, ledger, nil
}
