package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/types"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/config"
)

// RPC is the subset of the JSON-RPC client the backend uses. *ethclient.Client implements it.
type RPC interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]gethtypes.Log, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
	Close()
}

// Client is the Ethereum JSON-RPC backend
type Client struct {
	rpc      RPC
	contract common.Address
	abi      abi.ABI
	methods  config.MethodNames
	cfg      *EthereumConfig
	chainID  *big.Int
	signer   *ecdsa.PrivateKey
	from     common.Address
	logger   *zap.SugaredLogger

	// serializes nonce allocation
	sendMu sync.Mutex
}

// Dial fetches the contract descriptor, connects to the node and verifies it answers
func Dial(ctx context.Context, target types.Target, methods config.MethodNames, cfg *EthereumConfig, logger *zap.SugaredLogger) (*Client, error) {
	parsed, err := LoadDescriptor(ctx, target.ContractDescriptor, nil)
	if err != nil {
		return nil, types.NewConnectError(types.ContractDescriptorUnavailable, err)
	}

	rpcClient, err := ethclient.DialContext(ctx, target.NodeEndpoint)
	if err != nil {
		return nil, types.NewConnectError(types.EndpointUnreachable, err)
	}

	client, err := NewClient(ctx, rpcClient, parsed, target, methods, cfg, logger)
	if err != nil {
		rpcClient.Close()
		return nil, err
	}
	return client, nil
}

// NewClient builds a backend over an established RPC connection
func NewClient(ctx context.Context, rpc RPC, parsed abi.ABI, target types.Target, methods config.MethodNames, cfg *EthereumConfig, logger *zap.SugaredLogger) (*Client, error) {
	if !common.IsHexAddress(target.ContractAddress) {
		return nil, types.NewConnectError(types.EndpointUnreachable, fmt.Errorf("invalid contract address '%s'", target.ContractAddress))
	}

	c := &Client{
		rpc:      rpc,
		contract: common.HexToAddress(target.ContractAddress),
		abi:      parsed,
		methods:  methods,
		cfg:      cfg,
		logger:   logger,
	}

	if cfg.ChainID > 0 {
		c.chainID = big.NewInt(cfg.ChainID)
	} else {
		chainID, err := rpc.ChainID(ctx)
		if err != nil {
			return nil, types.NewConnectError(types.EndpointUnreachable, err)
		}
		c.chainID = chainID
	}

	if key := strings.TrimPrefix(strings.TrimSpace(target.SignerKey), "0x"); key != "" {
		signer, err := crypto.HexToECDSA(key)
		if err != nil {
			// The key itself is never echoed
			logger.Warn("Signer key could not be parsed; ledger writes will be rejected")
		} else {
			c.signer = signer
			c.from = crypto.PubkeyToAddress(signer.PublicKey)
		}
	}

	for _, name := range []string{methods.RecordItem, methods.History, methods.VerifyVendor} {
		if _, ok := parsed.Methods[name]; !ok {
			logger.Warnf("Contract descriptor has no method '%s'", name)
		}
	}
	// Histories are rebuilt from the record event, so without it no anchored item could ever be shown
	if _, ok := parsed.Events[cfg.RecordedEvent]; !ok {
		return nil, types.NewConnectError(types.ContractDescriptorUnavailable,
			fmt.Errorf("contract descriptor has no event '%s'", cfg.RecordedEvent))
	}
	if _, ok := parsed.Events[cfg.StatusEvent]; !ok {
		logger.Warnf("Contract descriptor has no event '%s'; histories will lack status updates", cfg.StatusEvent)
	}

	logger.Infof("Ethereum backend ready (chain id %s, contract %s, signer %s)", c.chainID, c.contract.Hex(), c.signerLabel())
	return c, nil
}

func (c *Client) signerLabel() string {
	if c.signer == nil {
		return "[not configured]"
	}
	return c.from.Hex()
}

// HasSigner reports whether writes can be signed
func (c *Client) HasSigner() bool {
	return c.signer != nil
}

// EstimateCost asks the node for the gas the write would use
func (c *Client) EstimateCost(ctx context.Context, method string, args types.Args) (uint64, error) {
	data, err := c.pack(method, args)
	if err != nil {
		return 0, err
	}
	return c.rpc.EstimateGas(ctx, ethereum.CallMsg{From: c.from, To: &c.contract, Data: data})
}

// Send signs and broadcasts the write. With wait_for_receipt it also waits
// for the receipt and reports a failed one as Reverted.
func (c *Client) Send(ctx context.Context, method string, args types.Args, costCeiling uint64) (types.TransactionHash, error) {
	if c.signer == nil {
		return "", types.NewWriteError(types.SignerUnavailable, errors.New("no signer credential configured"))
	}
	data, err := c.pack(method, args)
	if err != nil {
		return "", err
	}

	hash, err := c.signAndSend(ctx, data, costCeiling)
	if err != nil {
		if isRevert(err) {
			return "", types.NewWriteError(types.Reverted, err)
		}
		return "", err
	}
	c.logger.Debugf("Sent '%s' as %s", method, hash.Hex())

	if c.cfg.WaitForReceipt {
		if err := c.awaitReceipt(ctx, hash); err != nil {
			return "", err
		}
	}
	return types.TransactionHash(hash.Hex()), nil
}

func (c *Client) signAndSend(ctx context.Context, data []byte, gasLimit uint64) (common.Hash, error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	nonce, err := c.rpc.PendingNonceAt(ctx, c.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := c.rpc.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get gas price: %w", err)
	}

	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &c.contract,
		Value:    big.NewInt(0),
		Data:     data,
	})
	signed, err := gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(c.chainID), c.signer)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.rpc.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	return signed.Hash(), nil
}

// awaitReceipt polls for the receipt. A receipt that does not arrive in time is
// not a failure: the transaction is already broadcast and must not be resent.
func (c *Client) awaitReceipt(ctx context.Context, hash common.Hash) error {
	waitCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.ReceiptTimeoutSeconds)*time.Second)
	defer cancel()

	policy := backoff.WithContext(backoff.NewConstantBackOff(time.Duration(c.cfg.ReceiptPollMillis)*time.Millisecond), waitCtx)
	receipt, err := backoff.RetryWithData(func() (*gethtypes.Receipt, error) {
		return c.rpc.TransactionReceipt(waitCtx, hash)
	}, policy)
	if err != nil {
		c.logger.Warnf("Transaction %s sent but receipt not confirmed: %v", hash.Hex(), err)
		return nil
	}

	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return types.NewWriteError(types.Reverted, fmt.Errorf("transaction %s failed in block %s", hash.Hex(), receipt.BlockNumber))
	}
	return nil
}

// Call performs a read-only call. For the history getter it also attaches the
// transactions found in the contract's events for the queried id.
func (c *Client) Call(ctx context.Context, method string, args types.Args) (*types.RawReturnValue, error) {
	m, ok := c.abi.Methods[method]
	if !ok {
		return nil, types.NewReadError(types.Malformed, fmt.Errorf("contract has no method '%s'", method))
	}
	data, err := c.pack(method, args)
	if err != nil {
		return nil, types.NewReadError(types.Malformed, err)
	}

	out, err := c.rpc.CallContract(ctx, ethereum.CallMsg{From: c.from, To: &c.contract, Data: data}, nil)
	if err != nil {
		if isRevert(err) {
			return nil, types.NewReadError(types.NotFound, err)
		}
		return nil, err
	}
	if len(out) == 0 && len(m.Outputs) > 0 {
		return nil, types.NewReadError(types.Malformed, fmt.Errorf("empty return data from %s, is the contract deployed?", c.contract.Hex()))
	}

	decoded, err := m.Outputs.Unpack(out)
	if err != nil {
		return nil, types.NewReadError(types.Malformed, err)
	}
	raw := &types.RawReturnValue{Outputs: normalizeOutputs(decoded)}

	if method != c.methods.History || len(args) == 0 {
		return raw, nil
	}
	if isZeroRecord(raw.Outputs) {
		return nil, types.NewReadError(types.NotFound, nil)
	}

	id, ok := args[0].Value.(string)
	if !ok {
		return nil, types.NewReadError(types.Malformed, fmt.Errorf("history key must be a string, got %T", args[0].Value))
	}
	raw.Trail, err = c.trail(ctx, id)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// trail collects the record and status events emitted for id, oldest first,
// each stamped with its block time.
func (c *Client) trail(ctx context.Context, id string) ([]types.TrailEntry, error) {
	recorded := c.abi.Events[c.cfg.RecordedEvent]
	updated, hasUpdated := c.abi.Events[c.cfg.StatusEvent]

	topics := []common.Hash{recorded.ID}
	if hasUpdated {
		topics = append(topics, updated.ID)
	}

	logs, err := c.rpc.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(c.cfg.HistoryFromBlock),
		Addresses: []common.Address{c.contract},
		// An indexed string topic is the keccak hash of the string
		Topics: [][]common.Hash{topics, {crypto.Keccak256Hash([]byte(id))}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to filter history logs: %w", err)
	}

	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})

	blockTimes := make(map[uint64]int64)
	entries := make([]types.TrailEntry, 0, len(logs))
	for _, lg := range logs {
		if lg.Removed || len(lg.Topics) == 0 {
			continue
		}

		blockTime, ok := blockTimes[lg.BlockNumber]
		if !ok {
			header, err := c.rpc.HeaderByNumber(ctx, new(big.Int).SetUint64(lg.BlockNumber))
			if err != nil {
				return nil, fmt.Errorf("failed to read block %d: %w", lg.BlockNumber, err)
			}
			blockTime = int64(header.Time)
			blockTimes[lg.BlockNumber] = blockTime
		}

		entry := types.TrailEntry{TxHash: lg.TxHash.Hex(), BlockTimestamp: blockTime}
		switch {
		case lg.Topics[0] == recorded.ID:
			entry.StatusCode = types.StatusPending.ChainCode()
		case hasUpdated && lg.Topics[0] == updated.ID:
			entry.StatusCode = c.statusCode(updated, lg.Data)
		default:
			continue
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		// The getter found the record, so its events are out of reach of this node
		c.logger.Errorf("Item %s is recorded but no %s event was found from block %d; check history_from_block and the node's log retention",
			id, c.cfg.RecordedEvent, c.cfg.HistoryFromBlock)
		return nil, types.NewReadError(types.Malformed, fmt.Errorf("no history events for recorded item %s", id))
	}
	return entries, nil
}

func (c *Client) statusCode(event abi.Event, data []byte) int64 {
	fields := make(map[string]any)
	if err := c.abi.UnpackIntoMap(fields, event.Name, data); err != nil {
		c.logger.Warnf("Undecodable '%s' event: %v", event.Name, err)
		return types.StatusUnknown.ChainCode()
	}
	if code, ok := normalizeValue(fields[c.cfg.StatusField]).(int64); ok {
		return code
	}
	return types.StatusUnknown.ChainCode()
}

// Ping asks the node for its head block
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.rpc.BlockNumber(ctx)
	return err
}

// Close closes the RPC connection
func (c *Client) Close() error {
	c.logger.Info("Closing Ethereum RPC client...")
	c.rpc.Close()
	return nil
}

func (c *Client) pack(method string, args types.Args) ([]byte, error) {
	m, ok := c.abi.Methods[method]
	if !ok {
		return nil, fmt.Errorf("contract has no method '%s'", method)
	}
	values, err := packArgs(m, args)
	if err != nil {
		return nil, err
	}
	return c.abi.Pack(method, values...)
}

func isRevert(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "revert")
}
