package chainmaker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"chainmaker.org/chainmaker/pb-go/v2/common"
	sdk "chainmaker.org/chainmaker/sdk-go/v2"
	"go.uber.org/zap"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/types"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/config"
)

// SDK is the subset of the ChainMaker chain client the backend uses.
// *sdk.ChainClient implements it.
type SDK interface {
	CreatePayload(txId string, txType common.TxType, contractName, method string, kvs []*common.KeyValuePair, seq uint64, limit *common.Limit) *common.Payload
	EstimateGas(payload *common.Payload) (uint64, error)
	InvokeContractWithLimit(contractName, method, txId string, kvs []*common.KeyValuePair, timeout int64, withSyncResult bool, limit *common.Limit) (*common.TxResponse, error)
	QueryContract(contractName, method string, kvs []*common.KeyValuePair, timeout int64) (*common.TxResponse, error)
	GetCurrentBlockHeight() (uint64, error)
	Stop() error
}

// Client is the wrapper around the ChainMaker SDK client
type Client struct {
	sdkClient    SDK
	contractName string
	methods      config.MethodNames
	cfg          *ChainMakerConfig
	canSign      bool
	logger       *zap.SugaredLogger
}

// Dial initializes the ChainMaker SDK client. The target's contract address is the contract name.
func Dial(ctx context.Context, target types.Target, commonCfg *config.BlockchainConfig, cfg *ChainMakerConfig, logger *zap.SugaredLogger) (*Client, error) {
	logger.Info("Initializing ChainMaker SDK client using builder pattern...")

	var clientOptions []sdk.ChainClientOption
	clientOptions = append(clientOptions, sdk.WithChainClientOrgId(cfg.OrgID))
	clientOptions = append(clientOptions, sdk.WithChainClientChainId(cfg.ChainID))
	clientOptions = append(clientOptions, sdk.WithUserKeyFilePath(cfg.UserKeyPath))
	clientOptions = append(clientOptions, sdk.WithUserCrtFilePath(cfg.UserCertPath))
	clientOptions = append(clientOptions, sdk.WithUserSignKeyFilePath(cfg.UserSignKeyPath))
	clientOptions = append(clientOptions, sdk.WithUserSignCrtFilePath(cfg.UserSignCertPath))

	nodes := cfg.Nodes
	if len(nodes) == 0 {
		if target.NodeEndpoint == "" {
			return nil, types.NewConnectError(types.EndpointUnreachable, errors.New("no node configurations provided in config"))
		}
		nodes = []NodeConfig{{Address: target.NodeEndpoint, ConnCount: 10}}
	}
	for _, nodeCfg := range nodes {
		sdkNodeConfig := sdk.NewNodeConfig(
			sdk.WithNodeAddr(nodeCfg.Address),
			sdk.WithNodeConnCnt(nodeCfg.ConnCount),
			sdk.WithNodeUseTLS(nodeCfg.UseTLS),
			sdk.WithNodeCAPaths(nodeCfg.CaPaths),
			sdk.WithNodeTLSHostName(nodeCfg.TLSHostName),
		)
		clientOptions = append(clientOptions, sdk.AddChainClientNodeConfig(sdkNodeConfig))
	}

	// Apply common configuration (retry, timeout, etc.)
	if commonCfg.RetryLimit > 0 {
		clientOptions = append(clientOptions, sdk.WithRetryLimit(commonCfg.RetryLimit))
	}
	if commonCfg.RetryInterval > 0 {
		clientOptions = append(clientOptions, sdk.WithRetryInterval(commonCfg.RetryInterval))
	}

	client, err := sdk.NewChainClient(clientOptions...)
	if err != nil {
		logger.Errorf("Failed to build ChainMaker SDK client: %v", err)
		return nil, types.NewConnectError(types.EndpointUnreachable, err)
	}

	if err := client.EnableCertHash(); err != nil {
		logger.Warnf("Failed to enable cert hash: %v", err)
	}

	c := NewClient(client, target.ContractAddress, commonCfg.Methods, cfg, logger)
	if err := c.Ping(ctx); err != nil {
		_ = client.Stop()
		return nil, types.NewConnectError(types.EndpointUnreachable, err)
	}

	logger.Info("ChainMaker SDK client initialized successfully.")
	return c, nil
}

// NewClient wraps an already built SDK client
func NewClient(sdkClient SDK, contractName string, methods config.MethodNames, cfg *ChainMakerConfig, logger *zap.SugaredLogger) *Client {
	return &Client{
		sdkClient:    sdkClient,
		contractName: contractName,
		methods:      methods,
		cfg:          cfg,
		canSign:      cfg.UserSignKeyPath != "",
		logger:       logger,
	}
}

// HasSigner reports whether a signing key file was configured
func (c *Client) HasSigner() bool {
	return c.canSign
}

// EstimateCost asks the chain for the gas an invocation would use
func (c *Client) EstimateCost(ctx context.Context, method string, args types.Args) (uint64, error) {
	kvs, err := toKeyValuePairs(args)
	if err != nil {
		return 0, err
	}
	return runWithContext(ctx, func() (uint64, error) {
		payload := c.sdkClient.CreatePayload("", common.TxType_INVOKE_CONTRACT, c.contractName, method, kvs, 0, nil)
		return c.sdkClient.EstimateGas(payload)
	})
}

// Send invokes the contract with the given gas limit
func (c *Client) Send(ctx context.Context, method string, args types.Args, costCeiling uint64) (types.TransactionHash, error) {
	kvs, err := toKeyValuePairs(args)
	if err != nil {
		return "", err
	}

	resp, err := runWithContext(ctx, func() (*common.TxResponse, error) {
		return c.sdkClient.InvokeContractWithLimit(c.contractName, method, "", kvs, timeoutSeconds(ctx), c.cfg.SyncWrites,
			&common.Limit{GasLimit: costCeiling})
	})
	if err != nil {
		return "", fmt.Errorf("SDK invoke failed: %w", err)
	}
	if resp.Code != common.TxStatusCode_SUCCESS {
		return "", types.NewWriteError(types.Reverted, fmt.Errorf("contract execution failed: %s (code: %d)", resp.Message, resp.Code))
	}
	if resp.ContractResult != nil && resp.ContractResult.Code != 0 {
		return "", types.NewWriteError(types.Reverted, fmt.Errorf("contract rejected '%s': %s", method, resp.ContractResult.Message))
	}
	return types.TransactionHash(resp.TxId), nil
}

// Call queries the contract. The history method's JSON result is decoded into
// positional outputs and a transaction trail.
func (c *Client) Call(ctx context.Context, method string, args types.Args) (*types.RawReturnValue, error) {
	kvs, err := toKeyValuePairs(args)
	if err != nil {
		return nil, types.NewReadError(types.Malformed, err)
	}

	resp, err := runWithContext(ctx, func() (*common.TxResponse, error) {
		return c.sdkClient.QueryContract(c.contractName, method, kvs, timeoutSeconds(ctx))
	})
	if err != nil {
		return nil, fmt.Errorf("SDK query failed: %w", err)
	}
	if resp.Code != common.TxStatusCode_SUCCESS || (resp.ContractResult != nil && resp.ContractResult.Code != 0) {
		message := resp.Message
		if resp.ContractResult != nil && resp.ContractResult.Message != "" {
			message = resp.ContractResult.Message
		}
		if strings.Contains(strings.ToLower(message), "not found") {
			return nil, types.NewReadError(types.NotFound, errors.New(message))
		}
		return nil, fmt.Errorf("contract query failed: %s (code: %d)", message, resp.Code)
	}

	var result []byte
	if resp.ContractResult != nil {
		result = resp.ContractResult.Result
	}
	if method == c.methods.History {
		return decodeHistory(result)
	}
	return &types.RawReturnValue{Outputs: []any{string(result)}}, nil
}

// Ping reads the current block height
func (c *Client) Ping(ctx context.Context) error {
	_, err := runWithContext(ctx, c.sdkClient.GetCurrentBlockHeight)
	return err
}

// Close stops the SDK client
func (c *Client) Close() error {
	c.logger.Info("Closing ChainMaker SDK client...")
	if err := c.sdkClient.Stop(); err != nil {
		c.logger.Errorf("Error stopping ChainMaker SDK client: %v", err)
		return fmt.Errorf("failed to stop ChainMaker SDK client: %w", err)
	}
	return nil
}

// toKeyValuePairs encodes arguments as contract parameters: strings verbatim,
// integers in decimal, string lists as JSON arrays.
func toKeyValuePairs(args types.Args) ([]*common.KeyValuePair, error) {
	kvs := make([]*common.KeyValuePair, 0, len(args))
	for _, arg := range args {
		var value []byte
		switch v := arg.Value.(type) {
		case string:
			value = []byte(v)
		case []byte:
			value = v
		case int64:
			value = []byte(strconv.FormatInt(v, 10))
		case int:
			value = []byte(strconv.Itoa(v))
		case uint64:
			value = []byte(strconv.FormatUint(v, 10))
		case bool:
			value = []byte(strconv.FormatBool(v))
		case []string:
			encoded, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			value = encoded
		default:
			return nil, fmt.Errorf("unsupported value type %T for parameter '%s'", arg.Value, arg.Name)
		}
		kvs = append(kvs, &common.KeyValuePair{Key: arg.Name, Value: value})
	}
	return kvs, nil
}

// timeoutSeconds converts the context deadline into the SDK's timeout argument; -1 means the SDK default
func timeoutSeconds(ctx context.Context) int64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return -1
	}
	seconds := int64(time.Until(deadline).Seconds())
	if seconds < 1 {
		return 1
	}
	return seconds
}

// runWithContext returns when fn does or ctx ends, whichever is first.
// The SDK calls are not context-aware.
func runWithContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
