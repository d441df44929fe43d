package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/types"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/config"
)

const initializeKey = "initialize"

// Ready describes an established ledger connection
type Ready struct {
	BlockchainType string
	Target         Target
	CanWrite       bool
	ConnectedAt    time.Time
}

// LedgerClient is the process-wide ledger connection. It is constructed once,
// passed to every consumer, and connects lazily on first use.
type LedgerClient struct {
	cfg    *config.BlockchainConfig
	target Target
	dial   Dialer
	logger *zap.SugaredLogger

	group singleflight.Group

	mu      sync.RWMutex
	backend Backend
	ready   *Ready
}

// NewLedgerClient creates an unconnected client for the configured network profile
func NewLedgerClient(cfg *config.BlockchainConfig, dial Dialer, logger *zap.SugaredLogger) (*LedgerClient, error) {
	network, err := cfg.ActiveNetwork()
	if err != nil && cfg.BlockchainType != "memory" {
		return nil, err
	}

	return &LedgerClient{
		cfg: cfg,
		target: Target{
			NodeEndpoint:       network.NodeEndpoint,
			ContractAddress:    network.ContractAddress,
			ContractDescriptor: cfg.ContractDescriptor,
			SignerKey:          cfg.SignerKey,
		},
		dial:   dial,
		logger: logger,
	}, nil
}

// Initialize connects to target. Calling it while connected is a no-op that
// returns the cached state; concurrent first calls share one dial and all
// observe the same result. A failed attempt is not cached.
func (c *LedgerClient) Initialize(ctx context.Context, target Target) (*Ready, error) {
	if ready := c.current(); ready != nil {
		return ready, nil
	}

	v, err, _ := c.group.Do(initializeKey, func() (any, error) {
		if ready := c.current(); ready != nil {
			return ready, nil
		}

		// The dial outlives any single caller's cancellation; it is bounded by the dial timeout instead
		dialCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Duration(c.cfg.DialTimeoutSeconds)*time.Second)
		defer cancel()

		c.logger.Infof("Connecting to ledger (%s, %s)...", c.cfg.BlockchainType, target)
		backend, err := c.dial(dialCtx, target)
		if err != nil {
			c.logger.Errorf("Ledger connection failed: %v", err)
			return nil, asConnectError(err)
		}

		ready := &Ready{
			BlockchainType: c.cfg.BlockchainType,
			Target:         Target{NodeEndpoint: target.NodeEndpoint, ContractAddress: target.ContractAddress, ContractDescriptor: target.ContractDescriptor},
			CanWrite:       backend.HasSigner(),
			ConnectedAt:    time.Now(),
		}

		c.mu.Lock()
		c.backend = backend
		c.ready = ready
		c.mu.Unlock()

		if !ready.CanWrite {
			c.logger.Warn("No signer credential configured; ledger writes will be rejected")
		}
		c.logger.Info("Ledger connection established.")
		return ready, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Ready), nil
}

// Ensure initializes the client against the configured target
func (c *LedgerClient) Ensure(ctx context.Context) (*Ready, error) {
	return c.Initialize(ctx, c.target)
}

// Shutdown releases the connection. A later call to Initialize reconnects.
func (c *LedgerClient) Shutdown() error {
	c.mu.Lock()
	backend := c.backend
	c.backend = nil
	c.ready = nil
	c.mu.Unlock()

	if backend == nil {
		return nil
	}
	c.logger.Info("Closing ledger connection...")
	if err := backend.Close(); err != nil {
		return fmt.Errorf("failed to close ledger connection: %w", err)
	}
	return nil
}

// SubmitWrite estimates the cost of a write, applies the safety margin and sends it.
// The write is never sent when estimation fails.
func (c *LedgerClient) SubmitWrite(ctx context.Context, method string, args types.Args) (types.TransactionHash, error) {
	if _, err := c.Ensure(ctx); err != nil {
		return "", types.NewWriteError(types.WriteNotInitialized, err)
	}
	backend := c.currentBackend()
	if backend == nil {
		return "", types.NewWriteError(types.WriteNotInitialized, errors.New("ledger connection closed"))
	}
	if !backend.HasSigner() {
		return "", types.NewWriteError(types.SignerUnavailable, errors.New("no signer credential configured"))
	}

	estimateCtx, cancel := c.rpcContext(ctx)
	estimate, err := backend.EstimateCost(estimateCtx, method, args)
	cancel()
	if err != nil {
		if isTransportFailure(err) || types.WriteKind(err) == types.WriteNetworkTimeout {
			return "", types.NewWriteError(types.WriteNetworkTimeout, err)
		}
		return "", types.NewWriteError(types.EstimationFailed, err)
	}

	ceiling := ApplySafetyMargin(estimate, c.cfg.GasSafetyMargin)
	c.logger.Debugf("Estimated %d cost units for '%s', sending with ceiling %d", estimate, method, ceiling)

	sendCtx, cancel := c.rpcContext(ctx)
	defer cancel()
	hash, err := backend.Send(sendCtx, method, args, ceiling)
	if err != nil {
		return "", classifyWriteError(err)
	}
	return hash, nil
}

// Call performs a read-only contract call. NotFound is returned as a typed,
// expected outcome.
func (c *LedgerClient) Call(ctx context.Context, method string, args types.Args) (*types.RawReturnValue, error) {
	if _, err := c.Ensure(ctx); err != nil {
		return nil, types.NewReadError(types.ReadNotInitialized, err)
	}
	backend := c.currentBackend()
	if backend == nil {
		return nil, types.NewReadError(types.ReadNotInitialized, errors.New("ledger connection closed"))
	}

	callCtx, cancel := c.rpcContext(ctx)
	defer cancel()
	raw, err := backend.Call(callCtx, method, args)
	if err != nil {
		return nil, classifyReadError(err)
	}
	if raw == nil {
		return nil, types.NewReadError(types.Malformed, fmt.Errorf("empty result for '%s'", method))
	}
	return raw, nil
}

// CheckConnectivity is a best-effort liveness check. It never panics and
// reports false on any failure.
func (c *LedgerClient) CheckConnectivity(ctx context.Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warnf("Ledger ping panicked: %v", r)
			ok = false
		}
	}()

	if _, err := c.Ensure(ctx); err != nil {
		return false
	}
	backend := c.currentBackend()
	if backend == nil {
		return false
	}

	pingCtx, cancel := c.rpcContext(ctx)
	defer cancel()
	if err := backend.Ping(pingCtx); err != nil {
		c.logger.Debugf("Ledger ping failed: %v", err)
		return false
	}
	return true
}

// Methods returns the configured contract method names
func (c *LedgerClient) Methods() config.MethodNames {
	return c.cfg.Methods
}

// ChainSpecific returns the backend-specific configuration the client was built with
func (c *LedgerClient) ChainSpecific() any {
	return c.cfg.ChainSpecific
}

// IsInitialized reports whether a connection is currently held
func (c *LedgerClient) IsInitialized() bool {
	return c.current() != nil
}

func (c *LedgerClient) current() *Ready {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

func (c *LedgerClient) currentBackend() Backend {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backend
}

func (c *LedgerClient) rpcContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutSeconds)*time.Second)
}

// ApplySafetyMargin scales an estimate by margin, never by less than
// config.MinGasSafetyMargin, rounding up.
func ApplySafetyMargin(estimate uint64, margin float64) uint64 {
	if margin < config.MinGasSafetyMargin {
		margin = config.MinGasSafetyMargin
	}
	scaled := math.Ceil(float64(estimate) * margin)
	if scaled >= math.MaxUint64 {
		return math.MaxUint64
	}
	ceiling := uint64(scaled)

	// Float rounding must never drop the ceiling below 1.5x
	floor := estimate + (estimate+1)/2
	if floor < estimate { // overflow
		return math.MaxUint64
	}
	if ceiling < floor {
		ceiling = floor
	}
	return ceiling
}

func asConnectError(err error) error {
	var connectErr *types.ConnectError
	if errors.As(err, &connectErr) {
		return err
	}
	return types.NewConnectError(types.EndpointUnreachable, err)
}

func classifyWriteError(err error) error {
	var writeErr *types.WriteError
	if errors.As(err, &writeErr) {
		return err
	}
	if isTransportFailure(err) {
		return types.NewWriteError(types.WriteNetworkTimeout, err)
	}
	// Anything else means the node or contract refused the write
	return types.NewWriteError(types.Reverted, err)
}

func classifyReadError(err error) error {
	var readErr *types.ReadError
	if errors.As(err, &readErr) {
		return err
	}
	// Timeouts and every other transport failure mean the chain could not be read
	return types.NewReadError(types.ReadNetworkTimeout, err)
}

// isTransportFailure reports timeouts and failures to reach the node at all
func isTransportFailure(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	return errors.As(err, &opErr) || errors.As(err, &dnsErr)
}
