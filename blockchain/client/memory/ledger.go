package memory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/types"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/config"
)

// UpdateStatusMethod appends a status transition: (id string, status int64, handler string)
const UpdateStatusMethod = "updateWasteItemStatus"

const (
	baseCost    = 21_000
	costPerByte = 68
)

var errReverted = errors.New("execution reverted")

type item struct {
	itemType  string
	weight    int64
	timestamp int64
	status    int64
	handlers  []string
	trail     []types.TrailEntry
}

type pendingTx struct {
	hash   string
	method string
	args   types.Args
}

// Ledger is an in-process chain. Writes wait in a mempool and become visible
// to reads only after Mine.
type Ledger struct {
	methods config.MethodNames
	now     func() time.Time
	logger  *zap.SugaredLogger

	mu      sync.Mutex
	mempool []pendingTx
	items   map[string]*item
	vendors map[string][]string
	height  uint64
	nonce   uint64
}

// NewLedger creates an empty ledger
func NewLedger(methods config.MethodNames, logger *zap.SugaredLogger) *Ledger {
	return &Ledger{
		methods: methods,
		now:     time.Now,
		logger:  logger,
		items:   make(map[string]*item),
		vendors: make(map[string][]string),
	}
}

// WithClock replaces the block time source
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Backend returns a connection to the ledger. Writes are only accepted when canSign is set.
func (l *Ledger) Backend(canSign bool) *Backend {
	return &Backend{ledger: l, canSign: canSign}
}

// Mine includes every pending write in a new block and returns how many were included.
// A write that fails at inclusion time is dropped, as a failed transaction would be.
func (l *Ledger) Mine() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.mempool) == 0 {
		return 0
	}

	l.height++
	blockTime := l.now().Unix()
	included := 0
	for _, tx := range l.mempool {
		if err := l.apply(tx, blockTime); err != nil {
			l.logger.Warnf("Transaction %s dropped at block %d: %v", tx.hash, l.height, err)
			continue
		}
		included++
	}
	l.mempool = nil
	return included
}

// Pending returns the number of writes waiting to be mined
func (l *Ledger) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.mempool)
}

// Height returns the number of mined blocks
func (l *Ledger) Height() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.height
}

// AutoMine mines on every tick until ctx ends
func (l *Ledger) AutoMine(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Mine(); n > 0 {
				l.logger.Debugf("Mined block %d with %d transactions", l.Height(), n)
			}
		}
	}
}

// validate checks a write against mined state and the mempool, as estimation would
func (l *Ledger) validate(method string, args types.Args) error {
	switch method {
	case l.methods.RecordItem:
		if len(args) != 5 {
			return fmt.Errorf("%s takes 5 arguments, got %d", method, len(args))
		}
		id, err := stringArg(args, 0)
		if err != nil {
			return err
		}
		if _, exists := l.items[id]; exists {
			return fmt.Errorf("%w: item %s already recorded", errReverted, id)
		}
		for _, tx := range l.mempool {
			if tx.method == method && len(tx.args) > 0 && tx.args[0].Value == id {
				return fmt.Errorf("%w: item %s already pending", errReverted, id)
			}
		}
		if _, err := stringArg(args, 1); err != nil {
			return err
		}
		if weight, err := intArg(args, 2); err != nil || weight < 0 {
			return fmt.Errorf("%w: invalid weight", errReverted)
		}
		if _, err := intArg(args, 3); err != nil {
			return err
		}
		_, err = stringArg(args, 4)
		return err
	case UpdateStatusMethod:
		if len(args) != 3 {
			return fmt.Errorf("%s takes 3 arguments, got %d", method, len(args))
		}
		id, err := stringArg(args, 0)
		if err != nil {
			return err
		}
		if _, exists := l.items[id]; !exists {
			return fmt.Errorf("%w: item %s not found", errReverted, id)
		}
		if _, err := intArg(args, 1); err != nil {
			return err
		}
		_, err = stringArg(args, 2)
		return err
	case l.methods.VerifyVendor:
		if len(args) != 2 {
			return fmt.Errorf("%s takes 2 arguments, got %d", method, len(args))
		}
		if _, err := stringArg(args, 0); err != nil {
			return err
		}
		if _, ok := args[1].Value.([]string); !ok {
			return fmt.Errorf("certifications must be []string, got %T", args[1].Value)
		}
		return nil
	default:
		return fmt.Errorf("contract has no method '%s'", method)
	}
}

func (l *Ledger) apply(tx pendingTx, blockTime int64) error {
	switch tx.method {
	case l.methods.RecordItem:
		id, _ := stringArg(tx.args, 0)
		if _, exists := l.items[id]; exists {
			return fmt.Errorf("%w: item %s already recorded", errReverted, id)
		}
		itemType, _ := stringArg(tx.args, 1)
		weight, _ := intArg(tx.args, 2)
		timestamp, _ := intArg(tx.args, 3)
		l.items[id] = &item{
			itemType:  itemType,
			weight:    weight,
			timestamp: timestamp,
			status:    types.StatusPending.ChainCode(),
			handlers:  []string{},
			trail:     []types.TrailEntry{{TxHash: tx.hash, BlockTimestamp: blockTime, StatusCode: types.StatusPending.ChainCode()}},
		}
	case UpdateStatusMethod:
		id, _ := stringArg(tx.args, 0)
		it, exists := l.items[id]
		if !exists {
			return fmt.Errorf("%w: item %s not found", errReverted, id)
		}
		status, _ := intArg(tx.args, 1)
		handler, _ := stringArg(tx.args, 2)
		it.status = status
		if handler != "" {
			it.handlers = append(it.handlers, handler)
		}
		it.trail = append(it.trail, types.TrailEntry{TxHash: tx.hash, BlockTimestamp: blockTime, StatusCode: status})
	case l.methods.VerifyVendor:
		vendorID, _ := stringArg(tx.args, 0)
		certifications, _ := tx.args[1].Value.([]string)
		l.vendors[vendorID] = append([]string(nil), certifications...)
	}
	return nil
}

func (l *Ledger) submit(method string, args types.Args) (types.TransactionHash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.validate(method, args); err != nil {
		return "", err
	}
	l.nonce++
	hash := crypto.Keccak256Hash([]byte(strconv.FormatUint(l.nonce, 10)), []byte(method), []byte(fmt.Sprint(args.Values()...))).Hex()
	l.mempool = append(l.mempool, pendingTx{hash: hash, method: method, args: args})
	return types.TransactionHash(hash), nil
}

func (l *Ledger) estimate(method string, args types.Args) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.validate(method, args); err != nil {
		return 0, err
	}
	return baseCost + costPerByte*uint64(len(fmt.Sprint(args.Values()...))), nil
}

func (l *Ledger) history(id string) (*types.RawReturnValue, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	it, ok := l.items[id]
	if !ok {
		return nil, types.NewReadError(types.NotFound, nil)
	}
	return &types.RawReturnValue{
		Outputs: []any{it.itemType, it.weight, it.timestamp, it.status, append([]string{}, it.handlers...)},
		Trail:   append([]types.TrailEntry(nil), it.trail...),
	}, nil
}

func stringArg(args types.Args, i int) (string, error) {
	s, ok := args[i].Value.(string)
	if !ok {
		return "", fmt.Errorf("argument '%s' must be a string, got %T", args[i].Name, args[i].Value)
	}
	return s, nil
}

func intArg(args types.Args, i int) (int64, error) {
	switch v := args[i].Value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("argument '%s' must be an integer, got %T", args[i].Name, args[i].Value)
	}
}
