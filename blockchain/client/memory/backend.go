package memory

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/types"
)

// Backend is one connection to a Ledger
type Backend struct {
	ledger  *Ledger
	canSign bool
	closed  atomic.Bool
}

var errClosed = errors.New("connection closed")

func (b *Backend) HasSigner() bool {
	return b.canSign
}

func (b *Backend) EstimateCost(ctx context.Context, method string, args types.Args) (uint64, error) {
	if err := b.ready(ctx); err != nil {
		return 0, err
	}
	return b.ledger.estimate(method, args)
}

func (b *Backend) Send(ctx context.Context, method string, args types.Args, costCeiling uint64) (types.TransactionHash, error) {
	if err := b.ready(ctx); err != nil {
		return "", err
	}
	if !b.canSign {
		return "", types.NewWriteError(types.SignerUnavailable, errors.New("no signer credential configured"))
	}
	cost, err := b.ledger.estimate(method, args)
	if err != nil {
		return "", types.NewWriteError(types.Reverted, err)
	}
	if cost > costCeiling {
		return "", types.NewWriteError(types.Reverted, fmt.Errorf("out of gas: needs %d, limit %d", cost, costCeiling))
	}
	return b.ledger.submit(method, args)
}

func (b *Backend) Call(ctx context.Context, method string, args types.Args) (*types.RawReturnValue, error) {
	if err := b.ready(ctx); err != nil {
		return nil, err
	}
	if method != b.ledger.methods.History {
		return nil, types.NewReadError(types.Malformed, fmt.Errorf("contract has no view '%s'", method))
	}
	if len(args) != 1 {
		return nil, types.NewReadError(types.Malformed, fmt.Errorf("%s takes 1 argument, got %d", method, len(args)))
	}
	id, err := stringArg(args, 0)
	if err != nil {
		return nil, types.NewReadError(types.Malformed, err)
	}
	return b.ledger.history(id)
}

func (b *Backend) Ping(ctx context.Context) error {
	return b.ready(ctx)
}

func (b *Backend) Close() error {
	b.closed.Store(true)
	return nil
}

func (b *Backend) ready(ctx context.Context) error {
	if b.closed.Load() {
		return errClosed
	}
	return ctx.Err()
}
