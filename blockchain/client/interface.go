package blockchain

import (
	"context"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/types"
)

//go:generate moq -pkg mocks -out ./mocks/backend_mock.go . Backend

// Backend defines the chain primitives a ledger connection must provide.
// It is blockchain-agnostic and can be implemented by different blockchain clients;
// the write protocol (estimate, margin, send) and error typing live in LedgerClient.
type Backend interface {
	// EstimateCost returns the cost units (gas) the write is expected to consume
	EstimateCost(ctx context.Context, method string, args types.Args) (uint64, error)

	// Send signs and submits the write with the given cost ceiling
	Send(ctx context.Context, method string, args types.Args, costCeiling uint64) (types.TransactionHash, error)

	// Call performs a read-only contract call
	Call(ctx context.Context, method string, args types.Args) (*types.RawReturnValue, error)

	// Ping checks that the node answers
	Ping(ctx context.Context) error

	// HasSigner reports whether a signing credential was loaded
	HasSigner() bool

	// Close releases the connection
	Close() error
}

// Target identifies one node and one deployed contract
type Target = types.Target

// Dialer opens a backend connection to target
type Dialer func(ctx context.Context, target Target) (Backend, error)
