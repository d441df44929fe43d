package verification_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	blockchain "github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/client"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/client/memory"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/types"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/config"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/verification"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/verification/mocks"
)

var methods = config.MethodNames{RecordItem: "recordWasteItem", History: "getWasteItemHistory", VerifyVendor: "verifyVendor"}

var fixedNow = time.UnixMilli(1_700_000_000_123)

func newService(ledger verification.Ledger, opts ...func(*verification.Service)) *verification.Service {
	opts = append([]func(*verification.Service){verification.WithClock(func() time.Time { return fixedNow })}, opts...)
	return verification.NewService(ledger, methods, zap.NewNop().Sugar(), opts...)
}

func historyOf(codes ...int64) *types.RawReturnValue {
	raw := &types.RawReturnValue{Outputs: []any{"Laptop", int64(3200), int64(1_700_000_000_000), int64(0), []string{}}}
	for i, code := range codes {
		raw.Trail = append(raw.Trail, types.TrailEntry{TxHash: "0x" + string(rune('a'+i)), BlockTimestamp: int64(100 + i), StatusCode: code})
	}
	return raw
}

func TestRecordSubmission(t *testing.T) {
	// given
	ledger := &mocks.LedgerMock{
		SubmitWriteFunc: func(ctx context.Context, method string, args types.Args) (types.TransactionHash, error) {
			return "0xabc", nil
		},
	}
	service := newService(ledger)

	// when
	hash, err := service.RecordSubmission(context.Background(), types.WasteItemFingerprint{
		SubmissionID: "abc123",
		ItemType:     "Laptop",
		WeightKg:     3.2,
		OwnerID:      "user1",
	})

	// then
	require.NoError(t, err)
	require.Equal(t, types.TransactionHash("0xabc"), hash)
	calls := ledger.SubmitWriteCalls()
	require.Len(t, calls, 1)
	require.Equal(t, "recordWasteItem", calls[0].Method)
	require.Equal(t, []any{"abc123", "Laptop", int64(3200), fixedNow.UnixMilli(), "user1"}, calls[0].Args.Values())
}

func TestRecordSubmissionKeepsCallerTimestamp(t *testing.T) {
	ledger := &mocks.LedgerMock{
		SubmitWriteFunc: func(ctx context.Context, method string, args types.Args) (types.TransactionHash, error) {
			return "0xabc", nil
		},
	}

	_, err := newService(ledger).RecordSubmission(context.Background(), types.WasteItemFingerprint{
		SubmissionID: "abc123", ItemType: "Laptop", WeightKg: 1, CreatedAtEpochMs: 42, OwnerID: "user1",
	})

	require.NoError(t, err)
	require.Equal(t, int64(42), ledger.SubmitWriteCalls()[0].Args[3].Value)
}

func TestRecordSubmissionErrors(t *testing.T) {
	valid := types.WasteItemFingerprint{SubmissionID: "abc123", ItemType: "Laptop", WeightKg: 3.2, OwnerID: "user1"}

	tt := []struct {
		name              string
		fingerprint       types.WasteItemFingerprint
		writeErr          error
		expectedKind      types.WriteErrorKind
		expectedRetryable bool
		expectedWrites    int
	}{
		{
			name:           "empty submission id is rejected before the ledger",
			fingerprint:    types.WasteItemFingerprint{ItemType: "Laptop", WeightKg: 1},
			expectedWrites: 0,
		},
		{
			name:           "negative weight is rejected before the ledger",
			fingerprint:    types.WasteItemFingerprint{SubmissionID: "abc123", ItemType: "Laptop", WeightKg: -1},
			expectedWrites: 0,
		},
		{
			name:           "estimation failure",
			fingerprint:    valid,
			writeErr:       types.NewWriteError(types.EstimationFailed, errors.New("execution reverted")),
			expectedKind:   types.EstimationFailed,
			expectedWrites: 1,
		},
		{
			name:           "revert",
			fingerprint:    valid,
			writeErr:       types.NewWriteError(types.Reverted, errors.New("duplicate id")),
			expectedKind:   types.Reverted,
			expectedWrites: 1,
		},
		{
			name:              "timeout is retryable",
			fingerprint:       valid,
			writeErr:          types.NewWriteError(types.WriteNetworkTimeout, context.DeadlineExceeded),
			expectedKind:      types.WriteNetworkTimeout,
			expectedRetryable: true,
			expectedWrites:    1,
		},
		{
			name:           "missing signer",
			fingerprint:    valid,
			writeErr:       types.NewWriteError(types.SignerUnavailable, nil),
			expectedKind:   types.SignerUnavailable,
			expectedWrites: 1,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			// given
			ledger := &mocks.LedgerMock{
				SubmitWriteFunc: func(ctx context.Context, method string, args types.Args) (types.TransactionHash, error) {
					return "", tc.writeErr
				},
			}

			// when
			hash, err := newService(ledger).RecordSubmission(context.Background(), tc.fingerprint)

			// then
			require.Empty(t, hash)
			var recordErr *verification.RecordError
			require.ErrorAs(t, err, &recordErr)
			require.Equal(t, tc.expectedKind, recordErr.Kind)
			require.Equal(t, tc.expectedRetryable, verification.IsRetryable(err))
			require.Len(t, ledger.SubmitWriteCalls(), tc.expectedWrites)
			if tc.expectedWrites == 0 {
				require.ErrorIs(t, err, verification.ErrInvalidInput)
			}
		})
	}
}

// submitFlow stands in for the surrounding application: the off-chain store
// write is authoritative and anchoring is reported on the side.
func submitFlow(ctx context.Context, store map[string]types.WasteItemFingerprint, service *verification.Service, fp types.WasteItemFingerprint) (anchorErr error, err error) {
	store[fp.SubmissionID] = fp
	if _, recordErr := service.RecordSubmission(ctx, fp); recordErr != nil {
		return recordErr, nil
	}
	return nil, nil
}

func TestWriteFailureDoesNotFailSubmission(t *testing.T) {
	// given
	ledger := &mocks.LedgerMock{
		SubmitWriteFunc: func(ctx context.Context, method string, args types.Args) (types.TransactionHash, error) {
			return "", types.NewWriteError(types.Reverted, errors.New("execution reverted"))
		},
	}
	store := map[string]types.WasteItemFingerprint{}
	fp := types.WasteItemFingerprint{SubmissionID: "abc123", ItemType: "Laptop", WeightKg: 3.2, OwnerID: "user1"}

	// when
	anchorErr, err := submitFlow(context.Background(), store, newService(ledger), fp)

	// then
	require.NoError(t, err)
	require.Contains(t, store, "abc123")
	require.ErrorIs(t, anchorErr, types.ErrReverted)
}

func TestVerifyVendor(t *testing.T) {
	ledger := &mocks.LedgerMock{
		SubmitWriteFunc: func(ctx context.Context, method string, args types.Args) (types.TransactionHash, error) {
			return "0xv", nil
		},
	}
	service := newService(ledger)

	hash, err := service.VerifyVendor(context.Background(), "vendor-7", nil)
	require.NoError(t, err)
	require.Equal(t, types.TransactionHash("0xv"), hash)
	require.Equal(t, "verifyVendor", ledger.SubmitWriteCalls()[0].Method)
	require.Equal(t, []any{"vendor-7", []string{}}, ledger.SubmitWriteCalls()[0].Args.Values())

	_, err = service.VerifyVendor(context.Background(), "", []string{"R2"})
	require.ErrorIs(t, err, verification.ErrInvalidInput)
	require.Len(t, ledger.SubmitWriteCalls(), 1)
}

func TestFetchHistory(t *testing.T) {
	tt := []struct {
		name           string
		raw            *types.RawReturnValue
		readErr        error
		expectedReason verification.UnavailableReason
		expectedStatus []types.Status
	}{
		{
			name:           "not found is not yet anchored",
			readErr:        types.NewReadError(types.NotFound, nil),
			expectedReason: verification.NotYetAnchored,
		},
		{
			name:           "timeout is chain unreachable",
			readErr:        types.NewReadError(types.ReadNetworkTimeout, context.DeadlineExceeded),
			expectedReason: verification.ChainUnreachable,
		},
		{
			name:           "not initialized is chain unreachable",
			readErr:        types.NewReadError(types.ReadNotInitialized, errors.New("dial refused")),
			expectedReason: verification.ChainUnreachable,
		},
		{
			name:           "malformed is chain unreachable",
			readErr:        types.NewReadError(types.Malformed, errors.New("short output")),
			expectedReason: verification.ChainUnreachable,
		},
		{
			name:           "untyped error is chain unreachable",
			readErr:        errors.New("boom"),
			expectedReason: verification.ChainUnreachable,
		},
		{
			name:           "found without trail is chain unreachable",
			raw:            historyOf(),
			expectedReason: verification.ChainUnreachable,
		},
		{
			name:           "status codes decode totally",
			raw:            historyOf(0, 1, 2, 3, -1, 255),
			expectedStatus: []types.Status{types.StatusPending, types.StatusInProgress, types.StatusCompleted, types.StatusUnknown, types.StatusUnknown, types.StatusUnknown},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			// given
			ledger := &mocks.LedgerMock{
				CallFunc: func(ctx context.Context, method string, args types.Args) (*types.RawReturnValue, error) {
					return tc.raw, tc.readErr
				},
			}

			// when
			result := newService(ledger).FetchHistory(context.Background(), "abc123")

			// then
			require.Equal(t, "getWasteItemHistory", ledger.CallCalls()[0].Method)
			if tc.expectedStatus == nil {
				require.False(t, result.IsAvailable())
				require.Equal(t, tc.expectedReason, result.Reason())
				require.NotEmpty(t, result.Message())
				return
			}
			require.True(t, result.IsAvailable())
			var statuses []types.Status
			for _, record := range result.Records() {
				statuses = append(statuses, record.Status)
			}
			require.Equal(t, tc.expectedStatus, statuses)
		})
	}
}

func TestFetchHistoryCachesOnlyCompleted(t *testing.T) {
	// given
	codes := []int64{0, 1}
	ledger := &mocks.LedgerMock{
		CallFunc: func(ctx context.Context, method string, args types.Args) (*types.RawReturnValue, error) {
			return historyOf(codes...), nil
		},
	}
	cache := verification.NewHistoryCache(time.Minute, time.Minute)
	service := newService(ledger, verification.WithCache(cache))
	ctx := context.Background()

	// when
	service.FetchHistory(ctx, "abc123")
	service.FetchHistory(ctx, "abc123")

	// then
	require.Len(t, ledger.CallCalls(), 2)
	require.Zero(t, cache.Len())

	codes = []int64{0, 1, 2}
	first := service.FetchHistory(ctx, "abc123")
	second := service.FetchHistory(ctx, "abc123")
	require.Len(t, ledger.CallCalls(), 3)
	require.Equal(t, first, second)
	require.Equal(t, 1, cache.Len())
}

func TestChainStatus(t *testing.T) {
	ledger := &mocks.LedgerMock{
		CheckConnectivityFunc: func(ctx context.Context) bool { return false },
	}

	require.False(t, newService(ledger).ChainStatus(context.Background()))
	require.Len(t, ledger.CheckConnectivityCalls(), 1)
}

func TestWeightToGrams(t *testing.T) {
	require.Equal(t, int64(3200), verification.WeightToGrams(3.2))
	require.Equal(t, int64(1), verification.WeightToGrams(0.0005))
	require.Equal(t, int64(0), verification.WeightToGrams(0))
}

func newMemoryService(t *testing.T) (*verification.Service, *memory.Ledger) {
	t.Helper()
	cfg := &config.BlockchainConfig{
		BlockchainType: "memory",
		Environment:    config.EnvDevelopment,
		Methods:        methods,
	}
	cfg.SetDefaults()

	dial, ledger, err := blockchain.NewDialer(cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	ledger.WithClock(func() time.Time { return time.Unix(1_700_000_100, 0) })

	client, err := blockchain.NewLedgerClient(cfg, dial, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Shutdown() })

	return newService(client), ledger
}

func TestAnchorThenVerify(t *testing.T) {
	// given
	service, ledger := newMemoryService(t)
	ctx := context.Background()

	// when
	hash, err := service.RecordSubmission(ctx, types.WasteItemFingerprint{
		SubmissionID: "abc123",
		ItemType:     "Laptop",
		WeightKg:     3.2,
		OwnerID:      "user1",
	})
	require.NoError(t, err)

	// then
	before := service.FetchHistory(ctx, "abc123")
	require.False(t, before.IsAvailable())
	require.Equal(t, verification.NotYetAnchored, before.Reason())

	require.Equal(t, 1, ledger.Mine())

	after := service.FetchHistory(ctx, "abc123")
	require.True(t, after.IsAvailable())
	require.Equal(t, []types.LedgerTransactionRecord{{
		TransactionHash:   hash,
		TimestampEpochSec: 1_700_000_100,
		Status:            types.StatusPending,
	}}, after.Records())
}

func TestNeverSubmittedStaysNotYetAnchored(t *testing.T) {
	service, ledger := newMemoryService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := service.FetchHistory(ctx, "never-submitted-id")
			assert.Equal(t, verification.NotYetAnchored, result.Reason())
		}()
		if i%5 == 0 {
			ledger.Mine()
		}
	}
	wg.Wait()

	require.Equal(t, verification.Unavailable(verification.NotYetAnchored), service.FetchHistory(ctx, "never-submitted-id"))
}
