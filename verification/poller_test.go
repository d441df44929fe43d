package verification_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/types"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/verification"
)

type scriptedFetcher struct {
	calls     atomic.Int32
	availFrom int32
}

func (f *scriptedFetcher) FetchHistory(context.Context, string) verification.VerificationResult {
	n := f.calls.Add(1)
	if f.availFrom > 0 && n >= f.availFrom {
		return verification.Available([]types.LedgerTransactionRecord{{TransactionHash: "0xa", Status: types.StatusPending}})
	}
	return verification.Unavailable(verification.NotYetAnchored)
}

func TestPollerAwait(t *testing.T) {
	tt := []struct {
		name              string
		availFrom         int32
		expectedAvailable bool
		expectedCalls     int32
	}{
		{name: "available on third check", availFrom: 3, expectedAvailable: true, expectedCalls: 3},
		{name: "gives up after max attempts", availFrom: 0, expectedAvailable: false, expectedCalls: 4},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			// given
			fetcher := &scriptedFetcher{availFrom: tc.availFrom}
			poller := verification.NewPoller(fetcher, zap.NewNop().Sugar(),
				verification.WithPollIntervals(time.Millisecond, 5*time.Millisecond),
				verification.WithMaxAttempts(4),
			)

			// when
			result, err := poller.Await(context.Background(), "abc123")

			// then
			require.Equal(t, tc.expectedAvailable, result.IsAvailable())
			require.Equal(t, tc.expectedAvailable, err == nil)
			require.Equal(t, tc.expectedCalls, fetcher.calls.Load())
			if !tc.expectedAvailable {
				require.Equal(t, verification.NotYetAnchored, result.Reason())
			}
		})
	}
}

func TestPollerStopsOnCancel(t *testing.T) {
	fetcher := &scriptedFetcher{}
	poller := verification.NewPoller(fetcher, zap.NewNop().Sugar(),
		verification.WithPollIntervals(time.Hour, time.Hour),
		verification.WithMaxAttempts(100),
	)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result, err := poller.Await(ctx, "abc123")

	require.Error(t, err)
	require.False(t, result.IsAvailable())
	require.Equal(t, int32(1), fetcher.calls.Load())
}
