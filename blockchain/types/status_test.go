package types_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/types"
)

func TestStatusFromChainCode(t *testing.T) {
	tt := []struct {
		code     int64
		expected types.Status
	}{
		{code: 0, expected: types.StatusPending},
		{code: 1, expected: types.StatusInProgress},
		{code: 2, expected: types.StatusCompleted},
		{code: 3, expected: types.StatusUnknown},
		{code: -1, expected: types.StatusUnknown},
		{code: 255, expected: types.StatusUnknown},
		{code: 1 << 40, expected: types.StatusUnknown},
	}

	for _, tc := range tt {
		t.Run(fmt.Sprintf("code %d", tc.code), func(t *testing.T) {
			require.NotPanics(t, func() {
				require.Equal(t, tc.expected, types.StatusFromChainCode(tc.code))
			})
		})
	}
}

func TestStatusAdapters(t *testing.T) {
	for _, st := range []types.Status{types.StatusPending, types.StatusInProgress, types.StatusCompleted} {
		// chain adapter round trip
		require.Equal(t, st, types.StatusFromChainCode(st.ChainCode()))

		// store adapter round trip
		parsed, err := types.ParseStoreStatus(st.String())
		require.NoError(t, err)
		require.Equal(t, st, parsed)
	}

	require.Equal(t, "In Progress", types.StatusInProgress.String())
	require.Equal(t, int64(-1), types.StatusUnknown.ChainCode())

	_, err := types.ParseStoreStatus("Shipped")
	require.Error(t, err)
}

func TestStatusJSON(t *testing.T) {
	data, err := json.Marshal(types.LedgerTransactionRecord{
		TransactionHash:   "0xabc",
		TimestampEpochSec: 1700000000,
		Status:            types.StatusInProgress,
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"transactionHash":"0xabc","timestampEpochSec":1700000000,"status":"In Progress"}`, string(data))

	var st types.Status
	require.NoError(t, json.Unmarshal([]byte(`"Recycled"`), &st))
	require.Equal(t, types.StatusUnknown, st)
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")

	err := fmt.Errorf("submitting: %w", types.NewWriteError(types.Reverted, cause))
	require.ErrorIs(t, err, types.ErrReverted)
	require.NotErrorIs(t, err, types.ErrEstimationFailed)
	require.ErrorIs(t, err, cause)
	require.Equal(t, types.Reverted, types.WriteKind(err))

	readErr := types.NewReadError(types.NotFound, nil)
	require.ErrorIs(t, readErr, types.ErrNotFound)
	require.Equal(t, types.NotFound, types.ReadKind(readErr))
	require.Equal(t, types.ReadErrorKind(0), types.ReadKind(cause))

	connErr := types.NewConnectError(types.ContractDescriptorUnavailable, cause)
	require.ErrorIs(t, connErr, types.ErrContractDescriptorUnavailable)
	require.NotErrorIs(t, connErr, types.ErrEndpointUnreachable)
}
