package verification

import (
	"errors"
	"sort"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/types"
)

var errUnreadableHistory = errors.New("unreadable history")

// decodeHistory maps the backend's transaction trail to records, oldest first.
// Status codes outside {0,1,2} decode as Unknown.
func decodeHistory(raw *types.RawReturnValue) ([]types.LedgerTransactionRecord, error) {
	if raw == nil || len(raw.Trail) == 0 {
		return nil, errUnreadableHistory
	}

	records := make([]types.LedgerTransactionRecord, 0, len(raw.Trail))
	for _, entry := range raw.Trail {
		if entry.TxHash == "" {
			return nil, errUnreadableHistory
		}
		records = append(records, types.LedgerTransactionRecord{
			TransactionHash:   types.TransactionHash(entry.TxHash),
			TimestampEpochSec: entry.BlockTimestamp,
			Status:            types.StatusFromChainCode(entry.StatusCode),
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].TimestampEpochSec < records[j].TimestampEpochSec
	})
	return records, nil
}
