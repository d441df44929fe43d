package verification

import (
	"encoding/json"
	"fmt"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/types"
)

// UnavailableReason explains why no history can be shown
type UnavailableReason string

const (
	// NotYetAnchored is the expected state before the anchoring write is mined
	NotYetAnchored UnavailableReason = "NotYetAnchored"
	// ChainUnreachable is a transient observation failure, not a state of the record
	ChainUnreachable UnavailableReason = "ChainUnreachable"
)

const (
	notYetAnchoredMessage   = "Anchoring pending. Your submission is safely recorded; check again shortly."
	chainUnreachableMessage = "The ledger could not be reached. Your submission is safely recorded; only verification is delayed."
)

// VerificationResult is either a complete, oldest-first history or an explicit
// unavailable marker. It is never partially populated.
type VerificationResult struct {
	available bool
	records   []types.LedgerTransactionRecord
	reason    UnavailableReason
	message   string
}

// Available builds a result from a non-empty history
func Available(records []types.LedgerTransactionRecord) VerificationResult {
	return VerificationResult{available: true, records: records}
}

// Unavailable builds a result carrying reason and its user-facing message
func Unavailable(reason UnavailableReason) VerificationResult {
	message := notYetAnchoredMessage
	if reason == ChainUnreachable {
		message = chainUnreachableMessage
	}
	return VerificationResult{reason: reason, message: message}
}

func (r VerificationResult) IsAvailable() bool { return r.available }

// Records returns a copy of the history, oldest first
func (r VerificationResult) Records() []types.LedgerTransactionRecord {
	return append([]types.LedgerTransactionRecord(nil), r.records...)
}

func (r VerificationResult) Reason() UnavailableReason { return r.reason }

func (r VerificationResult) Message() string { return r.message }

// Latest returns the newest record of an available result
func (r VerificationResult) Latest() (types.LedgerTransactionRecord, bool) {
	if !r.available || len(r.records) == 0 {
		return types.LedgerTransactionRecord{}, false
	}
	return r.records[len(r.records)-1], true
}

// Contains reports whether hash is part of the history
func (r VerificationResult) Contains(hash types.TransactionHash) bool {
	for _, record := range r.records {
		if record.TransactionHash == hash {
			return true
		}
	}
	return false
}

func (r VerificationResult) String() string {
	if r.available {
		return fmt.Sprintf("available(%d records)", len(r.records))
	}
	return fmt.Sprintf("unavailable(%s)", r.reason)
}

type resultJSON struct {
	Available bool                            `json:"available"`
	Records   []types.LedgerTransactionRecord `json:"records,omitempty"`
	Reason    UnavailableReason               `json:"reason,omitempty"`
	Message   string                          `json:"message,omitempty"`
}

// MarshalJSON renders the Display Surface shape
func (r VerificationResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{Available: r.available, Records: r.records, Reason: r.reason, Message: r.message})
}

// UnmarshalJSON accepts only the two whole shapes
func (r *VerificationResult) UnmarshalJSON(data []byte) error {
	var v resultJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch {
	case v.Available && len(v.Records) > 0:
		*r = Available(v.Records)
	case !v.Available && (v.Reason == NotYetAnchored || v.Reason == ChainUnreachable):
		*r = Unavailable(v.Reason)
	default:
		return fmt.Errorf("malformed verification result")
	}
	return nil
}
