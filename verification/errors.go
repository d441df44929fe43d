package verification

import (
	"errors"
	"fmt"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/types"
)

// ErrInvalidInput is wrapped by a RecordError whose payload was rejected before reaching the ledger
var ErrInvalidInput = errors.New("invalid anchor input")

// RecordError reports a failed anchoring write. It is informational for the
// caller: the off-chain record it refers to stays valid.
type RecordError struct {
	Kind      types.WriteErrorKind
	SubjectID string
	Err       error
}

func (e *RecordError) Error() string {
	if errors.Is(e.Err, ErrInvalidInput) {
		return fmt.Sprintf("anchoring %s rejected: %v", e.SubjectID, e.Err)
	}
	return fmt.Sprintf("anchoring %s failed (%s): %v", e.SubjectID, e.Kind, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Retryable reports whether re-invoking the write later may succeed
func (e *RecordError) Retryable() bool {
	return e.Kind == types.WriteNetworkTimeout || e.Kind == types.WriteNotInitialized
}

func newRecordError(subjectID string, err error) *RecordError {
	return &RecordError{Kind: types.WriteKind(err), SubjectID: subjectID, Err: err}
}

// IsRetryable reports whether err is a RecordError worth retrying
func IsRetryable(err error) bool {
	var recordErr *RecordError
	return errors.As(err, &recordErr) && recordErr.Retryable()
}
