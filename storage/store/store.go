package store

import (
	"context"
	"errors"
	"time"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/internal/models"
)

// Anchor attempt statuses
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusAnchored   = "ANCHORED"
	StatusFailed     = "FAILED"
)

// ErrMaxRetriesExceeded is the error message stored on requests that ran out of attempts
const ErrMaxRetriesExceeded = "max retries exceeded"

var ErrNotFound = errors.New("anchor request not found")

// AnchorStatus is one anchoring attempt as tracked off-chain.
// It is not the submission itself; the Submission Store owns that.
type AnchorStatus struct {
	RequestID    string
	Kind         models.AnchorKind
	SubjectID    string
	Status       string
	TxHash       string
	ErrorMessage string
	RetryCount   int
	// ClaimToken identifies the claim that moved the request to PROCESSING.
	// Outcomes are only recorded under the token of the current claim.
	ClaimToken string
	// ClaimedAt is when the current claim was taken or last renewed
	ClaimedAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CompletionRecord marks one request as anchored in TxHash
type CompletionRecord struct {
	RequestID  string
	ClaimToken string
	TxHash     string
}

// FailureRecord marks one request as permanently failed
type FailureRecord struct {
	RequestID    string
	ClaimToken   string
	ErrorMessage string
}

// RetryRecord returns one request to PENDING for a later attempt
type RetryRecord struct {
	RequestID    string
	ClaimToken   string
	ErrorMessage string
}

// Store tracks anchoring attempts
type Store interface {
	// InsertAnchorRequests records requests as PENDING. Known request ids are left untouched.
	InsertAnchorRequests(ctx context.Context, requests []*models.AnchorRequest) error

	// GetAndMarkBatchAsProcessing claims PENDING requests among requestIDs, and PROCESSING
	// requests whose claim was last taken or renewed at or before leaseExpiredBefore.
	// Claimed requests come back as PROCESSING under a new claim token with their retry
	// count incremented; those that already used maxRetries attempts come back as FAILED.
	// Requests that are unknown, ANCHORED, FAILED or still leased are absent from the result.
	GetAndMarkBatchAsProcessing(ctx context.Context, requestIDs []string, maxRetries int, leaseExpiredBefore time.Time) (map[string]*AnchorStatus, error)

	// RenewClaim restamps the lease of a request still PROCESSING under claimToken.
	// It reports false when the claim was taken over.
	RenewClaim(ctx context.Context, requestID, claimToken string) (bool, error)

	// MarkBatchAsCompleted, MarkBatchForRetry and MarkBatchAsFailed only touch requests
	// still PROCESSING under the record's claim token; other records are ignored.
	MarkBatchAsCompleted(ctx context.Context, completions []CompletionRecord) error
	MarkBatchForRetry(ctx context.Context, retries []RetryRecord) error
	MarkBatchAsFailed(ctx context.Context, failures []FailureRecord) error

	// GetLatestBySubject returns the newest attempt for a submission or vendor id, or ErrNotFound
	GetLatestBySubject(ctx context.Context, subjectID string) (*AnchorStatus, error)

	// ListAnchoredSince returns ANCHORED attempts last updated in [since, until], oldest first
	ListAnchoredSince(ctx context.Context, since, until time.Time, limit int) ([]*AnchorStatus, error)

	// ListStalled returns, oldest first, the requests left PENDING after a failed try and
	// last updated at or before retryBefore, and those PROCESSING under a claim last
	// renewed at or before leaseExpiredBefore
	ListStalled(ctx context.Context, retryBefore, leaseExpiredBefore time.Time, limit int) ([]*models.AnchorRequest, error)

	Ping(ctx context.Context) error
	Close()
}
