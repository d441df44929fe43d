package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/internal/models"
)

// MemoryStore is an in-process Store for local runs and tests
type MemoryStore struct {
	mu       sync.Mutex
	requests map[string]*AnchorStatus
	payloads map[string]*models.AnchorRequest
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests: make(map[string]*AnchorStatus),
		payloads: make(map[string]*models.AnchorRequest),
		now:      time.Now,
	}
}

// WithClock replaces the time source used for created/updated stamps
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

func (m *MemoryStore) InsertAnchorRequests(ctx context.Context, requests []*models.AnchorRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, r := range requests {
		if _, exists := m.requests[r.RequestID]; exists {
			continue
		}
		m.requests[r.RequestID] = &AnchorStatus{
			RequestID: r.RequestID,
			Kind:      r.Kind,
			SubjectID: r.SubjectID,
			Status:    StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		copied := *r
		m.payloads[r.RequestID] = &copied
	}
	return nil
}

func (m *MemoryStore) GetAndMarkBatchAsProcessing(ctx context.Context, requestIDs []string, maxRetries int, leaseExpiredBefore time.Time) (map[string]*AnchorStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	token := uuid.NewString()
	claimed := make(map[string]*AnchorStatus, len(requestIDs))
	for _, id := range requestIDs {
		r, ok := m.requests[id]
		if !ok || !claimable(r, leaseExpiredBefore) {
			continue
		}
		if r.RetryCount >= maxRetries {
			r.Status = StatusFailed
			r.ErrorMessage = ErrMaxRetriesExceeded
			r.ClaimToken = ""
		} else {
			r.Status = StatusProcessing
			r.RetryCount++
			r.ClaimToken = token
			r.ClaimedAt = now
		}
		r.UpdatedAt = now
		copied := *r
		claimed[id] = &copied
	}
	return claimed, nil
}

func claimable(r *AnchorStatus, leaseExpiredBefore time.Time) bool {
	switch r.Status {
	case StatusPending:
		return true
	case StatusProcessing:
		return !r.ClaimedAt.After(leaseExpiredBefore)
	default:
		return false
	}
}

func (m *MemoryStore) RenewClaim(ctx context.Context, requestID, claimToken string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.held(requestID, claimToken)
	if !ok {
		return false, nil
	}
	r.ClaimedAt = m.now()
	r.UpdatedAt = r.ClaimedAt
	return true, nil
}

// held returns the request when it is still PROCESSING under claimToken
func (m *MemoryStore) held(requestID, claimToken string) (*AnchorStatus, bool) {
	r, ok := m.requests[requestID]
	if !ok || r.Status != StatusProcessing || claimToken == "" || r.ClaimToken != claimToken {
		return nil, false
	}
	return r, true
}

func (m *MemoryStore) MarkBatchAsCompleted(ctx context.Context, completions []CompletionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range completions {
		if r, ok := m.held(c.RequestID, c.ClaimToken); ok {
			r.Status = StatusAnchored
			r.TxHash = c.TxHash
			r.ErrorMessage = ""
			r.ClaimToken = ""
			r.UpdatedAt = m.now()
		}
	}
	return nil
}

func (m *MemoryStore) MarkBatchForRetry(ctx context.Context, retries []RetryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rr := range retries {
		if r, ok := m.held(rr.RequestID, rr.ClaimToken); ok {
			r.Status = StatusPending
			r.ErrorMessage = rr.ErrorMessage
			r.ClaimToken = ""
			r.UpdatedAt = m.now()
		}
	}
	return nil
}

func (m *MemoryStore) MarkBatchAsFailed(ctx context.Context, failures []FailureRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, f := range failures {
		if r, ok := m.held(f.RequestID, f.ClaimToken); ok {
			r.Status = StatusFailed
			r.ErrorMessage = f.ErrorMessage
			r.ClaimToken = ""
			r.UpdatedAt = m.now()
		}
	}
	return nil
}

func (m *MemoryStore) GetLatestBySubject(ctx context.Context, subjectID string) (*AnchorStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *AnchorStatus
	for _, r := range m.requests {
		if r.SubjectID != subjectID {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) ||
			(r.CreatedAt.Equal(latest.CreatedAt) && r.RequestID > latest.RequestID) {
			latest = r
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (m *MemoryStore) ListAnchoredSince(ctx context.Context, since, until time.Time, limit int) ([]*AnchorStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var anchored []*AnchorStatus
	for _, r := range m.requests {
		if r.Status != StatusAnchored || r.UpdatedAt.Before(since) || r.UpdatedAt.After(until) {
			continue
		}
		copied := *r
		anchored = append(anchored, &copied)
	}
	sort.Slice(anchored, func(i, j int) bool {
		if anchored[i].UpdatedAt.Equal(anchored[j].UpdatedAt) {
			return anchored[i].RequestID < anchored[j].RequestID
		}
		return anchored[i].UpdatedAt.Before(anchored[j].UpdatedAt)
	})
	if limit > 0 && len(anchored) > limit {
		anchored = anchored[:limit]
	}
	return anchored, nil
}

func (m *MemoryStore) ListStalled(ctx context.Context, retryBefore, leaseExpiredBefore time.Time, limit int) ([]*models.AnchorRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stalled []*AnchorStatus
	for _, r := range m.requests {
		retrying := r.Status == StatusPending && r.RetryCount > 0 && !r.UpdatedAt.After(retryBefore)
		abandoned := r.Status == StatusProcessing && !r.ClaimedAt.After(leaseExpiredBefore)
		if retrying || abandoned {
			stalled = append(stalled, r)
		}
	}
	sort.Slice(stalled, func(i, j int) bool {
		if stalled[i].UpdatedAt.Equal(stalled[j].UpdatedAt) {
			return stalled[i].RequestID < stalled[j].RequestID
		}
		return stalled[i].UpdatedAt.Before(stalled[j].UpdatedAt)
	})
	if limit > 0 && len(stalled) > limit {
		stalled = stalled[:limit]
	}

	requests := make([]*models.AnchorRequest, 0, len(stalled))
	for _, r := range stalled {
		copied := *m.payloads[r.RequestID]
		requests = append(requests, &copied)
	}
	return requests, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStore) Close() {}

var _ Store = (*MemoryStore)(nil)
