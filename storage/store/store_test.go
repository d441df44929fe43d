package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/types"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/config"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/internal/models"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/storage/store"
)

func wasteItemRequest(subjectID string) *models.AnchorRequest {
	return &models.AnchorRequest{
		RequestID: uuid.NewString(),
		Kind:      models.KindWasteItem,
		SubjectID: subjectID,
		WasteItem: &types.WasteItemFingerprint{SubmissionID: subjectID, ItemType: "Laptop", WeightKg: 3.2, OwnerID: "user1"},
	}
}

// stores returns every implementation under test. Postgres runs only when
// EWASTE_TEST_DSN points at a disposable database.
func stores(t *testing.T) map[string]store.Store {
	t.Helper()
	all := map[string]store.Store{"memory": store.NewMemoryStore()}

	dsn := os.Getenv("EWASTE_TEST_DSN")
	if dsn == "" {
		return all
	}
	cfg := config.DatabaseConfig{DSN: dsn}
	cfg.SetDefaults()
	pg, err := store.NewPostgresStore(context.Background(), cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(pg.Close)
	all["postgres"] = pg
	return all
}

func TestAnchorLifecycle(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			subject := "sub-" + uuid.NewString()
			first := wasteItemRequest(subject)
			second := wasteItemRequest(subject)

			// given
			require.NoError(t, s.InsertAnchorRequests(ctx, []*models.AnchorRequest{first, second}))
			require.NoError(t, s.InsertAnchorRequests(ctx, []*models.AnchorRequest{first}))

			// when
			claimed, err := s.GetAndMarkBatchAsProcessing(ctx, []string{first.RequestID, second.RequestID, "unknown"}, 3, time.Now())

			// then
			require.NoError(t, err)
			require.Len(t, claimed, 2)
			require.Equal(t, store.StatusProcessing, claimed[first.RequestID].Status)
			require.Equal(t, 1, claimed[first.RequestID].RetryCount)
			require.Equal(t, models.KindWasteItem, claimed[first.RequestID].Kind)
			require.NotEmpty(t, claimed[first.RequestID].ClaimToken)

			require.NoError(t, s.MarkBatchAsCompleted(ctx, []store.CompletionRecord{{RequestID: first.RequestID, ClaimToken: claimed[first.RequestID].ClaimToken, TxHash: "0xabc"}}))
			require.NoError(t, s.MarkBatchAsFailed(ctx, []store.FailureRecord{{RequestID: second.RequestID, ClaimToken: claimed[second.RequestID].ClaimToken, ErrorMessage: "Reverted"}}))

			again, err := s.GetAndMarkBatchAsProcessing(ctx, []string{first.RequestID, second.RequestID}, 3, time.Now().Add(time.Minute))
			require.NoError(t, err)
			require.Empty(t, again)

			anchored, err := s.ListAnchoredSince(ctx, time.Now().Add(-time.Hour), time.Now().Add(time.Hour), 100)
			require.NoError(t, err)
			found := false
			for _, a := range anchored {
				if a.RequestID == first.RequestID {
					found = true
					require.Equal(t, "0xabc", a.TxHash)
				}
			}
			require.True(t, found)
		})
	}
}

func TestRetryUntilExhausted(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			request := wasteItemRequest("sub-" + uuid.NewString())
			require.NoError(t, s.InsertAnchorRequests(ctx, []*models.AnchorRequest{request}))

			for attempt := 1; attempt <= 2; attempt++ {
				claimed, err := s.GetAndMarkBatchAsProcessing(ctx, []string{request.RequestID}, 2, time.Now())
				require.NoError(t, err)
				require.Equal(t, store.StatusProcessing, claimed[request.RequestID].Status)
				require.Equal(t, attempt, claimed[request.RequestID].RetryCount)
				require.NoError(t, s.MarkBatchForRetry(ctx, []store.RetryRecord{{
					RequestID:    request.RequestID,
					ClaimToken:   claimed[request.RequestID].ClaimToken,
					ErrorMessage: "NetworkTimeout",
				}}))
			}

			claimed, err := s.GetAndMarkBatchAsProcessing(ctx, []string{request.RequestID}, 2, time.Now())
			require.NoError(t, err)
			require.Equal(t, store.StatusFailed, claimed[request.RequestID].Status)
			require.Equal(t, store.ErrMaxRetriesExceeded, claimed[request.RequestID].ErrorMessage)

			latest, err := s.GetLatestBySubject(ctx, request.SubjectID)
			require.NoError(t, err)
			require.Equal(t, store.StatusFailed, latest.Status)
		})
	}
}

func TestGetLatestBySubject(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := store.NewMemoryStore().WithClock(func() time.Time { return now })
	ctx := context.Background()

	_, err := s.GetLatestBySubject(ctx, "abc123")
	require.ErrorIs(t, err, store.ErrNotFound)

	older := wasteItemRequest("abc123")
	require.NoError(t, s.InsertAnchorRequests(ctx, []*models.AnchorRequest{older}))
	now = now.Add(time.Minute)
	newer := wasteItemRequest("abc123")
	require.NoError(t, s.InsertAnchorRequests(ctx, []*models.AnchorRequest{newer}))

	latest, err := s.GetLatestBySubject(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, newer.RequestID, latest.RequestID)
	require.Equal(t, store.StatusPending, latest.Status)
}

func TestListAnchoredSinceWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := store.NewMemoryStore().WithClock(func() time.Time { return now })
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		r := wasteItemRequest("item-" + uuid.NewString())
		require.NoError(t, s.InsertAnchorRequests(ctx, []*models.AnchorRequest{r}))
		claimed, err := s.GetAndMarkBatchAsProcessing(ctx, []string{r.RequestID}, 5, now)
		require.NoError(t, err)
		require.NoError(t, s.MarkBatchAsCompleted(ctx, []store.CompletionRecord{{RequestID: r.RequestID, ClaimToken: claimed[r.RequestID].ClaimToken, TxHash: "0x1"}}))
		ids = append(ids, r.RequestID)
		now = now.Add(time.Minute)
	}

	anchored, err := s.ListAnchoredSince(ctx, time.Unix(1_700_000_000, 0), time.Unix(1_700_000_060, 0), 10)
	require.NoError(t, err)
	require.Len(t, anchored, 2)
	require.Equal(t, ids[0], anchored[0].RequestID)

	limited, err := s.ListAnchoredSince(ctx, time.Unix(0, 0), now, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestNewSelectsMemoryStore(t *testing.T) {
	s, err := store.New(context.Background(), config.DatabaseConfig{DSN: "memory://local"}, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.IsType(t, &store.MemoryStore{}, s)
	require.NoError(t, s.Ping(context.Background()))
}

func TestListStalled(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			request := wasteItemRequest("sub-" + uuid.NewString())
			later, earlier := time.Now().Add(time.Minute), time.Now().Add(-time.Minute)
			stalled := func(retryBefore, leaseExpiredBefore time.Time) bool {
				requests, err := s.ListStalled(ctx, retryBefore, leaseExpiredBefore, 1000)
				require.NoError(t, err)
				for _, r := range requests {
					if r.RequestID == request.RequestID {
						require.Equal(t, request.WasteItem, r.WasteItem)
						return true
					}
				}
				return false
			}

			// fresh requests belong to the queue, not the sweep
			require.NoError(t, s.InsertAnchorRequests(ctx, []*models.AnchorRequest{request}))
			require.False(t, stalled(later, later))

			claimed, err := s.GetAndMarkBatchAsProcessing(ctx, []string{request.RequestID}, 3, time.Now())
			require.NoError(t, err)
			require.False(t, stalled(later, earlier))
			require.True(t, stalled(earlier, later))

			require.NoError(t, s.MarkBatchForRetry(ctx, []store.RetryRecord{{
				RequestID:    request.RequestID,
				ClaimToken:   claimed[request.RequestID].ClaimToken,
				ErrorMessage: "NetworkTimeout",
			}}))
			require.True(t, stalled(later, earlier))
			require.False(t, stalled(earlier, later))

			claimed, err = s.GetAndMarkBatchAsProcessing(ctx, []string{request.RequestID}, 3, time.Now())
			require.NoError(t, err)
			require.NoError(t, s.MarkBatchAsCompleted(ctx, []store.CompletionRecord{{
				RequestID:  request.RequestID,
				ClaimToken: claimed[request.RequestID].ClaimToken,
				TxHash:     "0xabc",
			}}))
			require.False(t, stalled(later, later))
		})
	}
}

func TestClaimLease(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			// given
			ctx := context.Background()
			request := wasteItemRequest("sub-" + uuid.NewString())
			require.NoError(t, s.InsertAnchorRequests(ctx, []*models.AnchorRequest{request}))
			first, err := s.GetAndMarkBatchAsProcessing(ctx, []string{request.RequestID}, 3, time.Now())
			require.NoError(t, err)
			stale := first[request.RequestID].ClaimToken

			// when
			leased, err := s.GetAndMarkBatchAsProcessing(ctx, []string{request.RequestID}, 3, time.Now().Add(-time.Minute))
			require.NoError(t, err)
			expired, err := s.GetAndMarkBatchAsProcessing(ctx, []string{request.RequestID}, 3, time.Now().Add(time.Minute))
			require.NoError(t, err)

			// then
			require.Empty(t, leased)
			require.Len(t, expired, 1)
			current := expired[request.RequestID].ClaimToken
			require.NotEqual(t, stale, current)
			require.Equal(t, 2, expired[request.RequestID].RetryCount)

			held, err := s.RenewClaim(ctx, request.RequestID, stale)
			require.NoError(t, err)
			require.False(t, held)
			held, err = s.RenewClaim(ctx, request.RequestID, current)
			require.NoError(t, err)
			require.True(t, held)

			require.NoError(t, s.MarkBatchAsFailed(ctx, []store.FailureRecord{{RequestID: request.RequestID, ClaimToken: stale, ErrorMessage: "Reverted"}}))
			require.NoError(t, s.MarkBatchForRetry(ctx, []store.RetryRecord{{RequestID: request.RequestID, ClaimToken: stale, ErrorMessage: "NetworkTimeout"}}))
			latest, err := s.GetLatestBySubject(ctx, request.SubjectID)
			require.NoError(t, err)
			require.Equal(t, store.StatusProcessing, latest.Status)

			require.NoError(t, s.MarkBatchAsCompleted(ctx, []store.CompletionRecord{{RequestID: request.RequestID, ClaimToken: current, TxHash: "0xabc"}}))
			latest, err = s.GetLatestBySubject(ctx, request.SubjectID)
			require.NoError(t, err)
			require.Equal(t, store.StatusAnchored, latest.Status)
			require.Equal(t, "0xabc", latest.TxHash)

			held, err = s.RenewClaim(ctx, request.RequestID, current)
			require.NoError(t, err)
			require.False(t, held)
		})
	}
}
