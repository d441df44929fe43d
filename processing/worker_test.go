package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	blockchain "github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/client"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/types"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/config"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/internal/messaging/consumer"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/internal/models"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/storage/store"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/verification"
)

type fakeAnchorer struct {
	mu      sync.Mutex
	results map[string]error
	history map[string]verification.VerificationResult
	calls   []string
	lookups []string
}

func (f *fakeAnchorer) outcome(subjectID string) (types.TransactionHash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, subjectID)
	if err := f.results[subjectID]; err != nil {
		return "", &verification.RecordError{Kind: types.WriteKind(err), SubjectID: subjectID, Err: err}
	}
	return types.TransactionHash("0x" + subjectID), nil
}

func (f *fakeAnchorer) RecordSubmission(ctx context.Context, fp types.WasteItemFingerprint) (types.TransactionHash, error) {
	return f.outcome(fp.SubmissionID)
}

func (f *fakeAnchorer) VerifyVendor(ctx context.Context, vendorID string, certifications []string) (types.TransactionHash, error) {
	return f.outcome(vendorID)
}

func (f *fakeAnchorer) FetchHistory(ctx context.Context, submissionID string) verification.VerificationResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, submissionID)
	if result, ok := f.history[submissionID]; ok {
		return result
	}
	return verification.Unavailable(verification.NotYetAnchored)
}

func (f *fakeAnchorer) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// parkedAnchorer holds its first waste item write until release is closed,
// then returns err from it
type parkedAnchorer struct {
	*fakeAnchorer
	started chan struct{}
	release chan struct{}
	err     error
	parked  atomic.Bool
}

func newParkedAnchorer(err error) *parkedAnchorer {
	return &parkedAnchorer{
		fakeAnchorer: &fakeAnchorer{},
		started:      make(chan struct{}),
		release:      make(chan struct{}),
		err:          err,
	}
}

func (p *parkedAnchorer) RecordSubmission(ctx context.Context, fp types.WasteItemFingerprint) (types.TransactionHash, error) {
	if !p.parked.CompareAndSwap(false, true) {
		return p.fakeAnchorer.RecordSubmission(ctx, fp)
	}
	p.mu.Lock()
	p.calls = append(p.calls, fp.SubmissionID)
	p.mu.Unlock()
	close(p.started)

	select {
	case <-p.release:
	case <-ctx.Done():
		return "", &verification.RecordError{Kind: types.WriteNetworkTimeout, SubjectID: fp.SubmissionID, Err: ctx.Err()}
	}
	if p.err != nil {
		return "", &verification.RecordError{Kind: types.WriteKind(p.err), SubjectID: fp.SubmissionID, Err: p.err}
	}
	return types.TransactionHash("0x" + fp.SubmissionID), nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func itemRequest(requestID, subjectID string) *models.AnchorRequest {
	return &models.AnchorRequest{
		RequestID: requestID,
		Kind:      models.KindWasteItem,
		SubjectID: subjectID,
		WasteItem: &types.WasteItemFingerprint{SubmissionID: subjectID, ItemType: "Laptop", WeightKg: 3.2, OwnerID: "user1"},
	}
}

func newWorker(s store.Store, c consumer.Consumer, a Anchorer) *Worker {
	return New(config.WorkerConfig{
		Concurrency:        1,
		BatchSize:          10,
		BatchTimeout:       "20ms",
		ConsumerRetryDelay: "10ms",
		BlockchainTimeout:  "1s",
		RetrySweepInterval: "1m",
	}, 3, zap.NewNop().Sugar(), s, c, a)
}

func TestHandleBatchOutcomes(t *testing.T) {
	// given
	s := store.NewMemoryStore()
	anchorer := &fakeAnchorer{results: map[string]error{
		"reverted": types.NewWriteError(types.Reverted, errors.New("execution reverted")),
		"timeout":  types.NewWriteError(types.WriteNetworkTimeout, context.DeadlineExceeded),
	}}
	w := newWorker(s, nil, anchorer)
	vendor := &models.AnchorRequest{
		RequestID: "r4",
		Kind:      models.KindVendor,
		SubjectID: "vendor-7",
		Vendor:    &types.VendorCertification{VendorID: "vendor-7", Certifications: []string{"R2"}},
	}
	batch := []*models.AnchorRequest{
		itemRequest("r1", "ok"),
		itemRequest("r2", "reverted"),
		itemRequest("r3", "timeout"),
		vendor,
		{RequestID: "r5", Kind: "bogus"},
	}

	// when
	retry, err := w.handleBatch(context.Background(), batch)

	// then
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"r3": true}, retry)
	require.Equal(t, []string{"ok", "reverted", "timeout", "vendor-7"}, anchorer.calls)

	expected := map[string]string{
		"ok":       store.StatusAnchored,
		"reverted": store.StatusFailed,
		"timeout":  store.StatusPending,
		"vendor-7": store.StatusAnchored,
	}
	for subject, status := range expected {
		latest, err := s.GetLatestBySubject(context.Background(), subject)
		require.NoError(t, err)
		require.Equal(t, status, latest.Status, subject)
	}
	ok, _ := s.GetLatestBySubject(context.Background(), "ok")
	require.Equal(t, "0xok", ok.TxHash)
	reverted, _ := s.GetLatestBySubject(context.Background(), "reverted")
	require.Contains(t, reverted.ErrorMessage, "Reverted")
}

func TestHandleBatchSkipsAnchoredRequests(t *testing.T) {
	s := store.NewMemoryStore()
	anchorer := &fakeAnchorer{}
	w := newWorker(s, nil, anchorer)
	ctx := context.Background()

	_, err := w.handleBatch(ctx, []*models.AnchorRequest{itemRequest("r1", "abc123")})
	require.NoError(t, err)
	_, err = w.handleBatch(ctx, []*models.AnchorRequest{itemRequest("r1", "abc123")})
	require.NoError(t, err)

	require.Equal(t, []string{"abc123"}, anchorer.calls)
}

func TestHandleBatchGivesUpAfterMaxRetries(t *testing.T) {
	s := store.NewMemoryStore()
	anchorer := &fakeAnchorer{results: map[string]error{
		"abc123": types.NewWriteError(types.WriteNetworkTimeout, context.DeadlineExceeded),
	}}
	w := newWorker(s, nil, anchorer)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := w.handleBatch(ctx, []*models.AnchorRequest{itemRequest("r1", "abc123")})
		require.NoError(t, err)
	}

	require.Len(t, anchorer.calls, 3)
	latest, err := s.GetLatestBySubject(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, store.StatusFailed, latest.Status)
	require.Equal(t, store.ErrMaxRetriesExceeded, latest.ErrorMessage)
}

func TestSweepReanchorsStalledRequests(t *testing.T) {
	// given
	hourAgo := time.Now().Add(-time.Hour)
	s := store.NewMemoryStore().WithClock(func() time.Time { return hourAgo })
	anchorer := &fakeAnchorer{results: map[string]error{
		"abc123": types.NewWriteError(types.WriteNetworkTimeout, context.DeadlineExceeded),
	}}
	w := newWorker(s, nil, anchorer)
	ctx := context.Background()

	retry, err := w.handleBatch(ctx, []*models.AnchorRequest{itemRequest("r1", "abc123"), itemRequest("r2", "fresh")})
	require.NoError(t, err)
	require.True(t, retry["r1"])
	anchorer.results = nil

	// when
	swept, err := w.sweepOnce(ctx)

	// then
	require.NoError(t, err)
	require.Equal(t, 1, swept)
	require.Equal(t, []string{"abc123", "fresh", "abc123"}, anchorer.calls)
	require.Equal(t, []string{"abc123"}, anchorer.lookups)
	latest, err := s.GetLatestBySubject(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, store.StatusAnchored, latest.Status)
	require.Equal(t, 2, latest.RetryCount)

	swept, err = w.sweepOnce(ctx)
	require.NoError(t, err)
	require.Zero(t, swept)
}

// newLeasedWorker has a claim lease of 2m30s and a sweep interval of 30s
func newLeasedWorker(s store.Store, a Anchorer, clock *testClock) *Worker {
	w := New(config.WorkerConfig{
		Concurrency:        1,
		BatchSize:          10,
		BatchTimeout:       "20ms",
		ConsumerRetryDelay: "10ms",
		BlockchainTimeout:  "2m",
		RetrySweepInterval: "30s",
	}, 3, zap.NewNop().Sugar(), s, nil, a)
	w.now = clock.Now
	return w
}

func TestSweepLeavesInFlightRequestsAlone(t *testing.T) {
	// given
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	s := store.NewMemoryStore().WithClock(clock.Now)
	anchorer := newParkedAnchorer(nil)
	w := newLeasedWorker(s, anchorer, clock)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := w.handleBatch(ctx, []*models.AnchorRequest{itemRequest("r1", "abc123")})
		assert.NoError(t, err)
	}()
	<-anchorer.started

	// when
	clock.Advance(time.Minute)
	swept, err := w.sweepOnce(ctx)
	require.NoError(t, err)
	redelivered, err := w.handleBatch(ctx, []*models.AnchorRequest{itemRequest("r1", "abc123")})
	require.NoError(t, err)

	// then
	require.Zero(t, swept)
	require.Empty(t, redelivered)
	require.Equal(t, []string{"abc123"}, anchorer.recorded())

	close(anchorer.release)
	<-done
	latest, err := s.GetLatestBySubject(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, store.StatusAnchored, latest.Status)
	require.Equal(t, "0xabc123", latest.TxHash)
	require.Equal(t, 1, latest.RetryCount)
}

func TestSweepTakesOverExpiredClaim(t *testing.T) {
	// given
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	s := store.NewMemoryStore().WithClock(clock.Now)
	anchorer := newParkedAnchorer(types.NewWriteError(types.Reverted, errors.New("execution reverted: item abc123 already recorded")))
	w := newLeasedWorker(s, anchorer, clock)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := w.handleBatch(ctx, []*models.AnchorRequest{itemRequest("r1", "abc123")})
		assert.NoError(t, err)
	}()
	<-anchorer.started

	// when
	clock.Advance(3 * time.Minute)
	swept, err := w.sweepOnce(ctx)
	require.NoError(t, err)
	close(anchorer.release)
	<-done

	// then
	require.Equal(t, 1, swept)
	require.Equal(t, []string{"abc123", "abc123"}, anchorer.recorded())
	require.Equal(t, []string{"abc123"}, anchorer.lookups)

	// the late failure belongs to a claim that was taken over
	latest, err := s.GetLatestBySubject(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, store.StatusAnchored, latest.Status)
	require.Equal(t, "0xabc123", latest.TxHash)
	require.Equal(t, 2, latest.RetryCount)
}

func TestRetryChecksChainBeforeResending(t *testing.T) {
	tt := []struct {
		name           string
		history        verification.VerificationResult
		expectedCalls  []string
		expectedStatus string
		expectedHash   string
	}{
		{
			name: "write already on chain",
			history: verification.Available([]types.LedgerTransactionRecord{
				{TransactionHash: "0xfirst", TimestampEpochSec: 1_700_000_100, Status: types.StatusPending},
				{TransactionHash: "0xsecond", TimestampEpochSec: 1_700_000_200, Status: types.StatusInProgress},
			}),
			expectedCalls:  []string{"abc123"},
			expectedStatus: store.StatusAnchored,
			expectedHash:   "0xfirst",
		},
		{
			name:           "write never landed",
			history:        verification.Unavailable(verification.NotYetAnchored),
			expectedCalls:  []string{"abc123", "abc123"},
			expectedStatus: store.StatusAnchored,
			expectedHash:   "0xabc123",
		},
		{
			name:           "chain unreachable",
			history:        verification.Unavailable(verification.ChainUnreachable),
			expectedCalls:  []string{"abc123"},
			expectedStatus: store.StatusPending,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			// given
			hourAgo := time.Now().Add(-time.Hour)
			s := store.NewMemoryStore().WithClock(func() time.Time { return hourAgo })
			anchorer := &fakeAnchorer{results: map[string]error{
				"abc123": types.NewWriteError(types.WriteNetworkTimeout, context.DeadlineExceeded),
			}}
			w := newWorker(s, nil, anchorer)
			ctx := context.Background()
			_, err := w.handleBatch(ctx, []*models.AnchorRequest{itemRequest("r1", "abc123")})
			require.NoError(t, err)
			anchorer.results = nil
			anchorer.history = map[string]verification.VerificationResult{"abc123": tc.history}

			// when
			swept, err := w.sweepOnce(ctx)

			// then
			require.NoError(t, err)
			require.Equal(t, 1, swept)
			require.Equal(t, tc.expectedCalls, anchorer.calls)
			latest, err := s.GetLatestBySubject(ctx, "abc123")
			require.NoError(t, err)
			require.Equal(t, tc.expectedStatus, latest.Status)
			require.Equal(t, tc.expectedHash, latest.TxHash)
		})
	}
}

// lostReplyAnchorer sends its first write to the ledger, then reports a timeout
type lostReplyAnchorer struct {
	*verification.Service
	lost atomic.Bool
}

func (l *lostReplyAnchorer) RecordSubmission(ctx context.Context, fp types.WasteItemFingerprint) (types.TransactionHash, error) {
	hash, err := l.Service.RecordSubmission(ctx, fp)
	if err == nil && l.lost.CompareAndSwap(false, true) {
		return "", &verification.RecordError{Kind: types.WriteNetworkTimeout, SubjectID: fp.SubmissionID, Err: context.DeadlineExceeded}
	}
	return hash, err
}

func TestSweepAdoptsWriteWhoseReplyWasLost(t *testing.T) {
	// given
	cfg := &config.BlockchainConfig{
		BlockchainType: "memory",
		Environment:    config.EnvDevelopment,
		Methods:        config.MethodNames{RecordItem: "recordWasteItem", History: "getWasteItemHistory", VerifyVendor: "verifyVendor"},
	}
	cfg.SetDefaults()
	dial, ledger, err := blockchain.NewDialer(cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	client, err := blockchain.NewLedgerClient(cfg, dial, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Shutdown() })
	service := verification.NewService(client, cfg.Methods, zap.NewNop().Sugar())

	hourAgo := time.Now().Add(-time.Hour)
	s := store.NewMemoryStore().WithClock(func() time.Time { return hourAgo })
	w := newWorker(s, nil, &lostReplyAnchorer{Service: service})
	ctx := context.Background()

	retry, err := w.handleBatch(ctx, []*models.AnchorRequest{itemRequest("r1", "abc123")})
	require.NoError(t, err)
	require.True(t, retry["r1"])
	require.Equal(t, 1, ledger.Mine())

	// when
	swept, err := w.sweepOnce(ctx)

	// then
	require.NoError(t, err)
	require.Equal(t, 1, swept)
	require.Zero(t, ledger.Pending())

	onChain := service.FetchHistory(ctx, "abc123")
	require.True(t, onChain.IsAvailable())
	latest, err := s.GetLatestBySubject(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, store.StatusAnchored, latest.Status)
	require.True(t, onChain.Contains(types.TransactionHash(latest.TxHash)))
}

type failingStore struct {
	*store.MemoryStore
}

func (failingStore) GetAndMarkBatchAsProcessing(context.Context, []string, int, time.Time) (map[string]*store.AnchorStatus, error) {
	return nil, errors.New("connection refused")
}

func TestProcessAndAckBatch(t *testing.T) {
	tt := []struct {
		name         string
		store        store.Store
		results      map[string]error
		expectedAcks []bool
	}{
		{
			name:         "retryable requests are nacked",
			store:        store.NewMemoryStore(),
			results:      map[string]error{"b": types.NewWriteError(types.WriteNotInitialized, nil)},
			expectedAcks: []bool{true, false},
		},
		{
			name:         "store failure nacks everything",
			store:        failingStore{store.NewMemoryStore()},
			expectedAcks: []bool{false, false},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			// given
			w := newWorker(tc.store, nil, &fakeAnchorer{results: tc.results})
			acked := make([]bool, 2)
			acks := []func(bool){
				func(ok bool) { acked[0] = ok },
				func(ok bool) { acked[1] = ok },
			}

			// when
			w.processAndAckBatch(context.Background(), 1, []*models.AnchorRequest{itemRequest("r1", "a"), itemRequest("r2", "b")}, acks)

			// then
			require.Equal(t, tc.expectedAcks, acked)
		})
	}
}

func TestRunDrainsMockConsumer(t *testing.T) {
	// given
	s := store.NewMemoryStore()
	anchorer := &fakeAnchorer{}
	c := consumer.NewMockConsumer(zap.NewNop().Sugar())
	w := newWorker(s, c, anchorer)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	// then
	require.Eventually(t, func() bool {
		latest, err := s.GetLatestBySubject(context.Background(), "vendor-7")
		return err == nil && latest.Status == store.StatusAnchored
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	anchorer.mu.Lock()
	defer anchorer.mu.Unlock()
	// The duplicate submission is claimed but anchoring it again is the contract's call
	require.Contains(t, anchorer.calls, "abc123")
}
