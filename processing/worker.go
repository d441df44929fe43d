package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/types"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/config"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/internal/messaging/consumer"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/internal/models"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/storage/store"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/verification"
)

// Anchorer performs the anchoring writes; *verification.Service implements it
type Anchorer interface {
	RecordSubmission(ctx context.Context, fp types.WasteItemFingerprint) (types.TransactionHash, error)
	VerifyVendor(ctx context.Context, vendorID string, certifications []string) (types.TransactionHash, error)
	FetchHistory(ctx context.Context, submissionID string) verification.VerificationResult
}

// Worker anchors queued requests in batches
type Worker struct {
	workerConfig       config.WorkerConfig
	batchTimeout       time.Duration // Parsed from workerConfig.BatchTimeout
	consumerRetryDelay time.Duration // Parsed from workerConfig.ConsumerRetryDelay
	blockchainTimeout  time.Duration // Parsed from workerConfig.BlockchainTimeout
	retrySweepInterval time.Duration // Parsed from workerConfig.RetrySweepInterval
	claimLease         time.Duration // How long a claim is held before another worker may take it over

	now            func() time.Time
	maxTaskRetries int
	logger         *zap.SugaredLogger
	store          store.Store
	consumer       consumer.Consumer
	anchorer       Anchorer
}

// New creates a new Worker instance
func New(cfg config.WorkerConfig, maxTaskRetries int, logger *zap.SugaredLogger, s store.Store, c consumer.Consumer, a Anchorer) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	batchTimeout, err := time.ParseDuration(cfg.BatchTimeout)
	if err != nil {
		logger.Warnf("Invalid batch_timeout '%s', using default 1s", cfg.BatchTimeout)
		batchTimeout = 1 * time.Second
	}

	consumerRetryDelay, err := time.ParseDuration(cfg.ConsumerRetryDelay)
	if err != nil {
		logger.Warnf("Invalid consumer_retry_delay '%s', using default 5s", cfg.ConsumerRetryDelay)
		consumerRetryDelay = 5 * time.Second
	}

	blockchainTimeout, err := time.ParseDuration(cfg.BlockchainTimeout)
	if err != nil {
		logger.Warnf("Invalid blockchain_timeout '%s', using default 60s", cfg.BlockchainTimeout)
		blockchainTimeout = 60 * time.Second
	}

	retrySweepInterval, err := time.ParseDuration(cfg.RetrySweepInterval)
	if err != nil || retrySweepInterval <= 0 {
		logger.Warnf("Invalid retry_sweep_interval '%s', using default 30s", cfg.RetrySweepInterval)
		retrySweepInterval = 30 * time.Second
	}

	return &Worker{
		workerConfig:       cfg,
		batchTimeout:       batchTimeout,
		consumerRetryDelay: consumerRetryDelay,
		blockchainTimeout:  blockchainTimeout,
		retrySweepInterval: retrySweepInterval,
		claimLease:         blockchainTimeout + retrySweepInterval,
		now:                time.Now,
		maxTaskRetries:     maxTaskRetries,
		logger:             logger,
		store:              s,
		consumer:           c,
		anchorer:           a,
	}
}

// Run starts the worker pool and blocks until ctx is cancelled
func (w *Worker) Run(ctx context.Context) {
	w.logger.Infof("Starting worker pool with concurrency: %d, BatchSize: %d, BatchTimeout: %s",
		w.workerConfig.Concurrency, w.workerConfig.BatchSize, w.batchTimeout)
	var wg sync.WaitGroup
	for i := 0; i < w.workerConfig.Concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.logger.Infof("Worker %d started", workerID)
			w.processMessagesInBatch(ctx, workerID)
			w.logger.Infof("Worker %d stopped", workerID)
		}(i + 1)
	}
	wg.Wait()
	w.logger.Info("Worker pool stopped.")
}

// processMessagesInBatch is the main loop for a worker goroutine
func (w *Worker) processMessagesInBatch(ctx context.Context, workerID int) {
	batchMessages := make([]*models.AnchorRequest, 0, w.workerConfig.BatchSize)
	kafkaAcks := make([]func(success bool), 0, w.workerConfig.BatchSize)
	batchTimer := time.NewTimer(0) // Start with stopped timer
	if !batchTimer.Stop() {
		select {
		case <-batchTimer.C:
		default:
		}
	}

	processBatch := func() {
		if len(batchMessages) == 0 {
			return
		}

		if !batchTimer.Stop() {
			select {
			case <-batchTimer.C:
			default:
			}
		}

		w.processAndAckBatch(ctx, workerID, batchMessages, kafkaAcks)

		batchMessages = make([]*models.AnchorRequest, 0, w.workerConfig.BatchSize)
		kafkaAcks = make([]func(success bool), 0, w.workerConfig.BatchSize)
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Infof("Worker %d: Context cancelled, stopping.", workerID)
			for _, ack := range kafkaAcks {
				ack(false)
			}
			return

		case <-batchTimer.C:
			processBatch()

		default:
			consumeCtx, consumeCancel := context.WithTimeout(ctx, 100*time.Millisecond)
			msg, ack, err := w.consumer.Consume(consumeCtx)
			consumeCancel()

			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
					continue
				}
				w.logger.Errorf("Worker %d: Consumer error: %v", workerID, err)
				select {
				case <-ctx.Done():
				case <-time.After(w.consumerRetryDelay):
				}
				continue
			}

			if msg != nil {
				if len(batchMessages) == 0 {
					batchTimer.Reset(w.batchTimeout)
				}

				batchMessages = append(batchMessages, msg)
				kafkaAcks = append(kafkaAcks, ack)

				if len(batchMessages) >= w.workerConfig.BatchSize {
					processBatch()
				}
			}
		}
	}
}

// processAndAckBatch handles processing and Kafka acknowledgement. Requests
// left for retry are nacked; everything else is acked.
func (w *Worker) processAndAckBatch(ctx context.Context, workerID int, batch []*models.AnchorRequest, acks []func(success bool)) {
	retry, err := w.handleBatch(ctx, batch)
	if err != nil {
		w.logger.Errorf("Worker %d: Batch failed: %v (nacking %d messages)", workerID, err, len(acks))
		for _, ack := range acks {
			ack(false)
		}
		return
	}

	for i, msg := range batch {
		acks[i](!retry[msg.RequestID])
	}
}

// SweepRetries re-anchors stalled requests every retry_sweep_interval until ctx
// is cancelled. A nacked Kafka message is only redelivered after a rebalance, so
// requests left for retry are picked up here instead. Run one sweeper per engine.
func (w *Worker) SweepRetries(ctx context.Context) {
	ticker := time.NewTicker(w.retrySweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.sweepOnce(ctx); err != nil && ctx.Err() == nil {
				w.logger.Errorf("Retry sweep failed: %v", err)
			}
		}
	}
}

// sweepOnce re-anchors one page of requests left for retry at least a sweep
// interval ago, and of requests whose claim lease expired
func (w *Worker) sweepOnce(ctx context.Context) (int, error) {
	now := w.now()
	stalled, err := w.store.ListStalled(ctx, now.Add(-w.retrySweepInterval), now.Add(-w.claimLease), w.workerConfig.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("DB error: ListStalled failed: %w", err)
	}
	if len(stalled) == 0 {
		return 0, nil
	}
	w.logger.Infof("Retry sweep: re-anchoring %d stalled requests", len(stalled))
	if _, err := w.handleBatch(ctx, stalled); err != nil {
		return 0, err
	}
	return len(stalled), nil
}

// handleBatch anchors the batch and returns the request ids left for retry
func (w *Worker) handleBatch(ctx context.Context, batch []*models.AnchorRequest) (map[string]bool, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	batchStart := time.Now()

	requestIDs := make([]string, 0, len(batch))
	valid := make([]*models.AnchorRequest, 0, len(batch))
	for _, msg := range batch {
		if err := msg.Validate(); err != nil {
			w.logger.Warnf("Dropping invalid anchor request %s: %v", msg.RequestID, err)
			continue
		}
		requestIDs = append(requestIDs, msg.RequestID)
		valid = append(valid, msg)
	}
	if len(requestIDs) == 0 {
		return nil, nil
	}

	// --- 1. Claim in the store ---
	dbStart := time.Now()
	// Requests published without passing through the gateway store are recorded here
	if err := w.store.InsertAnchorRequests(ctx, valid); err != nil {
		return nil, fmt.Errorf("DB error: InsertAnchorRequests failed: %w", err)
	}
	tasks, err := w.store.GetAndMarkBatchAsProcessing(ctx, requestIDs, w.maxTaskRetries, w.now().Add(-w.claimLease))
	if err != nil {
		return nil, fmt.Errorf("DB error: GetAndMarkBatchAsProcessing failed: %w", err)
	}
	dbQueryDuration := time.Since(dbStart)

	// --- 2. Anchor, one write at a time, in queue order ---
	// Each outcome is recorded as soon as its write returns, while the claim lease still holds.
	retry := make(map[string]bool)
	var anchored, failed, retried, lost int
	var updateErrors []string
	var dbUpdateDuration time.Duration

	bcStart := time.Now()
	for _, msg := range valid {
		task, ok := tasks[msg.RequestID]
		if !ok || task.Status != store.StatusProcessing {
			// Already anchored, failed, out of retries, or held by another worker
			continue
		}

		// The lease runs from here, so a request waiting its turn is never taken over mid-write
		held, err := w.store.RenewClaim(ctx, msg.RequestID, task.ClaimToken)
		if err != nil {
			w.logger.Errorf("Renewing claim on %s failed, leaving it for the retry sweep: %v", msg.RequestID, err)
			retry[msg.RequestID] = true
			continue
		}
		if !held {
			w.logger.Warnf("Claim on %s was taken over, skipping", msg.RequestID)
			lost++
			continue
		}

		hash, err := w.anchor(ctx, msg, task.RetryCount)

		dbUpdateStart := time.Now()
		var updateErr error
		switch {
		case err == nil:
			anchored++
			updateErr = w.store.MarkBatchAsCompleted(ctx, []store.CompletionRecord{{RequestID: msg.RequestID, ClaimToken: task.ClaimToken, TxHash: string(hash)}})
		case verification.IsRetryable(err):
			retried++
			retry[msg.RequestID] = true
			updateErr = w.store.MarkBatchForRetry(ctx, []store.RetryRecord{{RequestID: msg.RequestID, ClaimToken: task.ClaimToken, ErrorMessage: err.Error()}})
		default:
			failed++
			updateErr = w.store.MarkBatchAsFailed(ctx, []store.FailureRecord{{RequestID: msg.RequestID, ClaimToken: task.ClaimToken, ErrorMessage: err.Error()}})
		}
		dbUpdateDuration += time.Since(dbUpdateStart)
		if updateErr != nil {
			updateErrors = append(updateErrors, fmt.Sprintf("%s: %v", msg.RequestID, updateErr))
		}
	}
	bcDuration := time.Since(bcStart) - dbUpdateDuration

	w.logger.Infof("Batch performance: size=%d, claimed=%d, anchored=%d, failed=%d, retry=%d, taken_over=%d, db_query=%v, db_updates=%v, blockchain=%v, total=%v",
		len(batch), len(tasks), anchored, failed, retried, lost, dbQueryDuration, dbUpdateDuration, bcDuration, time.Since(batchStart))

	if len(updateErrors) > 0 {
		w.logger.Errorf("DB update errors: %s", strings.Join(updateErrors, "; "))
	}

	return retry, nil
}

// anchor performs the write for msg. attempt counts this claim, so any attempt
// past the first may follow a write that reached the chain without its reply.
func (w *Worker) anchor(ctx context.Context, msg *models.AnchorRequest, attempt int) (types.TransactionHash, error) {
	invokeCtx, cancel := context.WithTimeout(ctx, w.blockchainTimeout)
	defer cancel()

	switch msg.Kind {
	case models.KindVendor:
		// Re-certifying a vendor overwrites the same entry, so no lookup is needed
		return w.anchorer.VerifyVendor(invokeCtx, msg.Vendor.VendorID, msg.Vendor.Certifications)
	default:
		if attempt > 1 {
			hash, found, err := w.findAnchored(invokeCtx, msg.SubjectID)
			if err != nil || found {
				return hash, err
			}
		}
		return w.anchorer.RecordSubmission(invokeCtx, *msg.WasteItem)
	}
}

// findAnchored looks the submission up on chain before a re-send. A history that
// already exists is adopted with the hash of the write that created it.
func (w *Worker) findAnchored(ctx context.Context, submissionID string) (types.TransactionHash, bool, error) {
	result := w.anchorer.FetchHistory(ctx, submissionID)
	if result.IsAvailable() {
		hash := result.Records()[0].TransactionHash
		w.logger.Infof("Submission %s already anchored in transaction %s, not re-sending", submissionID, hash)
		return hash, true, nil
	}
	if result.Reason() == verification.ChainUnreachable {
		return "", false, &verification.RecordError{
			Kind:      types.WriteNetworkTimeout,
			SubjectID: submissionID,
			Err:       errors.New("history lookup before re-send failed: ledger unreachable"),
		}
	}
	return "", false, nil
}
