package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/types"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/internal/models"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/storage/store"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/verification"
)

const (
	defaultGrace     = 5 * time.Minute
	defaultWindow    = 24 * time.Hour
	defaultBatchSize = 500
)

// IssueKind names a disagreement between the anchor store and the ledger
type IssueKind string

const (
	// MissingOnChain: the store says ANCHORED but the ledger has no history after the grace period
	MissingOnChain IssueKind = "MissingOnChain"
	// TxMismatch: the ledger has history, but not the transaction the store recorded
	TxMismatch IssueKind = "TxMismatch"
)

// Issue is one anchored request the ledger does not confirm
type Issue struct {
	Kind      IssueKind
	RequestID string
	SubjectID string
	TxHash    string
}

// Report summarizes one reconciliation pass
type Report struct {
	Checked     int
	Confirmed   int
	Unreachable int
	Skipped     int
	Issues      []Issue
}

// HistoryFetcher reads on-chain history
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, submissionID string) verification.VerificationResult
}

// Reconciler compares ANCHORED rows against on-chain history. It only reads.
type Reconciler struct {
	store     store.Store
	history   HistoryFetcher
	grace     time.Duration
	window    time.Duration
	batchSize int
	now       func() time.Time
	logger    *zap.SugaredLogger
}

func WithGrace(grace time.Duration) func(*Reconciler) {
	return func(r *Reconciler) { r.grace = grace }
}

func WithWindow(window time.Duration) func(*Reconciler) {
	return func(r *Reconciler) { r.window = window }
}

func WithBatchSize(n int) func(*Reconciler) {
	return func(r *Reconciler) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithClock(now func() time.Time) func(*Reconciler) {
	return func(r *Reconciler) { r.now = now }
}

func New(s store.Store, h HistoryFetcher, logger *zap.SugaredLogger, opts ...func(*Reconciler)) *Reconciler {
	r := &Reconciler{
		store:     s,
		history:   h,
		grace:     defaultGrace,
		window:    defaultWindow,
		batchSize: defaultBatchSize,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run checks requests anchored between now-window and now-grace, page by page.
// Requests younger than the grace period are left alone since their write may not be mined yet.
func (r *Reconciler) Run(ctx context.Context) (*Report, error) {
	until := r.now().Add(-r.grace)
	since := until.Add(-r.window)
	report := &Report{}
	seen := make(map[string]struct{})

	for {
		page, err := r.store.ListAnchoredSince(ctx, since, until, r.batchSize)
		if err != nil {
			return report, fmt.Errorf("failed to list anchored requests: %w", err)
		}
		for _, anchored := range page {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if _, ok := seen[anchored.RequestID]; ok {
				continue
			}
			seen[anchored.RequestID] = struct{}{}
			r.check(ctx, anchored, report)
		}
		if len(page) < r.batchSize {
			break
		}
		// The next page starts at the last timestamp so ties are not lost
		last := page[len(page)-1].UpdatedAt
		if !last.After(since) {
			r.logger.Warnf("More than %d requests anchored at %s; raise the batch size to check them all", r.batchSize, last)
			break
		}
		since = last
	}

	r.logger.Infof("Reconciliation finished: checked=%d confirmed=%d unreachable=%d skipped=%d issues=%d",
		report.Checked, report.Confirmed, report.Unreachable, report.Skipped, len(report.Issues))
	return report, nil
}

func (r *Reconciler) check(ctx context.Context, anchored *store.AnchorStatus, report *Report) {
	// Vendor certifications have no history view
	if anchored.Kind != models.KindWasteItem {
		report.Skipped++
		return
	}
	report.Checked++

	result := r.history.FetchHistory(ctx, anchored.SubjectID)
	switch {
	case !result.IsAvailable() && result.Reason() == verification.ChainUnreachable:
		report.Unreachable++
	case !result.IsAvailable():
		r.flag(report, MissingOnChain, anchored)
	case !result.Contains(types.TransactionHash(anchored.TxHash)):
		r.flag(report, TxMismatch, anchored)
	default:
		report.Confirmed++
	}
}

func (r *Reconciler) flag(report *Report, kind IssueKind, anchored *store.AnchorStatus) {
	r.logger.Warnf("Reconciliation issue %s: request=%s subject=%s tx=%s", kind, anchored.RequestID, anchored.SubjectID, anchored.TxHash)
	report.Issues = append(report.Issues, Issue{
		Kind:      kind,
		RequestID: anchored.RequestID,
		SubjectID: anchored.SubjectID,
		TxHash:    anchored.TxHash,
	})
}
