package verification

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// HistoryFetcher is what Poller re-checks
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, submissionID string) VerificationResult
}

var errStillUnavailable = errors.New("history still unavailable")

// Poller re-checks a history with exponential backoff until it is available.
// It belongs to callers that want to wait; FetchHistory itself never retries.
type Poller struct {
	fetcher         HistoryFetcher
	initialInterval time.Duration
	maxInterval     time.Duration
	maxAttempts     uint64
	logger          *zap.SugaredLogger
}

func WithPollIntervals(initial, max time.Duration) func(*Poller) {
	return func(p *Poller) {
		p.initialInterval = initial
		p.maxInterval = max
	}
}

func WithMaxAttempts(attempts uint64) func(*Poller) {
	return func(p *Poller) {
		p.maxAttempts = attempts
	}
}

func NewPoller(fetcher HistoryFetcher, logger *zap.SugaredLogger, opts ...func(*Poller)) *Poller {
	p := &Poller{
		fetcher:         fetcher,
		initialInterval: 2 * time.Second,
		maxInterval:     30 * time.Second,
		maxAttempts:     10,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Await returns the first available result. When attempts or ctx run out it
// returns the last unavailable result together with an error.
func (p *Poller) Await(ctx context.Context, submissionID string) (VerificationResult, error) {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = p.initialInterval
	expBackoff.MaxInterval = p.maxInterval
	expBackoff.MaxElapsedTime = 0

	var retries uint64
	if p.maxAttempts > 1 {
		retries = p.maxAttempts - 1
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(expBackoff, retries), ctx)

	var last VerificationResult
	operation := func() (VerificationResult, error) {
		last = p.fetcher.FetchHistory(ctx, submissionID)
		if !last.IsAvailable() {
			return last, errStillUnavailable
		}
		return last, nil
	}
	notify := func(_ error, next time.Duration) {
		p.logger.Debugf("History for %s is %s, re-checking in %s", submissionID, last, next)
	}

	result, err := backoff.RetryNotifyWithData(operation, policy, notify)
	if err != nil {
		return last, err
	}
	return result, nil
}
