package verification

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/types"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/config"
)

// Ledger is the part of the ledger client the service depends on
type Ledger interface {
	SubmitWrite(ctx context.Context, method string, args types.Args) (types.TransactionHash, error)
	Call(ctx context.Context, method string, args types.Args) (*types.RawReturnValue, error)
	CheckConnectivity(ctx context.Context) bool
}

//go:generate moq -pkg mocks -out ./mocks/ledger_mock.go . Ledger

// Service is the chain-agnostic face of the ledger for the rest of the application.
// It never retries and never blocks the off-chain flow that precedes it.
type Service struct {
	ledger  Ledger
	methods config.MethodNames
	cache   *HistoryCache
	stats   *Stats
	now     func() time.Time
	logger  *zap.SugaredLogger
}

func WithCache(cache *HistoryCache) func(*Service) {
	return func(s *Service) {
		s.cache = cache
	}
}

func WithStats(stats *Stats) func(*Service) {
	return func(s *Service) {
		s.stats = stats
	}
}

func WithClock(now func() time.Time) func(*Service) {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(ledger Ledger, methods config.MethodNames, logger *zap.SugaredLogger, opts ...func(*Service)) *Service {
	s := &Service{
		ledger:  ledger,
		methods: methods,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordSubmission anchors fp. A zero CreatedAtEpochMs is stamped with the
// current time. Failures are logged and returned as *RecordError; they never
// invalidate the off-chain submission.
func (s *Service) RecordSubmission(ctx context.Context, fp types.WasteItemFingerprint) (types.TransactionHash, error) {
	if err := ValidateFingerprint(fp); err != nil {
		s.stats.recordWrite("waste_item", "rejected")
		return "", &RecordError{SubjectID: fp.SubmissionID, Err: err}
	}
	if fp.CreatedAtEpochMs == 0 {
		fp.CreatedAtEpochMs = s.now().UnixMilli()
	}

	hash, err := s.ledger.SubmitWrite(ctx, s.methods.RecordItem, types.Args{
		{Name: "id", Value: fp.SubmissionID},
		{Name: "itemType", Value: fp.ItemType},
		{Name: "weight", Value: WeightToGrams(fp.WeightKg)},
		{Name: "timestamp", Value: fp.CreatedAtEpochMs},
		{Name: "userId", Value: fp.OwnerID},
	})
	if err != nil {
		recordErr := newRecordError(fp.SubmissionID, err)
		s.logger.Warnf("Anchoring submission %s failed (%s); the off-chain record remains valid: %v", fp.SubmissionID, recordErr.Kind, err)
		s.stats.recordWrite("waste_item", recordErr.Kind.String())
		return "", recordErr
	}

	if s.cache != nil {
		s.cache.Delete(fp.SubmissionID)
	}
	s.stats.recordWrite("waste_item", "sent")
	s.logger.Infof("Submission %s anchored in transaction %s", fp.SubmissionID, hash)
	return hash, nil
}

// VerifyVendor anchors a vendor certification with the same contract as RecordSubmission
func (s *Service) VerifyVendor(ctx context.Context, vendorID string, certifications []string) (types.TransactionHash, error) {
	if vendorID == "" {
		s.stats.recordWrite("vendor", "rejected")
		return "", &RecordError{SubjectID: vendorID, Err: fmt.Errorf("%w: vendor id is empty", ErrInvalidInput)}
	}
	if certifications == nil {
		certifications = []string{}
	}

	hash, err := s.ledger.SubmitWrite(ctx, s.methods.VerifyVendor, types.Args{
		{Name: "vendorId", Value: vendorID},
		{Name: "certifications", Value: certifications},
	})
	if err != nil {
		recordErr := newRecordError(vendorID, err)
		s.logger.Warnf("Anchoring certification of vendor %s failed (%s): %v", vendorID, recordErr.Kind, err)
		s.stats.recordWrite("vendor", recordErr.Kind.String())
		return "", recordErr
	}

	s.stats.recordWrite("vendor", "sent")
	s.logger.Infof("Vendor %s certification anchored in transaction %s", vendorID, hash)
	return hash, nil
}

// FetchHistory returns the on-chain history of a submission. It never fails:
// absence is NotYetAnchored, and every read failure is ChainUnreachable.
func (s *Service) FetchHistory(ctx context.Context, submissionID string) VerificationResult {
	if s.cache != nil {
		if result, ok := s.cache.Get(submissionID); ok {
			s.stats.recordCacheHit()
			return result
		}
	}

	raw, err := s.ledger.Call(ctx, s.methods.History, types.Args{{Name: "id", Value: submissionID}})
	if err != nil {
		if types.ReadKind(err) == types.NotFound {
			s.stats.recordRead(string(NotYetAnchored))
			return Unavailable(NotYetAnchored)
		}
		s.logger.Warnf("History of %s could not be read: %v", submissionID, err)
		s.stats.recordRead(string(ChainUnreachable))
		return Unavailable(ChainUnreachable)
	}

	records, err := decodeHistory(raw)
	if err != nil {
		s.logger.Warnf("History of %s could not be decoded: %v", submissionID, err)
		s.stats.recordRead(string(ChainUnreachable))
		return Unavailable(ChainUnreachable)
	}

	result := Available(records)
	if s.cache != nil {
		s.cache.Put(submissionID, result)
	}
	s.stats.recordRead("available")
	return result
}

// ChainStatus reports ledger reachability for display banners
func (s *Service) ChainStatus(ctx context.Context) bool {
	ok := s.ledger.CheckConnectivity(ctx)
	s.stats.recordPing(ok)
	return ok
}

// WeightToGrams is the on-chain weight encoding
func WeightToGrams(weightKg float64) int64 {
	return int64(math.Round(weightKg * 1000))
}

// ValidateFingerprint rejects fingerprints the contract could never accept
func ValidateFingerprint(fp types.WasteItemFingerprint) error {
	switch {
	case fp.SubmissionID == "":
		return fmt.Errorf("%w: submission id is empty", ErrInvalidInput)
	case fp.ItemType == "":
		return fmt.Errorf("%w: item type is empty", ErrInvalidInput)
	case math.IsNaN(fp.WeightKg) || math.IsInf(fp.WeightKg, 0) || fp.WeightKg < 0:
		return fmt.Errorf("%w: weight must be a non-negative number", ErrInvalidInput)
	case fp.CreatedAtEpochMs < 0:
		return fmt.Errorf("%w: negative timestamp", ErrInvalidInput)
	}
	return nil
}
