package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/types"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/internal/messaging/producer"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/internal/models"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/storage/store"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/verification"
)

// SubmissionInput is a submission already committed to the Submission Store
type SubmissionInput struct {
	SubmissionID     string
	ItemType         string
	WeightKg         float64
	OwnerID          string
	CreatedAtEpochMs int64 // Optional, stamped on receipt when zero
}

// VendorInput is a vendor verification already committed off-chain
type VendorInput struct {
	VendorID       string
	Certifications []string
}

// AnchorResult is returned as soon as the request is queued
type AnchorResult struct {
	RequestID         string
	SubjectID         string
	ReceivedTimestamp time.Time
}

// HistoryReader is the read side of the verification service
type HistoryReader interface {
	FetchHistory(ctx context.Context, submissionID string) verification.VerificationResult
	ChainStatus(ctx context.Context) bool
}

// VerificationView is the Display Surface result plus the latest anchoring attempt, if any
type VerificationView struct {
	Result      verification.VerificationResult
	LastAttempt *store.AnchorStatus
}

// MaxVerificationWait caps how long a verification read waits for a history to appear
const MaxVerificationWait = 30 * time.Second

// Service encapsulates the core business logic of the API gateway
type Service struct {
	store          store.Store
	producer       producer.Producer
	history        HistoryReader
	logger         *zap.SugaredLogger
	batchProcessor *BatchProcessor
	poller         *verification.Poller
	pollInitial    time.Duration
	pollMax        time.Duration
	now            func() time.Time
}

// WithPollIntervals sets the backoff bounds used while a verification read waits
func WithPollIntervals(initial, max time.Duration) func(*Service) {
	return func(s *Service) {
		s.pollInitial = initial
		s.pollMax = max
	}
}

// NewService creates a new Service instance with configuration
func NewService(s store.Store, p producer.Producer, h HistoryReader, l *zap.SugaredLogger, batchSize int, batchTimeout time.Duration, flushChannelBuffer int, opts ...func(*Service)) *Service {
	svc := &Service{
		store:          s,
		producer:       p,
		history:        h,
		logger:         l,
		batchProcessor: NewBatchProcessor(batchSize, batchTimeout, flushChannelBuffer, s, p, l),
		pollInitial:    500 * time.Millisecond,
		pollMax:        5 * time.Second,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	// The wait deadline bounds polling, not the attempt count
	svc.poller = verification.NewPoller(h, l,
		verification.WithPollIntervals(svc.pollInitial, svc.pollMax),
		verification.WithMaxAttempts(math.MaxUint32))
	return svc
}

// AnchorSubmission queues the anchoring of a committed submission. It never
// waits for the chain; a failure here leaves the submission itself untouched.
func (s *Service) AnchorSubmission(ctx context.Context, input *SubmissionInput) (*AnchorResult, error) {
	receivedTimestamp := s.now()

	fp := types.WasteItemFingerprint{
		SubmissionID:     input.SubmissionID,
		ItemType:         input.ItemType,
		WeightKg:         input.WeightKg,
		CreatedAtEpochMs: input.CreatedAtEpochMs,
		OwnerID:          input.OwnerID,
	}
	if fp.CreatedAtEpochMs == 0 {
		fp.CreatedAtEpochMs = receivedTimestamp.UnixMilli()
	}
	if err := verification.ValidateFingerprint(fp); err != nil {
		return nil, err
	}

	return s.enqueue(&models.AnchorRequest{
		RequestID:         uuid.NewString(),
		Kind:              models.KindWasteItem,
		SubjectID:         fp.SubmissionID,
		WasteItem:         &fp,
		ReceivedTimestamp: strconv.FormatInt(receivedTimestamp.Unix(), 10),
	}, receivedTimestamp)
}

// CertifyVendor queues the anchoring of a vendor certification
func (s *Service) CertifyVendor(ctx context.Context, input *VendorInput) (*AnchorResult, error) {
	if input.VendorID == "" {
		return nil, fmt.Errorf("%w: vendor_id cannot be empty", verification.ErrInvalidInput)
	}
	certifications := input.Certifications
	if certifications == nil {
		certifications = []string{}
	}
	receivedTimestamp := s.now()

	return s.enqueue(&models.AnchorRequest{
		RequestID:         uuid.NewString(),
		Kind:              models.KindVendor,
		SubjectID:         input.VendorID,
		Vendor:            &types.VendorCertification{VendorID: input.VendorID, Certifications: certifications},
		ReceivedTimestamp: strconv.FormatInt(receivedTimestamp.Unix(), 10),
	}, receivedTimestamp)
}

func (s *Service) enqueue(request *models.AnchorRequest, receivedTimestamp time.Time) (*AnchorResult, error) {
	if err := s.batchProcessor.Submit(request); err != nil {
		return nil, err
	}
	return &AnchorResult{
		RequestID:         request.RequestID,
		SubjectID:         request.SubjectID,
		ReceivedTimestamp: receivedTimestamp,
	}, nil
}

// Verification returns what a viewer of submissionID should see. It fails
// only on store errors; the chain side always yields a result. With a positive
// wait, capped at MaxVerificationWait, the history is re-checked until it
// becomes available or the wait runs out.
func (s *Service) Verification(ctx context.Context, submissionID string, wait time.Duration) (*VerificationView, error) {
	view := &VerificationView{Result: s.readHistory(ctx, submissionID, wait)}

	attempt, err := s.store.GetLatestBySubject(ctx, submissionID)
	switch {
	case err == nil:
		view.LastAttempt = attempt
	case errors.Is(err, store.ErrNotFound):
	default:
		s.logger.Warnf("Anchor attempt lookup for %s failed: %v", submissionID, err)
	}
	return view, nil
}

func (s *Service) readHistory(ctx context.Context, submissionID string, wait time.Duration) verification.VerificationResult {
	if wait <= 0 {
		return s.history.FetchHistory(ctx, submissionID)
	}
	if wait > MaxVerificationWait {
		wait = MaxVerificationWait
	}
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	result, err := s.poller.Await(waitCtx, submissionID)
	if err != nil && result.Reason() == verification.ChainUnreachable && waitCtx.Err() != nil && ctx.Err() == nil {
		// The last read may have been cut short by the wait deadline itself
		return s.history.FetchHistory(ctx, submissionID)
	}
	return result
}

// ChainStatus reports ledger reachability
func (s *Service) ChainStatus(ctx context.Context) bool {
	return s.history.ChainStatus(ctx)
}

// StoreStatus reports whether the anchor store answers
func (s *Service) StoreStatus(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Close gracefully shuts down the service
func (s *Service) Close() {
	s.batchProcessor.Close()
}
