package consumer

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/types"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/internal/models"
)

// MockConsumer serves fixed anchor requests for local runs and tests.
type MockConsumer struct {
	logger    *zap.SugaredLogger
	messages  chan *models.AnchorRequest
	closeOnce sync.Once
}

// PredefinedMessages returns the requests a MockConsumer starts with. The
// third repeats the first submission id, as a duplicate anchoring attempt would.
func PredefinedMessages() []*models.AnchorRequest {
	now := time.Now().Unix()
	laptop := &types.WasteItemFingerprint{SubmissionID: "abc123", ItemType: "Laptop", WeightKg: 3.2, OwnerID: "user1"}
	return []*models.AnchorRequest{
		{
			RequestID:         "a1b1c1d1-e1f1-1111-2222-1234567890ab",
			Kind:              models.KindWasteItem,
			SubjectID:         laptop.SubmissionID,
			WasteItem:         laptop,
			ReceivedTimestamp: strconv.FormatInt(now-60, 10),
		},
		{
			RequestID:         "a2b2c2d2-e2f2-3333-4444-abcdef123456",
			Kind:              models.KindVendor,
			SubjectID:         "vendor-7",
			Vendor:            &types.VendorCertification{VendorID: "vendor-7", Certifications: []string{"R2", "e-Stewards"}},
			ReceivedTimestamp: strconv.FormatInt(now-30, 10),
		},
		{
			RequestID:         "a3b3c3d3-e3f3-5555-6666-fedcba654321",
			Kind:              models.KindWasteItem,
			SubjectID:         laptop.SubmissionID,
			WasteItem:         laptop,
			ReceivedTimestamp: strconv.FormatInt(now, 10),
		},
	}
}

// NewMockConsumer creates a MockConsumer loaded with msgs, or with
// PredefinedMessages when msgs is empty.
func NewMockConsumer(logger *zap.SugaredLogger, msgs ...*models.AnchorRequest) *MockConsumer {
	if len(msgs) == 0 {
		msgs = PredefinedMessages()
	}
	mc := &MockConsumer{
		logger:   logger,
		messages: make(chan *models.AnchorRequest, len(msgs)+5),
	}
	for _, msg := range msgs {
		mc.messages <- msg
	}
	logger.Infof("[MockConsumer] Loaded %d anchor requests", len(msgs))
	return mc
}

// Consume reads predefined messages from the channel.
func (m *MockConsumer) Consume(ctx context.Context) (msg *models.AnchorRequest, ack func(success bool), err error) {
	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case msg, ok := <-m.messages:
		if !ok {
			return nil, nil, errors.New("message channel closed")
		}
		m.logger.Debugf("[MockConsumer] Consumed message: request_id=%s", msg.RequestID)

		ackCallback := func(success bool) {
			if success {
				m.logger.Debugf("[MockConsumer] ACK received for message: request_id=%s", msg.RequestID)
				return
			}
			m.logger.Infof("[MockConsumer] NACK received for message: request_id=%s. Re-queueing", msg.RequestID)
			defer func() {
				// The channel may already be closed on shutdown
				_ = recover()
			}()
			select {
			case m.messages <- msg:
			default:
				m.logger.Warnf("[MockConsumer] Failed to re-queue message (channel full): request_id=%s", msg.RequestID)
			}
		}
		return msg, ackCallback, nil
	}
}

// Close closes the message channel.
func (m *MockConsumer) Close() error {
	m.closeOnce.Do(func() {
		m.logger.Info("[MockConsumer] Closing...")
		close(m.messages)
	})
	return nil
}

var _ Consumer = (*MockConsumer)(nil)
