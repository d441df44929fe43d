package producer

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/internal/models"
)

var ErrProducerClosed = errors.New("producer closed")

// MemoryProducer keeps published requests in process. It backs local runs
// without a broker and the gateway tests.
type MemoryProducer struct {
	mu        sync.Mutex
	published []*models.AnchorRequest
	closed    bool
	logger    *zap.SugaredLogger
}

func NewMemoryProducer(logger *zap.SugaredLogger) *MemoryProducer {
	return &MemoryProducer{logger: logger}
}

func (m *MemoryProducer) Publish(ctx context.Context, msg *models.AnchorRequest) error {
	return m.PublishBatch(ctx, []*models.AnchorRequest{msg})
}

func (m *MemoryProducer) PublishBatch(ctx context.Context, msgs []*models.AnchorRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrProducerClosed
	}
	m.published = append(m.published, msgs...)
	m.logger.Debugf("[MemoryProducer] Accepted %d anchor requests", len(msgs))
	return nil
}

// Published returns everything accepted so far, in order
func (m *MemoryProducer) Published() []*models.AnchorRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.AnchorRequest(nil), m.published...)
}

func (m *MemoryProducer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var _ Producer = (*MemoryProducer)(nil)
