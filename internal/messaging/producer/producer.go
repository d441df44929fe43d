package producer

import (
	"context"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/internal/models"
)

// Producer defines the interface for message queue producer
type Producer interface {
	// Publish sends a single anchor request to the configured topic
	Publish(ctx context.Context, msg *models.AnchorRequest) error

	// PublishBatch sends anchor requests in batch to the configured topic
	PublishBatch(ctx context.Context, msgs []*models.AnchorRequest) error

	// Close closes the producer connection
	Close() error
}
