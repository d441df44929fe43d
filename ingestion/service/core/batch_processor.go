package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/internal/messaging/producer"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/internal/models"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/storage/store"
)

var ErrBatchProcessorClosed = errors.New("batch processor closed")

// BatchProcessor batches anchor requests into one store insert and one publish
type BatchProcessor struct {
	batchSize    int
	batchTimeout time.Duration
	logger       *zap.SugaredLogger
	store        store.Store
	producer     producer.Producer

	// Buffers
	buffer      []*models.AnchorRequest
	bufferMutex sync.Mutex
	closed      bool
	flushChan   chan []*models.AnchorRequest

	// Context for graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(batchSize int, batchTimeout time.Duration, flushChannelBuffer int,
	store store.Store, producer producer.Producer, logger *zap.SugaredLogger) *BatchProcessor {

	ctx, cancel := context.WithCancel(context.Background())

	bp := &BatchProcessor{
		batchSize:    batchSize,
		batchTimeout: batchTimeout,
		logger:       logger,
		store:        store,
		producer:     producer,
		buffer:       make([]*models.AnchorRequest, 0, batchSize),
		flushChan:    make(chan []*models.AnchorRequest, flushChannelBuffer),
		ctx:          ctx,
		cancel:       cancel,
	}

	bp.wg.Add(2)
	go bp.batchTimer()
	go bp.batchProcessor()

	return bp
}

// Submit adds a request to the current batch
func (bp *BatchProcessor) Submit(request *models.AnchorRequest) error {
	bp.bufferMutex.Lock()
	if bp.closed {
		bp.bufferMutex.Unlock()
		return ErrBatchProcessorClosed
	}
	bp.buffer = append(bp.buffer, request)
	shouldFlush := len(bp.buffer) >= bp.batchSize
	bp.bufferMutex.Unlock()

	if shouldFlush {
		bp.flushIfNeeded()
	}
	return nil
}

// batchTimer handles periodic flushing
func (bp *BatchProcessor) batchTimer() {
	defer bp.wg.Done()

	ticker := time.NewTicker(bp.batchTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			bp.flushIfNeeded()
		case <-bp.ctx.Done():
			return
		}
	}
}

// batchProcessor handles actual batch processing
func (bp *BatchProcessor) batchProcessor() {
	defer bp.wg.Done()

	for {
		select {
		case batch := <-bp.flushChan:
			bp.processBatch(batch)
		case <-bp.ctx.Done():
			// Drain queued and buffered requests before shutdown
			for drained := false; !drained; {
				select {
				case batch := <-bp.flushChan:
					bp.processBatch(batch)
				default:
					drained = true
				}
			}
			bp.bufferMutex.Lock()
			remaining := bp.buffer
			bp.buffer = nil
			bp.bufferMutex.Unlock()
			bp.processBatch(remaining)
			return
		}
	}
}

// flushIfNeeded hands the buffer to the processor if it has entries
func (bp *BatchProcessor) flushIfNeeded() {
	bp.bufferMutex.Lock()
	defer bp.bufferMutex.Unlock()
	if len(bp.buffer) == 0 {
		return
	}

	batch := make([]*models.AnchorRequest, len(bp.buffer))
	copy(batch, bp.buffer)

	select {
	case bp.flushChan <- batch:
		bp.buffer = bp.buffer[:0]
	default:
		bp.logger.Debug("Flush channel full, will flush on next timer")
	}
}

// processBatch records the batch as PENDING, then publishes it
func (bp *BatchProcessor) processBatch(batch []*models.AnchorRequest) {
	if len(batch) == 0 {
		return
	}
	start := time.Now()
	ctx := context.Background()

	dbStart := time.Now()
	if err := bp.store.InsertAnchorRequests(ctx, batch); err != nil {
		// The engine records requests it has not seen, so publishing still anchors them
		bp.logger.Errorf("Batch store insert failed (count: %d): %v", len(batch), err)
	}
	dbDuration := time.Since(dbStart)

	kafkaStart := time.Now()
	if err := bp.producer.PublishBatch(ctx, batch); err != nil {
		// The requests stay PENDING in the store
		bp.logger.Errorf("Batch publish failed (count: %d): %v", len(batch), err)
		return
	}
	kafkaDuration := time.Since(kafkaStart)

	bp.logger.Infof("Batch processed: %d anchor requests, DB: %v, Kafka: %v, Total: %v",
		len(batch), dbDuration, kafkaDuration, time.Since(start))
}

// Close flushes what is buffered and stops the processor
func (bp *BatchProcessor) Close() {
	bp.bufferMutex.Lock()
	if bp.closed {
		bp.bufferMutex.Unlock()
		return
	}
	bp.closed = true
	bp.bufferMutex.Unlock()

	bp.cancel()
	bp.wg.Wait()
}
