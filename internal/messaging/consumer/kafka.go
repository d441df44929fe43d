package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/config"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/internal/models"
)

// KafkaConsumer implements the Consumer interface to consume anchor requests from Kafka
type KafkaConsumer struct {
	reader *kafka.Reader
	logger *zap.SugaredLogger
}

// NewKafkaConsumer creates a new KafkaConsumer instance
func NewKafkaConsumer(cfg config.KafkaConsumerConfig, logger *zap.SugaredLogger) (*KafkaConsumer, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" || cfg.GroupID == "" {
		return nil, errors.New("incomplete kafka configuration: brokers, topic, group_id are all required")
	}

	sessionTimeout, err := time.ParseDuration(cfg.SessionTimeout)
	if err != nil {
		logger.Warnf("Invalid session_timeout '%s', using default 30s", cfg.SessionTimeout)
		sessionTimeout = 30 * time.Second
	}

	heartbeatInterval, err := time.ParseDuration(cfg.HeartbeatInterval)
	if err != nil {
		logger.Warnf("Invalid heartbeat_interval '%s', using default 3s", cfg.HeartbeatInterval)
		heartbeatInterval = 3 * time.Second
	}

	readerConfig := kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		GroupID:           cfg.GroupID,
		Topic:             cfg.Topic,
		MinBytes:          1,
		MaxBytes:          10e6, // 10MB
		MaxWait:           1 * time.Second,
		SessionTimeout:    sessionTimeout,
		HeartbeatInterval: heartbeatInterval,
		StartOffset:       startOffset(cfg.AutoOffsetReset, logger),
	}

	r := kafka.NewReader(readerConfig)

	logger.Infof("Kafka consumer created, connected to Brokers: %v, Topic: %s, GroupID: %s", cfg.Brokers, cfg.Topic, cfg.GroupID)

	return &KafkaConsumer{
		reader: r,
		logger: logger,
	}, nil
}

func startOffset(autoOffsetReset string, logger *zap.SugaredLogger) int64 {
	switch autoOffsetReset {
	case "latest":
		return kafka.LastOffset
	case "earliest", "":
		return kafka.FirstOffset
	default:
		logger.Warnf("Unknown auto_offset_reset '%s', using earliest", autoOffsetReset)
		return kafka.FirstOffset
	}
}

// Consume implements the Consumer interface by reading messages from Kafka
func (k *KafkaConsumer) Consume(ctx context.Context) (msg *models.AnchorRequest, ack func(success bool), err error) {
	kafkaMsg, err := k.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, ctx.Err()
		}
		return nil, nil, err
	}

	var request models.AnchorRequest
	if err := json.Unmarshal(kafkaMsg.Value, &request); err == nil {
		err = request.Validate()
	}
	if err != nil {
		k.logger.Errorf("Kafka consumer: discarding unreadable anchor request (Offset: %d): %v", kafkaMsg.Offset, err)
		_ = k.reader.CommitMessages(ctx, kafkaMsg) // Commit offset to avoid blocking the partition
		return nil, nil, fmt.Errorf("message deserialization failed: %w", err)
	}

	ackCallback := func(success bool) {
		if !success {
			k.logger.Warnf("Kafka consumer: NACK for offset %d (request_id %s). Offset will not be committed.", kafkaMsg.Offset, request.RequestID)
			return
		}
		if err := k.reader.CommitMessages(context.Background(), kafkaMsg); err != nil {
			k.logger.Errorf("Kafka consumer: Failed to commit offset %d: %v", kafkaMsg.Offset, err)
		}
	}

	return &request, ackCallback, nil
}

// Close implements the Consumer interface by closing the Kafka reader
func (k *KafkaConsumer) Close() error {
	k.logger.Info("Closing Kafka consumer...")
	return k.reader.Close()
}

var _ Consumer = (*KafkaConsumer)(nil)
