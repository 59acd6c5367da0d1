package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/civisafe/hazardwatch/internal/config"
	"github.com/civisafe/hazardwatch/internal/domain"
)

// Writer publishes notification intents to the sink topic.
// It implements pipeline.BatchEmitter.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a producer for the configured intent topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaIntentTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// EmitBatch serializes and publishes notification intents in a single
// WriteMessages call. Keys are hazard ids so intents for the same hazard
// stay ordered within a partition.
func (w *Writer) EmitBatch(ctx context.Context, intents []domain.NotificationIntent) error {
	if len(intents) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(intents))
	for i := range intents {
		msg, err := serializeToMessage(intents[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a NotificationIntent into a Kafka message.
func serializeToMessage(intent domain.NotificationIntent) (kafkago.Message, error) {
	data, err := json.Marshal(intent)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize notification intent: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(intent.HazardID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(intent.Kind)},
			{Key: "severity", Value: []byte(intent.Severity)},
			{Key: "emitted_at", Value: []byte(intent.EmittedAt.Format(time.RFC3339))},
		},
	}, nil
}
