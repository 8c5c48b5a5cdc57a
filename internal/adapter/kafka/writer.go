package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/grocery-deals-api/internal/config"
	"github.com/couchcryptid/grocery-deals-api/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// EventPromotionCreated is the event_type header of new-promotion events.
const EventPromotionCreated = "promotion.created"

// Writer produces promotion events to a Kafka topic.
// It implements domain.PromotionPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured promotions topic.
// Messages are keyed by store so one store's promotions stay ordered on a
// single partition.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaPromotionsTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishPromotion writes one promotion.created event.
func (w *Writer) PublishPromotion(ctx context.Context, p domain.Promotion) error {
	msg, err := serializeToMessage(p)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish promotion %d: %w", p.ID, err)
	}
	w.logger.Debug("promotion event published", "promotion_id", p.ID, "store_id", p.StoreID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Promotion into a Kafka message.
func serializeToMessage(p domain.Promotion) (kafkago.Message, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize promotion: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.FormatInt(p.StoreID, 10)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(EventPromotionCreated)},
			{Key: "promotion_id", Value: []byte(strconv.FormatInt(p.ID, 10))},
			{Key: "last_updated", Value: []byte(p.LastUpdated.UTC().Format(time.RFC3339))},
		},
	}, nil
}
