package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/andychuong/spendsense-sub000/internal/models"
)

// ReviewEvent notifies the review queue that a recommendation awaits a
// decision.
type ReviewEvent struct {
	EventType string          `json:"event_type"`
	Source    string          `json:"source"`
	Timestamp string          `json:"timestamp"`
	Data      ReviewEventData `json:"data"`
}

// ReviewEventData identifies the recommendation to review
type ReviewEventData struct {
	RecommendationID string `json:"recommendation_id"`
	UserID           string `json:"user_id"`
	Type             string `json:"type"`
	CatalogID        string `json:"catalog_id"`
	TraceID          string `json:"trace_id"`
}

// Producer publishes review events
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a Kafka producer for the review topic
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// RecommendationCreated publishes a RECOMMENDATION_CREATED event for a
// newly persisted pending recommendation.
func (p *Producer) RecommendationCreated(ctx context.Context, rec models.Recommendation) error {
	event := ReviewEvent{
		EventType: "RECOMMENDATION_CREATED",
		Source:    "spendsense-core",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data: ReviewEventData{
			RecommendationID: rec.ID,
			UserID:           rec.UserID,
			Type:             string(rec.Type),
			CatalogID:        rec.CatalogID,
			TraceID:          rec.TraceID,
		},
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal review event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(rec.UserID),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to publish review event for %s: %w", rec.ID, err)
	}
	return nil
}

// Close closes the underlying writer
func (p *Producer) Close() error {
	return p.writer.Close()
}
