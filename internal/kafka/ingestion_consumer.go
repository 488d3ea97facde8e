package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// DecisionRunner triggers a decision run for one user.
type DecisionRunner interface {
	Run(ctx context.Context, userID string) error
}

// RunnerFunc adapts a function to the DecisionRunner interface.
type RunnerFunc func(ctx context.Context, userID string) error

func (f RunnerFunc) Run(ctx context.Context, userID string) error {
	return f(ctx, userID)
}

// CacheInvalidator drops a user's cached signal reports.
type CacheInvalidator interface {
	InvalidateUser(ctx context.Context, userID string) error
}

// IngestionEvent represents an upstream data ingestion event
type IngestionEvent struct {
	EventType string             `json:"event_type"`
	Source    string             `json:"source"`
	Timestamp string             `json:"timestamp"`
	Data      IngestionEventData `json:"data"`
}

// IngestionEventData holds the data for different ingestion event types
type IngestionEventData struct {
	UserID           string `json:"user_id"`
	AccountCount     int    `json:"account_count,omitempty"`
	TransactionCount int    `json:"transaction_count,omitempty"`
}

// IngestionConsumer reacts to new user data: it drops the user's cached
// signals and re-runs the decision pipeline.
type IngestionConsumer struct {
	reader      *kafka.Reader
	runner      DecisionRunner
	invalidator CacheInvalidator
	logger      zerolog.Logger
}

// NewIngestionConsumer creates a Kafka consumer for ingestion events.
// invalidator may be nil when no cache is configured.
func NewIngestionConsumer(brokers []string, topic, groupID string, runner DecisionRunner, invalidator CacheInvalidator, logger zerolog.Logger) *IngestionConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID + "-ingestion",
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &IngestionConsumer{
		reader:      reader,
		runner:      runner,
		invalidator: invalidator,
		logger:      logger,
	}
}

// Start begins consuming messages from Kafka
func (c *IngestionConsumer) Start(ctx context.Context) error {
	c.logger.Info().Str("topic", c.reader.Config().Topic).Msg("starting ingestion consumer")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("ingestion consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // context cancelled, normal shutdown
				}
				c.logger.Error().Err(err).Msg("error reading ingestion message")
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.logger.Error().Err(err).Msg("error processing ingestion message")
				// continue processing other messages
			}
		}
	}
}

// Close closes the underlying reader
func (c *IngestionConsumer) Close() error {
	return c.reader.Close()
}

// processMessage handles a single Kafka message
func (c *IngestionConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event IngestionEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal ingestion event: %w", err)
	}

	c.logger.Debug().
		Int("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Str("event_type", event.EventType).
		Msg("received ingestion event")

	switch event.EventType {
	case "USER_DATA_INGESTED":
		return c.handleDataIngested(ctx, event)

	case "USER_CONSENT_CHANGED":
		// stale signals must not outlive a consent change
		return c.invalidate(ctx, event.Data.UserID)

	default:
		c.logger.Debug().Str("event_type", event.EventType).Msg("ignoring unknown ingestion event type")
		return nil
	}
}

func (c *IngestionConsumer) handleDataIngested(ctx context.Context, event IngestionEvent) error {
	userID := event.Data.UserID
	if userID == "" {
		return fmt.Errorf("ingestion event missing user_id")
	}

	if err := c.invalidate(ctx, userID); err != nil {
		return err
	}

	if err := c.runner.Run(ctx, userID); err != nil {
		return fmt.Errorf("failed to run pipeline for user %s: %w", userID, err)
	}
	c.logger.Info().Str("user_id", userID).Msg("pipeline re-run after ingestion")
	return nil
}

func (c *IngestionConsumer) invalidate(ctx context.Context, userID string) error {
	if c.invalidator == nil || userID == "" {
		return nil
	}
	if err := c.invalidator.InvalidateUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to invalidate signals for user %s: %w", userID, err)
	}
	return nil
}
