package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andychuong/spendsense-sub000/internal/logger"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockRunner struct {
	mu   sync.Mutex
	runs []string
	err  error
}

func (m *mockRunner) Run(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.runs = append(m.runs, userID)
	return nil
}

type mockInvalidator struct {
	mu          sync.Mutex
	invalidated []string
	err         error
}

func (m *mockInvalidator) InvalidateUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.invalidated = append(m.invalidated, userID)
	return nil
}

func newTestConsumer(runner *mockRunner, invalidator CacheInvalidator) *IngestionConsumer {
	return &IngestionConsumer{
		runner:      runner,
		invalidator: invalidator,
		logger:      logger.New(),
	}
}

func eventMessage(t *testing.T, eventType, userID string) kafkago.Message {
	t.Helper()
	payload, err := json.Marshal(IngestionEvent{
		EventType: eventType,
		Source:    "ingestion-service",
		Timestamp: "2025-06-01T00:00:00Z",
		Data:      IngestionEventData{UserID: userID, AccountCount: 2, TransactionCount: 40},
	})
	require.NoError(t, err)
	return kafkago.Message{Value: payload}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestProcessMessage_DataIngestedInvalidatesThenRuns(t *testing.T) {
	runner := &mockRunner{}
	invalidator := &mockInvalidator{}
	c := newTestConsumer(runner, invalidator)

	err := c.processMessage(context.Background(), eventMessage(t, "USER_DATA_INGESTED", "user-1"))
	require.NoError(t, err)

	assert.Equal(t, []string{"user-1"}, invalidator.invalidated)
	assert.Equal(t, []string{"user-1"}, runner.runs)
}

func TestProcessMessage_DataIngestedWithoutCache(t *testing.T) {
	runner := &mockRunner{}
	c := newTestConsumer(runner, nil)

	err := c.processMessage(context.Background(), eventMessage(t, "USER_DATA_INGESTED", "user-1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"user-1"}, runner.runs)
}

func TestProcessMessage_DataIngestedMissingUserID(t *testing.T) {
	runner := &mockRunner{}
	c := newTestConsumer(runner, &mockInvalidator{})

	err := c.processMessage(context.Background(), eventMessage(t, "USER_DATA_INGESTED", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing user_id")
	assert.Empty(t, runner.runs)
}

func TestProcessMessage_ConsentChangedOnlyInvalidates(t *testing.T) {
	runner := &mockRunner{}
	invalidator := &mockInvalidator{}
	c := newTestConsumer(runner, invalidator)

	err := c.processMessage(context.Background(), eventMessage(t, "USER_CONSENT_CHANGED", "user-1"))
	require.NoError(t, err)

	assert.Equal(t, []string{"user-1"}, invalidator.invalidated)
	assert.Empty(t, runner.runs, "consent changes never trigger a pipeline run directly")
}

func TestProcessMessage_UnknownEventIgnored(t *testing.T) {
	runner := &mockRunner{}
	invalidator := &mockInvalidator{}
	c := newTestConsumer(runner, invalidator)

	err := c.processMessage(context.Background(), eventMessage(t, "SCHEMA_MIGRATED", "user-1"))
	require.NoError(t, err)
	assert.Empty(t, invalidator.invalidated)
	assert.Empty(t, runner.runs)
}

func TestProcessMessage_MalformedPayload(t *testing.T) {
	c := newTestConsumer(&mockRunner{}, nil)

	err := c.processMessage(context.Background(), kafkago.Message{Value: []byte("{not json")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal")
}

func TestProcessMessage_InvalidationFailureStopsRun(t *testing.T) {
	runner := &mockRunner{}
	invalidator := &mockInvalidator{err: errors.New("redis down")}
	c := newTestConsumer(runner, invalidator)

	err := c.processMessage(context.Background(), eventMessage(t, "USER_DATA_INGESTED", "user-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to invalidate signals")
	assert.Empty(t, runner.runs, "stale cache must not feed a re-run")
}

func TestProcessMessage_RunnerFailureSurfaces(t *testing.T) {
	runner := &mockRunner{err: errors.New("store unavailable")}
	c := newTestConsumer(runner, &mockInvalidator{})

	err := c.processMessage(context.Background(), eventMessage(t, "USER_DATA_INGESTED", "user-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to run pipeline for user user-1")
}

func TestRunnerFunc_Adapts(t *testing.T) {
	var got string
	f := RunnerFunc(func(_ context.Context, userID string) error {
		got = userID
		return nil
	})
	require.NoError(t, f.Run(context.Background(), "user-9"))
	assert.Equal(t, "user-9", got)
}
