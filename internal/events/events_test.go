package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"banking-platform/internal/models"

	"github.com/IBM/sarama"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSyncProducer records sent messages and can be paused to back up the
// publisher queue. The embedded interface covers methods the tests never hit.
type fakeSyncProducer struct {
	sarama.SyncProducer

	mu      sync.Mutex
	sent    []*sarama.ProducerMessage
	gate    chan struct{}
	failAll bool
}

func newFakeProducer() *fakeSyncProducer {
	return &fakeSyncProducer{}
}

func (f *fakeSyncProducer) SendMessage(msg *sarama.ProducerMessage) (int32, int64, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return 0, 0, errors.New("broker unavailable")
	}
	f.sent = append(f.sent, msg)
	return 0, int64(len(f.sent)), nil
}

func (f *fakeSyncProducer) Close() error { return nil }

func (f *fakeSyncProducer) messages() []*sarama.ProducerMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*sarama.ProducerMessage(nil), f.sent...)
}

func kafkaConfig(queueSize int) models.KafkaConfig {
	return models.KafkaConfig{
		Brokers:       []string{"localhost:9092"},
		ConsumerGroup: "account-service-group",
		QueueSize:     queueSize,
		PublishRetry:  1,
		RetryBackoff:  time.Millisecond,
	}
}

func TestBuildMessage_CarriesMandatoryHeaders(t *testing.T) {
	event := &models.Event{
		EventId:       "evt-1",
		EventType:     models.EventCustomerCreated,
		Timestamp:     time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC),
		CorrelationId: "corr-1",
		Data:          models.CustomerEventData{CustomerId: "cust-1"},
	}

	msg, err := BuildMessage(TopicCustomerEvents, "NL-001", "cust-1", "customer-service", event)
	require.NoError(t, err)

	assert.Equal(t, TopicCustomerEvents, msg.Topic)
	key, err := msg.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "NL-001", string(key))

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[string(h.Key)] = string(h.Value)
	}
	assert.Len(t, headers, 8)
	assert.Equal(t, "evt-1", headers["event-id"])
	assert.Equal(t, models.EventCustomerCreated, headers["event-type"])
	assert.Equal(t, "customer-service", headers["source"])
	assert.Equal(t, "corr-1", headers["x-correlation-id"])
	assert.Equal(t, "application/json", headers["content-type"])
	assert.Equal(t, SchemaVersion, headers["schema-version"])
	assert.Equal(t, "cust-1", headers["entity-id"])
	assert.NotEmpty(t, headers["event-timestamp"])

	var decoded models.Event
	value, err := msg.Value.Encode()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(value, &decoded))
	assert.Equal(t, "evt-1", decoded.EventId)
}

func TestPublisher_DeliversKeyedEvents(t *testing.T) {
	producer := newFakeProducer()
	publisher := NewPublisher(producer, "customer-service", kafkaConfig(16))

	ctx := models.WithRequestMeta(context.Background(), &models.RequestMeta{CorrelationId: "corr-7"})
	publisher.PublishCustomerCreated(ctx, &models.Customer{
		Id:     "cust-1",
		Active: true,
		Person: models.Person{Name: "Jan Vermeer", Identification: "NL-001"},
	})
	publisher.PublishCustomerDeleted(ctx, &models.Customer{
		Id:     "cust-1",
		Person: models.Person{Identification: "NL-001"},
	})
	publisher.Close()

	sent := producer.messages()
	require.Len(t, sent, 2)
	for _, msg := range sent {
		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, "NL-001", string(key), "same identification must share a partition key")
		assert.Equal(t, TopicCustomerEvents, msg.Topic)
	}

	var first models.Event
	value, err := sent[0].Value.Encode()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(value, &first))
	assert.Equal(t, models.EventCustomerCreated, first.EventType)
	assert.Equal(t, "corr-7", first.CorrelationId)
	assert.NotEmpty(t, first.EventId)
}

func TestPublisher_MovementEventKeyedByAccount(t *testing.T) {
	producer := newFakeProducer()
	publisher := NewPublisher(producer, "account-service", kafkaConfig(16))

	publisher.PublishMovementCreated(context.Background(), &models.Movement{
		Id:            "mov-1",
		AccountNumber: 100001,
		MovementType:  models.MovementTypeCredit,
		Amount:        decimal.NewFromInt(50),
		BalanceAfter:  decimal.NewFromInt(550),
		TransactionId: "tx-1",
	})
	publisher.Close()

	sent := producer.messages()
	require.Len(t, sent, 1)
	key, err := sent[0].Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "100001", string(key))
	assert.Equal(t, TopicMovementEvents, sent[0].Topic)
}

func TestPublisher_FullQueueDropsOldest(t *testing.T) {
	producer := newFakeProducer()
	producer.gate = make(chan struct{})
	publisher := NewPublisher(producer, "account-service", kafkaConfig(1))
	ctx := context.Background()

	account := func(number int64) *models.Account {
		return &models.Account{AccountNumber: number, CustomerId: "cust-1", AccountType: models.AccountTypeSavings}
	}

	// The worker is parked on the gated producer holding the first event, so
	// the queue (capacity 1) holds the second; the third evicts it.
	publisher.PublishAccountCreated(ctx, account(1))
	waitFor(t, func() bool { return len(publisher.queue) == 0 })
	publisher.PublishAccountCreated(ctx, account(2))
	publisher.PublishAccountCreated(ctx, account(3))

	assert.EqualValues(t, 1, publisher.Dropped())

	close(producer.gate)
	publisher.Close()

	sent := producer.messages()
	require.Len(t, sent, 2)
	keys := make([]string, 0, 2)
	for _, msg := range sent {
		key, err := msg.Key.Encode()
		require.NoError(t, err)
		keys = append(keys, string(key))
	}
	assert.Equal(t, []string{"1", "3"}, keys, "the oldest queued event is the one dropped")
}

func TestPublisher_SendFailureDoesNotPropagate(t *testing.T) {
	producer := newFakeProducer()
	producer.failAll = true
	publisher := NewPublisher(producer, "account-service", kafkaConfig(4))

	// Must not panic or block the caller.
	publisher.PublishAccountCreated(context.Background(), &models.Account{AccountNumber: 1})
	publisher.Close()
	assert.Empty(t, producer.messages())
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}

// --- consumer dispatch ---

type recordingHandler struct {
	created []models.CustomerEventData
	deleted []models.CustomerEventData
	fail    error
}

func (h *recordingHandler) HandleCustomerCreated(_ context.Context, data models.CustomerEventData, _ string) error {
	if h.fail != nil {
		return h.fail
	}
	h.created = append(h.created, data)
	return nil
}

func (h *recordingHandler) HandleCustomerDeleted(_ context.Context, data models.CustomerEventData, _ string) error {
	if h.fail != nil {
		return h.fail
	}
	h.deleted = append(h.deleted, data)
	return nil
}

func consumerMessage(t *testing.T, eventType string, data any) *sarama.ConsumerMessage {
	t.Helper()
	payload, err := json.Marshal(models.Event{
		EventId:       "evt-1",
		EventType:     eventType,
		Timestamp:     time.Now().UTC(),
		CorrelationId: "corr-1",
		Data:          data,
	})
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Topic: TopicCustomerEvents, Value: payload}
}

func TestDispatch_RoutesLifecycleEvents(t *testing.T) {
	handler := &recordingHandler{}
	gh := &groupHandler{handler: handler}
	ctx := context.Background()

	data := models.CustomerEventData{CustomerId: "cust-1", Identification: "NL-001", Name: "Jan Vermeer", Active: true}
	require.NoError(t, gh.dispatch(ctx, consumerMessage(t, models.EventCustomerCreated, data)))
	require.NoError(t, gh.dispatch(ctx, consumerMessage(t, models.EventCustomerDeleted, data)))

	require.Len(t, handler.created, 1)
	assert.Equal(t, "cust-1", handler.created[0].CustomerId)
	assert.Equal(t, "Jan Vermeer", handler.created[0].Name)
	require.Len(t, handler.deleted, 1)
}

func TestDispatch_UpdatedIsAuditOnly(t *testing.T) {
	handler := &recordingHandler{fail: errors.New("must not be called")}
	gh := &groupHandler{handler: handler}

	err := gh.dispatch(context.Background(),
		consumerMessage(t, models.EventCustomerUpdated, models.CustomerEventData{CustomerId: "cust-1"}))
	assert.NoError(t, err)
}

func TestDispatch_UnknownTypeSkipped(t *testing.T) {
	gh := &groupHandler{handler: &recordingHandler{}}

	err := gh.dispatch(context.Background(),
		consumerMessage(t, "customer.archived", models.CustomerEventData{CustomerId: "cust-1"}))
	assert.NoError(t, err, "unknown event types are skipped, not retried")
}

func TestDispatch_PoisonMessageSkipped(t *testing.T) {
	gh := &groupHandler{handler: &recordingHandler{}}

	err := gh.dispatch(context.Background(), &sarama.ConsumerMessage{
		Topic: TopicCustomerEvents,
		Value: []byte("{not json"),
	})
	assert.NoError(t, err, "poison messages cannot succeed on redelivery")
}

func TestDispatch_HandlerFailurePropagates(t *testing.T) {
	handler := &recordingHandler{fail: errors.New("store down")}
	gh := &groupHandler{handler: handler}

	err := gh.dispatch(context.Background(),
		consumerMessage(t, models.EventCustomerCreated, models.CustomerEventData{CustomerId: "cust-1"}))
	assert.Error(t, err, "a failing handler must leave the offset uncommitted")
}
