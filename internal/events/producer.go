package events

import (
	"encoding/json"
	"fmt"
	"time"

	"banking-platform/internal/models"

	"github.com/IBM/sarama"
)

// NewSyncProducer builds a producer with the delivery guarantees the fabric
// requires: acks from all in-sync replicas, idempotence, bounded retries,
// compression, and hash partitioning so records sharing a key share a
// partition.
func NewSyncProducer(cfg models.KafkaConfig) (sarama.SyncProducer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V2_8_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Producer.Retry.Max = cfg.PublishRetry
	saramaConfig.Producer.Retry.Backoff = cfg.RetryBackoff
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create Kafka producer: %w", err)
	}
	return producer, nil
}

// BuildMessage serializes an event envelope into a producer message with the
// mandatory headers.
func BuildMessage(topic, key, entityId, source string, event *models.Event) (*sarama.ProducerMessage, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("unable to marshal event %s: %w", event.EventId, err)
	}

	return &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-id"), Value: []byte(event.EventId)},
			{Key: []byte("event-type"), Value: []byte(event.EventType)},
			{Key: []byte("event-timestamp"), Value: []byte(event.Timestamp.Format(time.RFC3339Nano))},
			{Key: []byte("source"), Value: []byte(source)},
			{Key: []byte("x-correlation-id"), Value: []byte(event.CorrelationId)},
			{Key: []byte("content-type"), Value: []byte("application/json")},
			{Key: []byte("schema-version"), Value: []byte(SchemaVersion)},
			{Key: []byte("entity-id"), Value: []byte(entityId)},
		},
	}, nil
}
