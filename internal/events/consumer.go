package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"banking-platform/internal/models"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// CustomerEventHandler reacts to the peer service's lifecycle events. Every
// handler must be idempotent: the bus is at-least-once and redelivery is
// routine.
type CustomerEventHandler interface {
	HandleCustomerCreated(ctx context.Context, data models.CustomerEventData, correlationId string) error
	HandleCustomerDeleted(ctx context.Context, data models.CustomerEventData, correlationId string) error
}

// Consumer runs a named consumer group over the customer events topic and
// drives the compensating account actions.
type Consumer struct {
	group   sarama.ConsumerGroup
	handler CustomerEventHandler
	groupId string

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewConsumer(cfg models.KafkaConfig, handler CustomerEventHandler) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V2_8_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{
		sarama.NewBalanceStrategyRoundRobin(),
	}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true
	// At-least-once: offsets are committed only after a handler succeeds.
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = false

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Consumer{
		group:   group,
		handler: handler,
		groupId: cfg.ConsumerGroup,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start begins consuming. Consume is re-entered after every rebalance until
// the consumer is stopped.
func (c *Consumer) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		handler := &groupHandler{handler: c.handler}
		topics := []string{TopicCustomerEvents}
		for {
			if err := c.group.Consume(c.ctx, topics, handler); err != nil {
				zap.L().Error("Consumer session error", zap.Error(err))
			}
			if c.ctx.Err() != nil {
				return
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case err, ok := <-c.group.Errors():
				if !ok {
					return
				}
				zap.L().Error("Consumer group error", zap.Error(err))
			case <-c.ctx.Done():
				return
			}
		}
	}()

	zap.L().Info("Customer events consumer started",
		zap.String("group", c.groupId),
		zap.String("topic", TopicCustomerEvents))
}

// Stop shuts the consumer down gracefully.
func (c *Consumer) Stop() {
	c.cancel()
	c.wg.Wait()
	if err := c.group.Close(); err != nil {
		zap.L().Warn("Failed to close consumer group", zap.Error(err))
	}
}

type groupHandler struct {
	handler CustomerEventHandler
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim processes one partition sequentially, committing after each
// successfully handled message. A failing handler leaves the offset
// uncommitted so the message is redelivered.
func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.dispatch(session.Context(), message); err != nil {
				zap.L().Error("Event handling failed, leaving offset uncommitted",
					zap.String("topic", message.Topic),
					zap.Int32("partition", message.Partition),
					zap.Int64("offset", message.Offset),
					zap.Error(err))
				return err
			}
			session.MarkMessage(message, "")
			session.Commit()
		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *groupHandler) dispatch(ctx context.Context, message *sarama.ConsumerMessage) error {
	var event models.Event
	if err := json.Unmarshal(message.Value, &event); err != nil {
		// Poison messages cannot succeed on redelivery; log and skip.
		zap.L().Error("Skipping undecodable event",
			zap.Int64("offset", message.Offset),
			zap.Error(err))
		return nil
	}

	raw, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to re-encode event data: %w", err)
	}

	switch event.EventType {
	case models.EventCustomerCreated:
		var data models.CustomerEventData
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("failed to decode customer.created payload: %w", err)
		}
		return h.handler.HandleCustomerCreated(ctx, data, event.CorrelationId)
	case models.EventCustomerDeleted:
		var data models.CustomerEventData
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("failed to decode customer.deleted payload: %w", err)
		}
		return h.handler.HandleCustomerDeleted(ctx, data, event.CorrelationId)
	case models.EventCustomerUpdated:
		// Audit only; no compensating action.
		zap.L().Info("Customer updated",
			zap.String("event_id", event.EventId),
			zap.String("correlation_id", event.CorrelationId))
		return nil
	default:
		zap.L().Warn("Unknown event type, skipping",
			zap.String("event_type", event.EventType),
			zap.String("event_id", event.EventId))
		return nil
	}
}
