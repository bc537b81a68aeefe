package events

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"banking-platform/internal/models"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type outbound struct {
	topic    string
	key      string
	entityId string
	event    *models.Event
}

// Publisher is the fire-and-forget publishing side of the event fabric.
// Callers hand events to a bounded in-process queue and return immediately; a
// dedicated worker drains the queue and sends with retry. When the queue is
// full the oldest event is dropped and counted — commands are never blocked
// or failed by publishing.
type Publisher struct {
	producer sarama.SyncProducer
	queue    chan outbound
	source   string
	retries  int
	backoff  time.Duration

	dropped atomic.Uint64
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewPublisher(producer sarama.SyncProducer, source string, cfg models.KafkaConfig) *Publisher {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Publisher{
		producer: producer,
		queue:    make(chan outbound, cfg.QueueSize),
		source:   source,
		retries:  cfg.PublishRetry,
		backoff:  cfg.RetryBackoff,
		ctx:      ctx,
		cancel:   cancel,
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Close drains the queue and stops the worker.
func (p *Publisher) Close() {
	p.cancel()
	p.wg.Wait()
	if err := p.producer.Close(); err != nil {
		zap.L().Warn("Failed to close Kafka producer", zap.Error(err))
	}
}

// Dropped returns the number of events discarded because the queue was full.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}

func (p *Publisher) enqueue(ctx context.Context, topic, key, entityId, eventType string, data any) {
	event := &models.Event{
		EventId:       uuid.New().String(),
		EventType:     eventType,
		Timestamp:     time.Now().UTC(),
		CorrelationId: models.CorrelationIdFrom(ctx),
		Data:          data,
	}

	msg := outbound{topic: topic, key: key, entityId: entityId, event: event}
	for {
		select {
		case p.queue <- msg:
			return
		default:
		}
		// Queue full: drop the oldest so fresh events keep flowing.
		select {
		case stale := <-p.queue:
			p.dropped.Add(1)
			zap.L().Warn("Event queue full, dropped oldest event",
				zap.String("event_id", stale.event.EventId),
				zap.String("event_type", stale.event.EventType),
				zap.Uint64("dropped_total", p.dropped.Load()))
		default:
		}
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for {
		select {
		case msg := <-p.queue:
			p.send(msg)
		case <-p.ctx.Done():
			// Drain what is already queued before exiting.
			for {
				select {
				case msg := <-p.queue:
					p.send(msg)
				default:
					return
				}
			}
		}
	}
}

// send attempts delivery with bounded retry. Failures are logged, never
// propagated: publishing must not affect the command that triggered it.
func (p *Publisher) send(msg outbound) {
	record, err := BuildMessage(msg.topic, msg.key, msg.entityId, p.source, msg.event)
	if err != nil {
		zap.L().Error("Failed to build event message", zap.Error(err))
		return
	}

	var lastErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		if attempt > 0 {
			time.Sleep(p.backoff)
		}
		partition, offset, err := p.producer.SendMessage(record)
		if err == nil {
			zap.L().Debug("Event published",
				zap.String("topic", msg.topic),
				zap.String("event_type", msg.event.EventType),
				zap.String("key", msg.key),
				zap.Int32("partition", partition),
				zap.Int64("offset", offset))
			return
		}
		lastErr = err
	}

	zap.L().Error("Event publish failed after retries",
		zap.String("topic", msg.topic),
		zap.String("event_type", msg.event.EventType),
		zap.String("event_id", msg.event.EventId),
		zap.Int("attempts", p.retries+1),
		zap.Error(lastErr))
}

// --- Customer service events ---

func (p *Publisher) PublishCustomerCreated(ctx context.Context, customer *models.Customer) {
	p.publishCustomer(ctx, models.EventCustomerCreated, customer)
}

func (p *Publisher) PublishCustomerUpdated(ctx context.Context, customer *models.Customer) {
	p.publishCustomer(ctx, models.EventCustomerUpdated, customer)
}

func (p *Publisher) PublishCustomerDeleted(ctx context.Context, customer *models.Customer) {
	p.publishCustomer(ctx, models.EventCustomerDeleted, customer)
}

func (p *Publisher) publishCustomer(ctx context.Context, eventType string, customer *models.Customer) {
	data := models.CustomerEventData{
		CustomerId:     customer.Id,
		Identification: customer.Identification,
		Name:           customer.Name,
		Active:         customer.Active,
	}
	// Customer events are keyed by identification so created/deleted for the
	// same person stay ordered per partition.
	p.enqueue(ctx, TopicCustomerEvents, customer.Identification, customer.Id, eventType, data)
}

// --- Account service events ---

func (p *Publisher) PublishAccountCreated(ctx context.Context, account *models.Account) {
	p.publishAccount(ctx, models.EventAccountCreated, account)
}

func (p *Publisher) PublishAccountUpdated(ctx context.Context, account *models.Account) {
	p.publishAccount(ctx, models.EventAccountUpdated, account)
}

func (p *Publisher) PublishAccountDeleted(ctx context.Context, account *models.Account) {
	p.publishAccount(ctx, models.EventAccountDeleted, account)
}

func (p *Publisher) publishAccount(ctx context.Context, eventType string, account *models.Account) {
	key := strconv.FormatInt(account.AccountNumber, 10)
	data := models.AccountEventData{
		AccountNumber:  account.AccountNumber,
		CustomerId:     account.CustomerId,
		AccountType:    account.AccountType,
		CurrentBalance: account.CurrentBalance,
		Active:         account.Active,
	}
	p.enqueue(ctx, TopicAccountEvents, key, key, eventType, data)
}

func (p *Publisher) PublishMovementCreated(ctx context.Context, movement *models.Movement) {
	key := strconv.FormatInt(movement.AccountNumber, 10)
	data := models.MovementEventData{
		MovementId:    movement.Id,
		AccountNumber: movement.AccountNumber,
		MovementType:  movement.MovementType,
		Amount:        movement.Amount,
		BalanceAfter:  movement.BalanceAfter,
		TransactionId: movement.TransactionId,
	}
	// Keyed by account number: one account's movements stay ordered.
	p.enqueue(ctx, TopicMovementEvents, key, movement.Id, models.EventMovementCreated, data)
}
