// Package events implements the Kafka event fabric: an idempotent producer
// behind a bounded asynchronous publisher, and the consumer group that drives
// the cross-service compensating actions.
package events

// Topic ownership: the customer topic belongs to the Customer service, the
// account and movement topics to the Account service.
const (
	TopicCustomerEvents = "banking.customer.events"
	TopicAccountEvents  = "banking.account.events"
	TopicMovementEvents = "banking.movement.events"
)

// SchemaVersion is stamped on every published record header.
const SchemaVersion = "1"
