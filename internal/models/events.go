package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types use the domain.verb form; they are the eventType discriminator
// in every published payload.
const (
	EventCustomerCreated = "customer.created"
	EventCustomerUpdated = "customer.updated"
	EventCustomerDeleted = "customer.deleted"
	EventAccountCreated  = "account.created"
	EventAccountUpdated  = "account.updated"
	EventAccountDeleted  = "account.deleted"
	EventMovementCreated = "movement.created"
)

// Event is the JSON envelope published on every topic. Data holds the
// entity-specific payload (CustomerEventData, AccountEventData or
// MovementEventData).
type Event struct {
	EventId       string    `json:"eventId"`
	EventType     string    `json:"eventType"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationId string    `json:"correlationId"`
	Data          any       `json:"data"`
}

// CustomerEventData is the payload of customer.* events.
type CustomerEventData struct {
	CustomerId     string `json:"customerId"`
	Identification string `json:"identification"`
	Name           string `json:"name"`
	Active         bool   `json:"active"`
}

// AccountEventData is the payload of account.* events. AccountType is always
// populated from the persisted row.
type AccountEventData struct {
	AccountNumber  int64           `json:"accountNumber"`
	CustomerId     string          `json:"customerId"`
	AccountType    string          `json:"accountType"`
	CurrentBalance decimal.Decimal `json:"currentBalance"`
	Active         bool            `json:"active"`
}

// MovementEventData is the payload of movement.created events.
type MovementEventData struct {
	MovementId    string          `json:"movementId"`
	AccountNumber int64           `json:"accountNumber"`
	MovementType  string          `json:"movementType"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter"`
	TransactionId string          `json:"transactionId"`
}
