package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account types supported by the platform.
const (
	AccountTypeSavings  = "SAVINGS"
	AccountTypeChecking = "CHECKING"
)

// ValidAccountType reports whether t is a known account type.
func ValidAccountType(t string) bool {
	return t == AccountTypeSavings || t == AccountTypeChecking
}

// Account is the balance container owned by the Account service. CustomerId is
// a weak reference into the Customer service's store; CustomerName is a
// denormalized display cache refreshed by customer events. CurrentBalance and
// Version are mutated exclusively by the movement posting engine.
type Account struct {
	AccountNumber  int64           `db:"account_number" json:"accountNumber"`
	CustomerId     string          `db:"customer_id" json:"customerId"`
	CustomerName   string          `db:"customer_name" json:"customerName"`
	AccountType    string          `db:"account_type" json:"accountType"`
	InitialBalance decimal.Decimal `db:"initial_balance" json:"initialBalance"`
	CurrentBalance decimal.Decimal `db:"current_balance" json:"currentBalance"`
	Active         bool            `db:"active" json:"active"`
	Version        int64           `db:"version" json:"version"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updatedAt"`
}
