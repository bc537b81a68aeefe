package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Movement types.
const (
	MovementTypeCredit   = "CREDIT"
	MovementTypeDebit    = "DEBIT"
	MovementTypeReversal = "REVERSAL"
)

// OverdraftFloor is the most negative balance any account may reach.
var OverdraftFloor = decimal.NewFromInt(-10000)

// ValidMovementType reports whether t is a known movement type.
func ValidMovementType(t string) bool {
	switch t {
	case MovementTypeCredit, MovementTypeDebit, MovementTypeReversal:
		return true
	}
	return false
}

// Movement is a single append-only ledger entry. Amount is always positive;
// the sign of its effect on the balance comes from the type (and, for a
// REVERSAL, from the inverse of the original's type). The only mutation ever
// applied to a stored movement is the Reversed flag flipping to true when a
// REVERSAL referencing it is inserted.
type Movement struct {
	Id                 string          `db:"id" json:"id"`
	AccountNumber      int64           `db:"account_number" json:"accountNumber"`
	MovementType       string          `db:"movement_type" json:"movementType"`
	Amount             decimal.Decimal `db:"amount" json:"amount"`
	BalanceBefore      decimal.Decimal `db:"balance_before" json:"balanceBefore"`
	BalanceAfter       decimal.Decimal `db:"balance_after" json:"balanceAfter"`
	Description        string          `db:"description" json:"description,omitempty"`
	Reference          string          `db:"reference" json:"reference,omitempty"`
	TransactionId      string          `db:"transaction_id" json:"transactionId"`
	ReversedMovementId string          `db:"reversed_movement_id" json:"reversedMovementId,omitempty"`
	Reversed           bool            `db:"reversed" json:"reversed"`
	IdempotencyKey     string          `db:"idempotency_key" json:"idempotencyKey,omitempty"`
	RequestId          string          `db:"request_id" json:"-"`
	CorrelationId      string          `db:"correlation_id" json:"-"`
	CreatedAt          time.Time       `db:"created_at" json:"createdAt"`
}

// SignedEffect returns the delta this movement applied to its account balance.
// For a REVERSAL the effect was computed from the original at posting time and
// is recoverable from the before/after pair, so derive it from those.
func (m Movement) SignedEffect() decimal.Decimal {
	return m.BalanceAfter.Sub(m.BalanceBefore)
}
