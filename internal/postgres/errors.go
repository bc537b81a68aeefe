package postgres

import (
	"errors"
	"strings"

	"banking-platform/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres error codes we classify.
const (
	codeUniqueViolation = "23505"
	codeRaiseException  = "P0001"
)

// mapMovementError converts errors raised while posting a movement into the
// shared sentinels. The trigger raises stable messages; unique-constraint
// races are attributed by constraint name. The store is the source of truth,
// so these mappings hold even when the application precheck raced and missed.
func mapMovementError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case codeUniqueViolation:
		switch pgErr.ConstraintName {
		case "uq_movement_transaction_id":
			return store.ErrDuplicateTransaction
		case "uq_movement_idempotency_key":
			return store.ErrDuplicateIdempotencyKey
		}
	case codeRaiseException:
		switch {
		case strings.Contains(pgErr.Message, "ACCOUNT_NOT_FOUND"):
			return store.ErrAccountNotFound
		case strings.Contains(pgErr.Message, "ACCOUNT_NOT_ACTIVE"):
			return store.ErrAccountNotActive
		case strings.Contains(pgErr.Message, "INSUFFICIENT_BALANCE"):
			return store.ErrInsufficientBalance
		case strings.Contains(pgErr.Message, "ALREADY_REVERSED"):
			return store.ErrAlreadyReversed
		case strings.Contains(pgErr.Message, "INVALID_REVERSAL"):
			return store.ErrInvalidReversal
		}
	}
	return err
}

// mapAccountError converts errors raised while writing an account row into
// the shared sentinels: the partial unique index guards the one-active-
// account-per-type rule and the quota trigger guards the five-active-accounts
// ceiling, on creation and reactivation alike.
func mapAccountError(err error) error {
	if isUniqueViolation(err, "uq_account_customer_type_active") {
		return store.ErrAccountTypeTaken
	}
	if isRaise(err, "ACCOUNT_QUOTA_EXCEEDED") {
		return store.ErrAccountQuotaExceeded
	}
	return err
}

// isUniqueViolation reports whether err is a unique violation on the named
// constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeUniqueViolation && pgErr.ConstraintName == constraint
	}
	return false
}

// isRaise reports whether err is a trigger exception carrying the given
// stable message.
func isRaise(err error, message string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeRaiseException && strings.Contains(pgErr.Message, message)
	}
	return false
}

// noRows normalizes pgx.ErrNoRows into the given sentinel.
func noRows(err, sentinel error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return err
}
