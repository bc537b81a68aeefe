// Package ledger implements the movement posting engine: the idempotent,
// serialized write path that keeps each account balance consistent with its
// append-only movement ledger.
package ledger

import (
	"context"
	"errors"

	"banking-platform/internal/apperr"
	"banking-platform/internal/models"
	"banking-platform/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Publisher is the fire-and-forget event sink the engine notifies after a
// successful post. Implementations must never fail the command.
type Publisher interface {
	PublishMovementCreated(ctx context.Context, movement *models.Movement)
}

// PostMovementCommand carries one posting request through the pipeline.
type PostMovementCommand struct {
	AccountNumber      int64
	MovementType       string
	Amount             decimal.Decimal
	Description        string
	Reference          string
	TransactionId      string
	IdempotencyKey     string
	ReversedMovementId string
}

type Engine struct {
	accounts  store.AccountStore
	movements store.MovementStore
	publisher Publisher
}

func NewEngine(accounts store.AccountStore, movements store.MovementStore, publisher Publisher) *Engine {
	return &Engine{accounts: accounts, movements: movements, publisher: publisher}
}

// Post runs the ordered, fail-fast posting pipeline. The prechecks exist for
// clear error messages; the store remains the source of truth, so sentinel
// conflicts surfacing from the atomic insert are mapped to the same kinds even
// when a precheck raced and missed them.
func (e *Engine) Post(ctx context.Context, cmd PostMovementCommand) (*models.Movement, error) {
	if !models.ValidMovementType(cmd.MovementType) {
		return nil, apperr.Newf(apperr.KindValidation, "unknown movement type %q", cmd.MovementType)
	}
	if cmd.TransactionId == "" {
		return nil, apperr.New(apperr.KindValidation, "transaction id is required")
	}
	if cmd.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperr.Newf(apperr.KindInvalidAmount, "amount must be positive, got %s", cmd.Amount.String())
	}

	if existing, err := e.movements.GetByTransactionId(ctx, cmd.TransactionId); err == nil {
		return nil, e.duplicateTransaction(cmd.TransactionId, existing)
	} else if !errors.Is(err, store.ErrMovementNotFound) {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to check transaction id", err)
	}

	if cmd.IdempotencyKey != "" {
		if existing, err := e.movements.GetByIdempotencyKey(ctx, cmd.IdempotencyKey); err == nil {
			return nil, e.duplicateIdempotencyKey(cmd.IdempotencyKey, existing)
		} else if !errors.Is(err, store.ErrMovementNotFound) {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to check idempotency key", err)
		}
	}

	account, err := e.accounts.GetByNumber(ctx, cmd.AccountNumber)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, apperr.Newf(apperr.KindAccountNotFound, "account %d not found", cmd.AccountNumber)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load account", err)
	}
	if !account.Active {
		return nil, apperr.Newf(apperr.KindAccountNotActive, "account %d is not active", cmd.AccountNumber)
	}

	if cmd.MovementType == models.MovementTypeDebit {
		proposed := account.CurrentBalance.Sub(cmd.Amount)
		if proposed.LessThan(models.OverdraftFloor) {
			return nil, apperr.New(apperr.KindInsufficientBalance, "debit would breach the overdraft floor").
				WithDetails(map[string]any{
					"currentBalance":  account.CurrentBalance,
					"requestedAmount": cmd.Amount,
					"overdraftLimit":  models.OverdraftFloor,
				})
		}
	}

	if cmd.MovementType == models.MovementTypeReversal {
		if err := e.checkReversal(ctx, cmd); err != nil {
			return nil, err
		}
	}

	meta := models.GetRequestMeta(ctx)
	params := store.InsertMovementParams{
		AccountNumber:      cmd.AccountNumber,
		MovementType:       cmd.MovementType,
		Amount:             cmd.Amount,
		Description:        cmd.Description,
		Reference:          cmd.Reference,
		TransactionId:      cmd.TransactionId,
		IdempotencyKey:     cmd.IdempotencyKey,
		ReversedMovementId: cmd.ReversedMovementId,
	}
	if meta != nil {
		params.RequestId = meta.RequestId
		params.CorrelationId = meta.CorrelationId
	}

	movement, err := e.movements.Insert(ctx, params)
	if err != nil {
		return nil, e.mapInsertError(ctx, cmd, err)
	}

	e.publisher.PublishMovementCreated(ctx, movement)
	return movement, nil
}

// Reverse posts a REVERSAL for the given movement. The amount and account are
// taken from the original; the transaction id is server-assigned.
func (e *Engine) Reverse(ctx context.Context, movementId string) (*models.Movement, error) {
	original, err := e.movements.GetById(ctx, movementId)
	if err != nil {
		if errors.Is(err, store.ErrMovementNotFound) {
			return nil, apperr.Newf(apperr.KindMovementNotFound, "movement %s not found", movementId)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load movement", err)
	}

	return e.Post(ctx, PostMovementCommand{
		AccountNumber:      original.AccountNumber,
		MovementType:       models.MovementTypeReversal,
		Amount:             original.Amount,
		Description:        "Reversal of movement " + original.Id,
		Reference:          original.Reference,
		TransactionId:      "REV-" + uuid.New().String(),
		ReversedMovementId: original.Id,
	})
}

func (e *Engine) checkReversal(ctx context.Context, cmd PostMovementCommand) error {
	if cmd.ReversedMovementId == "" {
		return apperr.New(apperr.KindInvalidReversal, "reversal requires the original movement id")
	}
	original, err := e.movements.GetById(ctx, cmd.ReversedMovementId)
	if err != nil {
		if errors.Is(err, store.ErrMovementNotFound) {
			return apperr.Newf(apperr.KindInvalidReversal, "original movement %s not found", cmd.ReversedMovementId)
		}
		return apperr.Wrap(apperr.KindInternal, "failed to load original movement", err)
	}
	switch {
	case original.AccountNumber != cmd.AccountNumber:
		return apperr.New(apperr.KindInvalidReversal, "original movement belongs to a different account")
	case original.MovementType == models.MovementTypeReversal:
		return apperr.New(apperr.KindInvalidReversal, "a reversal cannot be reversed")
	case original.Reversed:
		return apperr.Newf(apperr.KindInvalidReversal, "movement %s is already reversed", original.Id)
	}
	return nil
}

// mapInsertError resolves races the prechecks missed: the store's unique
// constraints and trigger exceptions win over in-memory state.
func (e *Engine) mapInsertError(ctx context.Context, cmd PostMovementCommand, err error) error {
	switch {
	case errors.Is(err, store.ErrDuplicateTransaction):
		existing, getErr := e.movements.GetByTransactionId(ctx, cmd.TransactionId)
		if getErr != nil {
			existing = nil
		}
		return e.duplicateTransaction(cmd.TransactionId, existing)
	case errors.Is(err, store.ErrDuplicateIdempotencyKey):
		existing, getErr := e.movements.GetByIdempotencyKey(ctx, cmd.IdempotencyKey)
		if getErr != nil {
			existing = nil
		}
		return e.duplicateIdempotencyKey(cmd.IdempotencyKey, existing)
	case errors.Is(err, store.ErrAccountNotFound):
		return apperr.Newf(apperr.KindAccountNotFound, "account %d not found", cmd.AccountNumber)
	case errors.Is(err, store.ErrAccountNotActive):
		return apperr.Newf(apperr.KindAccountNotActive, "account %d is not active", cmd.AccountNumber)
	case errors.Is(err, store.ErrInsufficientBalance):
		details := map[string]any{
			"requestedAmount": cmd.Amount,
			"overdraftLimit":  models.OverdraftFloor,
		}
		if account, getErr := e.accounts.GetByNumber(ctx, cmd.AccountNumber); getErr == nil {
			details["currentBalance"] = account.CurrentBalance
		}
		return apperr.New(apperr.KindInsufficientBalance, "debit would breach the overdraft floor").
			WithDetails(details)
	case errors.Is(err, store.ErrAlreadyReversed):
		return apperr.Newf(apperr.KindInvalidReversal, "movement %s is already reversed", cmd.ReversedMovementId)
	case errors.Is(err, store.ErrInvalidReversal):
		return apperr.New(apperr.KindInvalidReversal, "original movement is not reversible")
	}
	zap.L().Error("Movement insert failed", zap.Error(err),
		zap.Int64("account_number", cmd.AccountNumber),
		zap.String("transaction_id", cmd.TransactionId))
	return apperr.Wrap(apperr.KindInternal, "failed to post movement", err)
}

func (e *Engine) duplicateTransaction(transactionId string, existing *models.Movement) error {
	err := apperr.Newf(apperr.KindDuplicateTransaction, "transaction %s already posted", transactionId)
	if existing != nil {
		err = err.WithDetails(map[string]any{"movementId": existing.Id})
	}
	return err
}

func (e *Engine) duplicateIdempotencyKey(key string, existing *models.Movement) error {
	err := apperr.Newf(apperr.KindDuplicateIdempotencyKey, "idempotency key %s already used", key)
	if existing != nil {
		err = err.WithDetails(map[string]any{"movementId": existing.Id})
	}
	return err
}
