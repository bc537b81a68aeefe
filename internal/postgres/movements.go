package postgres

import (
	"context"
	"fmt"
	"time"

	"banking-platform/internal/models"
	"banking-platform/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time check: *MovementStore must satisfy store.MovementStore.
var _ store.MovementStore = (*MovementStore)(nil)

// MovementStore persists the append-only ledger. All mutation goes through
// Insert; the movement_apply trigger performs the balance update so a single
// INSERT statement is the whole atomic unit.
type MovementStore struct {
	pool *pgxpool.Pool
}

func NewMovementStore(pool *pgxpool.Pool) *MovementStore {
	return &MovementStore{pool: pool}
}

const movementColumns = `
	id, account_number, movement_type, amount::text, balance_before::text,
	balance_after::text, description, reference, transaction_id,
	COALESCE(reversed_movement_id::text, ''), reversed,
	COALESCE(idempotency_key, ''), request_id, correlation_id, created_at`

const queryInsertMovement = `
	INSERT INTO movement (
		id, account_number, movement_type, amount, description, reference,
		transaction_id, reversed_movement_id, idempotency_key, request_id, correlation_id
	) VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, '')::uuid, NULLIF($9, ''), $10, $11)
	RETURNING` + movementColumns

func (s *MovementStore) Insert(ctx context.Context, params store.InsertMovementParams) (*models.Movement, error) {
	id := uuid.New().String()

	row := s.pool.QueryRow(ctx, queryInsertMovement,
		id, params.AccountNumber, params.MovementType, params.Amount.String(),
		params.Description, params.Reference, params.TransactionId,
		params.ReversedMovementId, params.IdempotencyKey,
		params.RequestId, params.CorrelationId)

	movement, err := scanMovement(row)
	if err != nil {
		return nil, mapMovementError(err)
	}

	zap.L().Info("Movement posted",
		zap.String("movement_id", movement.Id),
		zap.Int64("account_number", movement.AccountNumber),
		zap.String("type", movement.MovementType),
		zap.String("amount", movement.Amount.String()),
		zap.String("balance_after", movement.BalanceAfter.String()))
	return movement, nil
}

func (s *MovementStore) GetById(ctx context.Context, id string) (*models.Movement, error) {
	row := s.pool.QueryRow(ctx, `SELECT`+movementColumns+` FROM movement WHERE id = $1`, id)
	movement, err := scanMovement(row)
	if err != nil {
		return nil, noRows(err, store.ErrMovementNotFound)
	}
	return movement, nil
}

func (s *MovementStore) GetByTransactionId(ctx context.Context, transactionId string) (*models.Movement, error) {
	row := s.pool.QueryRow(ctx, `SELECT`+movementColumns+` FROM movement WHERE transaction_id = $1`, transactionId)
	movement, err := scanMovement(row)
	if err != nil {
		return nil, noRows(err, store.ErrMovementNotFound)
	}
	return movement, nil
}

func (s *MovementStore) GetByIdempotencyKey(ctx context.Context, key string) (*models.Movement, error) {
	row := s.pool.QueryRow(ctx, `SELECT`+movementColumns+` FROM movement WHERE idempotency_key = $1`, key)
	movement, err := scanMovement(row)
	if err != nil {
		return nil, noRows(err, store.ErrMovementNotFound)
	}
	return movement, nil
}

func (s *MovementStore) List(ctx context.Context, filter store.MovementFilter) (*models.Page[models.Movement], error) {
	where := `WHERE account_number = $1`
	args := []any{filter.AccountNumber}

	if filter.MovementType != "" {
		args = append(args, filter.MovementType)
		where += fmt.Sprintf(" AND movement_type = $%d", len(args))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		where += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		where += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM movement `+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count movements: %w", err)
	}

	args = append(args, filter.Size, filter.Page*filter.Size)
	query := `SELECT` + movementColumns + ` FROM movement ` + where +
		fmt.Sprintf(` ORDER BY created_at LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	defer rows.Close()

	items, err := scanMovements(rows)
	if err != nil {
		return nil, err
	}
	return &models.Page[models.Movement]{Items: items, Page: filter.Page, Size: filter.Size, TotalItems: total}, nil
}

func (s *MovementStore) ListForPeriod(ctx context.Context, accountNumber int64, start, end time.Time) ([]models.Movement, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT`+movementColumns+` FROM movement
		 WHERE account_number = $1 AND created_at >= $2 AND created_at <= $3
		 ORDER BY created_at`,
		accountNumber, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query movements for period: %w", err)
	}
	defer rows.Close()
	return scanMovements(rows)
}

const querySummary = `
	SELECT count(*),
		COALESCE(sum(amount) FILTER (WHERE movement_type = 'CREDIT'), 0)::text,
		COALESCE(sum(amount) FILTER (WHERE movement_type = 'DEBIT'), 0)::text,
		COALESCE(sum(amount) FILTER (WHERE movement_type = 'REVERSAL'), 0)::text,
		COALESCE(avg(amount), 0)::text,
		COALESCE(min(amount), 0)::text,
		COALESCE(max(amount), 0)::text
	FROM movement m`

func (s *MovementStore) Summary(ctx context.Context, filter store.MovementFilter) (*models.MovementsSummary, error) {
	where := ``
	args := []any{}

	if filter.AccountNumber != 0 {
		args = append(args, filter.AccountNumber)
		where = fmt.Sprintf(" WHERE m.account_number = $%d", len(args))
	} else {
		args = append(args, filter.CustomerId)
		where = fmt.Sprintf(" WHERE m.account_number IN (SELECT account_number FROM account WHERE customer_id = $%d)", len(args))
	}
	if filter.MovementType != "" {
		args = append(args, filter.MovementType)
		where += fmt.Sprintf(" AND m.movement_type = $%d", len(args))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		where += fmt.Sprintf(" AND m.created_at >= $%d", len(args))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		where += fmt.Sprintf(" AND m.created_at <= $%d", len(args))
	}

	var summary models.MovementsSummary
	var credits, debits, reversals, avg, min, max string
	err := s.pool.QueryRow(ctx, querySummary+where, args...).
		Scan(&summary.Count, &credits, &debits, &reversals, &avg, &min, &max)
	if err != nil {
		return nil, fmt.Errorf("failed to compute movements summary: %w", err)
	}

	for dst, src := range map[*decimal.Decimal]string{
		&summary.TotalCredits:  credits,
		&summary.TotalDebits:   debits,
		&summary.TotalReversed: reversals,
		&summary.Average:       avg,
		&summary.Min:           min,
		&summary.Max:           max,
	} {
		if *dst, err = decimal.NewFromString(src); err != nil {
			return nil, fmt.Errorf("failed to parse summary figure %q: %w", src, err)
		}
	}
	return &summary, nil
}

func scanMovement(row pgx.Row) (*models.Movement, error) {
	var m models.Movement
	var amount, before, after string
	err := row.Scan(&m.Id, &m.AccountNumber, &m.MovementType, &amount, &before, &after,
		&m.Description, &m.Reference, &m.TransactionId, &m.ReversedMovementId,
		&m.Reversed, &m.IdempotencyKey, &m.RequestId, &m.CorrelationId, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if m.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("failed to parse amount %q: %w", amount, err)
	}
	if m.BalanceBefore, err = decimal.NewFromString(before); err != nil {
		return nil, fmt.Errorf("failed to parse balance_before %q: %w", before, err)
	}
	if m.BalanceAfter, err = decimal.NewFromString(after); err != nil {
		return nil, fmt.Errorf("failed to parse balance_after %q: %w", after, err)
	}
	return &m, nil
}

func scanMovements(rows pgx.Rows) ([]models.Movement, error) {
	var movements []models.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		movements = append(movements, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating movement rows: %w", err)
	}
	return movements, nil
}
