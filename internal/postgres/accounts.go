package postgres

import (
	"context"
	"errors"
	"fmt"

	"banking-platform/internal/models"
	"banking-platform/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time check: *AccountStore must satisfy store.AccountStore.
var _ store.AccountStore = (*AccountStore)(nil)

type AccountStore struct {
	pool *pgxpool.Pool
}

// NewAccountStore applies the account-service schema (tables, indexes and the
// posting triggers) and returns the store.
func NewAccountStore(ctx context.Context, pool *pgxpool.Pool) (*AccountStore, error) {
	if _, err := pool.Exec(ctx, accountSchema); err != nil {
		return nil, fmt.Errorf("unable to initialize account schema: %w", err)
	}
	if _, err := pool.Exec(ctx, accountTriggers); err != nil {
		return nil, fmt.Errorf("unable to install posting triggers: %w", err)
	}
	zap.L().Info("Account schema initialized")
	return &AccountStore{pool: pool}, nil
}

const accountColumns = `
	account_number, customer_id, customer_name, account_type,
	initial_balance::text, current_balance::text, active, version, created_at, updated_at`

func (s *AccountStore) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO account (customer_id, customer_name, account_type, initial_balance, current_balance, active)
		VALUES ($1, $2, $3, $4, $4, TRUE)
		RETURNING`+accountColumns,
		account.CustomerId, account.CustomerName, account.AccountType, account.InitialBalance.String())

	created, err := scanAccount(row)
	if err != nil {
		if mapped := mapAccountError(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	zap.L().Info("Account created",
		zap.Int64("account_number", created.AccountNumber),
		zap.String("customer_id", created.CustomerId),
		zap.String("account_type", created.AccountType))
	return created, nil
}

func (s *AccountStore) GetByNumber(ctx context.Context, accountNumber int64) (*models.Account, error) {
	row := s.pool.QueryRow(ctx, `SELECT`+accountColumns+` FROM account WHERE account_number = $1`, accountNumber)
	account, err := scanAccount(row)
	if err != nil {
		return nil, noRows(err, store.ErrAccountNotFound)
	}
	return account, nil
}

func (s *AccountStore) List(ctx context.Context, filter store.AccountFilter) (*models.Page[models.Account], error) {
	where := `WHERE TRUE`
	args := []any{}

	if filter.CustomerId != "" {
		args = append(args, filter.CustomerId)
		where += fmt.Sprintf(" AND customer_id = $%d", len(args))
	}
	if filter.AccountType != "" {
		args = append(args, filter.AccountType)
		where += fmt.Sprintf(" AND account_type = $%d", len(args))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		where += fmt.Sprintf(" AND active = $%d", len(args))
	}

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM account `+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count accounts: %w", err)
	}

	args = append(args, filter.Size, filter.Page*filter.Size)
	rows, err := s.pool.Query(ctx,
		`SELECT`+accountColumns+` FROM account `+where+
			fmt.Sprintf(` ORDER BY account_number LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	items, err := scanAccounts(rows)
	if err != nil {
		return nil, err
	}
	return &models.Page[models.Account]{Items: items, Page: filter.Page, Size: filter.Size, TotalItems: total}, nil
}

func (s *AccountStore) ListByCustomer(ctx context.Context, customerId string) ([]models.Account, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT`+accountColumns+` FROM account WHERE customer_id = $1 ORDER BY account_number`, customerId)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts for customer: %w", err)
	}
	defer rows.Close()
	return scanAccounts(rows)
}

func (s *AccountStore) CountActive(ctx context.Context, customerId, accountType string) (int, bool, error) {
	var total int
	var typeTaken bool
	err := s.pool.QueryRow(ctx, `
		SELECT count(*), count(*) FILTER (WHERE account_type = $2) > 0
		FROM account WHERE customer_id = $1 AND active`,
		customerId, accountType).Scan(&total, &typeTaken)
	if err != nil {
		return 0, false, fmt.Errorf("failed to count active accounts: %w", err)
	}
	return total, typeTaken, nil
}

// Update mutates account_type and active with optimistic concurrency. Balance
// columns are deliberately untouchable through this statement.
func (s *AccountStore) Update(ctx context.Context, accountNumber int64, accountType string, active bool, expectedVersion int64) (*models.Account, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE account
		SET account_type = $2, active = $3, version = version + 1, updated_at = now()
		WHERE account_number = $1 AND version = $4
		RETURNING`+accountColumns,
		accountNumber, accountType, active, expectedVersion)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := s.GetByNumber(ctx, accountNumber); getErr != nil {
				return nil, getErr
			}
			return nil, store.ErrVersionConflict
		}
		if mapped := mapAccountError(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	return account, nil
}

func (s *AccountStore) SetActive(ctx context.Context, accountNumber int64, active bool) (*models.Account, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE account
		SET active = $2, version = version + 1, updated_at = now()
		WHERE account_number = $1
		RETURNING`+accountColumns,
		accountNumber, active)

	account, err := scanAccount(row)
	if err != nil {
		if mapped := mapAccountError(err); mapped != err {
			return nil, mapped
		}
		return nil, noRows(err, store.ErrAccountNotFound)
	}
	return account, nil
}

func (s *AccountStore) Delete(ctx context.Context, accountNumber int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM account WHERE account_number = $1`, accountNumber)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrAccountNotFound
	}
	zap.L().Info("Account deleted", zap.Int64("account_number", accountNumber))
	return nil
}

// DeleteForCustomer removes every account (and, via cascade, every movement)
// belonging to the customer. Absence is a silent no-op so event redelivery is
// safe.
func (s *AccountStore) DeleteForCustomer(ctx context.Context, customerId string) ([]models.Account, error) {
	rows, err := s.pool.Query(ctx,
		`DELETE FROM account WHERE customer_id = $1 RETURNING`+accountColumns, customerId)
	if err != nil {
		return nil, fmt.Errorf("failed to delete accounts for customer: %w", err)
	}
	defer rows.Close()

	deleted, err := scanAccounts(rows)
	if err != nil {
		return nil, err
	}
	zap.L().Info("Accounts deleted for customer",
		zap.String("customer_id", customerId),
		zap.Int("count", len(deleted)))
	return deleted, nil
}

func (s *AccountStore) Close() {
	s.pool.Close()
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	var initial, current string
	err := row.Scan(&a.AccountNumber, &a.CustomerId, &a.CustomerName, &a.AccountType,
		&initial, &current, &a.Active, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if a.InitialBalance, err = decimal.NewFromString(initial); err != nil {
		return nil, fmt.Errorf("failed to parse initial_balance %q: %w", initial, err)
	}
	if a.CurrentBalance, err = decimal.NewFromString(current); err != nil {
		return nil, fmt.Errorf("failed to parse current_balance %q: %w", current, err)
	}
	return &a, nil
}

func scanAccounts(rows pgx.Rows) ([]models.Account, error) {
	var accounts []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}
	return accounts, nil
}
