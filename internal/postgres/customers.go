package postgres

import (
	"context"
	"fmt"

	"banking-platform/internal/models"
	"banking-platform/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Compile-time check: *CustomerStore must satisfy store.CustomerStore.
var _ store.CustomerStore = (*CustomerStore)(nil)

type CustomerStore struct {
	pool *pgxpool.Pool
}

// NewCustomerStore applies the customer-service schema and returns the store.
func NewCustomerStore(ctx context.Context, pool *pgxpool.Pool) (*CustomerStore, error) {
	if _, err := pool.Exec(ctx, customerSchema); err != nil {
		return nil, fmt.Errorf("unable to initialize customer schema: %w", err)
	}
	zap.L().Info("Customer schema initialized")
	return &CustomerStore{pool: pool}, nil
}

const customerColumns = `
	c.id, p.name, p.identification, p.gender, COALESCE(p.birth_date, 'epoch'::date),
	p.address, p.phone, p.email, c.password_hash, c.active, c.version, c.created_at, c.updated_at`

const customerJoin = `FROM customer c JOIN person p ON p.id = c.person_id`

func (s *CustomerStore) Create(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	personId := uuid.New().String()
	_, err = tx.Exec(ctx, `
		INSERT INTO person (id, name, identification, gender, birth_date, address, phone, email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		personId, customer.Name, customer.Identification, customer.Gender,
		customer.BirthDate, customer.Address, customer.Phone, customer.Email)
	if err != nil {
		if isUniqueViolation(err, "uq_person_identification") {
			return nil, store.ErrDuplicateIdentification
		}
		return nil, fmt.Errorf("failed to insert person: %w", err)
	}

	if customer.Id == "" {
		customer.Id = uuid.New().String()
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO customer (id, person_id, password_hash, active)
		VALUES ($1, $2, $3, TRUE)`,
		customer.Id, personId, customer.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to insert customer: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit customer creation: %w", err)
	}

	zap.L().Info("Customer created",
		zap.String("customer_id", customer.Id),
		zap.String("identification", customer.Identification))
	return s.GetById(ctx, customer.Id)
}

func (s *CustomerStore) GetById(ctx context.Context, id string) (*models.Customer, error) {
	row := s.pool.QueryRow(ctx, `SELECT`+customerColumns+` `+customerJoin+` WHERE c.id = $1`, id)
	customer, err := scanCustomer(row)
	if err != nil {
		return nil, noRows(err, store.ErrCustomerNotFound)
	}
	return customer, nil
}

func (s *CustomerStore) GetByIdentification(ctx context.Context, identification string) (*models.Customer, error) {
	row := s.pool.QueryRow(ctx, `SELECT`+customerColumns+` `+customerJoin+` WHERE p.identification = $1`, identification)
	customer, err := scanCustomer(row)
	if err != nil {
		return nil, noRows(err, store.ErrCustomerNotFound)
	}
	return customer, nil
}

func (s *CustomerStore) List(ctx context.Context, filter store.CustomerFilter) (*models.Page[models.Customer], error) {
	where := `WHERE TRUE`
	args := []any{}

	if filter.Identification != "" {
		args = append(args, filter.Identification)
		where += fmt.Sprintf(" AND p.identification = $%d", len(args))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		where += fmt.Sprintf(" AND c.active = $%d", len(args))
	}

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) `+customerJoin+` `+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}

	args = append(args, filter.Size, filter.Page*filter.Size)
	rows, err := s.pool.Query(ctx,
		`SELECT`+customerColumns+` `+customerJoin+` `+where+
			fmt.Sprintf(` ORDER BY c.created_at LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var items []models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customer rows: %w", err)
	}
	return &models.Page[models.Customer]{Items: items, Page: filter.Page, Size: filter.Size, TotalItems: total}, nil
}

// Update rewrites the person attributes and bumps the version under optimistic
// concurrency. Identification and active state are immutable through this
// path.
func (s *CustomerStore) Update(ctx context.Context, customer *models.Customer, expectedVersion int64) (*models.Customer, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE customer SET version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2`,
		customer.Id, expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to bump customer version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := s.GetById(ctx, customer.Id); getErr != nil {
			return nil, getErr
		}
		return nil, store.ErrVersionConflict
	}

	_, err = tx.Exec(ctx, `
		UPDATE person SET name = $2, gender = $3, birth_date = $4, address = $5, phone = $6, email = $7
		WHERE id = (SELECT person_id FROM customer WHERE id = $1)`,
		customer.Id, customer.Name, customer.Gender, customer.BirthDate,
		customer.Address, customer.Phone, customer.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to update person: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit customer update: %w", err)
	}
	return s.GetById(ctx, customer.Id)
}

func (s *CustomerStore) SetActive(ctx context.Context, id string, active bool, expectedVersion int64) (*models.Customer, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE customer SET active = $2, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $3`,
		id, active, expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to update customer state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := s.GetById(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, store.ErrVersionConflict
	}
	return s.GetById(ctx, id)
}

func (s *CustomerStore) UpdatePassword(ctx context.Context, id, passwordHash string, expectedVersion int64) (*models.Customer, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE customer SET password_hash = $2, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $3`,
		id, passwordHash, expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := s.GetById(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, store.ErrVersionConflict
	}
	return s.GetById(ctx, id)
}

// Delete removes the customer and its person row (cascade from person).
func (s *CustomerStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM person WHERE id = (SELECT person_id FROM customer WHERE id = $1)`, id)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrCustomerNotFound
	}
	zap.L().Info("Customer deleted", zap.String("customer_id", id))
	return nil
}

func (s *CustomerStore) Close() {
	s.pool.Close()
}

func scanCustomer(row pgx.Row) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.Id, &c.Name, &c.Identification, &c.Gender, &c.BirthDate,
		&c.Address, &c.Phone, &c.Email, &c.PasswordHash, &c.Active,
		&c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
