// Package store defines the persistence ports the domain services depend on,
// together with the sentinel errors every backend must surface. The services
// translate these sentinels into the typed apperr taxonomy; backends never
// import apperr.
package store

import (
	"context"
	"errors"
	"time"

	"banking-platform/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrCustomerNotFound        = errors.New("customer not found")
	ErrAccountNotFound         = errors.New("account not found")
	ErrMovementNotFound        = errors.New("movement not found")
	ErrAccountNotActive        = errors.New("account is not active")
	ErrDuplicateTransaction    = errors.New("duplicate transaction id")
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
	ErrDuplicateIdentification = errors.New("identification already registered")
	ErrVersionConflict         = errors.New("concurrent modification detected")
	ErrInsufficientBalance     = errors.New("insufficient balance for debit")
	ErrAlreadyReversed         = errors.New("movement already reversed")
	ErrInvalidReversal         = errors.New("reversal does not reference a reversible movement")
	ErrAccountTypeTaken        = errors.New("customer already holds an active account of this type")
	ErrAccountQuotaExceeded    = errors.New("customer already holds the maximum number of active accounts")
)

// InsertMovementParams carries one movement posting into the atomic unit.
// Amount is positive; the signed delta is derived from MovementType (and the
// referenced original for a REVERSAL) inside the posting transaction.
type InsertMovementParams struct {
	AccountNumber      int64
	MovementType       string
	Amount             decimal.Decimal
	Description        string
	Reference          string
	TransactionId      string
	IdempotencyKey     string
	ReversedMovementId string
	RequestId          string
	CorrelationId      string
}

// CustomerFilter narrows customer listings.
type CustomerFilter struct {
	Identification string
	Active         *bool
	Page           int
	Size           int
}

// AccountFilter narrows account listings.
type AccountFilter struct {
	CustomerId  string
	AccountType string
	Active      *bool
	Page        int
	Size        int
}

// MovementFilter narrows movement listings. AccountNumber is mandatory for the
// listing endpoint; Summary accepts either AccountNumber or CustomerId.
type MovementFilter struct {
	AccountNumber int64
	CustomerId    string
	MovementType  string
	StartDate     *time.Time
	EndDate       *time.Time
	Page          int
	Size          int
}

// CustomerStore is the persistence port of the Customer service.
type CustomerStore interface {
	Create(ctx context.Context, customer *models.Customer) (*models.Customer, error)
	GetById(ctx context.Context, id string) (*models.Customer, error)
	GetByIdentification(ctx context.Context, identification string) (*models.Customer, error)
	List(ctx context.Context, filter CustomerFilter) (*models.Page[models.Customer], error)

	// Update replaces the mutable attributes; expectedVersion is compared
	// against the stored row and a mismatch yields ErrVersionConflict.
	Update(ctx context.Context, customer *models.Customer, expectedVersion int64) (*models.Customer, error)
	SetActive(ctx context.Context, id string, active bool, expectedVersion int64) (*models.Customer, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, expectedVersion int64) (*models.Customer, error)
	Delete(ctx context.Context, id string) error

	Close()
}

// AccountStore is the account-side persistence port.
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByNumber(ctx context.Context, accountNumber int64) (*models.Account, error)
	List(ctx context.Context, filter AccountFilter) (*models.Page[models.Account], error)
	ListByCustomer(ctx context.Context, customerId string) ([]models.Account, error)

	// CountActive returns the number of active accounts a customer holds and
	// whether an active account of accountType already exists.
	CountActive(ctx context.Context, customerId, accountType string) (total int, typeTaken bool, err error)

	Update(ctx context.Context, accountNumber int64, accountType string, active bool, expectedVersion int64) (*models.Account, error)
	SetActive(ctx context.Context, accountNumber int64, active bool) (*models.Account, error)

	// Delete removes the account and its movements. Absence is an error here;
	// DeleteForCustomer is the sovereign cascade and treats absence as a no-op,
	// returning the accounts it actually removed.
	Delete(ctx context.Context, accountNumber int64) error
	DeleteForCustomer(ctx context.Context, customerId string) ([]models.Account, error)

	Close()
}

// MovementStore is the ledger-side persistence port. Insert is the single
// atomic unit of movement posting: it locks the account row, derives the
// balance pair, appends the movement and lets the store triggers enforce the
// overdraft floor, bump the account balance/version and flip the original's
// reversed flag.
type MovementStore interface {
	Insert(ctx context.Context, params InsertMovementParams) (*models.Movement, error)
	GetById(ctx context.Context, id string) (*models.Movement, error)
	GetByTransactionId(ctx context.Context, transactionId string) (*models.Movement, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Movement, error)
	List(ctx context.Context, filter MovementFilter) (*models.Page[models.Movement], error)
	ListForPeriod(ctx context.Context, accountNumber int64, start, end time.Time) ([]models.Movement, error)
	Summary(ctx context.Context, filter MovementFilter) (*models.MovementsSummary, error)
}
