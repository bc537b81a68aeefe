// Package account implements the account lifecycle: creation with customer
// validation and quota enforcement, updates under optimistic concurrency, and
// the two deletion paths (client-driven and the sovereign customer cascade).
package account

import (
	"context"
	"errors"

	"banking-platform/internal/apperr"
	"banking-platform/internal/models"
	"banking-platform/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaxActiveAccountsPerCustomer is the per-customer quota.
const MaxActiveAccountsPerCustomer = 5

// CustomerValidator is the resilient peer client contract this service needs.
type CustomerValidator interface {
	ValidateCustomer(ctx context.Context, customerId string) (*models.PeerCustomer, error)
}

// Publisher is the fire-and-forget event sink for account lifecycle events.
type Publisher interface {
	PublishAccountCreated(ctx context.Context, account *models.Account)
	PublishAccountUpdated(ctx context.Context, account *models.Account)
	PublishAccountDeleted(ctx context.Context, account *models.Account)
}

// CreateAccountCommand carries an account creation request.
type CreateAccountCommand struct {
	CustomerId     string
	CustomerName   string
	AccountType    string
	InitialBalance decimal.Decimal
}

// UpdateAccountCommand carries a generic account update. Only the type and
// active state are mutable; balances and ownership never change through this
// path.
type UpdateAccountCommand struct {
	AccountNumber   int64
	AccountType     string
	Active          bool
	ExpectedVersion int64
}

type Service struct {
	accounts  store.AccountStore
	validator CustomerValidator
	publisher Publisher
}

func NewService(accounts store.AccountStore, validator CustomerValidator, publisher Publisher) *Service {
	return &Service{accounts: accounts, validator: validator, publisher: publisher}
}

// Create validates the owning customer through the peer client, then defers
// to the no-validation path for quota enforcement and persistence.
func (s *Service) Create(ctx context.Context, cmd CreateAccountCommand) (*models.Account, error) {
	customer, err := s.validator.ValidateCustomer(ctx, cmd.CustomerId)
	if err != nil {
		return nil, err
	}
	cmd.CustomerName = customer.Name
	return s.CreateWithoutValidation(ctx, cmd)
}

// CreateWithoutValidation is the event-driven entry point: a customer.created
// event pre-establishes that the customer exists, so no peer call is made.
// Quota checks still apply.
func (s *Service) CreateWithoutValidation(ctx context.Context, cmd CreateAccountCommand) (*models.Account, error) {
	if !models.ValidAccountType(cmd.AccountType) {
		return nil, apperr.Newf(apperr.KindValidation, "unknown account type %q", cmd.AccountType)
	}
	if cmd.InitialBalance.IsNegative() {
		return nil, apperr.Newf(apperr.KindValidation, "initial balance cannot be negative, got %s", cmd.InitialBalance.String())
	}

	total, typeTaken, err := s.accounts.CountActive(ctx, cmd.CustomerId, cmd.AccountType)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to check account quotas", err)
	}
	if total >= MaxActiveAccountsPerCustomer {
		return nil, apperr.Newf(apperr.KindBusinessRuleViolation,
			"customer %s already holds the maximum of %d active accounts", cmd.CustomerId, MaxActiveAccountsPerCustomer)
	}
	if typeTaken {
		return nil, apperr.Newf(apperr.KindBusinessRuleViolation,
			"customer %s already holds an active %s account", cmd.CustomerId, cmd.AccountType)
	}

	account, err := s.accounts.Create(ctx, &models.Account{
		CustomerId:     cmd.CustomerId,
		CustomerName:   cmd.CustomerName,
		AccountType:    cmd.AccountType,
		InitialBalance: cmd.InitialBalance,
		CurrentBalance: cmd.InitialBalance,
		Active:         true,
	})
	if err != nil {
		// The store constraints are the authority when the prechecks raced.
		switch {
		case errors.Is(err, store.ErrAccountTypeTaken):
			return nil, apperr.Newf(apperr.KindBusinessRuleViolation,
				"customer %s already holds an active %s account", cmd.CustomerId, cmd.AccountType)
		case errors.Is(err, store.ErrAccountQuotaExceeded):
			return nil, apperr.Newf(apperr.KindBusinessRuleViolation,
				"customer %s already holds the maximum of %d active accounts", cmd.CustomerId, MaxActiveAccountsPerCustomer)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to create account", err)
	}

	s.publisher.PublishAccountCreated(ctx, account)
	return account, nil
}

func (s *Service) Get(ctx context.Context, accountNumber int64) (*models.Account, error) {
	account, err := s.accounts.GetByNumber(ctx, accountNumber)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, apperr.Newf(apperr.KindAccountNotFound, "account %d not found", accountNumber)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load account", err)
	}
	return account, nil
}

func (s *Service) List(ctx context.Context, filter store.AccountFilter) (*models.Page[models.Account], error) {
	page, err := s.accounts.List(ctx, filter)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list accounts", err)
	}
	return page, nil
}

// Update applies a generic account update under optimistic concurrency.
func (s *Service) Update(ctx context.Context, cmd UpdateAccountCommand) (*models.Account, error) {
	if !models.ValidAccountType(cmd.AccountType) {
		return nil, apperr.Newf(apperr.KindValidation, "unknown account type %q", cmd.AccountType)
	}

	account, err := s.accounts.Update(ctx, cmd.AccountNumber, cmd.AccountType, cmd.Active, cmd.ExpectedVersion)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAccountNotFound):
			return nil, apperr.Newf(apperr.KindAccountNotFound, "account %d not found", cmd.AccountNumber)
		case errors.Is(err, store.ErrVersionConflict):
			return nil, apperr.Newf(apperr.KindVersionConflict,
				"account %d was modified concurrently (expected version %d)", cmd.AccountNumber, cmd.ExpectedVersion)
		}
		if mapped := translateReactivation(err, cmd.AccountNumber); mapped != nil {
			return nil, mapped
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to update account", err)
	}

	s.publisher.PublishAccountUpdated(ctx, account)
	return account, nil
}

// PatchState toggles the active flag without touching anything else.
func (s *Service) PatchState(ctx context.Context, accountNumber int64, active bool) (*models.Account, error) {
	account, err := s.accounts.SetActive(ctx, accountNumber, active)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, apperr.Newf(apperr.KindAccountNotFound, "account %d not found", accountNumber)
		}
		if mapped := translateReactivation(err, accountNumber); mapped != nil {
			return nil, mapped
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to update account state", err)
	}

	s.publisher.PublishAccountUpdated(ctx, account)
	return account, nil
}

// Delete removes an account after verifying that its balance is settled. The
// movement rows cascade with the account row.
func (s *Service) Delete(ctx context.Context, accountNumber int64) error {
	account, err := s.Get(ctx, accountNumber)
	if err != nil {
		return err
	}
	if !account.CurrentBalance.IsZero() {
		return apperr.Newf(apperr.KindBusinessRuleViolation,
			"account %d has a non-zero balance of %s and cannot be deleted",
			accountNumber, account.CurrentBalance.String())
	}

	if err := s.accounts.Delete(ctx, accountNumber); err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return apperr.Newf(apperr.KindAccountNotFound, "account %d not found", accountNumber)
		}
		return apperr.Wrap(apperr.KindInternal, "failed to delete account", err)
	}

	s.publisher.PublishAccountDeleted(ctx, account)
	return nil
}

// DeleteForCustomer is the sovereign cascade driven by customer.deleted
// events. It skips the balance check, tolerates absence, and emits one
// account.deleted per removed account.
func (s *Service) DeleteForCustomer(ctx context.Context, customerId string) error {
	deleted, err := s.accounts.DeleteForCustomer(ctx, customerId)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to cascade account deletion", err)
	}
	if len(deleted) == 0 {
		zap.L().Info("No accounts to delete for customer", zap.String("customer_id", customerId))
		return nil
	}

	for i := range deleted {
		s.publisher.PublishAccountDeleted(ctx, &deleted[i])
	}
	return nil
}

// translateReactivation maps the store refusals a re-activation can run into:
// the (customer, type) slot is taken again, or the customer is back at the
// active-accounts ceiling. Returns nil for everything else.
func translateReactivation(err error, accountNumber int64) error {
	switch {
	case errors.Is(err, store.ErrAccountTypeTaken):
		return apperr.Newf(apperr.KindBusinessRuleViolation,
			"account %d cannot be activated: an active account of this type already exists for the customer", accountNumber)
	case errors.Is(err, store.ErrAccountQuotaExceeded):
		return apperr.Newf(apperr.KindBusinessRuleViolation,
			"account %d cannot be activated: the customer already holds the maximum of %d active accounts",
			accountNumber, MaxActiveAccountsPerCustomer)
	}
	return nil
}
