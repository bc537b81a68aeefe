// Package customer implements the customer lifecycle with optimistic
// concurrency and one-way password hashing.
package customer

import (
	"context"
	"errors"
	"time"

	"banking-platform/internal/apperr"
	"banking-platform/internal/models"
	"banking-platform/internal/store"

	"golang.org/x/crypto/bcrypt"
)

// Publisher is the fire-and-forget event sink for customer lifecycle events.
type Publisher interface {
	PublishCustomerCreated(ctx context.Context, customer *models.Customer)
	PublishCustomerUpdated(ctx context.Context, customer *models.Customer)
	PublishCustomerDeleted(ctx context.Context, customer *models.Customer)
}

// CreateCustomerCommand carries a customer creation request. Password is the
// clear text; it is hashed before anything is persisted.
type CreateCustomerCommand struct {
	Name           string
	Identification string
	Gender         string
	BirthDate      time.Time
	Address        string
	Phone          string
	Email          string
	Password       string
}

// UpdateCustomerCommand carries the mutable demographic attributes. The
// identification and active state are immutable through this path; state
// changes go through PatchState only.
type UpdateCustomerCommand struct {
	Id              string
	Name            string
	Gender          string
	BirthDate       time.Time
	Address         string
	Phone           string
	Email           string
	ExpectedVersion int64
}

type Service struct {
	customers store.CustomerStore
	publisher Publisher
}

func NewService(customers store.CustomerStore, publisher Publisher) *Service {
	return &Service{customers: customers, publisher: publisher}
}

func (s *Service) Create(ctx context.Context, cmd CreateCustomerCommand) (*models.Customer, error) {
	if cmd.Name == "" {
		return nil, apperr.New(apperr.KindValidation, "name is required").
			WithFields(apperr.FieldError{Field: "name", Message: "must not be blank", RejectedValue: cmd.Name})
	}
	if cmd.Identification == "" {
		return nil, apperr.New(apperr.KindValidation, "identification is required").
			WithFields(apperr.FieldError{Field: "identification", Message: "must not be blank", RejectedValue: cmd.Identification})
	}
	if len(cmd.Password) < 8 {
		return nil, apperr.New(apperr.KindValidation, "password must be at least 8 characters").
			WithFields(apperr.FieldError{Field: "password", Message: "too short", RejectedValue: "<redacted>"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}

	customer, err := s.customers.Create(ctx, &models.Customer{
		Person: models.Person{
			Name:           cmd.Name,
			Identification: cmd.Identification,
			Gender:         cmd.Gender,
			BirthDate:      cmd.BirthDate,
			Address:        cmd.Address,
			Phone:          cmd.Phone,
			Email:          cmd.Email,
		},
		PasswordHash: string(hash),
		Active:       true,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateIdentification) {
			return nil, apperr.Newf(apperr.KindCustomerAlreadyExists,
				"identification %s is already registered", cmd.Identification)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to create customer", err)
	}

	s.publisher.PublishCustomerCreated(ctx, customer)
	return customer, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Customer, error) {
	customer, err := s.customers.GetById(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrCustomerNotFound) {
			return nil, apperr.Newf(apperr.KindCustomerNotFound, "customer %s not found", id)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load customer", err)
	}
	return customer, nil
}

func (s *Service) List(ctx context.Context, filter store.CustomerFilter) (*models.Page[models.Customer], error) {
	page, err := s.customers.List(ctx, filter)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list customers", err)
	}
	return page, nil
}

// Validate is the endpoint contract behind GET /customers/{id}/validate:
// found and active passes, found but inactive is a state precondition
// failure, absent is not found.
func (s *Service) Validate(ctx context.Context, id string) (*models.Customer, error) {
	customer, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !customer.Active {
		return nil, apperr.Newf(apperr.KindCustomerNotActive, "customer %s is not active", id)
	}
	return customer, nil
}

func (s *Service) Update(ctx context.Context, cmd UpdateCustomerCommand) (*models.Customer, error) {
	if cmd.Name == "" {
		return nil, apperr.New(apperr.KindValidation, "name is required").
			WithFields(apperr.FieldError{Field: "name", Message: "must not be blank", RejectedValue: cmd.Name})
	}

	customer, err := s.customers.Update(ctx, &models.Customer{
		Id: cmd.Id,
		Person: models.Person{
			Name:      cmd.Name,
			Gender:    cmd.Gender,
			BirthDate: cmd.BirthDate,
			Address:   cmd.Address,
			Phone:     cmd.Phone,
			Email:     cmd.Email,
		},
	}, cmd.ExpectedVersion)
	if err != nil {
		return nil, s.mapMutationError(err, cmd.Id, cmd.ExpectedVersion)
	}

	s.publisher.PublishCustomerUpdated(ctx, customer)
	return customer, nil
}

func (s *Service) PatchState(ctx context.Context, id string, active bool, expectedVersion int64) (*models.Customer, error) {
	customer, err := s.customers.SetActive(ctx, id, active, expectedVersion)
	if err != nil {
		return nil, s.mapMutationError(err, id, expectedVersion)
	}

	s.publisher.PublishCustomerUpdated(ctx, customer)
	return customer, nil
}

func (s *Service) UpdatePassword(ctx context.Context, id, password string, expectedVersion int64) (*models.Customer, error) {
	if len(password) < 8 {
		return nil, apperr.New(apperr.KindValidation, "password must be at least 8 characters").
			WithFields(apperr.FieldError{Field: "password", Message: "too short", RejectedValue: "<redacted>"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}

	customer, err := s.customers.UpdatePassword(ctx, id, string(hash), expectedVersion)
	if err != nil {
		return nil, s.mapMutationError(err, id, expectedVersion)
	}
	return customer, nil
}

// Delete removes the customer. The compensating account cleanup happens in
// the Account service when it consumes the customer.deleted event.
func (s *Service) Delete(ctx context.Context, id string) error {
	customer, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.customers.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrCustomerNotFound) {
			return apperr.Newf(apperr.KindCustomerNotFound, "customer %s not found", id)
		}
		return apperr.Wrap(apperr.KindInternal, "failed to delete customer", err)
	}

	s.publisher.PublishCustomerDeleted(ctx, customer)
	return nil
}

// CheckPassword verifies a clear password against the stored hash.
func (s *Service) CheckPassword(ctx context.Context, id, password string) error {
	customer, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(password)); err != nil {
		return apperr.New(apperr.KindValidation, "invalid credentials")
	}
	return nil
}

func (s *Service) mapMutationError(err error, id string, expectedVersion int64) error {
	switch {
	case errors.Is(err, store.ErrCustomerNotFound):
		return apperr.Newf(apperr.KindCustomerNotFound, "customer %s not found", id)
	case errors.Is(err, store.ErrVersionConflict):
		return apperr.Newf(apperr.KindVersionConflict,
			"customer %s was modified concurrently (expected version %d)", id, expectedVersion)
	}
	return apperr.Wrap(apperr.KindInternal, "failed to update customer", err)
}
