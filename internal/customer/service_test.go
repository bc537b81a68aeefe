package customer

import (
	"context"
	"strconv"
	"testing"
	"time"

	"banking-platform/internal/apperr"
	"banking-platform/internal/models"
	"banking-platform/internal/store"

	"golang.org/x/crypto/bcrypt"
)

type memCustomers struct {
	store.CustomerStore
	byId map[string]*models.Customer
	seq  int
}

func newMemCustomers() *memCustomers {
	return &memCustomers{byId: map[string]*models.Customer{}}
}

func (m *memCustomers) Create(_ context.Context, customer *models.Customer) (*models.Customer, error) {
	for _, c := range m.byId {
		if c.Identification == customer.Identification {
			return nil, store.ErrDuplicateIdentification
		}
	}
	m.seq++
	cp := *customer
	cp.Id = "cust-" + strconv.Itoa(m.seq)
	cp.Version = 1
	m.byId[cp.Id] = &cp
	out := cp
	return &out, nil
}

func (m *memCustomers) GetById(_ context.Context, id string) (*models.Customer, error) {
	c, ok := m.byId[id]
	if !ok {
		return nil, store.ErrCustomerNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCustomers) Update(_ context.Context, customer *models.Customer, expectedVersion int64) (*models.Customer, error) {
	c, ok := m.byId[customer.Id]
	if !ok {
		return nil, store.ErrCustomerNotFound
	}
	if c.Version != expectedVersion {
		return nil, store.ErrVersionConflict
	}
	identification := c.Identification
	c.Person = customer.Person
	c.Identification = identification
	c.Version++
	cp := *c
	return &cp, nil
}

func (m *memCustomers) SetActive(_ context.Context, id string, active bool, expectedVersion int64) (*models.Customer, error) {
	c, ok := m.byId[id]
	if !ok {
		return nil, store.ErrCustomerNotFound
	}
	if c.Version != expectedVersion {
		return nil, store.ErrVersionConflict
	}
	c.Active = active
	c.Version++
	cp := *c
	return &cp, nil
}

func (m *memCustomers) UpdatePassword(_ context.Context, id, passwordHash string, expectedVersion int64) (*models.Customer, error) {
	c, ok := m.byId[id]
	if !ok {
		return nil, store.ErrCustomerNotFound
	}
	if c.Version != expectedVersion {
		return nil, store.ErrVersionConflict
	}
	c.PasswordHash = passwordHash
	c.Version++
	cp := *c
	return &cp, nil
}

func (m *memCustomers) Delete(_ context.Context, id string) error {
	if _, ok := m.byId[id]; !ok {
		return store.ErrCustomerNotFound
	}
	delete(m.byId, id)
	return nil
}

type countingPublisher struct {
	created int
	updated int
	deleted int
}

func (p *countingPublisher) PublishCustomerCreated(context.Context, *models.Customer) { p.created++ }
func (p *countingPublisher) PublishCustomerUpdated(context.Context, *models.Customer) { p.updated++ }
func (p *countingPublisher) PublishCustomerDeleted(context.Context, *models.Customer) { p.deleted++ }

func validCreate() CreateCustomerCommand {
	return CreateCustomerCommand{
		Name:           "Jan Vermeer",
		Identification: "NL-001",
		Gender:         "M",
		BirthDate:      time.Date(1990, 4, 12, 0, 0, 0, 0, time.UTC),
		Address:        "Delft 12",
		Phone:          "+31600000001",
		Email:          "jan@example.com",
		Password:       "correct-horse",
	}
}

func TestCreate_HashesPasswordAndPublishes(t *testing.T) {
	customers := newMemCustomers()
	publisher := &countingPublisher{}
	service := NewService(customers, publisher)

	customer, err := service.Create(context.Background(), validCreate())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if customer.PasswordHash == "correct-horse" || customer.PasswordHash == "" {
		t.Errorf("Password must be stored as a hash")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte("correct-horse")); err != nil {
		t.Errorf("Stored hash does not verify the original password: %v", err)
	}
	if !customer.Active {
		t.Errorf("New customers must start active")
	}
	if publisher.created != 1 {
		t.Errorf("Expected customer.created event, got %d", publisher.created)
	}
}

func TestCreate_FieldValidation(t *testing.T) {
	service := NewService(newMemCustomers(), &countingPublisher{})
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateCustomerCommand)
		field  string
	}{
		{"blank name", func(c *CreateCustomerCommand) { c.Name = "" }, "name"},
		{"blank identification", func(c *CreateCustomerCommand) { c.Identification = "" }, "identification"},
		{"short password", func(c *CreateCustomerCommand) { c.Password = "short" }, "password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd := validCreate()
			tc.mutate(&cmd)
			_, err := service.Create(ctx, cmd)
			if apperr.KindOf(err) != apperr.KindValidation {
				t.Fatalf("Expected VALIDATION_ERROR, got %v", err)
			}
			fields := apperr.As(err).Fields
			if len(fields) != 1 || fields[0].Field != tc.field {
				t.Errorf("Expected field error on %q, got %v", tc.field, fields)
			}
		})
	}
}

func TestCreate_DuplicateIdentification(t *testing.T) {
	service := NewService(newMemCustomers(), &countingPublisher{})
	ctx := context.Background()

	if _, err := service.Create(ctx, validCreate()); err != nil {
		t.Fatalf("First create failed: %v", err)
	}

	_, err := service.Create(ctx, validCreate())
	if apperr.KindOf(err) != apperr.KindCustomerAlreadyExists {
		t.Fatalf("Expected CUSTOMER_ALREADY_EXISTS, got %v", err)
	}
}

func TestValidate_StateMatrix(t *testing.T) {
	customers := newMemCustomers()
	service := NewService(customers, &countingPublisher{})
	ctx := context.Background()

	active, err := service.Create(ctx, validCreate())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := service.Validate(ctx, active.Id); err != nil {
		t.Errorf("Active customer must validate: %v", err)
	}

	if _, err := service.PatchState(ctx, active.Id, false, active.Version); err != nil {
		t.Fatalf("PatchState failed: %v", err)
	}
	_, err = service.Validate(ctx, active.Id)
	if apperr.KindOf(err) != apperr.KindCustomerNotActive {
		t.Errorf("Inactive customer must fail with CUSTOMER_NOT_ACTIVE, got %v", err)
	}

	_, err = service.Validate(ctx, "ghost")
	if apperr.KindOf(err) != apperr.KindCustomerNotFound {
		t.Errorf("Unknown customer must fail with CUSTOMER_NOT_FOUND, got %v", err)
	}
}

func TestUpdate_VersionConflictAndIdentificationImmutable(t *testing.T) {
	customers := newMemCustomers()
	service := NewService(customers, &countingPublisher{})
	ctx := context.Background()

	customer, err := service.Create(ctx, validCreate())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := service.Update(ctx, UpdateCustomerCommand{
		Id:              customer.Id,
		Name:            "Jan V. Vermeer",
		BirthDate:       customer.BirthDate,
		ExpectedVersion: customer.Version,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Identification != "NL-001" {
		t.Errorf("Identification must be immutable, got %q", updated.Identification)
	}
	if updated.Version != customer.Version+1 {
		t.Errorf("Expected version bump to %d, got %d", customer.Version+1, updated.Version)
	}

	// Stale version must conflict.
	_, err = service.Update(ctx, UpdateCustomerCommand{
		Id:              customer.Id,
		Name:            "Stale Writer",
		ExpectedVersion: customer.Version,
	})
	if apperr.KindOf(err) != apperr.KindVersionConflict {
		t.Fatalf("Expected VERSION_CONFLICT, got %v", err)
	}
}

func TestUpdatePassword_RotatesHash(t *testing.T) {
	customers := newMemCustomers()
	service := NewService(customers, &countingPublisher{})
	ctx := context.Background()

	customer, err := service.Create(ctx, validCreate())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := service.UpdatePassword(ctx, customer.Id, "battery-staple", customer.Version); err != nil {
		t.Fatalf("UpdatePassword failed: %v", err)
	}

	if err := service.CheckPassword(ctx, customer.Id, "battery-staple"); err != nil {
		t.Errorf("New password must verify: %v", err)
	}
	if err := service.CheckPassword(ctx, customer.Id, "correct-horse"); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("Old password must be rejected, got %v", err)
	}
}

func TestDelete_PublishesCompensatingEvent(t *testing.T) {
	customers := newMemCustomers()
	publisher := &countingPublisher{}
	service := NewService(customers, publisher)
	ctx := context.Background()

	customer, err := service.Create(ctx, validCreate())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := service.Delete(ctx, customer.Id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if publisher.deleted != 1 {
		t.Errorf("Expected customer.deleted event, got %d", publisher.deleted)
	}

	err = service.Delete(ctx, customer.Id)
	if apperr.KindOf(err) != apperr.KindCustomerNotFound {
		t.Errorf("Second delete must fail with CUSTOMER_NOT_FOUND, got %v", err)
	}
}
