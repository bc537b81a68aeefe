package account

import (
	"context"

	"banking-platform/internal/apperr"
	"banking-platform/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Provisioner reacts to customer lifecycle events from the peer service. It
// is the idempotent consumer side of the cross-service coordination: a
// redelivered customer.created must not produce a second account, and a
// redelivered customer.deleted must succeed silently.
type Provisioner struct {
	service *Service
}

func NewProvisioner(service *Service) *Provisioner {
	return &Provisioner{service: service}
}

// HandleCustomerCreated provisions the default zero-balance SAVINGS account.
// The quota and type-uniqueness checks double as the idempotency guard: an
// already-provisioned customer trips the type rule, which is a no-op here.
func (p *Provisioner) HandleCustomerCreated(ctx context.Context, data models.CustomerEventData, correlationId string) error {
	ctx = models.WithRequestMeta(ctx, &models.RequestMeta{CorrelationId: correlationId})

	account, err := p.service.CreateWithoutValidation(ctx, CreateAccountCommand{
		CustomerId:     data.CustomerId,
		CustomerName:   data.Name,
		AccountType:    models.AccountTypeSavings,
		InitialBalance: decimal.Zero,
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindBusinessRuleViolation {
			zap.L().Info("Default account already provisioned, skipping",
				zap.String("customer_id", data.CustomerId),
				zap.String("correlation_id", correlationId))
			return nil
		}
		return err
	}

	zap.L().Info("Default account provisioned for new customer",
		zap.String("customer_id", data.CustomerId),
		zap.Int64("account_number", account.AccountNumber),
		zap.String("correlation_id", correlationId))
	return nil
}

// HandleCustomerDeleted cascades the customer's accounts and movements away.
// Customer deletion is sovereign: balances do not block it, and absence is
// success.
func (p *Provisioner) HandleCustomerDeleted(ctx context.Context, data models.CustomerEventData, correlationId string) error {
	ctx = models.WithRequestMeta(ctx, &models.RequestMeta{CorrelationId: correlationId})
	return p.service.DeleteForCustomer(ctx, data.CustomerId)
}
