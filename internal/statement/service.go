// Package statement aggregates movements into per-account statements and
// cross-account totals. All reads; deterministic given the underlying state.
package statement

import (
	"context"
	"time"

	"banking-platform/internal/apperr"
	"banking-platform/internal/models"
	"banking-platform/internal/store"

	"github.com/shopspring/decimal"
)

// CustomerValidator is the resilient peer client contract this service needs.
type CustomerValidator interface {
	ValidateCustomer(ctx context.Context, customerId string) (*models.PeerCustomer, error)
}

type Service struct {
	accounts  store.AccountStore
	movements store.MovementStore
	validator CustomerValidator
}

func NewService(accounts store.AccountStore, movements store.MovementStore, validator CustomerValidator) *Service {
	return &Service{accounts: accounts, movements: movements, validator: validator}
}

// Statement builds the full report for one customer over [start, end]. The
// period covers start 00:00:00 through end 23:59:59 inclusive; the period's
// opening balance is derived by walking the current balance back over the
// period's signed effects.
func (s *Service) Statement(ctx context.Context, customerId string, startDate, endDate time.Time) (*models.CustomerStatement, error) {
	if endDate.Before(startDate) {
		return nil, apperr.Newf(apperr.KindValidation,
			"start date %s is after end date %s", startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	}

	customer, err := s.validator.ValidateCustomer(ctx, customerId)
	if err != nil {
		return nil, err
	}

	accounts, err := s.accounts.ListByCustomer(ctx, customerId)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list accounts", err)
	}

	periodStart := startOfDay(startDate)
	periodEnd := endOfDay(endDate)

	report := &models.CustomerStatement{
		CustomerId:   customerId,
		CustomerName: customer.Name,
		StartDate:    periodStart,
		EndDate:      periodEnd,
	}

	for _, account := range accounts {
		movements, err := s.movements.ListForPeriod(ctx, account.AccountNumber, periodStart, periodEnd)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to load movements", err)
		}

		entry := models.AccountStatement{
			AccountNumber:         account.AccountNumber,
			AccountType:           account.AccountType,
			Active:                account.Active,
			FinalBalanceForPeriod: account.CurrentBalance,
			Movements:             movements,
		}

		periodEffect := decimal.Zero
		for _, m := range movements {
			effect := m.SignedEffect()
			periodEffect = periodEffect.Add(effect)
			if effect.IsPositive() {
				entry.TotalCredits = entry.TotalCredits.Add(effect)
			} else {
				entry.TotalDebits = entry.TotalDebits.Add(effect.Neg())
			}
		}
		entry.InitialBalanceForPeriod = account.CurrentBalance.Sub(periodEffect)

		report.Accounts = append(report.Accounts, entry)
		report.TotalCredits = report.TotalCredits.Add(entry.TotalCredits)
		report.TotalDebits = report.TotalDebits.Add(entry.TotalDebits)
		report.TotalMovements += len(movements)
		report.NetChange = report.NetChange.Add(periodEffect)
	}

	return report, nil
}

// Summary computes the reduced aggregate. At least one of accountNumber or
// customerId must be supplied.
func (s *Service) Summary(ctx context.Context, filter store.MovementFilter) (*models.MovementsSummary, error) {
	if filter.AccountNumber == 0 && filter.CustomerId == "" {
		return nil, apperr.New(apperr.KindValidation, "either accountNumber or customerId filter is required")
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, apperr.New(apperr.KindValidation, "start date is after end date")
	}

	summary, err := s.movements.Summary(ctx, filter)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to compute summary", err)
	}
	return summary, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
