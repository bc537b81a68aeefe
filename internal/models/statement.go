package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatement aggregates one account's movements over a reporting period.
type AccountStatement struct {
	AccountNumber           int64           `json:"accountNumber"`
	AccountType             string          `json:"accountType"`
	Active                  bool            `json:"active"`
	InitialBalanceForPeriod decimal.Decimal `json:"initialBalanceForPeriod"`
	FinalBalanceForPeriod   decimal.Decimal `json:"finalBalanceForPeriod"`
	TotalCredits            decimal.Decimal `json:"totalCredits"`
	TotalDebits             decimal.Decimal `json:"totalDebits"`
	Movements               []Movement      `json:"movements"`
}

// CustomerStatement is the full report for one customer and date range.
type CustomerStatement struct {
	CustomerId     string             `json:"customerId"`
	CustomerName   string             `json:"customerName"`
	StartDate      time.Time          `json:"startDate"`
	EndDate        time.Time          `json:"endDate"`
	Accounts       []AccountStatement `json:"accounts"`
	TotalCredits   decimal.Decimal    `json:"totalCredits"`
	TotalDebits    decimal.Decimal    `json:"totalDebits"`
	TotalMovements int                `json:"totalMovements"`
	NetChange      decimal.Decimal    `json:"netChange"`
}

// MovementsSummary is the reduced aggregate returned by the summary endpoint.
type MovementsSummary struct {
	Count         int             `json:"count"`
	TotalCredits  decimal.Decimal `json:"totalCredits"`
	TotalDebits   decimal.Decimal `json:"totalDebits"`
	TotalReversed decimal.Decimal `json:"totalReversals"`
	Average       decimal.Decimal `json:"average"`
	Min           decimal.Decimal `json:"min"`
	Max           decimal.Decimal `json:"max"`
}

// Page is a fully materialized listing page.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	TotalItems int64 `json:"totalItems"`
}
