package httpapi

import (
	"time"

	"github.com/shopspring/decimal"
)

type createAccountRequest struct {
	CustomerId     string          `json:"customerId" binding:"required,uuid"`
	AccountType    string          `json:"accountType" binding:"required"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
}

type updateAccountRequest struct {
	AccountType string `json:"accountType" binding:"required"`
	Active      bool   `json:"active"`
	Version     int64  `json:"version" binding:"required,min=1"`
}

type patchStateRequest struct {
	Active *bool `json:"active" binding:"required"`
}

type postMovementRequest struct {
	AccountNumber      int64           `json:"accountNumber" binding:"required"`
	MovementType       string          `json:"movementType" binding:"required"`
	Amount             decimal.Decimal `json:"amount"`
	Description        string          `json:"description"`
	Reference          string          `json:"reference"`
	TransactionId      string          `json:"transactionId" binding:"required"`
	ReversedMovementId string          `json:"reversedMovementId"`
}

type createCustomerRequest struct {
	Name           string    `json:"name" binding:"required"`
	Identification string    `json:"identification" binding:"required"`
	Gender         string    `json:"gender"`
	BirthDate      time.Time `json:"birthDate" binding:"required"`
	Address        string    `json:"address"`
	Phone          string    `json:"phone"`
	Email          string    `json:"email" binding:"omitempty,email"`
	Password       string    `json:"password" binding:"required,min=8"`
}

type updateCustomerRequest struct {
	Name      string    `json:"name" binding:"required"`
	Gender    string    `json:"gender"`
	BirthDate time.Time `json:"birthDate" binding:"required"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email" binding:"omitempty,email"`
	Version   int64     `json:"version" binding:"required,min=1"`
}

type patchCustomerStateRequest struct {
	Active  *bool `json:"active" binding:"required"`
	Version int64 `json:"version"`
}

type updatePasswordRequest struct {
	Password string `json:"password" binding:"required,min=8"`
	Version  int64  `json:"version"`
}

type balanceResponse struct {
	AccountNumber  int64           `json:"accountNumber"`
	CurrentBalance decimal.Decimal `json:"currentBalance"`
	Active         bool            `json:"active"`
	AsOf           time.Time       `json:"asOf"`
}
