package models

import "time"

// Person holds the demographic identity of a customer. Customer embeds it as a
// value; the two are persisted 1:1 (person row + customer row).
type Person struct {
	Name           string    `db:"name" json:"name"`
	Identification string    `db:"identification" json:"identification"`
	Gender         string    `db:"gender" json:"gender,omitempty"`
	BirthDate      time.Time `db:"birth_date" json:"birthDate"`
	Address        string    `db:"address" json:"address,omitempty"`
	Phone          string    `db:"phone" json:"phone,omitempty"`
	Email          string    `db:"email" json:"email,omitempty"`
}

// PeerCustomer is the projection the Account service receives from the
// Customer service's read/validate endpoints.
type PeerCustomer struct {
	Id             string `json:"id"`
	Name           string `json:"name"`
	Identification string `json:"identification"`
	Active         bool   `json:"active"`
}

// Customer is the aggregate owned by the Customer service. PasswordHash is a
// one-way bcrypt hash; the clear password never leaves the lifecycle service.
type Customer struct {
	Person

	Id           string    `db:"id" json:"id"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Active       bool      `db:"active" json:"active"`
	Version      int64     `db:"version" json:"version"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}
