package models

import (
	"time"
)

// TransactionType is the business reason for a balance mutation.
// The wire values ("add", "spend") are shared by both store backends so
// a ledger written by one backend stays readable by the other.
type TransactionType string

const (
	TransactionAdd   TransactionType = "add"
	TransactionSpend TransactionType = "spend"
)

// User represents a registered user in the local store.
type User struct {
	Id        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// CreditBalance represents the current balance state for one user.
// Count is the authoritative value and never goes below zero.
type CreditBalance struct {
	UserId            string    `db:"user_id"`
	Count             int64     `db:"count"`
	LastTransactionId string    `db:"last_transaction_id"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// TransactionRecord is one immutable entry in the append-only credit log.
// Amount is always positive; Type carries the direction. Every successful
// balance mutation appends exactly one record in the same atomic unit, so
// summing records by type reconstructs the balance exactly.
type TransactionRecord struct {
	Id          string          `db:"id"`
	UserId      string          `db:"user_id"`
	Amount      int64           `db:"amount"`
	Type        TransactionType `db:"type"`
	Description string          `db:"description"`
	Timestamp   time.Time       `db:"timestamp"`
}
