package store

import (
	"context"
	"errors"

	"ocr-credits-go/internal/models"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrUserNotFound        = errors.New("user not found")
)

// GrantParams contains the parameters for crediting an account.
type GrantParams struct {
	UserId      string
	Amount      int64
	Description string
}

// SpendParams contains the parameters for debiting an account.
type SpendParams struct {
	UserId      string
	Amount      int64
	Description string
}

// CreditStore defines the contract that every backend (SQLite, Firestore, ...)
// must satisfy. Grant, Spend and RaiseToTarget each execute as one atomic
// unit: the balance write and its paired transaction record either both
// commit or neither does, and concurrent mutations never produce a lost
// update. Spend must leave the balance and log untouched when it fails
// with ErrInsufficientCredits.
type CreditStore interface {
	// --- Users (local registry; Firestore resolves identity externally) ---
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, userId, name, email string) (*models.User, error)

	// --- Balance ---
	GetBalance(ctx context.Context, userId string) (int64, error)

	// WatchBalance emits the current balance immediately and again after
	// every change, until ctx is cancelled. A missing balance document
	// emits 0.
	WatchBalance(ctx context.Context, userId string) (<-chan int64, error)

	// --- Mutations ---
	Grant(ctx context.Context, params GrantParams) (int64, error)
	Spend(ctx context.Context, params SpendParams) (int64, error)

	// RaiseToTarget levels the balance up to target, granting
	// max(0, target-current) in one atomic unit. Used only by the
	// privileged demo-account path; a zero-size grant appends no record.
	RaiseToTarget(ctx context.Context, userId string, target int64, description string) (int64, error)

	// --- Transaction log ---
	Transactions(ctx context.Context, userId string, limit, offset int) ([]models.TransactionRecord, error)

	// WatchTransactions emits the newest-first transaction list immediately
	// and again after every appended record, until ctx is cancelled.
	WatchTransactions(ctx context.Context, userId string) (<-chan []models.TransactionRecord, error)

	// --- Lifecycle ---
	Close()
}
