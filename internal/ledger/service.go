/**
 * Copyright 2025-present The ocr-credits-go Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package ledger implements the credit accounting rules on top of a
// CreditStore backend: validated grants and spends, the demo account
// top-up, and live observation of balance and history.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"ocr-credits-go/internal/models"
	"ocr-credits-go/internal/store"

	"go.uber.org/zap"
)

var (
	// ErrNotAuthenticated is returned for ledger operations attempted
	// without a signed-in user.
	ErrNotAuthenticated = errors.New("no authenticated user")

	// ErrInvalidAmount is returned for zero or negative credit amounts.
	ErrInvalidAmount = errors.New("credit amount must be positive")

	// ErrTransactionFailed wraps backend failures during a credit
	// mutation. Insufficient balance is not a transaction failure and is
	// reported as store.ErrInsufficientCredits instead.
	ErrTransactionFailed = errors.New("ledger transaction failed")
)

type Service struct {
	store       store.CreditStore
	demoAccount string
	demoTarget  int64
}

func NewService(creditStore store.CreditStore, cfg models.LedgerConfig) *Service {
	return &Service{
		store:       creditStore,
		demoAccount: cfg.DemoAccountID,
		demoTarget:  cfg.DemoTargetCredits,
	}
}

// Grant adds credits and appends a record describing the purchase or
// top-up.
func (s *Service) Grant(ctx context.Context, userId string, amount int64, description string) (int64, error) {
	if err := validate(userId, amount); err != nil {
		return 0, err
	}

	newBalance, err := s.store.Grant(ctx, store.GrantParams{
		UserId:      userId,
		Amount:      amount,
		Description: description,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}

	zap.L().Info("Credits granted", mutationFields(ctx, userId, amount, newBalance)...)
	return newBalance, nil
}

// Spend deducts credits and appends a record describing what the credits
// paid for. A balance too low for the deduction returns
// store.ErrInsufficientCredits with the ledger untouched.
func (s *Service) Spend(ctx context.Context, userId string, amount int64, description string) (int64, error) {
	if err := validate(userId, amount); err != nil {
		return 0, err
	}

	newBalance, err := s.store.Spend(ctx, store.SpendParams{
		UserId:      userId,
		Amount:      amount,
		Description: description,
	})
	if err != nil {
		if errors.Is(err, store.ErrInsufficientCredits) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}

	zap.L().Info("Credits spent", mutationFields(ctx, userId, amount, newBalance)...)
	return newBalance, nil
}

// mutationFields builds the log fields for a committed mutation,
// including session display data when the caller attached it.
func mutationFields(ctx context.Context, userId string, amount, balance int64) []zap.Field {
	fields := []zap.Field{
		zap.String("user_id", userId),
		zap.Int64("amount", amount),
		zap.Int64("balance", balance),
	}
	if sc := models.GetSessionContext(ctx); sc != nil {
		fields = append(fields, zap.String("email", sc.Email))
	}
	return fields
}

// Balance returns the current credit count.
func (s *Service) Balance(ctx context.Context, userId string) (int64, error) {
	if userId == "" {
		return 0, ErrNotAuthenticated
	}
	return s.store.GetBalance(ctx, userId)
}

// EnsureDemoBalance lifts the demo account back up to its configured
// credit target so the walkthrough always has credits to spend. For any
// other user it does nothing and returns the current balance.
func (s *Service) EnsureDemoBalance(ctx context.Context, userId string) (int64, error) {
	if userId == "" {
		return 0, ErrNotAuthenticated
	}
	if s.demoAccount == "" || userId != s.demoAccount {
		return s.store.GetBalance(ctx, userId)
	}

	newBalance, err := s.store.RaiseToTarget(ctx, userId, s.demoTarget, "Demo account top-up")
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}
	zap.L().Info("Demo account balance ensured",
		zap.String("user_id", userId),
		zap.Int64("balance", newBalance))
	return newBalance, nil
}

// Transactions returns a page of history, newest first.
func (s *Service) Transactions(ctx context.Context, userId string, limit, offset int) ([]models.TransactionRecord, error) {
	if userId == "" {
		return nil, ErrNotAuthenticated
	}
	return s.store.Transactions(ctx, userId, limit, offset)
}

// FollowTransactions streams the recent history on every ledger change.
// With no user bound it emits one empty list and ends.
func (s *Service) FollowTransactions(ctx context.Context, userId string) (<-chan []models.TransactionRecord, error) {
	if userId == "" {
		ch := make(chan []models.TransactionRecord, 1)
		ch <- nil
		close(ch)
		return ch, nil
	}
	return s.store.WatchTransactions(ctx, userId)
}

func validate(userId string, amount int64) error {
	if userId == "" {
		return ErrNotAuthenticated
	}
	if amount <= 0 {
		return fmt.Errorf("%w, got %d", ErrInvalidAmount, amount)
	}
	return nil
}
