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

package firestore

import (
	"context"
	"fmt"

	"ocr-credits-go/internal/models"
	"ocr-credits-go/internal/store"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// isNotFound reports whether err is a Firestore document-not-found error.
func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// GetBalance reads the current credit count. A missing balance document
// means the user has never been granted credits and reads as zero.
func (s *Service) GetBalance(ctx context.Context, userId string) (int64, error) {
	snap, err := s.balanceRef(userId).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read balance for user %s: %w", userId, err)
	}

	var doc balanceDoc
	if err := snap.DataTo(&doc); err != nil {
		return 0, fmt.Errorf("failed to decode balance for user %s: %w", userId, err)
	}
	return doc.Count, nil
}

// Grant atomically increases the balance and appends a transaction record.
func (s *Service) Grant(ctx context.Context, params store.GrantParams) (int64, error) {
	if params.Amount <= 0 {
		return 0, fmt.Errorf("grant amount must be positive, got %d", params.Amount)
	}
	return s.mutate(ctx, params.UserId, params.Amount, models.TransactionAdd, params.Description)
}

// Spend atomically decreases the balance and appends a transaction record.
// A spend that would take the balance below zero aborts the transaction and
// returns store.ErrInsufficientCredits with nothing written.
func (s *Service) Spend(ctx context.Context, params store.SpendParams) (int64, error) {
	if params.Amount <= 0 {
		return 0, fmt.Errorf("spend amount must be positive, got %d", params.Amount)
	}
	return s.mutate(ctx, params.UserId, -params.Amount, models.TransactionSpend, params.Description)
}

// mutate applies a signed delta to the balance document and creates the
// matching record in one Firestore transaction. Reads precede writes as the
// transaction API requires.
func (s *Service) mutate(ctx context.Context, userId string, delta int64, txType models.TransactionType, description string) (int64, error) {
	balRef := s.balanceRef(userId)
	recRef := s.recordsRef(userId).NewDoc()

	var newCount int64
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var current int64
		snap, err := tx.Get(balRef)
		if err != nil {
			if !isNotFound(err) {
				return fmt.Errorf("failed to read balance: %w", err)
			}
		} else {
			var doc balanceDoc
			if err := snap.DataTo(&doc); err != nil {
				return fmt.Errorf("failed to decode balance: %w", err)
			}
			current = doc.Count
		}

		newCount = current + delta
		if newCount < 0 {
			return fmt.Errorf("%w: balance %d, attempted to spend %d", store.ErrInsufficientCredits, current, -delta)
		}

		if err := tx.Set(balRef, balanceDoc{Count: newCount}); err != nil {
			return fmt.Errorf("failed to write balance: %w", err)
		}

		amount := delta
		if amount < 0 {
			amount = -amount
		}
		if err := tx.Create(recRef, recordDoc{
			Amount:      amount,
			Type:        string(txType),
			Description: description,
		}); err != nil {
			return fmt.Errorf("failed to append transaction record: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	zap.L().Debug("Committed credit mutation",
		zap.String("user_id", userId),
		zap.String("type", string(txType)),
		zap.Int64("delta", delta),
		zap.Int64("new_count", newCount))
	return newCount, nil
}

// RaiseToTarget lifts the balance up to target if it is below, appending a
// single add record for the difference. Balances at or above target are
// left untouched and no record is written.
func (s *Service) RaiseToTarget(ctx context.Context, userId string, target int64, description string) (int64, error) {
	if target < 0 {
		return 0, fmt.Errorf("target must not be negative, got %d", target)
	}

	balRef := s.balanceRef(userId)
	recRef := s.recordsRef(userId).NewDoc()

	var newCount int64
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var current int64
		snap, err := tx.Get(balRef)
		if err != nil {
			if !isNotFound(err) {
				return fmt.Errorf("failed to read balance: %w", err)
			}
		} else {
			var doc balanceDoc
			if err := snap.DataTo(&doc); err != nil {
				return fmt.Errorf("failed to decode balance: %w", err)
			}
			current = doc.Count
		}

		if current >= target {
			newCount = current
			return nil
		}

		newCount = target
		if err := tx.Set(balRef, balanceDoc{Count: target}); err != nil {
			return fmt.Errorf("failed to write balance: %w", err)
		}
		return tx.Create(recRef, recordDoc{
			Amount:      target - current,
			Type:        string(models.TransactionAdd),
			Description: description,
		})
	})
	if err != nil {
		return 0, err
	}
	return newCount, nil
}
