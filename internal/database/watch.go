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

package database

import (
	"context"
	"time"

	"ocr-credits-go/internal/models"

	"go.uber.org/zap"
)

// SQLite has no native change notification, so both watches poll on a
// ticker, mirroring how remote sources are observed elsewhere in the
// system. The interval comes from DatabaseConfig.WatchInterval.

// WatchBalance emits the current balance immediately and then re-emits
// whenever a poll observes a different value, until ctx is cancelled.
func (s *Service) WatchBalance(ctx context.Context, userId string) (<-chan int64, error) {
	initial, err := s.GetBalance(ctx, userId)
	if err != nil {
		return nil, err
	}

	ch := make(chan int64, 1)
	ch <- initial

	go func() {
		defer close(ch)

		last := initial
		ticker := time.NewTicker(s.watchInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				current, err := s.GetBalance(ctx, userId)
				if err != nil {
					zap.L().Warn("Balance poll failed",
						zap.String("user_id", userId),
						zap.Error(err))
					continue
				}
				if current == last {
					continue
				}
				last = current
				select {
				case ch <- current:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

// WatchTransactions emits the newest-first transaction list immediately
// and then re-emits whenever a poll observes a new record, until ctx is
// cancelled.
func (s *Service) WatchTransactions(ctx context.Context, userId string) (<-chan []models.TransactionRecord, error) {
	initial, err := s.Transactions(ctx, userId, watchHistoryLimit, 0)
	if err != nil {
		return nil, err
	}

	ch := make(chan []models.TransactionRecord, 1)
	ch <- initial

	go func() {
		defer close(ch)

		lastCount := int64(len(initial))
		ticker := time.NewTicker(s.watchInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				count, err := s.countTransactions(ctx, userId)
				if err != nil {
					zap.L().Warn("Transaction count poll failed",
						zap.String("user_id", userId),
						zap.Error(err))
					continue
				}
				if count == lastCount {
					continue
				}
				records, err := s.Transactions(ctx, userId, watchHistoryLimit, 0)
				if err != nil {
					zap.L().Warn("Transaction poll failed",
						zap.String("user_id", userId),
						zap.Error(err))
					continue
				}
				lastCount = count
				select {
				case ch <- records:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

// watchHistoryLimit bounds how much history a live watch re-reads per emit.
const watchHistoryLimit = 100
