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

	"ocr-credits-go/internal/models"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
)

const watchHistoryLimit = 100

// WatchBalance streams the credit count via Firestore document snapshots.
// The first snapshot arrives immediately with the current state; a missing
// document reads as zero. The channel closes when ctx is cancelled or the
// snapshot stream fails.
func (s *Service) WatchBalance(ctx context.Context, userId string) (<-chan int64, error) {
	snapIter := s.balanceRef(userId).Snapshots(ctx)
	ch := make(chan int64, 1)

	go func() {
		defer close(ch)
		defer snapIter.Stop()

		for {
			snap, err := snapIter.Next()
			if err != nil {
				if ctx.Err() == nil {
					zap.L().Warn("Balance snapshot stream ended",
						zap.String("user_id", userId), zap.Error(err))
				}
				return
			}

			var count int64
			if snap.Exists() {
				var doc balanceDoc
				if err := snap.DataTo(&doc); err != nil {
					zap.L().Warn("Failed to decode balance snapshot",
						zap.String("user_id", userId), zap.Error(err))
					continue
				}
				count = doc.Count
			}

			select {
			case ch <- count:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

// WatchTransactions streams the most recent records, newest first, on every
// change to the user's transaction log.
func (s *Service) WatchTransactions(ctx context.Context, userId string) (<-chan []models.TransactionRecord, error) {
	query := s.recordsRef(userId).
		OrderBy("timestamp", firestore.Desc).
		Limit(watchHistoryLimit)
	snapIter := query.Snapshots(ctx)
	ch := make(chan []models.TransactionRecord, 1)

	go func() {
		defer close(ch)
		defer snapIter.Stop()

		for {
			qs, err := snapIter.Next()
			if err != nil {
				if ctx.Err() == nil {
					zap.L().Warn("Transaction snapshot stream ended",
						zap.String("user_id", userId), zap.Error(err))
				}
				return
			}

			records, err := collectRecords(qs.Documents, userId)
			if err != nil {
				zap.L().Warn("Failed to decode transaction snapshot",
					zap.String("user_id", userId), zap.Error(err))
				continue
			}

			select {
			case ch <- records:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}
