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

package ledger

import (
	"context"
	"sync"

	"ocr-credits-go/internal/store"

	"go.uber.org/zap"
)

// BalanceFeed tracks the signed-in user's live balance. It follows an
// identity stream: on every identity change the previous backend watch is
// torn down before a new one starts, so at most one watch is active at a
// time. A signed-out identity publishes a balance of zero.
type BalanceFeed struct {
	store store.CreditStore

	mu      sync.Mutex
	current int64
	nextId  int
	subs    map[int]chan int64
}

func NewBalanceFeed(creditStore store.CreditStore) *BalanceFeed {
	return &BalanceFeed{
		store: creditStore,
		subs:  make(map[int]chan int64),
	}
}

// Current returns the most recently observed balance.
func (f *BalanceFeed) Current() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Subscribe returns a channel carrying the current balance followed by
// every observed change, and a cancel function releasing the subscription.
// Laggy subscribers only see the latest value.
func (f *BalanceFeed) Subscribe() (<-chan int64, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextId
	f.nextId++
	ch := make(chan int64, 1)
	ch <- f.current
	f.subs[id] = ch

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (f *BalanceFeed) publish(balance int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = balance
	for _, ch := range f.subs {
		select {
		case <-ch:
		default:
		}
		ch <- balance
	}
}

// Run consumes the identity stream until ctx is cancelled or the stream
// closes. It blocks; run it on its own goroutine.
func (f *BalanceFeed) Run(ctx context.Context, identities <-chan string) {
	var watchCancel context.CancelFunc
	var watchDone chan struct{}

	stopWatch := func() {
		if watchCancel != nil {
			watchCancel()
			<-watchDone
			watchCancel = nil
			watchDone = nil
		}
	}
	defer stopWatch()

	for {
		select {
		case <-ctx.Done():
			return
		case userId, ok := <-identities:
			if !ok {
				return
			}

			// Tear down the old watch before touching the new identity
			// so a stale balance can never overwrite a fresh one.
			stopWatch()

			if userId == "" {
				f.publish(0)
				continue
			}

			watchCtx, cancel := context.WithCancel(ctx)
			updates, err := f.store.WatchBalance(watchCtx, userId)
			if err != nil {
				cancel()
				zap.L().Error("Failed to watch balance",
					zap.String("user_id", userId), zap.Error(err))
				f.publish(0)
				continue
			}

			watchCancel = cancel
			watchDone = make(chan struct{})
			go func(done chan struct{}) {
				defer close(done)
				for balance := range updates {
					f.publish(balance)
				}
			}(watchDone)
		}
	}
}
