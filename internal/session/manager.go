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

// Package session tracks the signed-in user and broadcasts identity
// changes to interested components. An empty user id means signed out.
package session

import (
	"sync"

	"go.uber.org/zap"
)

// Manager holds the current identity and fans out changes. Subscribers
// receive the current identity immediately on subscription, then every
// subsequent change. Slow subscribers only ever see the latest identity;
// intermediate values may be dropped.
type Manager struct {
	mu      sync.Mutex
	current string
	nextId  int
	subs    map[int]chan string
}

func NewManager() *Manager {
	return &Manager{subs: make(map[int]chan string)}
}

// CurrentUser returns the signed-in user id, or "" when signed out.
func (m *Manager) CurrentUser() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// SignIn publishes a new identity. Signing in as the already-current user
// is a no-op.
func (m *Manager) SignIn(userId string) {
	m.set(userId)
}

// SignOut clears the identity.
func (m *Manager) SignOut() {
	m.set("")
}

func (m *Manager) set(userId string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == userId {
		return
	}
	m.current = userId
	zap.L().Debug("Identity changed", zap.String("user_id", userId))
	for _, ch := range m.subs {
		// Keep only the latest value for laggy subscribers.
		select {
		case <-ch:
		default:
		}
		ch <- userId
	}
}

// Subscribe returns a channel carrying the current identity followed by
// every change, and a cancel function that releases the subscription.
func (m *Manager) Subscribe() (<-chan string, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextId
	m.nextId++
	ch := make(chan string, 1)
	ch <- m.current
	m.subs[id] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}
