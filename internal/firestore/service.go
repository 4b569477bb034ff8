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
	"time"

	"ocr-credits-go/internal/models"
	"ocr-credits-go/internal/store"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.CreditStore.
var _ store.CreditStore = (*Service)(nil)

const (
	creditsCollection      = "credits"
	transactionsCollection = "transactions"
)

// Service implements store.CreditStore backed by Cloud Firestore. This is
// the hosted backend the browser client shares: one balance document per
// user at credits/<uid> holding {count}, plus an append-only transactions
// subcollection with server-assigned timestamps.
type Service struct {
	client *firestore.Client
}

// NewService creates a Firestore-backed CreditStore for the given project.
func NewService(ctx context.Context, cfg models.FirestoreConfig) (*Service, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("firestore config requires ProjectID")
	}

	zap.L().Info("Connecting to Firestore", zap.String("project_id", cfg.ProjectID))
	client, err := firestore.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	zap.L().Info("Firestore credit store initialized", zap.String("project_id", cfg.ProjectID))
	return &Service{client: client}, nil
}

// Close releases the underlying gRPC connection.
func (s *Service) Close() {
	if err := s.client.Close(); err != nil {
		zap.L().Warn("Failed to close Firestore client", zap.Error(err))
	}
}

// balanceRef returns the balance document for a user.
func (s *Service) balanceRef(userId string) *firestore.DocumentRef {
	return s.client.Collection(creditsCollection).Doc(userId)
}

// recordsRef returns the per-user append-only transaction subcollection.
func (s *Service) recordsRef(userId string) *firestore.CollectionRef {
	return s.balanceRef(userId).Collection(transactionsCollection)
}

// balanceDoc mirrors the credits/<uid> document.
type balanceDoc struct {
	Count int64 `firestore:"count"`
}

// recordDoc mirrors one document in credits/<uid>/transactions. The
// timestamp is server-assigned at commit time.
type recordDoc struct {
	Amount      int64     `firestore:"amount"`
	Type        string    `firestore:"type"`
	Description string    `firestore:"description"`
	Timestamp   time.Time `firestore:"timestamp,serverTimestamp"`
}

func (d recordDoc) toRecord(id, userId string) models.TransactionRecord {
	return models.TransactionRecord{
		Id:          id,
		UserId:      userId,
		Amount:      d.Amount,
		Type:        models.TransactionType(d.Type),
		Description: d.Description,
		Timestamp:   d.Timestamp,
	}
}

// --- Users ---
// Identity is owned by the auth provider when running against Firestore;
// there is no local user registry to query.

func (s *Service) GetUsers(ctx context.Context) ([]models.User, error) {
	return nil, fmt.Errorf("user registry not available on the Firestore backend")
}

func (s *Service) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	return nil, fmt.Errorf("%w: user registry not available on the Firestore backend", store.ErrUserNotFound)
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, fmt.Errorf("%w: user registry not available on the Firestore backend", store.ErrUserNotFound)
}

func (s *Service) CreateUser(ctx context.Context, userId, name, email string) (*models.User, error) {
	return nil, fmt.Errorf("user registry not available on the Firestore backend")
}
