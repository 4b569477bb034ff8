package firestore

import (
	"context"
	"fmt"

	"ocr-credits-go/internal/models"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// Transactions returns a page of the user's transaction records, newest
// first.
func (s *Service) Transactions(ctx context.Context, userId string, limit, offset int) ([]models.TransactionRecord, error) {
	query := s.recordsRef(userId).
		OrderBy("timestamp", firestore.Desc).
		Offset(offset).
		Limit(limit)

	iter := query.Documents(ctx)
	defer iter.Stop()

	records, err := collectRecords(iter, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to read transactions for user %s: %w", userId, err)
	}
	return records, nil
}

// collectRecords drains a document iterator into transaction records.
func collectRecords(iter *firestore.DocumentIterator, userId string) ([]models.TransactionRecord, error) {
	var records []models.TransactionRecord
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		var doc recordDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode transaction %s: %w", snap.Ref.ID, err)
		}
		records = append(records, doc.toRecord(snap.Ref.ID, userId))
	}
	return records, nil
}
