package database

import (
	"context"
	"database/sql"
	"fmt"

	"ocr-credits-go/internal/models"

	"go.uber.org/zap"
)

// Transactions returns a newest-first page of the credit log for a user.
func (s *Service) Transactions(ctx context.Context, userId string, limit, offset int) ([]models.TransactionRecord, error) {
	zap.L().Debug("Getting transaction history",
		zap.String("user_id", userId),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	rows, err := s.db.QueryContext(ctx, queryGetTransactionHistory, userId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var records []models.TransactionRecord
	for rows.Next() {
		var record models.TransactionRecord
		var recordType string
		err := rows.Scan(&record.Id, &record.UserId, &record.Amount, &recordType,
			&record.Description, &record.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction record: %w", err)
		}
		record.Type = models.TransactionType(recordType)
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during transaction row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return records, nil
}

// countTransactions is the cheap change probe used by WatchTransactions.
// The log is append-only, so a growing count is the only signal needed.
func (s *Service) countTransactions(ctx context.Context, userId string) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, queryCountTransactions, userId).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}
