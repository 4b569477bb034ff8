package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ocr-credits-go/internal/models"
	"ocr-credits-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Grant atomically increases the balance and appends one "add" record.
func (s *Service) Grant(ctx context.Context, params store.GrantParams) (int64, error) {
	if params.Amount <= 0 {
		return 0, fmt.Errorf("grant amount must be positive, got %d", params.Amount)
	}
	return s.applyMutation(ctx, params.UserId, params.Amount, models.TransactionAdd, params.Description)
}

// Spend atomically decreases the balance and appends one "spend" record.
// When the balance is lower than the amount the transaction is rolled back:
// the balance stays untouched and no record is written, so failed spends
// are invisible in the ledger.
func (s *Service) Spend(ctx context.Context, params store.SpendParams) (int64, error) {
	if params.Amount <= 0 {
		return 0, fmt.Errorf("spend amount must be positive, got %d", params.Amount)
	}
	return s.applyMutation(ctx, params.UserId, -params.Amount, models.TransactionSpend, params.Description)
}

// RaiseToTarget levels the balance up to target in one transaction,
// recording the computed delta as a grant for the audit trail. A balance
// already at or above the target is left as-is with no record.
func (s *Service) RaiseToTarget(ctx context.Context, userId string, target int64, description string) (int64, error) {
	if target < 0 {
		return 0, fmt.Errorf("target balance cannot be negative, got %d", target)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := s.balanceForUpdate(ctx, tx, userId)
	if err != nil {
		return 0, err
	}

	if current >= target {
		zap.L().Debug("Balance already at target, nothing to grant",
			zap.String("user_id", userId),
			zap.Int64("balance", current),
			zap.Int64("target", target))
		return current, nil
	}

	if err := s.writeMutation(ctx, tx, userId, target, target-current, models.TransactionAdd, description); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Balance raised to target",
		zap.String("user_id", userId),
		zap.Int64("old_balance", current),
		zap.Int64("new_balance", target))
	return target, nil
}

// applyMutation runs the read-check-write-append cycle in one SQL
// transaction. delta is positive for grants, negative for spends; the
// record amount is always the absolute value.
func (s *Service) applyMutation(ctx context.Context, userId string, delta int64, recordType models.TransactionType, description string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := s.balanceForUpdate(ctx, tx, userId)
	if err != nil {
		return 0, err
	}

	newCount := current + delta
	if newCount < 0 {
		zap.L().Info("Spend rejected, balance too low",
			zap.String("user_id", userId),
			zap.Int64("balance", current),
			zap.Int64("amount", -delta))
		return 0, fmt.Errorf("balance %d cannot cover %d: %w", current, -delta, store.ErrInsufficientCredits)
	}

	amount := delta
	if amount < 0 {
		amount = -amount
	}
	if err := s.writeMutation(ctx, tx, userId, newCount, amount, recordType, description); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Credit mutation processed",
		zap.String("user_id", userId),
		zap.String("type", string(recordType)),
		zap.Int64("amount", amount),
		zap.Int64("old_balance", current),
		zap.Int64("new_balance", newCount))

	return newCount, nil
}

// balanceForUpdate reads the current balance inside tx, creating the
// zero-count row on first use so the later UPDATE always has a target.
func (s *Service) balanceForUpdate(ctx context.Context, tx *sql.Tx, userId string) (int64, error) {
	var current int64
	err := tx.QueryRowContext(ctx, queryGetCreditCount, userId).Scan(&current)
	if err == sql.ErrNoRows {
		if _, err := tx.ExecContext(ctx, queryInsertCreditRow, userId); err != nil {
			return 0, fmt.Errorf("failed to create balance row: %w", err)
		}
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return current, nil
}

// writeMutation performs the paired balance update + record append inside tx.
func (s *Service) writeMutation(ctx context.Context, tx *sql.Tx, userId string, newCount, amount int64, recordType models.TransactionType, description string) error {
	transactionId := uuid.New().String()

	_, err := tx.ExecContext(ctx, queryInsertTransaction,
		transactionId, userId, amount, string(recordType), description, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to append transaction record: %w", err)
	}

	result, err := tx.ExecContext(ctx, queryUpdateCreditCount, newCount, transactionId, userId)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("balance row missing for user %s", userId)
	}
	return nil
}

// GetBalance returns the current balance; a missing row means zero.
func (s *Service) GetBalance(ctx context.Context, userId string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, queryGetCreditCount, userId).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		zap.L().Error("Failed to get balance", zap.String("user_id", userId), zap.Error(err))
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return count, nil
}
