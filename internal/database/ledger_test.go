package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"ocr-credits-go/internal/models"
	"ocr-credits-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestStore(t *testing.T) (*Service, func()) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	service := &Service{db: db, watchInterval: 10 * time.Millisecond}
	if err := service.initSchema(false); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	_, err = db.Exec("INSERT INTO users (id, name, email) VALUES (?, ?, ?)",
		"user1", "Test User", "test@example.com")
	if err != nil {
		t.Fatalf("Failed to insert test user: %v", err)
	}

	cleanup := func() {
		db.Close()
	}

	return service, cleanup
}

func TestGetBalance_NoRow(t *testing.T) {
	service, cleanup := setupTestStore(t)
	defer cleanup()

	balance, err := service.GetBalance(context.Background(), "user1")
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if balance != 0 {
		t.Errorf("Expected balance 0, got %d", balance)
	}
}

func TestGrantAndSpend_SumProperty(t *testing.T) {
	service, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	// 10 + 5 - 3 - 2 = 10, with one failed spend in between that must not count.
	if _, err := service.Grant(ctx, store.GrantParams{UserId: "user1", Amount: 10, Description: "initial"}); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	if _, err := service.Grant(ctx, store.GrantParams{UserId: "user1", Amount: 5, Description: "top up"}); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	if _, err := service.Spend(ctx, store.SpendParams{UserId: "user1", Amount: 3, Description: "OCR: a.png"}); err != nil {
		t.Fatalf("Spend failed: %v", err)
	}
	if _, err := service.Spend(ctx, store.SpendParams{UserId: "user1", Amount: 100, Description: "too big"}); !errors.Is(err, store.ErrInsufficientCredits) {
		t.Fatalf("Expected ErrInsufficientCredits, got %v", err)
	}
	balance, err := service.Spend(ctx, store.SpendParams{UserId: "user1", Amount: 2, Description: "OCR: b.png"})
	if err != nil {
		t.Fatalf("Spend failed: %v", err)
	}

	if balance != 10 {
		t.Errorf("Expected final balance 10, got %d", balance)
	}

	// The log must reconstruct the balance exactly: sum(add) - sum(spend).
	records, err := service.Transactions(ctx, "user1", 50, 0)
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	var reconstructed int64
	for _, r := range records {
		switch r.Type {
		case models.TransactionAdd:
			reconstructed += r.Amount
		case models.TransactionSpend:
			reconstructed -= r.Amount
		}
	}
	if reconstructed != 10 {
		t.Errorf("Log reconstructs %d, want 10", reconstructed)
	}
	if len(records) != 4 {
		t.Errorf("Expected 4 records (failed spend invisible), got %d", len(records))
	}
}

func TestSpend_InsufficientLeavesLedgerUntouched(t *testing.T) {
	service, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := service.Grant(ctx, store.GrantParams{UserId: "user1", Amount: 2, Description: "initial"}); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}

	_, err := service.Spend(ctx, store.SpendParams{UserId: "user1", Amount: 3, Description: "OCR: big.png"})
	if !errors.Is(err, store.ErrInsufficientCredits) {
		t.Fatalf("Expected ErrInsufficientCredits, got %v", err)
	}

	balance, err := service.GetBalance(ctx, "user1")
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if balance != 2 {
		t.Errorf("Balance changed on failed spend: got %d, want 2", balance)
	}

	records, err := service.Transactions(ctx, "user1", 10, 0)
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Failed spend wrote a record: got %d records, want 1", len(records))
	}
}

func TestGrant_AppendsExactlyOneRecord(t *testing.T) {
	service, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := service.Grant(ctx, store.GrantParams{UserId: "user1", Amount: 7, Description: "purchase"}); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}

	records, err := service.Transactions(ctx, "user1", 10, 0)
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected exactly 1 record, got %d", len(records))
	}
	r := records[0]
	if r.Amount != 7 || r.Type != models.TransactionAdd || r.Description != "purchase" {
		t.Errorf("Record does not match mutation: %+v", r)
	}
	if r.UserId != "user1" {
		t.Errorf("Record user mismatch: %s", r.UserId)
	}
}

func TestSpend_RecordMatchesMutation(t *testing.T) {
	service, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := service.Grant(ctx, store.GrantParams{UserId: "user1", Amount: 5, Description: "initial"}); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	if _, err := service.Spend(ctx, store.SpendParams{UserId: "user1", Amount: 1, Description: "OCR: scan.png"}); err != nil {
		t.Fatalf("Spend failed: %v", err)
	}

	records, err := service.Transactions(ctx, "user1", 10, 0)
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	// Newest first.
	if records[0].Type != models.TransactionSpend || records[0].Amount != 1 {
		t.Errorf("Newest record should be the spend, got %+v", records[0])
	}
	if records[0].Description != "OCR: scan.png" {
		t.Errorf("Unexpected record description: %q", records[0].Description)
	}
}

func TestTransactions_OrderedNewestFirst(t *testing.T) {
	service, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := service.Grant(ctx, store.GrantParams{UserId: "user1", Amount: 1, Description: "grant"}); err != nil {
			t.Fatalf("Grant failed: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	records, err := service.Transactions(ctx, "user1", 10, 0)
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	for i := 1; i < len(records); i++ {
		if records[i-1].Timestamp.Before(records[i].Timestamp) {
			t.Errorf("Records not in descending timestamp order at index %d", i)
		}
	}
}

func TestRaiseToTarget(t *testing.T) {
	service, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	balance, err := service.RaiseToTarget(ctx, "user1", 50, "demo top up")
	if err != nil {
		t.Fatalf("RaiseToTarget failed: %v", err)
	}
	if balance != 50 {
		t.Errorf("Expected balance 50, got %d", balance)
	}

	records, err := service.Transactions(ctx, "user1", 10, 0)
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	if len(records) != 1 || records[0].Amount != 50 || records[0].Type != models.TransactionAdd {
		t.Fatalf("Expected one 50-credit add record, got %+v", records)
	}

	// Already at target: no change, no record.
	balance, err = service.RaiseToTarget(ctx, "user1", 50, "demo top up")
	if err != nil {
		t.Fatalf("RaiseToTarget failed: %v", err)
	}
	if balance != 50 {
		t.Errorf("Expected balance 50, got %d", balance)
	}
	records, _ = service.Transactions(ctx, "user1", 10, 0)
	if len(records) != 1 {
		t.Errorf("No-op top up wrote a record: got %d records", len(records))
	}

	// Above target after another grant: still no downward mutation.
	if _, err := service.Grant(ctx, store.GrantParams{UserId: "user1", Amount: 10, Description: "extra"}); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	balance, err = service.RaiseToTarget(ctx, "user1", 50, "demo top up")
	if err != nil {
		t.Fatalf("RaiseToTarget failed: %v", err)
	}
	if balance != 60 {
		t.Errorf("Expected balance 60 (unchanged), got %d", balance)
	}
}

func TestGrant_RejectsNonPositiveAmount(t *testing.T) {
	service, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := service.Grant(ctx, store.GrantParams{UserId: "user1", Amount: 0}); err == nil {
		t.Error("Expected error for zero grant")
	}
	if _, err := service.Spend(ctx, store.SpendParams{UserId: "user1", Amount: -1}); err == nil {
		t.Error("Expected error for negative spend")
	}
}

func TestWatchBalance_EmitsOnChange(t *testing.T) {
	service, cleanup := setupTestStore(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := service.WatchBalance(ctx, "user1")
	if err != nil {
		t.Fatalf("WatchBalance failed: %v", err)
	}

	// Initial emission is immediate.
	select {
	case v := <-ch:
		if v != 0 {
			t.Errorf("Expected initial balance 0, got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("No initial balance emission")
	}

	if _, err := service.Grant(ctx, store.GrantParams{UserId: "user1", Amount: 4, Description: "grant"}); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}

	select {
	case v := <-ch:
		if v != 4 {
			t.Errorf("Expected balance 4 after grant, got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("No emission after balance change")
	}

	cancel()
	// Channel closes once the watcher notices cancellation.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("Channel not closed after cancel")
		}
	}
}
