package ledger

import (
	"context"
	"testing"
	"time"

	"ocr-credits-go/internal/store"
)

func awaitBalance(t *testing.T, ch <-chan int64, want int64) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got, ok := <-ch:
			if !ok {
				t.Fatalf("balance channel closed while waiting for %d", want)
			}
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for balance %d", want)
		}
	}
}

func TestBalanceFeedFollowsIdentity(t *testing.T) {
	fs := newFakeStore()
	fs.balances["user-1"] = 7
	fs.balances["user-2"] = 11

	feed := NewBalanceFeed(fs)
	identities := make(chan string)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		feed.Run(ctx, identities)
	}()

	updates, unsubscribe := feed.Subscribe()
	defer unsubscribe()

	identities <- "user-1"
	awaitBalance(t, updates, 7)
	if !fs.watching("user-1") {
		t.Fatalf("expected an active watch for user-1")
	}

	identities <- "user-2"
	awaitBalance(t, updates, 11)

	// The previous identity's watch must be torn down before the new
	// one emits; a leaked watch would still be registered here.
	if fs.watching("user-1") {
		t.Errorf("expected user-1 watch released after identity switch")
	}
	if !fs.watching("user-2") {
		t.Errorf("expected an active watch for user-2")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("feed did not stop after context cancel")
	}
}

func TestBalanceFeedPublishesChanges(t *testing.T) {
	fs := newFakeStore()
	fs.balances["user-1"] = 5

	feed := NewBalanceFeed(fs)
	identities := make(chan string)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx, identities)

	updates, unsubscribe := feed.Subscribe()
	defer unsubscribe()

	identities <- "user-1"
	awaitBalance(t, updates, 5)

	if _, err := fs.Spend(ctx, store.SpendParams{UserId: "user-1", Amount: 2, Description: "page"}); err != nil {
		t.Fatalf("unexpected spend error: %v", err)
	}
	awaitBalance(t, updates, 3)
}

func TestBalanceFeedResetsOnSignOut(t *testing.T) {
	fs := newFakeStore()
	fs.balances["user-1"] = 9

	feed := NewBalanceFeed(fs)
	identities := make(chan string)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx, identities)

	updates, unsubscribe := feed.Subscribe()
	defer unsubscribe()

	identities <- "user-1"
	awaitBalance(t, updates, 9)

	identities <- ""
	awaitBalance(t, updates, 0)

	if got := feed.Current(); got != 0 {
		t.Errorf("expected current balance 0 after sign-out, got %d", got)
	}
}
