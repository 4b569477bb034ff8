package store

import (
	"testing"
)

// Compile-time checks that the interface is importable and usable.
func TestCreditStoreInterfaceExists(t *testing.T) {
	// This test simply validates that the CreditStore interface compiles
	// and the sentinel errors are accessible.
	_ = ErrInsufficientCredits
	_ = ErrUserNotFound
	_ = GrantParams{}
	_ = SpendParams{}

	// Ensure the interface is non-nil type.
	var _ CreditStore
}
