package models

import "time"

// Config represents the application configuration
type Config struct {
	Backend   string // "sqlite" or "firestore"
	Database  DatabaseConfig
	Firestore FirestoreConfig
	OCR       OCRConfig
	Ledger    LedgerConfig
}

// DatabaseConfig holds SQLite backend settings
type DatabaseConfig struct {
	Path             string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	PingTimeout      time.Duration
	WatchInterval    time.Duration
	CreateDummyUsers bool
}

// FirestoreConfig holds Firestore backend settings
type FirestoreConfig struct {
	ProjectID string
}

// OCRConfig holds remote OCR endpoint settings
type OCRConfig struct {
	URL            string
	RequestTimeout time.Duration
	MaxRetries     int
	BackoffBase    time.Duration
	ProfilesFile   string
}

// LedgerConfig holds credit ledger settings
type LedgerConfig struct {
	// DemoAccountID is the one privileged account whose grants level the
	// balance up to DemoTargetCredits instead of adding. Empty disables
	// the special case entirely.
	DemoAccountID     string
	DemoTargetCredits int64
	PricePerCredit    string // decimal string, display only
}
