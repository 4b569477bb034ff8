package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ocr-credits-go/internal/database"
	fsbackend "ocr-credits-go/internal/firestore"
	"ocr-credits-go/internal/ledger"
	"ocr-credits-go/internal/models"
	"ocr-credits-go/internal/ocr"
	"ocr-credits-go/internal/store"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via other means (shell
	// export, docker, etc.), so a missing .env is fine.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	CreditStore   store.CreditStore
	LedgerService *ledger.Service
	OcrService    *ocr.Service
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices wires the configured credit backend, the ledger
// rules, and the OCR client together.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	creditStore, err := InitializeStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	ocrService, err := ocr.NewService(cfg.OCR)
	if err != nil {
		creditStore.Close()
		return nil, err
	}

	return &Services{
		CreditStore:   creditStore,
		LedgerService: ledger.NewService(creditStore, cfg.Ledger),
		OcrService:    ocrService,
	}, nil
}

// InitializeStore opens just the configured credit backend. Useful for
// read-only operations like querying balances, which never touch the OCR
// endpoint.
func InitializeStore(ctx context.Context, cfg *models.Config) (store.CreditStore, error) {
	switch cfg.Backend {
	case "firestore":
		return fsbackend.NewService(ctx, cfg.Firestore)
	case "sqlite":
		return database.NewService(ctx, cfg.Database)
	default:
		return nil, fmt.Errorf("unknown credit backend %q", cfg.Backend)
	}
}

func (cs *Services) Close() {
	if cs.CreditStore != nil {
		cs.CreditStore.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
