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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"ocr-credits-go/internal/batch"
	"ocr-credits-go/internal/common"
	"ocr-credits-go/internal/config"
	"ocr-credits-go/internal/ledger"
	"ocr-credits-go/internal/models"
	"ocr-credits-go/internal/session"

	"go.uber.org/zap"
)

// expandPaths resolves each argument to image files, walking one level
// into directory arguments in name order.
func expandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", arg, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				paths = append(paths, filepath.Join(arg, entry.Name()))
			}
		}
	}
	return paths, nil
}

func loadImages(paths []string) ([]models.Image, error) {
	images := make([]models.Image, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		images = append(images, models.Image{
			Name: filepath.Base(path),
			Data: data,
		})
	}
	return images, nil
}

// reportProgress prints one line per item as it reaches a terminal
// status, in batch order.
func reportProgress(updates <-chan batch.Snapshot, done chan<- struct{}) {
	defer close(done)
	printed := 0
	for snap := range updates {
		for printed < len(snap.Items) && snap.Items[printed].Status.Terminal() {
			item := snap.Items[printed]
			common.PrintItemLine(printed, item.Name, string(item.Status), item.Message)
			printed++
		}
		if snap.State == models.RunCompleted {
			return
		}
	}
}

func main() {
	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	emailFlag := flag.String("email", "", "User email (SQLite backend)")
	userFlag := flag.String("user", "", "User id (required for the Firestore backend)")
	layoutFlag := flag.String("layout", string(models.LayoutOneColumn), "Page layout: 1column or 2column")
	endpointFlag := flag.String("endpoint", "", "Named endpoint profile from the profiles file (overrides OCR_URL)")
	outFlag := flag.String("out", "", "Write the combined extracted text to this file")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		logger.Fatal("No input files; pass image paths as arguments")
	}

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	if *endpointFlag != "" {
		url, err := common.ResolveEndpoint(cfg.OCR.ProfilesFile, *endpointFlag)
		if err != nil {
			logger.Fatal("Failed to resolve endpoint profile", zap.Error(err))
		}
		cfg.OCR.URL = url
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	users, err := common.ResolveUsers(ctx, services.CreditStore, *userFlag, *emailFlag, logger)
	if err != nil {
		logger.Fatal("Failed to resolve users", zap.Error(err))
	}
	if len(users) != 1 {
		logger.Fatal("Processing requires exactly one user; pass -user or -email")
	}
	user := users[0]

	// Bind the identity and follow the live balance for the whole run.
	sessionManager := session.NewManager()
	identities, unsubscribeIdentity := sessionManager.Subscribe()
	defer unsubscribeIdentity()

	feed := ledger.NewBalanceFeed(services.CreditStore)
	feedCtx, stopFeed := context.WithCancel(ctx)
	defer stopFeed()
	go feed.Run(feedCtx, identities)

	sessionManager.SignIn(user.Id)
	ctx = models.WithSessionContext(ctx, &models.SessionContext{
		DisplayName: user.Name,
		Email:       user.Email,
	})

	balance, err := services.LedgerService.EnsureDemoBalance(ctx, user.Id)
	if err != nil {
		logger.Fatal("Failed to read balance", zap.Error(err))
	}

	paths, err := expandPaths(files)
	if err != nil {
		logger.Fatal("Failed to resolve input files", zap.Error(err))
	}
	images, err := loadImages(paths)
	if err != nil {
		logger.Fatal("Failed to load input files", zap.Error(err))
	}

	layout := models.Layout(*layoutFlag)
	processor := batch.NewProcessor(services.LedgerService, services.OcrService)
	if err := processor.SelectFiles(images); err != nil {
		logger.Fatal("Failed to select files", zap.Error(err))
	}
	if err := processor.ConfirmUpload(layout); err != nil {
		logger.Fatal("Failed to start batch", zap.Error(err))
	}

	common.PrintHeader(fmt.Sprintf("PROCESSING %d FILES (balance: %d credits)", len(images), balance), common.DefaultWidth)

	updates, unsubscribe := processor.Subscribe()
	defer unsubscribe()
	reportDone := make(chan struct{})
	go reportProgress(updates, reportDone)

	if err := processor.Run(ctx, user.Id); err != nil {
		logger.Fatal("Failed to run batch", zap.Error(err))
	}
	<-reportDone

	items := processor.Items()
	var succeeded, skipped, failed int
	for _, item := range items {
		switch item.Status {
		case models.ItemSuccess:
			succeeded++
		case models.ItemInsufficientCredit:
			skipped++
		default:
			failed++
		}
	}

	finalBalance, err := services.CreditStore.GetBalance(ctx, user.Id)
	if err != nil {
		logger.Error("Failed to read final balance", zap.Error(err))
		finalBalance = feed.Current()
	}

	summary := fmt.Sprintf("SUMMARY: %d ok, %d out of credits, %d failed (%d%% processed, %d credits left)",
		succeeded, skipped, failed, processor.Progress(), finalBalance)
	common.PrintFooter(summary, common.DefaultWidth)

	if *outFlag != "" {
		combined := batch.CombinedText(items)
		if err := os.WriteFile(*outFlag, []byte(combined), 0o644); err != nil {
			logger.Fatal("Failed to write combined text", zap.Error(err))
		}
		fmt.Printf("Combined text written to %s\n", *outFlag)
	}

	logger.Info("Batch run finished",
		zap.String("user_id", user.Id),
		zap.Int("succeeded", succeeded),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
		zap.Int64("balance", finalBalance))
}
