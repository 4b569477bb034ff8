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
	"os/signal"

	"ocr-credits-go/internal/common"
	"ocr-credits-go/internal/config"
	"ocr-credits-go/internal/ledger"
	"ocr-credits-go/internal/models"

	"go.uber.org/zap"
)

func printRecord(record models.TransactionRecord) {
	sign := "+"
	if record.Type == models.TransactionSpend {
		sign = "-"
	}
	fmt.Printf("  %s  %s%-6d %-8s %s\n",
		record.Timestamp.Format("2006-01-02 15:04:05"),
		sign,
		record.Amount,
		record.Type,
		record.Description)
}

func main() {
	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	emailFlag := flag.String("email", "", "User email (SQLite backend)")
	userFlag := flag.String("user", "", "User id (required for the Firestore backend)")
	limitFlag := flag.Int("limit", 25, "Maximum records to show")
	offsetFlag := flag.Int("offset", 0, "Records to skip")
	followFlag := flag.Bool("follow", false, "Keep following new transactions")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	creditStore, err := common.InitializeStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize credit store", zap.Error(err))
	}
	defer creditStore.Close()

	users, err := common.ResolveUsers(ctx, creditStore, *userFlag, *emailFlag, logger)
	if err != nil {
		logger.Fatal("Failed to resolve users", zap.Error(err))
	}
	if len(users) != 1 {
		logger.Fatal("Transaction history requires exactly one user; pass -user or -email")
	}
	user := users[0]

	ledgerService := ledger.NewService(creditStore, cfg.Ledger)

	if *followFlag {
		updates, err := ledgerService.FollowTransactions(ctx, user.Id)
		if err != nil {
			logger.Fatal("Failed to follow transactions", zap.Error(err))
		}
		fmt.Printf("Following transactions for %s (ctrl-c to stop)\n", user.Id)
		for records := range updates {
			common.PrintSeparator("-", common.DefaultWidth)
			for _, record := range records {
				printRecord(record)
			}
		}
		return
	}

	records, err := ledgerService.Transactions(ctx, user.Id, *limitFlag, *offsetFlag)
	if err != nil {
		logger.Fatal("Failed to get transactions", zap.Error(err))
	}

	common.PrintHeader(fmt.Sprintf("TRANSACTION HISTORY: %s", user.Id), common.DefaultWidth)
	if len(records) == 0 {
		fmt.Println("  (no transactions)")
	}
	for _, record := range records {
		printRecord(record)
	}
	common.PrintFooter(fmt.Sprintf("SUMMARY: %d records", len(records)), common.DefaultWidth)

	logger.Info("Transaction query completed",
		zap.String("user_id", user.Id),
		zap.Int("records", len(records)))
}
