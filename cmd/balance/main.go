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
	"ocr-credits-go/internal/store"

	"go.uber.org/zap"
)

func printUserBalance(user common.UserInfo, balance int64) {
	label := user.Id
	if user.Name != "" {
		label = fmt.Sprintf("%s (%s)", user.Name, user.Email)
	}
	fmt.Printf("\n┌─ User: %s\n", label)
	fmt.Printf("│  ID: %s\n", user.Id)
	fmt.Printf("│  Credits: %d\n", balance)
}

func watchUserBalance(ctx context.Context, creditStore store.CreditStore, user common.UserInfo) error {
	updates, err := creditStore.WatchBalance(ctx, user.Id)
	if err != nil {
		return fmt.Errorf("failed to watch balance: %w", err)
	}

	fmt.Printf("Watching credit balance for %s (ctrl-c to stop)\n", user.Id)
	for balance := range updates {
		fmt.Printf("  credits: %d\n", balance)
	}
	return nil
}

func main() {
	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	emailFlag := flag.String("email", "", "Filter by specific user email (optional)")
	userFlag := flag.String("user", "", "User id (required for the Firestore backend)")
	watchFlag := flag.Bool("watch", false, "Keep following balance changes for one user")
	flag.Parse()

	logger.Info("Starting balance query")

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

	if *watchFlag {
		if len(users) != 1 {
			logger.Fatal("Watching requires exactly one user; pass -user or -email")
		}
		if err := watchUserBalance(ctx, creditStore, users[0]); err != nil {
			logger.Fatal("Balance watch failed", zap.Error(err))
		}
		return
	}

	common.PrintHeader("CREDIT BALANCE REPORT", common.DefaultWidth)

	var total int64
	for _, user := range users {
		balance, err := creditStore.GetBalance(ctx, user.Id)
		if err != nil {
			logger.Error("Failed to get balance",
				zap.String("user_id", user.Id), zap.Error(err))
			continue
		}
		printUserBalance(user, balance)
		total += balance
	}

	summary := fmt.Sprintf("SUMMARY: %d credits across %d users", total, len(users))
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance query completed",
		zap.Int("users_queried", len(users)),
		zap.Int64("total_credits", total))
}
