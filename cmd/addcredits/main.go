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
	"errors"
	"flag"
	"fmt"

	"ocr-credits-go/internal/common"
	"ocr-credits-go/internal/config"
	"ocr-credits-go/internal/ledger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	emailFlag := flag.String("email", "", "User email (SQLite backend)")
	userFlag := flag.String("user", "", "User id (required for the Firestore backend)")
	amountFlag := flag.Int64("amount", 0, "Credits to add")
	descriptionFlag := flag.String("description", "Credit purchase", "Transaction description")
	demoFlag := flag.Bool("demo", false, "Top the demo account up to its configured target instead of adding")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

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
		logger.Fatal("Adding credits requires exactly one user; pass -user or -email")
	}
	user := users[0]

	ledgerService := ledger.NewService(creditStore, cfg.Ledger)

	var balance int64
	if *demoFlag {
		balance, err = ledgerService.EnsureDemoBalance(ctx, user.Id)
		if err != nil {
			logger.Fatal("Demo top-up failed", zap.Error(err))
		}
	} else {
		balance, err = ledgerService.Grant(ctx, user.Id, *amountFlag, *descriptionFlag)
		if err != nil {
			if errors.Is(err, ledger.ErrInvalidAmount) {
				logger.Fatal("Amount must be a positive integer; pass -amount")
			}
			logger.Fatal("Grant failed", zap.Error(err))
		}
	}

	common.PrintHeader("CREDITS ADDED", common.DefaultWidth)
	common.PrintField("User", user.Id)
	if !*demoFlag {
		common.PrintField("Credits added", *amountFlag)
		if price, perr := decimal.NewFromString(cfg.Ledger.PricePerCredit); perr == nil {
			cost := price.Mul(decimal.NewFromInt(*amountFlag))
			common.PrintField("Price", fmt.Sprintf("%s (%s per credit)", cost.StringFixed(2), price.StringFixed(2)))
		}
	}
	common.PrintField("New balance", balance)
	common.PrintFooter("Done", common.DefaultWidth)

	logger.Info("Credits added",
		zap.String("user_id", user.Id),
		zap.Bool("demo", *demoFlag),
		zap.Int64("balance", balance))
}
