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
	"regexp"

	"ocr-credits-go/internal/common"
	"ocr-credits-go/internal/config"
	"ocr-credits-go/internal/ledger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	return nil
}

func main() {
	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	nameFlag := flag.String("name", "", "Full name of the new user")
	emailFlag := flag.String("email", "", "Email of the new user")
	creditsFlag := flag.Int64("credits", 0, "Initial credit allotment (optional)")
	flag.Parse()

	if err := validateName(*nameFlag); err != nil {
		logger.Fatal("Invalid name", zap.Error(err))
	}
	if err := validateEmail(*emailFlag); err != nil {
		logger.Fatal("Invalid email", zap.Error(err))
	}

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

	userId := uuid.New().String()
	user, err := creditStore.CreateUser(ctx, userId, *nameFlag, *emailFlag)
	if err != nil {
		logger.Fatal("Failed to create user", zap.Error(err))
	}

	var balance int64
	if *creditsFlag > 0 {
		ledgerService := ledger.NewService(creditStore, cfg.Ledger)
		balance, err = ledgerService.Grant(ctx, user.Id, *creditsFlag, "Initial allotment")
		if err != nil {
			logger.Fatal("Failed to grant initial credits", zap.Error(err))
		}
	}

	common.PrintHeader("USER CREATED", common.DefaultWidth)
	common.PrintField("ID", user.Id)
	common.PrintField("Name", user.Name)
	common.PrintField("Email", user.Email)
	common.PrintField("Credits", balance)
	common.PrintFooter("Done", common.DefaultWidth)

	logger.Info("User created",
		zap.String("user_id", user.Id),
		zap.String("email", user.Email),
		zap.Int64("credits", balance))
}
