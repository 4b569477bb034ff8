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

package database

const (
	// User queries
	queryGetActiveUsers = `
		SELECT id, name, email, created_at, updated_at
		FROM users
		WHERE active = 1
		ORDER BY created_at`

	queryInsertUser = `
		INSERT OR IGNORE INTO users (id, name, email) VALUES (?, ?, ?)`

	queryGetUserById = `
		SELECT id, name, email, created_at, updated_at
		FROM users
		WHERE id = ? AND active = 1`

	queryGetUserByEmail = `
		SELECT id, name, email, created_at, updated_at
		FROM users
		WHERE email = ? AND active = 1`

	// Balance queries
	queryGetCreditCount = `
		SELECT count
		FROM credits
		WHERE user_id = ?`

	queryInsertCreditRow = `
		INSERT INTO credits (user_id, count) VALUES (?, 0)`

	queryUpdateCreditCount = `
		UPDATE credits
		SET count = ?, last_transaction_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?`

	// Transaction log queries
	queryInsertTransaction = `
		INSERT INTO credit_transactions (id, user_id, amount, type, description, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetTransactionHistory = `
		SELECT id, user_id, amount, type, description, timestamp
		FROM credit_transactions
		WHERE user_id = ?
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?`

	queryCountTransactions = `
		SELECT COUNT(*)
		FROM credit_transactions
		WHERE user_id = ?`
)
