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

package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"ocr-credits-go/internal/models"

	"go.uber.org/zap"
)

type extractResponse struct {
	ExtractedText *string `json:"extracted_text"`
}

// ExtractText uploads one image and returns the recognized text. Transient
// failures (HTTP 503 and request timeouts) are retried with exponentially
// growing delays; any other failure is returned immediately. When every
// attempt fails transiently the call returns ErrCallExhausted wrapping the
// last failure.
func (s *Service) ExtractText(ctx context.Context, image models.Image, layout models.Layout) (string, error) {
	if !layout.Valid() {
		return "", fmt.Errorf("invalid layout %q", layout)
	}
	if len(image.Data) == 0 {
		return "", fmt.Errorf("image %s has no data", image.Name)
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := s.retryDelay(attempt)
			zap.L().Info("Retrying extraction request",
				zap.String("image", image.Name),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := s.doExtract(ctx, image, layout)
		if err == nil {
			return text, nil
		}
		if !isTransient(err) {
			return "", err
		}
		lastErr = err
		zap.L().Warn("Transient extraction failure",
			zap.String("image", image.Name),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	return "", fmt.Errorf("%w: %w", ErrCallExhausted, lastErr)
}

// retryDelay returns the pause before retry attempt n (1-based),
// doubling from the configured base: base, 2x base, 4x base, ...
func (s *Service) retryDelay(attempt int) time.Duration {
	return s.backoff << (attempt - 1)
}

func (s *Service) doExtract(ctx context.Context, image models.Image, layout models.Layout) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("image", image.Name)
	if err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(image.Data); err != nil {
		return "", fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.WriteField("image_type", string(layout)); err != nil {
		return "", fmt.Errorf("failed to write layout field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &statusError{code: resp.StatusCode, body: string(payload)}
	}

	var parsed extractResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	if parsed.ExtractedText == nil {
		return "", fmt.Errorf("%w: missing extracted_text field", ErrUnexpectedResponse)
	}
	return *parsed.ExtractedText, nil
}

// statusError carries a non-200 response so retry classification can see
// the status code.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("extraction service returned status %d: %s", e.code, e.body)
}

// isTransient reports whether an attempt failure is worth retrying. Only
// service-unavailable responses and timeouts qualify; everything else is
// treated as permanent.
func isTransient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusServiceUnavailable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
