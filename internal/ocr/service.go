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
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"ocr-credits-go/internal/models"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

var (
	// ErrCallExhausted is returned when the extraction endpoint stayed
	// unavailable through every retry attempt. It wraps the last
	// underlying failure.
	ErrCallExhausted = errors.New("extraction service unavailable after all retry attempts")

	// ErrUnexpectedResponse is returned when the endpoint answered
	// successfully but the body did not carry extracted text.
	ErrUnexpectedResponse = errors.New("unexpected response format from extraction service")
)

// Service talks to the remote text-extraction endpoint. Each request gets
// its own timeout; transient failures are retried with exponential backoff
// before the call is given up.
type Service struct {
	url        string
	maxRetries int
	backoff    time.Duration
	httpClient http.Client
}

func NewService(cfg models.OCRConfig) (*Service, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("ocr config requires URL")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("ocr config requires a positive RequestTimeout")
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("ocr config MaxRetries must not be negative")
	}
	if cfg.BackoffBase <= 0 {
		return nil, fmt.Errorf("ocr config requires a positive BackoffBase")
	}

	httpClient, err := createCustomHttpClient(cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	zap.L().Info("OCR service initialized",
		zap.String("url", cfg.URL),
		zap.Duration("request_timeout", cfg.RequestTimeout),
		zap.Int("max_retries", cfg.MaxRetries))

	return &Service{
		url:        cfg.URL,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.BackoffBase,
		httpClient: httpClient,
	}, nil
}

func createCustomHttpClient(timeout time.Duration) (http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: timeout,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return http.Client{}, err
	}

	return http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}
