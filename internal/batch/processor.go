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

// Package batch drives one run of metered text extraction over an ordered
// set of images: one credit reserved per image, one remote call per paid
// image, per-image outcome recorded, aggregate progress derived.
package batch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"ocr-credits-go/internal/models"
	"ocr-credits-go/internal/store"

	"go.uber.org/zap"
)

var (
	// ErrNoFiles is returned when a run is confirmed or started without
	// any selected files.
	ErrNoFiles = errors.New("no files selected")

	// ErrInvalidState is returned for transitions the run state machine
	// does not allow.
	ErrInvalidState = errors.New("operation not allowed in current run state")
)

// CreditSpender reserves credits ahead of each remote call.
type CreditSpender interface {
	Spend(ctx context.Context, userId string, amount int64, description string) (int64, error)
}

// TextExtractor performs the remote extraction call for one image.
type TextExtractor interface {
	ExtractText(ctx context.Context, image models.Image, layout models.Layout) (string, error)
}

// Snapshot is the observable state of a run at one instant.
type Snapshot struct {
	State     models.RunState
	Items     []models.BatchItem
	Processed int
	Total     int
	Progress  int
}

// Processor owns the run state machine. Items are processed strictly one
// at a time, in selection order, so the credit reservation sequence and
// the visible remaining balance stay consistent across the batch.
type Processor struct {
	spender   CreditSpender
	extractor TextExtractor

	mu        sync.Mutex
	state     models.RunState
	layout    models.Layout
	images    []models.Image
	items     []models.BatchItem
	processed int
	nextSubId int
	subs      map[int]chan Snapshot
}

func NewProcessor(spender CreditSpender, extractor TextExtractor) *Processor {
	return &Processor{
		spender:   spender,
		extractor: extractor,
		state:     models.RunSelecting,
		subs:      make(map[int]chan Snapshot),
	}
}

// SelectFiles replaces the selected file set. Only valid while selecting.
func (p *Processor) SelectFiles(images []models.Image) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != models.RunSelecting {
		return fmt.Errorf("%w: %s", ErrInvalidState, p.state)
	}

	p.images = append([]models.Image(nil), images...)
	p.items = make([]models.BatchItem, len(images))
	for i, img := range images {
		p.items[i] = models.BatchItem{
			Name:    img.Name,
			Status:  models.ItemPending,
			Message: "In queue",
		}
	}
	p.publishLocked()
	return nil
}

// ConfirmUpload advances the run past selection. Rejected for an empty
// file set.
func (p *Processor) ConfirmUpload(layout models.Layout) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != models.RunSelecting {
		return fmt.Errorf("%w: %s", ErrInvalidState, p.state)
	}
	if len(p.images) == 0 {
		return ErrNoFiles
	}
	if !layout.Valid() {
		return fmt.Errorf("invalid layout %q", layout)
	}

	p.layout = layout
	p.state = models.RunUploaded
	p.publishLocked()
	return nil
}

// Run processes every item in order. It blocks until the run completes
// and never returns per-item failures: every failure is captured on its
// item, so one bad file cannot abort the rest. Once started the run is
// irreversible; only Reset after completion starts over.
func (p *Processor) Run(ctx context.Context, userId string) error {
	if userId == "" {
		return errors.New("no authenticated user")
	}

	p.mu.Lock()
	if p.state != models.RunUploaded {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInvalidState, p.state)
	}
	p.state = models.RunProcessing
	p.publishLocked()
	total := len(p.images)
	layout := p.layout
	p.mu.Unlock()

	zap.L().Info("Starting batch run",
		zap.String("user_id", userId),
		zap.Int("files", total),
		zap.String("layout", string(layout)))

	for i := 0; i < total; i++ {
		p.processItem(ctx, userId, i, layout)
	}

	p.mu.Lock()
	p.state = models.RunCompleted
	p.publishLocked()
	p.mu.Unlock()

	zap.L().Info("Batch run completed",
		zap.String("user_id", userId),
		zap.Int("processed", total))
	return nil
}

func (p *Processor) processItem(ctx context.Context, userId string, index int, layout models.Layout) {
	img := p.images[index]

	p.updateItem(index, func(item *models.BatchItem) {
		item.Status = models.ItemProcessing
		item.Message = "Processing..."
	})

	_, err := p.spender.Spend(ctx, userId, 1, fmt.Sprintf("OCR: %s", img.Name))
	if err != nil {
		if errors.Is(err, store.ErrInsufficientCredits) {
			p.finishItem(index, func(item *models.BatchItem) {
				item.Status = models.ItemInsufficientCredit
				item.Message = "Insufficient credits."
			})
			return
		}
		p.finishItem(index, func(item *models.BatchItem) {
			item.Status = models.ItemError
			item.Message = fmt.Sprintf("Processing failed: %v", err)
			item.Err = err
		})
		return
	}

	// The credit is charged for the attempt; a remote failure does not
	// refund it.
	text, err := p.extractor.ExtractText(ctx, img, layout)
	if err != nil {
		zap.L().Warn("Extraction failed",
			zap.String("image", img.Name), zap.Error(err))
		p.finishItem(index, func(item *models.BatchItem) {
			item.Status = models.ItemError
			item.Message = fmt.Sprintf("Processing failed: %v", err)
			item.Err = err
		})
		return
	}

	p.finishItem(index, func(item *models.BatchItem) {
		item.Status = models.ItemSuccess
		item.Message = "Completed"
		item.ExtractedText = text
	})
}

func (p *Processor) updateItem(index int, mutate func(*models.BatchItem)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	mutate(&p.items[index])
	p.publishLocked()
}

func (p *Processor) finishItem(index int, mutate func(*models.BatchItem)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	mutate(&p.items[index])
	p.processed++
	p.publishLocked()
}

// Reset discards the run and returns to selection. Not allowed while a
// run is in flight.
func (p *Processor) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == models.RunProcessing {
		return fmt.Errorf("%w: %s", ErrInvalidState, p.state)
	}

	p.state = models.RunSelecting
	p.layout = ""
	p.images = nil
	p.items = nil
	p.processed = 0
	p.publishLocked()
	return nil
}

// State returns the current run state.
func (p *Processor) State() models.RunState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Items returns a copy of the per-file states in selection order.
func (p *Processor) Items() []models.BatchItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.BatchItem(nil), p.items...)
}

// Progress returns the completed percentage, rounded to the nearest
// integer. An empty run reports 0.
func (p *Processor) Progress() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return progressPercent(p.processed, len(p.items))
}

func progressPercent(processed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(processed) / float64(total) * 100))
}

func (p *Processor) snapshotLocked() Snapshot {
	return Snapshot{
		State:     p.state,
		Items:     append([]models.BatchItem(nil), p.items...),
		Processed: p.processed,
		Total:     len(p.items),
		Progress:  progressPercent(p.processed, len(p.items)),
	}
}

func (p *Processor) publishLocked() {
	snap := p.snapshotLocked()
	for _, ch := range p.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// Subscribe returns a channel carrying the current snapshot followed by
// every state change, and a cancel function releasing the subscription.
// Laggy subscribers only see the latest snapshot.
func (p *Processor) Subscribe() (<-chan Snapshot, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSubId
	p.nextSubId++
	ch := make(chan Snapshot, 1)
	ch <- p.snapshotLocked()
	p.subs[id] = ch

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}
