package ocr

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ocr-credits-go/internal/models"
)

func testService(t *testing.T, url string) *Service {
	t.Helper()
	svc, err := NewService(models.OCRConfig{
		URL:            url,
		RequestTimeout: 2 * time.Second,
		MaxRetries:     3,
		BackoffBase:    time.Millisecond,
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}

func testImage() models.Image {
	return models.Image{Name: "scan.png", Data: []byte{0x89, 0x50, 0x4e, 0x47}}
}

func TestExtractText_Success(t *testing.T) {
	var gotLayout string
	var gotFilename string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("failed to parse multipart form: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		gotLayout = r.FormValue("image_type")
		if _, header, err := r.FormFile("image"); err == nil {
			gotFilename = header.Filename
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"extracted_text": "hello world"}`))
	}))
	defer server.Close()

	svc := testService(t, server.URL)
	text, err := svc.ExtractText(context.Background(), testImage(), models.LayoutTwoColumn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello world" {
		t.Errorf("expected extracted text, got %q", text)
	}
	if gotLayout != "2column" {
		t.Errorf("expected layout field 2column, got %q", gotLayout)
	}
	if gotFilename != "scan.png" {
		t.Errorf("expected image part named scan.png, got %q", gotFilename)
	}
}

func TestExtractText_RetriesServiceUnavailable(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"extracted_text": "eventually"}`))
	}))
	defer server.Close()

	svc := testService(t, server.URL)
	text, err := svc.ExtractText(context.Background(), testImage(), models.LayoutOneColumn)
	if err != nil {
		t.Fatalf("unexpected error after recovery: %v", err)
	}
	if text != "eventually" {
		t.Errorf("unexpected text: %q", text)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestExtractText_ExhaustsRetries(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	svc := testService(t, server.URL)
	_, err := svc.ExtractText(context.Background(), testImage(), models.LayoutOneColumn)
	if !errors.Is(err, ErrCallExhausted) {
		t.Fatalf("expected ErrCallExhausted, got %v", err)
	}
	// Initial attempt plus three retries.
	if calls != 4 {
		t.Errorf("expected 4 calls, got %d", calls)
	}
}

func TestExtractText_DoesNotRetryClientErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "unsupported image", http.StatusBadRequest)
	}))
	defer server.Close()

	svc := testService(t, server.URL)
	_, err := svc.ExtractText(context.Background(), testImage(), models.LayoutOneColumn)
	if err == nil {
		t.Fatalf("expected error for 400 response")
	}
	if errors.Is(err, ErrCallExhausted) {
		t.Errorf("client error must not be wrapped as exhaustion: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single call, got %d", calls)
	}
}

func TestExtractText_UnexpectedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ok"}`))
	}))
	defer server.Close()

	svc := testService(t, server.URL)
	_, err := svc.ExtractText(context.Background(), testImage(), models.LayoutOneColumn)
	if !errors.Is(err, ErrUnexpectedResponse) {
		t.Fatalf("expected ErrUnexpectedResponse, got %v", err)
	}
}

func TestExtractText_RejectsInvalidLayout(t *testing.T) {
	svc := testService(t, "http://localhost:0")
	if _, err := svc.ExtractText(context.Background(), testImage(), models.Layout("3column")); err == nil {
		t.Fatalf("expected error for invalid layout")
	}
}

func TestRetryDelayDoublesFromBase(t *testing.T) {
	svc, err := NewService(models.OCRConfig{
		URL:            "http://localhost:0",
		RequestTimeout: 30 * time.Second,
		MaxRetries:     3,
		BackoffBase:    2 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	for i, expected := range want {
		if got := svc.retryDelay(i + 1); got != expected {
			t.Errorf("retry %d: expected delay %v, got %v", i+1, expected, got)
		}
	}
}

func TestExtractText_BackoffSpacingGrows(t *testing.T) {
	const base = 20 * time.Millisecond

	var attempts []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts = append(attempts, time.Now())
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	svc, err := NewService(models.OCRConfig{
		URL:            server.URL,
		RequestTimeout: 2 * time.Second,
		MaxRetries:     3,
		BackoffBase:    base,
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	if _, err := svc.ExtractText(context.Background(), testImage(), models.LayoutOneColumn); !errors.Is(err, ErrCallExhausted) {
		t.Fatalf("expected ErrCallExhausted, got %v", err)
	}
	if len(attempts) != 4 {
		t.Fatalf("expected 4 attempts, got %d", len(attempts))
	}

	// Each pause must be at least its rung of the doubling ladder:
	// base, 2x base, 4x base. Constant or linear backoff fails the
	// final bound.
	for i, minGap := range []time.Duration{base, 2 * base, 4 * base} {
		gap := attempts[i+1].Sub(attempts[i])
		if gap < minGap {
			t.Errorf("retry %d: expected at least %v between attempts, got %v", i+1, minGap, gap)
		}
	}
}

func TestIsTransient(t *testing.T) {
	if !isTransient(&statusError{code: http.StatusServiceUnavailable}) {
		t.Errorf("503 should be transient")
	}
	if isTransient(&statusError{code: http.StatusInternalServerError}) {
		t.Errorf("500 should not be transient")
	}
	if !isTransient(context.DeadlineExceeded) {
		t.Errorf("deadline exceeded should be transient")
	}
	if isTransient(errors.New("connection refused")) {
		t.Errorf("plain errors should not be transient")
	}
}
