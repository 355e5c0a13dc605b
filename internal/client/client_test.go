package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"policyrag/internal/domain"
)

func newTestClient(t *testing.T, url string, retries int) *Client {
	t.Helper()
	c, err := New(Config{URL: url, MaxRetries: retries, AuthHeader: "Bearer secret", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	c.baseDelay = time.Millisecond
	return c
}

func okResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(domain.RunResponse{
		Status: domain.StatusOK,
		Output: &domain.RunOutput{Answer: "within 5 business days", Confidence: 0.6, Sources: []domain.Source{{Title: "Onboarding"}}},
	})
}

func TestRunSendsRequest(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		var req domain.RunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Task != domain.TaskRAGQA || req.Question() != "onboarding deadline" || req.Params.TopK != 2 {
			t.Errorf("unexpected request: %+v", req)
		}
		okResponse(w)
	}))
	defer ts.Close()

	out, err := newTestClient(t, ts.URL, 0).Run(context.Background(), "onboarding deadline", domain.RunParams{TopK: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Status != domain.StatusOK || out.Output.Answer != "within 5 business days" {
		t.Errorf("unexpected response: %+v", out)
	}
}

func TestRunRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			okResponse(w)
		}
	}))
	defer ts.Close()

	out, err := newTestClient(t, ts.URL, 3).Run(context.Background(), "q", domain.RunParams{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls.Load() != 3 || out.Status != domain.StatusOK {
		t.Errorf("calls=%d status=%q", calls.Load(), out.Status)
	}
}

func TestRunGivesUpWithStatusError(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":"error"}`))
	}))
	defer ts.Close()

	_, err := newTestClient(t, ts.URL, 2).Run(context.Background(), "q", domain.RunParams{})
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusInternalServerError {
		t.Fatalf("err = %v, want *StatusError 500", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestRunDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"error","error":"question is required"}`))
	}))
	defer ts.Close()

	_, err := newTestClient(t, ts.URL, 3).Run(context.Background(), "", domain.RunParams{})
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadRequest {
		t.Fatalf("err = %v, want *StatusError 400", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestRunHonoursContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := newTestClient(t, ts.URL, 3).Run(ctx, "q", domain.RunParams{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestRetryDelay(t *testing.T) {
	base := 200 * time.Millisecond
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{-1, 200 * time.Millisecond},
		{0, 200 * time.Millisecond},
		{1, 400 * time.Millisecond},
		{4, 3200 * time.Millisecond},
		{5, 5 * time.Second},
		{40, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := retryDelay(base, tt.attempt); got != tt.want {
			t.Errorf("retryDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("2"); got != 2*time.Second {
		t.Errorf("parseRetryAfter(2) = %v", got)
	}
	if got := parseRetryAfter("soon"); got != 0 {
		t.Errorf("parseRetryAfter(soon) = %v", got)
	}
	future := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(future); got <= 0 {
		t.Errorf("HTTP-date Retry-After not parsed: %v", got)
	}
}

func TestNewRequiresURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for empty URL")
	}
}

func TestProcessQueryMapsResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(domain.RunResponse{
			Status: domain.StatusLowConfidence,
			Output: &domain.RunOutput{Answer: "24 hours", Confidence: 0.54, Sources: []domain.Source{{Title: "Incident v2"}}},
			Usage:  &domain.Usage{DocumentsSearched: 3},
			ConflictInfo: &domain.ConflictInfo{
				Detected:           true,
				ResolutionStrategy: domain.ResolutionMostRecent,
			},
		})
	}))
	defer ts.Close()

	resp, err := newTestClient(t, ts.URL, 0).ProcessQuery(context.Background(), "report a data incident", 0)
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if resp.Answer != "24 hours" || resp.Conflict == nil || !resp.Conflict.Detected || resp.Usage.DocumentsSearched != 3 {
		t.Errorf("unexpected mapping: %+v", resp)
	}
}
