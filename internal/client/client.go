// Package client calls a running policyrag agent over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"policyrag/internal/domain"
)

// StatusError is returned when the agent answers with a non-2xx status after all retries.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("agent returned %d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}

// Client is an agent client with retry on transport errors, 429 and 5xx.
type Client struct {
	url        string
	authHeader string
	client     *http.Client
	maxRetries int
	baseDelay  time.Duration
}

// Config configures the agent client.
type Config struct {
	URL        string
	AuthHeader string
	Timeout    time.Duration
	MaxRetries int
}

func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("agent url is required")
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &Client{
		url:        cfg.URL,
		authHeader: cfg.AuthHeader,
		client:     &http.Client{Timeout: t},
		maxRetries: retries,
		baseDelay:  200 * time.Millisecond,
	}, nil
}

// Run asks the agent question and returns its decoded response.
func (c *Client) Run(ctx context.Context, question string, params domain.RunParams) (*domain.RunResponse, error) {
	data, err := json.Marshal(domain.RunRequest{
		Task:      domain.TaskRAGQA,
		InputData: &domain.RunInput{Question: question},
		Params:    params,
	})
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, c.wait(lastErr, attempt-1)); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.authHeader != "" {
			req.Header.Set("Authorization", c.authHeader)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = &retryableError{
				status:     &StatusError{Code: resp.StatusCode, Body: string(payload)},
				retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			}
			continue
		}
		if resp.StatusCode >= 300 {
			return nil, &StatusError{Code: resp.StatusCode, Body: string(payload)}
		}

		var out domain.RunResponse
		if err := json.Unmarshal(payload, &out); err != nil {
			return nil, fmt.Errorf("decode agent response: %w", err)
		}
		return &out, nil
	}

	var re *retryableError
	if errors.As(lastErr, &re) {
		return nil, re.status
	}
	return nil, fmt.Errorf("agent request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

type retryableError struct {
	status     *StatusError
	retryAfter time.Duration
}

func (e *retryableError) Error() string { return e.status.Error() }

// wait honours Retry-After when the server sent one.
func (c *Client) wait(lastErr error, attempt int) time.Duration {
	var re *retryableError
	if errors.As(lastErr, &re) && re.retryAfter > 0 {
		return re.retryAfter
	}
	return retryDelay(c.baseDelay, attempt)
}

func retryDelay(base time.Duration, attempt int) time.Duration {
	const maxDelay = 5 * time.Second
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 20 {
		return maxDelay
	}
	// exponential backoff capped at 5s
	d := base << attempt
	if d > maxDelay {
		d = maxDelay
	}
	return d
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ProcessQuery runs question on the agent and maps the wire payload back onto a
// query response, so a remote agent can stand in for a local engine.
func (c *Client) ProcessQuery(ctx context.Context, question string, topK int) (*domain.QueryResponse, error) {
	out, err := c.Run(ctx, question, domain.RunParams{TopK: topK})
	if err != nil {
		return nil, err
	}
	if out.Status == domain.StatusError || out.Output == nil {
		return nil, fmt.Errorf("agent error: %s", out.Error)
	}
	resp := &domain.QueryResponse{
		Answer:     out.Output.Answer,
		Confidence: out.Output.Confidence,
		Sources:    out.Output.Sources,
		Reasoning:  out.Output.Reasoning,
		Conflict:   out.ConflictInfo,
	}
	if out.Usage != nil {
		resp.Usage = *out.Usage
	}
	return resp, nil
}
