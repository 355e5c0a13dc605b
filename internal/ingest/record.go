// Package ingest loads policy documents from JSON files into a vector store.
package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"policyrag/internal/domain"
)

var (
	ErrMissingField = errors.New("missing required field")
	ErrInvalidDate  = errors.New("invalid date")
)

const monthLayout = "2006-01"

// Record is one document as stored on disk.
type Record struct {
	ID       string `json:"id,omitempty"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Date     string `json:"date"`
	Version  string `json:"version"`
	Category string `json:"category"`
}

// RecordError reports a record or file that was skipped.
type RecordError struct {
	Source string
	Err    error
}

func (e RecordError) Error() string { return e.Source + ": " + e.Err.Error() }
func (e RecordError) Unwrap() error { return e.Err }

// Validate checks that every content field is present and the date parses.
func (r Record) Validate() error {
	fields := []struct {
		name, value string
	}{
		{"title", r.Title},
		{"content", r.Content},
		{"date", r.Date},
		{"version", r.Version},
		{"category", r.Category},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}
	_, err := ParseDate(r.Date)
	return err
}

// ParseDate accepts YYYY-MM-DD, or YYYY-MM meaning the first of that month.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(domain.DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(monthLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q, want YYYY-MM-DD", ErrInvalidDate, s)
}

// Document converts a validated record. Records without an ID get a UUID derived
// from their content fields, so reloading the same file yields the same IDs.
func (r Record) Document() (domain.Document, error) {
	if err := r.Validate(); err != nil {
		return domain.Document{}, err
	}
	date, _ := ParseDate(r.Date)
	id := strings.TrimSpace(r.ID)
	if id == "" {
		key := strings.Join([]string{r.Category, r.Title, r.Version, r.Date}, "\x00")
		id = uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
	}
	return domain.Document{
		ID:       id,
		Title:    strings.TrimSpace(r.Title),
		Content:  r.Content,
		Date:     date,
		Version:  strings.TrimSpace(r.Version),
		Category: strings.TrimSpace(r.Category),
	}, nil
}

// decodeRecords parses a file holding either one record object or an array of them.
func decodeRecords(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty file")
	}
	if trimmed[0] == '[' {
		var records []Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
		return records, nil
	}
	var r Record
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return []Record{r}, nil
}
