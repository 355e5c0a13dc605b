package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"policyrag/internal/domain"
)

// Loader reads document records from a directory.
type Loader struct{}

func NewLoader() *Loader { return &Loader{} }

// LoadDir reads every file in dir matching pattern, in name order. Bad files and
// bad records are returned as RecordErrors and do not stop the walk; the error
// result is reserved for problems with the directory itself.
func (l *Loader) LoadDir(ctx context.Context, dir, pattern string) ([]domain.Document, []RecordError, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("documents dir: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("documents dir: %s is not a directory", dir)
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, nil, fmt.Errorf("documents pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)

	var (
		docs []domain.Document
		errs []RecordError
	)
	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if fi, err := os.Stat(path); err == nil && fi.IsDir() {
			continue
		}
		d, e := l.LoadFile(path)
		docs = append(docs, d...)
		errs = append(errs, e...)
	}
	return docs, errs, nil
}

// LoadFile reads one file. Records are validated independently.
func (l *Loader) LoadFile(path string) ([]domain.Document, []RecordError) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []RecordError{{Source: path, Err: err}}
	}
	records, err := decodeRecords(data)
	if err != nil {
		return nil, []RecordError{{Source: path, Err: err}}
	}
	var (
		docs []domain.Document
		errs []RecordError
	)
	for i, r := range records {
		doc, err := r.Document()
		if err != nil {
			source := path
			if len(records) > 1 {
				source = fmt.Sprintf("%s[%d]", path, i)
			}
			errs = append(errs, RecordError{Source: source, Err: err})
			continue
		}
		docs = append(docs, doc)
	}
	return docs, errs
}
