package ingest

import (
	"context"
	"time"

	"policyrag/internal/domain"
	"policyrag/internal/logger"
	"policyrag/internal/metrics"
	"policyrag/internal/vectorstore/memory"
)

// Options configures an Ingestor.
type Options struct {
	Dir       string
	Pattern   string
	DedupeIDs bool
	Logger    *logger.Logger
	Metrics   *metrics.Metrics
}

// Report summarizes one ingestion pass.
type Report struct {
	Loaded     int
	Skipped    int
	Duplicates int
	Errors     []RecordError
}

// Ingestor loads a documents directory into a vector store.
type Ingestor struct {
	loader  *Loader
	opts    Options
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewIngestor(opts Options) *Ingestor {
	if opts.Pattern == "" {
		opts.Pattern = "*.json"
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Ingestor{
		loader:  NewLoader(),
		opts:    opts,
		log:     log.Component("ingest"),
		metrics: opts.Metrics,
	}
}

type batchAdder interface {
	AddAll(docs []domain.Document)
}

// Ingest loads the configured directory into store. Malformed records are
// logged and skipped.
func (i *Ingestor) Ingest(ctx context.Context, store domain.VectorStore) (Report, error) {
	start := time.Now()
	docs, errs, err := i.loader.LoadDir(ctx, i.opts.Dir, i.opts.Pattern)
	if err != nil {
		return Report{}, err
	}
	for _, e := range errs {
		i.log.LogRecordSkipped(e.Source, e.Err)
	}

	report := Report{Skipped: len(errs), Errors: errs}
	if i.opts.DedupeIDs {
		before := len(docs)
		docs = dedupe(docs)
		report.Duplicates = before - len(docs)
	}

	if b, ok := store.(batchAdder); ok {
		b.AddAll(docs)
	} else {
		for _, d := range docs {
			store.Add(d)
		}
	}
	for _, d := range docs {
		i.log.LogDocumentLoaded(d.ID, d.Title, d.Version)
	}
	report.Loaded = len(docs)

	i.log.LogIngest(i.opts.Dir, report.Loaded, report.Skipped, time.Since(start))
	if i.metrics != nil {
		i.metrics.RecordIngest(store.Len(), report.Skipped)
	}
	return report, nil
}

// Build ingests into a fresh in-memory store.
func (i *Ingestor) Build(ctx context.Context) (*memory.Storage, Report, error) {
	store := memory.NewStorage()
	report, err := i.Ingest(ctx, store)
	if err != nil {
		return nil, Report{}, err
	}
	return store, report, nil
}

// dedupe keeps the last document for each ID at the position of its first occurrence.
func dedupe(docs []domain.Document) []domain.Document {
	index := make(map[string]int, len(docs))
	out := make([]domain.Document, 0, len(docs))
	for _, d := range docs {
		if at, ok := index[d.ID]; ok {
			out[at] = d
			continue
		}
		index[d.ID] = len(out)
		out = append(out, d)
	}
	return out
}
