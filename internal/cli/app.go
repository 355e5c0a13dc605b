package cli

import (
	"context"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"policyrag/internal/cache"
	"policyrag/internal/confidence"
	"policyrag/internal/config"
	"policyrag/internal/conflict"
	"policyrag/internal/ingest"
	"policyrag/internal/logger"
	"policyrag/internal/metrics"
	"policyrag/internal/service"
	"policyrag/internal/summarizer"
)

// app holds the assembled components of a local engine.
type app struct {
	cfg      *config.AppConfig
	log      *logger.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	ingestor *ingest.Ingestor
	engine   *service.QueryEngine
	report   ingest.Report
}

func newLogger(cfg *config.AppConfig, out io.Writer) *logger.Logger {
	if out == nil {
		out = os.Stderr
	}
	return logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, Output: out})
}

// buildApp assembles the engine and ingests the documents directory.
func buildApp(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) (*app, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	var rc *cache.ResponseCache
	if cfg.Cache.Enabled {
		rc = cache.NewResponseCache(cfg.Cache.TTL(), cfg.Cache.Cleanup())
	}

	ing := ingest.NewIngestor(ingest.Options{
		Dir:       cfg.Documents.Dir,
		Pattern:   cfg.Documents.Pattern,
		DedupeIDs: cfg.Documents.DedupeIDs,
		Logger:    log,
		Metrics:   m,
	})
	store, report, err := ing.Build(ctx)
	if err != nil {
		return nil, err
	}

	engine := service.NewQueryEngine(
		store,
		conflict.NewResolver(),
		confidence.NewScorer(),
		summarizer.NewExcerpt(cfg.Retrieval.ExcerptLength),
		service.Options{
			TopK:           cfg.Retrieval.TopK,
			RelevanceFloor: cfg.Retrieval.RelevanceFloor,
			Cache:          rc,
			Metrics:        m,
			Logger:         log,
		},
	)
	return &app{
		cfg:      cfg,
		log:      log,
		registry: registry,
		metrics:  m,
		ingestor: ing,
		engine:   engine,
		report:   report,
	}, nil
}

// reload rebuilds the corpus from disk and swaps it into the engine.
func (a *app) reload(ctx context.Context) error {
	store, report, err := a.ingestor.Build(ctx)
	if err != nil {
		a.metrics.ReloadsTotal.WithLabelValues("error").Inc()
		return err
	}
	a.engine.SwapStore(store)
	a.report = report
	a.metrics.ReloadsTotal.WithLabelValues("ok").Inc()
	a.log.Info().Int("documents", store.Len()).Int("skipped", report.Skipped).Msg("Corpus reloaded")
	return nil
}

// overview summarizes the corpus for display.
func (a *app) overview(maxSentences int) string {
	docs := a.engine.Documents()
	if len(docs) == 0 {
		return "No documents loaded from " + a.cfg.Documents.Dir
	}
	summary, err := summarizer.Corpus(summarizer.NewFrequencySummarizer(), docs, maxSentences)
	if err != nil {
		return ""
	}
	return summary
}
