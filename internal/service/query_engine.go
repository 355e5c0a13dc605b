package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"policyrag/internal/cache"
	"policyrag/internal/domain"
	"policyrag/internal/logger"
	"policyrag/internal/metrics"
)

// ErrInternal wraps failures raised while scoring or synthesizing an answer.
var ErrInternal = errors.New("internal computation error")

const (
	DefaultTopK           = 5
	DefaultRelevanceFloor = 1e-9
)

// Options configures a QueryEngine. Zero values select defaults.
type Options struct {
	TopK           int
	RelevanceFloor float64
	Cache          *cache.ResponseCache
	Metrics        *metrics.Metrics
	Logger         *logger.Logger
}

// QueryEngine answers questions against a vector store, resolving competing
// policy versions before scoring and synthesizing the answer.
type QueryEngine struct {
	mu    sync.RWMutex
	store domain.VectorStore
	gen   uint64 // bumped on every corpus change

	resolver    domain.ConflictResolver
	scorer      domain.ConfidenceScorer
	synthesizer domain.AnswerSynthesizer

	topK    int
	floor   float64
	cache   *cache.ResponseCache
	metrics *metrics.Metrics
	log     *logger.Logger
}

var _ domain.QueryService = (*QueryEngine)(nil)

func NewQueryEngine(store domain.VectorStore, resolver domain.ConflictResolver, scorer domain.ConfidenceScorer, synthesizer domain.AnswerSynthesizer, opts Options) *QueryEngine {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.RelevanceFloor <= 0 {
		opts.RelevanceFloor = DefaultRelevanceFloor
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &QueryEngine{
		store:       store,
		resolver:    resolver,
		scorer:      scorer,
		synthesizer: synthesizer,
		topK:        opts.TopK,
		floor:       opts.RelevanceFloor,
		cache:       opts.Cache,
		metrics:     opts.Metrics,
		log:         opts.Logger.Component("query_engine"),
	}
}

func (e *QueryEngine) current() domain.VectorStore {
	store, _ := e.snapshot()
	return store
}

func (e *QueryEngine) snapshot() (domain.VectorStore, uint64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store, e.gen
}

// AddDocument indexes doc. Re-adding an ID appends a duplicate.
func (e *QueryEngine) AddDocument(doc domain.Document) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.Add(doc)
	e.corpusChanged()
}

// SwapStore replaces the whole corpus with store in one step.
func (e *QueryEngine) SwapStore(store domain.VectorStore) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store = store
	e.corpusChanged()
}

// corpusChanged must be called with e.mu held for writing.
func (e *QueryEngine) corpusChanged() {
	e.gen++
	if e.cache != nil {
		e.cache.Flush()
	}
	if e.metrics != nil {
		e.metrics.DocumentsIndexed.Set(float64(e.store.Len()))
	}
}

// Search returns up to topK ranked documents without applying the relevance floor.
func (e *QueryEngine) Search(question string, topK int) []domain.ScoredDocument {
	return e.current().Search(question, topK)
}

// Documents returns a copy of the indexed corpus.
func (e *QueryEngine) Documents() []domain.Document {
	return e.current().AllDocuments()
}

// Len returns the number of indexed documents.
func (e *QueryEngine) Len() int {
	return e.current().Len()
}

// ProcessQuery answers question using at most topK retrieved documents.
func (e *QueryEngine) ProcessQuery(ctx context.Context, question string, topK int) (*domain.QueryResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	if topK <= 0 {
		topK = e.topK
	}

	if e.cache != nil {
		if resp, ok := e.cache.Get(question, topK); ok {
			resp.Usage.LatencyMs = time.Since(start).Milliseconds()
			e.record(metrics.OutcomeCached, resp)
			return resp, nil
		}
	}

	store, gen := e.snapshot()
	resp, err := e.answer(store, question, topK)
	elapsed := time.Since(start)
	if err != nil {
		e.log.LogQuery(question, 0, 0, false, elapsed, err)
		e.record(metrics.OutcomeError, nil)
		return nil, err
	}
	resp.Usage.LatencyMs = elapsed.Milliseconds()

	outcome := metrics.OutcomeAnswered
	if len(resp.Sources) == 0 {
		outcome = metrics.OutcomeNoMatch
	}
	e.record(outcome, resp)
	e.log.LogQuery(question, len(resp.Sources), resp.Confidence, resp.Conflict != nil, elapsed, nil)

	e.cacheIfCurrent(gen, question, topK, resp)
	return resp, nil
}

// cacheIfCurrent stores resp unless the corpus changed while it was computed.
func (e *QueryEngine) cacheIfCurrent(gen uint64, question string, topK int, resp *domain.QueryResponse) {
	if e.cache == nil {
		return
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.gen != gen {
		return
	}
	e.cache.Set(question, topK, resp)
}

func (e *QueryEngine) answer(store domain.VectorStore, question string, topK int) (resp *domain.QueryResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()

	usage := domain.Usage{
		DocumentsSearched: store.Len(),
		TokensIn:          wordCount(question),
	}

	relevant := e.aboveFloor(store.Search(question, topK))
	if len(relevant) == 0 {
		usage.TokensOut = wordCount(domain.NoMatchAnswer)
		return &domain.QueryResponse{
			Answer:     domain.NoMatchAnswer,
			Confidence: 0,
			Sources:    []domain.Source{},
			Usage:      usage,
		}, nil
	}

	conflict := e.resolver.Detect(relevant)
	confidence := e.scorer.Score(relevant, conflict)
	answer := e.synthesizer.Synthesize(relevant, conflict)

	usage.RelevantDocuments = len(relevant)
	usage.TokensOut = wordCount(answer)
	resp = &domain.QueryResponse{
		Answer:     answer,
		Confidence: confidence,
		Sources:    buildSources(relevant),
		Reasoning:  fmt.Sprintf("Answer drawn from %s with no conflicting versions.", relevant[0].Document.Title),
		Usage:      usage,
	}
	if conflict.HasConflict {
		resp.Reasoning = conflict.Reasoning
		resp.Conflict = &domain.ConflictInfo{
			Detected:           true,
			ConflictingSources: conflict.ConflictingSources,
			ResolutionStrategy: domain.ResolutionMostRecent,
			Reasoning:          conflict.Reasoning,
		}
	}
	return resp, nil
}

func (e *QueryEngine) aboveFloor(results []domain.ScoredDocument) []domain.ScoredDocument {
	kept := results[:0:0]
	for _, r := range results {
		if r.Score >= e.floor {
			kept = append(kept, r)
		}
	}
	return kept
}

func (e *QueryEngine) record(outcome string, resp *domain.QueryResponse) {
	if e.metrics == nil {
		return
	}
	if resp == nil {
		e.metrics.RecordQuery(outcome, 0, false)
		return
	}
	e.metrics.RecordQuery(outcome, resp.Confidence, resp.Conflict != nil && outcome != metrics.OutcomeCached)
}

func buildSources(docs []domain.ScoredDocument) []domain.Source {
	sources := make([]domain.Source, len(docs))
	for i, sd := range docs {
		sources[i] = domain.Source{
			Title:     sd.Document.Title,
			Date:      sd.Document.DateString(),
			Version:   sd.Document.Version,
			Category:  sd.Document.Category,
			Relevance: sd.Score,
		}
	}
	return sources
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
