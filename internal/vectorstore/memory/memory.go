package memory

import (
	"sort"
	"sync"

	"policyrag/internal/domain"
	"policyrag/internal/embedding/tfidf"
)

// Storage is an in-memory tf-idf index using brute-force cosine similarity.
//
// Every Add recomputes all document vectors against the new frequency table, so
// the cost of one insert grows with the corpus. That is fine for one-time startup
// ingestion of a small corpus and nothing else.
type Storage struct {
	mu      sync.RWMutex
	docs    []domain.Document
	vectors []tfidf.TermVector // vectors[i] belongs to docs[i]
	df      map[string]int
}

func NewStorage() *Storage {
	return &Storage{df: make(map[string]int)}
}

// Add appends doc, updates document frequencies and rebuilds every vector.
// Documents are not deduplicated by ID.
func (s *Storage) Add(doc domain.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, doc)
	for term := range tfidf.Terms(indexedText(doc)) {
		s.df[term]++
	}
	s.recompute()
}

// AddAll inserts a batch under one lock and recomputes once.
func (s *Storage) AddAll(docs []domain.Document) {
	if len(docs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		s.docs = append(s.docs, doc)
		for term := range tfidf.Terms(indexedText(doc)) {
			s.df[term]++
		}
	}
	s.recompute()
}

// recompute must be called with the write lock held.
func (s *Storage) recompute() {
	vectors := make([]tfidf.TermVector, len(s.docs))
	for i, d := range s.docs {
		vectors[i] = tfidf.Weigh(indexedText(d), s.df, len(s.docs))
	}
	s.vectors = vectors
}

// Search returns up to topK documents ordered by descending cosine similarity to query.
// Ties keep insertion order.
func (s *Storage) Search(query string, topK int) []domain.ScoredDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 || len(s.docs) == 0 {
		return nil
	}
	qv := tfidf.WeighKnown(query, s.df, len(s.docs))
	results := make([]domain.ScoredDocument, len(s.docs))
	for i := range s.docs {
		results[i] = domain.ScoredDocument{Document: s.docs[i], Score: tfidf.Cosine(qv, s.vectors[i])}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK:topK]
}

// AllDocuments returns a copy of the corpus in insertion order.
func (s *Storage) AllDocuments() []domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Document, len(s.docs))
	copy(out, s.docs)
	return out
}

// Len returns the number of indexed documents.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Vocabulary returns the number of distinct indexed terms.
func (s *Storage) Vocabulary() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.df)
}

func (s *Storage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = nil
	s.vectors = nil
	s.df = make(map[string]int)
}

// indexedText is the text a document is indexed under: its title followed by its body.
func indexedText(d domain.Document) string {
	if d.Title == "" {
		return d.Content
	}
	return d.Title + "\n" + d.Content
}
