package domain

import (
	"context"
	"time"
)

// DateLayout is the calendar-date format used for document dates on the wire and in citations.
const DateLayout = "2006-01-02"

// ResolutionMostRecent is the only conflict resolution policy: prefer the latest-dated version.
const ResolutionMostRecent = "most_recent"

// NoMatchAnswer is returned when nothing in the corpus is relevant to a question.
const NoMatchAnswer = "No relevant information found"

// Document is one policy document in the corpus.
// Documents that share a Category but differ in Date are competing versions of the same policy.
type Document struct {
	ID       string
	Title    string
	Content  string
	Date     time.Time
	Version  string
	Category string
}

// DateString renders the document date as YYYY-MM-DD.
func (d Document) DateString() string {
	if d.Date.IsZero() {
		return ""
	}
	return d.Date.Format(DateLayout)
}

// NoScore marks a ScoredDocument whose similarity is unknown, e.g. one produced by a
// retrieval path that does not rank by cosine similarity.
const NoScore = -1.0

// ScoredDocument is a retrieved document with its cosine similarity to the query.
type ScoredDocument struct {
	Document Document
	Score    float64
}

// ConflictResult describes competing versions found in a retrieved set.
type ConflictResult struct {
	HasConflict        bool
	ConflictingSources []string
	Reasoning          string
	Category           string
	// Winner is the most recent document of the conflicting group; nil when there is no conflict.
	Winner *Document
}

// Source is a citation in a query response.
type Source struct {
	Title     string  `json:"title"`
	Date      string  `json:"date"`
	Version   string  `json:"version"`
	Category  string  `json:"category,omitempty"`
	Relevance float64 `json:"relevance"`
}

// ConflictInfo is the caller-facing view of a detected conflict.
type ConflictInfo struct {
	Detected           bool     `json:"detected"`
	ConflictingSources []string `json:"conflictingSources"`
	ResolutionStrategy string   `json:"resolutionStrategy"`
	Reasoning          string   `json:"reasoning"`
}

// Usage carries bookkeeping about how a response was produced.
type Usage struct {
	DocumentsSearched int   `json:"documentsSearched"`
	RelevantDocuments int   `json:"relevantDocuments"`
	LatencyMs         int64 `json:"latencyMs"`
	TokensIn          int   `json:"tokensIn"`
	TokensOut         int   `json:"tokensOut"`
}

// QueryResponse is the result of one question/answer cycle.
type QueryResponse struct {
	Answer     string        `json:"answer"`
	Confidence float64       `json:"confidence"`
	Sources    []Source      `json:"sources"`
	Reasoning  string        `json:"reasoning,omitempty"`
	Conflict   *ConflictInfo `json:"-"`
	Usage      Usage         `json:"-"`
}

// VectorStore indexes documents and answers top-K similarity queries.
type VectorStore interface {
	Add(doc Document)
	Search(query string, topK int) []ScoredDocument
	AllDocuments() []Document
	Clear()
	Len() int
}

// ConflictResolver inspects a retrieved set for competing policy versions.
type ConflictResolver interface {
	Detect(docs []ScoredDocument) ConflictResult
}

// ConfidenceScorer derives a [0,1] reliability value from retrieval and conflict signals.
type ConfidenceScorer interface {
	Score(docs []ScoredDocument, conflict ConflictResult) float64
}

// AnswerSynthesizer produces the textual answer from the retrieved set.
type AnswerSynthesizer interface {
	Synthesize(docs []ScoredDocument, conflict ConflictResult) string
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// QueryService defines the operations exposed by the application core.
type QueryService interface {
	AddDocument(doc Document)
	Search(question string, topK int) []ScoredDocument
	// ProcessQuery answers a question; topK <= 0 selects the configured default.
	ProcessQuery(ctx context.Context, question string, topK int) (*QueryResponse, error)
	Documents() []Document
}
