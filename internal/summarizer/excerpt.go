package summarizer

import (
	"policyrag/internal/conflict"
	"policyrag/internal/domain"
)

// DefaultExcerptLength is the number of characters of a document returned as the answer.
const DefaultExcerptLength = 200

const ellipsis = "..."

// Excerpt answers with the opening of the chosen document: the most recent
// version of a conflicting group, or the top-ranked document otherwise.
type Excerpt struct {
	length int
}

func NewExcerpt(length int) *Excerpt {
	if length <= 0 {
		length = DefaultExcerptLength
	}
	return &Excerpt{length: length}
}

// Synthesize picks the answering document and extracts its excerpt.
func (e *Excerpt) Synthesize(docs []domain.ScoredDocument, c domain.ConflictResult) string {
	if len(docs) == 0 {
		return ""
	}
	return e.Extract(Choose(docs, c).Content)
}

// Extract returns the first length characters of content followed by "..." when it is longer.
func (e *Excerpt) Extract(content string) string {
	runes := []rune(content)
	if len(runes) <= e.length {
		return content
	}
	return string(runes[:e.length]) + ellipsis
}

// Choose returns the document an answer is drawn from. docs must not be empty.
func Choose(docs []domain.ScoredDocument, c domain.ConflictResult) domain.Document {
	if !c.HasConflict {
		return docs[0].Document
	}
	if c.Winner != nil {
		return *c.Winner
	}
	var group []domain.Document
	for _, sd := range docs {
		if sd.Document.Category == c.Category {
			group = append(group, sd.Document)
		}
	}
	if len(group) == 0 {
		return docs[0].Document
	}
	return conflict.MostRecent(group)
}
