// Package confidence turns retrieval and conflict signals into a single [0,1] reliability value.
package confidence

import (
	"math"

	"policyrag/internal/domain"
)

const (
	// ConflictFactor scales the base score when competing versions were found.
	ConflictFactor = 0.8
	// ConflictFloor is the lowest confidence reported for a conflict backed by real sources.
	ConflictFloor = 0.5
	// Ceiling caps conflict-free confidence, leaving room for residual uncertainty.
	Ceiling = 0.95
)

// Scorer derives confidence from the top document's similarity.
type Scorer struct{}

func NewScorer() *Scorer { return &Scorer{} }

// Score computes the confidence for a ranked retrieval set.
//
//	base     = top similarity, or min(0.9, 0.5 + 0.1*len(docs)) when it is unavailable
//	conflict = max(0.5, base*0.8)
//	clean    = min(0.95, base)
func (s *Scorer) Score(docs []domain.ScoredDocument, conflict domain.ConflictResult) float64 {
	if len(docs) == 0 {
		return 0
	}
	base := docs[0].Score
	if base < 0 || math.IsNaN(base) {
		base = Fallback(len(docs))
	}
	var score float64
	if conflict.HasConflict {
		score = math.Max(ConflictFloor, base*ConflictFactor)
	} else {
		score = math.Min(Ceiling, base)
	}
	return clamp(score)
}

// Fallback is the count-based confidence used when similarity scores are unavailable.
func Fallback(retrieved int) float64 {
	return math.Min(0.9, 0.5+0.1*float64(retrieved))
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
