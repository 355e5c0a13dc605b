// Package conflict detects competing versions of the same policy in a retrieved set.
package conflict

import (
	"fmt"
	"sort"
	"time"

	"policyrag/internal/domain"
)

// Resolver groups retrieved documents by category and reports the first
// category, in lexicographic order, whose documents carry more than one date.
// Resolution always favours the most recent document.
type Resolver struct{}

func NewResolver() *Resolver { return &Resolver{} }

// Detect inspects docs, which are expected in retrieval-rank order.
func (r *Resolver) Detect(docs []domain.ScoredDocument) domain.ConflictResult {
	if len(docs) < 2 {
		return domain.ConflictResult{}
	}
	groups := make(map[string][]domain.Document)
	for _, sd := range docs {
		groups[sd.Document.Category] = append(groups[sd.Document.Category], sd.Document)
	}
	categories := make([]string, 0, len(groups))
	for c := range groups {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	for _, category := range categories {
		group := groups[category]
		if len(group) < 2 || !hasDistinctDates(group) {
			continue
		}
		winner := MostRecent(group)
		sources := make([]string, len(group))
		for i, d := range group {
			sources[i] = fmt.Sprintf("%s (%s)", d.Title, d.DateString())
		}
		return domain.ConflictResult{
			HasConflict:        true,
			ConflictingSources: sources,
			Reasoning: fmt.Sprintf("Multiple versions of %s policy found. Using most recent version from %s.",
				category, winner.DateString()),
			Category: category,
			Winner:   &winner,
		}
	}
	return domain.ConflictResult{}
}

// MostRecent returns the document with the latest date. Equal dates keep the
// earlier (higher-ranked) document. group must not be empty.
func MostRecent(group []domain.Document) domain.Document {
	best := group[0]
	for _, d := range group[1:] {
		if d.Date.After(best.Date) {
			best = d
		}
	}
	return best
}

func hasDistinctDates(group []domain.Document) bool {
	seen := make(map[time.Time]struct{}, len(group))
	for _, d := range group {
		seen[dayOf(d.Date)] = struct{}{}
		if len(seen) > 1 {
			return true
		}
	}
	return false
}

// dayOf drops the clock part so dates compare as calendar days.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
