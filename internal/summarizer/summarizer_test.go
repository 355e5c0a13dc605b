package summarizer

import (
	"strings"
	"testing"
	"time"

	"policyrag/internal/domain"
)

func dated(title, category, date, content string) domain.Document {
	d, _ := time.Parse(domain.DateLayout, date)
	return domain.Document{ID: title, Title: title, Category: category, Date: d, Content: content}
}

func TestExtract(t *testing.T) {
	e := NewExcerpt(0)
	short := "New employees must complete onboarding within 5 business days."
	if got := e.Extract(short); got != short {
		t.Errorf("short content changed: %q", got)
	}
	exact := strings.Repeat("a", DefaultExcerptLength)
	if got := e.Extract(exact); got != exact {
		t.Errorf("content of exactly %d chars should be unchanged", DefaultExcerptLength)
	}
	long := strings.Repeat("b", DefaultExcerptLength+1)
	got := e.Extract(long)
	if got != strings.Repeat("b", DefaultExcerptLength)+"..." {
		t.Errorf("long content not truncated: %q", got)
	}
}

func TestExtractCountsRunes(t *testing.T) {
	e := NewExcerpt(3)
	if got := e.Extract("éèêë"); got != "éèê..." {
		t.Errorf("Extract = %q, want rune-based truncation", got)
	}
}

func TestSynthesizeWithoutConflictUsesTopDocument(t *testing.T) {
	docs := []domain.ScoredDocument{
		{Document: dated("Top", "a", "2020-01-01", "top content"), Score: 0.9},
		{Document: dated("Other", "b", "2024-01-01", "other content"), Score: 0.5},
	}
	if got := NewExcerpt(0).Synthesize(docs, domain.ConflictResult{}); got != "top content" {
		t.Errorf("Synthesize = %q", got)
	}
}

func TestSynthesizeWithConflictUsesMostRecent(t *testing.T) {
	old := dated("Incident v1", "incident", "2022-07-01", "report within 72 hours")
	latest := dated("Incident v2", "incident", "2023-12-01", "report within 24 hours")
	docs := []domain.ScoredDocument{{Document: old, Score: 0.9}, {Document: latest, Score: 0.8}}

	withWinner := domain.ConflictResult{HasConflict: true, Category: "incident", Winner: &latest}
	if got := NewExcerpt(0).Synthesize(docs, withWinner); got != latest.Content {
		t.Errorf("Synthesize = %q, want latest content", got)
	}
	withoutWinner := domain.ConflictResult{HasConflict: true, Category: "incident"}
	if got := NewExcerpt(0).Synthesize(docs, withoutWinner); got != latest.Content {
		t.Errorf("Synthesize without winner = %q, want latest content", got)
	}
}

func TestSynthesizeEmpty(t *testing.T) {
	if got := NewExcerpt(0).Synthesize(nil, domain.ConflictResult{}); got != "" {
		t.Errorf("expected empty answer, got %q", got)
	}
}

func TestFrequencySummarizer(t *testing.T) {
	text := "Incidents must be reported quickly. Incident reports go to security. Lunch is at noon."
	got, err := NewFrequencySummarizer().Summarize(text, 2)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !strings.Contains(got, "security") {
		t.Errorf("summary should keep the incident sentences, got %q", got)
	}
	if strings.Contains(got, "Lunch") {
		t.Errorf("summary should drop the off-topic sentence, got %q", got)
	}
}

func TestFrequencySummarizerNoSentences(t *testing.T) {
	got, err := NewFrequencySummarizer().Summarize("  no terminal punctuation  ", 3)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "no terminal punctuation" {
		t.Errorf("Summarize = %q", got)
	}
}

func TestCorpus(t *testing.T) {
	docs := []domain.Document{
		dated("A", "a", "2020-01-01", "Onboarding takes five days."),
		dated("B", "b", "2020-01-01", "Onboarding needs a laptop."),
	}
	got, err := Corpus(NewFrequencySummarizer(), docs, 1)
	if err != nil {
		t.Fatalf("Corpus: %v", err)
	}
	if !strings.Contains(got, "Onboarding") {
		t.Errorf("Corpus summary = %q", got)
	}
}
