package tfidf

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// minTermLength is the shortest token kept by the tokenizer; anything of two runes or fewer is dropped.
const minTermLength = 3

// TermVector is a sparse term -> weight map. Vectors built by Weigh are L2-normalized or empty.
type TermVector map[string]float64

// Tokenize lowercases text, replaces every rune that is not a letter, digit or
// whitespace with a space, splits on whitespace and drops short tokens and stopwords.
// Indexing and querying must both go through here or scores stop being comparable.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, strings.ToLower(text))
	raw := strings.Fields(cleaned)
	out := raw[:0]
	for _, t := range raw {
		if utf8.RuneCountInString(t) < minTermLength {
			continue
		}
		if _, isStop := stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Terms returns the distinct terms of text.
func Terms(text string) map[string]struct{} {
	tokens := Tokenize(text)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// IDF is the smoothed inverse document frequency ln((N+1)/(df+1)) + 1.
// The +1 keeps terms shared by every document (including the single document of a
// one-document corpus) at a positive weight. It is zero for an empty corpus.
func IDF(totalDocs, docFreq int) float64 {
	if totalDocs <= 0 {
		return 0
	}
	if docFreq < 0 {
		docFreq = 0
	}
	if docFreq > totalDocs {
		docFreq = totalDocs
	}
	return math.Log(float64(totalDocs+1)/float64(docFreq+1)) + 1.0
}

// Weigh builds the normalized tf-idf vector of an indexed document against a
// document frequency table that already counts it.
func Weigh(text string, df map[string]int, totalDocs int) TermVector {
	return weigh(Tokenize(text), df, totalDocs, false)
}

// WeighKnown is Weigh restricted to terms present in df; out-of-vocabulary query
// terms contribute nothing, not even to the normalization.
func WeighKnown(text string, df map[string]int, totalDocs int) TermVector {
	return weigh(Tokenize(text), df, totalDocs, true)
}

func weigh(tokens []string, df map[string]int, totalDocs int, knownOnly bool) TermVector {
	vec := make(TermVector)
	if len(tokens) == 0 {
		return vec
	}
	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}
	total := float64(len(tokens))
	for term, count := range counts {
		freq, ok := df[term]
		if knownOnly && !ok {
			continue
		}
		w := (float64(count) / total) * IDF(totalDocs, freq)
		if w > 0 {
			vec[term] = w
		}
	}
	normalize(vec)
	return vec
}

// normalize scales v to unit length in place; a zero vector is left empty.
func normalize(v TermVector) {
	norm := 0.0
	for _, w := range v {
		norm += w * w
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		for k := range v {
			delete(v, k)
		}
		return
	}
	for k := range v {
		v[k] /= norm
	}
}

// Cosine returns the similarity of two normalized vectors: their dot product over shared terms,
// clamped to [0,1]. Empty or nil vectors score 0.
func Cosine(a, b TermVector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) < len(a) {
		a, b = b, a
	}
	sum := 0.0
	for term, wa := range a {
		if wb, ok := b[term]; ok {
			sum += wa * wb
		}
	}
	switch {
	case sum < 0:
		return 0
	case sum > 1:
		return 1
	}
	return sum
}

// IsStopword reports whether term is excluded from indexing.
func IsStopword(term string) bool {
	_, ok := stopwords[term]
	return ok
}

var stopwords = defaultStopwords()

func defaultStopwords() map[string]struct{} {
	words := []string{
		"the", "and", "for", "are", "but", "not", "you", "all", "can", "her", "was", "one", "our", "out", "day", "get", "has", "him", "his", "how", "its", "may", "she", "who", "will", "with", "this", "that", "from", "have", "been", "they", "what", "when", "your", "more", "into", "than", "some", "time", "very", "would",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
