// Package similarity provides the pure scoring functions used by story
// clustering: cosine similarity over embeddings, shingle-based Jaccard
// similarity over titles, and a coarse entity-overlap heuristic.
package similarity

import (
	"math"
	"strings"
	"unicode"
)

// Cosine returns the cosine similarity of two vectors. It returns 0 when the
// lengths differ, either vector is empty, or either norm is zero.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Jaccard returns the Jaccard index of two shingle sets. Two empty sets are
// trivially similar (1); empty versus non-empty is 0. Note this differs from
// TitleJaccard, which treats an empty title as carrying no signal.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for s := range a {
		if _, ok := b[s]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// TitleJaccard compares two titles by bigram shingles over their normalized
// word sequences. An empty title always scores 0, even against another empty
// title; this asymmetry against the generic Jaccard helper is deliberate.
func TitleJaccard(a, b string) float64 {
	sa := Shingles(a, 2)
	sb := Shingles(b, 2)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	return Jaccard(sa, sb)
}

// Shingles extracts the set of word n-grams from normalized text. Text is
// lower-cased and stripped of punctuation before tokenization. Texts shorter
// than n words contribute a single shingle of all their words.
func Shingles(text string, n int) map[string]struct{} {
	words := tokenize(text)
	shingles := make(map[string]struct{})

	if len(words) == 0 {
		return shingles
	}
	if len(words) < n {
		shingles[strings.Join(words, " ")] = struct{}{}
		return shingles
	}

	for i := 0; i+n <= len(words); i++ {
		shingles[strings.Join(words[i:i+n], " ")] = struct{}{}
	}

	return shingles
}

// EntityOverlap returns the Jaccard overlap of coarse named-entity token sets
// extracted from the two texts. Entities are approximated by capitalized
// words that do not start a sentence; this is a cheap heuristic, not NER.
func EntityOverlap(a, b string) float64 {
	ea := extractEntities(a)
	eb := extractEntities(b)
	if len(ea) == 0 && len(eb) == 0 {
		return 1
	}
	if len(ea) == 0 || len(eb) == 0 {
		return 0
	}
	return Jaccard(ea, eb)
}

// Weights balances the three similarity signals. They are normalized by their
// sum, so any consistent proportion yields identical combined scores.
type Weights struct {
	Cosine  float64
	Jaccard float64
	Entity  float64
}

// DefaultWeights mirrors the production scoring mix: vector similarity
// dominates, title overlap corroborates, entity overlap breaks near ties.
func DefaultWeights() Weights {
	return Weights{Cosine: 1.0, Jaccard: 0.6, Entity: 0.4}
}

// Combined returns the weighted average of the three scores under w. Weights
// are normalized internally; a zero weight sum yields 0.
func Combined(cosine, jaccard, entity float64, w Weights) float64 {
	sum := w.Cosine + w.Jaccard + w.Entity
	if sum == 0 {
		return 0
	}
	return (cosine*w.Cosine + jaccard*w.Jaccard + entity*w.Entity) / sum
}

func tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)

	return strings.Fields(cleaned)
}

func extractEntities(text string) map[string]struct{} {
	entities := make(map[string]struct{})
	sentenceStart := true

	for _, word := range strings.Fields(text) {
		trimmed := strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if trimmed == "" {
			continue
		}

		first := []rune(trimmed)[0]
		if unicode.IsUpper(first) && !sentenceStart && len(trimmed) > 1 {
			entities[strings.ToLower(trimmed)] = struct{}{}
		}

		sentenceStart = strings.ContainsAny(word, ".!?")
	}

	return entities
}
