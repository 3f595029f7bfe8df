// Package similarity provides the text-similarity and weighted-scoring
// primitives shared by the harmonizer and the conflict detector.
package similarity

import "strings"

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"to": true, "of": true, "in": true, "on": true, "for": true,
	"is": true, "are": true, "be": true, "with": true, "your": true,
	"you": true, "it": true, "this": true, "that": true, "at": true,
	"by": true, "from": true,
}

// Tokenize lowercases the input, splits on non-alphanumeric runs and drops
// common stopwords.
func Tokenize(s string) []string {
	s = strings.ToLower(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if !stopwords[f] {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// TokenOverlap returns the Jaccard coefficient over the token sets of the two
// strings, in [0,1]. Two empty token sets score 0.
func TokenOverlap(a, b string) float64 {
	setA := make(map[string]bool)
	for _, t := range Tokenize(a) {
		setA[t] = true
	}
	setB := make(map[string]bool)
	for _, t := range Tokenize(b) {
		setB[t] = true
	}
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}
	intersection := 0
	for t := range setA {
		if setB[t] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// LevenshteinRatio returns 1 - editDistance/maxLen over the lowercased
// strings, in [0,1]. Two empty strings score 1.
func LevenshteinRatio(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(maxLen)
}

// levenshtein computes the edit distance with a two-row matrix.
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// TextScore is the normalized text-similarity score used for dedup and
// conflict detection: the better of the token-overlap and edit-distance views.
func TextScore(a, b string) float64 {
	overlap := TokenOverlap(a, b)
	ratio := LevenshteinRatio(a, b)
	if overlap > ratio {
		return overlap
	}
	return ratio
}

// Directional keyword heuristics: advice text either pushes toward more of a
// resource or toward less of it.
var (
	increaseKeywords = []string{
		"increase", "more", "accept", "take on", "expand", "grow", "add",
		"raise", "boost", "overtime", "additional", "extra",
	}
	decreaseKeywords = []string{
		"reduce", "less", "cut", "decrease", "limit", "scale back", "fewer",
		"lower", "drop", "quit", "pause", "rest",
	}
)

// Direction classifies advice text as pushing toward more (+1) or less (-1)
// of a resource, or neither (0).
func Direction(text string) int {
	lower := strings.ToLower(text)
	direction := 0
	for _, kw := range increaseKeywords {
		if strings.Contains(lower, kw) {
			direction++
			break
		}
	}
	for _, kw := range decreaseKeywords {
		if strings.Contains(lower, kw) {
			direction--
			break
		}
	}
	return direction
}

// OppositeDirections reports whether two pieces of advice pull a shared
// resource in opposite directions.
func OppositeDirections(a, b string) bool {
	return Direction(a)*Direction(b) < 0
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// WeightedMean returns the weighted arithmetic mean of values. Weights <= 0
// count as 1.0. An empty input returns 0.
func WeightedMean(values, weights []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum, weightSum float64
	for i, v := range values {
		w := 1.0
		if i < len(weights) && weights[i] > 0 {
			w = weights[i]
		}
		sum += v * w
		weightSum += w
	}
	if weightSum == 0 {
		return 0
	}
	return sum / weightSum
}
