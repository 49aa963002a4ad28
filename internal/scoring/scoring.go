package scoring

import (
	"math"
	"sort"
	"strings"

	"github.com/dshills/launchsearch/internal/classifier"
)

// Field match scores
const (
	ExactScore     = 1.0
	PrefixScore    = 0.92
	SubstringScore = 0.74
)

// Blend between text relevance and usage weight. Weight can add at most WeightShare.
const (
	FieldShare  = 0.6
	WeightShare = 0.4
)

// FieldScore returns the best match score of query over fields: 1.0 exact,
// 0.92 prefix, 0.74 substring, 0 otherwise. An empty query scores 0.
func FieldScore(query string, fields ...string) float64 {
	q := classifier.Normalize(query)
	if q == "" {
		return 0
	}

	best := 0.0
	for _, field := range fields {
		f := strings.ToLower(field)
		if f == "" {
			continue
		}
		switch {
		case f == q:
			return ExactScore
		case strings.HasPrefix(f, q):
			best = math.Max(best, PrefixScore)
		case strings.Contains(f, q):
			best = math.Max(best, SubstringScore)
		}
	}
	return best
}

// ClampWeight clamps w to [0,1]. NaN is treated as 0.
func ClampWeight(w float64) float64 {
	if math.IsNaN(w) || w <= 0 {
		return 0
	}
	if w >= 1 {
		return 1
	}
	return w
}

// ClampOptional clamps a possibly missing weight; nil yields 0
func ClampOptional(w *float64) float64 {
	if w == nil {
		return 0
	}
	return ClampWeight(*w)
}

// TotalScore blends a field score with a usage weight
func TotalScore(fieldScore, weight float64) float64 {
	return fieldScore*FieldShare + ClampWeight(weight)*WeightShare
}

// Rank sorts items by score descending, keeping the input order of ties
func Rank[T any](items []T, score func(T) float64) {
	sort.SliceStable(items, func(i, j int) bool {
		return score(items[i]) > score(items[j])
	})
}
