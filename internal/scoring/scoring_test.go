package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldScore(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		fields []string
		want   float64
	}{
		{"Exact", "chrome", []string{"Chrome"}, ExactScore},
		{"ExactIgnoresSurroundingSpace", "  chrome ", []string{"chrome"}, ExactScore},
		{"QueryCaseAndTabsNormalized", "\tCHROME  ", []string{"Chrome"}, ExactScore},
		{"Prefix", "chr", []string{"Chrome"}, PrefixScore},
		{"Substring", "rom", []string{"Chrome"}, SubstringScore},
		{"NoMatch", "xyz", []string{"Chrome"}, 0},
		{"EmptyQuery", "", []string{"Chrome"}, 0},
		{"NoFields", "chrome", nil, 0},
		{"BestFieldWins", "maps", []string{"Google Maps", "maps"}, ExactScore},
		{"PrefixBeatsSubstring", "go", []string{"Argo", "Google"}, PrefixScore},
		{"EmptyFieldIgnored", "a", []string{"", "Bar"}, SubstringScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FieldScore(tt.query, tt.fields...))
		})
	}
}

func TestFieldScore_Monotonic(t *testing.T) {
	field := "calendar"
	exact := FieldScore("calendar", field)
	prefix := FieldScore("cal", field)
	substring := FieldScore("end", field)
	none := FieldScore("zzz", field)

	assert.GreaterOrEqual(t, exact, prefix)
	assert.GreaterOrEqual(t, prefix, substring)
	assert.GreaterOrEqual(t, substring, none)

	allowed := []float64{0, SubstringScore, PrefixScore, ExactScore}
	for _, q := range []string{"c", "ca", "cale", "calendar", "lend", "dar", "x", "calendars"} {
		assert.Contains(t, allowed, FieldScore(q, field), q)
	}
}

func TestClampWeight(t *testing.T) {
	assert.Equal(t, 0.0, ClampWeight(-0.5))
	assert.Equal(t, 0.0, ClampWeight(math.NaN()))
	assert.Equal(t, 0.0, ClampWeight(math.Inf(-1)))
	assert.Equal(t, 1.0, ClampWeight(1.7))
	assert.Equal(t, 1.0, ClampWeight(math.Inf(1)))
	assert.Equal(t, 0.3, ClampWeight(0.3))

	assert.Equal(t, 0.0, ClampOptional(nil))
	w := 2.0
	assert.Equal(t, 1.0, ClampOptional(&w))
}

func TestTotalScore(t *testing.T) {
	assert.InDelta(t, 1.0, TotalScore(ExactScore, 1), 1e-12)
	assert.InDelta(t, 0.6, TotalScore(ExactScore, 0), 1e-12)
	assert.InDelta(t, 0.552+0.2, TotalScore(PrefixScore, 0.5), 1e-12)

	for _, fs := range []float64{0, SubstringScore, PrefixScore, ExactScore} {
		for _, w := range []float64{-3, 0, 0.15, 0.99, 1, 42, math.NaN()} {
			s := TotalScore(fs, w)
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	}

	assert.InDelta(t, WeightShare, TotalScore(PrefixScore, 1)-TotalScore(PrefixScore, 0), 1e-12)
}

func TestRank_StableDescending(t *testing.T) {
	type item struct {
		name  string
		score float64
	}
	items := []item{{"a", 0.5}, {"b", 0.9}, {"c", 0.5}, {"d", 0.9}, {"e", 0.1}}

	Rank(items, func(i item) float64 { return i.score })

	var names []string
	for _, i := range items {
		names = append(names, i.name)
	}
	assert.Equal(t, []string{"b", "d", "a", "c", "e"}, names)
}
