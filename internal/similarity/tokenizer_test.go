package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractWords(t *testing.T) {
	t.Parallel()

	words := ExtractWords("EA acquires mobile studio for $500M!")

	assert.Equal(t, map[string]struct{}{
		"electronic arts": {},
		"acquire":         {},
		"mobile":          {},
		"studio":          {},
		"$500m":           {},
	}, words)
}

func TestExtractWordsCollapsesCompanyFragments(t *testing.T) {
	t.Parallel()

	words := ExtractWords("Electronic Arts buys mobile studio in $500M deal")

	assert.Contains(t, words, "electronic arts")
	assert.Contains(t, words, "acquire")
	assert.NotContains(t, words, "electronic")
	assert.NotContains(t, words, "arts")
	assert.NotContains(t, words, "in")
}

func TestExtractWordsDropsShortTokensAndKeepsPercent(t *testing.T) {
	t.Parallel()

	words := ExtractWords("Q3 revenue up 12% — a big x quarter")

	assert.Contains(t, words, "q3")
	assert.Contains(t, words, "12%")
	assert.Contains(t, words, "revenue")
	assert.NotContains(t, words, "x")
	assert.NotContains(t, words, "a")
	assert.NotContains(t, words, "up")
}

func TestExtractWordsEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, ExtractWords(""))
	assert.Empty(t, ExtractWords("the a of -- !!"))
}

func TestJaccard(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b map[string]struct{}
		want float64
	}{
		{name: "both empty", a: toSet(), b: toSet(), want: 0},
		{name: "one empty", a: toSet("x"), b: toSet(), want: 0},
		{name: "identical", a: toSet("x", "y"), b: toSet("x", "y"), want: 1},
		{name: "half", a: toSet("x", "y"), b: toSet("y", "z", "x", "w"), want: 0.5},
		{name: "disjoint", a: toSet("x"), b: toSet("y"), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, Jaccard(tt.a, tt.b), 1e-9)
			assert.InDelta(t, Jaccard(tt.a, tt.b), Jaccard(tt.b, tt.a), 1e-12)
		})
	}
}

func TestJaccardSymmetricOnHeadlines(t *testing.T) {
	t.Parallel()

	titles := []string{
		"EA acquires mobile studio for $500M",
		"Electronic Arts buys mobile studio in $500M deal",
		"Ubisoft lays off 200 staff",
		"Tencent raises stake in Ubisoft subsidiary",
		"",
	}
	for _, x := range titles {
		for _, y := range titles {
			a, b := ExtractWords(x), ExtractWords(y)
			assert.Equal(t, Jaccard(a, b), Jaccard(b, a), "%q vs %q", x, y)
		}
	}
}

func TestScenarioHeadlinesAreSimilar(t *testing.T) {
	t.Parallel()

	a := ExtractWords("EA acquires mobile studio for $500M")
	b := ExtractWords("Electronic Arts buys mobile studio in $500M deal")

	// {electronic arts, acquire, mobile, studio, $500m} vs the same plus "deal"
	assert.InDelta(t, 5.0/6.0, Jaccard(a, b), 1e-9)
}
