// Package importance scores items and story clusters for editorial ranking.
package importance

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/domain"
)

// Tier names an importance bracket.
type Tier string

const (
	TierCritical Tier = "critical"
	TierHigh     Tier = "high"
	TierMedium   Tier = "medium"
	TierLow      Tier = "low"
)

// Tier thresholds, inclusive lower bounds.
const (
	CriticalThreshold = 0.65
	HighThreshold     = 0.45
	MediumThreshold   = 0.25
)

// categoryWeights holds the contribution of each category; unlisted categories add nothing.
var categoryWeights = map[string]float64{
	"earnings":    0.30,
	"m-and-a":     0.30,
	"fundraising": 0.25,
	"shutdown":    0.20,
	"layoffs":     0.20,
	"regulation":  0.15,
	"launch":      0.10,
	"analysis":    0.08,
	"interview":   0.06,
	"opinion":     0.04,
	"podcast":     0.04,
}

var sourceWeights = map[string]float64{
	domain.SourceTypeAnalysis:   0.15,
	domain.SourceTypeNewsletter: 0.12,
	domain.SourceTypeNews:       0.10,
	domain.SourceTypePodcast:    0.08,
}

const (
	// unknownSourceWeight applies to a source type missing from sourceWeights.
	unknownSourceWeight = 0.10

	// absentSourceWeight applies when the item carries no source type at all.
	absentSourceWeight = 0.08

	financialHitWeight = 0.05
	financialCap       = 0.15
	richnessPerDim     = 0.02
	richnessCap        = 0.08

	multiSourceBonus    = 0.15
	extraSourceBonus    = 0.05
	relatedBonusPerItem = 0.02
	relatedBonusCap     = 0.10
)

var financialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)[$€£]\s?\d+(?:[.,]\d+)?\s?(?:k|m|b|bn|mn|million|billion|thousand)?\b`),
	regexp.MustCompile(`\d+(?:\.\d+)?\s?%`),
	regexp.MustCompile(`(?i)\b(?:revenue|earnings|profit|loss|quarterly|guidance|ipo|valuation|bookings)\b`),
	regexp.MustCompile(`(?i)\b(?:acquir\w*|merger|merges?|buys|bought|takeover|shut(?:s|ting)?\s+down|closes|closure)\b`),
	regexp.MustCompile(`(?i)\b(?:raises|raised|funding|series\s+[a-e]|seed\s+round|investment)\b`),
}

// Factor is one itemized contribution to a score.
type Factor struct {
	Label  string  `json:"label"`
	Value  float64 `json:"value"`
	Detail string  `json:"detail,omitempty"`
}

// Breakdown explains a score. Score is the clamped sum of Factors.
type Breakdown struct {
	Factors []Factor `json:"factors"`
	Score   float64  `json:"score"`
}

// ScoreItem returns an item's importance in [0, 1].
func ScoreItem(item domain.Item) float64 {
	return ItemBreakdown(item).Score
}

// ScoreCluster returns a cluster's importance in [0, 1].
func ScoreCluster(cluster domain.StoryCluster) float64 {
	return ClusterBreakdown(cluster).Score
}

// ItemBreakdown itemizes an item score.
func ItemBreakdown(item domain.Item) Breakdown {
	factors := []Factor{
		categoryFactor(item.Tags.Category),
		sourceFactor(item.SourceType),
		companyFactor(item.Tags.Company),
		financialFactor(item.Title),
		richnessFactor(item.Tags),
	}
	return Breakdown{Factors: factors, Score: clamp(sum(factors))}
}

// ClusterBreakdown itemizes a cluster score: the strongest member score plus
// corroboration and coverage bonuses. It is the single source of ScoreCluster.
func ClusterBreakdown(cluster domain.StoryCluster) Breakdown {
	best := cluster.Lead
	bestScore := ScoreItem(best)
	for _, related := range cluster.Related {
		if s := ScoreItem(related); s > bestScore {
			best, bestScore = related, s
		}
	}

	factors := []Factor{{Label: "Top article", Value: bestScore, Detail: best.Title}}

	if cluster.MultiSource {
		bonus := multiSourceBonus
		if extra := len(cluster.Sources) - 2; extra > 0 {
			bonus += float64(extra) * extraSourceBonus
		}
		factors = append(factors, Factor{
			Label:  "Multi-source",
			Value:  bonus,
			Detail: fmt.Sprintf("%d sources: %s", len(cluster.Sources), strings.Join(cluster.Sources, ", ")),
		})
	}

	if n := len(cluster.Related); n > 0 {
		factors = append(factors, Factor{
			Label:  "Related coverage",
			Value:  math.Min(float64(n)*relatedBonusPerItem, relatedBonusCap),
			Detail: fmt.Sprintf("%d related", n),
		})
	}

	return Breakdown{Factors: factors, Score: clamp(sum(factors))}
}

// TierFor maps a score onto its tier.
func TierFor(score float64) Tier {
	switch {
	case score >= CriticalThreshold:
		return TierCritical
	case score >= HighThreshold:
		return TierHigh
	case score >= MediumThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// Rank orders tiers from most to least important.
func (t Tier) Rank() int {
	switch t {
	case TierCritical:
		return 3
	case TierHigh:
		return 2
	case TierMedium:
		return 1
	default:
		return 0
	}
}

// ParseTier resolves a tier name, defaulting to low.
func ParseTier(s string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierCritical:
		return TierCritical
	case TierHigh:
		return TierHigh
	case TierMedium:
		return TierMedium
	default:
		return TierLow
	}
}

func categoryFactor(categories []string) Factor {
	var best float64
	var label string
	for _, c := range categories {
		if w := categoryWeights[c]; w > best {
			best, label = w, c
		}
	}
	return Factor{Label: "Category", Value: best, Detail: label}
}

func sourceFactor(sourceType string) Factor {
	if sourceType == "" {
		return Factor{Label: "Source authority", Value: absentSourceWeight, Detail: "unknown source"}
	}
	w, ok := sourceWeights[strings.ToLower(sourceType)]
	if !ok {
		w = unknownSourceWeight
	}
	return Factor{Label: "Source authority", Value: w, Detail: sourceType}
}

func companyFactor(companies []string) Factor {
	n := len(domain.Union(companies))
	var v float64
	switch {
	case n >= 3:
		v = 0.15
	case n == 2:
		v = 0.10
	case n == 1:
		v = 0.05
	}
	return Factor{Label: "Companies", Value: v, Detail: fmt.Sprintf("%d tagged", n)}
}

func financialFactor(title string) Factor {
	hits := 0
	for _, p := range financialPatterns {
		if p.MatchString(title) {
			hits++
		}
	}
	return Factor{
		Label:  "Financial signals",
		Value:  math.Min(float64(hits)*financialHitWeight, financialCap),
		Detail: fmt.Sprintf("%d matched", hits),
	}
}

func richnessFactor(tags domain.TagBundle) Factor {
	n := tags.PopulatedDimensions()
	return Factor{
		Label:  "Tag richness",
		Value:  math.Min(float64(n)*richnessPerDim, richnessCap),
		Detail: fmt.Sprintf("%d dimensions", n),
	}
}

func sum(factors []Factor) float64 {
	var total float64
	for _, f := range factors {
		total += f.Value
	}
	return total
}

// scorePrecision rounds summed weights so scores land exactly on tier thresholds.
const scorePrecision = 1e6

func clamp(v float64) float64 {
	v = math.Round(v*scorePrecision) / scorePrecision
	return math.Max(0, math.Min(1, v))
}
