// Package tagging assigns category, platform, theme and company labels to items.
package tagging

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/domain"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/logging"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/ports"
)

// ExcerptLimit bounds the body excerpt sent to the classification service, in characters.
const ExcerptLimit = 500

// Outcomes reported to the observer for every AI pass.
const (
	AIOutcomeSkipped  = "skipped"
	AIOutcomeCacheHit = "cache_hit"
	AIOutcomeOK       = "ok"
	AIOutcomeError    = "error"
)

// Tagger runs the rule pass and, when a classifier is configured, the AI pass.
type Tagger struct {
	classifier ports.Classifier
	cache      ports.TagCache
	observer   ports.IngestObserver
	logger     *slog.Logger
}

// Option customises a Tagger.
type Option func(*Tagger)

// WithCache memoises AI results.
func WithCache(cache ports.TagCache) Option {
	return func(t *Tagger) { t.cache = cache }
}

// WithObserver reports AI pass outcomes.
func WithObserver(observer ports.IngestObserver) Option {
	return func(t *Tagger) { t.observer = observer }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tagger) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New builds a Tagger. A nil classifier disables the AI pass.
func New(classifier ports.Classifier, opts ...Option) *Tagger {
	t := &Tagger{
		classifier: classifier,
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Tag runs both passes and merges them.
func (t *Tagger) Tag(ctx context.Context, title, body, sourceType string) domain.TagBundle {
	return Merge(Rules(title, body, sourceType), t.AI(ctx, title, body))
}

// AI asks the classification service for companies and themes. It never fails:
// a missing classifier, network error, bad status or unparsable reply yields empty tags.
func (t *Tagger) AI(ctx context.Context, title, body string) ports.AITags {
	empty := ports.AITags{Company: []string{}, Theme: []string{}}
	if t == nil || t.classifier == nil {
		t.observe(AIOutcomeSkipped)
		return empty
	}

	req := ports.ClassifyRequest{Title: title, Excerpt: Excerpt(body)}
	key := CacheKey(req)

	if t.cache != nil {
		cached, ok, err := t.cache.Get(ctx, key)
		if err != nil {
			t.logger.Warn("tag cache read failed", "error", err)
		} else if ok {
			t.observe(AIOutcomeCacheHit)
			return cached
		}
	}

	raw, err := t.classifier.Classify(ctx, req)
	if err != nil {
		t.observe(AIOutcomeError)
		t.logger.Warn("ai tagging failed", "title", title, "error", err)
		return empty
	}

	tags, err := ParseResponse(raw)
	if err != nil {
		t.observe(AIOutcomeError)
		t.logger.Warn("ai tagging returned unparsable output", "title", title, "error", err)
		return empty
	}
	t.observe(AIOutcomeOK)

	if t.cache != nil {
		if err := t.cache.Set(ctx, key, tags); err != nil {
			t.logger.Warn("tag cache write failed", "error", err)
		}
	}

	return tags
}

func (t *Tagger) observe(outcome string) {
	if t != nil && t.observer != nil {
		t.observer.ObserveAITagging(outcome)
	}
}

// Merge combines rule and AI output: category and platform come from rules only,
// theme is the union of both passes, company comes from AI only.
func Merge(rules domain.TagBundle, ai ports.AITags) domain.TagBundle {
	return domain.TagBundle{
		Category: nonNil(domain.Union(rules.Category)),
		Platform: nonNil(domain.Union(rules.Platform)),
		Theme:    nonNil(domain.Union(rules.Theme, ai.Theme)),
		Company:  nonNil(domain.Union(ai.Company)),
	}
}

// ParseResponse decodes the classifier reply, tolerating markdown code fences.
func ParseResponse(raw string) (ports.AITags, error) {
	content := stripFences(raw)

	var parsed struct {
		Companies []string `json:"companies"`
		Themes    []string `json:"themes"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ports.AITags{}, eris.Wrap(err, "tagging: decode classifier output")
	}

	return ports.AITags{
		Company: nonNil(domain.Union(parsed.Companies)),
		Theme:   nonNil(domain.Union(parsed.Themes)),
	}, nil
}

// Excerpt returns the first ExcerptLimit characters of body.
func Excerpt(body string) string {
	runes := []rune(body)
	if len(runes) <= ExcerptLimit {
		return body
	}
	return string(runes[:ExcerptLimit])
}

// CacheKey identifies a classification request.
func CacheKey(req ports.ClassifyRequest) string {
	sum := sha256.Sum256([]byte(req.Title + "\x00" + req.Excerpt))
	return hex.EncodeToString(sum[:])
}

func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```JSON")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}
	return strings.TrimSpace(content)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
