package domain

import (
	"time"

	"github.com/rotisserie/eris"
)

// ErrSourceNotFound is returned when a source id is unknown.
var ErrSourceNotFound = eris.New("source not found")

// Source types recognised by the tagger and the scorer.
const (
	SourceTypeNews       = "news"
	SourceTypeNewsletter = "newsletter"
	SourceTypeAnalysis   = "analysis"
	SourceTypePodcast    = "podcast"
)

// DefaultFetcher is the fetch strategy used when a source names none.
const DefaultFetcher = "rss"

// Source is a configured feed together with its health bookkeeping.
type Source struct {
	ID      string
	Name    string
	FeedURL string
	SiteURL string
	Type    string
	Fetcher string
	Active  bool

	LastFetchedAt     *time.Time
	LastError         string
	ConsecutiveErrors int
	LastSuccessAt     *time.Time
}

// Healthy reports whether the last ingestion attempt succeeded.
func (s Source) Healthy() bool {
	return s.ConsecutiveErrors == 0
}

// FetcherName resolves the fetch strategy, defaulting to rss.
func (s Source) FetcherName() string {
	if s.Fetcher == "" {
		return DefaultFetcher
	}
	return s.Fetcher
}

// HealthUpdate is written after every ingestion attempt. A failed attempt
// increments the stored consecutive error count in place; a successful one resets
// it and stamps LastSuccessAt. LastSuccessAt is nil for failed attempts.
type HealthUpdate struct {
	Failed        bool
	LastError     string
	LastSuccessAt *time.Time
}
