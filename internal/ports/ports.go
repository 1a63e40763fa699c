package ports

import (
	"context"
	"time"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/domain"
)

// FeedFetcher pulls and parses the feed document of one source.
type FeedFetcher interface {
	Fetch(ctx context.Context, source domain.Source) ([]domain.FeedEntry, error)
}

// ItemStore persists items and their tags.
type ItemStore interface {
	// UpsertItems inserts rows keyed on (source, external id), ignoring duplicates,
	// and returns only the rows that were actually inserted.
	UpsertItems(ctx context.Context, rows []domain.Item) ([]domain.Item, error)
	UpdateItemTags(ctx context.Context, itemID string, tags domain.TagBundle) error
	// UpsertNormalizedTags ignores rows whose (item, dimension, value) already exists.
	UpsertNormalizedTags(ctx context.Context, rows []domain.NormalizedTag) error
}

// ItemReader loads items for the story read path, joined with source name and type.
type ItemReader interface {
	ListRecentItems(ctx context.Context, since time.Time, limit int) ([]domain.Item, error)
}

// SourceStore reads sources and records their health.
type SourceStore interface {
	ListActiveSources(ctx context.Context) ([]domain.Source, error)
	GetSource(ctx context.Context, id string) (domain.Source, error)
	UpsertSource(ctx context.Context, source domain.Source) error
	UpdateSourceFetchTime(ctx context.Context, id string, at time.Time) error
	UpdateSourceHealth(ctx context.Context, id string, update domain.HealthUpdate) error
}

// LogStore appends ingestion audit records.
type LogStore interface {
	AppendIngestionLog(ctx context.Context, entry domain.IngestionLogEntry) error
}

// Store bundles every persistence port implemented by a single backend.
type Store interface {
	ItemStore
	ItemReader
	SourceStore
	LogStore
}

// ClassifyRequest is the bounded payload sent to the text-classification service.
type ClassifyRequest struct {
	Title   string
	Excerpt string
}

// Classifier sends a classification request and returns the raw model output,
// expected to be a JSON object with "companies" and "themes" arrays.
type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (string, error)
}

// AITags is the enrichment contributed by the classification service.
type AITags struct {
	Company []string `json:"companies"`
	Theme   []string `json:"themes"`
}

// TagCache memoises classification results.
type TagCache interface {
	Get(ctx context.Context, key string) (AITags, bool, error)
	Set(ctx context.Context, key string, tags AITags) error
}

// IngestObserver receives per-source results, e.g. for metrics.
type IngestObserver interface {
	ObserveIngest(result domain.IngestResult)
	ObserveAITagging(outcome string)
}

// Notifier streams selected digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
