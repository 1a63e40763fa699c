package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/domain"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/logging"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/ports"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/tagging"
)

const (
	defaultSourceConcurrency = 8
	defaultTagConcurrency    = 4
)

// CoordinatorDeps wires the driven adapters used by ingestion.
type CoordinatorDeps struct {
	Fetcher  ports.FeedFetcher
	Sources  ports.SourceStore
	Items    ports.ItemStore
	Logs     ports.LogStore
	Tagger   *tagging.Tagger
	Observer ports.IngestObserver
	Logger   *slog.Logger

	// SourceConcurrency bounds how many sources are ingested at once.
	SourceConcurrency int
	// TagConcurrency bounds parallel tagging of new items within one source.
	TagConcurrency int
	Now            func() time.Time
}

// Coordinator fetches every active source, stores new items, tags them and
// keeps per-source health up to date.
type Coordinator struct {
	fetcher  ports.FeedFetcher
	sources  ports.SourceStore
	items    ports.ItemStore
	logs     ports.LogStore
	tagger   *tagging.Tagger
	observer ports.IngestObserver
	logger   *slog.Logger

	sourceConcurrency int
	tagConcurrency    int
	now               func() time.Time
}

// NewCoordinator constructs the ingestion component.
func NewCoordinator(deps CoordinatorDeps) *Coordinator {
	c := &Coordinator{
		fetcher:           deps.Fetcher,
		sources:           deps.Sources,
		items:             deps.Items,
		logs:              deps.Logs,
		tagger:            deps.Tagger,
		observer:          deps.Observer,
		logger:            logging.OrDiscard(deps.Logger),
		sourceConcurrency: deps.SourceConcurrency,
		tagConcurrency:    deps.TagConcurrency,
		now:               deps.Now,
	}
	if c.tagger == nil {
		c.tagger = tagging.New(nil)
	}
	if c.sourceConcurrency <= 0 {
		c.sourceConcurrency = defaultSourceConcurrency
	}
	if c.tagConcurrency <= 0 {
		c.tagConcurrency = defaultTagConcurrency
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// IngestAll ingests every active source concurrently and returns one result per
// source. A failing source never affects its siblings; the only error returned is
// a failure to list the sources.
func (c *Coordinator) IngestAll(ctx context.Context) ([]domain.IngestResult, error) {
	sources, err := c.sources.ListActiveSources(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: list active sources")
	}

	c.logger.Info("ingest all", "sources", len(sources))

	results := make([]domain.IngestResult, len(sources))
	var g errgroup.Group
	g.SetLimit(c.sourceConcurrency)
	for i, source := range sources {
		g.Go(func() error {
			results[i] = c.ingestIsolated(ctx, source)
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

// IngestSource re-ingests a single source looked up by id.
func (c *Coordinator) IngestSource(ctx context.Context, id string) (domain.IngestResult, error) {
	source, err := c.sources.GetSource(ctx, id)
	if err != nil {
		return domain.IngestResult{}, eris.Wrapf(err, "ingest: load source %s", id)
	}
	return c.ingestIsolated(ctx, source), nil
}

func (c *Coordinator) ingestIsolated(ctx context.Context, source domain.Source) (result domain.IngestResult) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("source ingestion panicked", "source", source.Name, "panic", r)
			result = domain.IngestResult{
				SourceID:   source.ID,
				SourceName: source.Name,
				Errors:     []string{fmt.Sprintf("Unexpected: %v", r)},
			}
			c.observe(result)
		}
	}()
	return c.IngestOne(ctx, source)
}

// IngestOne runs fetch, persist, tag, log and health update for one source.
// Fetch and store failures are recorded on the result and never returned.
func (c *Coordinator) IngestOne(ctx context.Context, source domain.Source) domain.IngestResult {
	started := c.now()
	logger := c.logger.With("source", source.Name, "source_id", source.ID)
	result := domain.IngestResult{SourceID: source.ID, SourceName: source.Name}

	entries, err := c.fetcher.Fetch(ctx, source)
	if err != nil {
		logger.Warn("fetch failed", "error", err)
		result.Errors = append(result.Errors, domain.FetchErrorPrefix+err.Error())
		return c.finish(ctx, source, started, result)
	}
	result.Fetched = len(entries)

	if len(entries) > 0 {
		inserted, err := c.items.UpsertItems(ctx, candidates(source, entries, started))
		if err != nil {
			logger.Warn("insert failed", "error", err)
			result.Errors = append(result.Errors, domain.StoreErrorPrefix+err.Error())
		} else {
			result.Inserted = len(inserted)
			result.TagFailures = c.tagAll(ctx, source, inserted, logger)
		}
	}

	result.SideEffects = append(result.SideEffects, domain.SideEffect{
		Name: domain.SideEffectFetchTime,
		Err:  c.sources.UpdateSourceFetchTime(ctx, source.ID, c.now()),
	})

	return c.finish(ctx, source, started, result)
}

// finish appends the audit log entry and updates source health. Both writes are
// best-effort and only recorded as side effects on the result.
func (c *Coordinator) finish(ctx context.Context, source domain.Source, started time.Time, result domain.IngestResult) domain.IngestResult {
	finished := c.now()
	result.Success = len(result.Errors) == 0
	result.Duration = finished.Sub(started)

	logErr := c.logs.AppendIngestionLog(ctx, domain.IngestionLogEntry{
		ID:        uuid.NewString(),
		SourceID:  source.ID,
		StartedAt: started,
		Fetched:   result.Fetched,
		Inserted:  result.Inserted,
		Errors:    append([]string{}, result.Errors...),
		Success:   result.Success,
		Duration:  result.Duration,
	})
	result.SideEffects = append(result.SideEffects, domain.SideEffect{Name: domain.SideEffectLog, Err: logErr})

	healthErr := c.sources.UpdateSourceHealth(ctx, source.ID, NextHealth(result, finished))
	result.SideEffects = append(result.SideEffects, domain.SideEffect{Name: domain.SideEffectHealth, Err: healthErr})

	for _, s := range result.SideEffects {
		if !s.OK() {
			c.logger.Debug("best-effort write failed", "source", source.Name, "write", s.Name, "error", s.Err)
		}
	}

	c.logger.Info("source ingested",
		"source", source.Name,
		"fetched", result.Fetched,
		"inserted", result.Inserted,
		"errors", len(result.Errors),
		"duration", result.Duration)

	c.observe(result)
	return result
}

// tagAll tags each inserted item independently and returns how many failed to persist.
func (c *Coordinator) tagAll(ctx context.Context, source domain.Source, items []domain.Item, logger *slog.Logger) int {
	failed := make([]bool, len(items))

	var g errgroup.Group
	g.SetLimit(c.tagConcurrency)
	for i, item := range items {
		g.Go(func() error {
			if err := c.tagOne(ctx, source, item); err != nil {
				logger.Warn("tagging failed", "item", item.ID, "error", err)
				failed[i] = true
			}
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, f := range failed {
		if f {
			n++
		}
	}
	return n
}

func (c *Coordinator) tagOne(ctx context.Context, source domain.Source, item domain.Item) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("tagging panicked: %v", r)
		}
	}()

	tags := c.tagger.Tag(ctx, item.Title, item.Body, source.Type)
	if err := c.items.UpdateItemTags(ctx, item.ID, tags); err != nil {
		return eris.Wrap(err, "update item tags")
	}
	if err := c.items.UpsertNormalizedTags(ctx, tags.Normalized(item.ID)); err != nil {
		return eris.Wrap(err, "upsert normalized tags")
	}
	return nil
}

func (c *Coordinator) observe(result domain.IngestResult) {
	if c.observer != nil {
		c.observer.ObserveIngest(result)
	}
}

// NextHealth derives the health update written after an attempt: any error bumps
// the stored consecutive error count, a clean attempt resets it and stamps the
// success time.
func NextHealth(result domain.IngestResult, at time.Time) domain.HealthUpdate {
	if result.Success {
		return domain.HealthUpdate{LastSuccessAt: &at}
	}
	return domain.HealthUpdate{Failed: true, LastError: result.ErrorText()}
}

// candidates maps feed entries to item rows, keeping the first entry per dedup key.
func candidates(source domain.Source, entries []domain.FeedEntry, ingestedAt time.Time) []domain.Item {
	seen := make(map[string]struct{}, len(entries))
	rows := make([]domain.Item, 0, len(entries))
	for _, entry := range entries {
		key := entry.DedupKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		body := entry.ContentSnippet
		if body == "" {
			body = entry.Content
		}

		rows = append(rows, domain.Item{
			ID:          uuid.NewString(),
			SourceID:    source.ID,
			ExternalID:  key,
			Title:       entry.Title,
			Body:        body,
			URL:         entry.Link,
			Author:      entry.Author,
			PublishedAt: entry.PublishedAt,
			IngestedAt:  ingestedAt,
			SourceName:  source.Name,
			SourceType:  source.Type,
		})
	}
	return rows
}
