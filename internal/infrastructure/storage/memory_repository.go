package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/domain"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/ports"
)

// MemoryRepository keeps sources, items, tags and logs in process. It enforces the
// same unique keys as the Postgres schema and is used when no DSN is configured.
type MemoryRepository struct {
	mu      sync.RWMutex
	sources map[string]domain.Source
	order   []string
	items   map[string]domain.Item
	byKey   map[itemKey]string
	tags    map[domain.NormalizedTag]struct{}
	logs    []domain.IngestionLogEntry
}

type itemKey struct {
	sourceID   string
	externalID string
}

var _ ports.Store = (*MemoryRepository)(nil)

// NewMemoryRepository builds an empty repository seeded with sources.
func NewMemoryRepository(sources ...domain.Source) *MemoryRepository {
	r := &MemoryRepository{
		sources: map[string]domain.Source{},
		items:   map[string]domain.Item{},
		byKey:   map[itemKey]string{},
		tags:    map[domain.NormalizedTag]struct{}{},
	}
	for _, s := range sources {
		_ = r.UpsertSource(context.Background(), s)
	}
	return r
}

// UpsertItems inserts rows whose (source, external id) is new and returns them.
func (r *MemoryRepository) UpsertItems(_ context.Context, rows []domain.Item) ([]domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var inserted []domain.Item
	for _, row := range rows {
		key := itemKey{sourceID: row.SourceID, externalID: row.ExternalID}
		if _, exists := r.byKey[key]; exists {
			continue
		}
		r.byKey[key] = row.ID
		r.items[row.ID] = row
		inserted = append(inserted, row)
	}
	return inserted, nil
}

// UpdateItemTags replaces the tag bundle of an item.
func (r *MemoryRepository) UpdateItemTags(_ context.Context, itemID string, tags domain.TagBundle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[itemID]
	if !ok {
		return eris.Errorf("item %s not found", itemID)
	}
	item.Tags = tags
	r.items[itemID] = item
	return nil
}

// UpsertNormalizedTags stores tag rows, ignoring duplicates.
func (r *MemoryRepository) UpsertNormalizedTags(_ context.Context, rows []domain.NormalizedTag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range rows {
		r.tags[row] = struct{}{}
	}
	return nil
}

// ListRecentItems returns items published (or ingested, when undated) since the
// given time, newest first, joined with their source.
func (r *MemoryRepository) ListRecentItems(_ context.Context, since time.Time, limit int) ([]domain.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Item
	for _, item := range r.items {
		if effectiveTime(item).Before(since) {
			continue
		}
		if src, ok := r.sources[item.SourceID]; ok {
			item.SourceName = src.Name
			item.SourceType = src.Type
		}
		out = append(out, item)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := effectiveTime(out[i]), effectiveTime(out[j])
		if !a.Equal(b) {
			return a.After(b)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListActiveSources returns active sources in insertion order.
func (r *MemoryRepository) ListActiveSources(_ context.Context) ([]domain.Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Source
	for _, id := range r.order {
		if s := r.sources[id]; s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

// GetSource returns a source by id.
func (r *MemoryRepository) GetSource(_ context.Context, id string) (domain.Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sources[id]
	if !ok {
		return domain.Source{}, eris.Wrap(domain.ErrSourceNotFound, id)
	}
	return s, nil
}

// UpsertSource creates or updates a source's configuration, keeping its health fields.
func (r *MemoryRepository) UpsertSource(_ context.Context, source domain.Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sources[source.ID]; ok {
		source.LastFetchedAt = existing.LastFetchedAt
		source.LastError = existing.LastError
		source.ConsecutiveErrors = existing.ConsecutiveErrors
		source.LastSuccessAt = existing.LastSuccessAt
	} else {
		r.order = append(r.order, source.ID)
	}
	r.sources[source.ID] = source
	return nil
}

// UpdateSourceFetchTime stamps the last fetch time.
func (r *MemoryRepository) UpdateSourceFetchTime(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sources[id]
	if !ok {
		return eris.Wrap(domain.ErrSourceNotFound, id)
	}
	s.LastFetchedAt = &at
	r.sources[id] = s
	return nil
}

// UpdateSourceHealth records the outcome of the last attempt.
func (r *MemoryRepository) UpdateSourceHealth(_ context.Context, id string, update domain.HealthUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sources[id]
	if !ok {
		return eris.Wrap(domain.ErrSourceNotFound, id)
	}
	s.LastError = update.LastError
	if update.Failed {
		s.ConsecutiveErrors++
	} else {
		s.ConsecutiveErrors = 0
	}
	if update.LastSuccessAt != nil {
		at := *update.LastSuccessAt
		s.LastSuccessAt = &at
	}
	r.sources[id] = s
	return nil
}

// AppendIngestionLog appends an audit entry.
func (r *MemoryRepository) AppendIngestionLog(_ context.Context, entry domain.IngestionLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logs = append(r.logs, entry)
	return nil
}

// Items returns a snapshot of every stored item.
func (r *MemoryRepository) Items() []domain.Item {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Item, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NormalizedTags returns a snapshot of every stored tag row.
func (r *MemoryRepository) NormalizedTags() []domain.NormalizedTag {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.NormalizedTag, 0, len(r.tags))
	for row := range r.tags {
		out = append(out, row)
	}
	return out
}

// Logs returns a snapshot of the audit log.
func (r *MemoryRepository) Logs() []domain.IngestionLogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]domain.IngestionLogEntry(nil), r.logs...)
}

func effectiveTime(item domain.Item) time.Time {
	if item.PublishedAt != nil {
		return *item.PublishedAt
	}
	return item.IngestedAt
}
