package storage

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/domain"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/ports"
)

//go:embed schema.sql
var schemaSQL string

// DB is the subset of pgxpool.Pool used by the repository.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var sourceColumns = []string{
	"id", "name", "feed_url", "COALESCE(site_url, '')", "source_type", "fetcher", "active",
	"last_fetched_at", "COALESCE(last_error, '')", "consecutive_errors", "last_success_at",
}

// PostgresRepository persists sources, items, tags and ingestion logs into Postgres.
type PostgresRepository struct {
	db DB
}

var _ ports.Store = (*PostgresRepository)(nil)

// NewPostgresRepository wires a pgx pool (or any DB implementation).
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Connect opens a pgx pool and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "storage: open pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "storage: ping")
	}
	return pool, nil
}

// Migrate creates the schema if it does not exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return eris.Wrap(err, "storage: migrate")
	}
	return nil
}

// UpsertItems inserts rows with ON CONFLICT DO NOTHING and returns the rows that
// were actually inserted.
func (r *PostgresRepository) UpsertItems(ctx context.Context, rows []domain.Item) ([]domain.Item, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	q := psql.Insert("items").Columns(
		"id", "source_id", "external_id", "title", "body", "url", "author",
		"published_at", "ingested_at", "tags",
	)
	byID := make(map[string]domain.Item, len(rows))
	for _, row := range rows {
		tags, err := json.Marshal(row.Tags)
		if err != nil {
			return nil, eris.Wrap(err, "storage: encode tags")
		}
		q = q.Values(row.ID, row.SourceID, row.ExternalID, row.Title, nullable(row.Body), row.URL,
			nullable(row.Author), row.PublishedAt, row.IngestedAt, tags)
		byID[row.ID] = row
	}
	query, args, err := q.Suffix("ON CONFLICT (source_id, external_id) DO NOTHING RETURNING id").ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "storage: build insert items")
	}

	result, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "storage: insert items")
	}
	defer result.Close()

	var inserted []domain.Item
	for result.Next() {
		var id string
		if err := result.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "storage: scan inserted id")
		}
		if row, ok := byID[id]; ok {
			inserted = append(inserted, row)
		}
	}
	if err := result.Err(); err != nil {
		return nil, eris.Wrap(err, "storage: iterate inserted ids")
	}

	return inserted, nil
}

// UpdateItemTags replaces an item's tag bundle.
func (r *PostgresRepository) UpdateItemTags(ctx context.Context, itemID string, tags domain.TagBundle) error {
	encoded, err := json.Marshal(tags)
	if err != nil {
		return eris.Wrap(err, "storage: encode tags")
	}

	query, args, err := psql.Update("items").Set("tags", encoded).Where(sq.Eq{"id": itemID}).ToSql()
	if err != nil {
		return eris.Wrap(err, "storage: build update tags")
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return eris.Wrapf(err, "storage: update tags of %s", itemID)
	}
	return nil
}

// UpsertNormalizedTags inserts tag rows, ignoring existing (item, dimension, value) triples.
func (r *PostgresRepository) UpsertNormalizedTags(ctx context.Context, rows []domain.NormalizedTag) error {
	if len(rows) == 0 {
		return nil
	}

	q := psql.Insert("item_tags").Columns("item_id", "dimension", "value")
	for _, row := range rows {
		q = q.Values(row.ItemID, string(row.Dimension), row.Value)
	}
	query, args, err := q.Suffix("ON CONFLICT (item_id, dimension, value) DO NOTHING").ToSql()
	if err != nil {
		return eris.Wrap(err, "storage: build insert tags")
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return eris.Wrap(err, "storage: insert tags")
	}
	return nil
}

// ListRecentItems returns items published (or ingested, when undated) since the
// given time, newest first, joined with their source name and type.
func (r *PostgresRepository) ListRecentItems(ctx context.Context, since time.Time, limit int) ([]domain.Item, error) {
	q := psql.Select(
		"i.id", "i.source_id", "i.external_id", "i.title", "COALESCE(i.body, '')", "i.url",
		"COALESCE(i.author, '')", "i.published_at", "i.ingested_at", "i.tags", "s.name", "s.source_type",
	).
		From("items i").
		Join("sources s ON s.id = i.source_id").
		Where(sq.Expr("COALESCE(i.published_at, i.ingested_at) >= ?", since)).
		OrderBy("COALESCE(i.published_at, i.ingested_at) DESC", "i.id")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "storage: build recent items")
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "storage: query recent items")
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var (
			item domain.Item
			tags []byte
		)
		if err := rows.Scan(&item.ID, &item.SourceID, &item.ExternalID, &item.Title, &item.Body, &item.URL,
			&item.Author, &item.PublishedAt, &item.IngestedAt, &tags, &item.SourceName, &item.SourceType); err != nil {
			return nil, eris.Wrap(err, "storage: scan item")
		}
		if len(tags) > 0 {
			if err := json.Unmarshal(tags, &item.Tags); err != nil {
				return nil, eris.Wrapf(err, "storage: decode tags of %s", item.ID)
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "storage: iterate items")
	}

	return items, nil
}

// ListActiveSources returns every active source ordered by name.
func (r *PostgresRepository) ListActiveSources(ctx context.Context) ([]domain.Source, error) {
	query, args, err := psql.Select(sourceColumns...).
		From("sources").
		Where(sq.Eq{"active": true}).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "storage: build list sources")
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "storage: query sources")
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "storage: iterate sources")
	}

	return sources, nil
}

// GetSource loads one source by id.
func (r *PostgresRepository) GetSource(ctx context.Context, id string) (domain.Source, error) {
	query, args, err := psql.Select(sourceColumns...).From("sources").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.Source{}, eris.Wrap(err, "storage: build get source")
	}

	source, err := scanSource(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Source{}, eris.Wrap(domain.ErrSourceNotFound, id)
	}
	return source, err
}

// UpsertSource creates or updates a source's configuration without touching health fields.
func (r *PostgresRepository) UpsertSource(ctx context.Context, source domain.Source) error {
	query, args, err := psql.Insert("sources").
		Columns("id", "name", "feed_url", "site_url", "source_type", "fetcher", "active").
		Values(source.ID, source.Name, source.FeedURL, nullable(source.SiteURL), source.Type,
			source.FetcherName(), source.Active).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			feed_url = EXCLUDED.feed_url,
			site_url = EXCLUDED.site_url,
			source_type = EXCLUDED.source_type,
			fetcher = EXCLUDED.fetcher,
			active = EXCLUDED.active`).
		ToSql()
	if err != nil {
		return eris.Wrap(err, "storage: build upsert source")
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return eris.Wrapf(err, "storage: upsert source %s", source.ID)
	}
	return nil
}

// UpdateSourceFetchTime stamps last_fetched_at.
func (r *PostgresRepository) UpdateSourceFetchTime(ctx context.Context, id string, at time.Time) error {
	query, args, err := psql.Update("sources").Set("last_fetched_at", at).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return eris.Wrap(err, "storage: build fetch time update")
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return eris.Wrapf(err, "storage: update fetch time of %s", id)
	}
	return nil
}

// UpdateSourceHealth writes the error text and bumps or resets the consecutive
// error count in a single statement, and the success time when one is given.
func (r *PostgresRepository) UpdateSourceHealth(ctx context.Context, id string, update domain.HealthUpdate) error {
	q := psql.Update("sources").Set("last_error", nullable(update.LastError))
	if update.Failed {
		q = q.Set("consecutive_errors", sq.Expr("consecutive_errors + 1"))
	} else {
		q = q.Set("consecutive_errors", 0)
	}
	if update.LastSuccessAt != nil {
		q = q.Set("last_success_at", *update.LastSuccessAt)
	}

	query, args, err := q.Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return eris.Wrap(err, "storage: build health update")
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return eris.Wrapf(err, "storage: update health of %s", id)
	}
	return nil
}

// AppendIngestionLog inserts one audit entry.
func (r *PostgresRepository) AppendIngestionLog(ctx context.Context, entry domain.IngestionLogEntry) error {
	errs := entry.Errors
	if errs == nil {
		errs = []string{}
	}

	query, args, err := psql.Insert("ingestion_logs").
		Columns("id", "source_id", "started_at", "fetched", "inserted", "errors", "success", "duration_ms").
		Values(entry.ID, entry.SourceID, entry.StartedAt, entry.Fetched, entry.Inserted, errs,
			entry.Success, entry.Duration.Milliseconds()).
		ToSql()
	if err != nil {
		return eris.Wrap(err, "storage: build insert log")
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return eris.Wrap(err, "storage: insert log")
	}
	return nil
}

func scanSource(row pgx.Row) (domain.Source, error) {
	var s domain.Source
	err := row.Scan(&s.ID, &s.Name, &s.FeedURL, &s.SiteURL, &s.Type, &s.Fetcher, &s.Active,
		&s.LastFetchedAt, &s.LastError, &s.ConsecutiveErrors, &s.LastSuccessAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Source{}, err
	}
	if err != nil {
		return domain.Source{}, eris.Wrap(err, "storage: scan source")
	}
	return s, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
