package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/domain"
)

func newMockRepo(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresRepository(mock), mock
}

func TestPostgresUpsertItemsReturnsOnlyInsertedRows(t *testing.T) {
	repo, mock := newMockRepo(t)
	published := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []domain.Item{
		{ID: "id-1", SourceID: "gi", ExternalID: "g1", Title: "One", URL: "https://x/1", PublishedAt: &published},
		{ID: "id-2", SourceID: "gi", ExternalID: "g2", Title: "Two", URL: "https://x/2"},
	}

	mock.ExpectQuery(`INSERT INTO items .* ON CONFLICT \(source_id, external_id\) DO NOTHING RETURNING id`).
		WithArgs(
			"id-1", "gi", "g1", "One", nil, "https://x/1", nil, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			"id-2", "gi", "g2", "Two", nil, "https://x/2", nil, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("id-2"))

	inserted, err := repo.UpsertItems(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, inserted, 1)
	assert.Equal(t, "g2", inserted[0].ExternalID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertItemsEmptyIsNoop(t *testing.T) {
	repo, mock := newMockRepo(t)

	inserted, err := repo.UpsertItems(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertItemsWrapsQueryError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`INSERT INTO items`).WillReturnError(errors.New("connection reset"))

	_, err := repo.UpsertItems(context.Background(), []domain.Item{{ID: "a", SourceID: "s", ExternalID: "e"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPostgresUpsertNormalizedTags(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`INSERT INTO item_tags .* ON CONFLICT \(item_id, dimension, value\) DO NOTHING`).
		WithArgs("id-1", "category", "m-and-a", "id-1", "platform", "mobile").
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	err := repo.UpsertNormalizedTags(context.Background(), []domain.NormalizedTag{
		{ItemID: "id-1", Dimension: domain.DimensionCategory, Value: "m-and-a"},
		{ItemID: "id-1", Dimension: domain.DimensionPlatform, Value: "mobile"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateItemTags(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`UPDATE items SET tags = \$1 WHERE id = \$2`).
		WithArgs(pgxmock.AnyArg(), "id-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.UpdateItemTags(context.Background(), "id-1", domain.TagBundle{Category: []string{"article"}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListRecentItemsDecodesTags(t *testing.T) {
	repo, mock := newMockRepo(t)
	since := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	published := since.Add(2 * time.Hour)

	columns := []string{"id", "source_id", "external_id", "title", "body", "url", "author",
		"published_at", "ingested_at", "tags", "name", "source_type"}
	mock.ExpectQuery(`SELECT .* FROM items i JOIN sources s ON s.id = i.source_id WHERE COALESCE`).
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow("id-1", "gi", "g1", "One", "", "https://x/1", "", &published, since,
				[]byte(`{"category":["article"],"platform":["mobile"],"theme":[],"company":[]}`), "GI", "news").
			AddRow("id-2", "gi", "g2", "Two", "", "https://x/2", "", nil, since, []byte(`{}`), "GI", "news"))

	items, err := repo.ListRecentItems(context.Background(), since, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, []string{"mobile"}, items[0].Tags.Platform)
	assert.Equal(t, "GI", items[0].SourceName)
	require.NotNil(t, items[0].PublishedAt)
	assert.True(t, published.Equal(*items[0].PublishedAt))
	assert.Nil(t, items[1].PublishedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListRecentItemsAppliesLimit(t *testing.T) {
	repo, mock := newMockRepo(t)
	since := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`ORDER BY COALESCE\(i.published_at, i.ingested_at\) DESC, i.id LIMIT 5`).
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	items, err := repo.ListRecentItems(context.Background(), since, 5)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var sourceRowColumns = []string{"id", "name", "feed_url", "site_url", "source_type", "fetcher", "active",
	"last_fetched_at", "last_error", "consecutive_errors", "last_success_at"}

func TestPostgresListActiveSources(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT .* FROM sources WHERE active = \$1 ORDER BY name`).
		WithArgs(true).
		WillReturnRows(pgxmock.NewRows(sourceRowColumns).
			AddRow("gi", "GamesIndustry.biz", "https://gi/feed", "", "news", "rss", true, nil, "Fetch: 503", 2, nil))

	sources, err := repo.ListActiveSources(context.Background())
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "Fetch: 503", sources[0].LastError)
	assert.Equal(t, 2, sources[0].ConsecutiveErrors)
	assert.False(t, sources[0].Healthy())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetSourceNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT .* FROM sources WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetSource(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, domain.ErrSourceNotFound))
}

func TestPostgresUpdateSourceHealth(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE sources SET last_error = \$1, consecutive_errors = \$2, last_success_at = \$3 WHERE id = \$4`).
		WithArgs(nil, 0, at, "gi").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE sources SET last_error = \$1, consecutive_errors = consecutive_errors \+ 1 WHERE id = \$2`).
		WithArgs("Fetch: timeout", "gi").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ctx := context.Background()
	require.NoError(t, repo.UpdateSourceHealth(ctx, "gi", domain.HealthUpdate{LastSuccessAt: &at}))
	require.NoError(t, repo.UpdateSourceHealth(ctx, "gi", domain.HealthUpdate{Failed: true, LastError: "Fetch: timeout"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertSourceKeepsHealthColumns(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`INSERT INTO sources \(id,name,feed_url,site_url,source_type,fetcher,active\) .* ON CONFLICT \(id\) DO UPDATE SET`).
		WithArgs("gi", "GamesIndustry.biz", "https://gi/feed", nil, "news", "rss", true).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.UpsertSource(context.Background(), domain.Source{
		ID: "gi", Name: "GamesIndustry.biz", FeedURL: "https://gi/feed", Type: "news", Active: true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAppendIngestionLog(t *testing.T) {
	repo, mock := newMockRepo(t)
	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO ingestion_logs`).
		WithArgs("log-1", "gi", started, 3, 2, []string{}, true, int64(1500)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.AppendIngestionLog(context.Background(), domain.IngestionLogEntry{
		ID: "log-1", SourceID: "gi", StartedAt: started, Fetched: 3, Inserted: 2, Success: true,
		Duration: 1500 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMigrateExecutesSchema(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS sources`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, repo.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
