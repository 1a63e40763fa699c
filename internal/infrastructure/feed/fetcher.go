package feed

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rotisserie/eris"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/domain"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/logging"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/scanner"
)

// Name is the fetcher name sources use to select RSS/Atom/JSON feed parsing.
const Name = domain.DefaultFetcher

const (
	defaultTimeout   = 20 * time.Second
	defaultUserAgent = "AlwaysSchemingTerminal/1.0"
)

// Options tune the HTTP behaviour of the fetcher.
type Options struct {
	Client    *http.Client
	Timeout   time.Duration
	UserAgent string
	Limiter   *HostLimiter
	Logger    *slog.Logger
}

// Fetcher downloads and parses syndication feeds.
type Fetcher struct {
	parser  *gofeed.Parser
	limiter *HostLimiter
	logger  *slog.Logger
}

var _ scanner.Strategy = (*Fetcher)(nil)

// NewFetcher builds a feed fetcher; zero options fall back to sane defaults.
func NewFetcher(opts Options) *Fetcher {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = userAgent

	return &Fetcher{parser: parser, limiter: opts.Limiter, logger: logging.OrDiscard(opts.Logger)}
}

// Name identifies the strategy inside the registry.
func (f *Fetcher) Name() string {
	return Name
}

// Fetch downloads the source feed and converts its items into entries.
func (f *Fetcher) Fetch(ctx context.Context, source domain.Source) ([]domain.FeedEntry, error) {
	if source.FeedURL == "" {
		return nil, eris.Errorf("source %s has no feed url", source.ID)
	}
	if err := f.limiter.Wait(ctx, source.FeedURL); err != nil {
		return nil, eris.Wrap(err, "rate limit")
	}

	parsed, err := f.parser.ParseURLWithContext(source.FeedURL, ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "parse feed %s", source.FeedURL)
	}

	entries := make([]domain.FeedEntry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, toEntry(item))
	}

	f.logger.Debug("feed parsed", "source", source.ID, "title", parsed.Title, "items", len(entries))
	return entries, nil
}

func toEntry(item *gofeed.Item) domain.FeedEntry {
	entry := domain.FeedEntry{
		GUID:           item.GUID,
		Link:           item.Link,
		Title:          PlainText(item.Title),
		ContentSnippet: PlainText(item.Description),
		Content:        PlainText(item.Content),
		PublishedAt:    item.PublishedParsed,
	}
	if entry.PublishedAt == nil {
		entry.PublishedAt = item.UpdatedParsed
	}

	switch {
	case item.Author != nil && item.Author.Name != "":
		entry.Author = item.Author.Name
	case len(item.Authors) > 0 && item.Authors[0] != nil:
		entry.Author = item.Authors[0].Name
	}

	return entry
}
