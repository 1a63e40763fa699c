package parser

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/domain"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/infrastructure/feed"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/logging"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/scanner"
)

const (
	arxivBaseURL     = "https://arxiv.org"
	defaultPageSize  = 200
	defaultMaxPages  = 3
	arxivUserAgent   = "AlwaysSchemingTerminal/1.0"
	arxivFetcherName = "arxiv"
)

var dateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// ArxivScanner crawls arXiv listing pages of a source and returns their entries.
// It serves sources without a syndication feed whose listing follows the arXiv layout.
type ArxivScanner struct {
	client   *http.Client
	limiter  *feed.HostLimiter
	logger   *slog.Logger
	pageSize int
	maxPages int
}

var _ scanner.Strategy = (*ArxivScanner)(nil)

// NewArxivScanner wires an HTTP client; pageSize defaults to 200 and at most
// three pages are read per fetch.
func NewArxivScanner(client *http.Client, limiter *feed.HostLimiter, logger *slog.Logger) *ArxivScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &ArxivScanner{
		client:   client,
		limiter:  limiter,
		logger:   logging.OrDiscard(logger),
		pageSize: defaultPageSize,
		maxPages: defaultMaxPages,
	}
}

// Name identifies the strategy inside the registry.
func (a *ArxivScanner) Name() string {
	return arxivFetcherName
}

// Fetch walks the listing pages of the source until a short page or the page cap.
func (a *ArxivScanner) Fetch(ctx context.Context, source domain.Source) ([]domain.FeedEntry, error) {
	if source.FeedURL == "" {
		return nil, eris.Errorf("source %s has no listing url", source.ID)
	}

	var (
		results []domain.FeedEntry
		seen    = map[string]struct{}{}
	)
	for page := 0; page < a.maxPages; page++ {
		pageURL, err := buildPageURL(source.FeedURL, page*a.pageSize, a.pageSize)
		if err != nil {
			return nil, err
		}

		doc, err := a.fetchDocument(ctx, pageURL)
		if err != nil {
			return nil, eris.Wrapf(err, "source %s page %d", source.ID, page)
		}

		entries, processed := extractEntries(doc)
		for _, entry := range entries {
			if _, ok := seen[entry.GUID]; ok {
				continue
			}
			seen[entry.GUID] = struct{}{}
			results = append(results, entry)
		}

		a.logger.Debug("listing page parsed", "source", source.ID, "page", page, "entries", processed)
		if processed < a.pageSize {
			break
		}
	}

	return results, nil
}

func (a *ArxivScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := a.limiter.Wait(ctx, pageURL); err != nil {
		return nil, eris.Wrap(err, "rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "build request")
	}
	req.Header.Set("User-Agent", arxivUserAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "request document")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("listing returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "parse document")
	}

	return doc, nil
}

func extractEntries(doc *goquery.Document) ([]domain.FeedEntry, int) {
	var (
		collected []domain.FeedEntry
		processed int
	)

	doc.Find("dl > dt").Each(func(_ int, dt *goquery.Selection) {
		processed++
		entry := parseEntry(dt, dt.Next())
		if entry.Title == "" && entry.GUID == "" {
			return
		}
		collected = append(collected, entry)
	})

	return collected, processed
}

func parseEntry(dt, dd *goquery.Selection) domain.FeedEntry {
	link := dt.Find("a[href*=\"/abs/\"]").First()
	href, _ := link.Attr("href")

	id := strings.TrimSpace(link.Text())
	if id == "" {
		id = strings.TrimPrefix(href, "/abs/")
	}
	if href != "" && !strings.HasPrefix(href, "http") {
		href = strings.TrimSuffix(arxivBaseURL, "/") + href
	}
	if id == "" {
		id = href
	}

	title := strings.TrimSpace(dd.Find(".list-title").First().Text())
	title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))

	summary := dd.Find("p.mathjax").First().Text()
	summary = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(summary), "Abstract:"))

	authors := strings.TrimSpace(dd.Find(".list-authors").First().Text())
	authors = strings.TrimSpace(strings.TrimPrefix(authors, "Authors:"))

	dateText := strings.TrimSpace(dd.Find(".list-date").First().Text())
	if dateText == "" {
		dateText = strings.TrimSpace(dd.Find(".list-dateline").First().Text())
	}

	entry := domain.FeedEntry{
		GUID:           id,
		Link:           href,
		Title:          feed.PlainText(title),
		ContentSnippet: feed.PlainText(summary),
		Author:         feed.PlainText(authors),
	}
	if match := dateExpr.FindString(dateText); match != "" {
		if parsed, err := time.Parse("2 Jan 2006", match); err == nil {
			entry.PublishedAt = &parsed
		}
	}

	return entry
}

func buildPageURL(base string, skip, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", eris.Wrapf(err, "invalid listing url %s", base)
	}

	query := parsed.Query()
	query.Set("skip", strconv.Itoa(skip))
	query.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
