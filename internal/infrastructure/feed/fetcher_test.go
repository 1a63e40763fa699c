package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/domain"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>Games Desk</title>
    <item>
      <guid>gd-1</guid>
      <link>https://games.example/krafton</link>
      <title>Krafton acquires Unknown Worlds for $500M</title>
      <description><![CDATA[<p>Krafton <b>buys</b> the studio &amp; its team.</p><script>alert(1)</script>]]></description>
      <content:encoded><![CDATA[<div><p>Full   text</p><p>here</p></div>]]></content:encoded>
      <dc:creator>Jane Doe</dc:creator>
      <pubDate>Sat, 01 Mar 2025 12:00:00 GMT</pubDate>
    </item>
    <item>
      <link>https://games.example/undated</link>
      <title>Undated post</title>
    </item>
  </channel>
</rss>`

func TestFetcherParsesFeed(t *testing.T) {
	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer server.Close()

	f := NewFetcher(Options{Client: server.Client(), UserAgent: "test-agent"})
	entries, err := f.Fetch(context.Background(), domain.Source{ID: "gd", FeedURL: server.URL})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, "gd-1", first.GUID)
	assert.Equal(t, "https://games.example/krafton", first.Link)
	assert.Equal(t, "Krafton acquires Unknown Worlds for $500M", first.Title)
	assert.Equal(t, "Krafton buys the studio & its team.", first.ContentSnippet)
	assert.Equal(t, "Full text here", first.Content)
	assert.Equal(t, "Jane Doe", first.Author)
	require.NotNil(t, first.PublishedAt)
	assert.True(t, first.PublishedAt.Equal(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)))

	assert.Nil(t, entries[1].PublishedAt)
	assert.Equal(t, "https://games.example/undated", entries[1].DedupKey())
	assert.Equal(t, "test-agent", userAgent)
	assert.Equal(t, "rss", f.Name())
}

func TestFetcherHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := NewFetcher(Options{Client: server.Client()})
	_, err := f.Fetch(context.Background(), domain.Source{ID: "gd", FeedURL: server.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestFetcherMalformedFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("this is not a feed"))
	}))
	defer server.Close()

	f := NewFetcher(Options{Client: server.Client()})
	_, err := f.Fetch(context.Background(), domain.Source{ID: "gd", FeedURL: server.URL})
	assert.Error(t, err)
}

func TestFetcherRequiresFeedURL(t *testing.T) {
	_, err := NewFetcher(Options{}).Fetch(context.Background(), domain.Source{ID: "gd"})
	assert.Error(t, err)
}

func TestHostLimiterSpacesRequests(t *testing.T) {
	limiter := NewHostLimiter(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx, "https://a.example/feed"))
	require.NoError(t, limiter.Wait(ctx, "https://b.example/feed"))
	assert.Less(t, time.Since(start), 40*time.Millisecond)

	require.NoError(t, limiter.Wait(ctx, "https://a.example/other"))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestHostLimiterHonoursContext(t *testing.T) {
	limiter := NewHostLimiter(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, limiter.Wait(ctx, "https://a.example/feed"))
	cancel()
	assert.Error(t, limiter.Wait(ctx, "https://a.example/feed"))
}

func TestHostLimiterDisabled(t *testing.T) {
	var nilLimiter *HostLimiter
	assert.NoError(t, nilLimiter.Wait(context.Background(), "::bad"))
	assert.NoError(t, NewHostLimiter(0).Wait(context.Background(), "::bad"))
	assert.Error(t, NewHostLimiter(time.Second).Wait(context.Background(), "relative/path"))
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "", PlainText("   "))
	assert.Equal(t, "plain words", PlainText("  plain \n words "))
	assert.Equal(t, "Bold & brave", PlainText("<b>Bold</b> &amp; brave"))
	assert.Equal(t, "kept", PlainText(`<p>kept</p><script>dropped()</script>`))
}
