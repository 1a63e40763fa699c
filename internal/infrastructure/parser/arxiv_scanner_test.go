package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/domain"
)

func TestBuildPageURL(t *testing.T) {
	t.Parallel()

	base := "https://export.arxiv.org/list/cs.AI/pastweek"
	u, err := buildPageURL(base, 200, 100)
	require.NoError(t, err)

	parsed, err := url.Parse(u)
	require.NoError(t, err)
	assert.Equal(t, "https", parsed.Scheme)
	assert.Equal(t, "export.arxiv.org", parsed.Host)

	q := parsed.Query()
	assert.Equal(t, "200", q.Get("skip"))
	assert.Equal(t, "100", q.Get("show"))
}

func TestParseEntry(t *testing.T) {
	t.Parallel()

	html := `
	<dl>
	  <dt>
	    <span class="list-identifier"><a href="/abs/1234.56789">arXiv:1234.56789</a></span>
	  </dt>
	  <dd>
	    <div class="list-date">Date: 8 Nov 2025</div>
	    <div class="list-title mathjax">Title: Sample Title</div>
	    <div class="list-authors">Authors: Ada Lovelace</div>
	    <p class="mathjax">Abstract: Sample abstract text.</p>
	  </dd>
	</dl>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	entry := parseEntry(doc.Find("dt").First(), doc.Find("dd").First())

	assert.Equal(t, "arXiv:1234.56789", entry.GUID)
	assert.Equal(t, "https://arxiv.org/abs/1234.56789", entry.Link)
	assert.Equal(t, "Sample Title", entry.Title)
	assert.Equal(t, "Sample abstract text.", entry.ContentSnippet)
	assert.Equal(t, "Ada Lovelace", entry.Author)
	require.NotNil(t, entry.PublishedAt)
	assert.Equal(t, "2025-11-08", entry.PublishedAt.Format("2006-01-02"))
}

func TestParseEntryWithoutDate(t *testing.T) {
	t.Parallel()

	html := `<dl><dt><a href="/abs/1">arXiv:1</a></dt><dd><div class="list-title">Title: Undated</div></dd></dl>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	entry := parseEntry(doc.Find("dt").First(), doc.Find("dd").First())
	assert.Nil(t, entry.PublishedAt)
	assert.Equal(t, "Undated", entry.Title)
}

const listingPage = `
<dl>
  <dt><span class="list-identifier"><a href="/abs/2501.00001">arXiv:2501.00001</a></span></dt>
  <dd>
    <div class="list-date">Date: 8 Nov 2025</div>
    <div class="list-title mathjax">Title: Fresh Article</div>
    <p class="mathjax">Abstract: brand new.</p>
  </dd>
  <dt><span class="list-identifier"><a href="/abs/2501.00002">arXiv:2501.00002</a></span></dt>
  <dd>
    <div class="list-date">Date: 7 Nov 2025</div>
    <div class="list-title mathjax">Title: Old Article</div>
    <p class="mathjax">Abstract: older.</p>
  </dd>
</dl>`

func TestArxivScannerFetch(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte(listingPage))
	}))
	defer server.Close()

	sc := NewArxivScanner(server.Client(), nil, nil)
	sc.pageSize = 10

	entries, err := sc.Fetch(context.Background(), domain.Source{ID: "arxiv-ai", FeedURL: server.URL + "/list/cs.AI", Fetcher: "arxiv"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "arXiv:2501.00001", entries[0].GUID)
	assert.Equal(t, "brand new.", entries[0].ContentSnippet)
	assert.Equal(t, int32(1), requests.Load())
	assert.Equal(t, "arxiv", sc.Name())
}

func TestArxivScannerStopsAtPageCap(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte(listingPage))
	}))
	defer server.Close()

	sc := NewArxivScanner(server.Client(), nil, nil)
	sc.pageSize = 2
	sc.maxPages = 2

	entries, err := sc.Fetch(context.Background(), domain.Source{ID: "arxiv-ai", FeedURL: server.URL})
	require.NoError(t, err)
	assert.Len(t, entries, 2, "repeated ids across pages are dropped")
	assert.Equal(t, int32(2), requests.Load())
}

func TestArxivScannerHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sc := NewArxivScanner(&http.Client{Timeout: time.Second}, nil, nil)
	_, err := sc.Fetch(context.Background(), domain.Source{ID: "arxiv-ai", FeedURL: server.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
