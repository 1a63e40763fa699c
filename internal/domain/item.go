package domain

import "time"

// Item is one ingested article, unique per (SourceID, ExternalID).
type Item struct {
	ID          string
	SourceID    string
	ExternalID  string
	Title       string
	Body        string
	URL         string
	Author      string
	PublishedAt *time.Time
	IngestedAt  time.Time
	Tags        TagBundle

	// Populated on read from the owning source.
	SourceName string
	SourceType string
}

// PublishedUnix returns the published timestamp in seconds, or 0 when unknown.
func (i Item) PublishedUnix() int64 {
	if i.PublishedAt == nil {
		return 0
	}
	return i.PublishedAt.Unix()
}

// FeedEntry is a single parsed entry of a syndication feed.
type FeedEntry struct {
	GUID           string
	Link           string
	Title          string
	ContentSnippet string
	Content        string
	Author         string
	PublishedAt    *time.Time
}

// DedupKey picks the identity used to collapse repeated entries of a source:
// guid, else link, else title. Entries with none of them share the empty key.
func (e FeedEntry) DedupKey() string {
	switch {
	case e.GUID != "":
		return e.GUID
	case e.Link != "":
		return e.Link
	default:
		return e.Title
	}
}
