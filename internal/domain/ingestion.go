package domain

import (
	"strings"
	"time"
)

// Prefixes applied to per-source error strings.
const (
	FetchErrorPrefix = "Fetch: "
	StoreErrorPrefix = "DB: "
)

// Names of best-effort writes performed after each attempt.
const (
	SideEffectFetchTime = "fetch_time"
	SideEffectLog       = "ingestion_log"
	SideEffectHealth    = "health"
)

// IngestionLogEntry is the append-only audit record of one attempt for one source.
type IngestionLogEntry struct {
	ID        string
	SourceID  string
	StartedAt time.Time
	Fetched   int
	Inserted  int
	Errors    []string
	Success   bool
	Duration  time.Duration
}

// SideEffect records the outcome of a write that must never fail ingestion.
type SideEffect struct {
	Name string
	Err  error
}

// OK reports whether the write went through.
func (s SideEffect) OK() bool {
	return s.Err == nil
}

// IngestResult summarises one attempt for one source.
type IngestResult struct {
	SourceID    string
	SourceName  string
	Fetched     int
	Inserted    int
	TagFailures int
	Errors      []string
	Success     bool
	Duration    time.Duration
	SideEffects []SideEffect
}

// SideEffect looks up the outcome of a named best-effort write.
func (r IngestResult) SideEffect(name string) (SideEffect, bool) {
	for _, s := range r.SideEffects {
		if s.Name == name {
			return s, true
		}
	}
	return SideEffect{}, false
}

// ErrorText joins recorded errors into the text stored on the source.
func (r IngestResult) ErrorText() string {
	return strings.Join(r.Errors, "; ")
}
