// Package clustering groups items that report the same story.
package clustering

import (
	"sort"
	"time"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/domain"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/similarity"
)

// Defaults used by DefaultConfig.
const (
	DefaultThreshold = 0.3
	DefaultWindow    = 72 * time.Hour
	DefaultMaxSize   = 10
)

// Config controls clustering behavior.
type Config struct {
	Threshold float64       // minimum Jaccard similarity between seed and candidate
	Window    time.Duration // maximum publish-time distance between seed and candidate
	MaxSize   int           // hard cap on members per cluster, lead included
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{Threshold: DefaultThreshold, Window: DefaultWindow, MaxSize: DefaultMaxSize}
}

// Ordered is an item list sorted by recency, newest first. The order decides
// which item leads each cluster, so it can only be built by OrderByRecency.
type Ordered struct {
	items []domain.Item
}

// OrderByRecency sorts a copy of items by published time descending, items
// without a timestamp last, ties broken by ascending ID.
func OrderByRecency(items []domain.Item) Ordered {
	sorted := make([]domain.Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].PublishedUnix(), sorted[j].PublishedUnix()
		if a != b {
			return a > b
		}
		return sorted[i].ID < sorted[j].ID
	})
	return Ordered{items: sorted}
}

// Items returns the ordered items.
func (o Ordered) Items() []domain.Item {
	return o.items
}

// Len returns the number of items.
func (o Ordered) Len() int {
	return len(o.items)
}

// Engine clusters ordered item lists.
type Engine struct {
	cfg Config
}

// New creates an Engine. Zero fields fall back to the defaults.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = def.MaxSize
	}
	return &Engine{cfg: cfg}
}

// Cluster partitions the items into story clusters with a greedy single pass.
// Each unassigned item seeds a cluster and absorbs later unassigned items that are
// close enough in time and similar enough to the seed. Candidates are compared to
// the seed only, so two related items need not be similar to each other.
func (e *Engine) Cluster(ordered Ordered) []domain.StoryCluster {
	items := ordered.items
	if len(items) == 0 {
		return nil
	}

	words := make([]map[string]struct{}, len(items))
	for i, item := range items {
		words[i] = similarity.ExtractWords(item.Title)
	}

	window := e.cfg.Window.Seconds()
	assigned := make([]bool, len(items))
	var clusters []domain.StoryCluster

	for i := range items {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		members := []int{i}
		seedTime := items[i].PublishedUnix()

		for j := i + 1; j < len(items); j++ {
			if assigned[j] {
				continue
			}
			if absDiff(seedTime, items[j].PublishedUnix()) > window {
				continue
			}
			if len(members) >= e.cfg.MaxSize {
				break
			}
			if similarity.Jaccard(words[i], words[j]) >= e.cfg.Threshold {
				members = append(members, j)
				assigned[j] = true
			}
		}

		clusters = append(clusters, build(items, members))
	}

	return clusters
}

func build(items []domain.Item, members []int) domain.StoryCluster {
	cluster := domain.StoryCluster{Lead: items[members[0]]}
	for _, idx := range members[1:] {
		cluster.Related = append(cluster.Related, items[idx])
	}

	seen := map[string]struct{}{}
	for _, idx := range members {
		name := items[idx].SourceName
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		cluster.Sources = append(cluster.Sources, name)
	}
	cluster.MultiSource = len(cluster.Sources) > 1

	return cluster
}

func absDiff(a, b int64) float64 {
	d := a - b
	if d < 0 {
		d = -d
	}
	return float64(d)
}
