package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/clustering"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/domain"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/importance"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/ports"
)

// RankedStory is a scored cluster ready for display.
type RankedStory struct {
	Cluster   domain.StoryCluster
	Score     float64
	Tier      importance.Tier
	Breakdown importance.Breakdown
}

// StoriesQuery selects the items considered for ranking.
type StoriesQuery struct {
	Window time.Duration
	Limit  int
}

// Stories is the read path: load recent items, cluster, score and rank them.
type Stories struct {
	items  ports.ItemReader
	engine *clustering.Engine
	now    func() time.Time
}

// NewStories builds the ranking use case.
func NewStories(items ports.ItemReader, engine *clustering.Engine, now func() time.Time) *Stories {
	if engine == nil {
		engine = clustering.New(clustering.DefaultConfig())
	}
	if now == nil {
		now = time.Now
	}
	return &Stories{items: items, engine: engine, now: now}
}

// Rank returns clusters ordered by importance, highest first. Equal scores keep
// recency order.
func (s *Stories) Rank(ctx context.Context, q StoriesQuery) ([]RankedStory, error) {
	if q.Window <= 0 {
		q.Window = 72 * time.Hour
	}
	if q.Limit <= 0 {
		q.Limit = 500
	}

	items, err := s.items.ListRecentItems(ctx, s.now().Add(-q.Window), q.Limit)
	if err != nil {
		return nil, eris.Wrap(err, "stories: list recent items")
	}

	return RankItems(s.engine, items), nil
}

// RankItems clusters and scores an in-memory item snapshot. It is pure.
func RankItems(engine *clustering.Engine, items []domain.Item) []RankedStory {
	clusters := engine.Cluster(clustering.OrderByRecency(items))

	stories := make([]RankedStory, 0, len(clusters))
	for _, cluster := range clusters {
		breakdown := importance.ClusterBreakdown(cluster)
		stories = append(stories, RankedStory{
			Cluster:   cluster,
			Score:     breakdown.Score,
			Tier:      importance.TierFor(breakdown.Score),
			Breakdown: breakdown,
		})
	}

	sort.SliceStable(stories, func(i, j int) bool {
		return stories[i].Score > stories[j].Score
	})
	return stories
}
