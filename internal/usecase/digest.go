package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/importance"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/ports"
)

// Digest publishes the most important current stories to a notifier.
type Digest struct {
	stories  *Stories
	notifier ports.Notifier
	minTier  importance.Tier
	limit    int
}

// NewDigest builds the digest use case. Stories below minTier are left out.
func NewDigest(stories *Stories, notifier ports.Notifier, minTier importance.Tier, limit int) *Digest {
	if limit <= 0 {
		limit = 10
	}
	return &Digest{stories: stories, notifier: notifier, minTier: minTier, limit: limit}
}

// Publish ranks current stories and sends the selected ones. It returns the number sent.
func (d *Digest) Publish(ctx context.Context, q StoriesQuery) (int, error) {
	if d.notifier == nil {
		return 0, eris.New("digest: notifier is not configured")
	}

	ranked, err := d.stories.Rank(ctx, q)
	if err != nil {
		return 0, err
	}

	selected := SelectForDigest(ranked, d.minTier, d.limit)
	if len(selected) == 0 {
		return 0, nil
	}

	if err := d.notifier.PublishDigest(ctx, buildDigestMessage(selected)); err != nil {
		return 0, eris.Wrap(err, "digest: publish")
	}
	return len(selected), nil
}

// SelectForDigest keeps ranked stories at or above minTier, up to limit entries.
func SelectForDigest(ranked []RankedStory, minTier importance.Tier, limit int) []RankedStory {
	var out []RankedStory
	for _, story := range ranked {
		if story.Tier.Rank() < minTier.Rank() {
			continue
		}
		out = append(out, story)
		if len(out) == limit {
			break
		}
	}
	return out
}

func buildDigestMessage(stories []RankedStory) string {
	var b strings.Builder
	for _, story := range stories {
		lead := story.Cluster.Lead
		fmt.Fprintf(&b, "- [%s] %s\nScore: %.2f", strings.ToUpper(string(story.Tier)), lead.Title, story.Score)
		if n := len(story.Cluster.Related); n > 0 {
			fmt.Fprintf(&b, " (+%d related)", n)
		}
		if len(story.Cluster.Sources) > 0 {
			fmt.Fprintf(&b, "\nSources: %s", strings.Join(story.Cluster.Sources, ", "))
		}
		fmt.Fprintf(&b, "\n%s\n\n", lead.URL)
	}
	return b.String()
}
