package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/domain"
)

type namedStrategy struct {
	name  string
	calls []string
}

func (n *namedStrategy) Name() string { return n.name }

func (n *namedStrategy) Fetch(_ context.Context, source domain.Source) ([]domain.FeedEntry, error) {
	n.calls = append(n.calls, source.ID)
	return []domain.FeedEntry{{GUID: n.name + ":" + source.ID}}, nil
}

func TestRegistryDispatchesOnFetcherName(t *testing.T) {
	rss := &namedStrategy{name: "rss"}
	arxiv := &namedStrategy{name: "arxiv"}
	reg := NewRegistry(rss, arxiv)

	entries, err := reg.Fetch(context.Background(), domain.Source{ID: "gi"})
	require.NoError(t, err)
	assert.Equal(t, "rss:gi", entries[0].GUID)

	entries, err = reg.Fetch(context.Background(), domain.Source{ID: "ai", Fetcher: "arxiv"})
	require.NoError(t, err)
	assert.Equal(t, "arxiv:ai", entries[0].GUID)

	assert.Equal(t, []string{"gi"}, rss.calls)
	assert.Equal(t, []string{"ai"}, arxiv.calls)
	assert.Equal(t, []string{"arxiv", "rss"}, reg.Names())
}

func TestRegistryUnknownStrategy(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Fetch(context.Background(), domain.Source{ID: "x", Fetcher: "gopher"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gopher")
}

func TestRegisterReplaces(t *testing.T) {
	first := &namedStrategy{name: "rss"}
	second := &namedStrategy{name: "rss"}
	reg := NewRegistry(first)
	reg.Register(second)

	_, err := reg.Fetch(context.Background(), domain.Source{ID: "gi"})
	require.NoError(t, err)
	assert.Empty(t, first.calls)
	assert.Len(t, second.calls, 1)
}
