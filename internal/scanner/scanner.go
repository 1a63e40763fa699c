package scanner

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/domain"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/ports"
)

// Strategy fetches entries for sources that name it (rss, arxiv, etc.).
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, source domain.Source) ([]domain.FeedEntry, error)
}

// Registry keeps a mapping from strategy names to their implementations and
// dispatches each source to the strategy it names.
type Registry struct {
	strategies map[string]Strategy
}

var _ ports.FeedFetcher = (*Registry)(nil)

// NewRegistry builds a registry with the given strategies.
func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{strategies: map[string]Strategy{}}
	for _, s := range strategies {
		r.Register(s)
	}
	return r
}

// Register adds or replaces a strategy implementation.
func (r *Registry) Register(strategy Strategy) {
	if r.strategies == nil {
		r.strategies = map[string]Strategy{}
	}
	r.strategies[strategy.Name()] = strategy
}

// Resolve returns a strategy by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Strategy, error) {
	if strategy, ok := r.strategies[name]; ok {
		return strategy, nil
	}
	return nil, eris.Errorf("fetcher %s is not registered", name)
}

// Names lists registered strategies in alphabetical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fetch resolves the source's strategy and delegates to it.
func (r *Registry) Fetch(ctx context.Context, source domain.Source) ([]domain.FeedEntry, error) {
	strategy, err := r.Resolve(source.FetcherName())
	if err != nil {
		return nil, eris.Wrapf(err, "source %s", source.ID)
	}
	return strategy.Fetch(ctx, source)
}
