package catalog

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cityobj/internal/resilience"
)

// GuardedProvider runs a Provider behind a circuit breaker. While the
// breaker is open, Fetch fails immediately without contacting upstream.
type GuardedProvider struct {
	provider Provider
	breaker  *resilience.Breaker
}

// NewGuardedProvider wraps p with b.
func NewGuardedProvider(p Provider, b *resilience.Breaker) *GuardedProvider {
	return &GuardedProvider{provider: p, breaker: b}
}

// Fetch implements Provider.
func (g *GuardedProvider) Fetch(ctx context.Context, regionID string, group TagGroup) ([]Feature, error) {
	features, err := resilience.Call(ctx, g.breaker, func(ctx context.Context) ([]Feature, error) {
		return g.provider.Fetch(ctx, regionID, group)
	})
	if errors.Is(err, resilience.ErrOpen) {
		return nil, eris.Wrapf(err, "catalog: skip %s query", group.Key)
	}
	return features, err
}
