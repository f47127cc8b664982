package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cityobj/pkg/overpass"
)

// OverpassProvider fetches tag groups from the Overpass API. Regions are OSM
// relation ids.
type OverpassProvider struct {
	client  overpass.Client
	timeout time.Duration
}

// NewOverpassProvider creates a Provider over client. timeout is passed to
// the server as the query's [timeout:] setting.
func NewOverpassProvider(client overpass.Client, timeout time.Duration) *OverpassProvider {
	return &OverpassProvider{client: client, timeout: timeout}
}

// Fetch implements Provider.
func (p *OverpassProvider) Fetch(ctx context.Context, regionID string, group TagGroup) ([]Feature, error) {
	ql, err := overpass.TagQuery(regionID, group.Key, group.Values, int(p.timeout.Seconds()))
	if err != nil {
		return nil, eris.Wrap(err, "catalog: build overpass query")
	}

	resp, err := p.client.Query(ctx, ql)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: overpass query %s", group.Key)
	}

	out := make([]Feature, 0, len(resp.Elements))
	for _, el := range resp.Elements {
		if !group.Has(el.Tags[group.Key]) {
			continue
		}
		out = append(out, Feature{
			ID:       fmt.Sprintf("%s/%d", el.Type, el.ID),
			Name:     el.Tags["name"],
			Tags:     el.Tags,
			Geometry: el.Shape(),
		})
	}
	return out, nil
}
