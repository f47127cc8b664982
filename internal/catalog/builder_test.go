package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Fetch(ctx context.Context, regionID string, group TagGroup) ([]Feature, error) {
	args := m.Called(ctx, regionID, group.Key)
	features, _ := args.Get(0).([]Feature)
	return features, args.Error(1)
}

// staticProvider answers from a map and can delay or fail chosen groups.
type staticProvider struct {
	features map[string][]Feature
	delay    map[string]time.Duration
	fail     map[string]error
}

func (p *staticProvider) Fetch(ctx context.Context, _ string, group TagGroup) ([]Feature, error) {
	if d := p.delay[group.Key]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := p.fail[group.Key]; err != nil {
		return nil, err
	}
	return p.features[group.Key], nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string][]Entry
	puts    int
}

func (c *memCache) Get(_ context.Context, regionID string) ([]Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[regionID]
	return e, ok, nil
}

func (c *memCache) Put(_ context.Context, regionID string, entries []Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = map[string][]Entry{}
	}
	c.entries[regionID] = entries
	c.puts++
	return nil
}

func feature(name, key, value string, g geom.T) Feature {
	return Feature{Name: name, Tags: map[string]string{key: value, "name": name}, Geometry: g}
}

func TestBuild_ConcatenatesInGroupOrder(t *testing.T) {
	p := &staticProvider{
		features: map[string][]Feature{
			"leisure": {feature("Летний сад", "leisure", "garden", geom.NewPolygonFlat(geom.XY, []float64{0, 0, 2, 0, 2, 2, 0, 2, 0, 0}, []int{10}))},
			"amenity": {feature("школа № 6", "amenity", "school", pt(30.31, 59.93))},
			"place":   {feature("Сенная площадь", "place", "square", pt(30.32, 59.92))},
		},
		// The first group finishes last.
		delay: map[string]time.Duration{"leisure": 30 * time.Millisecond},
	}

	c, err := NewBuilder(p, WithConcurrency(8)).Build(context.Background(), "337422")
	require.NoError(t, err)

	assert.Equal(t, []string{"Летний сад", "школа № 6", "Сенная площадь"}, c.Names())

	e, ok := c.Lookup("школа № 6")
	require.True(t, ok)
	assert.Equal(t, "amenity", e.Tag)
	assert.Equal(t, "school", e.Kind)
	assert.InDelta(t, 30.31, e.Geometry.X(), 1e-9)

	e, ok = c.Lookup("Летний сад")
	require.True(t, ok)
	assert.InDelta(t, 1.0, e.Geometry.X(), 1e-9)
}

func TestBuild_SkipsUnnamedAndKeepsNilGeometry(t *testing.T) {
	p := &staticProvider{features: map[string][]Feature{
		"railway": {
			feature("", "railway", "station", pt(1, 1)),
			feature("Финляндский вокзал", "railway", "station", geom.NewLineStringFlat(geom.XY, []float64{0, 0, 1, 1})),
		},
	}}

	c, err := NewBuilder(p).Build(context.Background(), "r")
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	e, _ := c.Lookup("Финляндский вокзал")
	assert.Nil(t, e.Geometry)
}

func TestBuild_ProviderFailureAborts(t *testing.T) {
	p := &staticProvider{
		features: map[string][]Feature{"leisure": {feature("Летний сад", "leisure", "garden", pt(1, 1))}},
		fail:     map[string]error{"natural": errors.New("overpass: status 504")},
	}

	c, err := NewBuilder(p).Build(context.Background(), "r")
	require.Error(t, err)
	assert.Nil(t, c)
	assert.Contains(t, err.Error(), "catalog: fetch natural")
}

func TestBuild_QueryTimeout(t *testing.T) {
	p := &staticProvider{delay: map[string]time.Duration{"amenity": time.Second}}

	_, err := NewBuilder(p, WithQueryTimeout(20*time.Millisecond)).Build(context.Background(), "r")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBuild_CustomGroupsQueriedOnce(t *testing.T) {
	m := new(mockProvider)
	m.On("Fetch", mock.Anything, "r", "amenity").Return([]Feature{feature("школа № 6", "amenity", "school", pt(1, 2))}, nil).Once()

	b := NewBuilder(m, WithGroups([]TagGroup{{Key: "amenity", Values: []string{"school"}}}))
	c, err := b.Build(context.Background(), "r")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	m.AssertExpectations(t)
}

func TestBuild_UsesCache(t *testing.T) {
	m := new(mockProvider)
	m.On("Fetch", mock.Anything, "r", "amenity").Return([]Feature{feature("школа № 6", "amenity", "school", pt(1, 2))}, nil).Once()

	cache := &memCache{}
	b := NewBuilder(m,
		WithGroups([]TagGroup{{Key: "amenity", Values: []string{"school"}}}),
		WithCache(cache),
	)

	first, err := b.Build(context.Background(), "r")
	require.NoError(t, err)
	second, err := b.Build(context.Background(), "r")
	require.NoError(t, err)

	assert.Equal(t, first.Names(), second.Names())
	assert.Equal(t, 1, cache.puts)
	m.AssertExpectations(t)
}
