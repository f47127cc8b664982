package overpass

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func square(x0, y0, size float64) []LatLon {
	return []LatLon{
		{Lon: x0, Lat: y0},
		{Lon: x0 + size, Lat: y0},
		{Lon: x0 + size, Lat: y0 + size},
		{Lon: x0, Lat: y0 + size},
		{Lon: x0, Lat: y0},
	}
}

func TestShape_Node(t *testing.T) {
	g := Element{Type: "node", Lat: 59.93, Lon: 30.31}.Shape()
	p, ok := g.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, 30.31, p.X())
	assert.Equal(t, 59.93, p.Y())
	assert.Equal(t, 4326, p.SRID())
}

func TestShape_ClosedWay(t *testing.T) {
	g := Element{Type: "way", Geometry: square(0, 0, 1)}.Shape()
	p, ok := g.(*geom.Polygon)
	require.True(t, ok)
	assert.Equal(t, 1, p.NumLinearRings())
}

func TestShape_OpenWay(t *testing.T) {
	g := Element{Type: "way", Geometry: []LatLon{{0, 0}, {1, 1}}}.Shape()
	_, ok := g.(*geom.LineString)
	assert.True(t, ok)

	assert.Nil(t, Element{Type: "way", Geometry: []LatLon{{0, 0}}}.Shape())
}

func TestShape_MultipolygonStitchesSplitOuter(t *testing.T) {
	// Outer ring split into two ways, the second stored backwards.
	rel := Element{
		Type: "relation",
		Tags: map[string]string{"type": "multipolygon"},
		Members: []Member{
			{Type: "way", Role: "outer", Geometry: []LatLon{{Lon: 0, Lat: 0}, {Lon: 4, Lat: 0}, {Lon: 4, Lat: 4}}},
			{Type: "way", Role: "outer", Geometry: []LatLon{{Lon: 0, Lat: 0}, {Lon: 0, Lat: 4}, {Lon: 4, Lat: 4}}},
			{Type: "way", Role: "inner", Geometry: square(1, 1, 1)},
			{Type: "node", Role: "label", Lat: 2, Lon: 2},
		},
	}

	p, ok := rel.Shape().(*geom.Polygon)
	require.True(t, ok)
	assert.Equal(t, 2, p.NumLinearRings())
	assert.Equal(t, 5, p.LinearRing(0).NumCoords())
}

func TestShape_MultipolygonTwoOuters(t *testing.T) {
	rel := Element{
		Type: "relation",
		Tags: map[string]string{"type": "multipolygon"},
		Members: []Member{
			{Type: "way", Role: "outer", Geometry: square(0, 0, 1)},
			{Type: "way", Role: "outer", Geometry: square(10, 0, 1)},
		},
	}

	mp, ok := rel.Shape().(*geom.MultiPolygon)
	require.True(t, ok)
	assert.Equal(t, 2, mp.NumPolygons())
}

func TestShape_UnclosedRelationAndOtherTypes(t *testing.T) {
	rel := Element{
		Type:    "relation",
		Tags:    map[string]string{"type": "multipolygon"},
		Members: []Member{{Type: "way", Role: "outer", Geometry: []LatLon{{0, 0}, {1, 0}, {1, 1}}}},
	}
	assert.Nil(t, rel.Shape())

	route := Element{Type: "relation", Tags: map[string]string{"type": "route"}}
	assert.Nil(t, route.Shape())
}

func TestRingContains(t *testing.T) {
	ring := flatten(square(0, 0, 2))
	assert.True(t, ringContains(ring, 1, 1))
	assert.False(t, ringContains(ring, 3, 1))
}
