package catalog

import (
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Centroid reduces g to a representative XY point: the area centroid for
// polygons and multipolygons, the point itself for points, nil for anything
// else or for empty and degenerate input.
func Centroid(g geom.T) *geom.Point {
	if g == nil || g.Empty() {
		return nil
	}

	var c geom.Coord
	switch t := g.(type) {
	case *geom.Point:
		c = geom.Coord{t.X(), t.Y()}
	case *geom.Polygon:
		c = xy.PolygonsCentroid(t)
	case *geom.MultiPolygon:
		c = xy.MultiPolygonCentroid(t)
	default:
		return nil
	}

	if len(c) < 2 || math.IsNaN(c[0]) || math.IsNaN(c[1]) || math.IsInf(c[0], 0) || math.IsInf(c[1], 0) {
		return nil
	}
	return geom.NewPointFlat(geom.XY, []float64{c[0], c[1]}).SetSRID(4326)
}
