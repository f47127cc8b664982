package shapefile

import (
	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"
)

// toGeom converts a shapefile shape to an SRID 4326 geometry. Polygons
// become multipolygons: clockwise rings are shells and counter-clockwise
// rings are holes of the shell that contains them. It returns nil for
// unsupported or empty shapes.
func toGeom(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}).SetSRID(4326)
	case *shp.PolyLine:
		return toMultiLineString(s)
	case *shp.Polygon:
		return toMultiPolygon(s)
	}
	return nil
}

func toMultiLineString(pl *shp.PolyLine) geom.T {
	if pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil
	}

	mls := geom.NewMultiLineString(geom.XY).SetSRID(4326)
	for i, part := range parts(pl.Parts, pl.Points) {
		if err := mls.Push(geom.NewLineStringFlat(geom.XY, part)); err != nil {
			zap.L().Debug("shapefile: skipping malformed line part", zap.Int("part", i), zap.Error(err))
		}
	}
	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

func toMultiPolygon(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var shells, holes [][]float64
	for _, part := range parts(p.Parts, p.Points) {
		if len(part) < 8 {
			continue
		}
		if xy.IsRingCounterClockwise(geom.XY, part) {
			holes = append(holes, part)
		} else {
			shells = append(shells, part)
		}
	}
	// Some writers ignore the orientation rule; treat every ring as a shell.
	if len(shells) == 0 {
		shells, holes = holes, nil
	}

	rings := make([][][]float64, len(shells))
	for i, sh := range shells {
		rings[i] = [][]float64{sh}
	}
	for _, h := range holes {
		i := containingShell(shells, h)
		if i < 0 {
			rings = append(rings, [][]float64{h})
			continue
		}
		rings[i] = append(rings[i], h)
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	for i, rs := range rings {
		var flat []float64
		ends := make([]int, 0, len(rs))
		for _, r := range rs {
			flat = append(flat, r...)
			ends = append(ends, len(flat))
		}
		if err := mp.Push(geom.NewPolygonFlat(geom.XY, flat, ends)); err != nil {
			zap.L().Debug("shapefile: skipping malformed polygon", zap.Int("polygon", i), zap.Error(err))
		}
	}
	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// containingShell returns the index of the first shell containing the
// hole's first vertex, or -1.
func containingShell(shells [][]float64, hole []float64) int {
	pt := geom.Coord{hole[0], hole[1]}
	for i, sh := range shells {
		if xy.IsPointInRing(geom.XY, pt, sh) {
			return i
		}
	}
	return -1
}

// parts splits shapefile points into flat XY coordinate slices per part.
func parts(starts []int32, pts []shp.Point) [][]float64 {
	out := make([][]float64, 0, len(starts))
	for i, start := range starts {
		end := int32(len(pts))
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		if start < 0 || start > end || int(end) > len(pts) {
			continue
		}
		flat := make([]float64, 0, 2*(end-start))
		for _, pt := range pts[start:end] {
			flat = append(flat, pt.X, pt.Y)
		}
		out = append(out, flat)
	}
	return out
}
