package overpass

import (
	"github.com/twpayne/go-geom"
)

// Shape converts an element fetched with "out geom" into a geometry:
// nodes become points, closed ways polygons, open ways line strings and
// multipolygon relations (multi)polygons built from their outer and inner
// member ways. It returns nil when no geometry can be built.
func (e Element) Shape() geom.T {
	switch e.Type {
	case "node":
		return geom.NewPointFlat(geom.XY, []float64{e.Lon, e.Lat}).SetSRID(4326)
	case "way":
		return wayGeometry(e.Geometry)
	case "relation":
		if t := e.Tags["type"]; t != "multipolygon" && t != "boundary" {
			return nil
		}
		return relationGeometry(e.Members)
	}
	return nil
}

func wayGeometry(pts []LatLon) geom.T {
	flat := flatten(pts)
	switch {
	case isClosed(flat):
		return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}).SetSRID(4326)
	case len(pts) >= 2:
		return geom.NewLineStringFlat(geom.XY, flat).SetSRID(4326)
	}
	return nil
}

func relationGeometry(members []Member) geom.T {
	var outerSegs, innerSegs [][]float64
	for _, m := range members {
		if m.Type != "way" || len(m.Geometry) < 2 {
			continue
		}
		switch m.Role {
		case "inner":
			innerSegs = append(innerSegs, flatten(m.Geometry))
		default:
			outerSegs = append(outerSegs, flatten(m.Geometry))
		}
	}

	outers := stitchRings(outerSegs)
	if len(outers) == 0 {
		return nil
	}
	inners := stitchRings(innerSegs)

	// Each inner ring goes to the first outer ring that contains its first vertex.
	holes := make([][][]float64, len(outers))
	for _, in := range inners {
		for i, out := range outers {
			if ringContains(out, in[0], in[1]) {
				holes[i] = append(holes[i], in)
				break
			}
		}
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	for i, out := range outers {
		flat := append([]float64(nil), out...)
		ends := []int{len(flat)}
		for _, h := range holes[i] {
			flat = append(flat, h...)
			ends = append(ends, len(flat))
		}
		if err := mp.Push(geom.NewPolygonFlat(geom.XY, flat, ends)); err != nil {
			return nil
		}
	}
	if mp.NumPolygons() == 1 {
		return mp.Polygon(0).SetSRID(4326)
	}
	return mp
}

// stitchRings joins way segments end to end into closed rings. Segments
// that cannot be closed are dropped.
func stitchRings(segs [][]float64) [][]float64 {
	used := make([]bool, len(segs))
	var rings [][]float64

	for i := range segs {
		if used[i] {
			continue
		}
		used[i] = true
		ring := append([]float64(nil), segs[i]...)

		for !isClosed(ring) {
			lx, ly := ring[len(ring)-2], ring[len(ring)-1]
			extended := false
			for j := range segs {
				if used[j] {
					continue
				}
				s := segs[j]
				switch {
				case s[0] == lx && s[1] == ly:
					ring = append(ring, s[2:]...)
				case s[len(s)-2] == lx && s[len(s)-1] == ly:
					ring = append(ring, reversePairs(s)[2:]...)
				default:
					continue
				}
				used[j] = true
				extended = true
				break
			}
			if !extended {
				break
			}
		}

		if isClosed(ring) {
			rings = append(rings, ring)
		}
	}
	return rings
}

// ringContains is an even-odd ray cast against a closed flat XY ring.
func ringContains(ring []float64, x, y float64) bool {
	inside := false
	n := len(ring) / 2
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[2*i], ring[2*i+1]
		xj, yj := ring[2*j], ring[2*j+1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

func flatten(pts []LatLon) []float64 {
	out := make([]float64, 0, 2*len(pts))
	for _, p := range pts {
		out = append(out, p.Lon, p.Lat)
	}
	return out
}

func reversePairs(s []float64) []float64 {
	out := make([]float64, len(s))
	for i := 0; i < len(s); i += 2 {
		j := len(s) - 2 - i
		out[i], out[i+1] = s[j], s[j+1]
	}
	return out
}

func isClosed(flat []float64) bool {
	n := len(flat)
	return n >= 8 && flat[0] == flat[n-2] && flat[1] == flat[n-1]
}
