// Package coverage maintains a spatial index over a pass's scan-line
// footprints, so consumers can ask which lines imaged a given point
// without scanning every line's geometry.
package coverage

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/dhconnelly/rtreego"
)

// Geolocator is the slice of the geolocation engine the index consumes.
type Geolocator interface {
	LineCount() int
	ImageWidth() int
	Inverse(pixelX, line int, correct bool) (latDeg, lonDeg float64, err error)
}

// Extent is one scan line's geographic bounding box, estimated from a few
// geolocated pixels across the swath. Longitudes are in the index's working
// frame: for a pass straddling the antimeridian they are shifted into
// [0, 360) so every box stays contiguous (MaxLon may exceed 180).
type Extent struct {
	Line   int
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// Bounds method for rtreego.Spatial interface.
func (e Extent) Bounds() rtreego.Rect {
	point := rtreego.Point{e.MinLon, e.MinLat}
	lengths := []float64{
		e.MaxLon - e.MinLon,
		e.MaxLat - e.MinLat,
	}
	// Degenerate spans are illegal in the tree; pad to a hair of a degree.
	for i, l := range lengths {
		if l <= 0 {
			lengths[i] = 1e-9
		}
	}
	rect, _ := rtreego.NewRect(point, lengths)
	return rect
}

// Index answers point-in-footprint queries over a built geolocation engine.
type Index struct {
	rtree   *rtreego.Rtree
	extents []Extent
	wrapped bool
}

type lineSamples struct {
	line int
	lats []float64
	lons []float64
}

// Build samples each scan line at the swath edges and center and indexes
// the resulting bounding boxes. Lines whose samples all fail to geolocate
// are skipped. A pass crossing the antimeridian is detected by a line whose
// raw longitude span exceeds 180 degrees; the whole index then works in a
// [0, 360) frame so no box degenerates to a near-global one.
func Build(eng Geolocator, logger *slog.Logger) (*Index, error) {
	width := eng.ImageWidth()
	pixels := []int{0, width / 2, width - 1}

	var sampled []lineSamples
	wrapped := false
	skipped := 0

	for line := 0; line < eng.LineCount(); line++ {
		ls := lineSamples{line: line}
		for _, px := range pixels {
			lat, lon, err := eng.Inverse(px, line, false)
			if err != nil {
				continue
			}
			ls.lats = append(ls.lats, lat)
			ls.lons = append(ls.lons, lon)
		}
		if len(ls.lons) == 0 {
			skipped++
			continue
		}
		if lonSpan(ls.lons) > 180 {
			wrapped = true
		}
		sampled = append(sampled, ls)
	}

	if len(sampled) == 0 {
		return nil, fmt.Errorf("no scan line produced a usable footprint")
	}
	if skipped > 0 {
		logger.Warn("scan lines without footprint skipped", "skipped", skipped)
	}
	if wrapped {
		logger.Info("pass crosses the antimeridian, indexing in [0,360) frame")
	}

	rtree := rtreego.NewTree(2, 25, 50)
	extents := make([]Extent, 0, len(sampled))

	for _, ls := range sampled {
		ext := Extent{Line: ls.line, MinLat: 91, MinLon: 361, MaxLat: -91, MaxLon: -361}
		for i := range ls.lons {
			lat := ls.lats[i]
			lon := shiftLon(ls.lons[i], wrapped)
			if lat < ext.MinLat {
				ext.MinLat = lat
			}
			if lat > ext.MaxLat {
				ext.MaxLat = lat
			}
			if lon < ext.MinLon {
				ext.MinLon = lon
			}
			if lon > ext.MaxLon {
				ext.MaxLon = lon
			}
		}
		rtree.Insert(ext)
		extents = append(extents, ext)
	}

	return &Index{rtree: rtree, extents: extents, wrapped: wrapped}, nil
}

// lonSpan returns the raw min-to-max longitude spread of one line's samples.
func lonSpan(lons []float64) float64 {
	min, max := lons[0], lons[0]
	for _, l := range lons[1:] {
		if l < min {
			min = l
		}
		if l > max {
			max = l
		}
	}
	return max - min
}

// shiftLon moves a longitude into the index's working frame.
func shiftLon(lonDeg float64, wrapped bool) float64 {
	if wrapped && lonDeg < 0 {
		return lonDeg + 360
	}
	return lonDeg
}

// Wrapped reports whether the index works in the shifted [0, 360) frame.
func (idx *Index) Wrapped() bool {
	return idx.wrapped
}

// LinesNear returns the scan lines whose footprint boxes come within
// marginDeg of the given point, in ascending line order.
func (idx *Index) LinesNear(latDeg, lonDeg, marginDeg float64) []int {
	if marginDeg < 0 {
		marginDeg = 0
	}
	lonDeg = shiftLon(lonDeg, idx.wrapped)

	point := rtreego.Point{lonDeg - marginDeg, latDeg - marginDeg}
	lengths := []float64{2 * marginDeg, 2 * marginDeg}
	for i, l := range lengths {
		if l <= 0 {
			lengths[i] = 1e-9
		}
	}
	queryRect, _ := rtreego.NewRect(point, lengths)

	spatials := idx.rtree.SearchIntersect(queryRect)
	lines := make([]int, 0, len(spatials))
	for _, sp := range spatials {
		lines = append(lines, sp.(Extent).Line)
	}
	sort.Ints(lines)
	return lines
}

// Extents returns the indexed per-line boxes in line order.
func (idx *Index) Extents() []Extent {
	return idx.extents
}

// Bounds returns the pass's overall geographic bounding box, in the index's
// working frame.
func (idx *Index) Bounds() Extent {
	all := Extent{Line: -1, MinLat: 91, MinLon: 361, MaxLat: -91, MaxLon: -361}
	for _, e := range idx.extents {
		if e.MinLat < all.MinLat {
			all.MinLat = e.MinLat
		}
		if e.MaxLat > all.MaxLat {
			all.MaxLat = e.MaxLat
		}
		if e.MinLon < all.MinLon {
			all.MinLon = e.MinLon
		}
		if e.MaxLon > all.MaxLon {
			all.MaxLon = e.MaxLon
		}
	}
	return all
}
