package geoloc

import (
	"math"
	"time"

	"github.com/orbview/leoproj/internal/orbit"
	"github.com/orbview/leoproj/internal/tpers"
)

const (
	deg2rad = math.Pi / 180.0
	rad2deg = 180.0 / math.Pi
)

const (
	// Finite-difference half window. Small enough that orbital curvature
	// over the interval is negligible, large enough to stay above the
	// propagator's numeric noise floor.
	azimuthWindow = 200 * time.Millisecond

	// Logical tangent-plane raster the two samples are projected into.
	azimuthGridSize = 200
	azimuthScale    = 4.0
)

// positioner is the slice of the orbital oracle the estimator needs.
type positioner interface {
	At(t time.Time) (orbit.State, error)
}

// azimuthEstimator derives each scan line's along-track azimuth from two
// position samples bracketing the scan instant, projected into a local
// tangent plane centered on the nadir point. The propagator exposes no
// direct azimuth, so the angle is recovered by finite difference.
//
// Not safe for concurrent use: it carries the previous line's raw azimuth
// as the last-resort fallback. Construction is sequential in scan order.
type azimuthEstimator struct {
	oracle    positioner
	prevRaw   float64
	havePrev  bool
	fallbacks int
}

// estimate returns the raw tangent-plane azimuth in degrees for the scan at
// time t, whose sub-satellite state is nadir. The raw angle is in (-90, 90];
// the engine applies the -90° convention shift and the configured offset.
func (az *azimuthEstimator) estimate(t time.Time, nadir orbit.State) (float64, error) {
	var pj tpers.Projection
	pj.Init(nadir.AltKm*1000.0, nadir.LonDeg, nadir.LatDeg, 0, 0)

	before, err := az.oracle.At(t.Add(-azimuthWindow))
	if err != nil {
		return 0, err
	}
	after, err := az.oracle.At(t.Add(azimuthWindow))
	if err != nil {
		return 0, err
	}

	raw := 0.0
	valid := false

	x1, y1, ok1 := tangentPlane(&pj, before)
	x2, y2, ok2 := tangentPlane(&pj, after)
	if ok1 && ok2 {
		dx := x1 - x2
		dy := y1 - y2
		if dx != 0 || dy != 0 {
			// dx == 0 divides to ±Inf and Atan returns ±90; only the
			// fully degenerate pair needs the fallback path.
			raw = math.Atan(dy/dx) * rad2deg
			valid = true
		}
	}

	if !valid {
		az.fallbacks++
		var ok bool
		raw, ok = headingAzimuth(nadir)
		if !ok {
			if az.havePrev {
				raw = az.prevRaw
			} else {
				raw = 0
			}
		}
	}

	az.prevRaw = raw
	az.havePrev = true
	return raw, nil
}

// tangentPlane maps a ground position into the logical raster used for the
// finite difference, y growing downward like an image row index.
// Saturated or non-finite projections are rejected.
func tangentPlane(pj *tpers.Projection, st orbit.State) (float64, float64, bool) {
	x, y, ok := pj.Forward(st.LonDeg, st.LatDeg)
	if !ok || math.Abs(x) > 1e10 || math.Abs(y) > 1e10 {
		return 0, 0, false
	}

	const half = float64(azimuthGridSize) / 2.0
	px := x*azimuthScale*half + half
	py := float64(azimuthGridSize-1) - (y*azimuthScale*half + half)
	return px, py, true
}

// headingAzimuth reconstructs the raw tangent-plane angle from the oracle's
// ground-track heading, reproducing the finite-difference geometry for the
// degenerate case where the two projected samples coincide.
func headingAzimuth(nadir orbit.State) (float64, bool) {
	if nadir.SpeedKms < 1e-9 {
		return 0, false
	}

	hr := nadir.HeadingDeg * deg2rad
	dx := -math.Sin(hr) // behind-minus-ahead, tangent-plane east axis
	dy := math.Cos(hr)  // behind-minus-ahead, image-down axis
	if dx == 0 && dy == 0 {
		return 0, false
	}
	return math.Atan(dy/dx) * rad2deg, true
}
