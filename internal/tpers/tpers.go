// Package tpers implements a tilted perspective map projection: the view of
// a spherical earth from a point at finite altitude, optionally tilted off
// nadir and rotated to an arbitrary azimuth.
//
// This is the standard near-sided general vertical perspective formulation
// (Snyder, "Map Projections: A Working Manual", p. 173), extended with the
// tilt/azimuth rotation. The geolocation engine centers one instance per
// scan line on the sub-satellite point, oriented along the ground track.
//
// Coordinates at the projection interface are dimensionless view-plane
// units; longitudes and latitudes are degrees.
package tpers

import "math"

const (
	earthRadiusM = 6371000.0
	deg2rad      = math.Pi / 180.0
	rad2deg      = 180.0 / math.Pi

	// Forward saturates to ±saturated for points behind the horizon so that
	// callers doing finite differences can detect the failure without
	// handling an error mid-formula.
	saturated = 2e10

	eps = 1e-10
)

// Projection is a tilted perspective projection. Zero value is unusable;
// call Init first. Plain value type: one instance per scan line is copied
// into the engine's line table.
type Projection struct {
	lam0, phi0     float64 // projection center, radians
	sinph0, cosph0 float64

	// Perspective constants derived from altitude.
	pn1, p, rp, h, pfact float64

	// Tilt/azimuth rotation terms.
	cg, sg, cw, sw float64
}

// Init configures the projection for a viewpoint at altM meters above
// (latDeg, lonDeg), tilted tiltDeg off nadir, rotated azDeg clockwise.
func (pj *Projection) Init(altM, lonDeg, latDeg, tiltDeg, azDeg float64) {
	pj.lam0 = lonDeg * deg2rad
	pj.phi0 = latDeg * deg2rad
	pj.sinph0 = math.Sin(pj.phi0)
	pj.cosph0 = math.Cos(pj.phi0)

	pj.pn1 = altM / earthRadiusM
	pj.p = 1.0 + pj.pn1
	pj.rp = 1.0 / pj.p
	pj.h = 1.0 / pj.pn1
	pj.pfact = (pj.p + 1.0) * pj.h

	gamma := azDeg * deg2rad
	omega := tiltDeg * deg2rad
	pj.cg = math.Cos(gamma)
	pj.sg = math.Sin(gamma)
	pj.cw = math.Cos(omega)
	pj.sw = math.Sin(omega)
}

// Forward projects (lonDeg, latDeg) to view-plane coordinates.
// Points beyond the visible horizon return saturated coordinates and
// ok=false; the values are intentionally finite so deltas remain computable.
func (pj *Projection) Forward(lonDeg, latDeg float64) (x, y float64, ok bool) {
	lam := lonDeg*deg2rad - pj.lam0
	// Wrap the longitude difference to (-π, π].
	for lam > math.Pi {
		lam -= 2 * math.Pi
	}
	for lam < -math.Pi {
		lam += 2 * math.Pi
	}
	phi := latDeg * deg2rad

	sinphi := math.Sin(phi)
	cosphi := math.Cos(phi)
	coslam := math.Cos(lam)

	cosz := pj.sinph0*sinphi + pj.cosph0*cosphi*coslam
	if cosz < pj.rp {
		return saturated, saturated, false
	}

	w := pj.pn1 / (pj.p - cosz)
	x = w * cosphi * math.Sin(lam)
	y = w * (pj.cosph0*sinphi - pj.sinph0*cosphi*coslam)

	// Apply the tilt/azimuth rotation.
	yt := y*pj.cg + x*pj.sg
	ba := 1.0 / (yt*pj.sw*pj.h + pj.cw)
	x = (x*pj.cg - y*pj.sg) * pj.cw * ba
	y = yt * ba

	return x, y, true
}

// Inverse maps view-plane coordinates back to (lonDeg, latDeg).
// Returns ok=false when (x, y) lies outside the representable range of the
// perspective (off the visible disc).
func (pj *Projection) Inverse(x, y float64) (lonDeg, latDeg float64, ok bool) {
	// Undo the tilt/azimuth rotation.
	yt := 1.0 / (pj.pn1 - y*pj.sw)
	bm := pj.pn1 * x * yt
	bq := pj.pn1 * y * pj.cw * yt
	x = bm*pj.cg + bq*pj.sg
	y = bq*pj.cg - bm*pj.sg

	rh := math.Hypot(x, y)

	sinz := 1.0 - rh*rh*pj.pfact
	if sinz < 0 {
		return 0, 0, false
	}
	sinz = (pj.p - math.Sqrt(sinz)) / (pj.pn1/rh + rh/pj.pn1)
	cosz := math.Sqrt(1.0 - sinz*sinz)

	var lam, phi float64
	if math.Abs(rh) <= eps {
		// Exactly at the projection center.
		lam = 0
		phi = pj.phi0
	} else {
		phi = math.Asin(cosz*pj.sinph0 + y*sinz*pj.cosph0/rh)
		yl := (cosz - pj.sinph0*math.Sin(phi)) * rh
		xl := x * sinz * pj.cosph0
		lam = math.Atan2(xl, yl)
	}

	lonDeg = (lam + pj.lam0) * rad2deg
	for lonDeg > 180 {
		lonDeg -= 360
	}
	for lonDeg < -180 {
		lonDeg += 360
	}
	latDeg = phi * rad2deg

	return lonDeg, latDeg, true
}
