package transform

import "math"

// GroundHeading resolves an ECEF velocity into local east/north components at
// the sub-satellite point and returns the ground-track heading in degrees
// (0 = north, clockwise) together with the horizontal ground speed in km/s.
//
// A near-zero ground speed means the heading is meaningless; callers must
// check speed before trusting the angle.
func GroundHeading(state StateECEF, latRad, lonRad float64) (headingDeg, speedKms float64) {
	sinLat := math.Sin(latRad)
	cosLat := math.Cos(latRad)
	sinLon := math.Sin(lonRad)
	cosLon := math.Cos(lonRad)

	// Rotate the ECEF velocity into the local ENU frame.
	vE := -sinLon*state.VX + cosLon*state.VY
	vN := -sinLat*cosLon*state.VX - sinLat*sinLon*state.VY + cosLat*state.VZ

	speedKms = math.Hypot(vE, vN)

	headingDeg = math.Atan2(vE, vN) * 180.0 / math.Pi
	if headingDeg < 0 {
		headingDeg += 360.0
	}

	return headingDeg, speedKms
}
