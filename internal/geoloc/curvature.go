package geoloc

import (
	"math"

	"github.com/orbview/leoproj/internal/orbit"
)

// CurvatureTable precomputes the mapping between the instrument's raw pixel
// grid (fixed angular sampling, foreshortened toward the swath edges) and a
// grid of uniform ground distance on a spherical earth.
type CurvatureTable struct {
	// Forward maps a raw pixel index to its fractional position on the
	// corrected grid. Monotonically increasing across the raw domain.
	Forward []float64

	// Inverse maps a corrected output pixel to the nearest raw source
	// pixel. Indexed only with corrected-space pixels.
	Inverse []int

	// CorrectedWidth is the corrected grid size, round(swath/resolution).
	CorrectedWidth int

	// EdgeAngleRad is the satellite-relative view angle at the swath
	// boundary.
	EdgeAngleRad float64
}

// newCurvatureTable builds the tables for a sensor of imageWidth raw pixels
// scanning swathKm of ground at resolutionKm per corrected sample, from an
// assumed orbit heightKm above the surface.
func newCurvatureTable(imageWidth int, swathKm, resolutionKm, heightKm float64) *CurvatureTable {
	orbitRadius := orbit.EarthRadiusKm + heightKm
	correctedWidth := int(math.Round(swathKm / resolutionKm))

	// Central angle subtended by the full swath.
	viewAngle := swathKm / orbit.EarthRadiusKm
	edge := satelliteViewAngle(viewAngle/2, orbitRadius)

	t := &CurvatureTable{
		Forward:        make([]float64, imageWidth),
		Inverse:        make([]int, correctedWidth),
		CorrectedWidth: correctedWidth,
		EdgeAngleRad:   edge,
	}

	// Raw → corrected: invert the chord relation in closed form.
	// From sat = -atan(R·sin(g) / (R·cos(g) - orbitR)) it follows that
	// sin(g + sat) = (orbitR/R)·sin(sat), so g = asin((orbitR/R)·sin(sat)) - sat.
	for px := 0; px < imageWidth; px++ {
		sat := edge * (2.0*float64(px)/float64(imageWidth) - 1.0)
		ground := math.Asin(orbitRadius/orbit.EarthRadiusKm*math.Sin(sat)) - sat
		t.Forward[px] = (ground/viewAngle + 0.5) * float64(correctedWidth)
	}

	// Corrected → raw: uniform ground sampling back through the sensor's
	// actual angular sampling, nearest raw pixel per corrected bin.
	for i := 0; i < correctedWidth; i++ {
		ground := (float64(i)/float64(correctedWidth) - 0.5) * viewAngle
		sat := satelliteViewAngle(ground, orbitRadius)
		raw := float64(imageWidth) * ((sat/edge + 1.0) / 2.0)
		t.Inverse[i] = clampInt(int(math.Round(raw)), 0, imageWidth-1)
	}

	return t
}

// satelliteViewAngle converts a ground central angle to the satellite's view
// angle via the chord between the sub-satellite line and the observed point.
func satelliteViewAngle(ground, orbitRadiusKm float64) float64 {
	return -math.Atan(orbit.EarthRadiusKm * math.Sin(ground) /
		(math.Cos(ground)*orbit.EarthRadiusKm - orbitRadiusKm))
}

// CorrectScanline resamples one raw scan line onto the corrected uniform
// ground-distance grid, nearest neighbor through the inverse table.
func (t *CurvatureTable) CorrectScanline(raw []uint16) []uint16 {
	out := make([]uint16, t.CorrectedWidth)
	for i, src := range t.Inverse {
		if src < len(raw) {
			out[i] = raw[src]
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
