package tpers

import (
	"math"
	"testing"
)

// TestNadirMapsToOrigin verifies the projection center maps to (0,0) and back.
func TestNadirMapsToOrigin(t *testing.T) {
	var pj Projection
	pj.Init(827000, 12.5, 47.25, 0, 0)

	x, y, ok := pj.Forward(12.5, 47.25)
	if !ok {
		t.Fatal("Forward at center reported out of range")
	}
	if math.Abs(x) > 1e-12 || math.Abs(y) > 1e-12 {
		t.Errorf("center projects to (%g, %g), want (0, 0)", x, y)
	}

	lon, lat, ok := pj.Inverse(0, 0)
	if !ok {
		t.Fatal("Inverse at origin reported out of range")
	}
	if math.Abs(lon-12.5) > 1e-12 || math.Abs(lat-47.25) > 1e-12 {
		t.Errorf("Inverse(0,0) = (%f, %f), want (12.5, 47.25)", lon, lat)
	}
}

// TestNadirFixedUnderRotation verifies that tilt/azimuth rotation keeps the
// center point at the origin: the rotation is about the view axis.
func TestNadirFixedUnderRotation(t *testing.T) {
	for _, az := range []float64{-135, -90, 0, 45, 170} {
		var pj Projection
		pj.Init(827000, -60, -10, 1.5, az)

		x, y, ok := pj.Forward(-60, -10)
		if !ok {
			t.Fatalf("az=%v: Forward at center reported out of range", az)
		}
		if math.Abs(x) > 1e-12 || math.Abs(y) > 1e-12 {
			t.Errorf("az=%v: center projects to (%g, %g), want (0, 0)", az, x, y)
		}
	}
}

// TestRoundTripNearCenter verifies Forward∘Inverse identity for points well
// inside the visible disc.
func TestRoundTripNearCenter(t *testing.T) {
	var pj Projection
	pj.Init(827000, 30, 55, 0.5, 37)

	points := [][2]float64{
		{30, 55},
		{31.2, 54.1},
		{28.7, 56.3},
		{30.05, 53.9},
		{33, 57},
	}

	for _, p := range points {
		x, y, ok := pj.Forward(p[0], p[1])
		if !ok {
			t.Fatalf("Forward(%v) reported out of range", p)
		}
		lon, lat, ok := pj.Inverse(x, y)
		if !ok {
			t.Fatalf("Inverse of Forward(%v) reported out of range", p)
		}
		if math.Abs(lon-p[0]) > 1e-6 || math.Abs(lat-p[1]) > 1e-6 {
			t.Errorf("round trip (%v) = (%f, %f)", p, lon, lat)
		}
	}
}

// TestForwardBeyondHorizon verifies the antipode saturates instead of
// producing NaN, so finite-difference callers can detect it.
func TestForwardBeyondHorizon(t *testing.T) {
	var pj Projection
	pj.Init(827000, 0, 0, 0, 0)

	x, y, ok := pj.Forward(180, 0)
	if ok {
		t.Fatal("antipode reported visible")
	}
	if math.IsNaN(x) || math.IsNaN(y) {
		t.Errorf("saturated coordinates are NaN: (%g, %g)", x, y)
	}
	if math.Abs(x) <= 1e10 && math.Abs(y) <= 1e10 {
		t.Errorf("saturated coordinates too small to detect: (%g, %g)", x, y)
	}
}

// TestInverseOutsideDisc verifies coordinates far off the visible disc fail
// cleanly rather than returning a wrapped position.
func TestInverseOutsideDisc(t *testing.T) {
	var pj Projection
	pj.Init(827000, 0, 0, 0, 0)

	if _, _, ok := pj.Inverse(50, 50); ok {
		t.Error("expected out-of-range for coordinates far outside the disc")
	}
}

// TestAzimuthRotatesTrack verifies that a 90° azimuth maps a northward
// ground offset onto the x axis, which is what orients scan lines across
// the flight direction.
func TestAzimuthRotatesTrack(t *testing.T) {
	var pj0, pj90 Projection
	pj0.Init(827000, 0, 0, 0, 0)
	pj90.Init(827000, 0, 0, 0, 90)

	_, y0, ok := pj0.Forward(0, 1)
	if !ok {
		t.Fatal("Forward(0,1) out of range with az=0")
	}
	x90, y90, ok := pj90.Forward(0, 1)
	if !ok {
		t.Fatal("Forward(0,1) out of range with az=90")
	}

	if math.Abs(y0) < 1e-6 {
		t.Fatal("northward offset did not project onto y with az=0")
	}
	// With zero tilt the rotation is a plain rotation of the view plane:
	// (x, y) -> (-y, x) for 90°.
	if math.Abs(x90+y0) > 1e-12 {
		t.Errorf("x under az=90 is %g, want %g", x90, -y0)
	}
	if math.Abs(y90) > 1e-12 {
		t.Errorf("northward offset still has y component %g under az=90", y90)
	}
}
