package transform

import (
	"math"
	"testing"
	"time"
)

// TestJulianDateJ2000 verifies the Julian Date of the J2000.0 epoch.
func TestJulianDateJ2000(t *testing.T) {
	// J2000.0 = 2000-01-01 12:00:00 UTC (ignoring the ~64s TT-UTC offset,
	// which is irrelevant at the precision tested here).
	jd := JulianDate(time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC))
	if math.Abs(jd-2451545.0) > 1e-9 {
		t.Errorf("JulianDate(J2000) = %.9f, want 2451545.0", jd)
	}
}

// TestGMSTRange verifies GMST stays in [0, 2π) over a day of samples.
func TestGMSTRange(t *testing.T) {
	base := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 24; i++ {
		g := GMST(base.Add(time.Duration(i) * time.Hour))
		if g < 0 || g >= 2*math.Pi {
			t.Errorf("GMST at +%dh = %f, out of [0, 2π)", i, g)
		}
	}
}

// TestTEMEToECEFMagnitude verifies the rotation preserves position magnitude.
func TestTEMEToECEFMagnitude(t *testing.T) {
	teme := StateTEME{X: 4000, Y: 4000, Z: 3000, VX: -5, VY: 4, VZ: 3}
	at := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)

	ecef := TEMEToECEF(teme, at)

	temeMag := math.Sqrt(teme.X*teme.X + teme.Y*teme.Y + teme.Z*teme.Z)
	ecefMag := math.Sqrt(ecef.X*ecef.X + ecef.Y*ecef.Y + ecef.Z*ecef.Z)
	if math.Abs(temeMag-ecefMag) > 1e-6 {
		t.Errorf("magnitude changed by rotation: %.9f -> %.9f", temeMag, ecefMag)
	}

	if !ValidateECEF(ecef) {
		t.Errorf("ECEF state failed validation: %+v", ecef)
	}
}

// TestGroundHeadingCardinal verifies heading for velocities aligned with the
// local east and north axes at the equator/prime meridian, where ENU is just
// a permutation of ECEF.
func TestGroundHeadingCardinal(t *testing.T) {
	// At lat=0, lon=0: east = +Y, north = +Z.
	east := StateECEF{VY: 7.5}
	h, speed := GroundHeading(east, 0, 0)
	if math.Abs(h-90) > 1e-9 || math.Abs(speed-7.5) > 1e-9 {
		t.Errorf("east velocity: heading=%f speed=%f, want 90, 7.5", h, speed)
	}

	north := StateECEF{VZ: 7.5}
	h, _ = GroundHeading(north, 0, 0)
	if math.Abs(h-0) > 1e-9 {
		t.Errorf("north velocity: heading=%f, want 0", h)
	}

	south := StateECEF{VZ: -7.5}
	h, _ = GroundHeading(south, 0, 0)
	if math.Abs(h-180) > 1e-9 {
		t.Errorf("south velocity: heading=%f, want 180", h)
	}
}

// TestGroundHeadingStationary verifies zero velocity reports zero speed so
// callers can detect the degenerate case.
func TestGroundHeadingStationary(t *testing.T) {
	_, speed := GroundHeading(StateECEF{}, 0.5, 1.0)
	if speed != 0 {
		t.Errorf("speed = %f, want 0", speed)
	}
}
