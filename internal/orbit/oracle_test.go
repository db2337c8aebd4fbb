package orbit

import (
	"math"
	"testing"
	"time"

	sgp4 "github.com/akhenakh/sgp4"
	satellite "github.com/joshuaferrara/go-satellite"
)

// ISS orbital elements, epoch 2024 day 100.5.
const (
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9009"
	issLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    01"
)

// Sun-synchronous 827km circular orbit, the geometry the correction model
// assumes for a typical polar weather satellite.
const (
	polarLine1 = "1 40069U 14037A   24100.50000000  .00000100  00000-0  10000-4 0  9992"
	polarLine2 = "2 40069  98.7000 150.0000 0001000  90.0000 270.0000 14.21700000 99991"
)

// TestParseElements verifies parsing and catalog number extraction.
func TestParseElements(t *testing.T) {
	o, err := ParseElements(issLine1, issLine2)
	if err != nil {
		t.Fatalf("ParseElements failed: %v", err)
	}
	if o.NORADID() != 25544 {
		t.Errorf("NORADID = %d, want 25544", o.NORADID())
	}
	if math.Abs(o.InclinationDeg()-51.64) > 1e-9 {
		t.Errorf("InclinationDeg = %f, want 51.64", o.InclinationDeg())
	}
}

// TestParseElementsMalformed verifies malformed input is rejected.
func TestParseElementsMalformed(t *testing.T) {
	if _, err := ParseElements("garbage", "more garbage"); err == nil {
		t.Fatal("expected error for malformed elements, got nil")
	}
	// Swapped lines must also fail.
	if _, err := ParseElements(issLine2, issLine1); err == nil {
		t.Fatal("expected error for swapped lines, got nil")
	}
}

// TestOracleStateSanity verifies the state near the TLE epoch is physically
// reasonable for the ISS orbit.
func TestOracleStateSanity(t *testing.T) {
	o, err := ParseElements(issLine1, issLine2)
	if err != nil {
		t.Fatalf("ParseElements failed: %v", err)
	}

	at := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	st, err := o.At(at)
	if err != nil {
		t.Fatalf("At failed: %v", err)
	}

	if math.Abs(st.LatDeg) > o.InclinationDeg()+0.5 {
		t.Errorf("latitude %.3f exceeds inclination bound %.3f", st.LatDeg, o.InclinationDeg())
	}
	if st.LonDeg < -180 || st.LonDeg > 180 {
		t.Errorf("longitude %.3f out of [-180, 180]", st.LonDeg)
	}
	if st.AltKm < 300 || st.AltKm > 500 {
		t.Errorf("altitude %.1f km, want ~420 km (ISS)", st.AltKm)
	}
	// Footprint for ~420 km altitude is ~4500 km.
	if st.FootprintKm < 4000 || st.FootprintKm > 5000 {
		t.Errorf("footprint %.1f km, want ~4500 km", st.FootprintKm)
	}
	// Orbital ground speed is ~7 km/s; heading must be usable.
	if st.SpeedKms < 5 || st.SpeedKms > 9 {
		t.Errorf("ground speed %.2f km/s, want ~7", st.SpeedKms)
	}
}

// TestOracleSubSecond verifies that sub-second sampling actually moves the
// satellite: 400ms of LEO motion is ~3 km of ground track.
func TestOracleSubSecond(t *testing.T) {
	o, err := ParseElements(polarLine1, polarLine2)
	if err != nil {
		t.Fatalf("ParseElements failed: %v", err)
	}

	at := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	before, err := o.At(at.Add(-200 * time.Millisecond))
	if err != nil {
		t.Fatalf("At(-200ms) failed: %v", err)
	}
	after, err := o.At(at.Add(200 * time.Millisecond))
	if err != nil {
		t.Fatalf("At(+200ms) failed: %v", err)
	}

	dLat := after.LatDeg - before.LatDeg
	dLon := after.LonDeg - before.LonDeg
	if dLat == 0 && dLon == 0 {
		t.Fatal("position did not change over a 400ms window")
	}
	// The two samples must stay within a few km of each other.
	distDeg := math.Hypot(dLat, dLon)
	if distDeg > 0.1 {
		t.Errorf("400ms ground motion = %.4f deg, implausibly large", distDeg)
	}
}

// TestFootprintFormula checks the predict footprint relation at a reference
// altitude: 2R·acos(R/(R+h)) for h=827 gives ~5900-6000 km.
func TestFootprintFormula(t *testing.T) {
	fp := Footprint(827.0)
	want := 2.0 * EarthRadiusKm * math.Acos(EarthRadiusKm/(EarthRadiusKm+827.0))
	if math.Abs(fp-want) > 1e-12 {
		t.Fatalf("Footprint(827) = %f, want %f", fp, want)
	}
	if fp < 5500 || fp > 6500 {
		t.Errorf("Footprint(827) = %.1f km, outside plausible range", fp)
	}
}

// TestCrossValidateSGP4 compares the oracle's TEME-derived geodetic position
// against an independent SGP4 implementation at a whole-second time.
// The two ports should agree to well under 10 km near the TLE epoch.
func TestCrossValidateSGP4(t *testing.T) {
	o, err := ParseElements(issLine1, issLine2)
	if err != nil {
		t.Fatalf("ParseElements failed: %v", err)
	}

	at := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	st, err := o.At(at)
	if err != nil {
		t.Fatalf("At failed: %v", err)
	}

	ref := satellite.TLEToSat(issLine1, issLine2, satellite.GravityWGS84)
	if ref.Error != 0 {
		t.Fatalf("reference SGP4 init failed: code=%d", ref.Error)
	}
	pos, _ := satellite.Propagate(ref, at.Year(), int(at.Month()), at.Day(), at.Hour(), at.Minute(), at.Second())

	gmst := satellite.GSTimeFromDate(at.Year(), int(at.Month()), at.Day(), at.Hour(), at.Minute(), at.Second())
	refAlt, _, refLL := satellite.ECIToLLA(pos, gmst)

	refLatDeg := refLL.Latitude * 180.0 / math.Pi
	refLonDeg := refLL.Longitude * 180.0 / math.Pi
	for refLonDeg > 180 {
		refLonDeg -= 360
	}
	for refLonDeg < -180 {
		refLonDeg += 360
	}

	// ~0.1 deg latitude ≈ 11 km.
	if math.Abs(st.LatDeg-refLatDeg) > 0.1 {
		t.Errorf("latitude disagreement: oracle=%.4f reference=%.4f", st.LatDeg, refLatDeg)
	}
	if lonDiff := math.Abs(st.LonDeg - refLonDeg); lonDiff > 0.1 && lonDiff < 359.9 {
		t.Errorf("longitude disagreement: oracle=%.4f reference=%.4f", st.LonDeg, refLonDeg)
	}
	if math.Abs(st.AltKm-refAlt) > 20 {
		t.Errorf("altitude disagreement: oracle=%.1f reference=%.1f", st.AltKm, refAlt)
	}
}

// TestOracleMatchesUnderlyingLibrary pins the oracle's geodetic output to the
// wrapped library so a refactor of the transform chain cannot silently change
// the sub-satellite point.
func TestOracleMatchesUnderlyingLibrary(t *testing.T) {
	o, err := ParseElements(polarLine1, polarLine2)
	if err != nil {
		t.Fatalf("ParseElements failed: %v", err)
	}

	ref, err := sgp4.ParseTLE(polarLine1 + "\n" + polarLine2)
	if err != nil {
		t.Fatalf("reference ParseTLE failed: %v", err)
	}

	at := time.Date(2024, 4, 10, 13, 30, 0, 0, time.UTC)
	st, err := o.At(at)
	if err != nil {
		t.Fatalf("At failed: %v", err)
	}

	eci, err := ref.FindPositionAtTime(at)
	if err != nil {
		t.Fatalf("reference FindPositionAtTime failed: %v", err)
	}
	lat, lon, alt := eci.ToGeodetic()

	if st.LatDeg != lat || st.LonDeg != lon || st.AltKm != alt {
		t.Errorf("oracle diverges from library: got (%.6f, %.6f, %.3f), want (%.6f, %.6f, %.3f)",
			st.LatDeg, st.LonDeg, st.AltKm, lat, lon, alt)
	}
}
