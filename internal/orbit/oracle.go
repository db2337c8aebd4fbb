// Package orbit wraps SGP4 propagation behind the position oracle the
// geolocation engine consumes: geodetic sub-satellite point, altitude,
// sensor footprint and ground-track heading at an arbitrary instant.
package orbit

import (
	"fmt"
	"math"
	"strings"
	"time"

	sgp4 "github.com/akhenakh/sgp4"

	"github.com/orbview/leoproj/internal/transform"
)

// SGP4 library choice: github.com/akhenakh/sgp4
//
// The engine samples positions 200ms either side of each scan timestamp, so
// the propagator must accept fractional-second times. FindPositionAtTime
// takes a time.Time (nanosecond resolution) and the library ships geodetic
// conversion. go-satellite is kept as an independent implementation for
// cross-validation in tests; its Propagate() is whole-second only.

// EarthRadiusKm is the spherical earth radius shared with the curvature
// model and the perspective projection.
const EarthRadiusKm = 6371.0

// State is the satellite state at one instant, in the units the engine uses:
// degrees and kilometers.
type State struct {
	Time        time.Time
	LatDeg      float64
	LonDeg      float64
	AltKm       float64
	FootprintKm float64 // ground diameter visible from the satellite
	HeadingDeg  float64 // ground-track heading, 0 = north, clockwise
	SpeedKms    float64 // horizontal ground speed; ~0 means HeadingDeg is undefined
}

// Oracle propagates one satellite. Immutable after construction; safe for
// concurrent use.
type Oracle struct {
	tle     *sgp4.TLE
	noradID int
}

// ParseElements creates an Oracle from two TLE lines.
// Returns an error if the element set is malformed; a geolocation run cannot
// proceed without a valid orbit, so callers treat this as fatal.
//
// Pre-validates line shape before handing off to the library so the error
// names the offending line instead of a column offset.
func ParseElements(line1, line2 string) (*Oracle, error) {
	if err := validateLines(line1, line2); err != nil {
		return nil, fmt.Errorf("invalid orbital elements: %w", err)
	}

	t, err := sgp4.ParseTLE(line1 + "\n" + line2)
	if err != nil {
		return nil, fmt.Errorf("parsing orbital elements: %w", err)
	}

	return &Oracle{tle: t, noradID: t.SatelliteNumber}, nil
}

// validateLines performs basic format validation on TLE lines.
func validateLines(line1, line2 string) error {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got %q", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got %q", line2[0])
	}
	return nil
}

// NORADID returns the catalog number from the element set.
func (o *Oracle) NORADID() int {
	return o.noradID
}

// InclinationDeg returns the orbital inclination, which bounds the latitudes
// the ground track can reach.
func (o *Oracle) InclinationDeg() float64 {
	return o.tle.Inclination
}

// At computes the satellite state at the given time.
func (o *Oracle) At(t time.Time) (State, error) {
	eci, err := o.tle.FindPositionAtTime(t.UTC())
	if err != nil {
		return State{}, fmt.Errorf("propagating NORAD %d: %w", o.noradID, err)
	}

	lat, lon, alt := eci.ToGeodetic()

	// Detect propagation failures via NaN/Inf check.
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsNaN(alt) ||
		math.IsInf(lat, 0) || math.IsInf(lon, 0) || math.IsInf(alt, 0) {
		return State{}, fmt.Errorf("propagation failed for NORAD %d: output is NaN/Inf", o.noradID)
	}

	// Sanity check: LEO through GEO altitudes only.
	if alt < 100.0 || alt > 50000.0 {
		return State{}, fmt.Errorf("propagation failed for NORAD %d: unreasonable altitude %.1f km", o.noradID, alt)
	}

	ecef := transform.TEMEToECEF(transform.StateTEME{
		X: eci.Position.X, Y: eci.Position.Y, Z: eci.Position.Z,
		VX: eci.Velocity.X, VY: eci.Velocity.Y, VZ: eci.Velocity.Z,
	}, t.UTC())
	if !transform.ValidateECEF(ecef) {
		return State{}, fmt.Errorf("propagation failed for NORAD %d: ECEF position out of bounds", o.noradID)
	}

	heading, speed := transform.GroundHeading(ecef, lat*math.Pi/180.0, lon*math.Pi/180.0)

	return State{
		Time:        t,
		LatDeg:      lat,
		LonDeg:      lon,
		AltKm:       alt,
		FootprintKm: Footprint(alt),
		HeadingDeg:  heading,
		SpeedKms:    speed,
	}, nil
}

// Footprint returns the diameter in km of the ground area visible from
// altitude altKm, on a spherical earth. This is the classic predict formula
// 2R·acos(R/(R+h)).
func Footprint(altKm float64) float64 {
	return 2.0 * EarthRadiusKm * math.Acos(EarthRadiusKm/(EarthRadiusKm+altKm))
}
