// Package transform provides coordinate frame transformations for satellite
// state vectors.
//
// SGP4 outputs position and velocity in TEME (True Equator Mean Equinox);
// the geolocation engine needs an earth-fixed frame to derive the satellite's
// instantaneous ground-track heading. The transform here is the simplified
// Vallado-style rotation using GMST only (TEME → PEF ≈ ECEF), ignoring polar
// motion and the equation of the equinoxes; the ~50m error this introduces is
// far below a scan line's ground resolution.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", Ch. 3.
package transform

import (
	"math"
	"time"
)

// StateTEME represents a satellite position and velocity in the TEME frame.
type StateTEME struct {
	X, Y, Z    float64 // km
	VX, VY, VZ float64 // km/s
}

// StateECEF represents a satellite position and velocity in the ECEF frame.
type StateECEF struct {
	X, Y, Z    float64 // km
	VX, VY, VZ float64 // km/s
}

// TEMEToECEF transforms a TEME state to ECEF at the given UTC time.
func TEMEToECEF(teme StateTEME, t time.Time) StateECEF {
	gmst := GMST(t)
	return TEMEToECEFWithGMST(teme, gmst)
}

// TEMEToECEFWithGMST transforms TEME to ECEF using a precomputed GMST angle
// (radians). Useful when transforming several samples at the same instant.
//
// Position transform: r_ECEF = R3(θ) * r_TEME
// Velocity transform: v_ECEF = R3(θ) * v_TEME - ω × r_ECEF
//
// where R3(θ) is a rotation about the Z-axis by angle θ (GMST),
// and ω = [0, 0, ω_earth] is Earth's angular velocity vector.
func TEMEToECEFWithGMST(teme StateTEME, gmst float64) StateECEF {
	cosG := math.Cos(gmst)
	sinG := math.Sin(gmst)

	// Position: R3(GMST) rotation.
	xECEF := teme.X*cosG + teme.Y*sinG
	yECEF := -teme.X*sinG + teme.Y*cosG
	zECEF := teme.Z

	// Velocity: R3(GMST) rotation, then subtract Earth rotation effect.
	// ω × r_ECEF = [-ω*y_ECEF, ω*x_ECEF, 0]
	vxRot := teme.VX*cosG + teme.VY*sinG
	vyRot := -teme.VX*sinG + teme.VY*cosG
	vzRot := teme.VZ

	vxECEF := vxRot + OmegaEarth*yECEF
	vyECEF := vyRot - OmegaEarth*xECEF
	vzECEF := vzRot

	return StateECEF{
		X:  xECEF,
		Y:  yECEF,
		Z:  zECEF,
		VX: vxECEF,
		VY: vyECEF,
		VZ: vzECEF,
	}
}

// ValidateECEF checks that an ECEF position is physically reasonable for an
// Earth-orbiting satellite. Returns true if valid.
func ValidateECEF(pos StateECEF) bool {
	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) {
		return false
	}
	if math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return false
	}

	// Earth radius is ~6371km. LEO is ~6571-6971km. GEO is ~42164km.
	// Allow a generous range: 6200km to 50000km.
	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	return mag >= 6200.0 && mag <= 50000.0
}
