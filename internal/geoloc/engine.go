// Package geoloc builds a per-scan-line geographic projection for LEO
// pushbroom and step-scan instrument imagery and answers point-wise
// geolocation queries against it: which latitude/longitude did sample
// (pixel, line) observe?
//
// Construction propagates the satellite to every scan timestamp, estimates
// the along-track azimuth for each line, and configures one perspective
// projection per line. After construction the engine is immutable, so
// concurrent Inverse queries need no locking.
package geoloc

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/orbview/leoproj/internal/metrics"
	"github.com/orbview/leoproj/internal/orbit"
	"github.com/orbview/leoproj/internal/tpers"
)

var (
	// ErrOutOfRange reports a pixel or line index outside the imaged area.
	ErrOutOfRange = errors.New("pixel or line outside the imaged area")

	// ErrUnprojectable reports a coordinate outside the representable range
	// of the line's projection.
	ErrUnprojectable = errors.New("coordinate outside the projection range")
)

// Settings configures a geolocation engine. All fields are read once at
// construction.
type Settings struct {
	// ImageWidth is the raw instrument pixel count per scan line.
	ImageWidth int

	// CorrectionSwathKm, CorrectionResolutionKm and CorrectionHeightKm
	// parameterize the curvature tables: ground swath, corrected sample
	// spacing, and the assumed orbit height.
	CorrectionSwathKm      float64
	CorrectionResolutionKm float64
	CorrectionHeightKm     float64

	// InstrumentSwathKm is the sensor's true field-of-view ground extent,
	// used to rescale query coordinates against the per-line footprint.
	InstrumentSwathKm float64

	// ProjectionScale and PixelOffset adjust the mapping from pixel
	// position to projection-space coordinates.
	ProjectionScale float64
	PixelOffset     float64

	// TiltOffsetDeg and AzimuthOffsetDeg are fixed pointing corrections.
	// The azimuth offset is applied on a consistent physical side of the
	// ground track regardless of pass direction.
	TiltOffsetDeg    float64
	AzimuthOffsetDeg float64

	// TimeOffset shifts every scan timestamp, correcting clock bias
	// between the downlink and the element set epoch.
	TimeOffset time.Duration

	// InvertScan mirrors the pixel axis for instruments scanning in the
	// opposite direction.
	InvertScan bool

	// Line1, Line2 are the satellite's two-line orbital elements.
	Line1 string
	Line2 string

	// Timestamps holds one UTC acquisition time per scan line, in scan
	// order, monotonically non-decreasing.
	Timestamps []time.Time
}

// scanLine bundles everything describing one scan instant. Keeping the
// fields in one struct guarantees a query never mixes state from two lines.
type scanLine struct {
	proj        tpers.Projection
	footprintKm float64
	azimuthDeg  float64
	state       orbit.State
}

// Engine is an immutable scan-line geolocation engine. Safe for concurrent
// Inverse queries after construction.
type Engine struct {
	settings  Settings
	curvature *CurvatureTable
	lines     []scanLine
	fallbacks int
}

// LineInfo describes one scan line's precomputed state, the diagnostics
// surface over the retained position cache.
type LineInfo struct {
	Line        int       `json:"line"`
	Time        time.Time `json:"time"`
	LatDeg      float64   `json:"lat_deg"`
	LonDeg      float64   `json:"lon_deg"`
	AltKm       float64   `json:"alt_km"`
	FootprintKm float64   `json:"footprint_km"`
	AzimuthDeg  float64   `json:"azimuth_deg"`
}

// New constructs an engine from settings. Any orbital-element or
// propagation failure is fatal: no partial engine is returned.
func New(settings Settings, logger *slog.Logger) (*Engine, error) {
	start := time.Now()

	if settings.ImageWidth <= 0 {
		return nil, fmt.Errorf("image width must be positive, got %d", settings.ImageWidth)
	}
	if settings.CorrectionSwathKm <= 0 || settings.CorrectionResolutionKm <= 0 {
		return nil, fmt.Errorf("correction swath and resolution must be positive")
	}
	if settings.InstrumentSwathKm <= 0 {
		return nil, fmt.Errorf("instrument swath must be positive")
	}
	if settings.ProjectionScale == 0 {
		return nil, fmt.Errorf("projection scale must be non-zero")
	}
	if len(settings.Timestamps) == 0 {
		return nil, fmt.Errorf("no scan timestamps")
	}
	for i := 1; i < len(settings.Timestamps); i++ {
		if settings.Timestamps[i].Before(settings.Timestamps[i-1]) {
			return nil, fmt.Errorf("scan timestamps not monotonic at line %d", i)
		}
	}

	oracle, err := orbit.ParseElements(settings.Line1, settings.Line2)
	if err != nil {
		return nil, err
	}

	logger.Debug("building curvature table",
		"image_width", settings.ImageWidth,
		"swath_km", settings.CorrectionSwathKm,
		"resolution_km", settings.CorrectionResolutionKm,
	)
	curvature := newCurvatureTable(
		settings.ImageWidth,
		settings.CorrectionSwathKm,
		settings.CorrectionResolutionKm,
		settings.CorrectionHeightKm,
	)

	est := &azimuthEstimator{oracle: oracle}
	lines := make([]scanLine, 0, len(settings.Timestamps))

	for ln, ts := range settings.Timestamps {
		t := ts.Add(settings.TimeOffset)

		st, err := oracle.At(t)
		if err != nil {
			return nil, fmt.Errorf("scan line %d: %w", ln, err)
		}

		raw, err := est.estimate(t, st)
		if err != nil {
			return nil, fmt.Errorf("scan line %d azimuth: %w", ln, err)
		}

		// The configured azimuth offset is relative to the flight vector;
		// swap its sign with the track direction so it stays on the same
		// physical side of the ground track.
		invertOffset := raw > 0
		az := raw - 90.0
		if invertOffset {
			az -= settings.AzimuthOffsetDeg
		} else {
			az += settings.AzimuthOffsetDeg
		}

		var pj tpers.Projection
		pj.Init(st.AltKm*1000.0, st.LonDeg, st.LatDeg, settings.TiltOffsetDeg, az)

		lines = append(lines, scanLine{
			proj:        pj,
			footprintKm: st.FootprintKm,
			azimuthDeg:  az,
			state:       st,
		})
	}

	e := &Engine{
		settings:  settings,
		curvature: curvature,
		lines:     lines,
		fallbacks: est.fallbacks,
	}

	elapsed := time.Since(start)
	metrics.ObserveEngineBuild(elapsed, len(lines), est.fallbacks)
	logger.Info("geolocation engine ready",
		"norad_id", oracle.NORADID(),
		"lines", len(lines),
		"corrected_width", curvature.CorrectedWidth,
		"azimuth_fallbacks", est.fallbacks,
		"build_ms", elapsed.Milliseconds(),
	)

	return e, nil
}

// Inverse answers a point-wise geolocation query: the geodetic coordinate
// observed by raw pixel pixelX of scan line line. With correct set, the
// pixel is first resolved through the curvature tables so queries match a
// curvature-corrected image.
func (e *Engine) Inverse(pixelX, line int, correct bool) (latDeg, lonDeg float64, err error) {
	if line < 0 || line >= len(e.lines) || pixelX < 0 || pixelX >= e.settings.ImageWidth {
		metrics.AddInverseQueries(0, 1)
		return 0, 0, ErrOutOfRange
	}

	ln := &e.lines[line]

	var x, width float64
	if correct {
		x = e.curvature.Forward[pixelX]
		width = float64(e.curvature.CorrectedWidth)
	} else {
		x = float64(pixelX)
		width = float64(e.settings.ImageWidth)
	}

	if e.settings.InvertScan {
		x = (width - 1.0) - x
	}

	// Recenter on the line midpoint and normalize to projection space.
	x -= width / 2.0
	x += e.settings.PixelOffset
	px := x / (e.settings.ProjectionScale * (width / 2.0))

	// The instrument's field of view is fixed, but the projection is not
	// metrically matched to it; the true footprint varies with altitude,
	// so the rescale is per line.
	px *= e.settings.InstrumentSwathKm / ln.footprintKm

	lon, lat, ok := ln.proj.Inverse(px, 0)
	if !ok {
		metrics.AddInverseQueries(0, 1)
		return 0, 0, ErrUnprojectable
	}
	metrics.AddInverseQueries(1, 0)
	return lat, lon, nil
}

// LineCount returns the number of scan lines the engine was built with.
func (e *Engine) LineCount() int {
	return len(e.lines)
}

// ImageWidth returns the raw pixel count per scan line.
func (e *Engine) ImageWidth() int {
	return e.settings.ImageWidth
}

// Curvature returns the engine's curvature tables.
func (e *Engine) Curvature() *CurvatureTable {
	return e.curvature
}

// AzimuthFallbacks reports how many lines used a fallback azimuth.
func (e *Engine) AzimuthFallbacks() int {
	return e.fallbacks
}

// Track returns per-line state for diagnostics: the retained position cache
// plus each line's final projection azimuth.
func (e *Engine) Track() []LineInfo {
	infos := make([]LineInfo, len(e.lines))
	for i, ln := range e.lines {
		infos[i] = LineInfo{
			Line:        i,
			Time:        ln.state.Time,
			LatDeg:      ln.state.LatDeg,
			LonDeg:      ln.state.LonDeg,
			AltKm:       ln.state.AltKm,
			FootprintKm: ln.footprintKm,
			AzimuthDeg:  ln.azimuthDeg,
		}
	}
	return infos
}
