// Package reproject rasterizes geolocated pushbroom imagery onto an
// equirectangular latitude/longitude grid.
package reproject

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"runtime"
	"sync"

	"github.com/orbview/leoproj/internal/coverage"
	"github.com/orbview/leoproj/internal/geoloc"
	"github.com/orbview/leoproj/internal/metrics"
)

// maxCanvasPixels caps output allocation against degenerate resolution
// settings or passes straddling the antimeridian.
const maxCanvasPixels = 64 << 20

// Options controls the output grid and the geolocation mode.
type Options struct {
	// ResolutionDeg is the output grid spacing in degrees per pixel.
	ResolutionDeg float64

	// MarginDeg pads the pass's bounding box on every side.
	MarginDeg float64

	// Correct routes queries through the curvature tables. Set it when the
	// source image has been curvature-corrected.
	Correct bool

	// Workers sizes the geolocation worker pool. Zero means GOMAXPROCS.
	Workers int
}

// lineJob is a unit of work for the worker pool: one source scan line.
type lineJob struct {
	line int
}

// sample is one geolocated source pixel, already mapped to canvas space.
type sample struct {
	cx, cy int
	value  uint16
}

// lineResult is the output of geolocating a single scan line.
type lineResult struct {
	line    int
	samples []sample
	err     error
}

// grid maps geographic coordinates onto the output raster. For a pass
// crossing the antimeridian the grid lives in the coverage index's shifted
// [0, 360) longitude frame.
type grid struct {
	minLat, minLon float64
	resolution     float64
	width, height  int
	wrapped        bool
}

func (g *grid) cell(latDeg, lonDeg float64) (int, int, bool) {
	if g.wrapped && lonDeg < 0 {
		lonDeg += 360
	}
	cx := int((lonDeg - g.minLon) / g.resolution)
	// Latitude grows upward, rows grow downward.
	cy := g.height - 1 - int((latDeg-g.minLat)/g.resolution)
	if cx < 0 || cx >= g.width || cy < 0 || cy >= g.height {
		return 0, 0, false
	}
	return cx, cy, true
}

func newGrid(box coverage.Extent, wrapped bool, opts Options) (*grid, error) {
	minLat := box.MinLat - opts.MarginDeg
	maxLat := box.MaxLat + opts.MarginDeg
	minLon := box.MinLon - opts.MarginDeg
	maxLon := box.MaxLon + opts.MarginDeg

	g := &grid{
		minLat:     minLat,
		minLon:     minLon,
		resolution: opts.ResolutionDeg,
		width:      int((maxLon - minLon) / opts.ResolutionDeg),
		height:     int((maxLat - minLat) / opts.ResolutionDeg),
		wrapped:    wrapped,
	}
	if g.width <= 0 || g.height <= 0 {
		return nil, fmt.Errorf("empty output grid for box %+v at %v deg/px", box, opts.ResolutionDeg)
	}
	if g.width*g.height > maxCanvasPixels {
		return nil, fmt.Errorf("output grid %dx%d exceeds canvas limit", g.width, g.height)
	}
	return g, nil
}

// Equirect geolocates every pixel of src through the engine and paints it
// onto an equirectangular canvas covering the pass footprint. Unfilled
// cells remain zero.
func Equirect(ctx context.Context, eng *geoloc.Engine, idx *coverage.Index, src *image.Gray16, opts Options, logger *slog.Logger) (*image.Gray16, error) {
	if opts.ResolutionDeg <= 0 {
		return nil, fmt.Errorf("resolution must be positive, got %v", opts.ResolutionDeg)
	}

	srcW := src.Bounds().Dx()
	srcH := src.Bounds().Dy()
	if srcH != eng.LineCount() {
		return nil, fmt.Errorf("image has %d rows, engine has %d lines", srcH, eng.LineCount())
	}
	wantW := eng.ImageWidth()
	if opts.Correct {
		wantW = eng.Curvature().CorrectedWidth
	}
	if srcW != wantW {
		return nil, fmt.Errorf("image has %d columns, want %d", srcW, wantW)
	}

	g, err := newGrid(idx.Bounds(), idx.Wrapped(), opts)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	logger.Info("reprojecting pass",
		"lines", eng.LineCount(),
		"canvas_width", g.width,
		"canvas_height", g.height,
		"resolution_deg", opts.ResolutionDeg,
		"workers", workers,
	)

	jobs := make(chan lineJob, workers*2)
	results := make(chan lineResult, workers*2)

	// Start workers.
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				result := geolocateLine(eng, g, src, job.line, opts.Correct)
				select {
				case results <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Feed jobs in a goroutine.
	go func() {
		defer close(jobs)
		for line := 0; line < eng.LineCount(); line++ {
			select {
			case jobs <- lineJob{line: line}:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Close results when all workers are done.
	go func() {
		wg.Wait()
		close(results)
	}()

	// Painting is serialized in the collector; workers never touch the
	// canvas directly.
	out := image.NewGray16(image.Rect(0, 0, g.width, g.height))
	var painted, failedLines int

	for result := range results {
		if result.err != nil {
			failedLines++
			logger.Warn("scan line dropped", "line", result.line, "error", result.err)
			continue
		}
		for _, s := range result.samples {
			out.SetGray16(s.cx, s.cy, color.Gray16{Y: s.value})
		}
		painted += len(result.samples)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	metrics.AddReprojectedSamples(painted)
	logger.Info("reprojection done", "samples", painted, "failed_lines", failedLines)
	return out, nil
}

// geolocateLine maps one source row's pixels to canvas cells. Individual
// pixels outside the projection range are skipped; the line only fails if
// nothing geolocates.
func geolocateLine(eng *geoloc.Engine, g *grid, src *image.Gray16, line int, correct bool) lineResult {
	width := src.Bounds().Dx()
	samples := make([]sample, 0, width)

	for srcX := 0; srcX < width; srcX++ {
		px := srcX
		if correct {
			// The engine's query surface takes raw pixel indices; resolve
			// the corrected column to its raw source pixel and let the
			// corrected-mode query place it back on the ground-uniform
			// grid the image was resampled to.
			px = eng.Curvature().Inverse[srcX]
		}
		lat, lon, err := eng.Inverse(px, line, correct)
		if err != nil {
			continue
		}
		cx, cy, ok := g.cell(lat, lon)
		if !ok {
			continue
		}
		v := src.Gray16At(src.Bounds().Min.X+srcX, src.Bounds().Min.Y+line)
		samples = append(samples, sample{cx: cx, cy: cy, value: v.Y})
	}

	if len(samples) == 0 {
		return lineResult{line: line, err: fmt.Errorf("no pixel geolocated")}
	}
	return lineResult{line: line, samples: samples}
}
