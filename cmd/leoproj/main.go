package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/orbview/leoproj/internal/coverage"
	"github.com/orbview/leoproj/internal/diag"
	"github.com/orbview/leoproj/internal/geoloc"
	"github.com/orbview/leoproj/internal/metrics"
	"github.com/orbview/leoproj/internal/monitor"
	"github.com/orbview/leoproj/internal/reproject"
	"github.com/orbview/leoproj/internal/tle"
)

// passFile is the on-disk pass description: which satellite took the
// image, the instrument geometry, and one acquisition time per scan line.
type passFile struct {
	Satellite struct {
		NORADID int    `json:"norad_id"`
		Line1   string `json:"line1"`
		Line2   string `json:"line2"`
	} `json:"satellite"`
	Instrument struct {
		ImageWidth             int     `json:"image_width"`
		CorrectionSwathKm      float64 `json:"correction_swath_km"`
		CorrectionResolutionKm float64 `json:"correction_resolution_km"`
		CorrectionHeightKm     float64 `json:"correction_height_km"`
		InstrumentSwathKm      float64 `json:"instrument_swath_km"`
		ProjectionScale        float64 `json:"projection_scale"`
		PixelOffset            float64 `json:"pixel_offset"`
		TiltOffsetDeg          float64 `json:"tilt_offset_deg"`
		AzimuthOffsetDeg       float64 `json:"azimuth_offset_deg"`
		InvertScan             bool    `json:"invert_scan"`
	} `json:"instrument"`
	TimeOffsetSeconds float64   `json:"time_offset_seconds"`
	Timestamps        []float64 `json:"timestamps"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	passPath := flag.String("pass", "", "pass description JSON (required)")
	inPath := flag.String("in", "", "input scan image (16-bit grayscale PNG)")
	outPath := flag.String("out", "", "output reprojected PNG")
	trackPath := flag.String("dump-track", "", "write per-line track dump (zstd JSON lines)")
	correct := flag.Bool("correct", false, "input image is curvature-corrected")
	resDeg := flag.Float64("res", 0.05, "output grid resolution in degrees per pixel")
	marginDeg := flag.Float64("margin", 1.0, "output grid margin in degrees")
	flag.Parse()

	if *passPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pass, err := loadPassFile(*passPath)
	if err != nil {
		logger.Error("invalid pass description", "path", *passPath, "error", err)
		os.Exit(1)
	}

	line1, line2 := pass.Satellite.Line1, pass.Satellite.Line2
	if line1 == "" || line2 == "" {
		tleCfg := loadTLEConfig(logger, pass.Satellite.NORADID)
		line1, line2, err = resolveElements(ctx, tleCfg, pass.Satellite.NORADID, logger)
		if err != nil {
			logger.Error("no orbital elements available", "norad_id", pass.Satellite.NORADID, "error", err)
			os.Exit(1)
		}
	}

	settings := geoloc.Settings{
		ImageWidth:             pass.Instrument.ImageWidth,
		CorrectionSwathKm:      pass.Instrument.CorrectionSwathKm,
		CorrectionResolutionKm: pass.Instrument.CorrectionResolutionKm,
		CorrectionHeightKm:     pass.Instrument.CorrectionHeightKm,
		InstrumentSwathKm:      pass.Instrument.InstrumentSwathKm,
		ProjectionScale:        pass.Instrument.ProjectionScale,
		PixelOffset:            pass.Instrument.PixelOffset,
		TiltOffsetDeg:          pass.Instrument.TiltOffsetDeg,
		AzimuthOffsetDeg:       pass.Instrument.AzimuthOffsetDeg,
		TimeOffset:             time.Duration(pass.TimeOffsetSeconds * float64(time.Second)),
		InvertScan:             pass.Instrument.InvertScan,
		Line1:                  line1,
		Line2:                  line2,
		Timestamps:             unixTimestamps(pass.Timestamps),
	}

	eng, err := geoloc.New(settings, logger)
	if err != nil {
		logger.Error("engine build failed", "error", err)
		os.Exit(1)
	}

	idx, err := coverage.Build(eng, logger)
	if err != nil {
		logger.Error("coverage index build failed", "error", err)
		os.Exit(1)
	}
	box := idx.Bounds()
	logger.Info("pass footprint",
		"min_lat", box.MinLat, "max_lat", box.MaxLat,
		"min_lon", box.MinLon, "max_lon", box.MaxLon,
	)

	// Optional operational surface: probes, metrics, pass status.
	var srv *monitor.Server
	if addr := os.Getenv("LEOPROJ_HTTP_ADDR"); addr != "" {
		srv = monitor.NewServer(addr, metrics.Handler(), logger)
		srv.SetStatus(monitor.Status{
			NORADID:          pass.Satellite.NORADID,
			Lines:            eng.LineCount(),
			CorrectedWidth:   eng.Curvature().CorrectedWidth,
			AzimuthFallbacks: eng.AzimuthFallbacks(),
			MinLat:           box.MinLat,
			MinLon:           box.MinLon,
			MaxLat:           box.MaxLat,
			MaxLon:           box.MaxLon,
		})
		go func() {
			logger.Info("starting monitor server", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("monitor listen error", "error", err)
				os.Exit(1)
			}
		}()
	}

	if *trackPath != "" {
		if err := writeTrack(*trackPath, eng.Track()); err != nil {
			logger.Error("track dump failed", "path", *trackPath, "error", err)
			os.Exit(1)
		}
		logger.Info("track dump written", "path", *trackPath, "lines", eng.LineCount())
	}

	if *inPath != "" && *outPath != "" {
		src, err := readGray16PNG(*inPath)
		if err != nil {
			logger.Error("reading input image", "path", *inPath, "error", err)
			os.Exit(1)
		}
		out, err := reproject.Equirect(ctx, eng, idx, src, reproject.Options{
			ResolutionDeg: *resDeg,
			MarginDeg:     *marginDeg,
			Correct:       *correct,
			Workers:       runtime.NumCPU(),
		}, logger)
		if err != nil {
			logger.Error("reprojection failed", "error", err)
			os.Exit(1)
		}
		if err := writePNG(*outPath, out); err != nil {
			logger.Error("writing output image", "path", *outPath, "error", err)
			os.Exit(1)
		}
		logger.Info("reprojected image written", "path", *outPath,
			"width", out.Bounds().Dx(), "height", out.Bounds().Dy())
	}

	if srv == nil {
		return
	}

	// Keep serving probes and metrics until interrupted.
	<-ctx.Done()
	logger.Info("shutting down monitor server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("monitor shutdown error", "error", err)
		os.Exit(1)
	}
	logger.Info("monitor stopped")
}

func loadPassFile(path string) (*passFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pass passFile
	if err := json.Unmarshal(data, &pass); err != nil {
		return nil, fmt.Errorf("parsing pass description: %w", err)
	}
	if pass.Instrument.ImageWidth <= 0 {
		return nil, errors.New("instrument.image_width must be positive")
	}
	if len(pass.Timestamps) == 0 {
		return nil, errors.New("timestamps must not be empty")
	}
	if pass.Satellite.NORADID <= 0 && (pass.Satellite.Line1 == "" || pass.Satellite.Line2 == "") {
		return nil, errors.New("satellite.norad_id or explicit element lines required")
	}
	return &pass, nil
}

func unixTimestamps(secs []float64) []time.Time {
	ts := make([]time.Time, len(secs))
	for i, s := range secs {
		whole, frac := math.Modf(s)
		ts[i] = time.Unix(int64(whole), int64(frac*1e9)).UTC()
	}
	return ts
}

type tleConfig struct {
	SourceURL string
	CacheDir  string
	MaxFiles  int
}

func loadTLEConfig(logger *slog.Logger, noradID int) tleConfig {
	cfg := tleConfig{
		SourceURL: tle.CatalogURL(noradID),
		CacheDir:  filepath.Join(os.TempDir(), "leoproj-tle"),
		MaxFiles:  5,
	}

	if v := os.Getenv("LEOPROJ_TLE_URL"); v != "" {
		cfg.SourceURL = v
	}
	if v := os.Getenv("LEOPROJ_TLE_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("LEOPROJ_TLE_MAX_FILES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid LEOPROJ_TLE_MAX_FILES value, using default", "value", v, "default", cfg.MaxFiles)
		} else {
			cfg.MaxFiles = n
		}
	}

	logger.Info("tle config",
		"source_url", cfg.SourceURL,
		"cache_dir", cfg.CacheDir,
		"max_files", cfg.MaxFiles,
	)
	return cfg
}

// resolveElements finds the satellite's element lines, preferring the local
// cache so offline reprocessing of old passes keeps working.
func resolveElements(ctx context.Context, cfg tleConfig, noradID int, logger *slog.Logger) (string, string, error) {
	cache := tle.NewCache(cfg.CacheDir, cfg.MaxFiles)

	if data, ts, err := cache.LoadLatest(); err == nil {
		entries, err := tle.Parse(bytes.NewReader(data), logger)
		if err == nil {
			if entry, err := tle.FindByNORAD(entries, noradID); err == nil {
				logger.Info("elements loaded from cache", "norad_id", noradID, "cached_at", ts.Format(time.RFC3339))
				return entry.Line1, entry.Line2, nil
			}
		}
	}

	fetcher := tle.NewFetcher(cfg.SourceURL)
	data, err := fetcher.Fetch(ctx)
	if err != nil {
		return "", "", fmt.Errorf("fetching elements: %w", err)
	}

	entries, err := tle.Parse(bytes.NewReader(data), logger)
	if err != nil {
		return "", "", fmt.Errorf("parsing fetched elements: %w", err)
	}
	entry, err := tle.FindByNORAD(entries, noradID)
	if err != nil {
		return "", "", err
	}

	if err := cache.Write(data, time.Now().UTC()); err != nil {
		logger.Warn("failed to cache fetched elements", "error", err)
	}
	return entry.Line1, entry.Line2, nil
}

func readGray16PNG(path string) (*image.Gray16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding PNG: %w", err)
	}
	if g, ok := img.(*image.Gray16); ok {
		return g, nil
	}

	// Convert other color models; scan imagery is grayscale either way.
	gray := image.NewGray16(img.Bounds())
	draw.Draw(gray, gray.Bounds(), img, img.Bounds().Min, draw.Src)
	return gray, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeTrack(path string, track []geoloc.LineInfo) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := diag.WriteTrack(f, track); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
