// Package diag persists per-line engine state for offline inspection.
// Track dumps are zstd-compressed JSON lines, one scan line per record,
// so they stream and diff well even for long passes.
package diag

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/orbview/leoproj/internal/geoloc"
)

// WriteTrack writes the per-line records to w, zstd-compressed.
func WriteTrack(w io.Writer, track []geoloc.LineInfo) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}

	enc := json.NewEncoder(zw)
	for _, ln := range track {
		if err := enc.Encode(ln); err != nil {
			zw.Close()
			return fmt.Errorf("encoding line %d: %w", ln.Line, err)
		}
	}
	return zw.Close()
}

// ReadTrack reads a track dump produced by WriteTrack.
func ReadTrack(r io.Reader) ([]geoloc.LineInfo, error) {
	zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer zr.Close()

	var track []geoloc.LineInfo
	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var info geoloc.LineInfo
		if err := json.Unmarshal(line, &info); err != nil {
			return nil, fmt.Errorf("decoding record %d: %w", len(track), err)
		}
		track = append(track, info)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading track: %w", err)
	}
	return track, nil
}
