package diag

import (
	"bytes"
	"testing"
	"time"

	"github.com/orbview/leoproj/internal/geoloc"
)

func sampleTrack(n int) []geoloc.LineInfo {
	base := time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)
	track := make([]geoloc.LineInfo, n)
	for i := range track {
		track[i] = geoloc.LineInfo{
			Line:        i,
			Time:        base.Add(time.Duration(i) * time.Second),
			LatDeg:      50 - float64(i)*0.06,
			LonDeg:      8.5 + float64(i)*0.01,
			AltKm:       827.3,
			FootprintKm: 6174.2,
			AzimuthDeg:  -168.4,
		}
	}
	return track
}

// TestTrackRoundTrip verifies a dump reads back identical to what was
// written.
func TestTrackRoundTrip(t *testing.T) {
	track := sampleTrack(250)

	var buf bytes.Buffer
	if err := WriteTrack(&buf, track); err != nil {
		t.Fatalf("WriteTrack: %v", err)
	}

	got, err := ReadTrack(&buf)
	if err != nil {
		t.Fatalf("ReadTrack: %v", err)
	}
	if len(got) != len(track) {
		t.Fatalf("read %d records, want %d", len(got), len(track))
	}
	for i := range track {
		if !got[i].Time.Equal(track[i].Time) {
			t.Fatalf("record %d time = %v, want %v", i, got[i].Time, track[i].Time)
		}
		got[i].Time = track[i].Time
		if got[i] != track[i] {
			t.Fatalf("record %d = %+v, want %+v", i, got[i], track[i])
		}
	}
}

// TestTrackCompresses verifies the repetitive record stream actually
// shrinks on disk.
func TestTrackCompresses(t *testing.T) {
	track := sampleTrack(1000)

	var buf bytes.Buffer
	if err := WriteTrack(&buf, track); err != nil {
		t.Fatalf("WriteTrack: %v", err)
	}

	// Around 150 bytes of JSON per record before compression.
	if buf.Len() > 50*len(track) {
		t.Errorf("dump is %d bytes for %d records, compression ineffective", buf.Len(), len(track))
	}
}

// TestTrackEmpty verifies an empty dump round-trips to an empty track.
func TestTrackEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTrack(&buf, nil); err != nil {
		t.Fatalf("WriteTrack: %v", err)
	}
	got, err := ReadTrack(&buf)
	if err != nil {
		t.Fatalf("ReadTrack: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("read %d records, want 0", len(got))
	}
}

// TestTrackGarbage verifies corrupt input fails instead of returning
// partial junk.
func TestTrackGarbage(t *testing.T) {
	if _, err := ReadTrack(bytes.NewReader([]byte("not a zstd frame"))); err == nil {
		t.Error("expected error for corrupt input")
	}
}
