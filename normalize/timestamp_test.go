package normalize

import (
	"errors"
	"testing"
	"time"
)

func TestTimestamp(t *testing.T) {
	ref := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		raw     int64
		present bool
		ref     time.Time
		want    int64
	}{
		{"seconds pass through", 1704067200, true, ref, 1704067200},
		{"milliseconds divided", 1704067200000, true, ref, 1704067200},
		{"huge millisecond value", 100000000000, true, ref, 100000000},
		{"missing falls back to reference", 0, false, ref, ref.Unix()},
		{"zero falls back to reference", 0, true, ref, ref.Unix()},
		{"negative falls back to reference", -5, true, ref, ref.Unix()},
		{"far future falls back to reference", now.Add(11 * 365 * 24 * time.Hour).Unix(), true, ref, ref.Unix()},
		{"missing without reference falls back to now", 0, false, time.Time{}, now.Unix()},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Timestamp(c.raw, c.present, c.ref, now)
			if err != nil {
				t.Fatalf("Timestamp(%d) error: %v", c.raw, err)
			}
			if got != c.want {
				t.Fatalf("Timestamp(%d) = %d; want %d", c.raw, got, c.want)
			}
		})
	}
}

func TestTimestampRejectsAncient(t *testing.T) {
	ref := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	// 2010 is more than ten years before the 2024 reference.
	ancient := time.Date(2010, 5, 1, 0, 0, 0, 0, time.UTC).Unix()
	got, err := Timestamp(ancient, true, ref, now)
	if !errors.Is(err, ErrTooOld) {
		t.Fatalf("Timestamp(%d) err = %v; want ErrTooOld", ancient, err)
	}
	// The normalized value is still usable for cache scoring.
	if got != ancient {
		t.Fatalf("Timestamp(%d) = %d; want the normalized value back", ancient, got)
	}

	// Exactly ten years back is still accepted.
	edge := time.Date(2014, 5, 1, 0, 0, 0, 0, time.UTC).Unix()
	if _, err := Timestamp(edge, true, ref, now); err != nil {
		t.Fatalf("Timestamp(%d) unexpected error: %v", edge, err)
	}
}

func TestTimestampMillisecondsBeforeRangeCheck(t *testing.T) {
	ref := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := ref

	// A ms-scale value that would be "far future" if read as seconds must
	// be divided first and then accepted as-is.
	raw := int64(1704067200000)
	got, err := Timestamp(raw, true, ref, now)
	if err != nil {
		t.Fatalf("Timestamp(%d) error: %v", raw, err)
	}
	if got != 1704067200 {
		t.Fatalf("Timestamp(%d) = %d; want 1704067200", raw, got)
	}
}

func TestUpdateTime(t *testing.T) {
	got, err := UpdateTime("2024-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("UpdateTime error: %v", err)
	}
	if got.Unix() != 1704067200 {
		t.Fatalf("UpdateTime unix = %d; want 1704067200", got.Unix())
	}
	// The instant is pinned to the feed offset regardless of input zone.
	if _, off := got.Zone(); off != 8*60*60 {
		t.Fatalf("UpdateTime offset = %d; want +8h", off)
	}

	for _, bad := range []string{"", "not-a-time", "2024-13-40T99:00:00Z"} {
		if _, err := UpdateTime(bad); err == nil {
			t.Fatalf("UpdateTime(%q) expected error", bad)
		}
	}
}
