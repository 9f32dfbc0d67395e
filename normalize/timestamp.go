// Package normalize turns the upstream's loosely specified timestamps into
// validated epoch-second instants. Everything here is deterministic and
// side-effect free; shard and table routing decisions are built on top of it.
package normalize

import (
	"errors"
	"fmt"
	"time"
)

// FeedZone is the fixed offset the upstream reports its update times in.
var FeedZone = time.FixedZone("UTC+8", 8*60*60)

// msThreshold is roughly year 3000 expressed in epoch seconds. Any raw
// value above it can only be a millisecond-scale epoch.
const msThreshold = 32503680000

// maxFutureDrift bounds how far past the current wall clock a timestamp may
// point before it is considered garbage.
const maxFutureDrift = 10 * 365 * 24 * time.Hour

// maxYearsBehind is how many calendar years before the snapshot's update
// time an item timestamp may fall before the item is rejected outright.
const maxYearsBehind = 10

// ErrTooOld marks an item whose timestamp is implausibly far in the past.
// Such items are dropped from persistence to keep ancient garbage out of
// the historical record.
var ErrTooOld = errors.New("timestamp too far before reference")

// Timestamp validates a raw upstream timestamp against a reference instant
// (the snapshot's update time) and the current wall clock, returning epoch
// seconds. present is false when the upstream omitted the field entirely.
func Timestamp(raw int64, present bool, ref, now time.Time) (int64, error) {
	ts := raw
	if !present {
		ts = 0
	}
	if ts > msThreshold {
		ts /= 1000
	}
	if ts <= 0 || ts > now.Add(maxFutureDrift).Unix() {
		if !ref.IsZero() {
			ts = ref.Unix()
		} else {
			ts = now.Unix()
		}
	}
	if !ref.IsZero() {
		year := time.Unix(ts, 0).In(FeedZone).Year()
		if year < ref.In(FeedZone).Year()-maxYearsBehind {
			// The normalized value is still returned: rejected items stay
			// out of the store but keep their score in the ranked cache.
			return ts, fmt.Errorf("%w: year %d vs reference %d", ErrTooOld, year, ref.In(FeedZone).Year())
		}
	}
	return ts, nil
}

// UpdateTime parses the snapshot's ISO-8601 update time and pins it to the
// feed's fixed offset so shard selection does not depend on the process
// time zone.
func UpdateTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty updateTime")
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid updateTime %q: %w", s, err)
	}
	return t.In(FeedZone), nil
}
