package cache

import (
	"context"
	"log"
)

// Entry is one scored member of a route's ranked set.
type Entry struct {
	Member string
	Score  float64
}

// Sink replaces a route's ranked snapshot. The pipeline writes through
// this interface without knowing whether a mirror target is active.
type Sink interface {
	Replace(ctx context.Context, key string, entries []Entry) error
}

// Single writes to one Redis target.
type Single struct {
	Primary *Client
}

// Replace implements Sink.
func (s Single) Replace(ctx context.Context, key string, entries []Entry) error {
	return s.Primary.replaceRanked(ctx, key, entries)
}

// Mirrored writes to a primary and best-effort duplicates to a secondary.
// Secondary failures are logged, never surfaced.
type Mirrored struct {
	Primary   *Client
	Secondary *Client
}

// Replace implements Sink.
func (m Mirrored) Replace(ctx context.Context, key string, entries []Entry) error {
	err := m.Primary.replaceRanked(ctx, key, entries)
	if merr := m.Secondary.replaceRanked(ctx, key, entries); merr != nil {
		log.Printf("cache mirror %s: %v", key, merr)
	}
	return err
}
