// Package pipeline runs one ingest pass per route: fetch the feed
// snapshot, replace the ranked cache, then persist each item into the
// year shard with merge-on-conflict semantics. Every failure is logged
// and skips only the failing item or route; a cycle always runs to the end.
package pipeline

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"hotfeed/cache"
	"hotfeed/normalize"
	"hotfeed/store"
	"hotfeed/types"
)

// Fetcher retrieves one route's feed snapshot.
type Fetcher interface {
	FetchFeed(path string) (*types.FeedSnapshot, []byte, error)
}

// Persister is the slice of the store the pipeline needs.
type Persister interface {
	Resolve(ctx context.Context, instant time.Time) error
	EnsureTable(ctx context.Context, table string) (store.TableStatus, error)
	Upsert(ctx context.Context, table string, st store.TableStatus, r store.Record) error
}

// Archiver stores the raw snapshot body somewhere durable. Optional.
type Archiver interface {
	Archive(ctx context.Context, routeKey string, body []byte, at time.Time) error
}

// Publisher announces a finished route ingest downstream. Optional.
type Publisher interface {
	Publish(summary RouteSummary) error
}

// RouteSummary is the per-route result announced to the event stream.
type RouteSummary struct {
	Route      string    `json:"route"`
	Items      int       `json:"items"`
	Stored     int       `json:"stored"`
	UpdateTime time.Time `json:"updateTime"`
}

// CycleStats aggregates one full pass over all routes.
type CycleStats struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Routes     int
	Items      int
	Stored     int
	Errors     int
}

// Pipeline wires the collaborators for one ingest pass.
type Pipeline struct {
	Upstream  Fetcher
	Sink      cache.Sink
	Store     Persister
	Archiver  Archiver  // nil disables archiving
	Publisher Publisher // nil disables events
}

// RunCycle processes every route sequentially and never fails as a whole.
func (p *Pipeline) RunCycle(ctx context.Context, routes []types.Route) CycleStats {
	stats := CycleStats{StartedAt: time.Now()}
	for _, route := range routes {
		if route.Name == "" || route.Path == "" {
			log.Printf("skipping invalid route %+v", route)
			continue
		}
		items, stored, err := p.IngestRoute(ctx, route)
		stats.Routes++
		stats.Items += items
		stats.Stored += stored
		if err != nil {
			stats.Errors++
		}
	}
	stats.FinishedAt = time.Now()
	log.Printf("cycle done: routes=%d items=%d stored=%d errors=%d duration=%s",
		stats.Routes, stats.Items, stats.Stored, stats.Errors,
		stats.FinishedAt.Sub(stats.StartedAt).Round(time.Millisecond))
	return stats
}

// IngestRoute fetches one route and writes cache and store. The cache
// replacement happens regardless of whether persistence succeeds; the
// returned error covers only the route-fatal steps (fetch, cache,
// unusable update time, shard resolution).
func (p *Pipeline) IngestRoute(ctx context.Context, route types.Route) (items, stored int, err error) {
	snap, raw, err := p.Upstream.FetchFeed(route.Path)
	if err != nil {
		log.Printf("route %s: fetch failed: %v", route.Name, err)
		return 0, 0, err
	}
	items = len(snap.Items)
	now := time.Now()

	ref, timeErr := normalize.UpdateTime(snap.UpdateTime)
	if timeErr != nil {
		// Persistence is skipped below, but the cache is still replaced
		// with scores falling back to the wall clock.
		ref = time.Time{}
	}

	if cerr := p.replaceCache(ctx, route, snap.Items, ref, now); cerr != nil {
		log.Printf("route %s: cache replace failed: %v", route.Name, cerr)
		err = cerr
	}

	p.archive(ctx, route, raw, now)

	if timeErr != nil {
		log.Printf("route %s: unusable updateTime, skipping persistence: %v", route.Name, timeErr)
		return items, 0, timeErr
	}

	if rerr := p.Store.Resolve(ctx, ref); rerr != nil {
		log.Printf("route %s: shard resolve failed: %v", route.Name, rerr)
		return items, 0, rerr
	}

	table := types.TableName(route.Name)
	status, terr := p.Store.EnsureTable(ctx, table)
	if terr != nil {
		log.Printf("route %s: ensure table %s failed: %v", route.Name, table, terr)
		return items, 0, terr
	}

	for i, item := range snap.Items {
		ts, nerr := normalizeItem(item, ref, now)
		if nerr != nil {
			log.Printf("route %s: dropping item %q: %v", route.Name, item.Title, nerr)
			continue
		}
		rec := store.Record{
			UpdateTime:    ref,
			Title:         item.Title,
			Desc:          item.Desc,
			Cover:         item.Cover,
			ItemTimestamp: ts,
			Hot:           item.Hot.String(),
			URL:           item.URL,
			MobileURL:     item.MobileURL,
			SortOrder:     strconv.Itoa(i),
		}
		if uerr := p.Store.Upsert(ctx, table, status, rec); uerr != nil {
			log.Printf("route %s: upsert item %q: %v", route.Name, item.Title, uerr)
			continue
		}
		stored++
	}

	p.publish(route, items, stored, ref)
	return items, stored, err
}

// replaceCache swaps the route's ranked set with the fresh item list,
// scored by normalized timestamp. Items too old for persistence still
// appear here; only the store applies the ten-year rejection.
func (p *Pipeline) replaceCache(ctx context.Context, route types.Route, items []types.Item, ref, now time.Time) error {
	entries := make([]cache.Entry, 0, len(items))
	for _, item := range items {
		ts, err := normalizeItem(item, ref, now)
		if err != nil && ts == 0 {
			ts = now.Unix()
		}
		member, merr := json.Marshal(item)
		if merr != nil {
			log.Printf("route %s: encode item %q: %v", route.Name, item.Title, merr)
			continue
		}
		entries = append(entries, cache.Entry{Member: string(member), Score: float64(ts)})
	}
	return p.Sink.Replace(ctx, types.CacheKey(route.Path), entries)
}

func (p *Pipeline) archive(ctx context.Context, route types.Route, raw []byte, at time.Time) {
	if p.Archiver == nil || len(raw) == 0 {
		return
	}
	if err := p.Archiver.Archive(ctx, types.RouteKey(route.Path), raw, at); err != nil {
		log.Printf("route %s: archive failed: %v", route.Name, err)
	}
}

func (p *Pipeline) publish(route types.Route, items, stored int, ref time.Time) {
	if p.Publisher == nil {
		return
	}
	summary := RouteSummary{
		Route:      types.RouteKey(route.Path),
		Items:      items,
		Stored:     stored,
		UpdateTime: ref,
	}
	if err := p.Publisher.Publish(summary); err != nil {
		log.Printf("route %s: publish summary: %v", route.Name, err)
	}
}

func normalizeItem(item types.Item, ref, now time.Time) (int64, error) {
	var raw int64
	present := item.Timestamp != nil
	if present {
		raw = int64(*item.Timestamp)
	}
	return normalize.Timestamp(raw, present, ref, now)
}
