// Package scheduler drives the poller: one-time initialization, then an
// endless sequential loop over all cached routes with a randomized pause
// between cycles. There is no parallelism across routes or cycles.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"hotfeed/pipeline"
	"hotfeed/store"
	"hotfeed/types"
)

// RouteSource fetches the authoritative route list from upstream.
type RouteSource interface {
	FetchRoutes() ([]types.Route, error)
}

// Catalog persists and serves the cached route list between cycles.
type Catalog interface {
	SaveRoutes(ctx context.Context, routes []types.Route) error
	LoadRoutes(ctx context.Context) ([]types.Route, error)
}

// TableCreator pre-creates route tables in the active shard.
type TableCreator interface {
	EnsureTable(ctx context.Context, table string) (store.TableStatus, error)
}

// Scheduler owns the process lifecycle after startup.
type Scheduler struct {
	Upstream RouteSource
	Catalog  Catalog
	Tables   TableCreator
	Pipeline *pipeline.Pipeline

	MinSleep time.Duration
	MaxSleep time.Duration

	// OnCycle receives every finished cycle's stats, e.g. for /status.
	OnCycle func(pipeline.CycleStats)
}

// Initialize bootstraps the route catalog and pre-creates one table per
// route in the current shard. A failed route fetch here is fatal: with no
// routes there is no work to do.
func (s *Scheduler) Initialize(ctx context.Context) error {
	routes, err := s.Upstream.FetchRoutes()
	if err != nil {
		return fmt.Errorf("bootstrap route catalog: %w", err)
	}
	log.Printf("bootstrapped %d routes", len(routes))

	if err := s.Catalog.SaveRoutes(ctx, routes); err != nil {
		return fmt.Errorf("cache route catalog: %w", err)
	}

	for _, route := range routes {
		if route.Name == "" || route.Path == "" {
			log.Printf("skipping invalid route %+v", route)
			continue
		}
		table := types.TableName(route.Name)
		if _, err := s.Tables.EnsureTable(ctx, table); err != nil {
			log.Printf("pre-create table %s: %v", table, err)
		}
	}
	return nil
}

// Run loops the ingestion pipeline until the context is canceled. An
// in-flight cycle always runs to completion; cancellation is only checked
// during the inter-cycle sleep.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		routes, err := s.Catalog.LoadRoutes(ctx)
		if err != nil {
			log.Printf("load cached routes: %v", err)
		} else {
			stats := s.Pipeline.RunCycle(ctx, routes)
			if s.OnCycle != nil {
				s.OnCycle(stats)
			}
		}

		sleep := s.nextSleep()
		log.Printf("sleeping %s until next cycle", sleep.Round(time.Second))
		select {
		case <-ctx.Done():
			log.Println("scheduler stopped")
			return
		case <-time.After(sleep):
		}
	}
}

func (s *Scheduler) nextSleep() time.Duration {
	min, max := s.MinSleep, s.MaxSleep
	if min <= 0 {
		min = 30 * time.Minute
	}
	if max < min {
		max = min
	}
	span := max - min
	if span == 0 {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(span)))
}
