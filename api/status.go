// Package api exposes liveness and last-cycle stats for the poller.
// There is no user-facing control surface; failures only show up in logs
// and in the counters served here.
package api

import (
	"net/http"
	"sync"
	"time"

	"hotfeed/pipeline"

	"github.com/gin-gonic/gin"
)

// Status tracks the most recent cycle result.
type Status struct {
	mu    sync.Mutex
	last  pipeline.CycleStats
	start time.Time
}

// NewStatus creates an empty status tracker.
func NewStatus() *Status {
	return &Status{start: time.Now()}
}

// RecordCycle stores the latest cycle stats. Safe for concurrent use.
func (s *Status) RecordCycle(stats pipeline.CycleStats) {
	s.mu.Lock()
	s.last = stats
	s.mu.Unlock()
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(status *Status) *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	r.GET("/status", func(c *gin.Context) {
		status.mu.Lock()
		last := status.last
		start := status.start
		status.mu.Unlock()

		c.JSON(http.StatusOK, gin.H{
			"uptime_seconds": int(time.Since(start).Seconds()),
			"last_cycle": gin.H{
				"started_at":  last.StartedAt,
				"finished_at": last.FinishedAt,
				"routes":      last.Routes,
				"items":       last.Items,
				"stored":      last.Stored,
				"errors":      last.Errors,
			},
		})
	})
	return r
}
