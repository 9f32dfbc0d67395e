package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hotfeed/pipeline"

	"github.com/gin-gonic/gin"
)

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(NewStatus())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}
}

func TestStatusReportsLastCycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	status := NewStatus()
	status.RecordCycle(pipeline.CycleStats{
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
		Routes:     3,
		Items:      50,
		Stored:     48,
		Errors:     1,
	})

	w := httptest.NewRecorder()
	NewRouter(status).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}

	var body struct {
		LastCycle struct {
			Routes int `json:"routes"`
			Stored int `json:"stored"`
			Errors int `json:"errors"`
		} `json:"last_cycle"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode status body: %v", err)
	}
	if body.LastCycle.Routes != 3 || body.LastCycle.Stored != 48 || body.LastCycle.Errors != 1 {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}
