package upstream

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchRoutes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/all" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"code":200,"routes":[{"name":"tech","path":"/tech"},{"name":"36 氪 快讯","path":"/36kr"}]}`))
	}))
	defer srv.Close()

	routes, err := NewClient(srv.URL).FetchRoutes()
	if err != nil {
		t.Fatalf("FetchRoutes error: %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("routes = %d; want 2", len(routes))
	}
	if routes[0].Name != "tech" || routes[0].Path != "/tech" {
		t.Fatalf("unexpected first route %+v", routes[0])
	}
}

func TestFetchRoutesFailures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"body code not 200", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"code":500,"routes":[]}`))
		}},
		{"http error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"code":`))
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := httptest.NewServer(c.handler)
			defer srv.Close()
			if _, err := NewClient(srv.URL).FetchRoutes(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestFetchFeed(t *testing.T) {
	body := `{"updateTime":"2024-01-01T00:00:00Z","data":[{"title":"A","timestamp":1704067200,"hot":5}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tech" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	}))
	defer srv.Close()

	snap, raw, err := NewClient(srv.URL).FetchFeed("/tech")
	if err != nil {
		t.Fatalf("FetchFeed error: %v", err)
	}
	if string(raw) != body {
		t.Fatalf("raw body not preserved: %q", raw)
	}
	if len(snap.Items) != 1 || snap.Items[0].Title != "A" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.Items[0].Hot.String() != "5" {
		t.Fatalf("hot = %q; want 5", snap.Items[0].Hot.String())
	}
}

func TestFetchFeedPathWithoutSlash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tech" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"updateTime":"","data":[]}`))
	}))
	defer srv.Close()

	if _, _, err := NewClient(srv.URL).FetchFeed("tech"); err != nil {
		t.Fatalf("FetchFeed error: %v", err)
	}
}
