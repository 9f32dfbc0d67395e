// Package upstream talks to the hot-list aggregation service. Only the
// documented response shapes are depended on; the service itself is opaque.
package upstream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hotfeed/types"
)

// Client fetches route catalogs and per-route feed snapshots.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an aggregator client for the given base URL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:6688"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchRoutes retrieves the full pollable route list from /all.
// A response code other than 200 in the body is treated as a failure.
func (c *Client) FetchRoutes() ([]types.Route, error) {
	body, err := c.get("/all")
	if err != nil {
		return nil, err
	}

	var list types.RouteList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode /all response: %w", err)
	}
	if list.Code != 200 {
		return nil, fmt.Errorf("upstream /all returned code %d", list.Code)
	}
	return list.Routes, nil
}

// FetchFeed retrieves one route's snapshot. The raw body is returned
// alongside the decoded snapshot so callers can archive it untouched.
func (c *Client) FetchFeed(path string) (*types.FeedSnapshot, []byte, error) {
	body, err := c.get(path)
	if err != nil {
		return nil, nil, err
	}

	var snap types.FeedSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, nil, fmt.Errorf("decode feed %s: %w", path, err)
	}
	return &snap, body, nil
}

func (c *Client) get(path string) ([]byte, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", path, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s body: %w", path, err)
	}
	return body, nil
}
