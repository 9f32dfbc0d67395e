package types

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Route identifies one pollable topic feed on the upstream aggregator.
type Route struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// RouteList is the response shape of the upstream /all endpoint.
type RouteList struct {
	Code   int     `json:"code"`
	Routes []Route `json:"routes"`
}

// Item is one entry of a feed snapshot. Timestamp is optional and may be
// second- or millisecond-scale; Hot may arrive as any JSON number.
type Item struct {
	Title     string      `json:"title"`
	Desc      string      `json:"desc"`
	Cover     string      `json:"cover"`
	Timestamp *float64    `json:"timestamp,omitempty"`
	Hot       json.Number `json:"hot,omitempty"`
	URL       string      `json:"url"`
	MobileURL string      `json:"mobileUrl"`
}

// FeedSnapshot is one fetch result for a route.
type FeedSnapshot struct {
	UpdateTime string `json:"updateTime"`
	Items      []Item `json:"data"`
}

// wordRe matches runs of characters that are not letters, digits or
// underscores. Unicode letters count as word characters so that CJK route
// names stay readable in table names.
var wordRe = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// SanitizeName collapses non-word characters to single underscores.
// Collisions after sanitization are not deduplicated.
func SanitizeName(name string) string {
	return wordRe.ReplaceAllString(name, "_")
}

// TableName derives the storage table for a route name.
func TableName(name string) string {
	return "new_records_" + SanitizeName(name)
}

// RouteKey derives the ranked-cache key suffix from a route path.
func RouteKey(path string) string {
	return strings.TrimPrefix(path, "/")
}

// CacheKey is the full ranked-cache key for a route path.
func CacheKey(path string) string {
	return "news:" + RouteKey(path)
}
