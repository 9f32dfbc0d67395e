package types

import (
	"encoding/json"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"ascii", "tech", "tech"},
		{"spaces", "hacker news", "hacker_news"},
		{"cjk with spaces", "36 氪 快讯", "36_氪_快讯"},
		{"punctuation run", "a - b!!c", "a_b_c"},
		{"underscore kept", "a_b", "a_b"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := SanitizeName(c.in); got != c.want {
				t.Fatalf("SanitizeName(%q) = %q; want %q", c.in, got, c.want)
			}
		})
	}
}

func TestTableName(t *testing.T) {
	if got := TableName("36 氪 快讯"); got != "new_records_36_氪_快讯" {
		t.Fatalf("TableName = %q", got)
	}
}

func TestRouteKeys(t *testing.T) {
	if got := RouteKey("/tech"); got != "tech" {
		t.Fatalf("RouteKey = %q; want tech", got)
	}
	if got := CacheKey("/tech"); got != "news:tech" {
		t.Fatalf("CacheKey = %q; want news:tech", got)
	}
	// A path without leading slash is passed through.
	if got := CacheKey("tech"); got != "news:tech" {
		t.Fatalf("CacheKey = %q; want news:tech", got)
	}
}

func TestItemDecoding(t *testing.T) {
	raw := `{"updateTime":"2024-01-01T00:00:00Z","data":[
		{"title":"A","desc":"d","timestamp":1704067200,"hot":5,"url":"u","mobileUrl":"m"},
		{"title":"B"}
	]}`

	var snap FeedSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if snap.UpdateTime != "2024-01-01T00:00:00Z" {
		t.Fatalf("updateTime = %q", snap.UpdateTime)
	}
	if len(snap.Items) != 2 {
		t.Fatalf("items = %d; want 2", len(snap.Items))
	}

	a := snap.Items[0]
	if a.Timestamp == nil || int64(*a.Timestamp) != 1704067200 {
		t.Fatalf("item A timestamp = %v", a.Timestamp)
	}
	if a.Hot.String() != "5" {
		t.Fatalf("item A hot = %q; want 5", a.Hot.String())
	}

	b := snap.Items[1]
	if b.Timestamp != nil {
		t.Fatalf("item B timestamp should be absent, got %v", *b.Timestamp)
	}

	// Items with absent optional fields must re-encode cleanly for the
	// ranked cache members.
	if _, err := json.Marshal(b); err != nil {
		t.Fatalf("marshal sparse item: %v", err)
	}
}
