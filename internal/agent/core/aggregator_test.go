package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/signalpulse/pulse/config"
)

type stubAdapter struct {
	id    string
	kind  SourceKind
	items []SourceItem
	err   error
	delay time.Duration
}

func (s *stubAdapter) ID() string       { return s.id }
func (s *stubAdapter) Kind() SourceKind { return s.kind }
func (s *stubAdapter) Fetch(ctx context.Context, topic string) ([]SourceItem, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, sourceUnavailable(s.id, ctx.Err())
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

func testAggregatorConfig() config.AggregatorConfig {
	return config.AggregatorConfig{
		Deadline:        5 * time.Second,
		MaxItems:        24,
		NativeWeight:    0.4,
		RecencyWeight:   0.35,
		TopicWeight:     0.25,
		RecencyHalfLife: 72 * time.Hour,
	}
}

func item(kind SourceKind, url string, score float64) SourceItem {
	return SourceItem{Source: kind, Title: "item " + url, URL: url, Score: score}
}

func TestAggregatePartialFailure(t *testing.T) {
	t.Parallel()
	adapters := []SourceAdapter{
		&stubAdapter{id: "a", kind: SourceNews, items: []SourceItem{item(SourceNews, "https://a.example.com/1", 0.9)}},
		&stubAdapter{id: "b", kind: SourceForum, items: []SourceItem{item(SourceForum, "https://b.example.com/1", 0.8)}},
		&stubAdapter{id: "c", kind: SourceLinkAggregator, items: []SourceItem{item(SourceLinkAggregator, "https://c.example.com/1", 0.7)}},
		&stubAdapter{id: "d", kind: SourceReference, err: &SourceUnavailableError{Adapter: "d", Err: errors.New("boom")}},
	}
	agg := NewAggregator(testAggregatorConfig(), adapters, nil, nil)

	corpus, err := agg.Aggregate(context.Background(), "example topic")
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(corpus) != 3 {
		t.Fatalf("expected 3 items from surviving adapters, got %d", len(corpus))
	}
}

func TestAggregateAllFailed(t *testing.T) {
	t.Parallel()
	adapters := []SourceAdapter{
		&stubAdapter{id: "a", err: &SourceUnavailableError{Adapter: "a", Err: errors.New("timeout")}},
		&stubAdapter{id: "b", err: &SourceUnavailableError{Adapter: "b", Err: errors.New("rate limited")}},
	}
	agg := NewAggregator(testAggregatorConfig(), adapters, nil, nil)

	_, err := agg.Aggregate(context.Background(), "example topic")
	if !errors.Is(err, ErrAllSourcesUnavailable) {
		t.Fatalf("expected ErrAllSourcesUnavailable, got %v", err)
	}
}

func TestAggregateDeadlineCountsAsFailure(t *testing.T) {
	t.Parallel()
	cfg := testAggregatorConfig()
	cfg.Deadline = 50 * time.Millisecond
	adapters := []SourceAdapter{
		&stubAdapter{id: "slow", delay: 2 * time.Second},
		&stubAdapter{id: "fast", items: []SourceItem{item(SourceNews, "https://fast.example.com/1", 0.9)}},
	}
	agg := NewAggregator(cfg, adapters, nil, nil)

	corpus, err := agg.Aggregate(context.Background(), "example topic")
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(corpus) != 1 || corpus[0].URL != "https://fast.example.com/1" {
		t.Fatalf("expected only the fast adapter's item, got %+v", corpus)
	}
}

func TestDeduplicateKeepsHigherScore(t *testing.T) {
	t.Parallel()
	items := []SourceItem{
		{Source: SourceNews, Title: "low", URL: "https://news.example.com/a?utm_source=x", Score: 0.4},
		{Source: SourceForum, Title: "high", URL: "https://news.example.com/a/", Score: 0.9},
		{Source: SourceReference, Title: "other", URL: "https://news.example.com/b", Score: 0.5},
	}
	got := Deduplicate(items)
	if len(got) != 2 {
		t.Fatalf("expected 2 items after dedup, got %d", len(got))
	}
	if got[0].Title != "high" {
		t.Fatalf("expected higher-scored duplicate to survive, got %q", got[0].Title)
	}
}

func TestDeduplicateTieBreaksByEarliestPublished(t *testing.T) {
	t.Parallel()
	older := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)
	items := []SourceItem{
		{Source: SourceNews, Title: "newer", URL: "https://x.example.com/a", Score: 0.5, PublishedAt: &newer},
		{Source: SourceNews, Title: "older", URL: "https://x.example.com/a", Score: 0.5, PublishedAt: &older},
	}
	got := Deduplicate(items)
	if len(got) != 1 || got[0].Title != "older" {
		t.Fatalf("expected earliest-published duplicate to survive, got %+v", got)
	}
}

func TestRankIsDeterministic(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-2 * time.Hour)
	stale := now.Add(-30 * 24 * time.Hour)
	items := []SourceItem{
		{Source: SourceReference, Title: "background piece", URL: "https://r.example.com/1", Score: 0.6},
		{Source: SourceNews, Title: "quantum computing launch", URL: "https://n.example.com/1", Score: 0.6, PublishedAt: &recent},
		{Source: SourceForum, Title: "old thread", URL: "https://f.example.com/1", Score: 0.6, PublishedAt: &stale},
	}
	cfg := testAggregatorConfig()

	first := Rank(items, "quantum computing", now, cfg)
	second := Rank(items, "quantum computing", now, cfg)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("ranking is not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	if first[0].URL != "https://n.example.com/1" {
		t.Fatalf("expected recent on-topic item ranked first, got %q", first[0].URL)
	}
	if first[len(first)-1].URL != "https://f.example.com/1" {
		t.Fatalf("expected stale off-topic item ranked last, got %q", first[len(first)-1].URL)
	}
}

func TestRankStableTieBreak(t *testing.T) {
	t.Parallel()
	now := time.Now()
	var items []SourceItem
	for i := 0; i < 5; i++ {
		items = append(items, SourceItem{
			Source: SourceNews,
			Title:  "identical",
			URL:    fmt.Sprintf("https://n.example.com/%d", i),
			Score:  0.5,
		})
	}
	got := Rank(items, "unrelated topic", now, testAggregatorConfig())
	for i, it := range got {
		want := fmt.Sprintf("https://n.example.com/%d", i)
		if it.URL != want {
			t.Fatalf("tie-break not stable at %d: got %q, want %q", i, it.URL, want)
		}
	}
}

func TestTruncateBoundsCorpus(t *testing.T) {
	t.Parallel()
	var items []SourceItem
	for i := 0; i < 40; i++ {
		items = append(items, item(SourceNews, fmt.Sprintf("https://n.example.com/%d", i), 0.5))
	}
	if got := Truncate(items, 24); len(got) != 24 {
		t.Fatalf("expected 24 items, got %d", len(got))
	}
	if got := Truncate(items, 0); len(got) != 40 {
		t.Fatalf("expected zero limit to pass through, got %d", len(got))
	}
}

func TestRecencyDecay(t *testing.T) {
	t.Parallel()
	now := time.Now()
	halfLife := 72 * time.Hour

	if got := recencyDecay(nil, now, halfLife); got != 0.5 {
		t.Fatalf("expected neutral default 0.5 for missing timestamp, got %v", got)
	}
	fresh := now.Add(-time.Minute)
	if got := recencyDecay(&fresh, now, halfLife); got < 0.99 {
		t.Fatalf("expected near-1 decay for fresh item, got %v", got)
	}
	aged := now.Add(-halfLife)
	if got := recencyDecay(&aged, now, halfLife); got < 0.49 || got > 0.51 {
		t.Fatalf("expected ~0.5 at one half-life, got %v", got)
	}
	future := now.Add(time.Hour)
	if got := recencyDecay(&future, now, halfLife); got != 1.0 {
		t.Fatalf("expected clamped decay 1.0 for future timestamp, got %v", got)
	}
}
