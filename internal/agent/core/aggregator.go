package core

import (
	"context"
	"errors"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/signalpulse/pulse/config"
	"github.com/signalpulse/pulse/internal/agent/telemetry"
	"github.com/signalpulse/pulse/internal/helpers"
)

// Aggregator fans out to every registered adapter concurrently, merges the
// partial results, deduplicates by canonical URL and ranks the survivors
// under a bounded working-set size.
type Aggregator struct {
	cfg       config.AggregatorConfig
	adapters  []SourceAdapter
	logger    *log.Logger
	telemetry *telemetry.Telemetry
}

func NewAggregator(cfg config.AggregatorConfig, adapters []SourceAdapter, logger *log.Logger, tele *telemetry.Telemetry) *Aggregator {
	if logger == nil {
		logger = log.New(log.Writer(), "[AGG] ", log.LstdFlags)
	}
	return &Aggregator{cfg: cfg, adapters: adapters, logger: logger, telemetry: tele}
}

type adapterOutcome struct {
	id    string
	items []SourceItem
	err   error
}

// Aggregate runs all adapters in parallel and waits for every one to settle;
// one success is enough to proceed. The configured deadline bounds the whole
// fan-out so a stalled adapter simply counts as failed.
func (a *Aggregator) Aggregate(ctx context.Context, topic string) ([]SourceItem, error) {
	if len(a.adapters) == 0 {
		return nil, ErrAllSourcesUnavailable
	}
	if a.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Deadline)
		defer cancel()
	}

	outcomes := make([]adapterOutcome, len(a.adapters))
	g, gctx := errgroup.WithContext(ctx)
	for i, adapter := range a.adapters {
		i, adapter := i, adapter
		g.Go(func() error {
			items, err := adapter.Fetch(gctx, topic)
			outcomes[i] = adapterOutcome{id: adapter.ID(), items: items, err: err}
			// Failures settle locally; a failing adapter must not cancel
			// its siblings.
			return nil
		})
	}
	_ = g.Wait()

	var merged []SourceItem
	var failures []error
	for _, outcome := range outcomes {
		if outcome.err != nil {
			a.logger.Printf("adapter %s degraded: %v", outcome.id, outcome.err)
			a.telemetry.RecordAdapterFailure(outcome.id)
			failures = append(failures, outcome.err)
			continue
		}
		a.telemetry.RecordAdapterItems(outcome.id, len(outcome.items))
		for _, item := range outcome.items {
			if item.URL == "" || item.Title == "" {
				continue
			}
			if math.IsNaN(item.Score) || math.IsInf(item.Score, 0) {
				item.Score = 0
			}
			merged = append(merged, item)
		}
	}
	if len(failures) == len(a.adapters) {
		return nil, errors.Join(append([]error{ErrAllSourcesUnavailable}, failures...)...)
	}
	if len(merged) == 0 {
		return nil, ErrAllSourcesUnavailable
	}

	corpus := Truncate(Rank(Deduplicate(merged), topic, time.Now(), a.cfg), a.cfg.MaxItems)
	a.telemetry.RecordCorpusSize(len(corpus))
	return corpus, nil
}

// Deduplicate collapses items whose URLs are equal after canonicalization,
// keeping the higher-scored one. Ties keep the earlier published item, then
// the first seen. Survivor order follows first appearance, so the transform
// is deterministic for identical input.
func Deduplicate(items []SourceItem) []SourceItem {
	type slot struct {
		item SourceItem
		pos  int
	}
	seen := make(map[string]slot, len(items))
	order := make([]string, 0, len(items))
	for i, item := range items {
		key, err := helpers.CanonicalURL(item.URL)
		if err != nil {
			key = strings.ToLower(strings.TrimSpace(item.URL))
		}
		prev, ok := seen[key]
		if !ok {
			seen[key] = slot{item: item, pos: i}
			order = append(order, key)
			continue
		}
		if duplicateWins(item, prev.item) {
			seen[key] = slot{item: item, pos: prev.pos}
		}
	}
	out := make([]SourceItem, 0, len(order))
	for _, key := range order {
		out = append(out, seen[key].item)
	}
	return out
}

func duplicateWins(candidate, incumbent SourceItem) bool {
	if candidate.Score != incumbent.Score {
		return candidate.Score > incumbent.Score
	}
	switch {
	case candidate.PublishedAt == nil:
		return false
	case incumbent.PublishedAt == nil:
		return true
	default:
		return candidate.PublishedAt.Before(*incumbent.PublishedAt)
	}
}

// Rank orders items by a composite of native score, recency decay and
// topical term overlap. It is a pure transform: the input slice is not
// mutated and equal composites keep their input order.
func Rank(items []SourceItem, topic string, now time.Time, cfg config.AggregatorConfig) []SourceItem {
	terms := topicTerms(topic)
	ranked := append([]SourceItem(nil), items...)
	composites := make([]float64, len(ranked))
	for i, item := range ranked {
		composites[i] = cfg.NativeWeight*item.Score +
			cfg.RecencyWeight*recencyDecay(item.PublishedAt, now, cfg.RecencyHalfLife) +
			cfg.TopicWeight*termOverlap(terms, item)
	}
	idx := make([]int, len(ranked))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return composites[idx[a]] > composites[idx[b]] })
	out := make([]SourceItem, len(ranked))
	for i, j := range idx {
		out[i] = ranked[j]
	}
	return out
}

// Truncate bounds the ranked corpus to at most n items.
func Truncate(items []SourceItem, n int) []SourceItem {
	if n <= 0 || len(items) <= n {
		return items
	}
	return items[:n]
}

// recencyDecay maps publication age to (0,1] with the configured half-life.
// Items without a timestamp get a neutral midpoint instead of being pushed
// to either end.
func recencyDecay(publishedAt *time.Time, now time.Time, halfLife time.Duration) float64 {
	if publishedAt == nil || halfLife <= 0 {
		return 0.5
	}
	age := now.Sub(*publishedAt)
	if age < 0 {
		age = 0
	}
	return math.Pow(0.5, age.Hours()/halfLife.Hours())
}

// termOverlap measures the fraction of topic terms present in the item's
// title or excerpt.
func termOverlap(terms []string, item SourceItem) float64 {
	if len(terms) == 0 {
		return 0
	}
	haystack := strings.ToLower(item.Title + " " + item.Excerpt)
	hits := 0
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

func topicTerms(topic string) []string {
	fields := strings.Fields(strings.ToLower(topic))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()[]")
		if len(f) > 2 {
			terms = append(terms, f)
		}
	}
	return terms
}
