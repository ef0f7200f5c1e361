package core

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/signalpulse/pulse/config"
	"github.com/signalpulse/pulse/internal/helpers"
)

// NewsAdapter retrieves recent coverage from the Google News RSS search feed.
type NewsAdapter struct {
	cfg  config.NewsSourceConfig
	http *HTTPClient
}

func NewNewsAdapter(cfg config.NewsSourceConfig, http *HTTPClient) *NewsAdapter {
	return &NewsAdapter{cfg: cfg, http: http}
}

func (a *NewsAdapter) ID() string       { return "google-news" }
func (a *NewsAdapter) Kind() SourceKind { return SourceNews }

func (a *NewsAdapter) Fetch(ctx context.Context, topic string) ([]SourceItem, error) {
	endpoint := a.cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://news.google.com/rss/search"
	}
	lang := a.cfg.Language
	if lang == "" {
		lang = "en-US"
	}
	region := "US"
	if i := strings.IndexByte(lang, '-'); i >= 0 {
		region = lang[i+1:]
	}
	feedURL := fmt.Sprintf("%s?q=%s&hl=%s&gl=%s&ceid=%s:%s",
		endpoint, url.QueryEscape(topic), lang, region, region, strings.SplitN(lang, "-", 2)[0])

	raw, err := a.http.GetBody(ctx, feedURL, nil)
	if err != nil {
		return nil, sourceUnavailable(a.ID(), err)
	}
	feed, err := gofeed.NewParser().ParseString(string(raw))
	if err != nil {
		return nil, sourceUnavailable(a.ID(), fmt.Errorf("parse feed: %w", err))
	}

	limit := maxResults(a.cfg.MaxResults, 10)
	count := len(feed.Items)
	if count > limit {
		count = limit
	}

	items := make([]SourceItem, 0, count)
	for i := 0; i < count; i++ {
		entry := feed.Items[i]
		if entry.Link == "" {
			continue
		}
		item := SourceItem{
			Source:  SourceNews,
			Title:   helpers.PlainText(entry.Title),
			URL:     entry.Link,
			Excerpt: helpers.Truncate(helpers.PlainText(entry.Description), 400),
			// The feed is relevance-ordered but carries no numeric score,
			// so score is positional.
			Score: positionalScore(i, count),
		}
		if entry.Author != nil {
			item.Author = entry.Author.Name
		}
		if entry.PublishedParsed != nil {
			t := *entry.PublishedParsed
			item.PublishedAt = &t
		} else if entry.UpdatedParsed != nil {
			t := *entry.UpdatedParsed
			item.PublishedAt = &t
		}
		items = append(items, item)
	}
	return items, nil
}

// positionalScore maps list position to [0.5, 1.0] for upstreams that order
// by relevance without exposing a numeric signal.
func positionalScore(i, n int) float64 {
	if n <= 1 {
		return 1.0
	}
	return 1.0 - 0.5*float64(i)/float64(n-1)
}

func maxResults(configured, def int) int {
	if configured > 0 {
		return configured
	}
	return def
}
