package core

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/signalpulse/pulse/config"
	"github.com/signalpulse/pulse/internal/helpers"
)

// HackerNewsAdapter retrieves stories from the Algolia Hacker News search API.
type HackerNewsAdapter struct {
	cfg  config.LinkAggSourceConfig
	http *HTTPClient
}

func NewHackerNewsAdapter(cfg config.LinkAggSourceConfig, http *HTTPClient) *HackerNewsAdapter {
	return &HackerNewsAdapter{cfg: cfg, http: http}
}

func (a *HackerNewsAdapter) ID() string       { return "hackernews" }
func (a *HackerNewsAdapter) Kind() SourceKind { return SourceLinkAggregator }

func (a *HackerNewsAdapter) Fetch(ctx context.Context, topic string) ([]SourceItem, error) {
	endpoint := a.cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://hn.algolia.com/api/v1/search"
	}
	searchURL := fmt.Sprintf("%s?query=%s&tags=story&hitsPerPage=%d",
		endpoint, url.QueryEscape(topic), maxResults(a.cfg.MaxResults, 10))

	var resp struct {
		Hits []struct {
			Title     string  `json:"title"`
			URL       string  `json:"url"`
			ObjectID  string  `json:"objectID"`
			Author    string  `json:"author"`
			Points    float64 `json:"points"`
			StoryText string  `json:"story_text"`
			CreatedAt string  `json:"created_at"`
		} `json:"hits"`
	}
	if err := a.http.DoJSON(ctx, "GET", searchURL, nil, nil, &resp); err != nil {
		return nil, sourceUnavailable(a.ID(), err)
	}

	items := make([]SourceItem, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		link := hit.URL
		if link == "" {
			// Ask HN / text posts have no outbound URL.
			if hit.ObjectID == "" {
				continue
			}
			link = "https://news.ycombinator.com/item?id=" + hit.ObjectID
		}
		item := SourceItem{
			Source:  SourceLinkAggregator,
			Title:   helpers.PlainText(hit.Title),
			URL:     link,
			Excerpt: helpers.Truncate(helpers.PlainText(hit.StoryText), 400),
			Author:  hit.Author,
			Score:   saturatingScore(hit.Points, 100),
		}
		if ts, err := time.Parse(time.RFC3339, hit.CreatedAt); err == nil {
			t := ts.UTC()
			item.PublishedAt = &t
		}
		items = append(items, item)
	}
	return items, nil
}
