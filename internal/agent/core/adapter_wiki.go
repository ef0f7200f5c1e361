package core

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/signalpulse/pulse/config"
	"github.com/signalpulse/pulse/internal/helpers"
)

// WikipediaAdapter retrieves background reference material via the MediaWiki
// search API. Reference articles carry no publication timestamp, so they
// receive the neutral recency default during ranking.
type WikipediaAdapter struct {
	cfg  config.ReferenceSourceConfig
	http *HTTPClient
}

func NewWikipediaAdapter(cfg config.ReferenceSourceConfig, http *HTTPClient) *WikipediaAdapter {
	return &WikipediaAdapter{cfg: cfg, http: http}
}

func (a *WikipediaAdapter) ID() string       { return "wikipedia" }
func (a *WikipediaAdapter) Kind() SourceKind { return SourceReference }

func (a *WikipediaAdapter) Fetch(ctx context.Context, topic string) ([]SourceItem, error) {
	endpoint := a.cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://en.wikipedia.org/w/api.php"
	}
	searchURL := fmt.Sprintf("%s?action=query&list=search&srsearch=%s&srlimit=%d&format=json&utf8=1",
		endpoint, url.QueryEscape(topic), maxResults(a.cfg.MaxResults, 5))

	var resp struct {
		Query struct {
			Search []struct {
				Title   string `json:"title"`
				Snippet string `json:"snippet"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := a.http.DoJSON(ctx, "GET", searchURL, nil, nil, &resp); err != nil {
		return nil, sourceUnavailable(a.ID(), err)
	}

	results := resp.Query.Search
	items := make([]SourceItem, 0, len(results))
	for i, page := range results {
		if page.Title == "" {
			continue
		}
		items = append(items, SourceItem{
			Source:  SourceReference,
			Title:   page.Title,
			URL:     "https://en.wikipedia.org/wiki/" + url.PathEscape(strings.ReplaceAll(page.Title, " ", "_")),
			Excerpt: helpers.Truncate(helpers.PlainText(page.Snippet), 400),
			Score:   positionalScore(i, len(results)),
		})
	}
	return items, nil
}
