package core

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/signalpulse/pulse/config"
	"github.com/signalpulse/pulse/internal/helpers"
)

// RedditAdapter retrieves topical discussion threads from Reddit's public
// search endpoint.
type RedditAdapter struct {
	cfg  config.ForumSourceConfig
	http *HTTPClient
}

func NewRedditAdapter(cfg config.ForumSourceConfig, http *HTTPClient) *RedditAdapter {
	return &RedditAdapter{cfg: cfg, http: http}
}

func (a *RedditAdapter) ID() string       { return "reddit" }
func (a *RedditAdapter) Kind() SourceKind { return SourceForum }

func (a *RedditAdapter) Fetch(ctx context.Context, topic string) ([]SourceItem, error) {
	endpoint := a.cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://www.reddit.com/search.json"
	}
	window := a.cfg.TimeWindow
	if window == "" {
		window = "week"
	}
	searchURL := fmt.Sprintf("%s?q=%s&sort=relevance&t=%s&limit=%d&raw_json=1",
		endpoint, url.QueryEscape(topic), window, maxResults(a.cfg.MaxResults, 10))

	var resp struct {
		Data struct {
			Children []struct {
				Data struct {
					Title      string  `json:"title"`
					Permalink  string  `json:"permalink"`
					Selftext   string  `json:"selftext"`
					Author     string  `json:"author"`
					Subreddit  string  `json:"subreddit"`
					Ups        float64 `json:"ups"`
					CreatedUTC float64 `json:"created_utc"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := a.http.DoJSON(ctx, "GET", searchURL, nil, nil, &resp); err != nil {
		return nil, sourceUnavailable(a.ID(), err)
	}

	items := make([]SourceItem, 0, len(resp.Data.Children))
	for _, child := range resp.Data.Children {
		post := child.Data
		if post.Permalink == "" {
			continue
		}
		item := SourceItem{
			Source:  SourceForum,
			Title:   helpers.PlainText(post.Title),
			URL:     "https://www.reddit.com" + post.Permalink,
			Excerpt: helpers.Truncate(helpers.PlainText(post.Selftext), 400),
			Author:  post.Author,
			Score:   saturatingScore(post.Ups, 100),
		}
		if post.CreatedUTC > 0 {
			t := time.Unix(int64(post.CreatedUTC), 0).UTC()
			item.PublishedAt = &t
		}
		if item.Excerpt == "" && post.Subreddit != "" {
			item.Excerpt = "Discussion in r/" + post.Subreddit
		}
		items = append(items, item)
	}
	return items, nil
}

// saturatingScore rescales an unbounded vote count into [0,1); midpoint
// controls where the curve reaches 0.5.
func saturatingScore(votes, midpoint float64) float64 {
	if votes < 0 {
		votes = 0
	}
	return votes / (votes + midpoint)
}
