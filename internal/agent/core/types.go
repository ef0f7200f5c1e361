package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// SourceKind identifies the upstream family an item was retrieved from.
type SourceKind string

const (
	SourceNews           SourceKind = "news"
	SourceForum          SourceKind = "forum"
	SourceLinkAggregator SourceKind = "linkAggregator"
	SourceReference      SourceKind = "reference"
)

// SourceItem is the canonical record every adapter normalizes into. URL is
// the deduplication key and must be non-empty; Score is the adapter-native
// relevance signal rescaled to [0,1].
type SourceItem struct {
	Source      SourceKind `json:"source"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Excerpt     string     `json:"excerpt,omitempty"`
	Author      string     `json:"author,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	Score       float64    `json:"score"`
}

// AgentRequest carries the user's brief parameters. Bounds (topic 3-160,
// audience 3-120, tone 3-60, deliverables 1-6) are enforced at the HTTP
// boundary before the core sees the request.
type AgentRequest struct {
	Topic          string   `json:"topic"`
	TargetAudience string   `json:"targetAudience"`
	Tone           string   `json:"tone"`
	Deliverables   []string `json:"deliverables"`
}

// Fingerprint returns a stable cache key for the request, derived from the
// normalized (topic, audience, tone, deliverables) tuple.
func (r AgentRequest) Fingerprint() string {
	norm := func(s string) string { return strings.ToLower(strings.Join(strings.Fields(s), " ")) }
	parts := []string{norm(r.Topic), norm(r.TargetAudience), norm(r.Tone)}
	for _, d := range r.Deliverables {
		parts = append(parts, norm(d))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

// OutlineSection is one section of the suggested narrative outline.
type OutlineSection struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// AgentResponse is the final content-strategy brief. When the pipeline
// succeeds every field is populated and Sources cites only items from the
// ranked corpus.
type AgentResponse struct {
	Overview        string           `json:"overview"`
	KeyInsights     []string         `json:"keyInsights"`
	SuggestedAngles []string         `json:"suggestedAngles"`
	Outline         []OutlineSection `json:"outline"`
	ContentHooks    []string         `json:"contentHooks"`
	Sources         []SourceItem     `json:"sources"`
	UsedModel       string           `json:"usedModel"`
}

// SourceAdapter fetches one upstream and maps its payload into SourceItems.
// Implementations translate every failure mode (network, non-2xx, malformed
// payload, timeout) into a *SourceUnavailableError; they never abort the
// pipeline.
type SourceAdapter interface {
	// ID returns a stable identifier used in logs and metrics.
	ID() string

	// Kind returns the source family this adapter feeds.
	Kind() SourceKind

	// Fetch retrieves up to the adapter's configured cap of items for topic.
	Fetch(ctx context.Context, topic string) ([]SourceItem, error)
}

// LLMProvider abstracts the generation model service. Output is untrusted
// and always validated by the caller.
type LLMProvider interface {
	// Generate produces a completion for prompt. Options may override
	// temperature and max_tokens.
	Generate(ctx context.Context, prompt string, options map[string]interface{}) (string, error)

	// ModelName identifies the producing model for response provenance.
	ModelName() string
}

// ResponseCache is an advisory, time-bounded response cache. Misses and
// backend errors must never block correctness.
type ResponseCache interface {
	Get(ctx context.Context, key string) (AgentResponse, bool)
	Set(ctx context.Context, key string, resp AgentResponse)
}
