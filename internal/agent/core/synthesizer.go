package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/signalpulse/pulse/internal/helpers"
)

// Brief cardinality bounds, sized for what the rendering layer displays.
const (
	minInsights = 3
	maxInsights = 6
	minAngles   = 3
	maxAngles   = 5
	minSections = 3
	maxSections = 6
	minHooks    = 3
	maxHooks    = 6
	minSources  = 3
	maxSources  = 8
)

// FallbackModel is the provenance label for deterministic briefs assembled
// without model involvement.
const FallbackModel = "deterministic-fallback"

// Synthesizer turns a ranked corpus plus the request parameters into a
// schema-conformant brief. The generation model is treated as an untrusted
// upstream: its output is parsed, validated and repaired, retried once with
// a corrective prompt, and replaced by a deterministic brief when it stays
// malformed. Synthesize therefore always returns a valid AgentResponse.
type Synthesizer struct {
	llm    LLMProvider
	logger *log.Logger
}

func NewSynthesizer(llm LLMProvider, logger *log.Logger) *Synthesizer {
	if logger == nil {
		logger = log.New(log.Writer(), "[SYNTH] ", log.LstdFlags)
	}
	return &Synthesizer{llm: llm, logger: logger}
}

// briefPayload is the wire shape requested from the model. Sources are cited
// as URLs and resolved against the corpus afterwards, so fabricated links
// can be detected and dropped.
type briefPayload struct {
	Overview        string           `json:"overview"`
	KeyInsights     []string         `json:"keyInsights"`
	SuggestedAngles []string         `json:"suggestedAngles"`
	Outline         []OutlineSection `json:"outline"`
	ContentHooks    []string         `json:"contentHooks"`
	Sources         []string         `json:"sources"`
}

// Synthesize produces the final brief. It never returns an error.
func (s *Synthesizer) Synthesize(ctx context.Context, req AgentRequest, corpus []SourceItem) AgentResponse {
	if s.llm == nil || len(corpus) == 0 {
		return s.fallbackBrief(req, corpus)
	}

	prompt := s.buildPrompt(req, corpus)
	out, err := s.llm.Generate(ctx, prompt, map[string]interface{}{"temperature": 0.4})
	if err == nil {
		resp, parseErr := s.parseBrief(out, corpus)
		if parseErr == nil {
			resp.UsedModel = s.llm.ModelName()
			return resp
		}
		err = parseErr
	}
	s.logger.Printf("first synthesis attempt failed: %v", err)

	// One corrective retry; the re-prompt embeds the first failure.
	out, retryErr := s.llm.Generate(ctx, s.correctivePrompt(prompt, err), map[string]interface{}{"temperature": 0.2})
	if retryErr == nil {
		resp, parseErr := s.parseBrief(out, corpus)
		if parseErr == nil {
			resp.UsedModel = s.llm.ModelName()
			return resp
		}
		retryErr = parseErr
	}
	s.logger.Printf("corrective retry failed, using deterministic fallback: %v", retryErr)

	return s.fallbackBrief(req, corpus)
}

func (s *Synthesizer) buildPrompt(req AgentRequest, corpus []SourceItem) string {
	var ctxBuf strings.Builder
	for _, item := range corpus {
		fmt.Fprintf(&ctxBuf, "- Title: %s\n  Source: %s\n  URL: %s\n", item.Title, item.Source, item.URL)
		if item.Excerpt != "" {
			fmt.Fprintf(&ctxBuf, "  Excerpt: %s\n", item.Excerpt)
		}
	}

	return fmt.Sprintf(`You are a senior content strategist building a content-intelligence brief.

TOPIC: %s
TARGET AUDIENCE: %s
TONE: %s
REQUESTED DELIVERABLES: %s

GROUNDING SOURCES (the only material you may cite):
%s
Return ONLY strict JSON with keys:
{
  "overview": string (executive summary, 2-4 sentences, written for the audience in the requested tone),
  "keyInsights": [%d-%d strings],
  "suggestedAngles": [%d-%d strings, each a distinct strategic angle],
  "outline": [%d-%d objects { "title": string, "description": string }, a narrative outline for the deliverables],
  "contentHooks": [%d-%d strings, attention-grabbing openers],
  "sources": [%d-%d strings, each a URL copied verbatim from the grounding sources above; never invent URLs]
}
Do not include any other text or explanation.`,
		req.Topic, req.TargetAudience, req.Tone, strings.Join(req.Deliverables, ", "),
		ctxBuf.String(),
		minInsights, maxInsights, minAngles, maxAngles, minSections, maxSections,
		minHooks, maxHooks, minSources, maxSources)
}

func (s *Synthesizer) correctivePrompt(original string, failure error) string {
	return fmt.Sprintf(`%s

Your previous answer was rejected: %v.
Respond again with ONLY the strict JSON object described above. No prose, no markdown fences.`, original, failure)
}

// parseBrief validates and repairs model output against the response schema.
// Unparseable output or an empty overview is irrecoverable; short arrays are
// backfilled minimally from the ranked corpus instead of failing the request.
func (s *Synthesizer) parseBrief(out string, corpus []SourceItem) (AgentResponse, error) {
	var payload briefPayload
	if err := json.Unmarshal([]byte(extractFirstJSON(out)), &payload); err != nil {
		return AgentResponse{}, fmt.Errorf("%w: %v", ErrModelOutputInvalid, err)
	}
	payload.Overview = strings.TrimSpace(payload.Overview)
	if payload.Overview == "" {
		return AgentResponse{}, fmt.Errorf("%w: overview missing", ErrModelOutputInvalid)
	}

	resp := AgentResponse{
		Overview:        payload.Overview,
		KeyInsights:     clampStrings(payload.KeyInsights, maxInsights),
		SuggestedAngles: clampStrings(payload.SuggestedAngles, maxAngles),
		ContentHooks:    clampStrings(payload.ContentHooks, maxHooks),
		Outline:         clampOutline(payload.Outline, maxSections),
		Sources:         resolveSources(payload.Sources, corpus),
	}

	// Backfill short arrays rather than rejecting an otherwise usable brief.
	for len(resp.KeyInsights) < minInsights {
		idx := len(resp.KeyInsights)
		resp.KeyInsights = append(resp.KeyInsights, insightFromCorpus(corpus, idx))
	}
	for len(resp.SuggestedAngles) < minAngles {
		resp.SuggestedAngles = append(resp.SuggestedAngles, defaultAngles(corpus)[len(resp.SuggestedAngles)%3])
	}
	for len(resp.ContentHooks) < minHooks {
		idx := len(resp.ContentHooks)
		resp.ContentHooks = append(resp.ContentHooks, hookFromCorpus(corpus, idx))
	}
	if len(resp.Outline) < minSections {
		resp.Outline = defaultOutline(corpus)
	}
	if len(resp.Sources) < minSources {
		resp.Sources = padSources(resp.Sources, corpus, minSources)
	}
	return resp, nil
}

// resolveSources maps cited URLs back onto corpus items by canonical URL,
// dropping anything not present in the corpus. Results keep corpus (rank)
// order.
func resolveSources(cited []string, corpus []SourceItem) []SourceItem {
	wanted := make(map[string]bool, len(cited))
	for _, raw := range cited {
		if key, err := helpers.CanonicalURL(raw); err == nil {
			wanted[key] = true
		}
	}
	var out []SourceItem
	for _, item := range corpus {
		key, err := helpers.CanonicalURL(item.URL)
		if err != nil {
			continue
		}
		if wanted[key] {
			out = append(out, item)
			if len(out) == maxSources {
				break
			}
		}
	}
	return out
}

// padSources appends top-ranked corpus items not already cited until the
// list reaches at least min entries (bounded by corpus size).
func padSources(current []SourceItem, corpus []SourceItem, min int) []SourceItem {
	have := make(map[string]bool, len(current))
	for _, item := range current {
		have[item.URL] = true
	}
	for _, item := range corpus {
		if len(current) >= min {
			break
		}
		if !have[item.URL] {
			current = append(current, item)
			have[item.URL] = true
		}
	}
	return current
}

// fallbackBrief assembles a deterministic brief purely from the ranked
// corpus, trading richness for availability.
func (s *Synthesizer) fallbackBrief(req AgentRequest, corpus []SourceItem) AgentResponse {
	overview := fmt.Sprintf(
		"A %s briefing on %s for %s, assembled from %d fresh sources across news, discussion and reference material. Generation was unavailable, so this brief surfaces the highest-ranked raw signals for manual review.",
		req.Tone, req.Topic, req.TargetAudience, len(corpus))

	insights := make([]string, 0, maxInsights)
	for i := 0; i < len(corpus) && len(insights) < 5; i++ {
		insights = append(insights, insightFromCorpus(corpus, i))
	}
	for len(insights) < minInsights {
		insights = append(insights, fmt.Sprintf("Coverage of %s is currently thin; monitor for new signals.", req.Topic))
	}

	hooks := make([]string, 0, maxHooks)
	for i := 0; i < len(corpus) && len(hooks) < minHooks; i++ {
		hooks = append(hooks, hookFromCorpus(corpus, i))
	}
	for len(hooks) < minHooks {
		hooks = append(hooks, fmt.Sprintf("What %s should know about %s this week.", req.TargetAudience, req.Topic))
	}

	sources := corpus
	if len(sources) > maxSources {
		sources = sources[:maxSources]
	}

	return AgentResponse{
		Overview:        overview,
		KeyInsights:     insights,
		SuggestedAngles: defaultAngles(corpus),
		Outline:         defaultOutline(corpus),
		ContentHooks:    hooks,
		Sources:         sources,
		UsedModel:       FallbackModel,
	}
}

func insightFromCorpus(corpus []SourceItem, i int) string {
	if len(corpus) == 0 {
		return "No source material was retrievable for this topic."
	}
	item := corpus[i%len(corpus)]
	return fmt.Sprintf("%s (via %s)", item.Title, item.Source)
}

func hookFromCorpus(corpus []SourceItem, i int) string {
	if len(corpus) == 0 {
		return "The conversation is just getting started."
	}
	return fmt.Sprintf("\"%s\" — and why it matters now.", corpus[i%len(corpus)].Title)
}

func defaultAngles(corpus []SourceItem) []string {
	kinds := make(map[SourceKind]bool, 4)
	for _, item := range corpus {
		kinds[item.Source] = true
	}
	angles := []string{"What the latest coverage signals about where this topic is heading"}
	if kinds[SourceForum] || kinds[SourceLinkAggregator] {
		angles = append(angles, "What practitioners are debating in public forums right now")
	} else {
		angles = append(angles, "How early adopters are reacting to recent developments")
	}
	angles = append(angles, "Background context that separates signal from hype")
	return angles
}

func defaultOutline(corpus []SourceItem) []OutlineSection {
	lead := "the strongest current signals"
	if len(corpus) > 0 {
		lead = corpus[0].Title
	}
	return []OutlineSection{
		{Title: "Why now", Description: "Open with the freshest development: " + lead + "."},
		{Title: "The landscape", Description: "Map the main storylines and who is driving them, citing the aggregated sources."},
		{Title: "What it means", Description: "Translate the signals into concrete implications for the target audience."},
		{Title: "Next moves", Description: "Close with recommended actions and what to watch next."},
	}
}

func clampStrings(values []string, max int) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
		if len(out) == max {
			break
		}
	}
	return out
}

func clampOutline(sections []OutlineSection, max int) []OutlineSection {
	out := make([]OutlineSection, 0, len(sections))
	for _, sec := range sections {
		sec.Title = strings.TrimSpace(sec.Title)
		sec.Description = strings.TrimSpace(sec.Description)
		if sec.Title == "" || sec.Description == "" {
			continue
		}
		out = append(out, sec)
		if len(out) == max {
			break
		}
	}
	return out
}

// extractFirstJSON returns the first balanced {...} block in s, tolerating
// prose or markdown fences around the model's JSON answer.
func extractFirstJSON(s string) string {
	start := -1
	depth := 0
	for i, ch := range s {
		if ch == '{' {
			if depth == 0 {
				start = i
			}
			depth++
		} else if ch == '}' {
			if depth > 0 {
				depth--
			}
			if depth == 0 && start != -1 {
				return s[start : i+1]
			}
		}
	}
	return s
}
