package core

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalpulse/pulse/config"
	"github.com/signalpulse/pulse/internal/agent/telemetry"
)

// Orchestrator is the pipeline entry point: aggregate, then synthesize.
// Every run is self-contained; no state outlives the returned response.
type Orchestrator struct {
	cfg         *config.Config
	logger      *log.Logger
	telemetry   *telemetry.Telemetry
	aggregator  *Aggregator
	synthesizer *Synthesizer
	cache       ResponseCache
}

var orchestratorTracer trace.Tracer = otel.Tracer("pulse/internal/agent/orchestrator")

// NewOrchestrator wires the default adapter set and provider from config.
func NewOrchestrator(cfg *config.Config, logger *log.Logger, tele *telemetry.Telemetry, cache ResponseCache) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}

	httpClient := NewHTTPClient(cfg.Sources.Timeout, cfg.Sources.MaxRetries, cfg.Sources.UserAgent)
	adapters := []SourceAdapter{
		NewNewsAdapter(cfg.Sources.News, httpClient),
		NewRedditAdapter(cfg.Sources.Forum, httpClient),
		NewHackerNewsAdapter(cfg.Sources.LinkAgg, httpClient),
		NewWikipediaAdapter(cfg.Sources.Reference, httpClient),
	}

	return &Orchestrator{
		cfg:         cfg,
		logger:      logger,
		telemetry:   tele,
		aggregator:  NewAggregator(cfg.Aggregator, adapters, log.New(log.Writer(), "[AGG] ", log.LstdFlags), tele),
		synthesizer: NewSynthesizer(NewOpenAIProvider(cfg.LLM), log.New(log.Writer(), "[SYNTH] ", log.LstdFlags)),
		cache:       cache,
	}
}

// NewOrchestratorWith builds an orchestrator from explicit components.
func NewOrchestratorWith(agg *Aggregator, synth *Synthesizer, cache ResponseCache, logger *log.Logger, tele *telemetry.Telemetry) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}
	return &Orchestrator{logger: logger, telemetry: tele, aggregator: agg, synthesizer: synth, cache: cache}
}

// RunAgent executes one request through the pipeline. It fails only with
// ErrAllSourcesUnavailable; every other degradation is absorbed by the
// synthesizer's fallback path.
func (o *Orchestrator) RunAgent(ctx context.Context, req AgentRequest) (AgentResponse, error) {
	startTime := time.Now()
	runID := uuid.NewString()
	ctx, span := orchestratorTracer.Start(ctx, "agent.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("request.topic", req.Topic),
		))
	defer span.End()

	if o.cache != nil {
		if cached, ok := o.cache.Get(ctx, req.Fingerprint()); ok {
			o.telemetry.RecordCacheEvent("hit")
			span.AddEvent("cache.hit")
			return cached, nil
		}
		o.telemetry.RecordCacheEvent("miss")
	}

	o.logger.Printf("run %s: aggregating sources for topic %q", runID, req.Topic)

	aggCtx, aggSpan := orchestratorTracer.Start(ctx, "agent.aggregate")
	corpus, err := o.aggregator.Aggregate(aggCtx, req.Topic)
	if err != nil {
		aggSpan.RecordError(err)
		aggSpan.SetStatus(codes.Error, err.Error())
		aggSpan.End()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.telemetry.RecordRequest("error", time.Since(startTime))
		o.logger.Printf("run %s: aggregation failed: %v", runID, err)
		return AgentResponse{}, err
	}
	aggSpan.SetAttributes(attribute.Int("corpus.size", len(corpus)))
	aggSpan.SetStatus(codes.Ok, "completed")
	aggSpan.End()

	o.logger.Printf("run %s: synthesizing from %d ranked items", runID, len(corpus))

	synthCtx, synthSpan := orchestratorTracer.Start(ctx, "agent.synthesize")
	resp := o.synthesizer.Synthesize(synthCtx, req, corpus)
	synthSpan.SetAttributes(attribute.String("used_model", resp.UsedModel))
	synthSpan.SetStatus(codes.Ok, "completed")
	synthSpan.End()

	outcome := "completed"
	if resp.UsedModel == FallbackModel {
		outcome = "fallback"
	}
	o.telemetry.RecordRequest(outcome, time.Since(startTime))
	o.logger.Printf("run %s: %s in %s (model=%s, sources=%d)", runID, outcome, time.Since(startTime).Round(time.Millisecond), resp.UsedModel, len(resp.Sources))

	if o.cache != nil {
		o.cache.Set(ctx, req.Fingerprint(), resp)
	}
	return resp, nil
}
