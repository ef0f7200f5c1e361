package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/signalpulse/pulse/internal/agent/core"
)

// DeliverableOptions is the catalog the request form offers; requests are
// free-form and not restricted to it.
var DeliverableOptions = []string{
	"News brief",
	"Long-form article",
	"Social thread",
	"Video script",
	"Newsletter segment",
	"Talking points",
}

// Runner abstracts the orchestrator for handler tests.
type Runner interface {
	RunAgent(ctx context.Context, req core.AgentRequest) (core.AgentResponse, error)
}

type GenerateHandler struct {
	Runner  Runner
	Timeout time.Duration
}

func (h *GenerateHandler) Register(g *echo.Group) {
	g.POST("/generate", h.generate)
	g.GET("/deliverables", h.deliverables)
}

func (h *GenerateHandler) deliverables(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"deliverables": DeliverableOptions})
}

func (h *GenerateHandler) generate(c echo.Context) error {
	var req core.AgentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if issues := ValidateRequest(&req); len(issues) > 0 {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "Invalid input",
			"details": issues,
		})
	}

	ctx := c.Request().Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	resp, err := h.Runner.RunAgent(ctx, req)
	if err != nil {
		if errors.Is(err, core.ErrAllSourcesUnavailable) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "no content sources reachable")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate brief")
	}
	return c.JSON(http.StatusOK, resp)
}

// ValidateRequest enforces the boundary contract the core assumes: topic
// 3-160 chars, audience 3-120, tone 3-60, deliverables 1-6 non-empty
// entries. Fields are trimmed in place. Returned issues are keyed by field.
func ValidateRequest(req *core.AgentRequest) map[string]string {
	issues := map[string]string{}

	req.Topic = strings.TrimSpace(req.Topic)
	req.TargetAudience = strings.TrimSpace(req.TargetAudience)
	req.Tone = strings.TrimSpace(req.Tone)

	checkLen := func(field, value string, min, max int) {
		n := len([]rune(value))
		if n < min || n > max {
			issues[field] = fmt.Sprintf("must be between %d and %d characters", min, max)
		}
	}
	checkLen("topic", req.Topic, 3, 160)
	checkLen("targetAudience", req.TargetAudience, 3, 120)
	checkLen("tone", req.Tone, 3, 60)

	cleaned := make([]string, 0, len(req.Deliverables))
	for _, d := range req.Deliverables {
		if d = strings.TrimSpace(d); d != "" {
			cleaned = append(cleaned, d)
		}
	}
	req.Deliverables = cleaned
	if len(req.Deliverables) < 1 || len(req.Deliverables) > 6 {
		issues["deliverables"] = "must contain between 1 and 6 entries"
	}
	return issues
}
