package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/signalpulse/pulse/internal/agent/core"
)

type stubRunner struct {
	resp core.AgentResponse
	err  error
	got  core.AgentRequest
}

func (s *stubRunner) RunAgent(ctx context.Context, req core.AgentRequest) (core.AgentResponse, error) {
	s.got = req
	return s.resp, s.err
}

func performGenerate(t *testing.T, runner *stubRunner, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h := &GenerateHandler{Runner: runner}
	h.Register(e.Group("/api"))

	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGenerateReturnsBrief(t *testing.T) {
	t.Parallel()
	runner := &stubRunner{resp: core.AgentResponse{Overview: "brief", UsedModel: "test-model"}}
	rec := performGenerate(t, runner, `{
		"topic": "  quantum computing  ",
		"targetAudience": "enterprise CTOs",
		"tone": "authoritative",
		"deliverables": ["News brief"]
	}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if runner.got.Topic != "quantum computing" {
		t.Errorf("topic not trimmed before the run: %q", runner.got.Topic)
	}
	var resp core.AgentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Overview != "brief" || resp.UsedModel != "test-model" {
		t.Errorf("unexpected body: %+v", resp)
	}
}

func TestGenerateValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{
			name:  "topic too short",
			body:  `{"topic":"ai","targetAudience":"developers","tone":"casual","deliverables":["News brief"]}`,
			field: "topic",
		},
		{
			name:  "tone too long",
			body:  `{"topic":"edge computing","targetAudience":"developers","tone":"` + strings.Repeat("x", 61) + `","deliverables":["News brief"]}`,
			field: "tone",
		},
		{
			name:  "no deliverables",
			body:  `{"topic":"edge computing","targetAudience":"developers","tone":"casual","deliverables":["   "]}`,
			field: "deliverables",
		},
		{
			name:  "too many deliverables",
			body:  `{"topic":"edge computing","targetAudience":"developers","tone":"casual","deliverables":["a","b","c","d","e","f","g"]}`,
			field: "deliverables",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			runner := &stubRunner{}
			rec := performGenerate(t, runner, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var body struct {
				Error   string            `json:"error"`
				Details map[string]string `json:"details"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if _, ok := body.Details[tt.field]; !ok {
				t.Errorf("details missing %q: %v", tt.field, body.Details)
			}
		})
	}
}

func TestGenerateMapsAllSourcesUnavailable(t *testing.T) {
	t.Parallel()
	runner := &stubRunner{err: core.ErrAllSourcesUnavailable}
	rec := performGenerate(t, runner, `{"topic":"edge computing","targetAudience":"developers","tone":"casual","deliverables":["News brief"]}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestGenerateMapsUnexpectedError(t *testing.T) {
	t.Parallel()
	runner := &stubRunner{err: errors.New("boom")}
	rec := performGenerate(t, runner, `{"topic":"edge computing","targetAudience":"developers","tone":"casual","deliverables":["News brief"]}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestDeliverablesCatalog(t *testing.T) {
	t.Parallel()
	e := echo.New()
	h := &GenerateHandler{Runner: &stubRunner{}}
	h.Register(e.Group("/api"))

	req := httptest.NewRequest(http.MethodGet, "/api/deliverables", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Deliverables []string `json:"deliverables"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Deliverables) != len(DeliverableOptions) {
		t.Fatalf("got %d options, want %d", len(body.Deliverables), len(DeliverableOptions))
	}
}

func TestValidateRequestTrimsAndBounds(t *testing.T) {
	t.Parallel()
	req := core.AgentRequest{
		Topic:          "  AI in healthcare  ",
		TargetAudience: " clinicians ",
		Tone:           " hopeful ",
		Deliverables:   []string{" News brief ", ""},
	}
	if issues := ValidateRequest(&req); len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if req.Topic != "AI in healthcare" || req.TargetAudience != "clinicians" || req.Tone != "hopeful" {
		t.Errorf("fields not trimmed: %+v", req)
	}
	if len(req.Deliverables) != 1 || req.Deliverables[0] != "News brief" {
		t.Errorf("deliverables not cleaned: %v", req.Deliverables)
	}
}
