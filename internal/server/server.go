package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalpulse/pulse/config"
	"github.com/signalpulse/pulse/internal/agent/core"
	"github.com/signalpulse/pulse/internal/agent/telemetry"
	"github.com/signalpulse/pulse/internal/cache"
)

// Run wires the orchestrator and serves the HTTP API until the listener
// stops.
func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := "internal error"
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	tele := telemetry.NewTelemetry(cfg.Telemetry)

	var responseCache core.ResponseCache
	if cfg.Cache.Enabled {
		rc, err := cache.New(context.Background(), cfg.Cache)
		if err != nil {
			baseLogger.Printf("response cache unavailable, continuing without it: %v", err)
		} else {
			responseCache = rc
		}
	}

	orch := core.NewOrchestrator(cfg, nil, tele, responseCache)
	handler := &GenerateHandler{
		Runner:  orch,
		Timeout: cfg.General.RequestTimeout,
	}
	handler.Register(e.Group("/api"))

	return e.Start(cfg.Server.Address)
}
