package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/signalpulse/pulse/config"
	"github.com/signalpulse/pulse/internal/agent/core"
	"github.com/signalpulse/pulse/internal/agent/telemetry"
	"github.com/signalpulse/pulse/internal/server"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{Use: "pulse", Short: "Signal Pulse content-intelligence agent"}
	root.AddCommand(serveCMD(), generateCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCMD() *cobra.Command {
	var cfgPath string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			return server.Run(cfg)
		},
	}
	serve.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default searches ./config)")
	return serve
}

func generateCMD() *cobra.Command {
	var (
		cfgPath      string
		topic        string
		audience     string
		tone         string
		deliverables []string
	)
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Run one brief generation and print the JSON result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)

			req := core.AgentRequest{
				Topic:          topic,
				TargetAudience: audience,
				Tone:           tone,
				Deliverables:   deliverables,
			}
			if issues := server.ValidateRequest(&req); len(issues) > 0 {
				for field, msg := range issues {
					fmt.Fprintf(os.Stderr, "%s: %s\n", field, msg)
				}
				return fmt.Errorf("invalid request")
			}

			tele := telemetry.NewTelemetry(cfg.Telemetry)
			orch := core.NewOrchestrator(cfg, log.New(os.Stderr, "[ORCH] ", log.LstdFlags), tele, nil)

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.General.RequestTimeout)
			defer cancel()
			resp, err := orch.RunAgent(ctx, req)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
	generate.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default searches ./config)")
	generate.Flags().StringVar(&topic, "topic", "", "topic focus (required)")
	generate.Flags().StringVar(&audience, "audience", "", "target audience (required)")
	generate.Flags().StringVar(&tone, "tone", "", "desired tone (required)")
	generate.Flags().StringSliceVar(&deliverables, "deliverable", []string{"News brief"}, "deliverable formats")
	_ = generate.MarkFlagRequired("topic")
	_ = generate.MarkFlagRequired("audience")
	_ = generate.MarkFlagRequired("tone")
	return generate
}
