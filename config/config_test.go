package config

import (
	"math"
	"testing"
	"time"
)

func TestAggregatorNormalize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   AggregatorConfig
		want [3]float64
	}{
		{
			name: "already normalized",
			in:   AggregatorConfig{NativeWeight: 0.4, RecencyWeight: 0.35, TopicWeight: 0.25},
			want: [3]float64{0.4, 0.35, 0.25},
		},
		{
			name: "rescaled to unit sum",
			in:   AggregatorConfig{NativeWeight: 2, RecencyWeight: 1, TopicWeight: 1},
			want: [3]float64{0.5, 0.25, 0.25},
		},
		{
			name: "zero weights fall back to defaults",
			in:   AggregatorConfig{},
			want: [3]float64{0.4, 0.35, 0.25},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.in.Normalize()
			weights := [3]float64{got.NativeWeight, got.RecencyWeight, got.TopicWeight}
			for i := range weights {
				if math.Abs(weights[i]-tt.want[i]) > 1e-9 {
					t.Fatalf("weights = %v, want %v", weights, tt.want)
				}
			}
		})
	}
}

func TestAggregatorValidate(t *testing.T) {
	t.Parallel()
	valid := AggregatorConfig{MaxItems: 24, RecencyHalfLife: 72 * time.Hour}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if err := (AggregatorConfig{MaxItems: 0, RecencyHalfLife: time.Hour}).Validate(); err == nil {
		t.Fatalf("expected error for max_items = 0")
	}
	if err := (AggregatorConfig{MaxItems: 24}).Validate(); err == nil {
		t.Fatalf("expected error for zero half-life")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig("")
	if cfg.Server.Address != ":8080" {
		t.Errorf("server.address = %q", cfg.Server.Address)
	}
	if cfg.Aggregator.MaxItems != 24 {
		t.Errorf("aggregator.max_items = %d", cfg.Aggregator.MaxItems)
	}
	if cfg.Aggregator.Deadline != 12*time.Second {
		t.Errorf("aggregator.deadline = %s", cfg.Aggregator.Deadline)
	}
	if cfg.Sources.News.Endpoint == "" || cfg.Sources.Reference.Endpoint == "" {
		t.Errorf("source endpoints not defaulted: %+v", cfg.Sources)
	}
	sum := cfg.Aggregator.NativeWeight + cfg.Aggregator.RecencyWeight + cfg.Aggregator.TopicWeight
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("weights not normalized, sum = %v", sum)
	}
}
