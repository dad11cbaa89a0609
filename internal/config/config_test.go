package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") returned error: %v", err)
	}
	if cfg.Years != 4 {
		t.Errorf("Expected default years to be 4, got %d", cfg.Years)
	}
	if cfg.GlobalSeed != 420 {
		t.Errorf("Expected default seed to be 420, got %d", cfg.GlobalSeed)
	}
	if cfg.Simulation.ChaosProbability != 0.03 {
		t.Errorf("Expected default chaos probability to be 0.03, got %v", cfg.Simulation.ChaosProbability)
	}
	if len(cfg.Finance.TaxRules) != 2 {
		t.Errorf("Expected 2 default tax rules, got %d", len(cfg.Finance.TaxRules))
	}
	if len(cfg.Catalog.Seasonality) != 12 {
		t.Errorf("Expected 12 seasonality factors, got %d", len(cfg.Catalog.Seasonality))
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `{"years": 2, "simulation": {"chaos_probability": 0}}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Years != 2 {
		t.Errorf("Expected years 2, got %d", cfg.Years)
	}
	// Explicit zero must survive, omitted fields take defaults.
	if cfg.Simulation.ChaosProbability != 0 {
		t.Errorf("Expected explicit chaos probability 0 to survive, got %v", cfg.Simulation.ChaosProbability)
	}
	if cfg.Simulation.PromoProbability != 0.08 {
		t.Errorf("Expected default promo probability 0.08, got %v", cfg.Simulation.PromoProbability)
	}
	if cfg.Projection.PathCount != 2000 {
		t.Errorf("Expected default path count 2000, got %d", cfg.Projection.PathCount)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `{"years": 2, "bogus": true}`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Expected an error for unknown config key, got nil")
	}
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("Expected ConfigurationError, got %T: %v", err, err)
	}
}

func TestLoadRejectsTypeMismatch(t *testing.T) {
	path := writeConfig(t, `{"years": "four"}`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Expected an error for mistyped config value, got nil")
	}
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("Expected ConfigurationError, got %T: %v", err, err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("Expected an error for missing config file, got nil")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FMCG_SIM_SEED", "77")
	t.Setenv("FMCG_SIM_YEARS", "3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") returned error: %v", err)
	}
	if cfg.GlobalSeed != 77 {
		t.Errorf("Expected env seed 77, got %d", cfg.GlobalSeed)
	}
	if cfg.Years != 3 {
		t.Errorf("Expected env years 3, got %d", cfg.Years)
	}
}

func TestEnvOverrideRejectsGarbage(t *testing.T) {
	t.Setenv("FMCG_SIM_SEED", "not-a-number")

	_, err := Load("")
	if err == nil {
		t.Fatal("Expected an error for malformed FMCG_SIM_SEED, got nil")
	}
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("Expected ConfigurationError, got %T: %v", err, err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RunConfig)
		field  string
	}{
		{
			name:   "years out of range",
			mutate: func(c *RunConfig) { c.Years = 99 },
			field:  "years",
		},
		{
			name:   "negative chaos probability",
			mutate: func(c *RunConfig) { c.Simulation.ChaosProbability = -0.1 },
			field:  "simulation.chaos_probability",
		},
		{
			name:   "promo probability above one",
			mutate: func(c *RunConfig) { c.Simulation.PromoProbability = 1.5 },
			field:  "simulation.promo_probability",
		},
		{
			name:   "inverted chaos range",
			mutate: func(c *RunConfig) { c.Simulation.ChaosMagnitudeRange = []float64{0.5, 0.2} },
			field:  "simulation.chaos_magnitude_range",
		},
		{
			name:   "elasticity saturates price",
			mutate: func(c *RunConfig) { c.Simulation.DefaultElasticity = 0.5 },
			field:  "simulation.default_elasticity",
		},
		{
			name: "per-product elasticity saturates price",
			mutate: func(c *RunConfig) {
				c.Simulation.ElasticityCoefficients = map[string]float64{"PRD-001": 0.6}
			},
			field: "simulation.elasticity_coefficients.PRD-001",
		},
		{
			name: "duplicate tax code",
			mutate: func(c *RunConfig) {
				c.Finance.TaxRules = append(c.Finance.TaxRules, TaxRule{Code: "ITBIS", Base: BaseGross, Rate: 0.1})
			},
			field: "finance.tax_rules[2]",
		},
		{
			name: "bad tax base",
			mutate: func(c *RunConfig) {
				c.Finance.TaxRules[0].Base = "net"
			},
			field: "finance.tax_rules[0]",
		},
		{
			name: "margin layer rate too high",
			mutate: func(c *RunConfig) {
				c.Finance.MarginLayers[0].Rate = 1.0
			},
			field: "finance.margin_layers[0]",
		},
		{
			name:   "zero variance scale",
			mutate: func(c *RunConfig) { c.Projection.Optimistic.VarianceScale = 0 },
			field:  "projection.optimistic.variance_scale",
		},
		{
			name: "optimistic growth below pessimistic",
			mutate: func(c *RunConfig) {
				c.Projection.Optimistic.Growth = 0.90
			},
			field: "projection.optimistic.growth",
		},
		{
			name: "unknown churn factor",
			mutate: func(c *RunConfig) {
				c.Risk.ChurnWeights["phase_of_moon"] = 0.5
			},
			field: "risk.churn_weights.phase_of_moon",
		},
		{
			name:   "threshold above one",
			mutate: func(c *RunConfig) { c.Risk.OOSConcentrationThreshold = 1.2 },
			field:  "risk.oos_concentration_threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected a validation error, got nil")
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Expected ConfigurationError, got %T: %v", err, err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Expected error on field %q, got %q (%v)", tt.field, cfgErr.Field, err)
			}
		})
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v, want nil", err)
	}
}

func TestDigestStable(t *testing.T) {
	a := Default()
	b := Default()
	if a.Digest() != b.Digest() {
		t.Error("Expected identical configs to share a digest")
	}
	b.GlobalSeed = 7
	if a.Digest() == b.Digest() {
		t.Error("Expected differing configs to have differing digests")
	}
}
