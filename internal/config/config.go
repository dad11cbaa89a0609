package config

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Base selectors for tax rules and margin layers.
const (
	BaseGross      = "gross"
	BaseNetOfPrior = "net_of_prior"
	BaseRemainder  = "remainder"
)

// Churn factor names accepted in RiskConfig.ChurnWeights.
const (
	FactorVolumeDecline = "volume_decline"
	FactorStockoutRate  = "stockout_rate"
	FactorMarginErosion = "margin_erosion"
)

// RunConfig holds the complete run configuration. Zero values for
// structural fields (years, counts, ranges) mean "use the default";
// probabilities and goal_target keep an explicit zero.
type RunConfig struct {
	Years      int    `json:"years,omitempty"`
	GlobalSeed int64  `json:"global_seed,omitempty"`
	OutDir     string `json:"out_dir,omitempty"`
	Workers    int    `json:"workers,omitempty"`

	Catalog    CatalogConfig    `json:"catalog,omitempty"`
	Simulation SimulationConfig `json:"simulation,omitempty"`
	Finance    FinanceConfig    `json:"finance,omitempty"`
	Projection ProjectionConfig `json:"projection,omitempty"`
	Risk       RiskConfig       `json:"risk,omitempty"`
}

// CatalogConfig sizes the synthetic master data. Seasonality holds one
// demand factor per calendar month, January first.
type CatalogConfig struct {
	Products    int       `json:"products,omitempty"`
	Routes      int       `json:"routes,omitempty"`
	Customers   int       `json:"customers,omitempty"`
	Seasonality []float64 `json:"seasonality,omitempty"`
}

// SimulationConfig controls the stochastic transaction generator.
type SimulationConfig struct {
	DefaultElasticity      float64            `json:"default_elasticity,omitempty"`
	ElasticityCoefficients map[string]float64 `json:"elasticity_coefficients,omitempty"`
	ShockClip              float64            `json:"shock_clip,omitempty"`
	DemandSpread           float64            `json:"demand_spread,omitempty"`
	ChaosProbability       float64            `json:"chaos_probability,omitempty"`
	ChaosMagnitudeRange    []float64          `json:"chaos_magnitude_range,omitempty"`
	PromoProbability       float64            `json:"promo_probability,omitempty"`
	PromoDepthRange        []float64          `json:"promo_depth_range,omitempty"`
}

// TaxRule is one step of the ordered tax cascade. When PerProduct is
// set the rate comes from the product's excise rate and Rate is ignored.
type TaxRule struct {
	Code       string  `json:"code,omitempty"`
	Base       string  `json:"base,omitempty"`
	Rate       float64 `json:"rate,omitempty"`
	PerProduct bool    `json:"per_product,omitempty"`
}

// MarginLayer is one step of the ordered margin waterfall.
type MarginLayer struct {
	Name string  `json:"name,omitempty"`
	Base string  `json:"base,omitempty"`
	Rate float64 `json:"rate,omitempty"`
}

// FinanceConfig holds the tax cascade and margin waterfall definitions.
type FinanceConfig struct {
	TaxRules     []TaxRule     `json:"tax_rules,omitempty"`
	MarginLayers []MarginLayer `json:"margin_layers,omitempty"`
}

// Stance parameterizes one projection scenario.
type Stance struct {
	Growth        float64 `json:"growth,omitempty"`
	VarianceScale float64 `json:"variance_scale,omitempty"`
}

// ProjectionConfig controls the forward Monte Carlo. GoalTarget zero
// means "derive from history" (1.05x the best historical year).
type ProjectionConfig struct {
	PathCount   int     `json:"path_count,omitempty"`
	GoalTarget  float64 `json:"goal_target,omitempty"`
	Optimistic  Stance  `json:"optimistic,omitempty"`
	Pessimistic Stance  `json:"pessimistic,omitempty"`
}

// RiskConfig controls the churn and stockout-concentration detectors.
type RiskConfig struct {
	ChurnWeights              map[string]float64 `json:"churn_weights,omitempty"`
	OOSConcentrationThreshold float64            `json:"oos_concentration_threshold,omitempty"`
}

// Default returns the baseline configuration: four historical years of
// a mid-size beverage distributor at the default tax and margin regime.
func Default() *RunConfig {
	return &RunConfig{
		Years:      4,
		GlobalSeed: 420,
		OutDir:     "out",
		Workers:    4,
		Catalog: CatalogConfig{
			Products:    40,
			Routes:      24,
			Customers:   600,
			Seasonality: defaultSeasonality(),
		},
		Simulation: SimulationConfig{
			DefaultElasticity:   0.25,
			ShockClip:           2.0,
			DemandSpread:        0.35,
			ChaosProbability:    0.03,
			ChaosMagnitudeRange: []float64{0.10, 0.35},
			PromoProbability:    0.08,
			PromoDepthRange:     []float64{0.05, 0.15},
		},
		Finance: FinanceConfig{
			TaxRules: []TaxRule{
				{Code: "ISC", Base: BaseGross, PerProduct: true},
				{Code: "ITBIS", Base: BaseNetOfPrior, Rate: 0.18},
			},
			MarginLayers: []MarginLayer{
				{Name: "logistics", Base: BaseGross, Rate: 0.08},
				{Name: "trade_discount", Base: BaseRemainder, Rate: 0.045},
				{Name: "channel_rebate", Base: BaseRemainder, Rate: 0.02},
			},
		},
		Projection: ProjectionConfig{
			PathCount:   2000,
			Optimistic:  Stance{Growth: 1.08, VarianceScale: 0.70},
			Pessimistic: Stance{Growth: 0.94, VarianceScale: 1.30},
		},
		Risk: RiskConfig{
			ChurnWeights: map[string]float64{
				FactorVolumeDecline: 0.45,
				FactorStockoutRate:  0.30,
				FactorMarginErosion: 0.25,
			},
			OOSConcentrationThreshold: 0.80,
		},
	}
}

func defaultSeasonality() []float64 {
	return []float64{0.80, 0.85, 1.00, 1.05, 1.05, 1.10, 1.20, 1.10, 0.95, 1.00, 1.05, 1.20}
}

// Load reads the run configuration. An empty path yields the defaults.
// Files are schema-checked before decoding, unknown keys are rejected,
// environment variables override scalar fields last.
func Load(path string) (*RunConfig, error) {
	// 1. Pick up a .env next to the binary, then the working directory.
	if exePath, err := os.Executable(); err == nil {
		envPath := filepath.Join(filepath.Dir(exePath), ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded environment from binary directory")
		}
	}
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory")
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &ConfigurationError{Field: "config", Reason: fmt.Sprintf("cannot read %s: %v", path, err)}
		}

		// 2. Structural check against the generated schema.
		var raw any
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, &ConfigurationError{Field: "config", Reason: fmt.Sprintf("invalid JSON in %s: %v", path, err)}
		}
		if err := validateRaw(raw); err != nil {
			return nil, &ConfigurationError{Field: "config", Reason: err.Error()}
		}

		// 3. Strict decode, then fill defaults for anything left at zero.
		var fileCfg RunConfig
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&fileCfg); err != nil {
			return nil, &ConfigurationError{Field: "config", Reason: fmt.Sprintf("cannot decode %s: %v", path, err)}
		}
		fileCfg.applyDefaults(raw)
		cfg = &fileCfg
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero-valued structural fields. The raw document
// is consulted for the probability fields where an explicit zero must
// survive (chaos and promo can legitimately be switched off).
func (c *RunConfig) applyDefaults(raw any) {
	def := Default()

	if c.Years == 0 {
		c.Years = def.Years
	}
	if c.GlobalSeed == 0 {
		c.GlobalSeed = def.GlobalSeed
	}
	if c.OutDir == "" {
		c.OutDir = def.OutDir
	}
	if c.Workers == 0 {
		c.Workers = def.Workers
	}

	if c.Catalog.Products == 0 {
		c.Catalog.Products = def.Catalog.Products
	}
	if c.Catalog.Routes == 0 {
		c.Catalog.Routes = def.Catalog.Routes
	}
	if c.Catalog.Customers == 0 {
		c.Catalog.Customers = def.Catalog.Customers
	}
	if c.Catalog.Seasonality == nil {
		c.Catalog.Seasonality = def.Catalog.Seasonality
	}

	if c.Simulation.DefaultElasticity == 0 && !rawHas(raw, "simulation", "default_elasticity") {
		c.Simulation.DefaultElasticity = def.Simulation.DefaultElasticity
	}
	if c.Simulation.ShockClip == 0 {
		c.Simulation.ShockClip = def.Simulation.ShockClip
	}
	if c.Simulation.DemandSpread == 0 && !rawHas(raw, "simulation", "demand_spread") {
		c.Simulation.DemandSpread = def.Simulation.DemandSpread
	}
	if c.Simulation.ChaosProbability == 0 && !rawHas(raw, "simulation", "chaos_probability") {
		c.Simulation.ChaosProbability = def.Simulation.ChaosProbability
	}
	if c.Simulation.ChaosMagnitudeRange == nil {
		c.Simulation.ChaosMagnitudeRange = def.Simulation.ChaosMagnitudeRange
	}
	if c.Simulation.PromoProbability == 0 && !rawHas(raw, "simulation", "promo_probability") {
		c.Simulation.PromoProbability = def.Simulation.PromoProbability
	}
	if c.Simulation.PromoDepthRange == nil {
		c.Simulation.PromoDepthRange = def.Simulation.PromoDepthRange
	}

	if c.Finance.TaxRules == nil {
		c.Finance.TaxRules = def.Finance.TaxRules
	}
	if c.Finance.MarginLayers == nil {
		c.Finance.MarginLayers = def.Finance.MarginLayers
	}

	if c.Projection.PathCount == 0 {
		c.Projection.PathCount = def.Projection.PathCount
	}
	if c.Projection.Optimistic == (Stance{}) {
		c.Projection.Optimistic = def.Projection.Optimistic
	}
	if c.Projection.Pessimistic == (Stance{}) {
		c.Projection.Pessimistic = def.Projection.Pessimistic
	}

	if c.Risk.ChurnWeights == nil {
		c.Risk.ChurnWeights = def.Risk.ChurnWeights
	}
	if c.Risk.OOSConcentrationThreshold == 0 {
		c.Risk.OOSConcentrationThreshold = def.Risk.OOSConcentrationThreshold
	}
}

// rawHas reports whether the decoded JSON document carries the given
// nested key path.
func rawHas(raw any, path ...string) bool {
	node, ok := raw.(map[string]any)
	if !ok {
		return false
	}
	for i, key := range path {
		val, present := node[key]
		if !present {
			return false
		}
		if i == len(path)-1 {
			return true
		}
		node, ok = val.(map[string]any)
		if !ok {
			return false
		}
	}
	return false
}

func (c *RunConfig) applyEnv() error {
	if v, ok := os.LookupEnv("FMCG_SIM_SEED"); ok {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return &ConfigurationError{Field: "FMCG_SIM_SEED", Reason: fmt.Sprintf("not an integer: %q", v)}
		}
		c.GlobalSeed = seed
	}
	if v, ok := os.LookupEnv("FMCG_SIM_YEARS"); ok {
		years, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigurationError{Field: "FMCG_SIM_YEARS", Reason: fmt.Sprintf("not an integer: %q", v)}
		}
		c.Years = years
	}
	if v, ok := os.LookupEnv("FMCG_SIM_OUT"); ok {
		c.OutDir = v
	}
	if v, ok := os.LookupEnv("FMCG_SIM_WORKERS"); ok {
		workers, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigurationError{Field: "FMCG_SIM_WORKERS", Reason: fmt.Sprintf("not an integer: %q", v)}
		}
		c.Workers = workers
	}
	return nil
}

// Validate checks every semantic constraint the schema cannot express.
// It returns the first violation as a ConfigurationError.
func (c *RunConfig) Validate() error {
	if c.Years < 1 || c.Years > 10 {
		return &ConfigurationError{Field: "years", Reason: fmt.Sprintf("must be between 1 and 10, got %d", c.Years)}
	}
	if c.OutDir == "" {
		return &ConfigurationError{Field: "out_dir", Reason: "must not be empty"}
	}
	if c.Workers < 1 || c.Workers > 64 {
		return &ConfigurationError{Field: "workers", Reason: fmt.Sprintf("must be between 1 and 64, got %d", c.Workers)}
	}

	if c.Catalog.Products < 1 {
		return &ConfigurationError{Field: "catalog.products", Reason: "must be at least 1"}
	}
	if c.Catalog.Routes < 1 {
		return &ConfigurationError{Field: "catalog.routes", Reason: "must be at least 1"}
	}
	if c.Catalog.Customers < 1 {
		return &ConfigurationError{Field: "catalog.customers", Reason: "must be at least 1"}
	}
	if len(c.Catalog.Seasonality) != 12 {
		return &ConfigurationError{Field: "catalog.seasonality", Reason: fmt.Sprintf("must hold 12 monthly factors, got %d", len(c.Catalog.Seasonality))}
	}
	for i, f := range c.Catalog.Seasonality {
		if f <= 0 {
			return &ConfigurationError{Field: "catalog.seasonality", Reason: fmt.Sprintf("month %d factor must be > 0, got %v", i+1, f)}
		}
	}

	if err := c.Simulation.validate(); err != nil {
		return err
	}
	if err := c.Finance.validate(); err != nil {
		return err
	}
	if err := c.Projection.validate(); err != nil {
		return err
	}
	return c.Risk.validate()
}

func (s *SimulationConfig) validate() error {
	if s.ShockClip <= 0 || s.ShockClip > 6 {
		return &ConfigurationError{Field: "simulation.shock_clip", Reason: fmt.Sprintf("must be in (0, 6], got %v", s.ShockClip)}
	}
	if s.DemandSpread < 0 || s.DemandSpread > 2 {
		return &ConfigurationError{Field: "simulation.demand_spread", Reason: fmt.Sprintf("must be in [0, 2], got %v", s.DemandSpread)}
	}
	if s.DefaultElasticity < 0 {
		return &ConfigurationError{Field: "simulation.default_elasticity", Reason: fmt.Sprintf("must be >= 0, got %v", s.DefaultElasticity)}
	}
	// Realized price is list * (1 - elasticity*shock); the product of
	// elasticity and clip must stay below 1 or prices can hit zero.
	if s.DefaultElasticity*s.ShockClip >= 1 {
		return &ConfigurationError{Field: "simulation.default_elasticity", Reason: fmt.Sprintf("elasticity times shock_clip must be < 1, got %v", s.DefaultElasticity*s.ShockClip)}
	}
	keys := make([]string, 0, len(s.ElasticityCoefficients))
	for id := range s.ElasticityCoefficients {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	for _, id := range keys {
		e := s.ElasticityCoefficients[id]
		if e < 0 {
			return &ConfigurationError{Field: "simulation.elasticity_coefficients." + id, Reason: fmt.Sprintf("must be >= 0, got %v", e)}
		}
		if e*s.ShockClip >= 1 {
			return &ConfigurationError{Field: "simulation.elasticity_coefficients." + id, Reason: fmt.Sprintf("elasticity times shock_clip must be < 1, got %v", e*s.ShockClip)}
		}
	}
	if s.ChaosProbability < 0 || s.ChaosProbability > 1 {
		return &ConfigurationError{Field: "simulation.chaos_probability", Reason: fmt.Sprintf("must be in [0, 1], got %v", s.ChaosProbability)}
	}
	if s.PromoProbability < 0 || s.PromoProbability > 1 {
		return &ConfigurationError{Field: "simulation.promo_probability", Reason: fmt.Sprintf("must be in [0, 1], got %v", s.PromoProbability)}
	}
	if err := validateRange("simulation.chaos_magnitude_range", s.ChaosMagnitudeRange); err != nil {
		return err
	}
	return validateRange("simulation.promo_depth_range", s.PromoDepthRange)
}

func validateRange(field string, r []float64) error {
	if len(r) != 2 {
		return &ConfigurationError{Field: field, Reason: fmt.Sprintf("must hold [low, high], got %d values", len(r))}
	}
	if r[0] < 0 || r[1] >= 1 || r[0] > r[1] {
		return &ConfigurationError{Field: field, Reason: fmt.Sprintf("must satisfy 0 <= low <= high < 1, got [%v, %v]", r[0], r[1])}
	}
	return nil
}

func (f *FinanceConfig) validate() error {
	codes := make(map[string]bool)
	for i, rule := range f.TaxRules {
		field := fmt.Sprintf("finance.tax_rules[%d]", i)
		if rule.Code == "" {
			return &ConfigurationError{Field: field, Reason: "code must not be empty"}
		}
		if codes[rule.Code] {
			return &ConfigurationError{Field: field, Reason: fmt.Sprintf("duplicate code %q", rule.Code)}
		}
		codes[rule.Code] = true
		if rule.Base != BaseGross && rule.Base != BaseNetOfPrior {
			return &ConfigurationError{Field: field, Reason: fmt.Sprintf("base must be %q or %q, got %q", BaseGross, BaseNetOfPrior, rule.Base)}
		}
		if rule.Rate < 0 || rule.Rate > 1 {
			return &ConfigurationError{Field: field, Reason: fmt.Sprintf("rate must be in [0, 1], got %v", rule.Rate)}
		}
	}
	names := make(map[string]bool)
	for i, layer := range f.MarginLayers {
		field := fmt.Sprintf("finance.margin_layers[%d]", i)
		if layer.Name == "" {
			return &ConfigurationError{Field: field, Reason: "name must not be empty"}
		}
		if names[layer.Name] {
			return &ConfigurationError{Field: field, Reason: fmt.Sprintf("duplicate name %q", layer.Name)}
		}
		names[layer.Name] = true
		if layer.Base != BaseGross && layer.Base != BaseRemainder {
			return &ConfigurationError{Field: field, Reason: fmt.Sprintf("base must be %q or %q, got %q", BaseGross, BaseRemainder, layer.Base)}
		}
		if layer.Rate < 0 || layer.Rate >= 1 {
			return &ConfigurationError{Field: field, Reason: fmt.Sprintf("rate must be in [0, 1), got %v", layer.Rate)}
		}
	}
	return nil
}

func (p *ProjectionConfig) validate() error {
	if p.PathCount < 1 || p.PathCount > 1_000_000 {
		return &ConfigurationError{Field: "projection.path_count", Reason: fmt.Sprintf("must be between 1 and 1000000, got %d", p.PathCount)}
	}
	if p.GoalTarget < 0 {
		return &ConfigurationError{Field: "projection.goal_target", Reason: fmt.Sprintf("must be >= 0 (zero derives it from history), got %v", p.GoalTarget)}
	}
	for _, st := range []struct {
		name   string
		stance Stance
	}{
		{"projection.optimistic", p.Optimistic},
		{"projection.pessimistic", p.Pessimistic},
	} {
		if st.stance.Growth <= 0 {
			return &ConfigurationError{Field: st.name + ".growth", Reason: fmt.Sprintf("must be > 0, got %v", st.stance.Growth)}
		}
		if st.stance.VarianceScale <= 0 {
			return &ConfigurationError{Field: st.name + ".variance_scale", Reason: fmt.Sprintf("must be > 0, got %v", st.stance.VarianceScale)}
		}
	}
	if p.Optimistic.Growth < p.Pessimistic.Growth {
		return &ConfigurationError{Field: "projection.optimistic.growth", Reason: fmt.Sprintf("must be >= pessimistic growth %v, got %v", p.Pessimistic.Growth, p.Optimistic.Growth)}
	}
	if p.Optimistic.VarianceScale > p.Pessimistic.VarianceScale {
		return &ConfigurationError{Field: "projection.optimistic.variance_scale", Reason: fmt.Sprintf("must be <= pessimistic variance_scale %v, got %v", p.Pessimistic.VarianceScale, p.Optimistic.VarianceScale)}
	}
	return nil
}

func (r *RiskConfig) validate() error {
	known := map[string]bool{
		FactorVolumeDecline: true,
		FactorStockoutRate:  true,
		FactorMarginErosion: true,
	}
	sum := 0.0
	keys := make([]string, 0, len(r.ChurnWeights))
	for name := range r.ChurnWeights {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	for _, name := range keys {
		w := r.ChurnWeights[name]
		if !known[name] {
			return &ConfigurationError{Field: "risk.churn_weights." + name, Reason: "unknown churn factor"}
		}
		if w < 0 {
			return &ConfigurationError{Field: "risk.churn_weights." + name, Reason: fmt.Sprintf("must be >= 0, got %v", w)}
		}
		sum += w
	}
	if sum <= 0 {
		return &ConfigurationError{Field: "risk.churn_weights", Reason: "weights must sum to a positive value"}
	}
	if r.OOSConcentrationThreshold <= 0 || r.OOSConcentrationThreshold > 1 {
		return &ConfigurationError{Field: "risk.oos_concentration_threshold", Reason: fmt.Sprintf("must be in (0, 1], got %v", r.OOSConcentrationThreshold)}
	}
	return nil
}

// Digest returns a stable content hash of the resolved configuration,
// recorded in the output manifest for reproducibility checks.
func (c *RunConfig) Digest() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
