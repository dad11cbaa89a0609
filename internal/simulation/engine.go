package simulation

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"fmcg-sim/internal/catalog"
	"fmcg-sim/internal/config"
)

// Engine generates transaction facts one period at a time. Every
// (period, product, route, customer) line draws from its own seeded
// stream, so periods can be produced in any order, on any number of
// workers, with identical results.
type Engine struct {
	cat        *catalog.Catalog
	cfg        config.SimulationConfig
	seed       int64
	routes     map[string]catalog.Route
	elasticity map[string]float64
}

// NewEngine validates the simulation config against the catalog and
// resolves per-product elasticity coefficients. It fails fast with a
// ConfigurationError before any generation starts.
func NewEngine(cat *catalog.Catalog, cfg config.SimulationConfig, seed int64) (*Engine, error) {
	// Create maps for fast lookup
	routes := make(map[string]catalog.Route, len(cat.Routes))
	for _, r := range cat.Routes {
		routes[r.ID] = r
	}
	for _, cust := range cat.Customers {
		if _, ok := routes[cust.RouteID]; !ok {
			return nil, &config.ConfigurationError{
				Field:  "catalog.routes",
				Reason: fmt.Sprintf("customer %s references unknown route %s", cust.ID, cust.RouteID),
			}
		}
	}

	elasticity := make(map[string]float64, len(cat.Products))
	for _, p := range cat.Products {
		elasticity[p.ID] = cfg.DefaultElasticity
	}
	overrides := make([]string, 0, len(cfg.ElasticityCoefficients))
	for id := range cfg.ElasticityCoefficients {
		overrides = append(overrides, id)
	}
	sort.Strings(overrides)
	for _, id := range overrides {
		if _, ok := elasticity[id]; !ok {
			return nil, &config.ConfigurationError{
				Field:  "simulation.elasticity_coefficients." + id,
				Reason: "unknown product id",
			}
		}
		elasticity[id] = cfg.ElasticityCoefficients[id]
	}

	return &Engine{
		cat:        cat,
		cfg:        cfg,
		seed:       seed,
		routes:     routes,
		elasticity: elasticity,
	}, nil
}

// Periods returns the historical calendar the engine generates over.
func (e *Engine) Periods() []catalog.Period {
	return e.cat.Calendar.Historical
}

// GeneratePeriod produces all facts for one period in catalog order
// (customers outer, products inner). It is pure: calling it twice, or
// out of calendar order, yields the same facts.
func (e *Engine) GeneratePeriod(p catalog.Period) []Fact {
	seasonal := e.cat.Calendar.Seasonal(p.Month)
	var facts []Fact
	for _, cust := range e.cat.Customers {
		route := e.routes[cust.RouteID]
		for _, prod := range e.cat.Products {
			if fact, ok := e.simulateLine(p, prod, route, cust, seasonal); ok {
				facts = append(facts, fact)
			}
		}
	}
	return facts
}

// simulateLine draws one transaction line. The draw order is fixed:
// eligibility, demand shock, chaos coin and its branch draws, then the
// promo coin and depth. Branches only depend on draws earlier in the
// same stream, which keeps every line reproducible in isolation.
func (e *Engine) simulateLine(p catalog.Period, prod catalog.Product, route catalog.Route, cust catalog.Customer, seasonal float64) (Fact, bool) {
	rng := rand.New(rand.NewSource(catalog.SubSeed(e.seed, "fact", p.Key(), prod.ID, route.ID, cust.ID)))

	// 1. Eligibility: is this line active this period?
	if rng.Float64() >= cust.ActivityRate {
		return Fact{}, false
	}

	// 2. One clipped standard-normal shock drives both volume and
	// price, which is what makes high-volume months low-margin ones.
	shock := clip(rng.NormFloat64(), e.cfg.ShockClip)

	volume := e.cat.BaseDemand(prod, route, cust) * seasonal * math.Exp(e.cfg.DemandSpread*shock)
	realized := applyElasticity(prod.ListPrice, e.elasticity[prod.ID], shock)

	fact := Fact{
		Period:     p,
		ProductID:  prod.ID,
		RouteID:    route.ID,
		CustomerID: cust.ID,
		ListPrice:  prod.ListPrice,
	}

	// 3. Chaos: a stockout zeroes the volume, a price shock caps it
	// and lifts the price.
	if rng.Float64() < e.cfg.ChaosProbability {
		fact.Chaos = true
		if rng.Float64() < 0.5 {
			fact.Stockout = true
			volume = 0
		} else {
			m := drawRange(rng, e.cfg.ChaosMagnitudeRange)
			realized *= 1 + m
			volume *= 1 - m
		}
	}

	// 4. Promo: a depth discount that lifts volume.
	if rng.Float64() < e.cfg.PromoProbability {
		d := drawRange(rng, e.cfg.PromoDepthRange)
		realized *= 1 - d
		volume *= 1 + d
		fact.Promo = true
	}

	fact.Volume = volume
	fact.RealizedPrice = realized
	return fact, true
}

// applyElasticity perturbs the list price by the demand shock. A
// positive shock (demand up) pushes the realized price down.
func applyElasticity(listPrice, elasticity, shock float64) float64 {
	return listPrice * (1 - elasticity*shock)
}

func clip(v, bound float64) float64 {
	if v > bound {
		return bound
	}
	if v < -bound {
		return -bound
	}
	return v
}

func drawRange(rng *rand.Rand, r []float64) float64 {
	if len(r) != 2 {
		return 0
	}
	return r[0] + rng.Float64()*(r[1]-r[0])
}
