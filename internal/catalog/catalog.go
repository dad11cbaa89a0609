package catalog

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/shopspring/decimal"

	"fmcg-sim/internal/config"
)

// Product is one sellable SKU. ListPrice feeds the stochastic pricing
// path as a float; UnitCost stays decimal because it only ever enters
// financial arithmetic.
type Product struct {
	ID           string
	Name         string
	Category     string
	Brand        string
	PackSize     string
	ListPrice    float64
	UnitCost     decimal.Decimal
	ExciseRate   float64
	DemandWeight float64
}

// Route is one delivery route anchored to a depot.
type Route struct {
	ID         string
	Zone       string
	DepotID    string
	ZoneFactor float64
}

// Customer is one point of sale served by a home route.
type Customer struct {
	ID           string
	Segment      string
	Channel      string
	RouteID      string
	BaseVolume   float64
	ActivityRate float64
}

// Catalog holds the generated master data and the simulated timeline.
type Catalog struct {
	Seed      int64
	Products  []Product
	Routes    []Route
	Customers []Customer
	Calendar  Calendar
}

// SubSeed derives a child seed from the global seed and a list of
// identifier parts using FNV-1a. Equal inputs always map to the same
// child seed, which is what keeps every draw stream independent of
// iteration order.
func SubSeed(seed int64, parts ...string) int64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(seed))
	h.Write(buf[:])
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return int64(h.Sum64())
}

// Generate builds the full catalog for a run. All randomness comes from
// a single child stream of the global seed, so the same seed and sizing
// always produce the same catalog.
func Generate(cfg config.CatalogConfig, years int, seed int64) (*Catalog, error) {
	if cfg.Products > len(productMaster) {
		return nil, &config.ConfigurationError{
			Field:  "catalog.products",
			Reason: fmt.Sprintf("must not exceed the %d master templates, got %d", len(productMaster), cfg.Products),
		}
	}

	rng := rand.New(rand.NewSource(SubSeed(seed, "catalog")))
	cat := &Catalog{
		Seed:     seed,
		Calendar: NewCalendar(years, cfg.Seasonality),
	}

	// 1. Products: take the first N templates and draw demand weights,
	// normalized so the portfolio shares sum to one.
	weights := make([]float64, cfg.Products)
	total := 0.0
	for i := range weights {
		weights[i] = 0.5 + rng.Float64()
		total += weights[i]
	}
	for i := 0; i < cfg.Products; i++ {
		tmpl := productMaster[i]
		cat.Products = append(cat.Products, Product{
			ID:           fmt.Sprintf("PRD-%03d", i+1),
			Name:         tmpl.Name,
			Category:     tmpl.Category,
			Brand:        tmpl.Brand,
			PackSize:     tmpl.PackSize,
			ListPrice:    tmpl.Price,
			UnitCost:     decimal.RequireFromString(tmpl.Cost),
			ExciseRate:   exciseByCategory[tmpl.Category],
			DemandWeight: weights[i] / total,
		})
	}

	// 2. Routes: spread across the macro-zones round-robin with a
	// jittered zone factor.
	for i := 0; i < cfg.Routes; i++ {
		zone := zoneMaster[i%len(zoneMaster)]
		cat.Routes = append(cat.Routes, Route{
			ID:         fmt.Sprintf("RUT-%03d", i+1),
			Zone:       zone.Zone,
			DepotID:    zone.Depot,
			ZoneFactor: zone.Factor * (0.90 + 0.20*rng.Float64()),
		})
	}

	// 3. Customers: segment and channel drawn from the master shares,
	// home route drawn uniformly.
	for i := 0; i < cfg.Customers; i++ {
		seg := segmentMaster[pickWeighted(rng, segmentShares())]
		chn := channelMaster[pickWeighted(rng, channelShares())]
		route := cat.Routes[rng.Intn(len(cat.Routes))]
		cat.Customers = append(cat.Customers, Customer{
			ID:           fmt.Sprintf("CLI-%04d", i+1),
			Segment:      seg.Code,
			Channel:      chn.Name,
			RouteID:      route.ID,
			BaseVolume:   seg.VolumeFactor * chn.VolumeFactor * 20.0 * (0.80 + 0.40*rng.Float64()),
			ActivityRate: seg.ActivityRate,
		})
	}

	return cat, nil
}

func segmentShares() []float64 {
	shares := make([]float64, len(segmentMaster))
	for i, s := range segmentMaster {
		shares[i] = s.Share
	}
	return shares
}

func channelShares() []float64 {
	shares := make([]float64, len(channelMaster))
	for i, c := range channelMaster {
		shares[i] = c.Share
	}
	return shares
}

// pickWeighted returns an index drawn proportionally to the weights.
func pickWeighted(rng *rand.Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := rng.Float64() * total
	cum := 0.0
	for i, w := range weights {
		cum += w
		if r < cum {
			return i
		}
	}
	return len(weights) - 1
}

// BaseDemand is the deterministic demand anchor for one (product,
// route, customer) line before seasonality and shocks apply.
func (c *Catalog) BaseDemand(p Product, r Route, cust Customer) float64 {
	return cust.BaseVolume * p.DemandWeight * r.ZoneFactor
}

// Product looks a product up by ID.
func (c *Catalog) Product(id string) (Product, bool) {
	for _, p := range c.Products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// Route looks a route up by ID.
func (c *Catalog) Route(id string) (Route, bool) {
	for _, r := range c.Routes {
		if r.ID == id {
			return r, true
		}
	}
	return Route{}, false
}

// UnitCost returns the plant cost per case for a product.
func (c *Catalog) UnitCost(id string) (decimal.Decimal, bool) {
	p, ok := c.Product(id)
	if !ok {
		return decimal.Decimal{}, false
	}
	return p.UnitCost, true
}

// ExciseRate returns the selective consumption tax rate for a product.
func (c *Catalog) ExciseRate(id string) (float64, bool) {
	p, ok := c.Product(id)
	if !ok {
		return 0, false
	}
	return p.ExciseRate, true
}
