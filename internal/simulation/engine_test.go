package simulation

import (
	"reflect"
	"testing"

	"fmcg-sim/internal/catalog"
	"fmcg-sim/internal/config"
)

func testSimConfig() config.SimulationConfig {
	return config.SimulationConfig{
		DefaultElasticity:   0.25,
		ShockClip:           2.0,
		DemandSpread:        0.35,
		ChaosProbability:    0.03,
		ChaosMagnitudeRange: []float64{0.10, 0.35},
		PromoProbability:    0.08,
		PromoDepthRange:     []float64{0.05, 0.15},
	}
}

func testEngine(t *testing.T, seed int64, mutate func(*config.SimulationConfig)) (*Engine, *catalog.Catalog) {
	t.Helper()
	cat, err := catalog.Generate(config.CatalogConfig{Products: 8, Routes: 4, Customers: 30}, 1, seed)
	if err != nil {
		t.Fatalf("catalog.Generate() returned error: %v", err)
	}
	cfg := testSimConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	eng, err := NewEngine(cat, cfg, seed)
	if err != nil {
		t.Fatalf("NewEngine() returned error: %v", err)
	}
	return eng, cat
}

func TestGeneratePeriodDeterministic(t *testing.T) {
	a, cat := testEngine(t, 42, nil)
	b, _ := testEngine(t, 42, nil)

	p := cat.Calendar.Historical[6]
	if !reflect.DeepEqual(a.GeneratePeriod(p), b.GeneratePeriod(p)) {
		t.Error("Expected identical facts for the same seed and period")
	}
}

func TestGeneratePeriodIndependentOfOrder(t *testing.T) {
	eng, cat := testEngine(t, 42, nil)
	p1 := cat.Calendar.Historical[0]
	p2 := cat.Calendar.Historical[11]

	// Generate out of calendar order, then in order.
	lateFirst := eng.GeneratePeriod(p2)
	earlySecond := eng.GeneratePeriod(p1)

	fresh, _ := testEngine(t, 42, nil)
	if !reflect.DeepEqual(fresh.GeneratePeriod(p1), earlySecond) {
		t.Error("Expected period facts to be independent of generation order")
	}
	if !reflect.DeepEqual(fresh.GeneratePeriod(p2), lateFirst) {
		t.Error("Expected period facts to be independent of generation order")
	}
}

func TestGeneratePeriodSeedSensitivity(t *testing.T) {
	a, cat := testEngine(t, 42, nil)
	b, _ := testEngine(t, 43, nil)

	p := cat.Calendar.Historical[3]
	if reflect.DeepEqual(a.GeneratePeriod(p), b.GeneratePeriod(p)) {
		t.Error("Expected differing seeds to produce differing facts")
	}
}

func TestApplyElasticityDirection(t *testing.T) {
	shocks := []float64{-2.0, -1.0, 0.0, 1.0, 2.0}
	prev := applyElasticity(100.0, 0.3, shocks[0])
	for _, shock := range shocks[1:] {
		got := applyElasticity(100.0, 0.3, shock)
		if got >= prev {
			t.Errorf("Expected realized price to strictly decrease with rising shock, got %v after %v", got, prev)
		}
		prev = got
	}

	if got := applyElasticity(100.0, 0, 1.5); got != 100.0 {
		t.Errorf("Expected zero elasticity to keep list price, got %v", got)
	}
}

func TestRealizedPriceWithinClipEnvelope(t *testing.T) {
	eng, cat := testEngine(t, 42, func(c *config.SimulationConfig) {
		c.ChaosProbability = 0
		c.PromoProbability = 0
	})

	for _, p := range cat.Calendar.Historical {
		for _, f := range eng.GeneratePeriod(p) {
			lo := f.ListPrice * (1 - 0.25*2.0)
			hi := f.ListPrice * (1 + 0.25*2.0)
			if f.RealizedPrice < lo-1e-9 || f.RealizedPrice > hi+1e-9 {
				t.Fatalf("Fact %s realized price %v outside [%v, %v]", f.Ref(), f.RealizedPrice, lo, hi)
			}
		}
	}
}

func TestChaosEventsShapeVolume(t *testing.T) {
	eng, cat := testEngine(t, 42, func(c *config.SimulationConfig) {
		c.ChaosProbability = 1.0
	})

	sawStockout := false
	sawPriceShock := false
	for _, f := range eng.GeneratePeriod(cat.Calendar.Historical[0]) {
		if !f.Chaos {
			t.Fatalf("Expected every fact to carry the chaos flag, %s does not", f.Ref())
		}
		if f.Stockout {
			sawStockout = true
			if f.Volume != 0 {
				t.Errorf("Stockout fact %s has volume %v, want 0", f.Ref(), f.Volume)
			}
		} else {
			sawPriceShock = true
			if f.Volume <= 0 {
				t.Errorf("Price-shock fact %s has volume %v, want > 0", f.Ref(), f.Volume)
			}
			if f.RealizedPrice <= 0 {
				t.Errorf("Price-shock fact %s has realized price %v, want > 0", f.Ref(), f.RealizedPrice)
			}
		}
	}
	if !sawStockout || !sawPriceShock {
		t.Errorf("Expected both chaos branches to occur, stockout=%v priceShock=%v", sawStockout, sawPriceShock)
	}
}

func TestPromoDiscountsPrice(t *testing.T) {
	eng, cat := testEngine(t, 42, func(c *config.SimulationConfig) {
		c.DefaultElasticity = 0
		c.ChaosProbability = 0
		c.PromoProbability = 1.0
	})

	for _, f := range eng.GeneratePeriod(cat.Calendar.Historical[0]) {
		if !f.Promo {
			t.Fatalf("Expected every fact to carry the promo flag, %s does not", f.Ref())
		}
		lo := f.ListPrice * (1 - 0.15)
		if f.RealizedPrice >= f.ListPrice || f.RealizedPrice < lo-1e-9 {
			t.Errorf("Promo fact %s realized price %v outside [%v, %v)", f.Ref(), f.RealizedPrice, lo, f.ListPrice)
		}
	}
}

func TestZeroActivityEmitsNothing(t *testing.T) {
	cat := &catalog.Catalog{
		Products: []catalog.Product{
			{ID: "PRD-001", Name: "Test 2L", Category: "csd", ListPrice: 90, DemandWeight: 1},
		},
		Routes: []catalog.Route{
			{ID: "RUT-001", Zone: "Ozama", DepotID: "CEDI-01", ZoneFactor: 1},
		},
		Customers: []catalog.Customer{
			{ID: "CLI-0001", Segment: "E", Channel: "colmado", RouteID: "RUT-001", BaseVolume: 10, ActivityRate: 0},
		},
		Calendar: catalog.NewCalendar(1, nil),
	}
	eng, err := NewEngine(cat, testSimConfig(), 42)
	if err != nil {
		t.Fatalf("NewEngine() returned error: %v", err)
	}

	for _, p := range cat.Calendar.Historical {
		if facts := eng.GeneratePeriod(p); len(facts) != 0 {
			t.Fatalf("Expected no facts for zero activity, got %d in %s", len(facts), p.Key())
		}
	}
}

func TestFactsReferenceCatalog(t *testing.T) {
	eng, cat := testEngine(t, 42, nil)

	for _, f := range eng.GeneratePeriod(cat.Calendar.Historical[5]) {
		if _, ok := cat.Product(f.ProductID); !ok {
			t.Errorf("Fact references unknown product %s", f.ProductID)
		}
		if _, ok := cat.Route(f.RouteID); !ok {
			t.Errorf("Fact references unknown route %s", f.RouteID)
		}
		if f.Volume < 0 {
			t.Errorf("Fact %s has negative volume %v", f.Ref(), f.Volume)
		}
		if f.RealizedPrice <= 0 {
			t.Errorf("Fact %s has non-positive realized price %v", f.Ref(), f.RealizedPrice)
		}
	}
}

func TestNewEngineRejectsUnknownProduct(t *testing.T) {
	cat, err := catalog.Generate(config.CatalogConfig{Products: 4, Routes: 2, Customers: 5}, 1, 42)
	if err != nil {
		t.Fatalf("catalog.Generate() returned error: %v", err)
	}
	cfg := testSimConfig()
	cfg.ElasticityCoefficients = map[string]float64{"PRD-999": 0.3}

	_, err = NewEngine(cat, cfg, 42)
	if err == nil {
		t.Fatal("Expected an error for unknown elasticity product, got nil")
	}
}

func TestFactRef(t *testing.T) {
	f := Fact{
		Period:     catalog.Period{Year: 2025, Month: 7},
		ProductID:  "PRD-001",
		RouteID:    "RUT-002",
		CustomerID: "CLI-0005",
	}
	if got := f.Ref(); got != "2025-07/PRD-001/RUT-002/CLI-0005" {
		t.Errorf("Ref() = %q, want \"2025-07/PRD-001/RUT-002/CLI-0005\"", got)
	}
}
