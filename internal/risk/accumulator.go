package risk

import (
	"fmcg-sim/internal/catalog"
)

// Signal entity and signal type names, as they appear in the output
// table.
const (
	EntityCustomer = "customer"
	EntityRoute    = "route"

	SignalChurnRisk        = "churn_risk"
	SignalOOSConcentration = "oos_concentration"
)

// Observation is the slice of one fact and its financial record that
// the detectors need. The pipeline feeds one batch per period.
type Observation struct {
	CustomerID string
	RouteID    string
	Volume     float64
	NetMargin  float64
	Stockout   bool
}

// Signal is one prioritized action signal.
type Signal struct {
	EntityID     string
	EntityType   string
	SignalType   string
	Score        float64
	PriorityRank int
	Factors      map[string]float64
}

// Accumulator folds per-period observations into bounded per-entity
// state: one metric row per customer per period and one stockout
// counter per route. It never holds raw facts.
type Accumulator struct {
	periods        []catalog.Period
	customers      map[string]*customerHistory
	routeStockouts map[string]int
	totalStockouts int
}

// customerHistory carries one slot per observed period.
type customerHistory struct {
	volume    []float64
	margin    []float64
	facts     []int
	stockouts []int
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		customers:      make(map[string]*customerHistory),
		routeStockouts: make(map[string]int),
	}
}

// ObservePeriod folds one period's observations in. Periods must be
// fed in calendar order, once each.
func (a *Accumulator) ObservePeriod(p catalog.Period, observations []Observation) {
	a.periods = append(a.periods, p)
	slot := len(a.periods) - 1

	for _, obs := range observations {
		hist, ok := a.customers[obs.CustomerID]
		if !ok {
			hist = &customerHistory{}
			a.customers[obs.CustomerID] = hist
		}
		hist.grow(len(a.periods))
		hist.volume[slot] += obs.Volume
		hist.margin[slot] += obs.NetMargin
		hist.facts[slot]++
		if obs.Stockout {
			hist.stockouts[slot]++
			a.routeStockouts[obs.RouteID]++
			a.totalStockouts++
		}
	}
}

// Periods returns how many periods have been observed.
func (a *Accumulator) Periods() int {
	return len(a.periods)
}

func (h *customerHistory) grow(n int) {
	for len(h.volume) < n {
		h.volume = append(h.volume, 0)
		h.margin = append(h.margin, 0)
		h.facts = append(h.facts, 0)
		h.stockouts = append(h.stockouts, 0)
	}
}
