package risk

import "sort"

// StockoutConcentration flags the minimal set of routes whose combined
// share of all stockout events reaches the threshold: a greedy prefix
// over routes sorted by share descending, route id ascending. A run
// with no stockouts produces no signals.
func (a *Accumulator) StockoutConcentration(threshold float64) []Signal {
	if a.totalStockouts == 0 {
		return nil
	}

	type routeShare struct {
		id    string
		count int
	}
	routes := make([]routeShare, 0, len(a.routeStockouts))
	for id, count := range a.routeStockouts {
		routes = append(routes, routeShare{id: id, count: count})
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].count != routes[j].count {
			return routes[i].count > routes[j].count
		}
		return routes[i].id < routes[j].id
	})

	total := float64(a.totalStockouts)
	var signals []Signal
	cumulativeCount := 0
	for _, r := range routes {
		cumulativeCount += r.count
		share := float64(r.count) / total
		cumulative := float64(cumulativeCount) / total
		signals = append(signals, Signal{
			EntityID:     r.id,
			EntityType:   EntityRoute,
			SignalType:   SignalOOSConcentration,
			Score:        share,
			PriorityRank: len(signals) + 1,
			Factors: map[string]float64{
				"stockout_share":   share,
				"stockout_events":  float64(r.count),
				"cumulative_share": cumulative,
			},
		})
		// Integer counts with a tiny tolerance so a threshold that is
		// exactly reachable does not slip past on float representation.
		if float64(cumulativeCount) >= threshold*total-1e-9 {
			break
		}
	}
	return signals
}
