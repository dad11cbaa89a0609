package simulation

import (
	"fmt"

	"fmcg-sim/internal/catalog"
)

// Fact is one simulated transaction line: what one customer bought of
// one product on one route in one period, with the operational events
// that hit it.
type Fact struct {
	Period        catalog.Period
	ProductID     string
	RouteID       string
	CustomerID    string
	Volume        float64
	ListPrice     float64
	RealizedPrice float64
	Stockout      bool
	Promo         bool
	Chaos         bool
}

// Ref is the stable identifier tying a financial record back to its
// fact.
func (f Fact) Ref() string {
	return fmt.Sprintf("%s/%s/%s/%s", f.Period.Key(), f.ProductID, f.RouteID, f.CustomerID)
}
