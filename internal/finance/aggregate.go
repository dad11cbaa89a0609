package finance

import (
	"github.com/shopspring/decimal"

	"fmcg-sim/internal/catalog"
	"fmcg-sim/internal/simulation"
)

// PeriodAggregate is the financial rollup of one period, the unit the
// projection module resamples.
type PeriodAggregate struct {
	Period       catalog.Period
	Facts        int
	Volume       float64
	Stockouts    int
	GrossRevenue decimal.Decimal
	TaxTotal     decimal.Decimal
	CostOfGoods  decimal.Decimal
	NetMargin    decimal.Decimal
}

// NewPeriodAggregate returns an empty rollup for a period.
func NewPeriodAggregate(p catalog.Period) *PeriodAggregate {
	return &PeriodAggregate{Period: p}
}

// Add folds one fact and its derived record into the rollup.
func (a *PeriodAggregate) Add(f simulation.Fact, r Record) {
	a.Facts++
	a.Volume += f.Volume
	if f.Stockout {
		a.Stockouts++
	}
	a.GrossRevenue = a.GrossRevenue.Add(r.GrossRevenue)
	a.TaxTotal = a.TaxTotal.Add(r.TaxTotal)
	a.CostOfGoods = a.CostOfGoods.Add(r.CostOfGoods)
	a.NetMargin = a.NetMargin.Add(r.NetMargin)
}
