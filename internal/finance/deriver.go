package finance

import (
	"github.com/shopspring/decimal"

	"fmcg-sim/internal/config"
	"fmcg-sim/internal/simulation"
)

// moneyPlaces is the fixed precision every monetary amount is rounded
// to as it is produced. Rounding at each step keeps the waterfall
// identity exact instead of accumulating float drift.
const moneyPlaces = 4

// ProductInfo resolves the financial attributes of a product.
type ProductInfo interface {
	UnitCost(id string) (decimal.Decimal, bool)
	ExciseRate(id string) (float64, bool)
}

// TaxAmount is one applied tax rule.
type TaxAmount struct {
	Code   string
	Amount decimal.Decimal
}

// LayerAmount is one applied margin layer.
type LayerAmount struct {
	Name   string
	Amount decimal.Decimal
}

// Record is the financial derivation of one transaction fact. The
// waterfall identity holds exactly:
//
//	gross - taxes - cost of goods - layers - net = 0
type Record struct {
	Ref          string
	Period       string
	ProductID    string
	RouteID      string
	CustomerID   string
	Volume       float64
	GrossRevenue decimal.Decimal
	Taxes        []TaxAmount
	TaxTotal     decimal.Decimal
	CostOfGoods  decimal.Decimal
	Layers       []LayerAmount
	NetMargin    decimal.Decimal
}

// Deriver applies the configured tax cascade and margin waterfall to
// facts. Derivation is pure: same fact in, same record out.
type Deriver struct {
	rules    []config.TaxRule
	layers   []config.MarginLayer
	products ProductInfo
}

// NewDeriver builds a deriver. The rules and layers are expected to be
// pre-validated configuration; order is preserved because compounding
// order is business-meaningful.
func NewDeriver(rules []config.TaxRule, layers []config.MarginLayer, products ProductInfo) *Deriver {
	return &Deriver{rules: rules, layers: layers, products: products}
}

// Derive turns one fact into its financial record.
func (d *Deriver) Derive(f simulation.Fact) (Record, error) {
	ref := f.Ref()
	if f.Volume < 0 {
		return Record{}, &DataIntegrityError{Ref: ref, Reason: "negative volume"}
	}

	volume := decimal.NewFromFloat(f.Volume)
	price := decimal.NewFromFloat(f.RealizedPrice)
	gross := volume.Mul(price).Round(moneyPlaces)
	if f.Volume > 0 && gross.Sign() <= 0 {
		return Record{}, &DataIntegrityError{Ref: ref, Reason: "non-positive gross revenue for positive volume"}
	}

	// 1. Tax cascade, in declared order. A net_of_prior base compounds
	// on the taxes applied before it.
	taxes := make([]TaxAmount, 0, len(d.rules))
	taxTotal := decimal.Zero
	for _, rule := range d.rules {
		rate := decimal.NewFromFloat(rule.Rate)
		if rule.PerProduct {
			excise, ok := d.products.ExciseRate(f.ProductID)
			if !ok {
				return Record{}, &DataIntegrityError{Ref: ref, Reason: "unknown product " + f.ProductID}
			}
			rate = decimal.NewFromFloat(excise)
		}
		base := gross
		if rule.Base == config.BaseNetOfPrior {
			base = gross.Sub(taxTotal)
		}
		amount := base.Mul(rate).Round(moneyPlaces)
		taxTotal = taxTotal.Add(amount)
		taxes = append(taxes, TaxAmount{Code: rule.Code, Amount: amount})
	}

	// 2. Cost of goods.
	unitCost, ok := d.products.UnitCost(f.ProductID)
	if !ok {
		return Record{}, &DataIntegrityError{Ref: ref, Reason: "unknown product " + f.ProductID}
	}
	cogs := volume.Mul(unitCost).Round(moneyPlaces)

	// 3. Margin waterfall. The remainder after the last layer is the
	// net margin, so the identity closes by construction.
	remainder := gross.Sub(taxTotal).Sub(cogs)
	layers := make([]LayerAmount, 0, len(d.layers))
	for _, layer := range d.layers {
		base := remainder
		if layer.Base == config.BaseGross {
			base = gross
		}
		amount := base.Mul(decimal.NewFromFloat(layer.Rate)).Round(moneyPlaces)
		remainder = remainder.Sub(amount)
		layers = append(layers, LayerAmount{Name: layer.Name, Amount: amount})
	}

	return Record{
		Ref:          ref,
		Period:       f.Period.Key(),
		ProductID:    f.ProductID,
		RouteID:      f.RouteID,
		CustomerID:   f.CustomerID,
		Volume:       f.Volume,
		GrossRevenue: gross,
		Taxes:        taxes,
		TaxTotal:     taxTotal,
		CostOfGoods:  cogs,
		Layers:       layers,
		NetMargin:    remainder,
	}, nil
}

// DeriveBatch derives a whole period's facts in order, stopping at the
// first integrity violation.
func (d *Deriver) DeriveBatch(facts []simulation.Fact) ([]Record, error) {
	records := make([]Record, 0, len(facts))
	for _, f := range facts {
		rec, err := d.Derive(f)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
