package warehouse

import (
	"strings"

	"github.com/parquet-go/parquet-go"

	"fmcg-sim/internal/finance"
)

// FinancialColumns is the schema of the facts_financial table for one
// configuration: the fixed columns plus one column per tax code and
// one per margin layer. Rows are maps because the column set is not
// known until the configuration is.
type FinancialColumns struct {
	schema *parquet.Schema
	taxes  map[string]string
	layers map[string]string
}

// NewFinancialColumns builds the table schema from the configured tax
// codes and margin layer names.
func NewFinancialColumns(taxCodes, layerNames []string) *FinancialColumns {
	group := parquet.Group{
		"transaction_ref": parquet.String(),
		"period":          parquet.String(),
		"gross_revenue":   parquet.Leaf(parquet.DoubleType),
		"tax_total":       parquet.Leaf(parquet.DoubleType),
		"cost_of_goods":   parquet.Leaf(parquet.DoubleType),
		"net_margin":      parquet.Leaf(parquet.DoubleType),
	}

	taxes := make(map[string]string, len(taxCodes))
	for _, code := range taxCodes {
		col := TaxColumn(code)
		taxes[code] = col
		group[col] = parquet.Leaf(parquet.DoubleType)
	}
	layers := make(map[string]string, len(layerNames))
	for _, name := range layerNames {
		col := LayerColumn(name)
		layers[name] = col
		group[col] = parquet.Leaf(parquet.DoubleType)
	}

	return &FinancialColumns{
		schema: parquet.NewSchema(TableFinancial, group),
		taxes:  taxes,
		layers: layers,
	}
}

// Schema returns the parquet schema for the table.
func (c *FinancialColumns) Schema() *parquet.Schema {
	return c.schema
}

// Row flattens one derived record into a table row. Money leaves the
// decimal domain here, as float64, for the dashboard's benefit.
func (c *FinancialColumns) Row(rec finance.Record) map[string]any {
	row := map[string]any{
		"transaction_ref": rec.Ref,
		"period":          rec.Period,
		"gross_revenue":   rec.GrossRevenue.InexactFloat64(),
		"tax_total":       rec.TaxTotal.InexactFloat64(),
		"cost_of_goods":   rec.CostOfGoods.InexactFloat64(),
		"net_margin":      rec.NetMargin.InexactFloat64(),
	}
	for _, t := range rec.Taxes {
		row[c.taxes[t.Code]] = t.Amount.InexactFloat64()
	}
	for _, l := range rec.Layers {
		row[c.layers[l.Name]] = l.Amount.InexactFloat64()
	}
	return row
}

// TaxColumn names the column carrying one tax rule's amounts.
func TaxColumn(code string) string {
	return "tax_" + sanitizeColumn(code)
}

// LayerColumn names the column carrying one margin layer's amounts.
func LayerColumn(name string) string {
	return "margin_" + sanitizeColumn(name)
}

// sanitizeColumn lowercases a configured name and squashes anything a
// downstream SQL engine would choke on.
func sanitizeColumn(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
