package warehouse

import (
	"encoding/json"

	"fmcg-sim/internal/projection"
	"fmcg-sim/internal/risk"
	"fmcg-sim/internal/simulation"
)

// TransactionRow is one simulated fact in the facts_transactions table.
type TransactionRow struct {
	Period        string  `parquet:"period,dict"`
	ProductID     string  `parquet:"product_id,dict"`
	RouteID       string  `parquet:"route_id,dict"`
	CustomerID    string  `parquet:"customer_id,dict"`
	Volume        float64 `parquet:"volume"`
	ListPrice     float64 `parquet:"list_price"`
	RealizedPrice float64 `parquet:"realized_price"`
	Stockout      bool    `parquet:"stockout"`
	Promo         bool    `parquet:"promo"`
	Chaos         bool    `parquet:"chaos"`
}

// ProjectionRow is one (stance, period, metric) cell of the 2026
// projection table.
type ProjectionRow struct {
	Stance          string  `parquet:"stance,dict"`
	Period          string  `parquet:"period,dict"`
	AggregateMetric string  `parquet:"aggregate_metric,dict"`
	Value           float64 `parquet:"value"`
	GoalProbability float64 `parquet:"goal_probability"`
}

// RiskSignalRow is one prioritized signal in the facts_risk_signals
// table. ContributingFactors is the factor map serialized as JSON.
type RiskSignalRow struct {
	EntityID            string  `parquet:"entity_id,dict"`
	EntityType          string  `parquet:"entity_type,dict"`
	SignalType          string  `parquet:"signal_type,dict"`
	Score               float64 `parquet:"score"`
	PriorityRank        int32   `parquet:"priority_rank"`
	ContributingFactors string  `parquet:"contributing_factors"`
}

// Projection aggregate metric names.
const (
	MetricNetMarginMean = "net_margin_mean"
	MetricNetMarginP10  = "net_margin_p10"
	MetricNetMarginP90  = "net_margin_p90"
)

// TransactionRows converts one period's facts to table rows.
func TransactionRows(facts []simulation.Fact) []TransactionRow {
	rows := make([]TransactionRow, len(facts))
	for i, f := range facts {
		rows[i] = TransactionRow{
			Period:        f.Period.Key(),
			ProductID:     f.ProductID,
			RouteID:       f.RouteID,
			CustomerID:    f.CustomerID,
			Volume:        f.Volume,
			ListPrice:     f.ListPrice,
			RealizedPrice: f.RealizedPrice,
			Stockout:      f.Stockout,
			Promo:         f.Promo,
			Chaos:         f.Chaos,
		}
	}
	return rows
}

// ProjectionPartition is one period's slice of the projection table.
type ProjectionPartition struct {
	Period string
	Rows   []ProjectionRow
}

// ProjectionPartitions renders a projection outcome as per-period
// partitions, both stances side by side, in month order.
func ProjectionPartitions(o projection.Outcome) []ProjectionPartition {
	parts := make([]ProjectionPartition, 0, len(o.Optimistic.Months))
	for i := range o.Optimistic.Months {
		period := o.Optimistic.Months[i].Period.Key()
		rows := append(
			stanceRows(o.Optimistic, i),
			stanceRows(o.Pessimistic, i)...,
		)
		parts = append(parts, ProjectionPartition{Period: period, Rows: rows})
	}
	return parts
}

func stanceRows(s projection.StanceResult, month int) []ProjectionRow {
	m := s.Months[month]
	period := m.Period.Key()
	return []ProjectionRow{
		{Stance: s.Stance, Period: period, AggregateMetric: MetricNetMarginMean, Value: m.Mean, GoalProbability: s.GoalProbability},
		{Stance: s.Stance, Period: period, AggregateMetric: MetricNetMarginP10, Value: m.P10, GoalProbability: s.GoalProbability},
		{Stance: s.Stance, Period: period, AggregateMetric: MetricNetMarginP90, Value: m.P90, GoalProbability: s.GoalProbability},
	}
}

// RiskSignalRows converts detector output to table rows. The factor
// map serializes with sorted keys, so rows are deterministic.
func RiskSignalRows(signals []risk.Signal) ([]RiskSignalRow, error) {
	rows := make([]RiskSignalRow, len(signals))
	for i, s := range signals {
		factors, err := json.Marshal(s.Factors)
		if err != nil {
			return nil, err
		}
		rows[i] = RiskSignalRow{
			EntityID:            s.EntityID,
			EntityType:          s.EntityType,
			SignalType:          s.SignalType,
			Score:               s.Score,
			PriorityRank:        int32(s.PriorityRank),
			ContributingFactors: string(factors),
		}
	}
	return rows, nil
}
