package projection

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"fmcg-sim/internal/catalog"
	"fmcg-sim/internal/config"
	"fmcg-sim/internal/finance"
	"fmcg-sim/internal/stats"
)

// Stance names.
const (
	StanceOptimistic  = "optimistic"
	StancePessimistic = "pessimistic"
)

// InsufficientDataError reports that the projection input is empty or
// degenerate. It aborts the projection stage only; already-written
// simulation and financial outputs stay valid.
type InsufficientDataError struct {
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return "insufficient data for projection: " + e.Reason
}

// MonthSummary is the distribution of one projected month across all
// sampled paths.
type MonthSummary struct {
	Period catalog.Period
	Mean   float64
	P10    float64
	P90    float64
}

// StanceResult summarizes one stance's path distribution.
type StanceResult struct {
	Stance          string
	GoalProbability float64
	CumulativeMean  float64
	CumulativeP10   float64
	CumulativeP50   float64
	CumulativeP90   float64
	Months          []MonthSummary
}

// Outcome is the full projection: both stances against one goal.
type Outcome struct {
	GoalTarget  float64
	PathCount   int
	Optimistic  StanceResult
	Pessimistic StanceResult
}

// Project resamples historical period aggregates into the horizon
// year's net margin distribution, once per stance. Path i draws from a
// stream seeded by the global seed and the path index, and both stances
// consume the same draws, so stance comparisons are coupled and the
// result does not depend on worker count.
func Project(ctx context.Context, history []finance.PeriodAggregate, cfg config.ProjectionConfig, seed int64, workers int) (*Outcome, error) {
	if len(history) == 0 {
		return nil, &InsufficientDataError{Reason: "no historical financial records"}
	}

	// 1. Pool the historical net margins by calendar month.
	var pools [12][]float64
	degenerate := true
	for _, agg := range history {
		idx := int(agg.Period.Month) - 1
		if idx < 0 || idx > 11 {
			continue
		}
		v := agg.NetMargin.InexactFloat64()
		if v != 0 {
			degenerate = false
		}
		pools[idx] = append(pools[idx], v)
	}
	if degenerate {
		return nil, &InsufficientDataError{Reason: "historical net margin is zero everywhere"}
	}
	for m := 0; m < 12; m++ {
		if len(pools[m]) == 0 {
			return nil, &InsufficientDataError{Reason: fmt.Sprintf("no historical sample for month %02d", m+1)}
		}
	}

	means := make([]float64, 12)
	for m := range pools {
		means[m] = stats.Mean(pools[m])
	}

	goal := cfg.GoalTarget
	if goal == 0 {
		goal = 1.05 * bestYearTotal(history)
	}

	// 2. Sample the paths. Disjoint index ranges per worker write to
	// preallocated slices, so no locking and no order sensitivity.
	n := cfg.PathCount
	cumOpt := make([]float64, n)
	cumPess := make([]float64, n)
	monthOpt := make([][]float64, 12)
	monthPess := make([][]float64, 12)
	for m := 0; m < 12; m++ {
		monthOpt[m] = make([]float64, n)
		monthPess[m] = make([]float64, n)
	}

	if workers < 1 {
		workers = 1
	}
	eg, ctx := errgroup.WithContext(ctx)
	chunk := (n + workers - 1) / workers
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		eg.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				rng := rand.New(rand.NewSource(catalog.SubSeed(seed, "projection", strconv.Itoa(i))))
				for m := 0; m < 12; m++ {
					draw := pools[m][rng.Intn(len(pools[m]))]
					dev := draw - means[m]
					opt := cfg.Optimistic.Growth * (means[m] + dev*cfg.Optimistic.VarianceScale)
					pess := cfg.Pessimistic.Growth * (means[m] + dev*cfg.Pessimistic.VarianceScale)
					monthOpt[m][i] = opt
					monthPess[m][i] = pess
					cumOpt[i] += opt
					cumPess[i] += pess
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return &Outcome{
		GoalTarget:  goal,
		PathCount:   n,
		Optimistic:  summarize(StanceOptimistic, goal, cumOpt, monthOpt),
		Pessimistic: summarize(StancePessimistic, goal, cumPess, monthPess),
	}, nil
}

// bestYearTotal returns the largest yearly net margin sum in history.
func bestYearTotal(history []finance.PeriodAggregate) float64 {
	totals := make(map[int]float64)
	best := 0.0
	first := true
	for _, agg := range history {
		totals[agg.Period.Year] += agg.NetMargin.InexactFloat64()
	}
	for _, total := range totals {
		if first || total > best {
			best = total
			first = false
		}
	}
	return best
}

func summarize(stance string, goal float64, cum []float64, months [][]float64) StanceResult {
	met := 0
	for _, c := range cum {
		if c >= goal {
			met++
		}
	}
	result := StanceResult{
		Stance:          stance,
		GoalProbability: float64(met) / float64(len(cum)),
		CumulativeMean:  stats.Mean(cum),
		CumulativeP10:   stats.Percentile(cum, 0.10),
		CumulativeP50:   stats.Percentile(cum, 0.50),
		CumulativeP90:   stats.Percentile(cum, 0.90),
	}
	for m := 0; m < 12; m++ {
		result.Months = append(result.Months, MonthSummary{
			Period: catalog.Period{Year: catalog.HorizonYear, Month: time.Month(m + 1)},
			Mean:   stats.Mean(months[m]),
			P10:    stats.Percentile(months[m], 0.10),
			P90:    stats.Percentile(months[m], 0.90),
		})
	}
	return result
}
