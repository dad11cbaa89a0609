package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"fmcg-sim/internal/catalog"
	"fmcg-sim/internal/config"
	"fmcg-sim/internal/finance"
	"fmcg-sim/internal/projection"
	"fmcg-sim/internal/risk"
	"fmcg-sim/internal/simulation"
	"fmcg-sim/internal/warehouse"
)

// Summary reports what one run produced.
type Summary struct {
	RunID      string
	OutDir     string
	Periods    int
	Facts      int
	Records    int
	Signals    int
	Elapsed    time.Duration
	Projection *projection.Outcome
}

// periodBatch is one period's output handed from a worker to the sink.
type periodBatch struct {
	facts   []simulation.Fact
	records []finance.Record
}

// Run executes the whole pipeline: catalog, historical simulation and
// financial derivation, risk detectors, the 2026 projection, and the
// warehouse output, driven entirely by the validated configuration.
//
// When the projection fails with InsufficientDataError the simulated
// tables and the manifest are still written; Run then returns that
// error alongside the summary of what completed.
func Run(ctx context.Context, cfg *config.RunConfig) (*Summary, error) {
	start := time.Now()

	// 1. Master data.
	cat, err := catalog.Generate(cfg.Catalog, cfg.Years, cfg.GlobalSeed)
	if err != nil {
		return nil, err
	}
	log.Info().
		Int("products", len(cat.Products)).
		Int("routes", len(cat.Routes)).
		Int("customers", len(cat.Customers)).
		Int("periods", len(cat.Calendar.Historical)).
		Msg("Catalog generated")

	// 2. Stages that can reject the configuration, before any output.
	engine, err := simulation.NewEngine(cat, cfg.Simulation, cfg.GlobalSeed)
	if err != nil {
		return nil, err
	}
	deriver := finance.NewDeriver(cfg.Finance.TaxRules, cfg.Finance.MarginLayers, cat)
	cols := warehouse.NewFinancialColumns(taxCodes(cfg.Finance.TaxRules), layerNames(cfg.Finance.MarginLayers))

	wh, err := warehouse.Open(cfg.OutDir)
	if err != nil {
		return nil, err
	}

	// 3. Historical periods: workers generate and derive out of order,
	// the sink consumes strictly in calendar order. The semaphore is
	// released only when the sink consumes a period, so at most
	// cfg.Workers periods of facts are in flight at once.
	periods := engine.Periods()
	results := make([]chan periodBatch, len(periods))
	for i := range results {
		results[i] = make(chan periodBatch, 1)
	}
	sem := make(chan struct{}, cfg.Workers)

	accumulator := risk.NewAccumulator()
	aggregates := make([]finance.PeriodAggregate, 0, len(periods))
	totalFacts := 0

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for i, p := range periods {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			g.Go(func() error {
				facts := engine.GeneratePeriod(p)
				records, err := deriver.DeriveBatch(facts)
				if err != nil {
					return err
				}
				select {
				case results[i] <- periodBatch{facts: facts, records: records}:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
		return nil
	})

	g.Go(func() error {
		for i, p := range periods {
			var batch periodBatch
			select {
			case batch = <-results[i]:
			case <-gctx.Done():
				return gctx.Err()
			}
			<-sem

			if err := wh.WriteTransactions(p, warehouse.TransactionRows(batch.facts)); err != nil {
				return err
			}
			rows := make([]map[string]any, len(batch.records))
			for j, rec := range batch.records {
				rows[j] = cols.Row(rec)
			}
			if err := wh.WriteFinancial(p, cols, rows); err != nil {
				return err
			}

			agg := finance.NewPeriodAggregate(p)
			observations := make([]risk.Observation, len(batch.facts))
			for j := range batch.facts {
				agg.Add(batch.facts[j], batch.records[j])
				observations[j] = risk.Observation{
					CustomerID: batch.facts[j].CustomerID,
					RouteID:    batch.facts[j].RouteID,
					Volume:     batch.facts[j].Volume,
					NetMargin:  batch.records[j].NetMargin.InexactFloat64(),
					Stockout:   batch.facts[j].Stockout,
				}
			}
			aggregates = append(aggregates, *agg)
			accumulator.ObservePeriod(p, observations)
			totalFacts += len(batch.facts)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Info().Int("facts", totalFacts).Int("periods", len(periods)).Msg("Historical simulation complete")

	// 4. Detectors over the accumulated window.
	signals := accumulator.ChurnSignals(cfg.Risk.ChurnWeights)
	signals = append(signals, accumulator.StockoutConcentration(cfg.Risk.OOSConcentrationThreshold)...)
	signalRows, err := warehouse.RiskSignalRows(signals)
	if err != nil {
		return nil, fmt.Errorf("failed to encode risk signals: %w", err)
	}
	if err := wh.WriteRiskSignals(signalRows); err != nil {
		return nil, err
	}
	log.Info().Int("signals", len(signals)).Msg("Risk detectors complete")

	summary := &Summary{
		RunID:   runID(cfg),
		OutDir:  cfg.OutDir,
		Periods: len(periods),
		Facts:   totalFacts,
		Records: totalFacts,
		Signals: len(signals),
	}

	// 5. Horizon projection. Thin history aborts only this stage; the
	// tables already written stay valid and the manifest records them.
	outcome, projErr := projection.Project(ctx, aggregates, cfg.Projection, cfg.GlobalSeed, cfg.Workers)
	var insufficient *projection.InsufficientDataError
	if errors.As(projErr, &insufficient) {
		log.Warn().Str("reason", insufficient.Reason).Msg("Projection skipped")
		if err := wh.WriteManifest(wh.Manifest(summary.RunID, cfg.GlobalSeed, cfg.Digest())); err != nil {
			return nil, err
		}
		summary.Elapsed = time.Since(start)
		return summary, projErr
	}
	if projErr != nil {
		return nil, projErr
	}
	for _, part := range warehouse.ProjectionPartitions(*outcome) {
		if err := wh.WriteProjection(part.Period, part.Rows); err != nil {
			return nil, err
		}
	}
	summary.Projection = outcome
	log.Info().
		Float64("goal", outcome.GoalTarget).
		Int("paths", outcome.PathCount).
		Float64("p_goal_optimistic", outcome.Optimistic.GoalProbability).
		Float64("p_goal_pessimistic", outcome.Pessimistic.GoalProbability).
		Msg("Projection complete")

	// 6. The manifest is written last; its presence marks the run valid.
	if err := wh.WriteManifest(wh.Manifest(summary.RunID, cfg.GlobalSeed, cfg.Digest())); err != nil {
		return nil, err
	}

	summary.Elapsed = time.Since(start)
	log.Info().
		Str("run_id", summary.RunID).
		Str("out", summary.OutDir).
		Int("facts", summary.Facts).
		Int("signals", summary.Signals).
		Dur("elapsed", summary.Elapsed).
		Msg("Run complete")
	return summary, nil
}

// runID names a run deterministically from its inputs, so reruns of
// the same configuration and seed are recognizably the same dataset.
func runID(cfg *config.RunConfig) string {
	key := fmt.Sprintf("%s|%d", cfg.Digest(), cfg.GlobalSeed)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

func taxCodes(rules []config.TaxRule) []string {
	codes := make([]string, len(rules))
	for i, r := range rules {
		codes[i] = r.Code
	}
	return codes
}

func layerNames(layers []config.MarginLayer) []string {
	names := make([]string, len(layers))
	for i, l := range layers {
		names[i] = l.Name
	}
	return names
}
