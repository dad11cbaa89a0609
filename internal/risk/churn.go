package risk

import (
	"sort"

	"fmcg-sim/internal/config"
	"fmcg-sim/internal/stats"
)

// ChurnSignals scores every customer on how much worse the late half of
// the run looks than the early half: per-period volume decline, rising
// stockout frequency, and margin-per-case erosion. Weights come from
// configuration and are normalized to sum to one, so every score lands
// in [0, 1]. Output is ranked by score descending, customer id
// ascending.
func (a *Accumulator) ChurnSignals(weights map[string]float64) []Signal {
	n := len(a.periods)
	if n < 2 {
		return nil
	}
	half := n / 2

	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return nil
	}
	wVolume := weights[config.FactorVolumeDecline] / sum
	wStockout := weights[config.FactorStockoutRate] / sum
	wMargin := weights[config.FactorMarginErosion] / sum

	var signals []Signal
	for id, hist := range a.customers {
		if total(hist.facts) == 0 {
			continue
		}

		early := window{
			periods:   half,
			volume:    sumRange(hist.volume, 0, half),
			margin:    sumRange(hist.margin, 0, half),
			facts:     sumRangeInt(hist.facts, 0, half),
			stockouts: sumRangeInt(hist.stockouts, 0, half),
		}
		late := window{
			periods:   n - half,
			volume:    sumRange(hist.volume, half, n),
			margin:    sumRange(hist.margin, half, n),
			facts:     sumRangeInt(hist.facts, half, n),
			stockouts: sumRangeInt(hist.stockouts, half, n),
		}

		decline := volumeDecline(early, late)
		rise := stockoutRise(early, late)
		erosion := marginErosion(early, late)

		contributions := map[string]float64{
			config.FactorVolumeDecline: wVolume * decline,
			config.FactorStockoutRate:  wStockout * rise,
			config.FactorMarginErosion: wMargin * erosion,
		}
		signals = append(signals, Signal{
			EntityID:   id,
			EntityType: EntityCustomer,
			SignalType: SignalChurnRisk,
			Score:      contributions[config.FactorVolumeDecline] + contributions[config.FactorStockoutRate] + contributions[config.FactorMarginErosion],
			Factors:    contributions,
		})
	}

	sort.Slice(signals, func(i, j int) bool {
		if signals[i].Score != signals[j].Score {
			return signals[i].Score > signals[j].Score
		}
		return signals[i].EntityID < signals[j].EntityID
	})
	for i := range signals {
		signals[i].PriorityRank = i + 1
	}
	return signals
}

// window is one half of a customer's observed run.
type window struct {
	periods   int
	volume    float64
	margin    float64
	facts     int
	stockouts int
}

// volumeDecline compares per-period volume rates. A customer with no
// early baseline cannot be declining.
func volumeDecline(early, late window) float64 {
	earlyRate := early.volume / float64(early.periods)
	if earlyRate <= 0 {
		return 0
	}
	lateRate := late.volume / float64(late.periods)
	return stats.Clamp01((earlyRate - lateRate) / earlyRate)
}

// stockoutRise compares the share of facts flagged as stockouts.
func stockoutRise(early, late window) float64 {
	earlyRate := 0.0
	if early.facts > 0 {
		earlyRate = float64(early.stockouts) / float64(early.facts)
	}
	lateRate := 0.0
	if late.facts > 0 {
		lateRate = float64(late.stockouts) / float64(late.facts)
	}
	return stats.Clamp01(lateRate - earlyRate)
}

// marginErosion compares margin per case. A collapse to zero volume
// counts as full erosion through the zero late rate.
func marginErosion(early, late window) float64 {
	earlyPerCase := 0.0
	if early.volume > 0 {
		earlyPerCase = early.margin / early.volume
	}
	if earlyPerCase <= 0 {
		return 0
	}
	latePerCase := 0.0
	if late.volume > 0 {
		latePerCase = late.margin / late.volume
	}
	return stats.Clamp01((earlyPerCase - latePerCase) / earlyPerCase)
}

func total(values []int) int {
	t := 0
	for _, v := range values {
		t += v
	}
	return t
}

func sumRange(values []float64, from, to int) float64 {
	s := 0.0
	for i := from; i < to && i < len(values); i++ {
		s += values[i]
	}
	return s
}

func sumRangeInt(values []int, from, to int) int {
	s := 0
	for i := from; i < to && i < len(values); i++ {
		s += values[i]
	}
	return s
}
