package catalog

import (
	"fmt"
	"time"
)

// The historical window always ends in December 2025; the projection
// horizon is the twelve months of 2026.
const (
	HistoryEndYear = 2025
	HorizonYear    = 2026
)

// Period identifies one calendar month.
type Period struct {
	Year  int
	Month time.Month
}

// Key renders the period as YYYY-MM, the form used for partition names
// and seed derivation.
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Calendar holds the simulated timeline and the monthly demand factors.
type Calendar struct {
	Historical  []Period
	Horizon     []Period
	Seasonality []float64
}

// NewCalendar builds a calendar covering the given number of historical
// years. Seasonality must hold twelve factors, January first.
func NewCalendar(years int, seasonality []float64) Calendar {
	cal := Calendar{Seasonality: append([]float64(nil), seasonality...)}
	for y := HistoryEndYear - years + 1; y <= HistoryEndYear; y++ {
		for m := time.January; m <= time.December; m++ {
			cal.Historical = append(cal.Historical, Period{Year: y, Month: m})
		}
	}
	for m := time.January; m <= time.December; m++ {
		cal.Horizon = append(cal.Horizon, Period{Year: HorizonYear, Month: m})
	}
	return cal
}

// Seasonal returns the demand factor for a month, defaulting to 1.0
// when no factor is configured.
func (c Calendar) Seasonal(m time.Month) float64 {
	idx := int(m) - 1
	if idx < 0 || idx >= len(c.Seasonality) {
		return 1.0
	}
	return c.Seasonality[idx]
}
