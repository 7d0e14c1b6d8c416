// Package stats derives display metrics from analytics rows.
package stats

import (
	"fmt"

	"github.com/ramonehamilton/snap-companion/internal/storage/models"
)

// NotAvailable is shown for undefined averages.
const NotAvailable = "N/A"

// FormatOptional renders v with two decimals, or N/A when nil.
func FormatOptional(v *float64) string {
	if v == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%.2f", *v)
}

// FormatPercent renders a percentage with one decimal, or N/A when nil.
func FormatPercent(v *float64) string {
	if v == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%.1f%%", *v)
}

// Ratio returns num/den as a percentage, or nil when den is zero.
func Ratio(num, den int) *float64 {
	if den == 0 {
		return nil
	}
	v := float64(num) / float64(den) * 100
	return &v
}

// FormatDelta renders a signed cube delta such as "+1.25" or "-0.50".
func FormatDelta(v float64) string {
	return fmt.Sprintf("%+.2f", v)
}

// CumulativePoint is a trend bucket with its running cube total.
type CumulativePoint struct {
	*models.TrendPoint
	CumulativeCubes int
}

// Cumulative prefix-sums net cubes over points in order.
func Cumulative(points []*models.TrendPoint) []CumulativePoint {
	out := make([]CumulativePoint, len(points))
	total := 0
	for i, p := range points {
		total += p.NetCubes
		out[i] = CumulativePoint{TrendPoint: p, CumulativeCubes: total}
	}
	return out
}

// Totals sums a set of deck rows into one overall row.
func Totals(decks []*models.DeckPerformance) models.DeckPerformance {
	var total models.DeckPerformance
	total.DeckName = "All Decks"
	for _, d := range decks {
		total.Games += d.Games
		total.Wins += d.Wins
		total.Losses += d.Losses
		total.Ties += d.Ties
		total.NetCubes += d.NetCubes
	}
	return total
}
