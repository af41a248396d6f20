package analysis

import (
	"sort"

	"github.com/mwjiang/sectorflow/internal/contracts"
)

// Trend scoring policy. The weights, the normalization divisor and the
// direction thresholds are tunable constants; changing them changes the
// score scale relative to historical reports.
const (
	trendWeightAvg         = 40.0
	trendWeightConsistency = 30.0
	trendWeightMomentum    = 30.0

	// inflowNormalizer maps a daily net inflow of one hundred million
	// currency units to a full-strength contribution.
	inflowNormalizer = 1e8

	// Direction cutoffs on the [-100, 100] score.
	trendUpThreshold   = 20.0
	trendDownThreshold = -20.0
)

// TrendStrength scores a sector's recent inflow trend over the last
// windowDays observations in history. Fewer than two valid data points
// yield a neutral result with a Reason set, never an error, so batch
// callers can skip degraded sectors.
func (e *Engine) TrendStrength(history []contracts.SectorRow, sectorName string, windowDays int) contracts.TrendResult {
	var sectorRows []contracts.SectorRow
	for _, row := range history {
		if row.SectorName == sectorName {
			sectorRows = append(sectorRows, row)
		}
	}

	if len(sectorRows) == 0 {
		return contracts.TrendResult{Direction: "neutral", Reason: "no data for sector " + sectorName}
	}

	// Most recent first. TradeDate is YYYY-MM-DD so the lexicographic
	// order is the chronological order.
	sort.SliceStable(sectorRows, func(i, j int) bool {
		return sectorRows[i].TradeDate > sectorRows[j].TradeDate
	})

	if windowDays > 0 && len(sectorRows) > windowDays {
		sectorRows = sectorRows[:windowDays]
	}

	if len(sectorRows) < 2 {
		return contracts.TrendResult{
			Direction:  "neutral",
			DataPoints: len(sectorRows),
			Reason:     "insufficient data points for trend",
		}
	}

	inflows := make([]float64, len(sectorRows))
	for i, row := range sectorRows {
		inflows[i] = row.NetInflow
	}

	avg := mean(inflows)

	positive := 0
	for _, v := range inflows {
		if v > 0 {
			positive++
		}
	}
	consistency := float64(positive) / float64(len(inflows))

	// Momentum compares the early half of the window against the
	// recent half. The first (recent) half gets windowDays/2 rows.
	var momentum float64
	mid := len(inflows) / 2
	if mid > 0 {
		firstHalf := mean(inflows[:mid])
		secondHalf := mean(inflows[mid:])
		if firstHalf != 0 {
			momentum = secondHalf - firstHalf
		}
	}

	avgNorm := clamp(avg/inflowNormalizer, -1, 1)
	consistencyScore := (consistency - 0.5) * 2
	momentumNorm := clamp(momentum/inflowNormalizer, -1, 1)

	score := avgNorm*trendWeightAvg + consistencyScore*trendWeightConsistency + momentumNorm*trendWeightMomentum
	score = clamp(score, -100, 100)

	direction := "neutral"
	switch {
	case score > trendUpThreshold:
		direction = "up"
	case score < trendDownThreshold:
		direction = "down"
	}

	return contracts.TrendResult{
		Score:       score,
		Direction:   direction,
		AvgInflow:   avg,
		Consistency: consistency,
		Momentum:    momentum,
		DataPoints:  len(inflows),
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
