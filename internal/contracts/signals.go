package contracts

import "fmt"

// RotationSignal marks a sector that entered today's top-N after being
// outside yesterday's top-N.
type RotationSignal struct {
	SectorName string
	// PrevRank is the sector's rank in yesterday's full ranked table,
	// or 0 when it was absent entirely.
	PrevRank int
	// TopN is the cutoff the signal was computed against.
	TopN int
	// SignalType names the event, e.g. "entered_top_10".
	SignalType string
}

// PrevRankLabel renders the previous rank for display: "#3" when known,
// ">10" when the sector was not in yesterday's table at all.
func (s RotationSignal) PrevRankLabel() string {
	if s.PrevRank > 0 {
		return fmt.Sprintf("#%d", s.PrevRank)
	}
	return fmt.Sprintf(">%d", s.TopN)
}

// TrendResult is the outcome of trend-strength scoring for one sector
// over a recent window.
type TrendResult struct {
	Score       float64 // -100 .. 100
	Direction   string  // "up", "down" or "neutral"
	AvgInflow   float64
	Consistency float64 // fraction of days with positive inflow
	Momentum    float64 // recent-half mean minus early-half mean
	DataPoints  int
	// Reason is set when the result is degraded (too few data points,
	// unknown sector) instead of returning an error, so batch callers
	// can skip gracefully.
	Reason string
}
