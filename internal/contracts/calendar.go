package contracts

import "time"

// PrevTradingDate returns the most recent date before ref on which the
// market was open.
//
// Domestic and HK walk back day by day skipping weekends. The US market
// closes after domestic midnight, so this system's "today" is already
// the morning after the US close: a Monday reference maps to the
// preceding Friday, any other weekday maps to one day back.
//
// This is a weekend-only heuristic; market holidays are not modeled.
func PrevTradingDate(m Market, ref time.Time) time.Time {
	if m == MarketUS {
		if ref.Weekday() == time.Monday {
			return ref.AddDate(0, 0, -3)
		}
		return ref.AddDate(0, 0, -1)
	}

	// Bounded walk so malformed input cannot loop forever.
	for i := 1; i <= 9; i++ {
		prev := ref.AddDate(0, 0, -i)
		if prev.Weekday() != time.Saturday && prev.Weekday() != time.Sunday {
			return prev
		}
	}
	return ref.AddDate(0, 0, -1)
}
