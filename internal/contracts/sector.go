package contracts

// SectorRow is one sector's observation for one trading day.
// SectorName is unique within a snapshot. NetInflow is signed: for the
// domestic market it is the provider's main net inflow in yuan; for the
// ETF-proxied markets it is estimated as price change times volume.
type SectorRow struct {
	SectorName string
	Market     Market
	NetInflow  float64
	ChangePct  float64
	Volume     int64  // optional
	Symbol     string // proxy ticker for ETF-based markets, optional
	ClosePrice float64
	TradeDate  string // YYYY-MM-DD
}

// RankedRow is a SectorRow annotated with its rank in a snapshot.
type RankedRow struct {
	SectorRow
	Rank int // 1-based, over the full sorted set
}

// RankedSnapshot is a sector table sorted descending by net inflow.
// Ranks are assigned over the full set before any truncation, so a
// row's Rank reflects its true position even beyond a top-N view.
type RankedSnapshot struct {
	Rows []RankedRow
}

// Empty reports whether the snapshot has no rows.
func (s *RankedSnapshot) Empty() bool {
	return s == nil || len(s.Rows) == 0
}

// TopN returns a view of the first n rows. The underlying snapshot is
// not mutated.
func (s *RankedSnapshot) TopN(n int) []RankedRow {
	if s == nil || n <= 0 {
		return nil
	}
	if n > len(s.Rows) {
		n = len(s.Rows)
	}
	return s.Rows[:n]
}

// TopNames returns the set of sector names ranked at or above n.
func (s *RankedSnapshot) TopNames(n int) map[string]bool {
	names := make(map[string]bool)
	for _, row := range s.TopN(n) {
		names[row.SectorName] = true
	}
	return names
}

// RankOf returns the rank of a sector in the full table, or 0 when the
// sector is absent.
func (s *RankedSnapshot) RankOf(sectorName string) int {
	if s == nil {
		return 0
	}
	for _, row := range s.Rows {
		if row.SectorName == sectorName {
			return row.Rank
		}
	}
	return 0
}
