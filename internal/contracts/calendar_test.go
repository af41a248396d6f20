package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPrevTradingDate_DomesticAndHK(t *testing.T) {
	tests := []struct {
		name string
		ref  time.Time
		want time.Time
	}{
		// 2026-08-26 is a Wednesday
		{"wednesday to tuesday", date(2026, 8, 26), date(2026, 8, 25)},
		// 2026-08-24 is a Monday; weekend skipped back to Friday
		{"monday to friday", date(2026, 8, 24), date(2026, 8, 21)},
		{"tuesday to monday", date(2026, 8, 25), date(2026, 8, 24)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PrevTradingDate(MarketDomestic, tt.ref))
			assert.Equal(t, tt.want, PrevTradingDate(MarketHK, tt.ref))
		})
	}
}

func TestPrevTradingDate_US(t *testing.T) {
	// Monday reference: prior US session closed 3 days back.
	assert.Equal(t, date(2026, 8, 21), PrevTradingDate(MarketUS, date(2026, 8, 24)))

	// Any other weekday: 1 day back.
	assert.Equal(t, date(2026, 8, 24), PrevTradingDate(MarketUS, date(2026, 8, 25)))
	assert.Equal(t, date(2026, 8, 27), PrevTradingDate(MarketUS, date(2026, 8, 28)))
}

func TestRankedSnapshot_TopN(t *testing.T) {
	snap := &RankedSnapshot{Rows: []RankedRow{
		{SectorRow: SectorRow{SectorName: "a"}, Rank: 1},
		{SectorRow: SectorRow{SectorName: "b"}, Rank: 2},
		{SectorRow: SectorRow{SectorName: "c"}, Rank: 3},
	}}

	assert.Len(t, snap.TopN(2), 2)
	assert.Len(t, snap.TopN(10), 3)
	assert.Nil(t, snap.TopN(0))

	names := snap.TopNames(2)
	assert.True(t, names["a"])
	assert.True(t, names["b"])
	assert.False(t, names["c"])

	assert.Equal(t, 3, snap.RankOf("c"))
	assert.Equal(t, 0, snap.RankOf("missing"))

	var nilSnap *RankedSnapshot
	assert.True(t, nilSnap.Empty())
	assert.Equal(t, 0, nilSnap.RankOf("a"))
}

func TestRotationSignal_PrevRankLabel(t *testing.T) {
	known := RotationSignal{SectorName: "Tech", PrevRank: 13, TopN: 10}
	assert.Equal(t, "#13", known.PrevRankLabel())

	unknown := RotationSignal{SectorName: "Energy", TopN: 10}
	assert.Equal(t, ">10", unknown.PrevRankLabel())
}
