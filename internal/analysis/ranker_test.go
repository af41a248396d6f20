package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwjiang/sectorflow/internal/contracts"
	"github.com/mwjiang/sectorflow/pkg/logger"
)

func newTestEngine() *Engine {
	return NewEngine(logger.NewNop())
}

func rows(pairs ...interface{}) []contracts.SectorRow {
	var out []contracts.SectorRow
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, contracts.SectorRow{
			SectorName: pairs[i].(string),
			NetInflow:  pairs[i+1].(float64),
		})
	}
	return out
}

func TestRankByInflow_SortsDescending(t *testing.T) {
	e := newTestEngine()

	ranked := e.RankByInflow(rows("low", 10.0, "high", 100.0, "mid", 50.0), 10)
	require.Len(t, ranked.Rows, 3)

	assert.Equal(t, "high", ranked.Rows[0].SectorName)
	assert.Equal(t, 1, ranked.Rows[0].Rank)
	assert.Equal(t, "mid", ranked.Rows[1].SectorName)
	assert.Equal(t, 2, ranked.Rows[1].Rank)
	assert.Equal(t, "low", ranked.Rows[2].SectorName)
	assert.Equal(t, 3, ranked.Rows[2].Rank)
}

func TestRankByInflow_StableTieBreak(t *testing.T) {
	e := newTestEngine()

	// A and B tie; they must keep their relative input order.
	ranked := e.RankByInflow(rows("A", 100.0, "B", 100.0, "C", 50.0), 10)
	require.Len(t, ranked.Rows, 3)

	assert.Equal(t, "A", ranked.Rows[0].SectorName)
	assert.Equal(t, 1, ranked.Rows[0].Rank)
	assert.Equal(t, "B", ranked.Rows[1].SectorName)
	assert.Equal(t, 2, ranked.Rows[1].Rank)
	assert.Equal(t, "C", ranked.Rows[2].SectorName)
	assert.Equal(t, 3, ranked.Rows[2].Rank)
}

func TestRankByInflow_TopNTruncatesView(t *testing.T) {
	e := newTestEngine()

	ranked := e.RankByInflow(rows("a", 4.0, "b", 3.0, "c", 2.0, "d", 1.0), 2)
	require.Len(t, ranked.Rows, 2)
	assert.Equal(t, "a", ranked.Rows[0].SectorName)
	assert.Equal(t, "b", ranked.Rows[1].SectorName)

	// topN <= 0 means the full table.
	full := e.RankByInflow(rows("a", 4.0, "b", 3.0, "c", 2.0), 0)
	assert.Len(t, full.Rows, 3)
}

func TestRankByInflow_EmptyInputSafety(t *testing.T) {
	e := newTestEngine()

	assert.True(t, e.RankByInflow(nil, 10).Empty())
	assert.True(t, e.RankByInflow([]contracts.SectorRow{}, 10).Empty())
}

func TestDetectRotation_NewEntrants(t *testing.T) {
	e := newTestEngine()

	today := e.RankByInflow(rows("A", 100.0, "B", 90.0, "C", 80.0, "D", 70.0), 4)
	yesterday := e.RankByInflow(rows("B", 100.0, "C", 90.0, "E", 80.0, "F", 70.0), 4)

	signals := e.DetectRotation(today, yesterday, 4)
	require.Len(t, signals, 2)

	byName := map[string]contracts.RotationSignal{}
	for _, s := range signals {
		byName[s.SectorName] = s
	}

	a, ok := byName["A"]
	require.True(t, ok, "A entered the top ranks")
	assert.Equal(t, ">4", a.PrevRankLabel())

	d, ok := byName["D"]
	require.True(t, ok, "D entered the top ranks")
	assert.Equal(t, ">4", d.PrevRankLabel())

	assert.NotContains(t, byName, "B")
	assert.NotContains(t, byName, "C")
}

func TestDetectRotation_PrevRankFromFullTable(t *testing.T) {
	e := newTestEngine()

	// Yesterday's table is ranked to top-20; Tech sat at rank 13.
	var yRows []contracts.SectorRow
	for i := 0; i < 20; i++ {
		name := string(rune('a' + i))
		yRows = append(yRows, contracts.SectorRow{SectorName: name, NetInflow: float64(100 - i)})
	}
	yRows[12].SectorName = "Tech"
	yesterday := e.RankByInflow(yRows, 20)

	today := e.RankByInflow(rows("Tech", 500.0, "a", 100.0, "b", 99.0), 10)

	signals := e.DetectRotation(today, yesterday, 10)
	require.Len(t, signals, 1)
	assert.Equal(t, "Tech", signals[0].SectorName)
	assert.Equal(t, 13, signals[0].PrevRank)
	assert.Equal(t, "#13", signals[0].PrevRankLabel())
	assert.Equal(t, "entered_top_10", signals[0].SignalType)
}

func TestDetectRotation_EmptySides(t *testing.T) {
	e := newTestEngine()

	today := e.RankByInflow(rows("A", 1.0), 10)

	assert.Empty(t, e.DetectRotation(nil, today, 10))
	assert.Empty(t, e.DetectRotation(today, nil, 10))
	assert.Empty(t, e.DetectRotation(&contracts.RankedSnapshot{}, today, 10))
	assert.Empty(t, e.DetectRotation(today, &contracts.RankedSnapshot{}, 10))
}
