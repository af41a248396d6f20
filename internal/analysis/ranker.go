package analysis

import (
	"fmt"
	"sort"

	"github.com/mwjiang/sectorflow/internal/contracts"
	"github.com/mwjiang/sectorflow/pkg/logger"
)

// Engine holds the pure ranking and rotation transforms. It keeps no
// state beyond a logger; every method is side-effect free on its
// inputs.
type Engine struct {
	logger *logger.Logger
}

// NewEngine creates an analysis engine.
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{logger: log.WithField("module", "analysis")}
}

// RankByInflow sorts rows descending by net inflow and annotates each
// with its rank. Ties keep their relative input order (stable sort) and
// ranks are assigned over the full sorted set before truncation, so a
// row's rank is its true position even when topN narrows the returned
// view. Empty or nil input yields an empty snapshot, never an error.
func (e *Engine) RankByInflow(rows []contracts.SectorRow, topN int) *contracts.RankedSnapshot {
	if len(rows) == 0 {
		e.logger.Warn("Ranking input is empty")
		return &contracts.RankedSnapshot{}
	}

	sorted := make([]contracts.SectorRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].NetInflow > sorted[j].NetInflow
	})

	ranked := make([]contracts.RankedRow, len(sorted))
	for i, row := range sorted {
		ranked[i] = contracts.RankedRow{SectorRow: row, Rank: i + 1}
	}

	if topN > 0 && topN < len(ranked) {
		ranked = ranked[:topN]
	}

	return &contracts.RankedSnapshot{Rows: ranked}
}

// DetectRotation compares today's top-N sector set against yesterday's
// and returns one signal per sector that newly entered the top ranks.
// The previous rank is looked up in yesterday's full ranked table when
// present, otherwise the ">N" sentinel applies. Either side being empty
// degrades to an empty result with a warning, not an error.
//
// Signals are emitted in today's rank order, but callers must not rely
// on any particular ordering.
func (e *Engine) DetectRotation(today, yesterday *contracts.RankedSnapshot, topN int) []contracts.RotationSignal {
	if today.Empty() {
		e.logger.Warn("Rotation detection skipped: today's ranking is empty")
		return nil
	}
	if yesterday.Empty() {
		e.logger.Warn("Rotation detection skipped: yesterday's ranking is empty")
		return nil
	}

	yesterdayTop := yesterday.TopNames(topN)

	var signals []contracts.RotationSignal
	for _, row := range today.TopN(topN) {
		if yesterdayTop[row.SectorName] {
			continue
		}
		signals = append(signals, contracts.RotationSignal{
			SectorName: row.SectorName,
			PrevRank:   yesterday.RankOf(row.SectorName),
			TopN:       topN,
			SignalType: fmt.Sprintf("entered_top_%d", topN),
		})
	}

	e.logger.WithField("signals", len(signals)).Info("Rotation detection completed")
	return signals
}
