package analysis

import (
	"sort"

	"github.com/mwjiang/sectorflow/internal/contracts"
)

// FlowStats summarizes a market's overall capital flow for one day.
// All monetary figures are in the rows' native units; the report layer
// owns display scaling.
type FlowStats struct {
	TotalInflow    float64 // sum of positive net inflows
	TotalOutflow   float64 // sum of negative net inflows (negative)
	NetFlow        float64
	InflowSectors  int
	OutflowSectors int
	Top5Inflow     float64 // sum of the five largest positive inflows
}

// FlowBreadth computes market-wide flow statistics from a full sector
// table. Nil or empty input returns zeroed stats.
func (e *Engine) FlowBreadth(rows []contracts.SectorRow) FlowStats {
	var stats FlowStats
	if len(rows) == 0 {
		return stats
	}

	var positives []float64
	for _, row := range rows {
		switch {
		case row.NetInflow > 0:
			stats.TotalInflow += row.NetInflow
			stats.InflowSectors++
			positives = append(positives, row.NetInflow)
		case row.NetInflow < 0:
			stats.TotalOutflow += row.NetInflow
			stats.OutflowSectors++
		}
	}
	stats.NetFlow = stats.TotalInflow + stats.TotalOutflow

	sort.Sort(sort.Reverse(sort.Float64Slice(positives)))
	for i, v := range positives {
		if i >= 5 {
			break
		}
		stats.Top5Inflow += v
	}

	return stats
}
