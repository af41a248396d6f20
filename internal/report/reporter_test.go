package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwjiang/sectorflow/internal/analysis"
	"github.com/mwjiang/sectorflow/internal/contracts"
	"github.com/mwjiang/sectorflow/pkg/logger"
)

func successResult() contracts.MarketResult {
	ranked := &contracts.RankedSnapshot{Rows: []contracts.RankedRow{
		{SectorRow: contracts.SectorRow{SectorName: "银行", NetInflow: 1.5e9, ChangePct: 1.2}, Rank: 1},
		{SectorRow: contracts.SectorRow{SectorName: "券商", NetInflow: 9e8, ChangePct: 0.8}, Rank: 2},
		{SectorRow: contracts.SectorRow{SectorName: "半导体", NetInflow: 5e8, ChangePct: 2.1}, Rank: 3},
	}}
	return contracts.MarketResult{
		Market:  contracts.MarketDomestic,
		Success: true,
		Ranked:  ranked,
		Signals: []contracts.RotationSignal{
			{SectorName: "半导体", PrevRank: 13, TopN: 10, SignalType: "entered_top_10"},
			{SectorName: "券商", PrevRank: 0, TopN: 10, SignalType: "entered_top_10"},
		},
	}
}

func TestSummary(t *testing.T) {
	r := New(logger.NewNop())

	s := r.Summary(successResult())
	assert.Equal(t, "🇨🇳 A-Share TOP3: 银行 > 券商 > 半导体", s)

	failed := r.Summary(contracts.MarketResult{Market: contracts.MarketUS, Err: "boom"})
	assert.Contains(t, failed, "US")
	assert.Contains(t, failed, "failed")

	skipped := r.Summary(contracts.MarketResult{Market: contracts.MarketHK, Skipped: true})
	assert.Contains(t, skipped, "skipped")
}

func TestSingleMarkdown(t *testing.T) {
	r := New(logger.NewNop())

	md := r.SingleMarkdown("2026-08-25", successResult(), analysis.FlowStats{
		InflowSectors:  20,
		OutflowSectors: 10,
		NetFlow:        2.4e9,
	})

	assert.Contains(t, md, "# 板块资金流向 (2026-08-25)")
	assert.Contains(t, md, "🇨🇳 A-Share")
	assert.Contains(t, md, "流入板块 20 个 / 流出板块 10 个")
	assert.Contains(t, md, "24.00亿")
	assert.Contains(t, md, "| 1 | 银行 | 15.00亿 | +1.20% |")
	assert.Contains(t, md, "**半导体** 新进前10 (昨日排名 #13)")
	assert.Contains(t, md, "**券商** 新进前10 (昨日排名 >10)")
}

func TestSingleMarkdown_SymbolSuffix(t *testing.T) {
	r := New(logger.NewNop())

	res := contracts.MarketResult{
		Market:  contracts.MarketUS,
		Success: true,
		Ranked: &contracts.RankedSnapshot{Rows: []contracts.RankedRow{
			{SectorRow: contracts.SectorRow{SectorName: "Technology", Symbol: "XLK", NetInflow: 2e8, ChangePct: 0.5}, Rank: 1},
		}},
	}

	md := r.SingleMarkdown("2026-08-25", res, analysis.FlowStats{})
	assert.Contains(t, md, "Technology (XLK)")
}

func TestMultiMarkdown(t *testing.T) {
	r := New(logger.NewNop())

	results := []contracts.MarketResult{
		successResult(),
		{Market: contracts.MarketUS, Success: false, Err: "provider returned empty dataset"},
		{Market: contracts.MarketHK, Skipped: true},
	}
	stats := map[contracts.Market]analysis.FlowStats{
		contracts.MarketDomestic: {InflowSectors: 20, OutflowSectors: 10, NetFlow: 2.4e9},
	}

	md := r.MultiMarkdown("2026-08-25", results, stats)

	assert.Contains(t, md, "# 多市场板块资金流向 (2026-08-25)")
	assert.Contains(t, md, "## 🇨🇳 A-Share")
	assert.Contains(t, md, "## 🇺🇸 US")
	assert.Contains(t, md, "获取失败: provider returned empty dataset")

	// Skipped markets get no section at all.
	assert.NotContains(t, md, "Hong Kong")

	require.Equal(t, 1, strings.Count(md, "# 多市场"))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "15.00亿", formatAmount(1.5e9))
	assert.Equal(t, "-2.00亿", formatAmount(-2e8))
	assert.Equal(t, "50.00万", formatAmount(5e5))
	assert.Equal(t, "-3.00万", formatAmount(-3e4))
	assert.Equal(t, "0.00万", formatAmount(0))
}
