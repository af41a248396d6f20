package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/mwjiang/sectorflow/internal/analysis"
	"github.com/mwjiang/sectorflow/internal/contracts"
	"github.com/mwjiang/sectorflow/pkg/logger"
)

// Reporter renders market results into Markdown for the publishing
// layer. It never talks to the network.
type Reporter struct {
	logger *logger.Logger
}

func New(log *logger.Logger) *Reporter {
	return &Reporter{logger: log.WithField("component", "report")}
}

// Summary is the one-line digest used in logs and page titles, e.g.
// "🇨🇳 A-Share TOP3: 银行 > 券商 > 半导体".
func (r *Reporter) Summary(res contracts.MarketResult) string {
	head := fmt.Sprintf("%s %s", res.Market.Emoji(), res.Market.Label())
	if res.Skipped {
		return head + ": skipped"
	}
	if !res.Success {
		return head + ": failed"
	}

	var names []string
	for _, row := range res.Ranked.TopN(3) {
		names = append(names, row.SectorName)
	}
	return fmt.Sprintf("%s TOP3: %s", head, strings.Join(names, " > "))
}

// MultiMarkdown renders the combined daily report for all markets.
// stats may be nil for markets that failed; their sections carry the
// failure message instead of data.
func (r *Reporter) MultiMarkdown(date string, results []contracts.MarketResult, stats map[contracts.Market]analysis.FlowStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# 多市场板块资金流向 (%s)\n", date)

	for _, res := range results {
		if res.Skipped {
			continue
		}
		b.WriteString("\n")
		b.WriteString(r.marketSection(res, stats[res.Market]))
	}

	return b.String()
}

// SingleMarkdown renders one market's report with the same section
// layout as the combined document.
func (r *Reporter) SingleMarkdown(date string, res contracts.MarketResult, stats analysis.FlowStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# 板块资金流向 (%s)\n\n", date)
	b.WriteString(r.marketSection(res, stats))
	return b.String()
}

func (r *Reporter) marketSection(res contracts.MarketResult, stats analysis.FlowStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s %s\n\n", res.Market.Emoji(), res.Market.Label())

	if !res.Success {
		msg := res.Err
		if msg == "" {
			msg = "unknown error"
		}
		fmt.Fprintf(&b, "获取失败: %s\n", msg)
		return b.String()
	}

	fmt.Fprintf(&b, "**资金概览**: 流入板块 %d 个 / 流出板块 %d 个, 净流向 %s\n\n",
		stats.InflowSectors, stats.OutflowSectors, formatAmount(stats.NetFlow))

	b.WriteString("| 排名 | 板块 | 净流入 | 涨跌幅 |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	var rankedRows []contracts.RankedRow
	if res.Ranked != nil {
		rankedRows = res.Ranked.Rows
	}
	for _, row := range rankedRows {
		name := row.SectorName
		if row.Symbol != "" {
			name = fmt.Sprintf("%s (%s)", row.SectorName, row.Symbol)
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %+.2f%% |\n",
			row.Rank, name, formatAmount(row.NetInflow), row.ChangePct)
	}

	if len(res.Trends) > 0 {
		b.WriteString("\n**趋势强度**\n\n")
		for _, row := range rankedRows {
			trend, ok := res.Trends[row.SectorName]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "- %s %s: %.1f (近%d日)\n",
				trendArrow(trend.Direction), row.SectorName, trend.Score, trend.DataPoints)
		}
	}

	if len(res.Signals) > 0 {
		b.WriteString("\n**轮动信号**\n\n")
		for _, s := range res.Signals {
			fmt.Fprintf(&b, "- 🔄 **%s** 新进前%d (昨日排名 %s)\n",
				s.SectorName, s.TopN, s.PrevRankLabel())
		}
	}

	return b.String()
}

func trendArrow(direction string) string {
	switch direction {
	case "up":
		return "📈"
	case "down":
		return "📉"
	default:
		return "➡️"
	}
}

// formatAmount scales a raw currency amount for display. Small values
// read better in 万 (1e4), everything else in 亿 (1e8).
func formatAmount(v float64) string {
	if math.Abs(v) < 1e6 {
		return fmt.Sprintf("%.2f万", v/1e4)
	}
	return fmt.Sprintf("%.2f亿", v/1e8)
}
