package fetch

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mwjiang/sectorflow/internal/contracts"
	"github.com/mwjiang/sectorflow/pkg/httputil"
	"github.com/mwjiang/sectorflow/pkg/logger"
)

// hkSectorETFs maps Hong Kong sector tracker funds to display names.
var hkSectorETFs = map[string]string{
	"3033.HK": "恒生科技",
	"2828.HK": "金融",
	"2801.HK": "地产",
	"3037.HK": "消费",
	"2838.HK": "医药",
}

var hkSymbolOrder = []string{"3033.HK", "2828.HK", "2801.HK", "3037.HK", "2838.HK"}

const defaultHKIndexURL = "https://www.aastocks.com/en/stocks/market/industry/industry-performance.aspx"

// hkFetcher serves Hong Kong sector data in one of two modes. The
// default "etf" mode reads sector tracker funds from the chart API;
// "index" mode scrapes an industry performance table instead.
type hkFetcher struct {
	quotes   *quoteClient
	http     *httputil.Client
	logger   *logger.Logger
	mode     string
	indexURL string
}

func newHKFetcher(opts Options) *hkFetcher {
	mode := opts.HKMode
	if mode == "" {
		mode = "etf"
	}
	return &hkFetcher{
		quotes:   newQuoteClient(opts),
		http:     opts.HTTP,
		logger:   opts.Logger.WithField("market", string(contracts.MarketHK)),
		mode:     mode,
		indexURL: defaultHKIndexURL,
	}
}

func (f *hkFetcher) Market() contracts.Market { return contracts.MarketHK }

func (f *hkFetcher) SectorData(ctx context.Context, tradeDate string) ([]contracts.SectorRow, error) {
	if f.mode == "index" {
		return f.indexSectorData(ctx)
	}
	return f.etfSectorData(ctx, tradeDate)
}

func (f *hkFetcher) etfSectorData(ctx context.Context, tradeDate string) ([]contracts.SectorRow, error) {
	var rows []contracts.SectorRow
	var lastErr error

	for _, symbol := range hkSymbolOrder {
		candles, err := f.quotes.dailyCandles(ctx, symbol, 10)
		if err != nil {
			f.logger.WithField("symbol", symbol).WithError(err).Warn("sector ETF fetch failed")
			lastErr = err
			continue
		}
		idx := candleIndexFor(candles, tradeDate)
		if idx < 1 {
			continue
		}
		cur, prev := candles[idx], candles[idx-1]
		rows = append(rows, contracts.SectorRow{
			SectorName: hkSectorETFs[symbol],
			Market:     contracts.MarketHK,
			NetInflow:  estimateInflow(prev.Close, cur.Close, cur.Volume),
			ChangePct:  changePercent(prev.Close, cur.Close),
			Volume:     cur.Volume,
			Symbol:     symbol,
			ClosePrice: cur.Close,
			TradeDate:  cur.Date,
		})
	}

	if len(rows) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, ErrEmptyData
	}
	return rows, nil
}

// indexSectorData scrapes the industry performance table. Expected row
// shape: name, last, change%, turnover. Net inflow is estimated from
// the change and turnover since the page carries no flow figures.
func (f *hkFetcher) indexSectorData(ctx context.Context) ([]contracts.SectorRow, error) {
	resp, err := f.http.GetWithHeaders(ctx, f.indexURL, map[string]string{
		"User-Agent": "Mozilla/5.0 (compatible; sectorflow/1.0)",
	})
	if err != nil {
		return nil, fmt.Errorf("industry page request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("industry page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse industry page: %w", err)
	}

	var rows []contracts.SectorRow
	doc.Find("table tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 4 {
			return
		}
		name := strings.TrimSpace(cells.Eq(0).Text())
		if name == "" {
			return
		}
		last, err1 := parseTableNumber(cells.Eq(1).Text())
		changePct, err2 := parseTableNumber(cells.Eq(2).Text())
		turnover, err3 := parseTableNumber(cells.Eq(3).Text())
		if err1 != nil || err2 != nil || err3 != nil {
			return
		}
		rows = append(rows, contracts.SectorRow{
			SectorName: name,
			Market:     contracts.MarketHK,
			NetInflow:  changePct / 100 * turnover,
			ChangePct:  changePct,
			ClosePrice: last,
		})
	})

	if len(rows) == 0 {
		return nil, ErrEmptyData
	}
	return rows, nil
}

func (f *hkFetcher) SectorHistorical(ctx context.Context, symbol string, days int) ([]contracts.SectorRow, error) {
	name, ok := hkSectorETFs[symbol]
	if !ok {
		for sym, n := range hkSectorETFs {
			if n == symbol {
				symbol, name, ok = sym, n, true
				break
			}
		}
	}
	if !ok {
		return nil, fmt.Errorf("unknown HK sector symbol %q", symbol)
	}

	candles, err := f.quotes.dailyCandles(ctx, symbol, days+1)
	if err != nil {
		return nil, err
	}
	if len(candles) < 2 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrEmptyData)
	}

	var rows []contracts.SectorRow
	for i := 1; i < len(candles); i++ {
		cur, prev := candles[i], candles[i-1]
		rows = append(rows, contracts.SectorRow{
			SectorName: name,
			Market:     contracts.MarketHK,
			NetInflow:  estimateInflow(prev.Close, cur.Close, cur.Volume),
			ChangePct:  changePercent(prev.Close, cur.Close),
			Volume:     cur.Volume,
			Symbol:     symbol,
			ClosePrice: cur.Close,
			TradeDate:  cur.Date,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].TradeDate > rows[j].TradeDate })
	if len(rows) > days {
		rows = rows[:days]
	}
	return rows, nil
}

// parseTableNumber handles the formatting HTML quote tables use:
// thousands separators, percent signs and +/- prefixes.
func parseTableNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimPrefix(s, "+")
	if s == "" || s == "-" || s == "N/A" {
		return 0, fmt.Errorf("no numeric value in %q", s)
	}

	// Scale suffixes used on turnover columns.
	scale := 1.0
	switch {
	case strings.HasSuffix(s, "B"):
		scale, s = 1e9, strings.TrimSuffix(s, "B")
	case strings.HasSuffix(s, "M"):
		scale, s = 1e6, strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "K"):
		scale, s = 1e3, strings.TrimSuffix(s, "K")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return v * scale, nil
}
