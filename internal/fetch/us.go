package fetch

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mwjiang/sectorflow/internal/contracts"
	"github.com/mwjiang/sectorflow/pkg/logger"
)

// usSectorETFs maps the Select Sector SPDR funds used as US sector
// proxies to their display names.
var usSectorETFs = map[string]string{
	"XLK":  "Technology",
	"XLF":  "Financials",
	"XLV":  "Health Care",
	"XLY":  "Consumer Discretionary",
	"XLC":  "Communication Services",
	"XLI":  "Industrials",
	"XLP":  "Consumer Staples",
	"XLE":  "Energy",
	"XLU":  "Utilities",
	"XLRE": "Real Estate",
	"XLB":  "Materials",
}

// usSymbolOrder fixes iteration order for deterministic output.
var usSymbolOrder = []string{
	"XLK", "XLF", "XLV", "XLY", "XLC", "XLI", "XLP", "XLE", "XLU", "XLRE", "XLB",
}

type usFetcher struct {
	quotes *quoteClient
	logger *logger.Logger
}

func newUSFetcher(opts Options) *usFetcher {
	return &usFetcher{
		quotes: newQuoteClient(opts),
		logger: opts.Logger.WithField("market", string(contracts.MarketUS)),
	}
}

func (f *usFetcher) Market() contracts.Market { return contracts.MarketUS }

// SectorData builds the day's sector table from the sector ETF set.
// Individual symbol failures are logged and skipped; the call fails
// only when every symbol fails or returns nothing.
func (f *usFetcher) SectorData(ctx context.Context, tradeDate string) ([]contracts.SectorRow, error) {
	var rows []contracts.SectorRow
	var lastErr error

	for _, symbol := range usSymbolOrder {
		row, err := f.sectorRow(ctx, symbol, tradeDate)
		if err != nil {
			f.logger.WithField("symbol", symbol).WithError(err).Warn("sector ETF fetch failed")
			lastErr = err
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, ErrEmptyData
	}
	return rows, nil
}

func (f *usFetcher) sectorRow(ctx context.Context, symbol, tradeDate string) (contracts.SectorRow, error) {
	candles, err := f.quotes.dailyCandles(ctx, symbol, 10)
	if err != nil {
		return contracts.SectorRow{}, err
	}

	idx := candleIndexFor(candles, tradeDate)
	if idx < 1 {
		return contracts.SectorRow{}, fmt.Errorf("%s: no prior close for %s: %w", symbol, tradeDate, ErrEmptyData)
	}
	cur, prev := candles[idx], candles[idx-1]

	return contracts.SectorRow{
		SectorName: usSectorETFs[symbol],
		Market:     contracts.MarketUS,
		NetInflow:  estimateInflow(prev.Close, cur.Close, cur.Volume),
		ChangePct:  changePercent(prev.Close, cur.Close),
		Volume:     cur.Volume,
		Symbol:     symbol,
		ClosePrice: cur.Close,
		TradeDate:  cur.Date,
	}, nil
}

// SectorHistorical returns one row per session for a sector ETF over
// the most recent days sessions, newest first.
func (f *usFetcher) SectorHistorical(ctx context.Context, symbol string, days int) ([]contracts.SectorRow, error) {
	name, ok := usSectorETFs[strings.ToUpper(symbol)]
	if !ok {
		// Allow lookup by sector name as well as by ticker.
		for sym, n := range usSectorETFs {
			if strings.EqualFold(n, symbol) {
				symbol, name, ok = sym, n, true
				break
			}
		}
	}
	if !ok {
		return nil, fmt.Errorf("unknown US sector symbol %q", symbol)
	}
	symbol = strings.ToUpper(symbol)

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
			Market:     contracts.MarketUS,
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

// candleIndexFor locates the bar for tradeDate (YYYYMMDD), or the most
// recent bar when tradeDate is empty or not present.
func candleIndexFor(candles []candle, tradeDate string) int {
	if tradeDate != "" && len(tradeDate) == 8 {
		dashed := tradeDate[:4] + "-" + tradeDate[4:6] + "-" + tradeDate[6:]
		for i, c := range candles {
			if c.Date == dashed {
				return i
			}
		}
	}
	return len(candles) - 1
}
