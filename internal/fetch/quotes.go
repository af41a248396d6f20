package fetch

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/mwjiang/sectorflow/pkg/httputil"
	"github.com/mwjiang/sectorflow/pkg/logger"
)

const defaultQuoteBaseURL = "https://query1.finance.yahoo.com"

// candle is one daily bar from the chart endpoint.
type candle struct {
	Date   string // YYYY-MM-DD in the exchange timezone
	Close  float64
	Volume int64
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol            string `json:"symbol"`
				ExchangeTimezone  string `json:"exchangeTimezoneName"`
				GMTOffsetSeconds  int    `json:"gmtoffset"`
				RegularMarketTime int64  `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// quoteClient fetches daily candles for exchange-listed symbols. It
// keeps a last-good cache per symbol so a transient provider outage
// does not blank an entire market run.
type quoteClient struct {
	http    *httputil.Client
	logger  *logger.Logger
	baseURL string

	mu       sync.Mutex
	cache    map[string]cachedCandles
	cacheTTL time.Duration
}

type cachedCandles struct {
	candles []candle
	at      time.Time
}

func newQuoteClient(opts Options) *quoteClient {
	return &quoteClient{
		http:     opts.HTTP,
		logger:   opts.Logger,
		baseURL:  defaultQuoteBaseURL,
		cache:    make(map[string]cachedCandles),
		cacheTTL: time.Hour,
	}
}

// dailyCandles returns up to the last `days` daily bars for symbol,
// oldest first. On fetch failure a cached result newer than the TTL is
// returned instead; both paths failing returns the fetch error.
func (q *quoteClient) dailyCandles(ctx context.Context, symbol string, days int) ([]candle, error) {
	if days < 2 {
		days = 2
	}

	candles, err := q.fetchCandles(ctx, symbol, days)
	if err == nil {
		q.mu.Lock()
		q.cache[symbol] = cachedCandles{candles: candles, at: time.Now()}
		q.mu.Unlock()
		return candles, nil
	}

	q.mu.Lock()
	cached, ok := q.cache[symbol]
	q.mu.Unlock()
	if ok && time.Since(cached.at) < q.cacheTTL {
		q.logger.WithField("symbol", symbol).WithError(err).
			Warn("quote fetch failed, serving cached candles")
		return cached.candles, nil
	}
	return nil, err
}

func (q *quoteClient) fetchCandles(ctx context.Context, symbol string, days int) ([]candle, error) {
	// A few extra calendar days cover weekends and holidays.
	rangeDays := days + days/2 + 4

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=%dd&interval=1d&includePrePost=false",
		q.baseURL, url.PathEscape(symbol), rangeDays)

	httpResp, err := q.http.GetWithHeaders(ctx, endpoint, map[string]string{
		"User-Agent": "Mozilla/5.0 (compatible; sectorflow/1.0)",
	})
	if err != nil {
		return nil, fmt.Errorf("chart request for %s: %w", symbol, err)
	}

	var resp chartResponse
	if err := httputil.DecodeJSON(httpResp, &resp); err != nil {
		return nil, fmt.Errorf("decode chart response for %s: %w", symbol, err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s: %s", symbol, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrEmptyData)
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrEmptyData)
	}
	quote := result.Indicators.Quote[0]

	loc := time.UTC
	if result.Meta.ExchangeTimezone != "" {
		if parsed, err := time.LoadLocation(result.Meta.ExchangeTimezone); err == nil {
			loc = parsed
		}
	}

	var candles []candle
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		var volume int64
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			volume = *quote.Volume[i]
		}
		candles = append(candles, candle{
			Date:   time.Unix(ts, 0).In(loc).Format("2006-01-02"),
			Close:  *quote.Close[i],
			Volume: volume,
		})
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrEmptyData)
	}

	if len(candles) > days {
		candles = candles[len(candles)-days:]
	}
	return candles, nil
}

// estimateInflow approximates a day's net capital flow for an ETF proxy
// as the price change times traded volume. A crude proxy, but it ranks
// sectors the same way a turnover-weighted flow would.
func estimateInflow(prevClose, close float64, volume int64) float64 {
	return (close - prevClose) * float64(volume)
}

// changePercent is the day-over-day close change in percent.
func changePercent(prevClose, close float64) float64 {
	if prevClose == 0 {
		return 0
	}
	return (close - prevClose) / prevClose * 100
}
