package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mwjiang/sectorflow/internal/contracts"
	"github.com/mwjiang/sectorflow/pkg/httputil"
	"github.com/mwjiang/sectorflow/pkg/logger"
)

const (
	defaultPushBaseURL     = "https://push2.eastmoney.com"
	defaultPushHistBaseURL = "https://push2his.eastmoney.com"
)

// domesticFetcher reads mainland industry sector fund flows from the
// public push2 quote API. Unlike the ETF-proxied markets this source
// reports real main-capital net inflow per sector.
type domesticFetcher struct {
	http        *httputil.Client
	logger      *logger.Logger
	baseURL     string
	histBaseURL string

	mu         sync.Mutex
	codeByName map[string]string
	codesAt    time.Time
}

func newDomesticFetcher(opts Options) *domesticFetcher {
	return &domesticFetcher{
		http:        opts.HTTP,
		logger:      opts.Logger.WithField("market", string(contracts.MarketDomestic)),
		baseURL:     defaultPushBaseURL,
		histBaseURL: defaultPushHistBaseURL,
		codeByName:  make(map[string]string),
	}
}

func (f *domesticFetcher) Market() contracts.Market { return contracts.MarketDomestic }

// flexFloat tolerates the API's habit of returning "-" for fields that
// have no value yet.
type flexFloat float64

func (v *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "-" || s == "" || s == "null" {
		*v = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal([]byte(s), &f); err != nil {
		return err
	}
	*v = flexFloat(f)
	return nil
}

type sectorListResponse struct {
	Data *struct {
		Total int `json:"total"`
		Diff  []struct {
			Code      string    `json:"f12"`
			Name      string    `json:"f14"`
			ChangePct flexFloat `json:"f3"`
			MainFlow  flexFloat `json:"f62"`
		} `json:"diff"`
	} `json:"data"`
}

// SectorData fetches the full industry sector fund-flow table, sorted
// by the provider on main net inflow. tradeDate is informational; the
// API only serves the latest session.
func (f *domesticFetcher) SectorData(ctx context.Context, tradeDate string) ([]contracts.SectorRow, error) {
	params := url.Values{
		"pn":     {"1"},
		"pz":     {"100"},
		"po":     {"1"},
		"np":     {"1"},
		"fltt":   {"2"},
		"invt":   {"2"},
		"fid":    {"f62"},
		"fs":     {"m:90+t:2"},
		"fields": {"f3,f12,f14,f62"},
	}
	endpoint := f.baseURL + "/api/qt/clist/get?" + params.Encode()

	resp, err := f.http.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("sector flow request: %w", err)
	}

	var decoded sectorListResponse
	if err := httputil.DecodeJSON(resp, &decoded); err != nil {
		return nil, fmt.Errorf("decode sector flow response: %w", err)
	}
	if decoded.Data == nil || len(decoded.Data.Diff) == 0 {
		return nil, ErrEmptyData
	}

	date := dashDate(tradeDate)

	rows := make([]contracts.SectorRow, 0, len(decoded.Data.Diff))
	codes := make(map[string]string, len(decoded.Data.Diff))
	for _, d := range decoded.Data.Diff {
		if d.Name == "" {
			continue
		}
		codes[d.Name] = d.Code
		rows = append(rows, contracts.SectorRow{
			SectorName: d.Name,
			Market:     contracts.MarketDomestic,
			NetInflow:  float64(d.MainFlow),
			ChangePct:  float64(d.ChangePct),
			Symbol:     d.Code,
			TradeDate:  date,
		})
	}
	if len(rows) == 0 {
		return nil, ErrEmptyData
	}

	f.mu.Lock()
	f.codeByName = codes
	f.codesAt = time.Now()
	f.mu.Unlock()

	return rows, nil
}

type flowHistResponse struct {
	Data *struct {
		Name   string   `json:"name"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

// SectorHistorical fetches the daily main-flow history for one sector,
// addressed by name or board code, newest first.
func (f *domesticFetcher) SectorHistorical(ctx context.Context, symbol string, days int) ([]contracts.SectorRow, error) {
	code, name, err := f.resolveSector(ctx, symbol)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"secid":   {"90." + code},
		"lmt":     {"0"},
		"klt":     {"101"},
		"fields1": {"f1,f2,f3,f7"},
		"fields2": {"f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61,f62,f63,f64,f65"},
	}
	endpoint := f.histBaseURL + "/api/qt/stock/fflow/daykline/get?" + params.Encode()

	resp, err := f.http.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("flow history request for %s: %w", code, err)
	}

	var decoded flowHistResponse
	if err := httputil.DecodeJSON(resp, &decoded); err != nil {
		return nil, fmt.Errorf("decode flow history for %s: %w", code, err)
	}
	if decoded.Data == nil || len(decoded.Data.Klines) == 0 {
		return nil, fmt.Errorf("%s: %w", code, ErrEmptyData)
	}

	var rows []contracts.SectorRow
	for _, line := range decoded.Data.Klines {
		// kline fields: date, main net inflow, small, medium, large,
		// super-large, then percentage variants.
		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			continue
		}
		inflow, err := parseTableNumber(parts[1])
		if err != nil {
			continue
		}
		row := contracts.SectorRow{
			SectorName: name,
			Market:     contracts.MarketDomestic,
			NetInflow:  inflow,
			Symbol:     code,
			TradeDate:  parts[0],
		}
		// Field 7 carries the day's price change percent when present.
		if len(parts) > 6 {
			if pct, err := parseTableNumber(parts[6]); err == nil {
				row.ChangePct = pct
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", code, ErrEmptyData)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].TradeDate > rows[j].TradeDate })
	if days > 0 && len(rows) > days {
		rows = rows[:days]
	}
	return rows, nil
}

// resolveSector maps a sector name to its board code, refreshing the
// name table from the list endpoint when it is stale or missing.
func (f *domesticFetcher) resolveSector(ctx context.Context, symbol string) (code, name string, err error) {
	if strings.HasPrefix(symbol, "BK") {
		return symbol, symbol, nil
	}

	f.mu.Lock()
	code, ok := f.codeByName[symbol]
	stale := time.Since(f.codesAt) > 24*time.Hour
	f.mu.Unlock()

	if !ok || stale {
		if _, err := f.SectorData(ctx, ""); err != nil {
			if !ok {
				return "", "", fmt.Errorf("resolve sector %q: %w", symbol, err)
			}
		}
		f.mu.Lock()
		code, ok = f.codeByName[symbol]
		f.mu.Unlock()
	}
	if !ok {
		return "", "", fmt.Errorf("unknown sector %q", symbol)
	}
	return code, symbol, nil
}

// dashDate converts YYYYMMDD to YYYY-MM-DD, passing through anything
// already dashed or empty.
func dashDate(d string) string {
	if len(d) == 8 && !strings.Contains(d, "-") {
		return d[:4] + "-" + d[4:6] + "-" + d[6:]
	}
	return d
}
