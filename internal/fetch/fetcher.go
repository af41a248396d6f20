package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/mwjiang/sectorflow/internal/contracts"
	"github.com/mwjiang/sectorflow/pkg/httputil"
	"github.com/mwjiang/sectorflow/pkg/logger"
)

// ErrEmptyData marks a provider response that was well-formed but
// carried no rows. Callers use it to tell "nothing to rank" apart from
// transport failures; both fail the day's job, with different messages.
var ErrEmptyData = errors.New("provider returned empty dataset")

// Fetcher is the per-market data capability. One instance per market is
// created and reused across calendar days so provider-side sessions and
// caches survive between runs.
type Fetcher interface {
	// SectorData returns the sector table for the given trade date
	// (YYYYMMDD, empty for the latest session).
	SectorData(ctx context.Context, tradeDate string) ([]contracts.SectorRow, error)

	// SectorHistorical returns per-day rows for one sector or proxy
	// symbol over the most recent days sessions, newest first.
	SectorHistorical(ctx context.Context, symbol string, days int) ([]contracts.SectorRow, error)

	// Market identifies which market this fetcher serves.
	Market() contracts.Market
}

// Options carries the shared dependencies fetchers are built from.
type Options struct {
	HTTP   *httputil.Client
	Logger *logger.Logger
	// HKMode selects the Hong Kong data source: "etf" (default) or
	// "index".
	HKMode string
}

// New constructs the fetcher for a market. The market set is closed;
// there is no runtime registry.
func New(market contracts.Market, opts Options) (Fetcher, error) {
	switch market {
	case contracts.MarketDomestic:
		return newDomesticFetcher(opts), nil
	case contracts.MarketUS:
		return newUSFetcher(opts), nil
	case contracts.MarketHK:
		return newHKFetcher(opts), nil
	default:
		return nil, fmt.Errorf("no fetcher for market %q", market)
	}
}
