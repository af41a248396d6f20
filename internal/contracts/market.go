package contracts

import (
	"fmt"
	"strings"
)

// Market identifies one of the monitored markets. It is a closed set:
// every schedule key, snapshot file name and display label derives from
// this value, never from ad hoc strings.
type Market string

const (
	// MarketDomestic is the mainland A-share market.
	MarketDomestic Market = "a_share"
	// MarketUS is the US market, proxied by Sector SPDR ETFs.
	MarketUS Market = "us"
	// MarketHK is the Hong Kong market.
	MarketHK Market = "hk"
)

// AllMarkets returns the markets in their fixed enumeration order.
// Aggregate runs process markets in this order.
func AllMarkets() []Market {
	return []Market{MarketDomestic, MarketUS, MarketHK}
}

// ParseMarket normalizes a market alias string into a Market.
// Recognized aliases mirror the common spellings users pass on the
// command line.
func ParseMarket(s string) (Market, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a_share", "a", "ashare", "cn", "china":
		return MarketDomestic, nil
	case "us", "usa", "american", "america":
		return MarketUS, nil
	case "hk", "hongkong", "hong_kong", "hkg":
		return MarketHK, nil
	default:
		return "", fmt.Errorf("unknown market %q (supported: a_share, us, hk)", s)
	}
}

// String returns the canonical identifier, e.g. "a_share".
func (m Market) String() string {
	return string(m)
}

// Label returns the display name for reports.
func (m Market) Label() string {
	switch m {
	case MarketDomestic:
		return "A-Share"
	case MarketUS:
		return "US"
	case MarketHK:
		return "Hong Kong"
	default:
		return "Unknown"
	}
}

// Emoji returns the flag emoji used in report headings.
func (m Market) Emoji() string {
	switch m {
	case MarketDomestic:
		return "\U0001F1E8\U0001F1F3" // CN flag
	case MarketUS:
		return "\U0001F1FA\U0001F1F8" // US flag
	case MarketHK:
		return "\U0001F1ED\U0001F1F0" // HK flag
	default:
		return "\U0001F4CA"
	}
}
