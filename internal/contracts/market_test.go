package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarket(t *testing.T) {
	tests := []struct {
		alias string
		want  Market
	}{
		{"a_share", MarketDomestic},
		{"a", MarketDomestic},
		{"ashare", MarketDomestic},
		{"cn", MarketDomestic},
		{"china", MarketDomestic},
		{"A_SHARE", MarketDomestic},
		{"us", MarketUS},
		{"USA", MarketUS},
		{"american", MarketUS},
		{"america", MarketUS},
		{"hk", MarketHK},
		{"hongkong", MarketHK},
		{"hong_kong", MarketHK},
		{"hkg", MarketHK},
		{"  hk  ", MarketHK},
	}

	for _, tt := range tests {
		t.Run(tt.alias, func(t *testing.T) {
			got, err := ParseMarket(tt.alias)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMarket_Unknown(t *testing.T) {
	_, err := ParseMarket("jp")
	assert.Error(t, err)

	_, err = ParseMarket("")
	assert.Error(t, err)
}

func TestAllMarkets_Order(t *testing.T) {
	// Aggregate runs depend on this enumeration order being stable.
	assert.Equal(t, []Market{MarketDomestic, MarketUS, MarketHK}, AllMarkets())
}

func TestMarket_Label(t *testing.T) {
	assert.Equal(t, "A-Share", MarketDomestic.Label())
	assert.Equal(t, "US", MarketUS.Label())
	assert.Equal(t, "Hong Kong", MarketHK.Label())
}
