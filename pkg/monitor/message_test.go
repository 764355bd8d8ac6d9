package monitor

import (
	"testing"

	"github.com/raykavin/cryptoalert/pkg/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFormatUpdate(t *testing.T) {
	s := core.PriceSnapshot{
		Price:     decimal.RequireFromString("1234.5"),
		Change1h:  0,
		Change24h: 12.346,
		Symbol:    "WETH",
		Name:      "Wrapped Ether",
	}

	require.Equal(t, "Wrapped Ether (WETH) Price: $1234.5000\nChange: 24h: +12.35% | 1h: +0.00%", FormatUpdate(s))
}

func TestFormatAlert(t *testing.T) {
	s := core.PriceSnapshot{Change1h: -15, Symbol: "PEPE", Name: "Pepe"}
	require.Equal(t, "🚨 Alert! Pepe (PEPE) price changed by -15.00% in the last hour!", FormatAlert(s))
}
