package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/raykavin/cryptoalert/pkg/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestPrintTokens(t *testing.T) {
	checked := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	var out bytes.Buffer
	printTokens(&out, map[int64][]core.TrackedToken{
		20: {{TelegramID: 20, Address: "0xaaa", LastCheck: checked}},
		10: {
			{TelegramID: 10, Address: "0xaaa", LastCheck: checked, LastPrice: decimal.NewNullDecimal(decimal.RequireFromString("1.25"))},
			{TelegramID: 10, Address: "0xbbb", LastCheck: checked},
		},
	})

	text := out.String()
	require.Contains(t, text, "2024-03-01 12:30:00 UTC")
	require.Contains(t, text, "1.25")
	require.Contains(t, text, "2 USERS")
	require.Contains(t, text, "2 ADDRESSES")
	require.Contains(t, text, "3 TOKENS")
	// user 10 rows come first: 0xaaa, 0xbbb, then 0xaaa of user 20
	require.Less(t, strings.Index(text, "0xbbb"), strings.LastIndex(text, "0xaaa"))
}
