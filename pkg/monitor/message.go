package monitor

import (
	"fmt"

	"github.com/raykavin/cryptoalert/pkg/core"
)

// FormatUpdate renders the routine price update
func FormatUpdate(s core.PriceSnapshot) string {
	return fmt.Sprintf(
		"%s (%s) Price: $%s\nChange: 24h: %+.2f%% | 1h: %+.2f%%",
		s.Name, s.Symbol, s.Price.StringFixed(4), s.Change24h, s.Change1h,
	)
}

// FormatAlert renders the 1h change alert
func FormatAlert(s core.PriceSnapshot) string {
	return fmt.Sprintf(
		"🚨 Alert! %s (%s) price changed by %+.2f%% in the last hour!",
		s.Name, s.Symbol, s.Change1h,
	)
}

// FormatFetchFailed renders the message sent when no price data is available
func FormatFetchFailed(address string) string {
	return fmt.Sprintf("Unable to fetch data for token %s", address)
}
