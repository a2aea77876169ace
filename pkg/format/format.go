package format

import (
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Display helpers for listing fields. All functions are pure given their
// inputs; relative values take an explicit "now" so they are recomputed on
// every render rather than cached.

var printer = message.NewPrinter(language.AmericanEnglish)

// Currency renders a dollar amount with thousands grouping, e.g. "$50,000".
// Fractional cents are kept only when present; zero renders as "$0".
func Currency(amount float64) string {
	if amount == math.Trunc(amount) {
		return printer.Sprintf("$%d", int64(amount))
	}
	return printer.Sprintf("$%.2f", amount)
}

// RelativeTime renders a timestamp as a human offset from now,
// e.g. "3 days ago".
func RelativeTime(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

// DaysRemaining returns ceil((expiresAt - now) / 24h), floored at zero.
// Zero means expired or expiring today, never a negative count.
func DaysRemaining(expiresAt, now time.Time) int {
	if !expiresAt.After(now) {
		return 0
	}
	return int(math.Ceil(expiresAt.Sub(now).Hours() / 24))
}

// AbsoluteDate renders a timestamp in a fixed calendar format,
// e.g. "January 2, 2006".
func AbsoluteDate(t time.Time) string {
	return t.Format("January 2, 2006")
}
