// Package format holds the display formatting helpers shared by the API
// responses: currency, percentages and dates rendered for en-GB clients.
package format

import (
	"math"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.BritishEnglish)

// Currency renders an amount as pounds sterling with grouped thousands,
// e.g. 1234.5 -> "£1,234.50".
func Currency(amount float64) string {
	return printer.Sprintf("£%v", number.Decimal(amount,
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2),
	))
}

// Percentage renders a percentage rounded to the nearest whole number,
// e.g. 99.975 -> "100%".
func Percentage(v float64) string {
	return strconv.Itoa(int(math.Round(v))) + "%"
}

// Date renders a date in the short en-GB style, e.g. "2 Jan 2006".
func Date(t time.Time) string {
	return t.Format("2 Jan 2006")
}

// DateISO parses a YYYY-MM-DD string and renders it with Date.
// Unparseable input is returned unchanged.
func DateISO(s string) string {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return s
	}
	return Date(t)
}
