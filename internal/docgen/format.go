package docgen

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.English)

// FormatMoney renders a euro amount with grouped thousands and the given
// fraction digit count. Rounding is half away from zero, pinned here rather
// than left to the host locale.
func FormatMoney(v float64, fractionDigits int) string {
	rounded := decimal.NewFromFloat(v).Round(int32(fractionDigits))
	f, _ := rounded.Float64()
	return "€" + printer.Sprint(number.Decimal(f,
		number.MinFractionDigits(fractionDigits),
		number.MaxFractionDigits(fractionDigits),
	))
}

// FormatAmount is FormatMoney without the currency symbol, used where the
// contract wording already carries it.
func FormatAmount(v float64, fractionDigits int) string {
	rounded := decimal.NewFromFloat(v).Round(int32(fractionDigits))
	f, _ := rounded.Float64()
	return printer.Sprint(number.Decimal(f,
		number.MinFractionDigits(fractionDigits),
		number.MaxFractionDigits(fractionDigits),
	))
}

// FormatDate parses an ISO date and renders it day-month-year. Any parse
// failure yields the placeholder instead of an error.
func FormatDate(iso string) string {
	if iso == "" {
		return Placeholder
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, iso); err == nil {
			return t.Format("02.01.2006")
		}
	}
	return Placeholder
}

// FormatDatePtr is FormatDate over an optional date.
func FormatDatePtr(iso *string) string {
	if iso == nil {
		return Placeholder
	}
	return FormatDate(*iso)
}
