// Package currency holds the static exchange-rate table and the
// conversion and formatting logic between the base currency and the
// currencies an amount can be entered or displayed in.
//
// Rates are fixed constants, not fetched: each Rate is the number of
// units of that currency equal to one unit of the base currency (MYR),
// so the base itself carries rate 1.0.
package currency

import (
	"fmt"
	"math"
	"strings"

	"duit/internal/core"
)

// BaseCode is the fixed reference currency every stored amount is
// expressed in.
const BaseCode = "MYR"

// Currency describes one entry of the static rate table. WholeUnit
// marks currencies without a minor unit; their amounts format with no
// decimal places. Extending the no-decimal behavior to another
// currency means setting the flag on its entry, nothing else.
type Currency struct {
	Code      string  `json:"code"`
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Rate      float64 `json:"rate"`
	WholeUnit bool    `json:"wholeUnit,omitempty"`
}

// Currencies is the supported set, base first. The slice is ordered
// for picker display; lookups go through Lookup.
var Currencies = []Currency{
	{Code: "MYR", Symbol: "RM", Name: "Malaysian Ringgit", Rate: 1.0},
	{Code: "USD", Symbol: "$", Name: "US Dollar", Rate: 0.22},
	{Code: "EUR", Symbol: "€", Name: "Euro", Rate: 0.20},
	{Code: "GBP", Symbol: "£", Name: "British Pound", Rate: 0.17},
	{Code: "SGD", Symbol: "S$", Name: "Singapore Dollar", Rate: 0.29},
	{Code: "JPY", Symbol: "¥", Name: "Japanese Yen", Rate: 33.0, WholeUnit: true},
	{Code: "IDR", Symbol: "Rp", Name: "Indonesian Rupiah", Rate: 3400.0, WholeUnit: true},
	{Code: "THB", Symbol: "฿", Name: "Thai Baht", Rate: 7.6},
	{Code: "CNY", Symbol: "¥", Name: "Chinese Yuan", Rate: 1.55},
	{Code: "INR", Symbol: "₹", Name: "Indian Rupee", Rate: 18.4},
	{Code: "AUD", Symbol: "A$", Name: "Australian Dollar", Rate: 0.33},
	{Code: "KRW", Symbol: "₩", Name: "South Korean Won", Rate: 295.0, WholeUnit: true},
}

// Base returns the base currency entry.
func Base() Currency {
	return Currencies[0]
}

// Lookup resolves a currency code, falling back to the base currency
// for unknown or empty codes. The fallback keeps conversion total over
// whatever codes show up in persisted data; it must not be turned into
// an error.
func Lookup(code string) Currency {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range Currencies {
		if c.Code == code {
			return c
		}
	}
	return Base()
}

// ToBase converts an amount entered in the currency fromCode into the
// base currency, rounding to the nearest cent.
func ToBase(m core.Money, fromCode string) core.Money {
	c := Lookup(fromCode)
	if c.Code == BaseCode {
		return m
	}
	return core.Money{Cents: int64(math.Round(float64(m.Cents) / c.Rate))}
}

// FromBase converts a base-currency amount into the currency toCode,
// rounding to the nearest cent.
func FromBase(m core.Money, toCode string) core.Money {
	c := Lookup(toCode)
	if c.Code == BaseCode {
		return m
	}
	return core.Money{Cents: int64(math.Round(float64(m.Cents) * c.Rate))}
}

// Format renders an amount in the given currency: symbol-prefixed,
// two decimals, or none for whole-unit currencies.
func Format(m core.Money, code string) string {
	c := Lookup(code)
	if c.WholeUnit {
		return c.Symbol + fmt.Sprintf("%.0f", m.Units())
	}
	return c.Symbol + fmt.Sprintf("%.2f", m.Units())
}

// FormatMulti renders a base-currency amount, appending the original
// foreign entry when one exists: "RM454.55 ($100.00)".
func FormatMulti(base core.Money, original *core.Money, originalCode string) string {
	formatted := Format(base, BaseCode)
	if original != nil && originalCode != "" && originalCode != BaseCode {
		formatted += " (" + Format(*original, originalCode) + ")"
	}
	return formatted
}

// FormatInDisplayCurrency converts a base-currency amount into the
// user's display currency and renders it.
func FormatInDisplayCurrency(base core.Money, displayCode string) string {
	c := Lookup(displayCode)
	if c.Code == BaseCode {
		return Format(base, BaseCode)
	}
	return Format(FromBase(base, c.Code), c.Code)
}
