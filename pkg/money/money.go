// Package money formats whole-unit FCFA amounts for display.
package money

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency is the display suffix for every amount.
const Currency = "FCFA"

var printer = message.NewPrinter(language.French)

// Format renders amount with French digit grouping, e.g. "37 500 FCFA".
func Format(amount int64) string {
	return printer.Sprintf("%d", amount) + " " + Currency
}
