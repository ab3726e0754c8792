package invoicing

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var receiptPrinter = message.NewPrinter(language.English)

// FormatAmount renders an amount with grouping separators for printed
// receipts, e.g. 1234567.50 becomes "1,234,567.50".
func FormatAmount(amount decimal.Decimal) string {
	f, _ := amount.Round(2).Float64()
	return receiptPrinter.Sprintf("%.2f", f)
}
