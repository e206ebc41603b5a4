package format

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sasusavage/perfumeshop/internal/domain"
)

const currencyCode = "GHS"

var printer = message.NewPrinter(language.English)

// Currency renders an amount of pesewas as cedis with digit grouping and two
// decimals, e.g. 55000 is "GHS 550.00".
func Currency(amount domain.Money) string {
	minor := int64(amount)
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s %s%s.%02d", currencyCode, sign, printer.Sprintf("%d", minor/100), minor%100)
}
