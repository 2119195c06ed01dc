package domain

import (
	"fmt"
	"strings"
)

// FormatMoney renders an amount in minor units, e.g. 6000 "eur" -> "60.00 EUR".
func FormatMoney(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, minor/100, minor%100, strings.ToUpper(currency))
}
