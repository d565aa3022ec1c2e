package ticket

import "fmt"

// FormatCents renders an amount of cents with two decimals, e.g. 2050 -> "20,50".
func FormatCents(cents int64, sep string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d%s%02d", sign, cents/100, sep, cents%100)
}
