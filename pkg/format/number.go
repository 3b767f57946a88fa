// Package format renders numbers for human-readable output.
package format

import (
	"fmt"
	"math"
	"strings"
)

// Amount returns a value with thousands separators followed by its unit
// (e.g., "-1,234.56 USD"). An empty unit leaves the number bare.
func Amount(value float64, unit string) string {
	if unit == "" {
		return Number(value)
	}
	return Number(value) + " " + unit
}

// Number returns a value with two decimals and thousands separators (e.g., "-1,234.56").
func Number(value float64) string {
	sign := ""
	if value < 0 {
		sign = "-"
	}
	formatted := formatPositive(math.Abs(value))
	if formatted == "0.00" {
		sign = ""
	}
	return sign + formatted
}

// Percent returns a percentage with the given number of decimals (e.g., "12.35%").
func Percent(value float64, decimals int) string {
	return fmt.Sprintf("%.*f%%", decimals, value)
}

func formatPositive(value float64) string {
	formatted := fmt.Sprintf("%.2f", value)
	parts := strings.SplitN(formatted, ".", 2)
	intPart := parts[0]
	decPart := "00"
	if len(parts) == 2 {
		decPart = parts[1]
	}

	if len(intPart) > 3 {
		var builder strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				builder.WriteByte(',')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String()
	}

	return intPart + "." + decPart
}
