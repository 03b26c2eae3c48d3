package shipping

import "strings"

// Grams converts a weight measure to grams. Unknown units, "mg" included,
// pass the raw value through unchanged. Callers treat a zero result as
// "no contribution".
func Grams(m *Measure) float64 {
	if m == nil {
		return 0
	}
	switch m.Unit {
	case "kg":
		return m.Value * 1000
	case "g":
		return m.Value
	default:
		return m.Value
	}
}

// Centimeters converts a length measure to centimeters. Unknown units and
// "mm" pass through unchanged.
func Centimeters(m *Measure) float64 {
	if m == nil {
		return 0
	}
	switch m.Unit {
	case "m":
		return m.Value * 100
	case "cm":
		return m.Value
	default:
		return m.Value
	}
}

// digitsOnly strips every non-digit rune, used for zip normalization.
func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
