// Package util provides numeric and formatting helpers shared by the mission packages.
package util

import (
	"math"
	"strconv"
	"strings"
)

// FormatNumber renders v as an integer when it has no fractional part and
// with the shortest round-tripping representation otherwise. DJI stores
// integral values without a decimal point.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatBool renders b as "1" or "0".
func FormatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Round rounds v to the given number of decimal places.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// RoundSignificant rounds v to the given number of significant digits.
func RoundSignificant(v float64, digits int) float64 {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'g', digits, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// Contains checks if a string slice contains a specific string.
func Contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}

// SanitizeName replaces characters that are awkward in file names.
func SanitizeName(s string) string {
	s = strings.TrimSpace(s)
	r := strings.NewReplacer(" ", "_", ":", "_", "/", "_", `\`, "_")
	return r.Replace(s)
}
