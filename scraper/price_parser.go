package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	numberRun     = regexp.MustCompile(`[0-9]+(?:[.,][0-9]+)*[.,]?`)
	thousandsOnly = regexp.MustCompile(`^[0-9]{1,3}(,[0-9]{2,3})*,[0-9]{3}$`)
)

// NormalizePrice turns marketplace price text into a number.
// Currency symbols, letters and thousands separators are dropped:
// "₹12,345" -> 12345, "$1,234.50" -> 1234.5, "Rs. 1,23,456" -> 123456, "12,345." -> 12345.
// Text without a usable number returns nil.
func NormalizePrice(text string) *float64 {
	match := numberRun.FindString(text)
	if match == "" {
		return nil
	}

	number := strings.TrimRight(match, ".,")
	value, err := strconv.ParseFloat(cleanNumber(number), 64)
	if err != nil || value < 0 {
		return nil
	}
	return &value
}

// cleanNumber converts a run of digits and separators to Go float syntax
func cleanNumber(number string) string {
	lastComma := strings.LastIndex(number, ",")
	lastDot := strings.LastIndex(number, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		// whichever separator comes last is the decimal point
		if lastDot > lastComma {
			return strings.ReplaceAll(number, ",", "")
		}
		number = strings.ReplaceAll(number, ".", "")
		return strings.Replace(number, ",", ".", 1)

	case lastComma >= 0:
		// 12,345 and 1,23,456 are grouped thousands; 12,50 is a decimal comma
		if thousandsOnly.MatchString(number) {
			return strings.ReplaceAll(number, ",", "")
		}
		if strings.Count(number, ",") == 1 && len(number)-lastComma-1 <= 2 {
			return strings.Replace(number, ",", ".", 1)
		}
		return strings.ReplaceAll(number, ",", "")

	case strings.Count(number, ".") > 1:
		// 1.234.567
		return strings.ReplaceAll(number, ".", "")
	}

	return number
}
