// Package rowcount derives exported-row counts from exporter results.
package rowcount

import (
	"regexp"
	"strconv"

	"github.com/hochfrequenz/booking-export/internal/domain"
)

var digitsRegex = regexp.MustCompile(`\d+`)

// FromResult returns the number of rows a result reports as exported.
// Failed results count as zero. The structured RowsExported field wins over the
// message; otherwise the first run of digits in the message is used.
func FromResult(r domain.ExportResult) int {
	if !r.Success {
		return 0
	}
	if r.RowsExported != nil {
		return *r.RowsExported
	}
	return FromMessage(r.Message)
}

// FromMessage parses the first run of decimal digits in msg, or returns 0
func FromMessage(msg string) int {
	match := digitsRegex.FindString(msg)
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		// overflow
		return 0
	}
	return n
}

// Total sums the row counts of all results
func Total(results ...domain.ExportResult) int {
	total := 0
	for _, r := range results {
		total += FromResult(r)
	}
	return total
}
