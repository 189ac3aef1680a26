// Package ingest turns uploaded spreadsheets and pasted text into stock maps.
package ingest

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/andresuchdata/orderplan/internal/domain"
)

// fields in pasted rows are split on tabs, semicolons or runs of two or
// more spaces so that single spaces inside product names survive
var fieldSeparator = regexp.MustCompile(`\t|;| {2,}`)

const headerMarker = "товар"

// ParseText parses pasted "product<sep>stock" lines. A first line naming
// the product column is skipped. Products repeated on several lines are
// summed.
func ParseText(text string) (domain.StockMap, error) {
	stock := make(domain.StockMap)
	first := true
	for _, line := range strings.Split(text, "\n") {
		// a leading tab marks a blank product cell
		line = strings.TrimLeft(strings.TrimRight(line, " \t\r"), " ")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := fieldSeparator.Split(line, -1)
		product := strings.TrimSpace(parts[0])
		if first {
			first = false
			if strings.Contains(strings.ToLower(product), headerMarker) {
				continue
			}
		}
		if product == "" {
			continue
		}
		qty := 0.0
		if len(parts) > 1 {
			qty = ParseQuantity(parts[1])
		}
		stock[product] += qty
	}
	if len(stock) == 0 {
		return nil, fmt.Errorf("pasted text: %w", domain.ErrEmptyInput)
	}
	return stock, nil
}

// ParseQuantity reads a stock cell. Blank, non-numeric and negative values
// read as 0; a comma decimal separator and digit grouping spaces are
// accepted.
func ParseQuantity(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	s = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", ",", ".").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
