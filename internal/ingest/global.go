package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/andresuchdata/orderplan/internal/match"
)

// Matrix is a parsed multi-store stock table.
type Matrix struct {
	StoreColumns []string
	Data         map[string]map[string]float64
}

// ParseGlobalFile reads a [product, store1, store2, ...] table. Columns
// with a blank header are ignored; a column name repeated in the header is
// read once.
func ParseGlobalFile(filename string, r io.Reader) (*Matrix, error) {
	table, err := ReadTable(filename, r)
	if err != nil {
		return nil, err
	}
	if len(table) < 2 {
		return nil, fmt.Errorf("%s: %w", filename, domain.ErrEmptyInput)
	}

	type column struct {
		name  string
		index int
	}
	var columns []column
	seen := make(map[string]struct{})
	for i, name := range table[0] {
		if i == 0 || name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		columns = append(columns, column{name: name, index: i})
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%s: no store columns: %w", filename, domain.ErrEmptyInput)
	}

	m := &Matrix{Data: make(map[string]map[string]float64)}
	for _, c := range columns {
		m.StoreColumns = append(m.StoreColumns, c.name)
	}
	for _, row := range table[1:] {
		product := cell(row, 0)
		if product == "" {
			continue
		}
		byStore, ok := m.Data[product]
		if !ok {
			byStore = make(map[string]float64, len(columns))
			m.Data[product] = byStore
		}
		for _, c := range columns {
			byStore[c.name] += ParseQuantity(cell(row, c.index))
		}
	}
	if len(m.Data) == 0 {
		return nil, fmt.Errorf("%s: %w", filename, domain.ErrEmptyInput)
	}
	return m, nil
}

// FindStoreColumn picks the matrix column belonging to a store. Names are
// the store name followed by its aliases, compared case-insensitively after
// trimming; a normalized comparison is tried when no exact match exists.
func FindStoreColumn(columns []string, names ...string) (string, bool) {
	for _, name := range names {
		want := strings.ToLower(strings.TrimSpace(name))
		if want == "" {
			continue
		}
		for _, col := range columns {
			if strings.ToLower(strings.TrimSpace(col)) == want {
				return col, true
			}
		}
	}
	for _, name := range names {
		want := match.Normalize(name)
		if want == "" {
			continue
		}
		for _, col := range columns {
			if match.Normalize(col) == want {
				return col, true
			}
		}
	}
	return "", false
}
