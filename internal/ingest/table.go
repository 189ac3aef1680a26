package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Format is a supported upload format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// DetectFormat maps a filename extension to a Format.
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// ReadTable returns every row of the first sheet (or the CSV body) with
// cells trimmed.
func ReadTable(filename string, r io.Reader) ([][]string, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatCSV:
		return readCSV(r)
	default:
		return readXLSX(r)
	}
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open workbook: %v", domain.ErrUnsupportedFormat, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets: %w", domain.ErrEmptyInput)
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheets[0], err)
	}
	defer rows.Close()

	var table [][]string
	for rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		table = append(table, trimCells(record))
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return table, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var table [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		table = append(table, trimCells(record))
	}
	return table, nil
}

func trimCells(record []string) []string {
	out := make([]string, len(record))
	for i, cell := range record {
		out[i] = strings.TrimSpace(cell)
	}
	return out
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

var (
	productHeaders = []string{"товар", "наименование", "номенклатура", "product"}
	stockHeaders   = []string{"остаток", "количество", "кол-во", "stock", "qty"}
)

func findColumn(header []string, candidates []string, fallback int) int {
	for i, name := range header {
		lower := strings.ToLower(name)
		for _, c := range candidates {
			if strings.Contains(lower, c) {
				return i
			}
		}
	}
	return fallback
}

// ParseStoreFile reads a single-store [product, stock] table. The first row
// is the header; product and stock columns are located by name and
// otherwise default to the first two columns.
func ParseStoreFile(filename string, r io.Reader) (domain.StockMap, error) {
	table, err := ReadTable(filename, r)
	if err != nil {
		return nil, err
	}
	if len(table) < 2 {
		return nil, fmt.Errorf("%s: %w", filename, domain.ErrEmptyInput)
	}

	header := table[0]
	productCol := findColumn(header, productHeaders, 0)
	stockCol := findColumn(header, stockHeaders, 1)
	if stockCol == productCol {
		stockCol = productCol + 1
	}

	stock := make(domain.StockMap)
	for _, row := range table[1:] {
		product := cell(row, productCol)
		if product == "" {
			continue
		}
		stock[product] += ParseQuantity(cell(row, stockCol))
	}
	if len(stock) == 0 {
		return nil, fmt.Errorf("%s: %w", filename, domain.ErrEmptyInput)
	}
	return stock, nil
}
