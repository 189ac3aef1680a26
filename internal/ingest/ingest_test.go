package ingest

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cellRef, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseText(t *testing.T) {
	text := "Товар\tОстаток\n" +
		"Кабель USB\t5\n" +
		"Лампа;2,5\n" +
		"Розетка двойная   3\n" +
		"\n" +
		"Без остатка\n" +
		"Кривой\tабв\n" +
		"\t7\n" +
		"Кабель USB\t1\r\n"

	stock, err := ParseText(text)
	require.NoError(t, err)
	assert.Equal(t, domain.StockMap{
		"Кабель USB":      6,
		"Лампа":           2.5,
		"Розетка двойная": 3,
		"Без остатка":     0,
		"Кривой":          0,
	}, stock)
}

func TestParseTextHeaderOnlyOnFirstLine(t *testing.T) {
	stock, err := ParseText("Кабель\t1\nТовар дня\t2")
	require.NoError(t, err)
	assert.Equal(t, domain.StockMap{"Кабель": 1, "Товар дня": 2}, stock)
}

func TestParseTextEmpty(t *testing.T) {
	for _, text := range []string{"", "   \n\n", "Товар\tОстаток\n"} {
		_, err := ParseText(text)
		assert.ErrorIs(t, err, domain.ErrEmptyInput, "input %q", text)
	}
}

func TestParseQuantity(t *testing.T) {
	tests := map[string]float64{
		"":       0,
		"12":     12,
		" 3.5 ":  3.5,
		"2,25":   2.25,
		"1 200":  1200,
		"abc":    0,
		"-4":     0,
		"NaN":    0,
		"1e3":    1000,
		"1 000": 1000,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseQuantity(in), "input %q", in)
	}
}

func TestDetectFormat(t *testing.T) {
	f, err := DetectFormat("stock.XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	f, err = DetectFormat("stock.csv")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	for _, name := range []string{"stock.xls", "stock.pdf", "stock"} {
		_, err = DetectFormat(name)
		assert.ErrorIs(t, err, domain.ErrUnsupportedFormat, name)
	}
}

func TestParseStoreFileXLSX(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{"Артикул", "Товар", "Остаток"},
		{"1", "Кабель", 4},
		{"2", "Лампа", "2,5"},
		{"3", "", 9},
		{"4", "Кабель", 1},
	})

	stock, err := ParseStoreFile("stock.xlsx", buf)
	require.NoError(t, err)
	assert.Equal(t, domain.StockMap{"Кабель": 5, "Лампа": 2.5}, stock)
}

func TestParseStoreFileCSVDefaultsToFirstColumns(t *testing.T) {
	body := "name,count\nКабель,3\nЛампа,\n"
	stock, err := ParseStoreFile("stock.csv", strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, domain.StockMap{"Кабель": 3, "Лампа": 0}, stock)
}

func TestParseStoreFileErrors(t *testing.T) {
	_, err := ParseStoreFile("stock.xls", strings.NewReader(""))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	_, err = ParseStoreFile("stock.csv", strings.NewReader("Товар,Остаток\n"))
	assert.ErrorIs(t, err, domain.ErrEmptyInput)

	_, err = ParseStoreFile("stock.xlsx", strings.NewReader("not a workbook"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestParseGlobalFile(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{"Товар", "S1", "S2", "", "Электро"},
		{"Кабель", 4, 1, "x", 10},
		{"Лампа", "", 3, "", 2},
		{"", 5, 5, "", 5},
	})

	m, err := ParseGlobalFile("global.xlsx", buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2", "Электро"}, m.StoreColumns)
	assert.Equal(t, map[string]map[string]float64{
		"Кабель": {"S1": 4, "S2": 1, "Электро": 10},
		"Лампа":  {"S1": 0, "S2": 3, "Электро": 2},
	}, m.Data)
}

func TestParseGlobalFileWithoutStoreColumns(t *testing.T) {
	_, err := ParseGlobalFile("global.csv", strings.NewReader("Товар\nКабель\n"))
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
}

func TestFindStoreColumn(t *testing.T) {
	columns := []string{"S1", " Магазин Центр ", "Электро"}

	col, ok := FindStoreColumn(columns, "s1")
	assert.True(t, ok)
	assert.Equal(t, "S1", col)

	col, ok = FindStoreColumn(columns, "Центральный", "магазин центр")
	assert.True(t, ok)
	assert.Equal(t, " Магазин Центр ", col)

	_, ok = FindStoreColumn(columns, "S3")
	assert.False(t, ok)
}

func TestGlobalUploadSelectsOnlyStoreColumn(t *testing.T) {
	m, err := ParseGlobalFile("global.csv", strings.NewReader("Товар,S1,S2\nA,1,2\nB,3,4\n"))
	require.NoError(t, err)
	upload := &domain.GlobalStockUpload{StoreColumns: m.StoreColumns, Data: m.Data}

	col, ok := FindStoreColumn(upload.StoreColumns, "S1")
	require.True(t, ok)
	assert.Equal(t, domain.StockMap{"A": 1, "B": 3}, upload.Column(col))

	_, ok = FindStoreColumn(upload.StoreColumns, "Unknown")
	assert.False(t, ok)
	assert.Empty(t, upload.Column("Unknown"))
}

func ExampleParseText() {
	stock, _ := ParseText("Товар;Остаток\nКабель;3")
	fmt.Println(stock["Кабель"])
	// Output: 3
}
