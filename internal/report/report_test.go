package report

import (
	"bytes"
	"testing"

	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestBuild(t *testing.T) {
	items := []domain.OrderItem{
		{Product: "A", Quantity: 5},
		{Product: "B", Quantity: 3},
		{Product: "Клей", IsSellerRequest: true},
	}

	data, err := NewBuilder("", "").Build("Магазин 1", items)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Заказ"}, f.GetSheetList())
	rows, err := f.GetRows("Заказ")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Магазин 1", "Заказ"},
		{"A", "5"},
		{"B", "3"},
		{"Клей"},
	}, rows)

	styleID, err := f.GetCellStyle("Заказ", "B3")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
}

func TestBuildEmpty(t *testing.T) {
	data, err := NewBuilder("Order", "Qty").Build("S", nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Order")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"S", "Qty"}}, rows)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "Магазин 1.xlsx", Filename("Магазин 1"))
	assert.Equal(t, "a_b.xlsx", Filename("a/b"))
	assert.Equal(t, "order.xlsx", Filename("  "))
	assert.Equal(t, "attachment; filename*=UTF-8''%D0%90%201.xlsx", ContentDisposition("А 1.xlsx"))
}
