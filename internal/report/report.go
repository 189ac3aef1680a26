// Package report renders orders as spreadsheets.
package report

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/xuri/excelize/v2"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Builder writes a two column workbook: the product column is headed by the
// store name, the quantity column by QuantityLabel.
type Builder struct {
	SheetName     string
	QuantityLabel string
}

func NewBuilder(sheetName, quantityLabel string) *Builder {
	if sheetName == "" {
		sheetName = "Заказ"
	}
	if quantityLabel == "" {
		quantityLabel = "Заказ"
	}
	return &Builder{SheetName: sheetName, QuantityLabel: quantityLabel}
}

// Build renders items in the given order. Seller request items leave the
// quantity cell blank.
func (b *Builder) Build(storeName string, items []domain.OrderItem) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", b.SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	if err := f.SetSheetRow(b.SheetName, "A1", &[]interface{}{storeName, b.QuantityLabel}); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, item := range items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{item.Product, item.Quantity}
		if item.IsSellerRequest {
			row = []interface{}{item.Product}
		}
		if err := f.SetSheetRow(b.SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	last := len(items) + 1
	end, err := excelize.CoordinatesToCellName(2, last)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(b.SheetName, "A1", end, bold); err != nil {
		return nil, fmt.Errorf("failed to style cells: %w", err)
	}
	if err := f.SetColWidth(b.SheetName, "A", "A", 50); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

var unsafeFilename = regexp.MustCompile(`[\\/:*?"<>|]+`)

// Filename is the download name of a store's order.
func Filename(storeName string) string {
	name := strings.TrimSpace(unsafeFilename.ReplaceAllString(storeName, "_"))
	if name == "" {
		name = "order"
	}
	return name + ".xlsx"
}

// ContentDisposition builds an attachment header that survives non-ASCII
// store names.
func ContentDisposition(filename string) string {
	return fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filename))
}
