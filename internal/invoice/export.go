package invoice

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Faktura"

// exportColumns are the spreadsheet headers, one row per line item with the
// invoice header fields repeated
var exportColumns = []string{
	"Numer faktury",
	"Data wystawienia",
	"Sprzedawca",
	"NIP sprzedawcy",
	"Nabywca",
	"Opis pozycji",
	"Ilość",
	"Cena jedn. netto",
	"VAT %",
	"Wartość brutto",
	"Kategoria",
	"Waluta",
	"Suma netto",
	"Suma brutto",
}

// Money columns carry a two-decimal number format
var moneyColumns = []string{"H", "J", "M", "N"}

// ExportExcel renders a validated record as an .xlsx workbook: a styled
// header row, then one row per line item
func ExportExcel(record *Record) ([]byte, error) {
	if len(record.Items) == 0 {
		return nil, fmt.Errorf("invoice must have at least one item")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("renaming sheet: %w", err)
	}

	widths := make([]int, len(exportColumns))
	for col, name := range exportColumns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(exportSheet, cell, name); err != nil {
			return nil, fmt.Errorf("writing header: %w", err)
		}
		widths[col] = len(name)
	}

	for i, item := range record.Items {
		row := []any{
			record.InvoiceNumber,
			record.IssueDate.String(),
			record.SellerName,
			record.SellerNIP,
			record.BuyerName,
			item.Description,
			item.Quantity,
			item.UnitPriceNet,
			item.VATRate,
			item.TotalGross,
			item.Category,
			record.Currency,
			record.TotalNetSum,
			record.TotalGrossSum,
		}
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(exportSheet, cell, value); err != nil {
				return nil, fmt.Errorf("writing row %d: %w", i+2, err)
			}
			if l := len(fmt.Sprint(value)); l > widths[col] {
				widths[col] = l
			}
		}
	}

	if err := styleSheet(f, len(record.Items), widths); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// styleSheet applies the header fill, column widths and money formats
func styleSheet(f *excelize.File, itemRows int, widths []int) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	lastHeader, err := excelize.CoordinatesToCellName(len(exportColumns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(exportSheet, "A1", lastHeader, headerStyle); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	for col, width := range widths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		// Pad a little, cap at 50 characters
		w := float64(width) + 2
		if w > 50 {
			w = 50
		}
		if err := f.SetColWidth(exportSheet, name, name, w); err != nil {
			return fmt.Errorf("sizing column %s: %w", name, err)
		}
	}

	moneyFmt := "#,##0.00"
	moneyStyle, err := f.NewStyle(&excelize.Style{
		CustomNumFmt: &moneyFmt,
		Alignment:    &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return fmt.Errorf("creating money style: %w", err)
	}
	for _, col := range moneyColumns {
		start := fmt.Sprintf("%s2", col)
		end := fmt.Sprintf("%s%d", col, itemRows+1)
		if err := f.SetCellStyle(exportSheet, start, end, moneyStyle); err != nil {
			return fmt.Errorf("styling column %s: %w", col, err)
		}
	}

	return nil
}
