package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXFileName is the name the spreadsheet report is saved under
const XLSXFileName = "reporte_facturas.xlsx"

const sheetName = "Reporte"

// XLSXRenderer writes the report as a single-sheet workbook
type XLSXRenderer struct{}

// FileName implements Renderer
func (r *XLSXRenderer) FileName() string {
	return XLSXFileName
}

// Render implements Renderer
func (r *XLSXRenderer) Render(w io.Writer, doc Document) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := fillSheet(f, sheetName, doc); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// fillSheet writes the title, the header row, one row per entry and the total
func fillSheet(f *excelize.File, sheet string, doc Document) error {
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := setCell(f, sheet, "A1", doc.Title); err != nil {
		return err
	}
	if err := setStyle(f, sheet, "A1", "A1", bold); err != nil {
		return err
	}

	if err := setRow(f, sheet, 3, "Fecha", "Categoría", "Descripción", "Valor"); err != nil {
		return err
	}
	if err := setStyle(f, sheet, "A3", "D3", bold); err != nil {
		return err
	}

	row := 4
	for _, e := range doc.Entries {
		if err := setRow(f, sheet, row, e.DisplayDate(), e.Category, e.Description, e.Value.InexactFloat64()); err != nil {
			return err
		}
		row++
	}
	if len(doc.Entries) > 0 {
		if err := setStyle(f, sheet, "D4", fmt.Sprintf("D%d", row-1), money); err != nil {
			return err
		}
	}

	totalRow := row + 1
	labelCell := fmt.Sprintf("C%d", totalRow)
	totalCell := fmt.Sprintf("D%d", totalRow)
	if err := setCell(f, sheet, labelCell, "Total"); err != nil {
		return err
	}
	if err := setCell(f, sheet, totalCell, doc.Total.InexactFloat64()); err != nil {
		return err
	}
	if err := setStyle(f, sheet, labelCell, labelCell, bold); err != nil {
		return err
	}
	if err := setStyle(f, sheet, totalCell, totalCell, money); err != nil {
		return err
	}

	widths := []struct {
		from, to string
		width    float64
	}{
		{"A", "B", 14},
		{"C", "C", 40},
		{"D", "D", 12},
	}
	for _, cw := range widths {
		if err := f.SetColWidth(sheet, cw.from, cw.to, cw.width); err != nil {
			return fmt.Errorf("set width of column %s: %w", cw.from, err)
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values ...interface{}) error {
	for i, value := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("resolve cell: %w", err)
		}
		if err := setCell(f, sheet, cell, value); err != nil {
			return err
		}
	}
	return nil
}

func setCell(f *excelize.File, sheet, cell string, value interface{}) error {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("set cell %s: %w", cell, err)
	}
	return nil
}

func setStyle(f *excelize.File, sheet, from, to string, style int) error {
	if err := f.SetCellStyle(sheet, from, to, style); err != nil {
		return fmt.Errorf("style cells %s:%s: %w", from, to, err)
	}
	return nil
}
