package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"freightrates/internal/domain"
)

// sheets maps workbook sheet names to result buckets, in tab order.
var sheets = []struct {
	name   string
	bucket string
}{
	{"Prices", domain.BucketPrices},
	{"Surcharges", domain.BucketSurcharges},
	{"Remarks", domain.BucketRemarks},
}

// WriteXLSX writes result as a workbook with one sheet per bucket.
func WriteXLSX(w io.Writer, result *domain.ExtractionResult) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("xlsx style: %w", err)
	}

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.name); err != nil {
				return fmt.Errorf("xlsx sheet %s: %w", sh.name, err)
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return fmt.Errorf("xlsx sheet %s: %w", sh.name, err)
		}

		records, _ := result.Bucket(sh.bucket)
		if err := writeSheet(f, sh.name, Columns(sh.bucket, records), records, headerStyle); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, cols []string, records []domain.Record, headerStyle int) error {
	header := make([]interface{}, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("xlsx header %s: %w", sheet, err)
	}
	last, _ := excelize.CoordinatesToCellName(len(cols), 1)
	_ = f.SetCellStyle(sheet, "A1", last, headerStyle)

	for r, rec := range records {
		values := row(cols, rec)
		cells := make([]interface{}, len(values))
		for i, v := range values {
			cells[i] = v
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("xlsx row %s:%d: %w", sheet, r+2, err)
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(cols))
	_ = f.SetColWidth(sheet, "A", lastCol, 16)
	_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	return nil
}
