package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"freightrates/internal/domain"
)

// BOM lets Excel on Windows detect UTF-8, which matters for CJK port names.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes one bucket of result as CSV, preceded by a UTF-8 BOM.
func WriteCSV(w io.Writer, result *domain.ExtractionResult, bucket string) error {
	records, ok := result.Bucket(bucket)
	if !ok {
		return fmt.Errorf("unknown bucket %q", bucket)
	}
	if _, err := w.Write(BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	cols := Columns(bucket, records)
	if err := cw.Write(cols); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write(row(cols, rec)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
