package executor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"freightrates/internal/domain"
)

// reroutedSurchargeName labels price records found in a surcharge table.
const reroutedSurchargeName = "additional"

// route appends a batch result to the accumulator according to the
// section's declared type.
func route(acc *domain.ExtractionResult, tableType domain.TableType, batch *domain.ExtractionResult) {
	switch tableType {
	case domain.TableTypeSurcharge:
		acc.SurchargeItems = append(acc.SurchargeItems, batch.SurchargeItems...)
		for _, p := range batch.Prices {
			acc.SurchargeItems = append(acc.SurchargeItems, domain.Record{
				"name":    reroutedSurchargeName,
				"content": surchargeContent(p),
			})
		}
	case domain.TableTypeRemark:
		acc.OtherRemarks = append(acc.OtherRemarks, batch.OtherRemarks...)
	default:
		acc.Merge(batch)
	}
}

// surchargeContent is the record's remark, or the record itself as JSON.
func surchargeContent(rec domain.Record) string {
	for _, key := range []string{"Remark", "remark"} {
		if v, ok := rec[key]; ok && v != nil {
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
				return s
			}
		}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return fmt.Sprint(map[string]interface{}(rec))
	}
	return strings.TrimSpace(buf.String())
}
