package executor

import (
	"strings"

	"freightrates/internal/domain"
)

const contextRules = `- headers: show fields about price or surcharge
- do_not_expand_enum_values: true`

// BuildContext renders one batch as the text sent to the extraction service.
// Cells are joined by " | ", rows by newlines.
func BuildContext(tableType domain.TableType, headers, rows []domain.Row) string {
	var b strings.Builder
	b.WriteString("table data type:\n")
	b.WriteString(string(tableType))
	b.WriteString("\n\nheaders:\n")
	b.WriteString(joinRows(headers))
	b.WriteString("\n\nrules:\n")
	b.WriteString(contextRules)
	b.WriteString("\n\nrows:\n")
	b.WriteString(joinRows(rows))
	return b.String()
}

func joinRows(rows []domain.Row) string {
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = strings.Join(row, " | ")
	}
	return strings.Join(lines, "\n")
}
