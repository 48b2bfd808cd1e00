package markup

import (
	"strconv"
	"strings"

	"freightrates/internal/domain"
)

// maxColSpan mirrors the HTML limit on colspan.
const maxColSpan = 1000

// RawCell is one td/th as read from markup, before spans are resolved.
type RawCell struct {
	Text    string
	RowSpan string
	ColSpan string
}

type cellPos struct {
	row, col int
}

// BuildGrid resolves row and column spans into a rectangular grid.
// Span attributes that are missing, non-numeric or not positive count as 1.
// Rows whose cells are all empty are dropped.
func BuildGrid(rows [][]RawCell) domain.Grid {
	if len(rows) == 0 {
		return domain.Grid{}
	}

	// overlay holds values placed by spans from earlier cells, keyed by position.
	overlay := make(map[cellPos]string)
	// pending tracks the rightmost overlay column per row so trailing spans are emitted.
	pending := make(map[int]int)

	built := make([]domain.Row, 0, len(rows))
	for r, cells := range rows {
		var out domain.Row
		col, next := 0, 0
		for next < len(cells) || col < pending[r] {
			if v, ok := overlay[cellPos{r, col}]; ok {
				out = append(out, v)
				col++
				continue
			}
			if next >= len(cells) {
				// Gap before a span placed further right.
				out = append(out, "")
				col++
				continue
			}

			cell := cells[next]
			next++
			rowSpan := spanValue(cell.RowSpan, len(rows)-r)
			colSpan := spanValue(cell.ColSpan, maxColSpan)

			for rs := 1; rs < rowSpan; rs++ {
				for cs := 0; cs < colSpan; cs++ {
					pos := cellPos{r + rs, col + cs}
					if _, taken := overlay[pos]; taken {
						continue
					}
					overlay[pos] = cell.Text
					if pos.col+1 > pending[pos.row] {
						pending[pos.row] = pos.col + 1
					}
				}
			}
			for cs := 0; cs < colSpan; cs++ {
				out = append(out, cell.Text)
				col++
			}
		}
		built = append(built, out)
	}

	width := 0
	for _, row := range built {
		if len(row) > width {
			width = len(row)
		}
	}

	grid := make(domain.Grid, 0, len(built))
	for _, row := range built {
		for len(row) < width {
			row = append(row, "")
		}
		if isBlankRow(row) {
			continue
		}
		grid = append(grid, row)
	}
	return grid
}

// spanValue parses a span attribute, clamping it to [1, limit].
func spanValue(attr string, limit int) int {
	n, err := strconv.Atoi(strings.TrimSpace(attr))
	if err != nil || n < 1 {
		return 1
	}
	if limit >= 1 && n > limit {
		return limit
	}
	return n
}

func isBlankRow(row domain.Row) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
