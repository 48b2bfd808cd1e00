// Package cartesian estimates and performs the expansion of delimiter-joined
// multi-value cells into single-valued rows and records.
package cartesian

import (
	"regexp"
	"strings"
)

// delimiters are tried in priority order; the first that yields two or more
// non-empty segments wins.
var delimiters = []string{"/", ",", "，", "、"}

var (
	datePattern   = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`)
	amountPattern = regexp.MustCompile(`^[$€£¥]?[\d,]+\.?\d*$`)
)

// isFixedValue reports whether a trimmed cell is a date, number or amount,
// which must never be split even when it contains a delimiter.
func isFixedValue(cell string) bool {
	return datePattern.MatchString(cell) || isNumeric(cell) || amountPattern.MatchString(cell)
}

// isNumeric accepts digits with an optional leading minus, any thousands
// separators and at most one decimal point.
func isNumeric(cell string) bool {
	s := strings.TrimPrefix(cell, "-")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.Replace(s, ".", "", 1)
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// SplitValues returns the possible values held by one cell. Empty cells and
// fixed values yield a single value; otherwise the cell is split on the first
// delimiter producing at least two non-empty trimmed segments.
func SplitValues(cell string) []string {
	cell = strings.TrimSpace(cell)
	if cell == "" || isFixedValue(cell) {
		return []string{cell}
	}
	for _, d := range delimiters {
		if !strings.Contains(cell, d) {
			continue
		}
		var values []string
		for _, part := range strings.Split(cell, d) {
			if part = strings.TrimSpace(part); part != "" {
				values = append(values, part)
			}
		}
		if len(values) >= 2 {
			return values
		}
	}
	return []string{cell}
}

// ValueCount returns how many values a cell may expand into.
func ValueCount(cell string) int {
	return len(SplitValues(cell))
}

// Count returns the cartesian product of the value counts of every cell in row.
func Count(row []string) int {
	total := 1
	for _, cell := range row {
		total *= ValueCount(cell)
	}
	return total
}
