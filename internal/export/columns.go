// Package export renders extraction results as CSV and XLSX downloads.
package export

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"freightrates/internal/domain"
)

// knownColumns lists the fields each bucket is expected to carry, in
// display order. Other keys follow alphabetically.
var knownColumns = map[string][]string{
	domain.BucketPrices: {
		"POL", "POLCode", "POD", "PODCode", "PDL", "VIA", "VIACode", "Shipper", "Dock",
		"SailingSchedule", "Voyaga", "Currency", "F20GP", "F40GP", "F40HQ", "F45HQ",
		"F40NOR", "F40HR", "StartTime", "OverTime", "Remark",
	},
	domain.BucketSurcharges: {"name", "content"},
	domain.BucketRemarks:    {"content", "category"},
}

// Columns returns the header row for a bucket: known fields first, then any
// other keys present in records. Known fields are always included so empty
// exports keep a stable header.
func Columns(bucket string, records []domain.Record) []string {
	known := knownColumns[bucket]
	cols := append([]string(nil), known...)
	seen := make(map[string]bool, len(known))
	for _, c := range known {
		seen[c] = true
	}

	var extra []string
	for _, rec := range records {
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	return append(cols, extra...)
}

// CellValue renders a record value as display text.
func CellValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

func row(cols []string, rec domain.Record) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = sanitizeCell(CellValue(rec[c]))
	}
	return out
}

var numberPattern = regexp.MustCompile(`^-?[\d,]*\.?\d+$`)

// sanitizeCell neutralises values a spreadsheet would evaluate as a formula.
func sanitizeCell(s string) string {
	if s == "" || numberPattern.MatchString(s) {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
	multiUnderscore = regexp.MustCompile(`_{2,}`)
)

// SanitizeFilename replaces anything but letters, digits, hyphen and
// underscore with "_", collapses runs and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "rates"
	}
	return s
}

// BuildFilename returns a Content-Disposition filename of the form
// {name}_{YYYY-MM-DD}.{ext}.
func BuildFilename(name string, format domain.ExportFormat) string {
	return fmt.Sprintf("%s_%s.%s", SanitizeFilename(name), time.Now().Format("2006-01-02"), format)
}
