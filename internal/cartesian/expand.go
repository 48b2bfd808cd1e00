package cartesian

import (
	"sort"
	"strings"

	"freightrates/internal/domain"
)

// ExpandRow returns the cartesian product of the values of every cell in row.
// The number of rows returned equals Count(row).
func ExpandRow(row domain.Row) []domain.Row {
	options := make([][]string, len(row))
	for i, cell := range row {
		options[i] = SplitValues(cell)
	}

	out := []domain.Row{{}}
	for _, values := range options {
		next := make([]domain.Row, 0, len(out)*len(values))
		for _, prefix := range out {
			for _, v := range values {
				r := make(domain.Row, len(prefix), len(prefix)+1)
				copy(r, prefix)
				next = append(next, append(r, v))
			}
		}
		out = next
	}
	return out
}

// expandFields are the record keys, compared case-insensitively, whose
// multi-value strings are expanded.
var expandFields = map[string]int{"pol": 0, "pod": 1, "pdl": 2}

// ExpandRecord splits multi-value POL/POD/PDL fields and returns one record per
// combination, holding all other fields constant. A record without
// multi-value target fields is returned unchanged as a single element.
func ExpandRecord(rec domain.Record) []domain.Record {
	type field struct {
		key    string
		values []string
	}
	var multi []field
	for key, val := range rec {
		if _, ok := expandFields[strings.ToLower(key)]; !ok {
			continue
		}
		s, ok := val.(string)
		if !ok {
			continue
		}
		if values := SplitValues(s); len(values) > 1 {
			multi = append(multi, field{key: key, values: values})
		}
	}
	if len(multi) == 0 {
		return []domain.Record{rec}
	}

	sort.Slice(multi, func(i, j int) bool {
		oi, oj := expandFields[strings.ToLower(multi[i].key)], expandFields[strings.ToLower(multi[j].key)]
		if oi != oj {
			return oi < oj
		}
		return multi[i].key < multi[j].key
	})

	out := []domain.Record{cloneRecord(rec)}
	for _, f := range multi {
		next := make([]domain.Record, 0, len(out)*len(f.values))
		for _, base := range out {
			for _, v := range f.values {
				r := cloneRecord(base)
				r[f.key] = v
				next = append(next, r)
			}
		}
		out = next
	}
	return out
}

// ExpandResult expands every record in every bucket of result.
func ExpandResult(result *domain.ExtractionResult) *domain.ExtractionResult {
	return &domain.ExtractionResult{
		Prices:         expandAll(result.Prices),
		SurchargeItems: expandAll(result.SurchargeItems),
		OtherRemarks:   expandAll(result.OtherRemarks),
	}
}

func expandAll(records []domain.Record) []domain.Record {
	out := make([]domain.Record, 0, len(records))
	for _, rec := range records {
		out = append(out, ExpandRecord(rec)...)
	}
	return out
}

func cloneRecord(rec domain.Record) domain.Record {
	c := make(domain.Record, len(rec))
	for k, v := range rec {
		c[k] = v
	}
	return c
}
