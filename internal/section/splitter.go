// Package section cuts a reconstructed grid into header+data sections.
package section

import (
	"strings"
	"unicode/utf8"

	"freightrates/internal/config"
	"freightrates/internal/domain"
)

const (
	// sparseCellLimit is the most non-empty cells a row may have and still be
	// treated as a title or header fragment.
	sparseCellLimit = 2
	shortCellRunes  = 15
	shortCellRatio  = 0.7
)

// Splitter classifies grid rows as header or data and partitions grids.
type Splitter struct {
	keywords   []string
	indicators []string
}

// NewSplitter creates a Splitter from the configured keyword sets.
func NewSplitter(cfg *config.TableConfig) *Splitter {
	s := &Splitter{}
	for _, k := range cfg.HeaderKeywords {
		s.keywords = append(s.keywords, strings.ToLower(k))
	}
	for _, k := range cfg.HeaderIndicators {
		s.indicators = append(s.indicators, strings.ToUpper(k))
	}
	return s
}

// IsHeaderRow applies the header heuristics in order: sparse rows, header
// keywords, mostly-short labels, then header indicator tokens.
func (s *Splitter) IsHeaderRow(row domain.Row) bool {
	var cells []string
	for _, c := range row {
		if c = strings.TrimSpace(c); c != "" {
			cells = append(cells, c)
		}
	}
	if len(cells) == 0 {
		return false
	}
	if len(cells) <= sparseCellLimit {
		return true
	}

	text := strings.Join(cells, " ")
	lower := strings.ToLower(text)
	for _, k := range s.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}

	short := 0
	for _, c := range cells {
		if utf8.RuneCountInString(c) <= shortCellRunes {
			short++
		}
	}
	if float64(short)/float64(len(cells)) >= shortCellRatio {
		return true
	}

	upper := strings.ToUpper(text)
	for _, k := range s.indicators {
		if strings.Contains(upper, k) {
			return true
		}
	}
	return false
}

// Split partitions grid into sections. Each header row opens a new section;
// rows before the first header form a headerless section. Every grid row
// ends up in exactly one section, in order.
func (s *Splitter) Split(grid domain.Grid) []domain.Section {
	var sections []domain.Section
	var current domain.Section
	for _, row := range grid {
		if s.IsHeaderRow(row) {
			if current.RowCount() > 0 {
				sections = append(sections, current)
			}
			current = domain.Section{HeaderRows: []domain.Row{row}}
			continue
		}
		current.DataRows = append(current.DataRows, row)
	}
	if current.RowCount() > 0 {
		sections = append(sections, current)
	}
	return sections
}
