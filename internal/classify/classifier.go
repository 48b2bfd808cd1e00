// Package classify assigns a business meaning to a table section.
package classify

import (
	"regexp"
	"strings"

	"freightrates/internal/config"
	"freightrates/internal/domain"
)

const (
	sampleRows          = 5
	priceMatrixCells    = 10
	remarkMaxNumeric    = 3
	remarkMaxHeaderCols = 1
)

var containerPattern = regexp.MustCompile(`\b(20|40|45)\s*(gp|hq|hc|rf|nor|hr)\b`)

// Scores are the per-category totals behind a classification.
type Scores struct {
	Price     int `json:"price"`
	Surcharge int `json:"surcharge"`
	Remark    int `json:"remark"`
}

// Classification is the outcome of scoring one section.
type Classification struct {
	Type         domain.TableType `json:"type"`
	Scores       Scores           `json:"scores"`
	NumericCells int              `json:"numeric_cells"`
}

// Classifier scores sections against structural and keyword signals.
type Classifier struct {
	priceKeywords     []string
	surchargeKeywords []string
	surchargePhrases  []string
}

// NewClassifier creates a Classifier from the configured keyword sets.
func NewClassifier(cfg *config.TableConfig) *Classifier {
	return &Classifier{
		priceKeywords:     lowerAll(cfg.PriceKeywords),
		surchargeKeywords: lowerAll(cfg.SurchargeKeywords),
		surchargePhrases:  lowerAll(cfg.SurchargePhrases),
	}
}

// Classify scores sec and returns the winning type. Ties go to Price, then
// Surcharge, then Remark; all-zero scores give Unknown.
func (c *Classifier) Classify(sec *domain.Section) Classification {
	headerText := strings.ToLower(joinRows(sec.HeaderRows))
	sample := sec.DataRows
	if len(sample) > sampleRows {
		sample = sample[:sampleRows]
	}
	text := headerText + " " + strings.ToLower(joinRows(sample))

	var s Scores
	if containerPattern.MatchString(headerText) {
		s.Price += 2
		s.Surcharge++
	}
	if containsAny(text, c.surchargePhrases) {
		s.Surcharge++
	}

	numeric := 0
	for _, row := range sample {
		for _, cell := range row {
			if isNumericCell(cell) {
				numeric++
			}
		}
	}
	if numeric >= priceMatrixCells {
		s.Price++
	}
	if containsAny(headerText, c.priceKeywords) {
		s.Price += 2
	}
	if containsAny(headerText, c.surchargeKeywords) {
		s.Surcharge++
	}
	if headerColumns(sec.HeaderRows) <= remarkMaxHeaderCols && numeric < remarkMaxNumeric {
		s.Remark += 3
	}

	return Classification{Type: s.winner(), Scores: s, NumericCells: numeric}
}

// winner picks the first category holding the maximum score.
func (s Scores) winner() domain.TableType {
	best, bestType := s.Price, domain.TableTypePrice
	if s.Surcharge > best {
		best, bestType = s.Surcharge, domain.TableTypeSurcharge
	}
	if s.Remark > best {
		best, bestType = s.Remark, domain.TableTypeRemark
	}
	if best == 0 {
		return domain.TableTypeUnknown
	}
	return bestType
}

// isNumericCell reports whether cell is all digits once currency symbols,
// thousands separators and decimal points are removed.
func isNumericCell(cell string) bool {
	stripped := strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', '¥', ',', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(cell))
	if stripped == "" {
		return false
	}
	for _, r := range stripped {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// headerColumns counts distinct non-empty header values; a title merged
// across the whole width counts once.
func headerColumns(rows []domain.Row) int {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for _, cell := range row {
			if cell = strings.TrimSpace(cell); cell != "" {
				seen[cell] = struct{}{}
			}
		}
	}
	return len(seen)
}

func joinRows(rows []domain.Row) string {
	parts := make([]string, 0, len(rows))
	for _, row := range rows {
		parts = append(parts, strings.Join(row, " "))
	}
	return strings.Join(parts, " ")
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
