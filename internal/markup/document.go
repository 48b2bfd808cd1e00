package markup

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"freightrates/internal/domain"
)

// Table is one reconstructed table with its position among the document's tables.
type Table struct {
	Index int
	Grid  domain.Grid
}

// Document is the parsed content of one e-mail body.
type Document struct {
	Tables []Table
	Texts  []string
}

const blockSelector = "p, div, li, blockquote, section, article, h1, h2, h3, h4, h5, h6, pre"

var (
	textPolicy  = bluemonday.StrictPolicy()
	tagFragment = regexp.MustCompile(`^[</>]*[a-zA-Z]+[</>]*$`)
)

// Parse cleans the markup and returns its tables as grids plus the
// meaningful text blocks found outside tables. Empty input yields an empty
// document.
func Parse(markup string) (*Document, error) {
	if strings.TrimSpace(markup) == "" {
		return &Document{}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parsing markup: %w", err)
	}
	Clean(doc)

	return &Document{
		Tables: ExtractTables(doc),
		Texts:  extractTextBlocks(doc),
	}, nil
}

// Clean drops non-content elements and turns line breaks into "/" so that
// multi-line cells read as delimiter-joined values.
func Clean(doc *goquery.Document) {
	doc.Find("script, style, meta, link, noscript").Remove()
	doc.Find("br").ReplaceWithHtml("/")
}

// ExtractTables reconstructs every table in document order. Tables whose
// grid is empty are skipped; Index still counts them.
func ExtractTables(doc *goquery.Document) []Table {
	var tables []Table
	doc.Find("table").Each(func(i int, table *goquery.Selection) {
		grid := BuildGrid(rawRows(table))
		if len(grid) == 0 {
			return
		}
		tables = append(tables, Table{Index: i, Grid: grid})
	})
	return tables
}

// rawRows collects the rows owned by table, whether they sit under
// thead/tbody/tfoot or directly under the table element. Rows of nested
// tables are left to those tables.
func rawRows(table *goquery.Selection) [][]RawCell {
	owner := table.Get(0)
	var rows [][]RawCell
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if owningTable(tr.Get(0)) != owner {
			return
		}
		var cells []RawCell
		tr.ChildrenFiltered("td, th").Each(func(_ int, cell *goquery.Selection) {
			rowSpan, _ := cell.Attr("rowspan")
			colSpan, _ := cell.Attr("colspan")
			cells = append(cells, RawCell{
				Text:    cellText(cell.Get(0)),
				RowSpan: rowSpan,
				ColSpan: colSpan,
			})
		})
		rows = append(rows, cells)
	})
	return rows
}

func owningTable(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.DataAtom == atom.Table {
			return p
		}
	}
	return nil
}

// cellText returns the whitespace-collapsed text of a cell, excluding any
// tables nested inside it.
func cellText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				b.WriteString(c.Data)
			case html.ElementNode:
				if c.DataAtom == atom.Table {
					b.WriteByte(' ')
					continue
				}
				walk(c)
				if isBlockAtom(c.DataAtom) {
					b.WriteByte(' ')
				}
			}
		}
	}
	walk(n)
	return collapseSpace(b.String())
}

func isBlockAtom(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.Blockquote, atom.Section, atom.Article,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Pre, atom.Ul, atom.Ol:
		return true
	}
	return false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// extractTextBlocks returns de-duplicated text blocks outside tables.
func extractTextBlocks(doc *goquery.Document) []string {
	body := doc.Find("body").Clone()
	body.Find("table").Remove()
	body.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	inner, err := body.Html()
	if err != nil {
		return nil
	}

	text := html.UnescapeString(textPolicy.Sanitize(inner))
	seen := make(map[string]bool)
	var blocks []string
	for _, line := range strings.Split(text, "\n") {
		line = collapseSpace(line)
		if !isMeaningful(line) {
			continue
		}
		key := strings.ReplaceAll(line, " ", "")
		if seen[key] {
			continue
		}
		seen[key] = true
		blocks = append(blocks, line)
	}
	return blocks
}

// isMeaningful rejects symbol-only fragments and lone words that look like
// leftover tag names.
func isMeaningful(s string) bool {
	if !strings.ContainsFunc(s, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) {
		return false
	}
	return !tagFragment.MatchString(s)
}
