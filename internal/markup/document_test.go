package markup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightrates/internal/domain"
	"freightrates/internal/markup"
)

const rateMail = `<html><head><style>td { color: red; }</style></head><body>
<p>Dear customer, please find our rates below.</p>
<table>
  <thead><tr><th>POL</th><th>POD</th><th>20GP</th></tr></thead>
  <tbody>
    <tr><td rowspan="2">Shanghai<br>Ningbo</td><td>Los   Angeles</td><td>1500</td></tr>
    <tr><td>Long Beach</td><td>1600</td></tr>
  </tbody>
</table>
<p>Rates &amp; surcharges subject to change.</p>
<script>var tracking = 1;</script>
</body></html>`

func TestParse_TablesAndText(t *testing.T) {
	doc, err := markup.Parse(rateMail)
	require.NoError(t, err)

	require.Len(t, doc.Tables, 1)
	assert.Equal(t, 0, doc.Tables[0].Index)
	assert.Equal(t, domain.Grid{
		{"POL", "POD", "20GP"},
		{"Shanghai/Ningbo", "Los Angeles", "1500"},
		{"Shanghai/Ningbo", "Long Beach", "1600"},
	}, doc.Tables[0].Grid)

	assert.Equal(t, []string{
		"Dear customer, please find our rates below.",
		"Rates & surcharges subject to change.",
	}, doc.Texts)
}

func TestParse_RowsWithoutTbodyWrapper(t *testing.T) {
	// Fragments assembled by hand often omit tbody; the parser inserts it.
	doc, err := markup.Parse(`<table><tr><td>POL</td><td>POD</td></tr><tr><td>Tianjin</td><td>Busan</td></tr></table>`)
	require.NoError(t, err)

	require.Len(t, doc.Tables, 1)
	assert.Equal(t, domain.Grid{{"POL", "POD"}, {"Tianjin", "Busan"}}, doc.Tables[0].Grid)
}

func TestParse_NestedTablesKeepTheirOwnRows(t *testing.T) {
	doc, err := markup.Parse(`<table><tr><td>Outer<table><tr><td>Inner A</td><td>Inner B</td></tr></table></td><td>Side</td></tr></table>`)
	require.NoError(t, err)

	require.Len(t, doc.Tables, 2)
	assert.Equal(t, domain.Grid{{"Outer", "Side"}}, doc.Tables[0].Grid)
	assert.Equal(t, 1, doc.Tables[1].Index)
	assert.Equal(t, domain.Grid{{"Inner A", "Inner B"}}, doc.Tables[1].Grid)
}

func TestParse_SkipsEmptyTables(t *testing.T) {
	doc, err := markup.Parse(`<table><tr><td> </td></tr></table><table><tr><td>POL</td></tr></table>`)
	require.NoError(t, err)

	require.Len(t, doc.Tables, 1)
	assert.Equal(t, 1, doc.Tables[0].Index)
}

func TestParse_EmptyInput(t *testing.T) {
	doc, err := markup.Parse("   \n ")
	require.NoError(t, err)
	assert.Empty(t, doc.Tables)
	assert.Empty(t, doc.Texts)
}

func TestParse_DropsTagFragmentsAndDuplicates(t *testing.T) {
	doc, err := markup.Parse(`<div><p>Valid until end of month</p></div><p>Valid until  end of month</p><p>//</p><p>span</p>`)
	require.NoError(t, err)

	assert.Equal(t, []string{"Valid until end of month"}, doc.Texts)
}

func TestTruncateThread_KeepsFirstQuotedMessage(t *testing.T) {
	html := `<p>FYI see below</p>` +
		`<p>From: ops@carrier.com Date: 2024-03-01</p><table><tr><td>New rates</td></tr></table>` +
		`<p>From: sales@carrier.com Date: 2024-02-01</p><table><tr><td>Old rates</td></tr></table>`

	got := markup.TruncateThread(html)

	assert.True(t, len(got) > 0)
	assert.Contains(t, got, "New rates")
	assert.NotContains(t, got, "Old rates")
	assert.NotContains(t, got, "FYI see below")
	assert.Regexp(t, `^From: ops@carrier\.com`, got)
}

func TestTruncateThread_SingleHeaderUnchanged(t *testing.T) {
	html := `<p>From: ops@carrier.com Date: 2024-03-01</p><table><tr><td>Rates</td></tr></table>`
	assert.Equal(t, html, markup.TruncateThread(html))
}

func TestTruncateThread_NoHeaders(t *testing.T) {
	html := `<table><tr><td>POL</td></tr></table>`
	assert.Equal(t, html, markup.TruncateThread(html))
}
