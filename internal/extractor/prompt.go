package extractor

import (
	"strings"

	"freightrates/internal/port"
)

const defaultExtractPrompt = `You are a freight-rate extraction model. Extract structured data from the ocean carrier rate e-mail excerpt below.
Return a single JSON object with exactly three keys: "prices", "surchargeItems", "otherRemarks". Do not omit rows and do not invent values.

prices: one object per rate line with the fields
  POL, POLCode, POD, PODCode, PDL, VIA, VIACode, Shipper, Dock, SailingSchedule, Voyaga, Currency,
  F20GP, F40GP, F40HQ, F45HQ, F40NOR, F40HR, StartTime, OverTime, Remark
- POL/POD/PDL hold English port or place names; several values are joined with "/" (e.g. "Shekou/Qinzhou").
- Keep the final inland point in PDL, never in POD. Use null for a POL that cannot be found.
- Container rates are integers in the given currency (default USD); dates use YYYY-MM-DD.
- Anything that does not fit a field goes into Remark.

surchargeItems: objects {"name": "...", "content": "..."} for every additional charge, surcharge, on-top or accessorial
  item (CSS, HCS, PNC, FAF, BUC, ISPS, THC, BAF, ...). content summarises ports, container types, amounts and terms.

otherRemarks: objects {"content": "...", "category": "policy|notice|warning|etc"} for every other relevant statement.

Input:
`

const defaultClusterPrompt = `You are given raw tables reconstructed from a freight-rate e-mail. Rows may belong to different logical tables
(price matrices, surcharge lists, remarks). Regroup them without changing any cell text.
Return a single JSON object {"tables": [{"header": ["..."], "data": [["..."]], "data_type": "price|surcharge|remark"}]}.
Every input data row must appear in exactly one output table.

Input:
`

// PromptSet holds the instruction text for each extraction task.
type PromptSet struct {
	Extract string
	Cluster string
}

// DefaultPrompts returns the built-in instruction text.
func DefaultPrompts() PromptSet {
	return PromptSet{Extract: defaultExtractPrompt, Cluster: defaultClusterPrompt}
}

// WithOverrides replaces any prompt for which a non-empty override is given.
func (p PromptSet) WithOverrides(extract, cluster string) PromptSet {
	if strings.TrimSpace(extract) != "" {
		p.Extract = extract
	}
	if strings.TrimSpace(cluster) != "" {
		p.Cluster = cluster
	}
	return p
}

// Build returns the full prompt for a task: instructions followed by context.
func (p PromptSet) Build(task port.ExtractTask, context string) string {
	instructions := p.Extract
	if task == port.TaskClusterTables {
		instructions = p.Cluster
	}
	return instructions + context
}
