package port

import "context"

// ExtractTask selects the instructions sent with a context.
type ExtractTask string

const (
	// TaskExtractRates turns a table batch into prices, surcharges and remarks.
	TaskExtractRates ExtractTask = "extract_rates"
	// TaskClusterTables regroups raw table grids into typed tables.
	TaskClusterTables ExtractTask = "cluster_tables"
)

// ExtractInput carries the text sent to the extraction service.
type ExtractInput struct {
	Task    ExtractTask
	Context string
}

// ExtractOutput is the raw reply of the extraction service. Content is
// expected to hold a JSON object but is not validated here.
type ExtractOutput struct {
	Content    string
	ModelUsed  string
	PromptUsed string
}

// ExtractionService abstracts the LLM-backed structured extraction call.
type ExtractionService interface {
	Extract(ctx context.Context, input ExtractInput) (*ExtractOutput, error)
}
