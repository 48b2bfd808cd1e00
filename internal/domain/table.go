package domain

// Row is an ordered sequence of cell texts.
type Row []string

// Grid is a rectangular table: every row has the same number of cells.
type Grid []Row

// Width returns the column count of the grid, or 0 when it is empty.
func (g Grid) Width() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// Section is a contiguous header+data sub-table cut out of one grid.
type Section struct {
	ID         string    `json:"id"`
	HeaderRows []Row     `json:"header_rows"`
	DataRows   []Row     `json:"data_rows"`
	Type       TableType `json:"table_type"`
}

// RowCount returns the number of header and data rows.
func (s *Section) RowCount() int {
	return len(s.HeaderRows) + len(s.DataRows)
}

// Record is an open field-name to value mapping returned by the extraction service.
type Record map[string]interface{}

// ExtractionResult holds records partitioned by semantic bucket.
type ExtractionResult struct {
	Prices         []Record `json:"prices"`
	SurchargeItems []Record `json:"surchargeItems"`
	OtherRemarks   []Record `json:"otherRemarks"`
}

// NewExtractionResult returns a result with non-nil empty buckets, so it
// serialises as three empty arrays.
func NewExtractionResult() *ExtractionResult {
	return &ExtractionResult{
		Prices:         []Record{},
		SurchargeItems: []Record{},
		OtherRemarks:   []Record{},
	}
}

// Merge appends other's records to r.
func (r *ExtractionResult) Merge(other *ExtractionResult) {
	if other == nil {
		return
	}
	r.Prices = append(r.Prices, other.Prices...)
	r.SurchargeItems = append(r.SurchargeItems, other.SurchargeItems...)
	r.OtherRemarks = append(r.OtherRemarks, other.OtherRemarks...)
}

// Total returns the number of records across all buckets.
func (r *ExtractionResult) Total() int {
	return len(r.Prices) + len(r.SurchargeItems) + len(r.OtherRemarks)
}

// Bucket names used by export and the API.
const (
	BucketPrices     = "prices"
	BucketSurcharges = "surcharges"
	BucketRemarks    = "remarks"
)

// Bucket returns the records for a bucket name, and false for an unknown name.
func (r *ExtractionResult) Bucket(name string) ([]Record, bool) {
	switch name {
	case BucketPrices:
		return r.Prices, true
	case BucketSurcharges:
		return r.SurchargeItems, true
	case BucketRemarks:
		return r.OtherRemarks, true
	default:
		return nil, false
	}
}
