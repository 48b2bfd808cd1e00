package domain

// TableType is the business meaning assigned to a section.
type TableType string

const (
	TableTypePrice     TableType = "price"
	TableTypeSurcharge TableType = "surcharge"
	TableTypeRemark    TableType = "remark"
	TableTypeUnknown   TableType = "unknown"
)

// ParseTableType maps a free-form label (as returned by clustering) to a TableType.
func ParseTableType(s string) TableType {
	switch TableType(s) {
	case TableTypePrice, TableTypeSurcharge, TableTypeRemark:
		return TableType(s)
	default:
		return TableTypeUnknown
	}
}

// BatchStrategy selects how section rows are grouped into extraction calls.
type BatchStrategy string

const (
	// StrategyRisk sizes batches from each row's cartesian risk tier.
	StrategyRisk BatchStrategy = "risk"
	// StrategyFixed sends rows in fixed-size batches with no risk check.
	StrategyFixed BatchStrategy = "fixed"
)

// Valid reports whether s names a known strategy.
func (s BatchStrategy) Valid() bool {
	return s == StrategyRisk || s == StrategyFixed
}

// JobSource identifies where a parse job's markup came from.
type JobSource string

const (
	JobSourceEmail JobSource = "email"
	JobSourceFile  JobSource = "file"
)

// JobStatus represents the lifecycle of a parse job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// ExportFormat is a downloadable representation of a result.
type ExportFormat string

const (
	ExportXLSX ExportFormat = "xlsx"
	ExportCSV  ExportFormat = "csv"
)

// FileType represents the allowed file types for recognition uploads.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeJPG  FileType = "jpg"
	FileTypePNG  FileType = "png"
	FileTypeHTML FileType = "html"
)

// AllowedContentTypes maps MIME content types to FileType.
var AllowedContentTypes = map[string]FileType{
	"application/pdf": FileTypePDF,
	"image/jpeg":      FileTypeJPG,
	"image/png":       FileTypePNG,
	"text/html":       FileTypeHTML,
}

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"pdf":  FileTypePDF,
	"jpg":  FileTypeJPG,
	"jpeg": FileTypeJPG,
	"png":  FileTypePNG,
	"html": FileTypeHTML,
	"htm":  FileTypeHTML,
}
