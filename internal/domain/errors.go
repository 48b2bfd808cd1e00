package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrUploadFailed        = errors.New("file upload to storage failed")
	ErrEmptyDocument       = errors.New("document has no content")
	ErrInvalidStrategy     = errors.New("invalid batch strategy")
	ErrInvalidExportFormat = errors.New("invalid export format")
	ErrJobNotFound         = errors.New("parse job not found")
	ErrJobNotFinished      = errors.New("parse job has not completed")
	ErrJobNotRetryable     = errors.New("parse job is not in a retryable state")
	ErrRecognitionFailed   = errors.New("document recognition failed")
	ErrExtractorNotReady   = errors.New("extraction service is not configured")
)
