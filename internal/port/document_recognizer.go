package port

import "context"

// DocumentRecognizer converts a remotely reachable document (PDF or image)
// into markup text, with tables rendered as HTML.
type DocumentRecognizer interface {
	Recognize(ctx context.Context, fileURL string) (string, error)
}
