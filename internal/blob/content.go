package blob

import (
	"context"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DetectingStore fills in a missing content type from the object bytes.
type DetectingStore struct {
	next ObjectStore
}

// WithDetection wraps next.
func WithDetection(next ObjectStore) *DetectingStore {
	return &DetectingStore{next: next}
}

func (s *DetectingStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = DetectContentType(data)
	}
	return s.next.Put(ctx, key, data, contentType)
}

// DetectContentType sniffs the MIME type of data, without parameters.
func DetectContentType(data []byte) string {
	ct, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	return strings.TrimSpace(ct)
}
