package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateDocument signals that a collection already exists for the
	// content hash. Callers branch to loading existing history instead of
	// re-ingesting.
	ErrDuplicateDocument = errors.New("document already ingested")

	// ErrUnreadableDocument signals that the input bytes are not a parseable
	// document.
	ErrUnreadableDocument = errors.New("unreadable document")

	// ErrNoSearchableContent signals that segmentation produced zero chunks,
	// so there is nothing to index or search.
	ErrNoSearchableContent = errors.New("no searchable content in document")

	// ErrCollectionNotFound signals a query or delete against a collection
	// that does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrProviderMismatch signals that a collection was built with a
	// different embedding provider than the one configured now.
	ErrProviderMismatch = errors.New("embedding provider mismatch")

	// ErrDocumentNotFound signals a chat store lookup for an unknown
	// content hash.
	ErrDocumentNotFound = errors.New("document not found")
)

// ProviderError wraps a failure on the embedding path. Retryable marks
// transient network or rate-limit failures; malformed responses and auth
// failures are not retryable.
type ProviderError struct {
	Provider  string
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string {
	if e.Retryable {
		return fmt.Sprintf("provider %s: %v (retryable)", e.Provider, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
