// Package comic provides the sync use case: it loads the comic index from the
// cache and runs every comic's feed, page and notification pipeline concurrently,
// collecting failures instead of aborting on them.
package comic

import "errors"

// Sentinel errors for comic use case operations.
var (
	// ErrInvalidIndex indicates that the cache index slot is missing, is not
	// JSON, or is not a JSON array. It aborts the run before any comic is processed.
	ErrInvalidIndex = errors.New("invalid comic index")

	// ErrPipelinePanic indicates that a comic pipeline panicked.
	// The panic is recovered and reported like any other comic failure.
	ErrPipelinePanic = errors.New("comic pipeline panicked")

	// ErrIndexRejected indicates an import with invalid records that was not forced.
	ErrIndexRejected = errors.New("index import rejected")
)
