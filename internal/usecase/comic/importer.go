package comic

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"comic-notifier/internal/domain/entity"
	"comic-notifier/internal/pkg/errcollect"
	"comic-notifier/internal/repository"

	"gopkg.in/yaml.v3"
)

// Index document formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// FormatFromPath guesses the document format from a file extension.
// Anything other than .yaml or .yml is treated as JSON.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// DecodeIndexDocument splits an index document into raw JSON records.
// YAML documents must hold a top-level sequence; each item is re-encoded
// as JSON so records go through the same validation as a cached index.
func DecodeIndexDocument(data []byte, format string) ([]json.RawMessage, error) {
	switch format {
	case FormatJSON:
		return parseIndex(data)
	case FormatYAML:
		var items []any
		if err := yaml.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("%w: error parsing YAML index: %v", ErrInvalidIndex, err)
		}
		if items == nil {
			return nil, fmt.Errorf("%w: error parsing YAML index: expected a sequence", ErrInvalidIndex)
		}
		records := make([]json.RawMessage, 0, len(items))
		for i, item := range items {
			raw, err := json.Marshal(item)
			if err != nil {
				return nil, fmt.Errorf("%w: item %d: %v", ErrInvalidIndex, i, err)
			}
			records = append(records, raw)
		}
		return records, nil
	default:
		return nil, fmt.Errorf("unknown index format %q", format)
	}
}

// ImportOptions control ImportIndex.
type ImportOptions struct {
	// Force stores the index even when some records are invalid. Invalid
	// records are skipped at sync time.
	Force bool
}

// ImportIndex validates records and writes them to the cache index slot.
//
// The returned Batch lists the valid comics and every record error. Without
// Force, any record error rejects the import with ErrIndexRejected and the
// cache is left untouched.
func ImportIndex(ctx context.Context, store repository.KVStore, records []json.RawMessage, opts ImportOptions) (*Batch, error) {
	batch := &Batch{
		Comics: make([]entity.ComicConfig, 0, len(records)),
		Errors: errcollect.New(),
	}
	for _, rec := range records {
		comic, err := entity.ParseComicConfig(rec)
		if err != nil {
			batch.Errors.Add(err)
			continue
		}
		batch.Comics = append(batch.Comics, comic)
	}

	if batch.Errors.Len() > 0 && !opts.Force {
		return batch, fmt.Errorf("%w: %d invalid records", ErrIndexRejected, batch.Errors.Len())
	}

	if records == nil {
		records = []json.RawMessage{}
	}
	encoded, err := json.Marshal(records)
	if err != nil {
		return batch, fmt.Errorf("ImportIndex: encode: %w", err)
	}
	if err := store.Put(ctx, entity.IndexKey, string(encoded)); err != nil {
		return batch, fmt.Errorf("ImportIndex: Put: %w", err)
	}
	return batch, nil
}
