package comic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"comic-notifier/internal/domain/entity"
	"comic-notifier/internal/pkg/errcollect"
	"comic-notifier/internal/repository"
)

// Batch is the set of comics of one run together with every failure seen so far.
// Comics keeps index order and holds only successfully validated configs.
type Batch struct {
	Comics []entity.ComicConfig
	Errors *errcollect.Collector
}

// LoadIndex reads the comic index from the cache and validates every record.
//
// A missing index, an index that is not JSON, or one that is not a JSON array
// fails with ErrInvalidIndex. Records that fail validation are collected into
// Batch.Errors and the remaining records are still loaded.
func LoadIndex(ctx context.Context, store repository.KVStore) (*Batch, error) {
	raw, ok, err := store.Get(ctx, entity.IndexKey)
	if err != nil {
		return nil, fmt.Errorf("LoadIndex: Get: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q key not found", ErrInvalidIndex, entity.IndexKey)
	}

	records, err := parseIndex([]byte(raw))
	if err != nil {
		return nil, err
	}

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
	return batch, nil
}

// parseIndex splits the index into raw records without interpreting them.
func parseIndex(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: error parsing index: expected a JSON array", ErrInvalidIndex)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("%w: error parsing index: %v", ErrInvalidIndex, err)
	}
	return records, nil
}
