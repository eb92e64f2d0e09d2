package notify

import (
	"context"
	"fmt"
	"time"

	"comic-notifier/internal/domain/entity"
	"comic-notifier/internal/repository"
)

// cacheTimeLayout is the layout of delivery times stored in the cache.
const cacheTimeLayout = time.RFC3339Nano

// FormatCacheTime renders t the way delivery times are stored.
func FormatCacheTime(t time.Time) string {
	return t.UTC().Format(cacheTimeLayout)
}

// ParseCacheTime parses a stored delivery time.
func ParseCacheTime(value string) (time.Time, error) {
	t, err := time.Parse(cacheTimeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %v", ErrInvalidCacheValue, value, err)
	}
	return t, nil
}

// ReadCachedDates fetches the delivery times of keys with a single batch read.
//
// Keys that are absent, or whose value cannot be parsed, are missing from the
// result. Callers treat a missing key as "never notified".
func ReadCachedDates(ctx context.Context, store repository.KVStore, keys []string) (map[string]time.Time, error) {
	values, err := store.GetMany(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("ReadCachedDates: GetMany: %w", err)
	}

	dates := make(map[string]time.Time, len(values))
	for key, value := range values {
		t, err := ParseCacheTime(value)
		if err != nil {
			continue
		}
		dates[key] = t
	}
	return dates, nil
}

// CachedDate is one entry of the delivery cache.
type CachedDate struct {
	Key  string
	Date time.Time
	// Err is set when the stored value is not a valid time.
	Err error
}

// ListCachedDates returns every delivery-time entry in key order.
// The index slot is skipped.
func ListCachedDates(ctx context.Context, store repository.KVStore) ([]CachedDate, error) {
	keys, err := store.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListCachedDates: ListKeys: %w", err)
	}

	filtered := make([]string, 0, len(keys))
	for _, key := range keys {
		if key != entity.IndexKey {
			filtered = append(filtered, key)
		}
	}
	if len(filtered) == 0 {
		return nil, nil
	}

	values, err := store.GetMany(ctx, filtered)
	if err != nil {
		return nil, fmt.Errorf("ListCachedDates: GetMany: %w", err)
	}

	out := make([]CachedDate, 0, len(filtered))
	for _, key := range filtered {
		value, ok := values[key]
		if !ok {
			continue
		}
		entry := CachedDate{Key: key}
		entry.Date, entry.Err = ParseCacheTime(value)
		out = append(out, entry)
	}
	return out, nil
}
