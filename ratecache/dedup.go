package ratecache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Deduplicator collapses concurrent fetches for the same normalized key
// into a single upstream call. Callers arriving while a fetch is in
// flight receive the same eventual result; once the fetch settles, the
// in-flight record is dropped regardless of outcome, so a later call with
// the same key starts fresh.
type Deduplicator[V any] struct {
	group singleflight.Group
}

// NewDeduplicator constructs an empty Deduplicator.
func NewDeduplicator[V any]() *Deduplicator[V] {
	return &Deduplicator[V]{}
}

// Do executes fetch for key, deduplicating concurrent callers. The shared
// return reports whether this caller received a result produced by another
// caller's fetch.
func (d *Deduplicator[V]) Do(ctx context.Context, key string, fetch func(ctx context.Context) (V, error)) (V, bool, error) {
	v, err, shared := d.group.Do(key, func() (interface{}, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero V
		return zero, shared, err
	}
	return v.(V), shared, nil
}
