package store

import lru "github.com/hashicorp/golang-lru/v2"

// Deduper drops retried deliveries of server-assigned notification ids.
//
// Duplicate ids are legal on the wire (the server is authoritative on id
// content, not uniqueness), so deduplication is opt-in and windowed: only the
// most recent window of ids is remembered.
type Deduper struct {
	cache *lru.Cache[string, struct{}]
}

// NewDeduper returns a Deduper remembering the last window ids.
func NewDeduper(window int) (*Deduper, error) {
	cache, err := lru.New[string, struct{}](window)
	if err != nil {
		return nil, err
	}
	return &Deduper{cache: cache}, nil
}

// Seen records id and reports whether it was already in the window.
// Locally generated ids never dedupe; only server-assigned ids are checked,
// and callers pass an empty id for records the server left unnamed.
func (d *Deduper) Seen(id string) bool {
	if d == nil || id == "" {
		return false
	}
	seen := d.cache.Contains(id)
	d.cache.Add(id, struct{}{})
	return seen
}
