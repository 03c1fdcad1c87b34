// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package cache provides thread-safe in-memory caching and deduplication
structures.

Two independent concerns live here:

  - Cache: a simple TTL-based key/value cache for memoizing read-side HTTP
    responses. Used by internal/query to avoid re-scanning the analytical
    store on every identical list request.

  - DeduplicationCache (ExactLRU, BloomLRU), backed by LRUCache: bounded,
    TTL-aware idempotency sets for message-id deduplication. Used by
    internal/processor to enforce at-least-once queue delivery collapses to
    effectively-once processing.

# Cache Usage

	c := cache.New(5 * time.Minute)
	c.Set("runs:limit=50:offset=0", page)
	if cached, ok := c.Get("runs:limit=50:offset=0"); ok {
	    return cached.(runsPage)
	}

Cache has no maximum size and no LRU eviction; it's meant for small,
short-lived response caches, not unbounded key spaces.

# Deduplication Usage

	seen := cache.NewExactLRU(200000, 24*time.Hour) // zero false positives
	// or: cache.NewBloomLRU(200000, 24*time.Hour, 0.01) // bounded memory, ~1% FP

	if seen.Contains(msg.ID) {
	    return // already processed
	}
	// ... process msg ...
	seen.Record(msg.ID)

ExactLRU trades memory for correctness: every key is stored in full. BloomLRU
trades a small false-positive rate for materially lower memory at very high
key cardinality, using a Bloom filter as a fast-reject prefilter in front of
the same LRU.

# See Also

  - internal/processor: idempotency set construction (cache.DeduplicationCache)
  - internal/query: response cache (cache.Cache)
*/
package cache
