// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

/*
Package cache provides a thread-safe in-memory cache with TTL expiration.

It backs the recommendation engine's response cache and the API's analytics
cache. Entries expire lazily on Get and are swept by a background goroutine
that stops when Close is called.

# Keys

GenerateKey hashes a method name and a JSON-serializable parameter value into
a compact key, so structurally equal requests share an entry:

	key := cache.GenerateKey("recommend", req)
	if resp, ok := c.Get(key); ok {
	    return resp, nil
	}

# Invalidation

Clear drops every entry at once. The engine calls it after each snapshot
rebuild so stale rankings are never served.
*/
package cache
