// Package cache stores cloud-function responses for a bounded time.
//
// Entries are keyed by a SHA256 digest of the function name and its
// parameters, so identical page requests issued within the TTL are served
// without a round trip. Two backends are provided:
//   - FileStore: JSON files under ~/.scan/cache/, one per key
//   - RedisStore: a shared Redis keyspace with native key expiry
//
// The cache belongs to the query collaborator. Page state never reads it
// directly.
package cache
