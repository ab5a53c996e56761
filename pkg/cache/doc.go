// Package cache provides the persisted key-value store used for the
// destination country and the postage record collection.
//
// Two backends implement Store:
//
// - RedisStore: shared, durable store for the long-running proxy
// - SQLiteStore: single-file store for the local CLI
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	store := cache.NewRedisStore(redisClient)
//
//	key := cache.Key{Namespace: "postage", Name: "postage-values"}
//	data, err := store.Get(ctx, key.String())
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// nothing stored yet
//	}
//
// Values are opaque bytes; callers own the encoding (JSON in this module).
// Reads and writes are not transactional: a read-modify-write by two callers
// may lose one update.
//
// # Metrics
//
//   - cmfeed_store_hits_total{backend} - Store hits
//   - cmfeed_store_misses_total{backend} - Store misses
//   - cmfeed_store_errors_total{backend,operation} - Store operation errors
package cache
