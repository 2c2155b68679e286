// Package store provides settings.Store and settings.Notifier
// implementations.
//
// Stores:
//
//   - MemoryStore: in process, optionally loaded from a seed file
//   - SQLiteStore: a local provider_settings table (modernc.org/sqlite)
//   - PostgresStore: the shared admin table, read only (lib/pq)
//
// Change feeds:
//
//   - MemoryStore itself
//   - SQLiteNotifier: fsnotify on the database file, diffing updated_at
//   - PostgresNotifier: LISTEN/NOTIFY through pq.Listener
//   - RedisNotifier: a pub/sub channel shared by gateway instances
//
// Notifications only shorten staleness. The resolver stays correct on TTL
// alone if a feed drops messages or goes away.
package store
