// Package store provides SQLite-backed durable storage for recipe collections.
//
// The store holds seven tables:
//   - owners: people recipes are attributed to
//   - recipes: the aggregate roots, partitioned by in_inbox
//   - ingredients, steps, ancestry_steps, photos: ordered children
//   - audio_notes: unordered children, read newest first
//
// # Ordering
//
// The store persists sort_order values but never computes them; callers
// derive them with package ordering and write them inside one Tx.
// Every list query carries a secondary "id COLLATE BINARY" key so results
// are deterministic even if two rows ever share a sort key.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Children cascade with their recipe
//   - One open connection: the store has a single writer
//
// Schema changes are versioned SQL files under migrations/, applied by
// golang-migrate when the store is opened.
package store
