// Package repository is the single mutation surface of the recipe collection.
//
// Every mutation follows the same shape:
//
//  1. Validate caller input (no lock, no transaction).
//  2. Take the single-writer lock and open one store transaction.
//  3. Check preconditions against committed state, compute new sort
//     orders with package ordering, write them.
//  4. Commit, then reload the library and inbox views in full and publish
//     them as a new immutable Snapshot.
//
// Validation and precondition failures return before anything is written.
// A failed transaction is rolled back and the published snapshot is left
// untouched. File cleanup (audio notes) happens outside the transaction;
// its failures are logged and counted but never undo a committed delete.
//
// # Reads
//
// Snapshot() returns the last published views without locking. Aggregate()
// reads one recipe with all of its children and is served from an LRU cache
// that every committed mutation purges.
//
// # Change notification
//
// Subscribe() returns a Subscription that receives one ChangeEvent per
// published snapshot, in publish order. Slow subscribers never block
// mutations; their queue grows until drained or closed.
package repository
