// Package ordering maintains dense zero-based sort indices.
//
// Every function is pure: it takes a slice of Items and returns a new
// slice, never mutating its input. Callers persist the returned
// SortOrder values inside one store transaction, so readers only ever
// observe complete orderings.
//
// The same functions serve every ordered collection: the library
// partition of recipes and each (recipe, kind) child collection.
package ordering
