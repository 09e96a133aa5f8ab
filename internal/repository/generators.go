package repository

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies creation timestamps.
type Clock interface {
	Now() time.Time
}

// IDGenerator mints entity identifiers. Identifiers are never reused.
type IDGenerator interface {
	Generate() string
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers.
//
// UUIDv7 embeds a timestamp in the most significant bits, so ids sort by
// creation time. Sort ties in the store break on id, which keeps that
// tie-break close to insertion order.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
