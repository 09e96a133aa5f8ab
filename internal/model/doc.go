// Package model defines the recipe aggregate and its value types.
//
// This package contains type definitions, boundary validation and the
// error taxonomy only. All other internal packages import model; model
// imports nothing internal.
//
// Key design constraints:
//   - A recipe is in exactly one partition: library (InInbox == false) or inbox
//   - SortOrder is meaningful only for library recipes and ordered children
//   - Audio notes carry no SortOrder; newest first is their canonical order
//   - User-entered text is NFC normalized before it reaches the store
package model
