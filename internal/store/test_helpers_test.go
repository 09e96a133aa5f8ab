package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/tomioM/recipe-voyage-sub000/internal/model"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// createTestRecipe creates a library recipe with minimal required fields.
func createTestRecipe(id string, sortOrder int) model.Recipe {
	return model.Recipe{
		ID:        id,
		Title:     "Recipe " + id,
		Style:     model.DefaultStyle(),
		SortOrder: sortOrder,
		CreatedAt: baseTime,
	}
}

// createTestInboxRecipe creates an inbox recipe created offset after baseTime.
func createTestInboxRecipe(id, sender string, offset time.Duration) model.Recipe {
	return model.Recipe{
		ID:         id,
		Title:      "Recipe " + id,
		Style:      model.DefaultStyle(),
		InInbox:    true,
		CreatedAt:  baseTime.Add(offset),
		SenderName: sender,
	}
}
