// Package store defines the transactional document-store contract the rating
// coordinator runs against.
//
// A transaction reads documents, stages writes, and commits them atomically
// when the callback returns nil. Implementations re-run the callback when a
// commit loses an optimistic race, so callbacks must derive every write from
// reads made through the Tx they were handed.
package store

import (
	"context"
	"fmt"
	"strings"
)

// Document is a schemaless record.
type Document = map[string]any

// Tx is the capability a transaction callback receives.
type Tx interface {
	// Get reads a document. Missing documents return ok=false and no error.
	Get(ctx context.Context, path string) (doc Document, ok bool, err error)
	// Merge stages a field-level upsert. Nested maps are merged, Incr values
	// are applied to the stored number.
	Merge(path string, fields Document) error
	// Create stages the creation of a new document. The commit fails with
	// ErrAlreadyExists if the document is present.
	Create(path string, fields Document) error
}

// Store runs transactions.
type Store interface {
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}

// Incr is an atomic increment directive usable as a Merge value.
type Incr struct {
	Delta int64
}

// Increment returns a directive that adds delta to the stored value.
func Increment(delta int64) Incr {
	return Incr{Delta: delta}
}

// Doc builds a top-level document path.
func Doc(collection, id string) string {
	return collection + "/" + id
}

// Child builds the path of a document in a subcollection of parent.
func Child(parent, collection, id string) string {
	return parent + "/" + collection + "/" + id
}

// ValidatePath checks that path names a document: an even number of
// non-empty segments.
func ValidatePath(path string) error {
	parts := strings.Split(path, "/")
	if len(parts) < 2 || len(parts)%2 != 0 {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	for _, p := range parts {
		if p == "" {
			return fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return nil
}

// Parent returns the path of the document owning path's collection, or ""
// for top-level documents.
func Parent(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) <= 2 {
		return ""
	}
	return strings.Join(parts[:len(parts)-2], "/")
}
