// internal/app/store/docstore/docstore.go

// Package docstore is the document-database boundary: nested collections
// addressed by slash-joined paths (Students/<id>/auth), with a MongoDB
// backend and an in-memory backend that honour the same contract.
//
// Deleting a document removes every document nested beneath it. Callers may
// rely on that and never delete children themselves.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Errors returned by every backend. Wrapped errors keep the cause reachable
// through errors.Unwrap.
var (
	ErrNotFound         = errors.New("document not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnavailable      = errors.New("document store unavailable")
	ErrInvalidPath      = errors.New("invalid collection path")
	ErrDuplicate        = errors.New("duplicate document")
)

// UniqueField is the auth-document field that must be unique within one
// top-level collection. Backends reject a second auth document carrying the
// same value with ErrDuplicate.
const UniqueField = "uid"

// UniqueSubcollection is the sub collection UniqueField is enforced in.
const UniqueSubcollection = "auth"

// Document is one stored document as returned by queries.
type Document struct {
	ID     string
	Fields map[string]any
}

// Backend is the full contract implemented by Store (MongoDB) and MemStore.
type Backend interface {
	ListDocuments(ctx context.Context, collectionPath string) ([]string, error)
	QueryDocuments(ctx context.Context, collectionPath string, pred Predicate) ([]Document, error)
	GetDocument(ctx context.Context, collectionPath, id string) (Document, error)
	CreateDocument(ctx context.Context, collectionPath string, fields map[string]any) (string, error)
	SetFields(ctx context.Context, collectionPath, id string, fields map[string]any) error
	DeleteDocument(ctx context.Context, collectionPath, id string) error
	CreateWithChild(ctx context.Context, collectionPath, sub string, fields map[string]any) (outerID, innerID string, err error)
	Ping(ctx context.Context) error
}

// Path joins segments into a collection or document path.
func Path(segments ...string) string {
	return strings.Join(segments, "/")
}

// validatePath checks that a collection path has an odd number of non-empty
// segments (collection, doc, collection, ...).
func validatePath(collectionPath string) error {
	if collectionPath == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	parts := strings.Split(collectionPath, "/")
	if len(parts)%2 == 0 {
		return fmt.Errorf("%w: %q names a document, not a collection", ErrInvalidPath, collectionPath)
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, collectionPath)
		}
	}
	return nil
}

func validateID(id string) error {
	if id == "" || strings.Contains(id, "/") {
		return fmt.Errorf("%w: bad document id %q", ErrInvalidPath, id)
	}
	return nil
}

// rootOf returns the top-level collection of a path.
func rootOf(collectionPath string) string {
	root, _, _ := strings.Cut(collectionPath, "/")
	return root
}

// kindOf returns the last collection segment of a path.
// "Students/abc/auth" -> "auth".
func kindOf(collectionPath string) string {
	return collectionPath[strings.LastIndex(collectionPath, "/")+1:]
}

// ancestorsOf returns the document paths above a collection path, outermost
// first. "Students/abc/auth" -> ["Students/abc"].
func ancestorsOf(collectionPath string) []string {
	parts := strings.Split(collectionPath, "/")
	out := make([]string, 0, len(parts)/2)
	for i := 2; i <= len(parts)-1; i += 2 {
		out = append(out, strings.Join(parts[:i], "/"))
	}
	return out
}
