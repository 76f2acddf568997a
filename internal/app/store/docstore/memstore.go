// internal/app/store/docstore/memstore.go
package docstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// MemStore is an in-memory Backend. It is the reference store for tests and
// the "memory" backend for local runs without MongoDB.
type MemStore struct {
	mu     sync.RWMutex
	colls  map[string]*memCollection
	nextID atomic.Uint64
}

type memCollection struct {
	order []string // insertion order
	docs  map[string]map[string]any
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{colls: make(map[string]*memCollection)}
}

func (m *MemStore) newID() string {
	return "m" + strconv.FormatUint(m.nextID.Add(1), 36)
}

func (m *MemStore) ListDocuments(ctx context.Context, collectionPath string) ([]string, error) {
	if err := validatePath(collectionPath); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list: %w: %w", ErrUnavailable, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	c := m.colls[collectionPath]
	if c == nil {
		return nil, nil
	}
	return append([]string(nil), c.order...), nil
}

func (m *MemStore) QueryDocuments(ctx context.Context, collectionPath string, pred Predicate) ([]Document, error) {
	if err := validatePath(collectionPath); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("query: %w: %w", ErrUnavailable, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	c := m.colls[collectionPath]
	if c == nil {
		return nil, nil
	}
	var out []Document
	for _, id := range c.order {
		f := c.docs[id]
		if pred.Match(f) {
			out = append(out, Document{ID: id, Fields: copyMap(f)})
		}
	}
	return out, nil
}

func (m *MemStore) GetDocument(ctx context.Context, collectionPath, id string) (Document, error) {
	if err := validatePath(collectionPath); err != nil {
		return Document{}, err
	}
	if err := validateID(id); err != nil {
		return Document{}, err
	}
	if err := ctx.Err(); err != nil {
		return Document{}, fmt.Errorf("get: %w: %w", ErrUnavailable, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	c := m.colls[collectionPath]
	if c == nil || c.docs[id] == nil {
		return Document{}, fmt.Errorf("get %s/%s: %w", collectionPath, id, ErrNotFound)
	}
	return Document{ID: id, Fields: copyMap(c.docs[id])}, nil
}

func (m *MemStore) CreateDocument(ctx context.Context, collectionPath string, fields map[string]any) (string, error) {
	if err := validatePath(collectionPath); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("create: %w: %w", ErrUnavailable, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.newID()
	m.insertLocked(collectionPath, id, copyMap(fields))
	return id, nil
}

func (m *MemStore) SetFields(ctx context.Context, collectionPath, id string, fields map[string]any) error {
	if err := validatePath(collectionPath); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("set: %w: %w", ErrUnavailable, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.colls[collectionPath]
	if c == nil || c.docs[id] == nil {
		return fmt.Errorf("set %s/%s: %w", collectionPath, id, ErrNotFound)
	}
	for k, v := range fields {
		c.docs[id][k] = v
	}
	return nil
}

func (m *MemStore) DeleteDocument(ctx context.Context, collectionPath, id string) error {
	if err := validatePath(collectionPath); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete: %w: %w", ErrUnavailable, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.colls[collectionPath]
	if c == nil || c.docs[id] == nil {
		return fmt.Errorf("delete %s/%s: %w", collectionPath, id, ErrNotFound)
	}
	delete(c.docs, id)
	c.order = removeString(c.order, id)

	prefix := Path(collectionPath, id) + "/"
	for p := range m.colls {
		if strings.HasPrefix(p, prefix) {
			delete(m.colls, p)
		}
	}
	return nil
}

func (m *MemStore) CreateWithChild(ctx context.Context, collectionPath, sub string, fields map[string]any) (string, string, error) {
	if err := validatePath(collectionPath); err != nil {
		return "", "", err
	}
	if err := validateID(sub); err != nil {
		return "", "", err
	}
	if err := ctx.Err(); err != nil {
		return "", "", fmt.Errorf("create: %w: %w", ErrUnavailable, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if sub == UniqueSubcollection && m.uniqueTakenLocked(rootOf(collectionPath), fields[UniqueField]) {
		return "", "", fmt.Errorf("create %s: %s %v: %w", collectionPath, UniqueField, fields[UniqueField], ErrDuplicate)
	}
	outerID, innerID := m.newID(), m.newID()
	m.insertLocked(collectionPath, outerID, map[string]any{})
	m.insertLocked(Path(collectionPath, outerID, sub), innerID, copyMap(fields))
	return outerID, innerID, nil
}

// Ping always succeeds.
func (m *MemStore) Ping(ctx context.Context) error {
	return nil
}

// Put stores a document under an explicit id, replacing any existing one.
// Test fixtures use it to build hierarchies with readable ids.
func (m *MemStore) Put(collectionPath, id string, fields map[string]any) error {
	if err := validatePath(collectionPath); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertLocked(collectionPath, id, copyMap(fields))
	return nil
}

// Get returns a copy of one document's fields.
func (m *MemStore) Get(collectionPath, id string) (map[string]any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := m.colls[collectionPath]
	if c == nil || c.docs[id] == nil {
		return nil, false
	}
	return copyMap(c.docs[id]), true
}

// uniqueTakenLocked reports whether an auth document under root already
// carries v as its unique field. Absent values never collide.
func (m *MemStore) uniqueTakenLocked(root string, v any) bool {
	if v == nil {
		return false
	}
	for p, c := range m.colls {
		if rootOf(p) != root || kindOf(p) != UniqueSubcollection || strings.Count(p, "/") != 2 {
			continue
		}
		for _, doc := range c.docs {
			if existing, ok := doc[UniqueField]; ok && equalValues(existing, v) {
				return true
			}
		}
	}
	return false
}

func (m *MemStore) insertLocked(collectionPath, id string, fields map[string]any) {
	c := m.colls[collectionPath]
	if c == nil {
		c = &memCollection{docs: make(map[string]map[string]any)}
		m.colls[collectionPath] = c
	}
	if fields == nil {
		fields = map[string]any{}
	}
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = fields
}

func copyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func removeString(list []string, s string) []string {
	for i, v := range list {
		if v == s {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
