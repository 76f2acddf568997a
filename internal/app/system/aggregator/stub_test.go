package aggregator

import (
	"context"
	"sync"

	"github.com/dalemusser/collegehub/internal/app/store/docstore"
	"github.com/dalemusser/collegehub/internal/domain/models"
)

// stubStore wraps a MemStore to count calls, inject failures and pause
// operations from tests.
type stubStore struct {
	*docstore.MemStore

	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error // "op" or "op:path"

	// after runs once the wrapped call has completed. Set it before any
	// goroutine uses the store.
	after func(op, path string)
}

func newStubStore(mem *docstore.MemStore) *stubStore {
	return &stubStore{MemStore: mem, calls: map[string]int{}, fail: map[string]error{}}
}

func (s *stubStore) setFail(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, key)
		return
	}
	s.fail[key] = err
}

func (s *stubStore) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *stubStore) hit(op, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	if err := s.fail[op+":"+path]; err != nil {
		return err
	}
	return s.fail[op]
}

func (s *stubStore) done(op, path string) {
	if s.after != nil {
		s.after(op, path)
	}
}

func (s *stubStore) ListDocuments(ctx context.Context, p string) ([]string, error) {
	if err := s.hit("list", p); err != nil {
		return nil, err
	}
	ids, err := s.MemStore.ListDocuments(ctx, p)
	s.done("list", p)
	return ids, err
}

func (s *stubStore) QueryDocuments(ctx context.Context, p string, pred docstore.Predicate) ([]docstore.Document, error) {
	if err := s.hit("query", p); err != nil {
		return nil, err
	}
	docs, err := s.MemStore.QueryDocuments(ctx, p, pred)
	s.done("query", p)
	return docs, err
}

func (s *stubStore) GetDocument(ctx context.Context, p, id string) (docstore.Document, error) {
	if err := s.hit("get", p); err != nil {
		return docstore.Document{}, err
	}
	return s.MemStore.GetDocument(ctx, p, id)
}

func (s *stubStore) SetFields(ctx context.Context, p, id string, fields map[string]any) error {
	if err := s.hit("set", p); err != nil {
		return err
	}
	return s.MemStore.SetFields(ctx, p, id, fields)
}

func (s *stubStore) DeleteDocument(ctx context.Context, p, id string) error {
	if err := s.hit("delete", p); err != nil {
		return err
	}
	return s.MemStore.DeleteDocument(ctx, p, id)
}

func keys(recs []models.RoleRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Key()
	}
	return out
}

func sameKeys(a, b []models.RoleRecord) bool {
	ka, kb := keys(a), keys(b)
	if len(ka) != len(kb) {
		return false
	}
	for i := range ka {
		if ka[i] != kb[i] {
			return false
		}
	}
	return true
}
