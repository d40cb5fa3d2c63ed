package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/okian/weaklink/internal/domain/store"
)

const backendMemory = "memory"

// MemoryStore is an in-process document store with optimistic transactions.
// Every document carries a version; a commit fails with store.ErrConflict
// when any document read by the transaction changed since it was read.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string]memDoc
	seq    uint64
	closed atomic.Bool
	opts   options

	transactions atomic.Int64
	commits      atomic.Int64
	conflicts    atomic.Int64
}

type memDoc struct {
	data    store.Document
	version uint64
}

// MemoryStats counts transaction activity.
type MemoryStats struct {
	Attempts  int64
	Commits   int64
	Conflicts int64
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]memDoc),
		opts: newOptions(backendMemory, opts),
	}
}

// RunTransaction runs fn and commits its staged writes atomically.
func (s *MemoryStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if s.closed.Load() {
		return store.ErrClosed
	}
	return runAttempts(ctx, backendMemory, s.opts, func(ctx context.Context, attempt int) error {
		s.transactions.Add(1)
		tx := &memTx{s: s, reads: make(map[string]uint64)}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if s.opts.beforeCommit != nil {
			s.opts.beforeCommit(attempt)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return s.commit(tx)
	})
}

func (s *MemoryStore) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for path, seen := range tx.reads {
		if s.docs[path].version != seen {
			s.conflicts.Add(1)
			return fmt.Errorf("%w: %s changed", store.ErrConflict, path)
		}
	}

	next := make(map[string]store.Document)
	var order []string
	current := func(path string) (store.Document, bool) {
		if d, ok := next[path]; ok {
			return d, true
		}
		d, ok := s.docs[path]
		return d.data, ok
	}
	for _, w := range tx.writes {
		existing, exists := current(w.path)
		if w.create {
			if exists {
				return fmt.Errorf("%w: %s", store.ErrAlreadyExists, w.path)
			}
			existing = nil
		}
		if _, ok := next[w.path]; !ok {
			order = append(order, w.path)
		}
		next[w.path] = store.ApplyMerge(existing, w.fields)
	}

	for _, path := range order {
		s.seq++
		s.docs[path] = memDoc{data: next[path], version: s.seq}
	}
	s.commits.Add(1)
	return nil
}

// Close marks the store closed.
func (s *MemoryStore) Close() error {
	s.closed.Store(true)
	return nil
}

// Put writes a document outside any transaction.
func (s *MemoryStore) Put(path string, doc store.Document) error {
	if err := store.ValidatePath(path); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.docs[path] = memDoc{data: store.Clone(doc), version: s.seq}
	return nil
}

// Snapshot returns a copy of the document at path.
func (s *MemoryStore) Snapshot(path string) (store.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[path]
	return store.Clone(d.data), ok
}

// Children returns the documents of parent's collection, ordered by path.
func (s *MemoryStore) Children(parent, collection string) []store.Document {
	prefix := parent + "/" + collection + "/"
	s.mu.RLock()
	defer s.mu.RUnlock()

	var paths []string
	for p := range s.docs {
		if strings.HasPrefix(p, prefix) && !strings.Contains(p[len(prefix):], "/") {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	out := make([]store.Document, len(paths))
	for i, p := range paths {
		out[i] = store.Clone(s.docs[p].data)
	}
	return out
}

// Stats returns transaction counters.
func (s *MemoryStore) Stats() MemoryStats {
	return MemoryStats{
		Attempts:  s.transactions.Load(),
		Commits:   s.commits.Load(),
		Conflicts: s.conflicts.Load(),
	}
}

type memTx struct {
	s      *MemoryStore
	reads  map[string]uint64
	writes []staged
}

func (t *memTx) Get(ctx context.Context, path string) (store.Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if len(t.writes) > 0 {
		return nil, false, store.ErrReadAfterWrite
	}
	if err := store.ValidatePath(path); err != nil {
		return nil, false, err
	}
	t.s.mu.RLock()
	d, ok := t.s.docs[path]
	t.s.mu.RUnlock()

	if _, seen := t.reads[path]; !seen {
		t.reads[path] = d.version
	}
	return store.Clone(d.data), ok, nil
}

func (t *memTx) Merge(path string, fields store.Document) error {
	var err error
	t.writes, err = stage(t.writes, path, false, fields)
	return err
}

func (t *memTx) Create(path string, fields store.Document) error {
	var err error
	t.writes, err = stage(t.writes, path, true, fields)
	return err
}
