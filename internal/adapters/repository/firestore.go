package repository

import (
	"context"
	"fmt"
	"sync/atomic"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/okian/weaklink/internal/domain/store"
	"github.com/okian/weaklink/pkg/logger"
	"github.com/okian/weaklink/pkg/metrics"
)

const backendFirestore = "firestore"

// FirestoreStore runs transactions on Cloud Firestore. Retries on contention
// are handled by the client; the attempt limit is passed as MaxAttempts.
type FirestoreStore struct {
	client *firestore.Client
	opts   options
}

// NewFirestoreStore creates a client for project. FIRESTORE_EMULATOR_HOST is
// honoured by the client library.
func NewFirestoreStore(ctx context.Context, project string, opts ...Option) (*FirestoreStore, error) {
	if project == "" {
		return nil, ErrMissingProject
	}
	client, err := firestore.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("firestore: connect: %w", err)
	}
	return NewFirestoreStoreFromClient(client, opts...), nil
}

// NewFirestoreStoreFromClient wraps an existing client.
func NewFirestoreStoreFromClient(client *firestore.Client, opts ...Option) *FirestoreStore {
	return &FirestoreStore{client: client, opts: newOptions(backendFirestore, opts)}
}

// RunTransaction runs fn in a Firestore transaction.
func (s *FirestoreStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	var attempts atomic.Int32
	err := s.client.RunTransaction(ctx, func(ctx context.Context, ftx *firestore.Transaction) error {
		if n := attempts.Add(1); n > 1 {
			metrics.RecordTxConflict(backendFirestore)
			s.opts.log.Debug(ctx, "transaction retried by client", logger.Int("attempt", int(n)))
		}
		metrics.RecordTxAttempt(backendFirestore)
		return fn(ctx, &firestoreTx{client: s.client, tx: ftx})
	}, firestore.MaxAttempts(s.opts.maxAttempts))
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.Aborted:
		metrics.RecordTxFailure(backendFirestore)
		return fmt.Errorf("%w: %w", store.ErrTooManyAttempts, err)
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %w", store.ErrAlreadyExists, err)
	}
	return err
}

// Close closes the client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

type firestoreTx struct {
	client *firestore.Client
	tx     *firestore.Transaction
	wrote  bool
}

func (t *firestoreTx) ref(path string) (*firestore.DocumentRef, error) {
	if err := store.ValidatePath(path); err != nil {
		return nil, err
	}
	ref := t.client.Doc(path)
	if ref == nil {
		return nil, fmt.Errorf("%w: %q", store.ErrInvalidPath, path)
	}
	return ref, nil
}

func (t *firestoreTx) Get(_ context.Context, path string) (store.Document, bool, error) {
	if t.wrote {
		return nil, false, store.ErrReadAfterWrite
	}
	ref, err := t.ref(path)
	if err != nil {
		return nil, false, err
	}
	snap, err := t.tx.Get(ref)
	if status.Code(err) == codes.NotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("firestore: get %s: %w", path, err)
	}
	return snap.Data(), true, nil
}

func (t *firestoreTx) Merge(path string, fields store.Document) error {
	ref, err := t.ref(path)
	if err != nil {
		return err
	}
	t.wrote = true
	return t.tx.Set(ref, toFirestore(fields), firestore.MergeAll)
}

func (t *firestoreTx) Create(path string, fields store.Document) error {
	ref, err := t.ref(path)
	if err != nil {
		return err
	}
	t.wrote = true
	return t.tx.Create(ref, toFirestore(fields))
}

// toFirestore swaps Incr directives for server-side increments.
func toFirestore(fields store.Document) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case store.Incr:
			out[k] = firestore.Increment(val.Delta)
		case map[string]any:
			out[k] = toFirestore(val)
		default:
			out[k] = v
		}
	}
	return out
}
