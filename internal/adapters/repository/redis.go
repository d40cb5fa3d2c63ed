package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/okian/weaklink/internal/domain/store"
)

const backendRedis = "redis"

// RedisStore keeps each document as a JSON string under prefix+path and uses
// WATCH/MULTI/EXEC for optimistic transactions. Every key a transaction
// reads or writes is watched before the EXEC.
type RedisStore struct {
	client redis.UniversalClient
	opts   options
}

// NewRedisStore connects to url (redis://...).
func NewRedisStore(ctx context.Context, url string, opts ...Option) (*RedisStore, error) {
	if url == "" {
		return nil, fmt.Errorf("redis: %w", ErrMissingURL)
	}
	ropts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	client := redis.NewClient(ropts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return NewRedisStoreFromClient(client, opts...), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client redis.UniversalClient, opts ...Option) *RedisStore {
	return &RedisStore{client: client, opts: newOptions(backendRedis, opts)}
}

// RunTransaction runs fn inside a WATCH block and commits with MULTI/EXEC.
func (s *RedisStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return runAttempts(ctx, backendRedis, s.opts, func(ctx context.Context, _ int) error {
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			tx := &redisTx{rtx: rtx, prefix: s.opts.keyPrefix, read: make(map[string]store.Document)}
			if err := fn(ctx, tx); err != nil {
				return err
			}
			return tx.exec(ctx)
		})
		if errors.Is(err, redis.TxFailedErr) {
			return fmt.Errorf("%w: %w", store.ErrConflict, err)
		}
		return err
	})
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

type redisTx struct {
	rtx    *redis.Tx
	prefix string
	read   map[string]store.Document
	exists map[string]bool
	writes []staged
}

func (t *redisTx) key(path string) string {
	return t.prefix + path
}

func (t *redisTx) Get(ctx context.Context, path string) (store.Document, bool, error) {
	if len(t.writes) > 0 {
		return nil, false, store.ErrReadAfterWrite
	}
	if err := store.ValidatePath(path); err != nil {
		return nil, false, err
	}
	doc, ok, err := t.load(ctx, path)
	if err != nil {
		return nil, false, err
	}
	return store.Clone(doc), ok, nil
}

// load watches the key and reads it.
func (t *redisTx) load(ctx context.Context, path string) (store.Document, bool, error) {
	if doc, ok := t.read[path]; ok {
		return doc, t.exists[path], nil
	}
	key := t.key(path)
	if err := t.rtx.Watch(ctx, key).Err(); err != nil {
		return nil, false, fmt.Errorf("redis: watch %s: %w", path, err)
	}
	raw, err := t.rtx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		t.remember(path, nil, false)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: get %s: %w", path, err)
	}
	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, false, fmt.Errorf("redis: %s: %w", path, err)
	}
	t.remember(path, doc, true)
	return doc, true, nil
}

func (t *redisTx) remember(path string, doc store.Document, ok bool) {
	if t.exists == nil {
		t.exists = make(map[string]bool)
	}
	t.read[path] = doc
	t.exists[path] = ok
}

func (t *redisTx) Merge(path string, fields store.Document) error {
	var err error
	t.writes, err = stage(t.writes, path, false, fields)
	return err
}

func (t *redisTx) Create(path string, fields store.Document) error {
	var err error
	t.writes, err = stage(t.writes, path, true, fields)
	return err
}

// exec resolves staged writes against watched state and sends them in one
// MULTI/EXEC block.
func (t *redisTx) exec(ctx context.Context) error {
	if len(t.writes) == 0 {
		return nil
	}
	final := make(map[string]store.Document)
	var order []string
	for _, w := range t.writes {
		existing, ok := final[w.path]
		if !ok {
			var err error
			existing, ok, err = t.load(ctx, w.path)
			if err != nil {
				return err
			}
			order = append(order, w.path)
		}
		if w.create {
			if ok {
				return fmt.Errorf("%w: %s", store.ErrAlreadyExists, w.path)
			}
			existing = nil
		}
		final[w.path] = store.ApplyMerge(existing, w.fields)
	}

	payloads := make(map[string][]byte, len(order))
	for _, path := range order {
		b, err := encodeDocument(final[path])
		if err != nil {
			return err
		}
		payloads[path] = b
	}

	_, err := t.rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, path := range order {
			pipe.Set(ctx, t.key(path), payloads[path], 0)
		}
		return nil
	})
	return err
}
