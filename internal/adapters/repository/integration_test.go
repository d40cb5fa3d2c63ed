package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/weaklink/internal/adapters/repository"
)

// Backends are exercised against real services when their location is set:
//
//	RATING_TEST_DATABASE_URL=postgres://...
//	RATING_TEST_REDIS_URL=redis://...
//	FIRESTORE_EMULATOR_HOST=localhost:8080

func TestPostgresStoreContract(t *testing.T) {
	url := os.Getenv("RATING_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("RATING_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s, err := repository.NewPostgresStore(ctx, url, repository.WithMaxAttempts(50))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Close() }()
	contractSuite(t, "postgres", s)
}

func TestRedisStoreContract(t *testing.T) {
	url := os.Getenv("RATING_TEST_REDIS_URL")
	if url == "" {
		t.Skip("RATING_TEST_REDIS_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s, err := repository.NewRedisStore(ctx, url,
		repository.WithMaxAttempts(50),
		repository.WithKeyPrefix("test:"+uuid.NewString()+":"),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Close() }()
	contractSuite(t, "redis", s)
}

func TestFirestoreStoreContract(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	s, err := repository.NewFirestoreStore(context.Background(), "weaklink-test", repository.WithMaxAttempts(50))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Close() }()
	contractSuite(t, "firestore", s)
}
