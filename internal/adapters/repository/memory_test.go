package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/weaklink/internal/adapters/repository"
	"github.com/okian/weaklink/internal/domain/store"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemoryStoreContract(t *testing.T) {
	contractSuite(t, "memory", repository.NewMemoryStore(repository.WithMaxAttempts(50), repository.WithRetryDelay(0)))
}

func TestMemoryStoreConflicts(t *testing.T) {
	Convey("Given a memory store with a document", t, func() {
		ctx := context.Background()
		const path = "games/g1"

		Convey("When a concurrent writer changes it before the first commit", func() {
			var s *repository.MemoryStore
			s = repository.NewMemoryStore(
				repository.WithRetryDelay(0),
				repository.WithBeforeCommit(func(attempt int) {
					if attempt == 1 {
						So(s.Put(path, store.Document{"v": 2.0}), ShouldBeNil)
					}
				}),
			)
			So(s.Put(path, store.Document{"v": 1.0}), ShouldBeNil)

			var seen []float64
			err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
				doc, _, err := tx.Get(ctx, path)
				if err != nil {
					return err
				}
				v := doc["v"].(float64)
				seen = append(seen, v)
				return tx.Merge(path, store.Document{"v": v + 10})
			})

			Convey("Then the callback is re-run against the fresh state", func() {
				So(err, ShouldBeNil)
				So(seen, ShouldResemble, []float64{1, 2})
				doc, _ := s.Snapshot(path)
				So(doc["v"], ShouldEqual, 12.0)
				So(s.Stats(), ShouldResemble, repository.MemoryStats{Attempts: 2, Commits: 1, Conflicts: 1})
			})
		})

		Convey("When every attempt conflicts", func() {
			var s *repository.MemoryStore
			s = repository.NewMemoryStore(
				repository.WithMaxAttempts(3),
				repository.WithRetryDelay(0),
				repository.WithBeforeCommit(func(int) { _ = s.Put(path, store.Document{}) }),
			)
			So(s.Put(path, store.Document{}), ShouldBeNil)

			err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
				if _, _, err := tx.Get(ctx, path); err != nil {
					return err
				}
				return tx.Merge(path, store.Document{"x": true})
			})

			Convey("Then the retry limit error wraps the conflict", func() {
				So(errors.Is(err, store.ErrTooManyAttempts), ShouldBeTrue)
				So(errors.Is(err, store.ErrConflict), ShouldBeTrue)
				So(s.Stats().Attempts, ShouldEqual, 3)
			})
		})

		Convey("When listing a subcollection", func() {
			s := repository.NewMemoryStore()
			So(s.Put("users/u1/ratingHistory/b", store.Document{"n": 2.0}), ShouldBeNil)
			So(s.Put("users/u1/ratingHistory/a", store.Document{"n": 1.0}), ShouldBeNil)
			So(s.Put("users/u2/ratingHistory/c", store.Document{"n": 3.0}), ShouldBeNil)

			docs := s.Children("users/u1", "ratingHistory")

			Convey("Then only direct children are returned in path order", func() {
				So(docs, ShouldHaveLength, 2)
				So(docs[0]["n"], ShouldEqual, 1.0)
			})
		})

		Convey("When the store is closed", func() {
			s := repository.NewMemoryStore()
			So(s.Close(), ShouldBeNil)
			err := s.RunTransaction(ctx, func(context.Context, store.Tx) error { return nil })
			So(errors.Is(err, store.ErrClosed), ShouldBeTrue)
		})

		Convey("When the context is already cancelled", func() {
			s := repository.NewMemoryStore()
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			err := s.RunTransaction(cctx, func(context.Context, store.Tx) error { return nil })
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}
