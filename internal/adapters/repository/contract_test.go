package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/okian/weaklink/internal/domain/model"
	"github.com/okian/weaklink/internal/domain/store"
	. "github.com/smartystreets/goconvey/convey"
)

// contractSuite checks the behaviour every backend shares.
func contractSuite(t *testing.T, name string, s store.Store) {
	Convey("Given the "+name+" store", t, func() {
		ctx := context.Background()
		ns := uuid.NewString()
		user := store.Doc(model.CollectionUsers, ns+"-u1")

		Convey("When reading a missing document", func() {
			var found bool
			err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
				_, ok, err := tx.Get(ctx, user)
				found = ok
				return err
			})

			Convey("Then it is reported absent without error", func() {
				So(err, ShouldBeNil)
				So(found, ShouldBeFalse)
			})
		})

		Convey("When merging twice with an increment", func() {
			for i := 0; i < 2; i++ {
				err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
					if _, _, err := tx.Get(ctx, user); err != nil {
						return err
					}
					return tx.Merge(user, store.Document{
						model.FieldEloRating:      1616.0,
						model.FieldEloGamesPlayed: store.Increment(1),
					})
				})
				So(err, ShouldBeNil)
			}

			Convey("Then the counter accumulates and other fields are replaced", func() {
				var doc store.Document
				err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
					var err error
					doc, _, err = tx.Get(ctx, user)
					return err
				})
				So(err, ShouldBeNil)
				n, ok := model.Int(doc[model.FieldEloGamesPlayed])
				So(ok, ShouldBeTrue)
				So(n, ShouldEqual, 2)
				r, _ := model.Float(doc[model.FieldEloRating])
				So(r, ShouldEqual, 1616.0)
			})
		})

		Convey("When reading after a staged write", func() {
			err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
				if err := tx.Merge(user, store.Document{"x": 1.0}); err != nil {
					return err
				}
				_, _, err := tx.Get(ctx, user)
				return err
			})

			Convey("Then the transaction fails", func() {
				So(errors.Is(err, store.ErrReadAfterWrite), ShouldBeTrue)
			})
		})

		Convey("When the callback fails", func() {
			boom := errors.New("boom")
			err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
				if _, _, err := tx.Get(ctx, user); err != nil {
					return err
				}
				if err := tx.Merge(user, store.Document{"x": 1.0}); err != nil {
					return err
				}
				return boom
			})

			Convey("Then nothing is written and the error is returned", func() {
				So(errors.Is(err, boom), ShouldBeTrue)
				var found bool
				_ = s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
					_, found, err = tx.Get(ctx, user)
					return err
				})
				So(found, ShouldBeFalse)
			})
		})

		Convey("When creating the same document twice", func() {
			hist := store.Child(user, model.CollectionHistory, uuid.NewString())
			create := func() error {
				return s.RunTransaction(ctx, func(_ context.Context, tx store.Tx) error {
					return tx.Create(hist, store.Document{model.FieldGameID: "g1"})
				})
			}

			Convey("Then the second create fails", func() {
				So(create(), ShouldBeNil)
				So(errors.Is(create(), store.ErrAlreadyExists), ShouldBeTrue)
			})
		})

		Convey("When many transactions increment the same counter concurrently", func() {
			const workers = 8
			var wg sync.WaitGroup
			errs := make(chan error, workers)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs <- s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
						doc, _, err := tx.Get(ctx, user)
						if err != nil {
							return err
						}
						n, _ := model.Int(doc["n"])
						return tx.Merge(user, store.Document{"n": n + 1})
					})
				}()
			}
			wg.Wait()
			close(errs)

			Convey("Then no update is lost", func() {
				succeeded := int64(0)
				for err := range errs {
					if err == nil {
						succeeded++
					} else {
						So(errors.Is(err, store.ErrTooManyAttempts), ShouldBeTrue)
					}
				}
				var doc store.Document
				_ = s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
					var err error
					doc, _, err = tx.Get(ctx, user)
					return err
				})
				n, _ := model.Int(doc["n"])
				So(n, ShouldEqual, succeeded)
			})
		})

		Convey("When the path is not a document path", func() {
			err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
				_, _, err := tx.Get(ctx, model.CollectionUsers)
				return err
			})
			So(errors.Is(err, store.ErrInvalidPath), ShouldBeTrue)
		})
	})
}
