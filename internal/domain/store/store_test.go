package store_test

import (
	"errors"
	"testing"

	"github.com/okian/weaklink/internal/domain/store"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPaths(t *testing.T) {
	Convey("Given path helpers", t, func() {
		user := store.Doc("users", "u1")
		So(user, ShouldEqual, "users/u1")
		hist := store.Child(user, "ratingHistory", "h1")
		So(hist, ShouldEqual, "users/u1/ratingHistory/h1")
		So(store.Parent(hist), ShouldEqual, "users/u1")
		So(store.Parent(user), ShouldEqual, "")

		Convey("ValidatePath accepts document paths only", func() {
			So(store.ValidatePath(user), ShouldBeNil)
			So(store.ValidatePath(hist), ShouldBeNil)
			for _, bad := range []string{"", "users", "users/", "users/u1/ratingHistory", "/u1"} {
				So(errors.Is(store.ValidatePath(bad), store.ErrInvalidPath), ShouldBeTrue)
			}
		})
	})
}

func TestApplyMerge(t *testing.T) {
	Convey("Given an existing document", t, func() {
		existing := store.Document{
			"eloRating":      1600.0,
			"eloGamesPlayed": int64(4),
			"displayName":    "Alice",
			"eloUpdates":     map[string]any{"a": map[string]any{"change": 1.0}},
		}

		Convey("When merging fields with an increment", func() {
			out := store.ApplyMerge(existing, store.Document{
				"eloRating":      1616.0,
				"eloGamesPlayed": store.Increment(1),
				"eloUpdates":     map[string]any{"b": map[string]any{"change": 2.0}},
			})

			Convey("Then fields are replaced, counters added and maps merged", func() {
				So(out["eloRating"], ShouldEqual, 1616.0)
				So(out["eloGamesPlayed"], ShouldEqual, int64(5))
				So(out["displayName"], ShouldEqual, "Alice")
				updates := out["eloUpdates"].(map[string]any)
				So(updates, ShouldContainKey, "a")
				So(updates, ShouldContainKey, "b")
			})

			Convey("Then the existing document is untouched", func() {
				So(existing["eloRating"], ShouldEqual, 1600.0)
				So(existing["eloUpdates"].(map[string]any), ShouldHaveLength, 1)
			})
		})

		Convey("When incrementing a float or missing counter", func() {
			out := store.ApplyMerge(store.Document{"n": 2.0}, store.Document{"n": store.Increment(1), "m": store.Increment(3)})

			Convey("Then floats stay floats and missing counters start at zero", func() {
				So(out["n"], ShouldEqual, 3.0)
				So(out["m"], ShouldEqual, int64(3))
			})
		})

		Convey("When resolving fields for a new document", func() {
			out := store.Resolve(store.Document{"eloGamesPlayed": store.Increment(1)})
			So(out["eloGamesPlayed"], ShouldEqual, int64(1))
		})
	})
}
