package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/okian/weaklink/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRatingHistoryEntry(t *testing.T) {
	Convey("Given a rating history entry", t, func() {
		ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		e := model.RatingHistoryEntry{
			GameID: "g1", OldRating: 1600, NewRating: 1616, RatingChange: 16,
			OpponentTeam: "Carol & Dan", Won: true, Timestamp: ts,
		}

		Convey("Then ToFields uses the stored field names", func() {
			f := e.ToFields()
			So(f, ShouldHaveLength, 7)
			So(f["gameId"], ShouldEqual, "g1")
			So(f["oldRating"], ShouldEqual, 1600.0)
			So(f["newRating"], ShouldEqual, 1616.0)
			So(f["ratingChange"], ShouldEqual, 16.0)
			So(f["opponentTeam"], ShouldEqual, "Carol & Dan")
			So(f["won"], ShouldBeTrue)
			So(f["timestamp"], ShouldEqual, ts)
		})
	})
}

func TestOutcomeConstructors(t *testing.T) {
	Convey("Given outcome constructors", t, func() {
		So(model.Success(), ShouldResemble, model.Outcome{Status: model.StatusSuccess})
		So(model.Skipped(model.ReasonNotCompleted).Reason, ShouldEqual, model.ReasonNotCompleted)
		inv := model.Invalid("Team A must have exactly 2 players")
		So(inv.Status, ShouldEqual, model.StatusError)
		So(inv.Reason, ShouldEqual, model.ReasonInvalidData)
		So(inv.Message, ShouldContainSubstring, "exactly 2 players")
	})
}

func TestValueReaders(t *testing.T) {
	Convey("Given loosely typed document values", t, func() {
		Convey("Float accepts every numeric encoding", func() {
			for _, v := range []any{1600.0, float32(1600), 1600, int32(1600), int64(1600), uint64(1600), json.Number("1600")} {
				f, ok := model.Float(v)
				So(ok, ShouldBeTrue)
				So(f, ShouldEqual, 1600.0)
			}
			_, ok := model.Float("1600")
			So(ok, ShouldBeFalse)
		})

		Convey("Int truncates floats and reads json numbers", func() {
			i, ok := model.Int(3.0)
			So(ok, ShouldBeTrue)
			So(i, ShouldEqual, 3)
			i, ok = model.Int(json.Number("-2"))
			So(ok, ShouldBeTrue)
			So(i, ShouldEqual, -2)
			_, ok = model.Int(nil)
			So(ok, ShouldBeFalse)
		})

		Convey("Strings reads both typed and untyped lists", func() {
			s, ok := model.Strings([]any{"a", "b"})
			So(ok, ShouldBeTrue)
			So(s, ShouldResemble, []string{"a", "b"})
			_, ok = model.Strings([]any{"a", 1})
			So(ok, ShouldBeFalse)
			_, ok = model.Strings("a")
			So(ok, ShouldBeFalse)
		})

		Convey("String rejects empty values", func() {
			_, ok := model.String("")
			So(ok, ShouldBeFalse)
			s, ok := model.String("Alice")
			So(ok, ShouldBeTrue)
			So(s, ShouldEqual, "Alice")
		})

		Convey("Time parses RFC 3339 text", func() {
			ts, ok := model.Time("2024-05-01T12:00:00Z")
			So(ok, ShouldBeTrue)
			So(ts.Year(), ShouldEqual, 2024)
			So(model.Bool(true), ShouldBeTrue)
			So(model.Bool("true"), ShouldBeFalse)
		})
	})
}
