package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/weaklink/internal/adapters/http/api"
	"github.com/okian/weaklink/internal/adapters/repository"
	service "github.com/okian/weaklink/internal/app"
	"github.com/okian/weaklink/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDependencies struct {
	submitted []model.Notification
	submitRes service.IngestResult
	submitErr error

	outcome    model.Outcome
	processErr error
	processed  string

	view      model.PlayerView
	playerErr error
}

func (m *mockDependencies) Submit(_ context.Context, n model.Notification) (service.IngestResult, error) {
	if m.submitErr != nil {
		return "", m.submitErr
	}
	m.submitted = append(m.submitted, n)
	return m.submitRes, nil
}

func (m *mockDependencies) ProcessMatchUpdate(_ context.Context, matchID string, _, _ model.Document) (model.Outcome, error) {
	m.processed = matchID
	return m.outcome, m.processErr
}

func (m *mockDependencies) Player(_ context.Context, playerID string) (model.PlayerView, error) {
	if m.playerErr != nil {
		return model.PlayerView{}, m.playerErr
	}
	v := m.view
	v.PlayerID = playerID
	return v, nil
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any {
	return m.stats
}

const matchBody = `{"deliveryId":"d1","after":{"status":"completed","result":{"overallWinner":"teamA"},"teams":{"teamAPlayerIds":["a1","a2"],"teamBPlayerIds":["b1","b2"]}}}`

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func TestEventsEndpoint(t *testing.T) {
	Convey("Given the API router", t, func() {
		deps := &mockDependencies{submitRes: service.IngestAccepted}
		r := api.NewServer(deps, &mockStatsProvider{}).Routes()

		Convey("When a notification is posted", func() {
			w := serve(r, http.MethodPost, "/v1/matches/g1/events", matchBody)

			Convey("Then it is accepted for the match in the path", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(decode(w)["status"], ShouldEqual, "accepted")
				So(deps.submitted, ShouldHaveLength, 1)
				So(deps.submitted[0].MatchID, ShouldEqual, "g1")
				So(deps.submitted[0].DeliveryID, ShouldEqual, "d1")
				So(deps.submitted[0].After["status"], ShouldEqual, "completed")
			})
		})

		Convey("When the delivery was already seen", func() {
			deps.submitRes = service.IngestDuplicate
			w := serve(r, http.MethodPost, "/v1/matches/g1/events", matchBody)

			Convey("Then it is acknowledged as a duplicate", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["status"], ShouldEqual, "duplicate")
				So(body["duplicate"], ShouldBeTrue)
			})
		})

		Convey("When the queue is full", func() {
			deps.submitErr = service.ErrQueueFull
			w := serve(r, http.MethodPost, "/v1/matches/g1/events", matchBody)

			Convey("Then backpressure is reported", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decode(w)["code"], ShouldEqual, "backpressure")
			})
		})

		Convey("When the service is not running", func() {
			for _, err := range []error{service.ErrNotStarted, service.ErrStopped} {
				deps.submitErr = err
				w := serve(r, http.MethodPost, "/v1/matches/g1/events", matchBody)
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(decode(w)["code"], ShouldEqual, "not_ready")
			}
		})

		Convey("When the body is malformed", func() {
			for _, body := range []string{`{`, `{"deliveryId":"d1"}`} {
				w := serve(r, http.MethodPost, "/v1/matches/g1/events", body)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["code"], ShouldEqual, "bad_request")
			}
			So(deps.submitted, ShouldBeEmpty)
		})

		Convey("When the wrong method is used", func() {
			w := serve(r, http.MethodGet, "/v1/matches/g1/events", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestProcessEndpoint(t *testing.T) {
	Convey("Given the API router", t, func() {
		deps := &mockDependencies{outcome: model.Skipped(model.ReasonNotCompleted)}
		r := api.NewServer(deps, &mockStatsProvider{}).Routes()

		Convey("When a match is processed synchronously", func() {
			w := serve(r, http.MethodPost, "/v1/matches/g7/process", matchBody)

			Convey("Then the outcome is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.processed, ShouldEqual, "g7")
				body := decode(w)
				So(body["status"], ShouldEqual, "skipped")
				So(body["reason"], ShouldEqual, "not_completed")
			})
		})

		Convey("When the store is unreachable", func() {
			deps.processErr = errors.New("connection refused")
			w := serve(r, http.MethodPost, "/v1/matches/g7/process", matchBody)

			Convey("Then the caller is told to retry", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				body := decode(w)
				So(body["code"], ShouldEqual, "store_unavailable")
				So(body["message"], ShouldContainSubstring, "connection refused")
			})
		})
	})
}

func TestPlayersAndHealth(t *testing.T) {
	Convey("Given the API router", t, func() {
		deps := &mockDependencies{view: model.PlayerView{EloRating: 1616, EloPeak: 1616, GamesPlayed: 1}}
		stats := &mockStatsProvider{stats: map[string]any{"started": true}}
		r := api.NewServer(deps, stats).Routes()

		Convey("When a player is requested", func() {
			w := serve(r, http.MethodGet, "/v1/players/p1", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["playerId"], ShouldEqual, "p1")
			So(body["eloRating"], ShouldEqual, 1616.0)
			So(body["eloGamesPlayed"], ShouldEqual, 1.0)
		})

		Convey("When the player read fails", func() {
			deps.playerErr = errors.New("timeout")
			w := serve(r, http.MethodGet, "/v1/players/p1", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When health, stats and metrics are requested", func() {
			So(serve(r, http.MethodGet, "/healthz", "").Code, ShouldEqual, http.StatusOK)

			w := serve(r, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["started"], ShouldBeTrue)

			m := serve(r, http.MethodGet, "/metrics", "")
			So(m.Code, ShouldEqual, http.StatusOK)
			So(m.Body.String(), ShouldContainSubstring, "weaklink_")
		})
	})
}

func TestRoutesEndToEnd(t *testing.T) {
	Convey("Given the router over a running service", t, func() {
		ctx := context.Background()
		mem := repository.NewMemoryStore()
		So(mem.Put("games/g1", model.Document{
			"status": "completed",
			"result": map[string]any{"overallWinner": "teamA"},
			"teams": map[string]any{
				"teamAPlayerIds": []any{"a1", "a2"},
				"teamBPlayerIds": []any{"b1", "b2"},
			},
		}), ShouldBeNil)
		svc := service.New(service.WithStore(mem), service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = svc.Stop(ctx) })
		r := api.NewServer(svc, svc).Routes()

		Convey("When the match event is delivered", func() {
			So(serve(r, http.MethodPost, "/v1/matches/g1/events", matchBody).Code, ShouldEqual, http.StatusAccepted)

			Convey("Then the winners' ratings become visible", func() {
				var rating float64
				deadline := time.Now().Add(2 * time.Second)
				for time.Now().Before(deadline) {
					w := serve(r, http.MethodGet, "/v1/players/a1", "")
					var view model.PlayerView
					_ = json.Unmarshal(w.Body.Bytes(), &view)
					if rating = view.EloRating; rating != 1600 {
						break
					}
					time.Sleep(5 * time.Millisecond)
				}
				So(rating, ShouldAlmostEqual, 1616.0, 1e-9)

				w := serve(r, http.MethodPost, "/v1/matches/g1/process", matchBody)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["reason"], ShouldEqual, "transaction_skipped")
			})
		})
	})
}
