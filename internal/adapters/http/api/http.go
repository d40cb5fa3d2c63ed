// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/weaklink/internal/adapters/http/swagger"
	service "github.com/okian/weaklink/internal/app"
	"github.com/okian/weaklink/internal/domain/model"
)

// Dependencies required by HTTP handlers. *service.Service satisfies it.
type Dependencies interface {
	// Submit queues a notification for asynchronous processing.
	Submit(ctx context.Context, n model.Notification) (service.IngestResult, error)
	// ProcessMatchUpdate applies a notification synchronously.
	ProcessMatchUpdate(ctx context.Context, matchID string, before, after model.Document) (model.Outcome, error)
	// Player returns the rating view of a player.
	Player(ctx context.Context, playerID string) (model.PlayerView, error)
}

// Server wires HTTP routes for the rating API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	eventsHandler  *EventsHandler
	processHandler *ProcessHandler
	playerHandler  *PlayerHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		eventsHandler:  NewEventsHandler(deps),
		processHandler: NewProcessHandler(deps),
		playerHandler:  NewPlayerHandler(deps),
	}
}

// Routes builds the router serving every endpoint.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Handle("/metrics", s.healthHandler.MetricsHandler())
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	swagger.Register(r)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/matches/{matchID}/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
		r.Post("/matches/{matchID}/process", MetricsMiddleware(s.processHandler.HandleProcess, "process"))
		r.Get("/players/{playerID}", MetricsMiddleware(s.playerHandler.HandleGetPlayer, "players"))
	})
	return r
}

// notificationRequest is the body of both match endpoints.
type notificationRequest struct {
	DeliveryID string         `json:"deliveryId"`
	Before     model.Document `json:"before"`
	After      model.Document `json:"after"`
}

func (n notificationRequest) validate() error {
	if n.After == nil {
		return errMissingAfter
	}
	return nil
}

func decodeNotification(r *http.Request) (notificationRequest, error) {
	var req notificationRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return req, err
	}
	return req, req.validate()
}

type ackResponse struct {
	Status     string `json:"status"`
	Duplicate  bool   `json:"duplicate"`
	DeliveryID string `json:"deliveryId,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
