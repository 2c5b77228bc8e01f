// Package api exposes the tatami scheduling engine over JSON HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	service "github.com/okian/tatami/internal/app"
	"github.com/okian/tatami/internal/domain/packer"
	"github.com/okian/tatami/internal/domain/types"
	"github.com/okian/tatami/internal/scheduler"
)

const (
	// CommandIDHeader carries the optional idempotency key of a mutating request.
	CommandIDHeader = "X-Command-ID"

	maxBodyBytes = 4 << 20
)

// Dependencies required by HTTP handlers. Using an interface keeps the
// handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// Lookup returns the scheduler of an existing tournament, loading it on
	// first use. It does not create tournaments.
	Lookup(ctx context.Context, tournamentID string) (*scheduler.Scheduler, error)

	// Execute runs a mutating command once per command id. It reports true
	// when the id was already seen and fn was not run.
	Execute(ctx context.Context, tournamentID, commandID string, fn func(*scheduler.Scheduler) error) (bool, error)
}

// Server wires HTTP routes for the scheduling API.
type Server struct {
	deps         Dependencies
	stats        *StatsHandler
	health       *HealthHandler
	schedule     *scheduleHandler
	placements   *placementsHandler
	customEvents *eventsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		deps:         deps,
		stats:        NewStatsHandler(statsProvider),
		health:       NewHealthHandler(),
		schedule:     &scheduleHandler{deps: deps},
		placements:   &placementsHandler{deps: deps},
		customEvents: &eventsHandler{deps: deps},
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(h, endpoint))
	}

	route("GET /healthz", "healthz", s.health.HandleHealth)
	mux.Handle("GET /metrics", s.health.MetricsHandler())
	route("GET /stats", "stats", s.stats.HandleStats)

	route("GET /tournaments/{tid}/config", "config", s.schedule.handleGetConfig)
	route("PUT /tournaments/{tid}/config", "config", s.schedule.handlePutConfig)
	route("GET /tournaments/{tid}/categories", "categories", s.schedule.handleListCategories)
	route("PUT /tournaments/{tid}/categories", "categories", s.schedule.handlePutCategories)
	route("PUT /tournaments/{tid}/categories/{cid}", "category", s.schedule.handlePutCategory)
	route("DELETE /tournaments/{tid}/categories/{cid}", "category", s.schedule.handleDeleteCategory)
	route("GET /tournaments/{tid}/conflicts", "conflicts", s.schedule.handleConflicts)
	route("GET /tournaments/{tid}/timeline", "timeline", s.schedule.handleTimeline)
	route("POST /tournaments/{tid}/autopack", "autopack", s.schedule.handleAutoPack)

	route("GET /tournaments/{tid}/placements", "placements", s.placements.handleList)
	route("POST /tournaments/{tid}/placements/evaluate", "evaluate", s.placements.handleEvaluate)
	route("PUT /tournaments/{tid}/placements/{cid}", "placement", s.placements.handlePlace)
	route("DELETE /tournaments/{tid}/placements/{cid}", "placement", s.placements.handleUnassign)

	route("GET /tournaments/{tid}/events", "events", s.customEvents.handleList)
	route("POST /tournaments/{tid}/events", "events", s.customEvents.handleAdd)
	route("PUT /tournaments/{tid}/events/{eid}", "event", s.customEvents.handleUpdate)
	route("DELETE /tournaments/{tid}/events/{eid}", "event", s.customEvents.handleRemove)
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

var duplicateAck = ackResponse{Status: "duplicate", Duplicate: true}

type errorResponse struct {
	Code     string                  `json:"code"`
	Message  string                  `json:"message"`
	Warnings []types.ConflictWarning `json:"warnings,omitempty"`
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
	writeErrorResponse(w, status, errorResponse{Code: code, Message: msg})
}

// writeErrorResponse writes an error body and reports its code to the
// metrics middleware.
func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	if t, ok := w.(failureTagger); ok {
		t.tagFailure(resp.Code)
	}
	writeJSON(w, status, resp)
}

// writeFailure maps domain and service errors to status codes.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduler.ErrUnknownCategory),
		errors.Is(err, scheduler.ErrUnknownEvent),
		errors.Is(err, service.ErrUnknownTournament):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrCommandPending):
		writeError(w, http.StatusConflict, "command_pending", err)
	case errors.Is(err, scheduler.ErrUnknownDay),
		errors.Is(err, scheduler.ErrInvalidCategory),
		errors.Is(err, scheduler.ErrInvalidPlacement),
		errors.Is(err, scheduler.ErrInvalidEvent),
		errors.Is(err, scheduler.ErrInvalidConfig),
		errors.Is(err, packer.ErrNoCompetitionDays),
		errors.Is(err, service.ErrInvalidTournament),
		errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrBadDay):
		writeError(w, http.StatusBadRequest, "invalid_request", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "cancelled", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}

// decodeBody reads a JSON body into v, rejecting unknown fields.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrBadRequest, err)
	}
	return nil
}

// decodeOptionalBody is decodeBody for requests whose body may be empty.
func decodeOptionalBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: invalid JSON: %v", ErrBadRequest, err)
	}
	return nil
}

// commandID returns the idempotency key from the header or the command_id
// query parameter.
func commandID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(CommandIDHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(r.URL.Query().Get("command_id"))
}

// parseDay validates a YYYY-MM-DD value. Empty input is allowed and
// returns "".
func parseDay(s string) (types.Day, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	d, ok := types.ParseDay(s)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrBadDay, s)
	}
	return d, nil
}
