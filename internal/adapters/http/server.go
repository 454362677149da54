// Package http exposes a workflow engine over REST. Every route that mutates
// an instance runs inside the per-flow session guard, so concurrent requests
// against the same workflow are applied one at a time.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sendahq/senda"
	"github.com/sendahq/senda/internal/logging"
	"github.com/sendahq/senda/pkg/flow"
	"github.com/sendahq/senda/pkg/session"
)

// Engine is the slice of the senda facade the server needs.
type Engine interface {
	Register(def *flow.Definition) error
	Definition(id string) (*flow.Definition, error)
	Definitions() []string
	Start(ctx context.Context, templateID string) (string, error)
	StartAt(ctx context.Context, domain, signature string, template *flow.Definition) (string, bool, error)
	Advance(ctx context.Context, flowID, choice string) (bool, error)
	View(ctx context.Context, flowID string) (*flow.View, error)
	Variables(ctx context.Context, flowID string) (map[string]string, error)
	SetVariable(ctx context.Context, flowID, key, value string) error
	Remove(ctx context.Context, flowID string) error
}

var _ Engine = (*senda.Engine)(nil)

// Server holds the handler state.
type Server struct {
	engine  Engine
	guard   *session.Manager
	streams *StreamManager
	logger  *slog.Logger
	metrics prometheus.Gatherer
}

// Option configures the handler.
type Option func(*Server)

// WithGuard replaces the default in-process session guard, typically to add
// a distributed locker.
func WithGuard(g *session.Manager) Option {
	return func(s *Server) {
		s.guard = g
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts a Prometheus scrape endpoint at /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = g
	}
}

// NewHandler builds the HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		engine:  engine,
		streams: NewStreamManager(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.guard == nil {
		s.guard = session.NewManager()
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.health)
	r.Get("/info", s.info)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))
	}

	r.Post("/definitions", s.registerDefinition)
	r.Post("/start", s.startAt)

	r.Route("/flows", func(r chi.Router) {
		r.Get("/", s.listFlows)
		r.Post("/", s.startFlow)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.viewFlow)
			r.Delete("/", s.removeFlow)
			r.Post("/advance", s.advanceFlow)
			r.Get("/events", s.streamFlow)
			r.Get("/vars", s.listVariables)
			r.Put("/vars/{key}", s.putVariable)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// -- Request/response bodies --

type registerResponse struct {
	ID string `json:"id"`
}

type startRequest struct {
	TemplateID string `json:"template_id"`
}

type startResponse struct {
	FlowID string `json:"flow_id"`
}

type startAtRequest struct {
	Domain     string `json:"domain"`
	Signature  string `json:"signature"`
	TemplateID string `json:"template_id"`
}

type startAtResponse struct {
	FlowID  string `json:"flow_id"`
	Resumed bool   `json:"resumed"`
}

type advanceRequest struct {
	Choice string `json:"choice"`
}

type advanceResponse struct {
	Advanced bool       `json:"advanced"`
	View     *flow.View `json:"view"`
}

type variableRequest struct {
	Value string `json:"value"`
}

type listResponse struct {
	Flows []string `json:"flows"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// -- Handlers --

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) info(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{
		"app":     "senda-http",
		"version": strings.TrimSpace(senda.Version),
	})
}

func (s *Server) registerDefinition(w http.ResponseWriter, r *http.Request) {
	var def flow.Definition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		s.respond(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if err := s.engine.Register(&def); err != nil {
		s.fail(w, err, "register failed")
		return
	}
	s.respond(w, http.StatusCreated, registerResponse{ID: def.ID})
}

func (s *Server) listFlows(w http.ResponseWriter, _ *http.Request) {
	ids := s.engine.Definitions()
	if ids == nil {
		ids = []string{}
	}
	s.respond(w, http.StatusOK, listResponse{Flows: ids})
}

func (s *Server) startFlow(w http.ResponseWriter, r *http.Request) {
	var body startRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respond(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	id, err := s.engine.Start(r.Context(), body.TemplateID)
	if err != nil {
		s.fail(w, err, "start failed")
		return
	}
	s.respond(w, http.StatusCreated, startResponse{FlowID: id})
}

func (s *Server) startAt(w http.ResponseWriter, r *http.Request) {
	var body startAtRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respond(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	template, err := s.engine.Definition(body.TemplateID)
	if err != nil {
		s.fail(w, err, "start-at failed")
		return
	}

	id, resumed, err := s.engine.StartAt(r.Context(), body.Domain, body.Signature, template)
	if err != nil {
		s.fail(w, err, "start-at failed")
		return
	}
	s.respond(w, http.StatusOK, startAtResponse{FlowID: id, Resumed: resumed})
}

func (s *Server) viewFlow(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.View(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err, "view failed")
		return
	}
	s.respond(w, http.StatusOK, view)
}

func (s *Server) advanceFlow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.respond(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	choice, err := senda.SanitizeInput(body.Choice)
	if err != nil {
		s.fail(w, err, "invalid choice")
		return
	}

	var (
		advanced bool
		view     *flow.View
	)
	err = s.guard.Do(r.Context(), id, func(ctx context.Context) error {
		var err error
		advanced, err = s.engine.Advance(ctx, id, choice)
		if err != nil {
			return err
		}
		view, err = s.engine.View(ctx, id)
		return err
	})
	if err != nil {
		s.fail(w, err, "advance failed")
		return
	}

	if advanced {
		if payload, err := json.Marshal(view); err == nil {
			s.streams.Broadcast(id, string(payload))
		}
	}
	s.respond(w, http.StatusOK, advanceResponse{Advanced: advanced, View: view})
}

func (s *Server) removeFlow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.guard.Do(r.Context(), id, func(ctx context.Context) error {
		return s.engine.Remove(ctx, id)
	})
	if err != nil {
		s.fail(w, err, "remove failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listVariables(w http.ResponseWriter, r *http.Request) {
	vars, err := s.engine.Variables(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err, "variables failed")
		return
	}
	if vars == nil {
		vars = map[string]string{}
	}
	s.respond(w, http.StatusOK, vars)
}

func (s *Server) putVariable(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	key := chi.URLParam(r, "key")

	var body variableRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respond(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	err := s.guard.Do(r.Context(), id, func(ctx context.Context) error {
		return s.engine.SetVariable(ctx, id, key, body.Value)
	})
	if err != nil {
		s.fail(w, err, "set variable failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// streamFlow serves per-flow advancement events as SSE. Each successful
// advance broadcasts the resulting view to every subscriber of that flow.
func (s *Server) streamFlow(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respond(w, http.StatusInternalServerError, errorResponse{Error: "streaming not supported"})
		return
	}

	id := chi.URLParam(r, "id")
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.streams.Subscribe(id)
	defer cancel()

	io.WriteString(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			io.WriteString(w, "data: "+msg+"\n\n")
			flusher.Flush()
		}
	}
}

// -- Helpers --

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, err error, msg string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, "error", err)
	} else {
		s.logger.Warn(msg, "error", err)
	}
	s.respond(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, flow.ErrUnknownFlow):
		return http.StatusNotFound
	case errors.Is(err, flow.ErrInvalidInput), errors.Is(err, flow.ErrInvalidDefinition):
		return http.StatusBadRequest
	case errors.Is(err, flow.ErrUnknownNode):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
