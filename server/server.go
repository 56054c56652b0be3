// Package server hosts authoritative matches over HTTP and websockets.
// Each match runs on its own goroutine; commands from every connection are
// serialized through it.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nathoo/isotactics/engine"
	"github.com/nathoo/isotactics/engine/catalog"
	"github.com/nathoo/isotactics/store"
	"github.com/nathoo/isotactics/types"
)

var (
	errUnknownMatch  = errors.New("unknown match")
	errForeignPlayer = errors.New("action is for another player")
)

// Config for the match server.
type Config struct {
	Logger  *zap.Logger
	Catalog *catalog.Catalog
	// Store, when set, archives every match and its actions.
	Store *store.Store
	// NewID generates match ids. Defaults to random UUIDs.
	NewID func() string
}

// Server is the match host.
type Server struct {
	cfg      Config
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	matches map[string]*match
	closed  bool
}

// New returns a server with no matches.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &Server{
		cfg: cfg,
		log: cfg.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		matches: map[string]*match{},
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/schemas", func(w http.ResponseWriter, _ *http.Request) {
		schemas, err := engine.PayloadSchemas()
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, schemas)
	})
	r.Route("/matches", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleState)
			r.Get("/setup", s.handleSetup)
			r.Post("/actions", s.handleAction)
			r.Get("/ws", s.handleWS)
			r.Delete("/", s.handleDelete)
		})
	})
	return r
}

// Create starts a new authoritative match from setup.
func (s *Server) Create(ctx context.Context, title string, setup types.Setup) (string, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return "", ErrClosed
	}

	var opts []engine.Option
	opts = append(opts, engine.WithLogger(s.log))
	if s.cfg.Catalog != nil {
		opts = append(opts, engine.WithCatalog(s.cfg.Catalog))
	}
	// The match outlives the request that created it.
	bg := context.WithoutCancel(ctx)
	sess, err := engine.NewServerSession(bg, setup, opts...)
	if err != nil {
		return "", err
	}

	id := s.cfg.NewID()
	var stops []func()
	if s.cfg.Store != nil {
		stop, err := s.cfg.Store.Track(bg, id, title, sess)
		if err != nil {
			return "", fmt.Errorf("archiving match: %w", err)
		}
		stops = append(stops, stop)
	}

	m := newMatch(id, title, sess, s.log, stops...)
	s.mu.Lock()
	s.matches[id] = m
	s.mu.Unlock()
	s.log.Info("match created", zap.String("match", id), zap.String("scenario", setup.ID), zap.String("phase", sess.Phase()))
	return id, nil
}

func (s *Server) match(id string) (*match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	return m, ok
}

// Close stops every match and disconnects all clients.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	matches := s.matches
	s.matches = map[string]*match{}
	s.mu.Unlock()
	for _, m := range matches {
		m.close()
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ms := make([]*match, 0, len(s.matches))
	for _, m := range s.matches {
		ms = append(ms, m)
	}
	s.mu.Unlock()

	out := make([]matchSummary, 0, len(ms))
	for _, m := range ms {
		var sum matchSummary
		err := m.do(r.Context(), func() {
			winner, _ := m.sess.Winner()
			sum = matchSummary{ID: m.id, Title: m.title, Phase: m.sess.Phase(), Actions: len(m.sess.History()), Winner: winner}
		})
		if err == nil {
			out = append(out, sum)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("decoding request: %v", err))
		return
	}
	id, err := s.Create(r.Context(), req.Title, req.Setup)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_setup", err.Error())
		return
	}
	m, _ := s.match(id)
	var st types.GameState
	if err := m.do(r.Context(), func() { st = m.sess.State() }); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "state": st})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.withMatch(w, r, func(m *match) {
		var st types.GameState
		if err := m.do(r.Context(), func() { st = m.sess.State() }); err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	})
}

func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	s.withMatch(w, r, func(m *match) {
		var setup types.Setup
		if err := m.do(r.Context(), func() { setup = m.sess.Setup() }); err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, setup)
	})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	s.withMatch(w, r, func(m *match) {
		var a actionEnvelope
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("decoding action: %v", err))
			return
		}
		if err := m.dispatch(r.Context(), nil, 0, a); err != nil {
			writeFailure(w, err)
			return
		}
		var st types.GameState
		if err := m.do(r.Context(), func() { st = m.sess.State() }); err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	m, ok := s.matches[id]
	delete(s.matches, id)
	s.mu.Unlock()
	if !ok {
		writeFailure(w, errUnknownMatch)
		return
	}
	m.close()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) withMatch(w http.ResponseWriter, r *http.Request, fn func(*match)) {
	m, ok := s.match(chi.URLParam(r, "id"))
	if !ok {
		writeFailure(w, errUnknownMatch)
		return
	}
	fn(m)
}

// classify maps an error to an API code and HTTP status.
func classify(err error) (string, int) {
	var unknown *engine.UnknownActionError
	var illegal *engine.IllegalCommandError
	switch {
	case errors.Is(err, errUnknownMatch):
		return "not_found", http.StatusNotFound
	case errors.Is(err, errForeignPlayer):
		return "forbidden", http.StatusForbidden
	case errors.As(err, &unknown):
		return "unknown_action", http.StatusBadRequest
	case errors.Is(err, engine.ErrInvalidPayload):
		return "invalid_payload", http.StatusBadRequest
	case errors.As(err, &illegal):
		return "illegal_command", http.StatusConflict
	case errors.Is(err, ErrClosed):
		return "closed", http.StatusGone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled", http.StatusServiceUnavailable
	}
	return "internal", http.StatusInternalServerError
}

func writeFailure(w http.ResponseWriter, err error) {
	code, status := classify(err)
	writeError(w, status, code, err.Error())
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Error: apiErrorBody{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
