// Package web exposes the study backend as a small JSON API. Rendering is
// owned entirely by the web client; this layer only translates HTTP into
// session and store calls.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fluentvoice/synapse/internal/domain"
	"github.com/fluentvoice/synapse/internal/session"
	"github.com/fluentvoice/synapse/internal/srs"
	"github.com/fluentvoice/synapse/internal/storage"
	"github.com/fluentvoice/synapse/internal/syncer"
)

// Server holds the dependencies for the HTTP API.
type Server struct {
	db     *storage.DB
	runner *session.Runner
	clock  session.Clock
	router *http.ServeMux

	learner   string
	reposDir  string
	easeStart float64
}

// Options configures a Server.
type Options struct {
	// Learner is the deck owner this host serves.
	Learner string
	// ReposDir is where git content sources are mirrored.
	ReposDir string
	// EaseStart is forwarded to sync when seeding new cards.
	EaseStart float64
	// Clock defaults to the system clock when nil.
	Clock session.Clock
}

// NewServer creates and configures a new server.
func NewServer(db *storage.DB, runner *session.Runner, opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = session.SystemClock{}
	}
	s := &Server{
		db:        db,
		runner:    runner,
		clock:     opts.Clock,
		router:    http.NewServeMux(),
		learner:   opts.Learner,
		reposDir:  opts.ReposDir,
		easeStart: opts.EaseStart,
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("/api/deck", s.handleGetDeck())
	s.router.HandleFunc("/api/session/next", s.handleNextDue())
	s.router.HandleFunc("/api/session/review", s.handlePostReview())
	s.router.HandleFunc("/api/sources", s.handleSources())
	s.router.HandleFunc("/api/sources/", s.handleDeleteSource())
	s.router.HandleFunc("/api/sync", s.handlePostSync())
}

// deckCard is one card in the deck overview, carrying the display contract
// the dashboard renders: an integer level where 0 means locked/unseen.
type deckCard struct {
	ID           string       `json:"id"`
	Level        int          `json:"level"`
	State        srs.State    `json:"state"`
	DueAt        time.Time    `json:"due_at"`
	IntervalDays int          `json:"interval_days"`
	Lapses       int          `json:"lapses"`
	Item         *domain.Item `json:"item,omitempty"`
}

type deckResponse struct {
	Cards    []deckCard `json:"cards"`
	DueCount int        `json:"due_count"`
}

// handleGetDeck returns the whole deck with display levels and due count.
func (s *Server) handleGetDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		stored, err := s.db.ListCards(s.learner)
		if err != nil {
			s.internalError(w, "listing deck", err)
			return
		}

		now := s.clock.Now()
		resp := deckResponse{Cards: make([]deckCard, 0, len(stored))}
		for _, sc := range stored {
			if !sc.Card.DueAt.After(now) {
				resp.DueCount++
			}
			entry := deckCard{
				ID:           sc.Card.ID,
				Level:        sc.Card.Level(),
				State:        sc.Card.State,
				DueAt:        sc.Card.DueAt,
				IntervalDays: sc.Card.IntervalDays,
				Lapses:       sc.Card.Lapses,
			}
			if item, err := s.db.GetItem(sc.Card.ContentRef); err == nil {
				entry.Item = item
			}
			resp.Cards = append(resp.Cards, entry)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type nextResponse struct {
	Card     srs.Card     `json:"card"`
	Level    int          `json:"level"`
	Item     *domain.Item `json:"item,omitempty"`
	DueCount int          `json:"due_count"`
}

// handleNextDue returns the next due card, or 204 when the session is done.
func (s *Server) handleNextDue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		due, err := s.runner.NextDue(s.learner)
		if err != nil {
			s.internalError(w, "selecting next due card", err)
			return
		}
		if due == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, nextResponse{
			Card:     due.Card,
			Level:    due.Card.Level(),
			Item:     due.Item,
			DueCount: due.DueCount,
		})
	}
}

type reviewRequest struct {
	CardID string    `json:"card_id"`
	Grade  srs.Grade `json:"grade"`
}

type reviewResponse struct {
	Card  srs.Card `json:"card"`
	Level int      `json:"level"`
}

// handlePostReview grades a card. Scheduling conflicts surface as 409 so
// the client re-fetches and retries; they are never resolved silently.
func (s *Server) handlePostReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req reviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.CardID == "" {
			http.Error(w, "card_id is required", http.StatusBadRequest)
			return
		}

		card, err := s.runner.SubmitReview(s.learner, req.CardID, req.Grade)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, reviewResponse{Card: card, Level: card.Level()})
		case errors.Is(err, srs.ErrInvalidGrade):
			http.Error(w, "Invalid grade", http.StatusBadRequest)
		case errors.Is(err, storage.ErrNotFound):
			http.NotFound(w, r)
		case errors.Is(err, srs.ErrStaleCard), errors.Is(err, storage.ErrRevisionConflict):
			http.Error(w, "Conflicting review, re-fetch the card", http.StatusConflict)
		default:
			s.internalError(w, "recording review", err)
		}
	}
}

// handleSources handles both GET and POST for the sources collection.
func (s *Server) handleSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.handleGetSources(w, r)
		case http.MethodPost:
			s.handlePostSource(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

type sourceJSON struct {
	ID          int64      `json:"id"`
	Path        string     `json:"path"`
	Type        string     `json:"type"`
	LastScanned *time.Time `json:"last_scanned,omitempty"`
}

func (s *Server) handleGetSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.db.GetAllSources()
	if err != nil {
		s.internalError(w, "listing sources", err)
		return
	}
	out := make([]sourceJSON, 0, len(sources))
	for _, src := range sources {
		entry := sourceJSON{ID: src.ID, Path: src.Path, Type: src.Type}
		if src.LastScanned.Valid {
			t := src.LastScanned.Time
			entry.LastScanned = &t
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePostSource(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}

	sourceType := syncer.DetectType(req.Path)
	id, err := s.db.InsertSource(req.Path, sourceType)
	if err != nil {
		s.internalError(w, "inserting source", err)
		return
	}
	writeJSON(w, http.StatusCreated, sourceJSON{ID: id, Path: req.Path, Type: sourceType})
}

// handleDeleteSource removes one source by ID.
func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		idStr := strings.TrimPrefix(r.URL.Path, "/api/sources/")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "Invalid source ID", http.StatusBadRequest)
			return
		}

		if err := s.db.DeleteSource(id); err != nil {
			s.internalError(w, "deleting source", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handlePostSync triggers a sync in the foreground so the caller sees the
// reconciled state as soon as the request returns.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		err := syncer.Run(s.db, syncer.Options{
			ReposDir:  s.reposDir,
			Learner:   s.learner,
			EaseStart: s.easeStart,
			Now:       s.clock.Now(),
		})
		if err != nil {
			s.internalError(w, "running sync", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) internalError(w http.ResponseWriter, action string, err error) {
	slog.Error("request failed", "action", action, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
