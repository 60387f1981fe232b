package scores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Server exposes the score table over loopback HTTP. Reads are open; updates
// to existing entries require the admin token.
type Server struct {
	store      *Store
	token      string
	addr       string
	httpServer *http.Server
}

// NewServer binds the API to loopback at the given port. token may be empty
// to disable the admin check.
func NewServer(store *Store, port int, token string) *Server {
	if port <= 0 {
		port = 8091
	}
	return &Server{
		store: store,
		token: token,
		addr:  fmt.Sprintf("127.0.0.1:%d", port),
	}
}

// Addr returns the bound address.
func (s *Server) Addr() string { return s.addr }

// Routes sets up the HTTP routes.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))
	r.Use(middleware.Heartbeat("/health"))

	r.Get("/scores", s.handleList)
	r.Post("/scores", s.handleSubmit)
	r.Put("/scores/{name}", s.handleUpdate)

	return r
}

// Start begins listening in a goroutine. It returns once the socket is bound.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	logrus.WithField("addr", s.addr).Info("scores: listening")
	go func() {
		_ = s.httpServer.Serve(ln)
	}()
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// GET /scores?limit=
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := tableCap
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil {
			limit = n
		}
	}
	entries, err := s.store.List(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errObj("SERVER_ERROR", "failed to list scores"))
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	updatedAt, err := s.store.UpdatedAt(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errObj("SERVER_ERROR", "failed to list scores"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"updatedAt": updatedAt,
		"scores":    entries,
	})
}

type submitPayload struct {
	Name          string `json:"name"`
	Score         int    `json:"score"`
	Collectibles  int    `json:"collectibles"`
	BonusUnlocked bool   `json:"bonusUnlocked"`
}

// POST /scores
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var p submitPayload
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errObj("VALIDATION_ERROR", "invalid JSON"))
		return
	}

	entry, err := s.store.Add(r.Context(), p.Name, p.Score, p.Collectibles, p.BonusUnlocked)
	switch {
	case errors.Is(err, ErrInvalidName):
		writeJSON(w, http.StatusUnprocessableEntity, errObj("VALIDATION_ERROR", err.Error()))
	case errors.Is(err, ErrDuplicateName):
		writeJSON(w, http.StatusConflict, errObj("DUPLICATE", "name already on the table"))
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errObj("SERVER_ERROR", "failed to store score"))
	default:
		writeJSON(w, http.StatusCreated, entry)
	}
}

type updatePayload struct {
	Score        int `json:"score"`
	Collectibles int `json:"collectibles"`
}

// PUT /scores/{name}
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if s.token != "" && r.Header.Get("X-Admin-Token") != s.token {
		writeJSON(w, http.StatusUnauthorized, errObj("UNAUTHORIZED", "missing or invalid X-Admin-Token"))
		return
	}

	var p updatePayload
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errObj("VALIDATION_ERROR", "invalid JSON"))
		return
	}

	entry, err := s.store.UpdateByName(r.Context(), chi.URLParam(r, "name"), p.Score, p.Collectibles)
	switch {
	case errors.Is(err, ErrInvalidName):
		writeJSON(w, http.StatusUnprocessableEntity, errObj("VALIDATION_ERROR", err.Error()))
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, errObj("NOT_FOUND", "entry not found"))
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errObj("SERVER_ERROR", "failed to update score"))
	default:
		writeJSON(w, http.StatusOK, entry)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errObj(code, msg string) map[string]any {
	return map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
}
