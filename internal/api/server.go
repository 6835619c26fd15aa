package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pbaille/checkin/internal/domain"
	"github.com/pbaille/checkin/internal/identity"
	"github.com/pbaille/checkin/internal/insights"
	"github.com/pbaille/checkin/internal/logging"
	"github.com/pbaille/checkin/internal/store"
	"github.com/pbaille/checkin/internal/tracker"
)

// Server exposes a tracker to a local front end over JSON
type Server struct {
	tracker *tracker.Tracker
	addr    string
	log     logging.Logger

	// mu runs handlers one at a time; the tracker is single-threaded.
	mu sync.Mutex
}

// New creates a new API server
func New(t *tracker.Tracker, addr string, log logging.Logger) *Server {
	return &Server{tracker: t, addr: addr, log: log.With("component", "api")}
}

// Handler returns the routed handler, CORS included
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Identity
	mux.HandleFunc("POST /register", s.serialized(s.register))
	mux.HandleFunc("POST /login", s.serialized(s.login))
	mux.HandleFunc("POST /logout", s.serialized(s.logout))
	mux.HandleFunc("GET /session", s.serialized(s.session))

	// Entries
	mux.HandleFunc("GET /entries", s.serialized(s.listEntries))
	mux.HandleFunc("POST /entries", s.serialized(s.addEntry))
	mux.HandleFunc("DELETE /entries/{id}", s.serialized(s.deleteEntry))
	mux.HandleFunc("POST /checkins/quick", s.serialized(s.quickCheckin))
	mux.HandleFunc("POST /checkins/simple", s.serialized(s.simpleCheckin))
	mux.HandleFunc("POST /checkins/end-of-day", s.serialized(s.endOfDay))

	// Derived views
	mux.HandleFunc("GET /insights", s.serialized(s.insights))
	mux.HandleFunc("GET /chart", s.serialized(s.chart))
	mux.HandleFunc("GET /categories", s.serialized(s.categories))

	// Health check
	mux.HandleFunc("GET /health", s.health)

	return withCORS(mux)
}

// Run serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// withCORS adds CORS headers for a front end served from another local port
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) serialized(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.log.Debug(r.Context(), "request", "method", r.Method, "path", r.URL.Path)
		// The CLI may have written to the profile since the last request.
		s.tracker.Sync(r.Context())
		h(w, r)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CredentialsRequest is the body of /register and /login
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decode(w, r, &req) {
		return
	}

	session, err := s.tracker.Register(r.Context(), req.Username, req.Password, req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decode(w, r, &req) {
		return
	}

	session, err := s.tracker.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.Logout(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) {
	session, ok := s.tracker.Session()
	if !ok {
		s.fail(w, r, tracker.ErrNoSession)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func viewParam(r *http.Request) insights.View {
	return insights.ParseView(r.URL.Query().Get("view"))
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.tracker.Session(); !ok {
		s.fail(w, r, tracker.ErrNoSession)
		return
	}

	view := viewParam(r)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": s.tracker.View(view),
		"view":    view,
	})
}

// AddEntryRequest is the body of a detailed check-in
type AddEntryRequest struct {
	Date         string `json:"date"`
	Time         string `json:"time"`
	Task         string `json:"task"`
	TaskType     string `json:"taskType"`
	Duration     *int   `json:"duration"`
	Energy       int    `json:"energy"`
	Stress       int    `json:"stress"`
	Productivity int    `json:"productivity"`
	Notes        string `json:"notes"`
}

func (s *Server) addEntry(w http.ResponseWriter, r *http.Request) {
	var req AddEntryRequest
	if !decode(w, r, &req) {
		return
	}

	entry, err := s.tracker.LogDetailed(r.Context(), tracker.DetailedInput{
		Date:         req.Date,
		Time:         req.Time,
		Task:         req.Task,
		Category:     req.TaskType,
		Duration:     req.Duration,
		Energy:       req.Energy,
		Stress:       req.Stress,
		Productivity: req.Productivity,
		Notes:        req.Notes,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// CheckinRequest is the body of the short check-in endpoints
type CheckinRequest struct {
	Energy *int   `json:"energy"`
	Note   string `json:"note,omitempty"`
}

func (s *Server) quickCheckin(w http.ResponseWriter, r *http.Request) {
	var req CheckinRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Energy == nil {
		writeError(w, http.StatusBadRequest, "energy is required")
		return
	}

	entry, err := s.tracker.LogQuick(r.Context(), *req.Energy)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) simpleCheckin(w http.ResponseWriter, r *http.Request) {
	var req CheckinRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Energy == nil {
		writeError(w, http.StatusBadRequest, "energy is required")
		return
	}

	entry, err := s.tracker.LogSimple(r.Context(), *req.Energy, req.Note)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) endOfDay(w http.ResponseWriter, r *http.Request) {
	var req CheckinRequest
	if !decode(w, r, &req) {
		return
	}

	entry, err := s.tracker.LogEndOfDay(r.Context(), req.Note, req.Energy)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	found, err := s.tracker.Delete(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// InsightsResponse carries averages as one-decimal strings
type InsightsResponse struct {
	Count           int    `json:"count"`
	AvgEnergy       string `json:"avgEnergy"`
	AvgStress       string `json:"avgStress"`
	AvgProductivity string `json:"avgProd"`
	HighStress      int    `json:"highStress"`
	LowEnergy       int    `json:"lowEnergy"`
}

func (s *Server) insights(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.tracker.Session(); !ok {
		s.fail(w, r, tracker.ErrNoSession)
		return
	}

	view := viewParam(r)
	in := s.tracker.Insights(view)
	if in == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"view": view, "insights": nil})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"view": view,
		"insights": InsightsResponse{
			Count:           in.Count,
			AvgEnergy:       in.AvgEnergy.StringFixed(1),
			AvgStress:       in.AvgStress.StringFixed(1),
			AvgProductivity: in.AvgProductivity.StringFixed(1),
			HighStress:      in.HighStress,
			LowEnergy:       in.LowEnergy,
		},
	})
}

func (s *Server) chart(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.tracker.Session(); !ok {
		s.fail(w, r, tracker.ErrNoSession)
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.Chart(viewParam(r)))
}

// CategoryResponse is one row of the category breakdown
type CategoryResponse struct {
	Category  string `json:"category"`
	Count     int    `json:"count"`
	AvgEnergy string `json:"avgEnergy"`
}

func (s *Server) categories(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.tracker.Session(); !ok {
		s.fail(w, r, tracker.ErrNoSession)
		return
	}

	stats := s.tracker.Categories(viewParam(r))
	rows := make([]CategoryResponse, 0, len(stats))
	for _, c := range stats {
		rows = append(rows, CategoryResponse{Category: c.Category, Count: c.Count, AvgEnergy: c.AvgEnergy.StringFixed(1)})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": rows,
		"available":  domain.Categories,
	})
}

// fail maps an error onto a status code; store failures are logged
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed", "path", r.URL.Path, "err", err)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, tracker.ErrNoSession), errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, identity.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, identity.ErrDuplicateUsername):
		return http.StatusConflict
	case errors.Is(err, store.ErrStoreQuotaExceeded):
		return http.StatusInsufficientStorage
	case errors.Is(err, store.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": strings.TrimSpace(message)})
}
