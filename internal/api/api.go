package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/hardware-ui/db"
	"github.com/thatsimonsguy/hardware-ui/internal/events"
)

const maxEventLimit = 500

// Server answers read-only questions from the event journal.
type Server struct {
	db     *sql.DB
	server *http.Server
}

type StatusResponse struct {
	Reachable      *bool      `json:"reachable"`
	ReachableSince *time.Time `json:"reachable_since,omitempty"`
	Volume         *int       `json:"volume"`
	VolumeSetAt    *time.Time `json:"volume_set_at,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewServer(database *sql.DB, port int) *Server {
	s := &Server{db: database}
	s.server = &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/events", s.handleEvents)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		mux.ServeHTTP(w, r)
	})
}

// Start serves until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	log.Info().Str("address", s.server.Addr).Msg("Starting status API server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var resp StatusResponse

	reach, found, err := db.LastReachability(s.db)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get reachability")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if found {
		resp.Reachable = &reach.Reachable
		resp.ReachableSince = &reach.Time
	}

	vol, found, err := db.LastVolume(s.db)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get last volume")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if found {
		resp.Volume = &vol.Value
		resp.VolumeSetAt = &vol.Time
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxEventLimit {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid limit. Must be between 1 and %d", maxEventLimit))
			return
		}
		limit = n
	}

	evs, err := db.RecentEvents(s.db, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get events")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if evs == nil {
		evs = []events.Event{}
	}

	s.writeJSON(w, http.StatusOK, evs)
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
