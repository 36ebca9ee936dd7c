package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"RafflePool/internal/model"
	"RafflePool/internal/raffle"
)

// Server exposes the raffle over HTTP: entries, read accessors, and the
// admin-only reopen of a stuck draw.
type Server struct {
	engine     *raffle.Engine
	adminToken string
	srv        *http.Server
}

// NewServer creates the HTTP server bound to addr.
func NewServer(addr, adminToken string, engine *raffle.Engine) *Server {
	s := &Server{engine: engine, adminToken: adminToken}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /enter", s.handleEnter)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /entrants/{index}", s.handleEntrant)
	mux.HandleFunc("POST /admin/reopen", s.handleReopen)
	mux.HandleFunc("POST /admin/retry", s.handleRetry)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until Shutdown. Blocks.
func (s *Server) Start() error {
	log.Printf("[INFO] http api listening on %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler returns the underlying handler, for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

type enterRequest struct {
	Address      string `json:"address"`
	Contribution int64  `json:"contribution"`
}

func (s *Server) handleEnter(w http.ResponseWriter, r *http.Request) {
	var req enterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Address == "" {
		writeError(w, http.StatusBadRequest, errors.New("address is required"))
		return
	}

	err := s.engine.Enter(req.Address, req.Contribution)
	switch {
	case errors.Is(err, raffle.ErrNotOpen):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, raffle.ErrInsufficientContribution):
		writeError(w, http.StatusPaymentRequired, err)
	case errors.Is(err, raffle.ErrPoolOverflow):
		writeError(w, http.StatusBadRequest, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"pool":     s.engine.Pool(),
			"entrants": s.engine.EntrantCount(),
		})
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()
	resp := map[string]any{
		"status":               snap.Status.String(),
		"entrants":             len(snap.Entrants),
		"pool":                 snap.Pool,
		"entry_fee":            s.engine.EntryFee(),
		"interval":             s.engine.Interval().String(),
		"last_winner":          snap.LastWinner,
		"last_settlement_time": snap.LastSettlementTime,
		"pending_request":      snap.Status == model.StatusDrawing,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEntrant(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("bad index: %w", err))
		return
	}
	addr, err := s.engine.Entrant(index)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"index": index, "address": addr})
}

type reopenRequest struct {
	RequestID uint64 `json:"request_id"`
}

func (s *Server) handleReopen(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, errors.New("admin token required"))
		return
	}
	var req reopenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if err := s.engine.ForceReopen(req.RequestID); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	log.Printf("[WARN] draw request %d abandoned by admin reopen", req.RequestID)
	writeJSON(w, http.StatusOK, map[string]any{"status": s.engine.Status().String()})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, errors.New("admin token required"))
		return
	}
	if err := s.engine.RetrySettlement(); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": s.engine.Status().String()})
}

func (s *Server) authorized(r *http.Request) bool {
	return s.adminToken != "" && r.Header.Get("Authorization") == "Bearer "+s.adminToken
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[ERROR] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
