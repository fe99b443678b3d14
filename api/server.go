package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/wricardo/chopsticks/game/engine"
	"github.com/wricardo/chopsticks/game/service"
	"github.com/wricardo/chopsticks/game/session"
	"github.com/wricardo/chopsticks/transport/websocket"
)

// PlayerHeader carries the caller identity. Resolving it is up to the
// deployment (gateway, proxy, client); the server treats it as opaque.
const PlayerHeader = "X-Player-ID"

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	metrics http.Handler
	logger  zerolog.Logger
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithMetricsHandler serves h at /metrics
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets the request logger
func WithLogger(l zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a new API server. hub may be nil.
func NewServer(gameService service.GameService, hub *websocket.Hub, opts ...ServerOption) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()

	// Game lifecycle
	api.HandleFunc("/games", s.handleCreateGame).Methods("POST")
	api.HandleFunc("/games", s.handleListGames).Methods("GET")
	api.HandleFunc("/games/{id}", s.handleGetGame).Methods("GET")
	api.HandleFunc("/games/{id}/join", s.handleJoinGame).Methods("POST")

	// Moves
	api.HandleFunc("/games/{id}/moves", s.handlePossibleMoves).Methods("GET")
	api.HandleFunc("/games/{id}/attack", s.handleAttack).Methods("POST")
	api.HandleFunc("/games/{id}/redistribute", s.handleRedistribute).Methods("POST")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods("GET")
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// respondServiceError maps a service error onto its HTTP status and code
func respondServiceError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	respondError(w, status, code, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrInvalidSessionID):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, session.ErrIDGenerationFailed):
		return http.StatusServiceUnavailable, "id_generation_failed"
	case errors.Is(err, session.ErrRecordTooLarge):
		return http.StatusInsufficientStorage, "record_too_large"
	case errors.Is(err, engine.ErrEmptyPlayerID):
		return http.StatusBadRequest, "missing_player_id"
	case errors.Is(err, engine.ErrNotInProgress):
		return http.StatusConflict, "not_in_progress"
	case errors.Is(err, engine.ErrNotYourTurn):
		return http.StatusForbidden, "not_your_turn"
	case errors.Is(err, engine.ErrDeadHand):
		return http.StatusUnprocessableEntity, "dead_hand"
	case errors.Is(err, engine.ErrInvalidHand):
		return http.StatusUnprocessableEntity, "invalid_hand"
	case errors.Is(err, engine.ErrInsufficientCount):
		return http.StatusUnprocessableEntity, "insufficient_count"
	case errors.Is(err, engine.ErrSymmetricMoveForbidden):
		return http.StatusUnprocessableEntity, "symmetric_move_forbidden"
	case errors.Is(err, engine.ErrCorruptGame):
		return http.StatusInternalServerError, "corrupt_game"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// playerID reads the caller identity, answering 400 when it is missing
func playerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.Header.Get(PlayerHeader))
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing_player_id", PlayerHeader+" header is required")
		return "", false
	}
	return id, true
}

func (s *Server) broadcast(info *service.GameInfo) {
	if s.hub != nil && info != nil {
		s.hub.BroadcastToSession(info.ID, info.Game)
	}
}

// broadcastEvents forwards move events (attack, game_over, ...) after the snapshot
func (s *Server) broadcastEvents(sessionID string, events []service.GameEvent) {
	if s.hub == nil {
		return
	}
	for _, ev := range events {
		s.hub.BroadcastEvent(sessionID, ev.Type, ev)
	}
}

// Game Handlers

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	player, ok := playerID(w, r)
	if !ok {
		return
	}

	info, err := s.service.CreateGame(r.Context(), player)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(info)
	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.service.ListGames(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	// Parse query parameters
	query := r.URL.Query()
	status := engine.Status(query.Get("status"))
	limitStr := query.Get("limit")

	if status != "" {
		filtered := games[:0]
		for _, g := range games {
			if g.Game.State.Status == status {
				filtered = append(filtered, g)
			}
		}
		games = filtered
	}

	total := len(games)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(games) {
			games = games[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(games),
		"total": total,
		"games": games,
	})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	info, err := s.service.GetState(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleJoinGame(w http.ResponseWriter, r *http.Request) {
	player, ok := playerID(w, r)
	if !ok {
		return
	}
	sessionID := mux.Vars(r)["id"]

	result, err := s.service.JoinGame(r.Context(), sessionID, player)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if result.Joined {
		s.broadcast(result.Game)
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handlePossibleMoves(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	moves, err := s.service.PossibleMoves(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"moves":      moves,
	})
}

func (s *Server) handleAttack(w http.ResponseWriter, r *http.Request) {
	player, ok := playerID(w, r)
	if !ok {
		return
	}
	sessionID := mux.Vars(r)["id"]

	var req struct {
		SourceHand *int `json:"source_hand"`
		TargetHand *int `json:"target_hand"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.SourceHand == nil || req.TargetHand == nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "source_hand and target_hand are required")
		return
	}

	// hand indexes are validated by the engine after the turn check
	source, target := engine.Hand(*req.SourceHand), engine.Hand(*req.TargetHand)

	result, err := s.service.Attack(r.Context(), sessionID, player, source, target)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(result.Game)
	s.broadcastEvents(sessionID, result.Events)
	s.logger.Info().Str("session_id", sessionID).Str("player_id", player).
		Str("source", source.String()).Str("target", target.String()).
		Bool("game_over", result.GameOver).Msg("attack")

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRedistribute(w http.ResponseWriter, r *http.Request) {
	player, ok := playerID(w, r)
	if !ok {
		return
	}
	sessionID := mux.Vars(r)["id"]

	var req struct {
		SourceHand *int `json:"source_hand"`
		Amount     *int `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.SourceHand == nil || req.Amount == nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "source_hand and amount are required")
		return
	}
	if *req.Amount < 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "amount must not be negative")
		return
	}

	source := engine.Hand(*req.SourceHand)

	result, err := s.service.Redistribute(r.Context(), sessionID, player, source, uint(*req.Amount))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(result.Game)
	s.broadcastEvents(sessionID, result.Events)
	s.logger.Info().Str("session_id", sessionID).Str("player_id", player).
		Str("source", source.String()).Int("amount", *req.Amount).Msg("redistribute")

	respondJSON(w, http.StatusOK, result)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "session parameter required")
		return
	}
	if s.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "websocket_disabled", "websocket updates are disabled")
		return
	}

	// Verify session exists
	if _, err := s.service.GetState(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).
			Int("status", rec.status).Dur("duration", time.Since(start)).Msg("http request")
	})
}
