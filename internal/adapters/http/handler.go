package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PabloGalante/minidxo/internal/app/conversation"
	"github.com/PabloGalante/minidxo/internal/domain"
	"github.com/PabloGalante/minidxo/internal/observability"
)

type Options struct {
	// RateLimitRPS <= 0 disables per-session throttling.
	RateLimitRPS   float64
	RateLimitBurst int
	// Metrics serves GET /metrics; nil uses the default prometheus registry.
	Metrics http.Handler
}

type Server struct {
	svc     *conversation.Service
	router  chi.Router
	limiter *limiterPool
}

func NewServer(svc *conversation.Service, opts Options) *Server {
	s := &Server{svc: svc}
	if opts.RateLimitRPS > 0 {
		s.limiter = newLimiterPool(opts.RateLimitRPS, opts.RateLimitBurst)
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(withRequestID)
	r.Use(withLogging)
	r.Use(withCORS)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics)

	r.Post("/sessions", s.handleCreateSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", s.handleGetSession)
		r.Get("/window", s.handleGetWindow)
		r.With(withSessionRateLimit(s.limiter)).Post("/messages", s.handleSendMessage)
	})
	r.Get("/users/{userID}/sessions", s.handleListSessions)

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Shutdown()
	}
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type createSessionRequest struct {
	UserID string `json:"user_id"`
	Title  string `json:"title,omitempty"`
	Panel  *bool  `json:"panel,omitempty"`
}

type createSessionResponse struct {
	Session  sessionResponse `json:"session"`
	Greeting string          `json:"greeting"`
}

type sessionResponse struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	PanelEnabled bool      `json:"panel_enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type messageResponse struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Author      string    `json:"author"`
	Text        string    `json:"text"`
	ContentType string    `json:"content_type"`
	ReplyTo     string    `json:"reply_to,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type sendMessageRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

type failureResponse struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

type consensusResponse struct {
	Completed bool   `json:"completed"`
	Early     bool   `json:"early"`
	Rounds    int    `json:"rounds"`
	Error     string `json:"error,omitempty"`
}

type sendMessageResponse struct {
	UserMessage  messageResponse    `json:"user_message"`
	AgentMessage messageResponse    `json:"agent_message"`
	Provenance   string             `json:"provenance"`
	Lookups      int                `json:"lookups"`
	Failure      *failureResponse   `json:"failure,omitempty"`
	Consensus    *consensusResponse `json:"consensus,omitempty"`
}

type getSessionResponse struct {
	Session  sessionResponse   `json:"session"`
	Messages []messageResponse `json:"messages"`
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "minidxo",
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	if req.UserID == "" {
		badRequest(w, "user_id is required")
		return
	}

	out, err := s.svc.StartSession(r.Context(), conversation.StartSessionInput{
		UserID: domain.UserID(req.UserID),
		Title:  req.Title,
		Panel:  req.Panel,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{
		Session:  toSessionResponse(out.Session),
		Greeting: out.Greeting,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := domain.SessionID(chi.URLParam(r, "sessionID"))

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			badRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	session, msgs, err := s.svc.GetSessionTimeline(r.Context(), id, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, getSessionResponse{
		Session:  toSessionResponse(session),
		Messages: toMessagesResponse(msgs),
	})
}

func (s *Server) handleGetWindow(w http.ResponseWriter, r *http.Request) {
	id := domain.SessionID(chi.URLParam(r, "sessionID"))

	msgs, err := s.svc.Window(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"messages": toMessagesResponse(msgs)})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID := domain.UserID(chi.URLParam(r, "userID"))

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	sessions, err := s.svc.ListSessions(r.Context(), userID, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, toSessionResponse(sess))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := domain.SessionID(chi.URLParam(r, "sessionID"))

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	if req.UserID == "" {
		badRequest(w, "user_id is required")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		badRequest(w, "text is required")
		return
	}

	out, err := s.svc.SendMessage(r.Context(), conversation.SendMessageInput{
		SessionID: sessionID,
		UserID:    domain.UserID(req.UserID),
		Text:      req.Text,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := sendMessageResponse{
		UserMessage:  toMessageResponse(out.UserMessage),
		AgentMessage: toMessageResponse(out.AgentMessage),
		Provenance:   string(out.Provenance),
		Lookups:      out.Lookups,
	}
	if out.Failure != nil {
		resp.Failure = &failureResponse{Kind: string(out.Failure.Kind), Error: out.Failure.Err.Error()}
	}
	if c := out.Consensus; c != nil {
		resp.Consensus = &consensusResponse{
			Completed: c.Completed(),
			Early:     c.Early,
			Rounds:    len(c.Rounds),
		}
		if c.Err != nil {
			resp.Consensus.Error = c.Err.Error()
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// fail maps service errors to status codes.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, conversation.ErrEmptyMessage):
		badRequest(w, "text is required")
	default:
		observability.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// ─────────────────────────────────────────────
// Conversation Helpers
// ─────────────────────────────────────────────

func toSessionResponse(s *domain.Session) sessionResponse {
	return sessionResponse{
		ID:           string(s.ID),
		UserID:       string(s.UserID),
		Title:        s.Title,
		PanelEnabled: s.PanelEnabled,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func toMessageResponse(m *domain.Message) messageResponse {
	out := messageResponse{
		ID:          string(m.ID),
		SessionID:   string(m.SessionID),
		Author:      string(m.Author),
		Text:        m.Text,
		ContentType: m.ContentType,
		CreatedAt:   m.CreatedAt,
	}
	if m.ReplyTo != nil {
		out.ReplyTo = string(*m.ReplyTo)
	}
	return out
}

func toMessagesResponse(msgs []*domain.Message) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	return out
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
	})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, msg)
}
