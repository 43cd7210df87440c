package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"akelarre/internal/app"
	"akelarre/internal/ratelimit"
	"akelarre/internal/util"
	"akelarre/pkg/ai"
	"akelarre/pkg/auth"
	"akelarre/pkg/domain"
	"akelarre/pkg/store"
)

const maxBodyBytes = 16 << 20 // transmutation sources arrive base64-inline

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                     *app.App
	Sessions                store.SessionStore
	AdminKeyHash            string
	RedisAddr               string
	RedisPassword           string
	LoginRateLimitPerMinute int
	TrustedProxies          *util.TrustedProxies
}

// Server exposes the HTTP endpoints of the generation backend.
type Server struct {
	app            *app.App
	sessions       store.SessionStore
	adminKeyHash   string
	mux            *http.ServeMux
	loginLimiter   *ratelimit.FixedWindowLimiter
	trustedProxies *util.TrustedProxies
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, fmt.Errorf("app required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	loginLimit := cfg.LoginRateLimitPerMinute
	if loginLimit <= 0 {
		loginLimit = 20
	}
	loginLimiter, err := ratelimit.NewRedisFixedWindowLimiter(
		cfg.RedisAddr, cfg.RedisPassword, "akelarre:ratelimit:login", loginLimit, time.Minute)
	if err != nil {
		return nil, fmt.Errorf("init login limiter: %w", err)
	}
	s := &Server{
		app:            cfg.App,
		sessions:       cfg.Sessions,
		adminKeyHash:   cfg.AdminKeyHash,
		mux:            http.NewServeMux(),
		loginLimiter:   loginLimiter,
		trustedProxies: cfg.TrustedProxies,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with the middleware chain applied.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("/auth/login", s.handleLogin)
	s.mux.Handle("/auth/me", s.authenticated(s.handleMe))
	s.mux.Handle("/auth/logout", s.authenticated(s.handleLogout))

	// generations
	s.mux.Handle("/images/generations", s.authenticated(s.handleGenerate))
	s.mux.Handle("/images/transmutations", s.authenticated(s.handleTransmute))
	s.mux.Handle("/images", s.authenticated(s.handleGallery))

	// chat
	s.mux.Handle("/chats", s.authenticated(s.handleChat))

	// admin observatory
	s.mux.Handle("/admin/stats", s.adminOnly(s.handleAdminStats))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) adminOnly(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminKeyHash == "" {
			s.audit(r, "admin.authorize", "fail", "reason", "admin_disabled")
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		key := strings.TrimSpace(r.Header.Get("X-Admin-Key"))
		if key == "" || !auth.CheckKey(key, s.adminKeyHash) {
			s.audit(r, "admin.authorize", "fail", "reason", "bad_key")
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r)
	})
}

func (s *Server) authorize(r *http.Request) (domain.User, bool) {
	token, ok := bearerToken(r)
	if !ok {
		return domain.User{}, false
	}
	userID, found, err := s.sessions.GetUserIDByToken(token)
	if err != nil || !found {
		s.audit(r, "session.verify", "fail", "reason", "invalid_token")
		return domain.User{}, false
	}
	user, found, err := s.app.GetUser(userID)
	if err != nil || !found {
		s.audit(r, "session.verify", "fail", "reason", "unknown_user")
		return domain.User{}, false
	}
	return user, true
}

// auth handlers

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.loginLimiter, "too many login attempts") {
		s.audit(r, "login", "rate_limited")
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if len(name) > store.MaxNameLength {
		writeError(w, http.StatusBadRequest, "name too long")
		return
	}
	user, err := s.app.Login(name)
	if err != nil {
		s.audit(r, "login", "fail", "reason", err.Error())
		writeError(w, http.StatusBadRequest, "login failed")
		return
	}
	token, err := s.sessions.NewSession(user.ID)
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("issue session failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.audit(r, "login", "success", "user_id", user.ID)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	token, _ := bearerToken(r)
	if err := s.sessions.DeleteSession(token); err != nil {
		util.LoggerFromContext(r.Context()).Warn("delete session failed", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// generation handlers

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req generateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.runGeneration(w, r, app.GenerateRequest{
		UserID:   user.ID,
		Prompt:   req.Prompt,
		Style:    req.Style,
		Sampling: req.Sampling,
	})
}

func (s *Server) handleTransmute(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req transmuteRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	var source *ai.SourceImage
	if req.SourceImage != "" {
		data, err := base64.StdEncoding.DecodeString(req.SourceImage)
		if err != nil {
			writeError(w, http.StatusBadRequest, "sourceImage must be base64")
			return
		}
		source = &ai.SourceImage{MIMEType: req.SourceMimeType, Data: data}
	}
	if source == nil && strings.TrimSpace(req.SourceRecordID) == "" {
		writeError(w, http.StatusBadRequest, "sourceImage or sourceRecordId is required")
		return
	}
	s.runGeneration(w, r, app.GenerateRequest{
		UserID:         user.ID,
		Prompt:         req.Prompt,
		Style:          req.Style,
		Sampling:       req.Sampling,
		Source:         source,
		SourceRecordID: req.SourceRecordID,
	})
}

func (s *Server) runGeneration(w http.ResponseWriter, r *http.Request, req app.GenerateRequest) {
	gen, err := s.app.ProcessImage(r.Context(), req)
	if err != nil {
		writeGenerationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, generationResponse{
		Record:      gen.Record,
		ImageBase64: base64.StdEncoding.EncodeToString(gen.Image),
		URL:         gen.URL,
	})
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}
	items, err := s.app.ListGenerations(r.Context(), user.ID, limit)
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("list generations failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

// chat handler

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	reply, err := s.app.Chat(r.Context(), req.Message)
	if err != nil {
		if errors.Is(err, app.ErrBackendUnavailable) {
			writeError(w, http.StatusBadGateway, "chat backend unavailable")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid chat message")
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

// admin handlers

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	stats, err := s.app.Stats(r.Context())
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// wire types

type loginRequest struct {
	Name string `json:"name"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type generateRequest struct {
	Prompt   string                 `json:"prompt"`
	Style    domain.StyleConfig     `json:"style"`
	Sampling *domain.SamplingParams `json:"sampling,omitempty"`
}

type transmuteRequest struct {
	Prompt         string                 `json:"prompt"`
	Style          domain.StyleConfig     `json:"style"`
	Sampling       *domain.SamplingParams `json:"sampling,omitempty"`
	SourceImage    string                 `json:"sourceImage,omitempty"`
	SourceMimeType string                 `json:"sourceMimeType,omitempty"`
	SourceRecordID string                 `json:"sourceRecordId,omitempty"`
}

type generationResponse struct {
	Record      domain.GenerationRecord `json:"record"`
	ImageBase64 string                  `json:"imageBase64"`
	URL         string                  `json:"url,omitempty"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// helpers

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeGenerationError maps the orchestrator error taxonomy onto HTTP.
func writeGenerationError(w http.ResponseWriter, err error) {
	var cooldownErr *app.CooldownActiveError
	switch {
	case errors.As(err, &cooldownErr):
		secs := int(cooldownErr.Remaining.Seconds())
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":             "cooldown active",
			"retryAfterSeconds": secs,
		})
	case errors.Is(err, app.ErrQuotaExhausted):
		writeError(w, http.StatusTooManyRequests, "daily generation quota exhausted")
	case errors.Is(err, app.ErrSourceNotFound):
		writeError(w, http.StatusNotFound, "source image not found")
	case errors.Is(err, app.ErrBackendEmpty):
		writeError(w, http.StatusBadGateway, "the model produced no image; resubmitting may succeed")
	case errors.Is(err, app.ErrBackendUnavailable):
		writeError(w, http.StatusBadGateway, "image backend unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	key := r.URL.Path + "|" + util.ClientIP(r, s.trustedProxies)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trustedProxies),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}
