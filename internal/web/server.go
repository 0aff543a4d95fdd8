// ABOUTME: HTTP server for the chat UI: routes, login sessions, CSRF
// ABOUTME: Serializes conversation state access behind a single mutex

// Package web serves the conversational UI: a three-panel HTMX page with a
// session sidebar, the chat view, and an info panel, plus a token-guarded
// JSON API. One signed-in user owns all conversation state, so handlers
// serialize access to the conversation manager with a single mutex.
package web

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/recallhq/recall/internal/agent"
	"github.com/recallhq/recall/internal/auth"
	"github.com/recallhq/recall/internal/memory"
	"github.com/recallhq/recall/internal/session"
	"github.com/recallhq/recall/internal/templates"
	"github.com/recallhq/recall/internal/tools"
)

const (
	// SessionCookieName is the name of the login session cookie
	SessionCookieName = "recall_session"

	// CSRFCookieName is the name of the CSRF token cookie
	CSRFCookieName = "recall_csrf"

	// SessionDuration is how long login sessions last
	SessionDuration = 24 * time.Hour
)

// Options configures the web server.
type Options struct {
	Username      string
	PasswordHash  string
	TokenTTL      time.Duration
	SearchEnabled bool
	Models        []string
}

// Server handles all chat UI and API routes.
type Server struct {
	manager  *session.Manager
	agent    *agent.Agent
	store    memory.Store
	library  *templates.Library
	verifier *auth.JWTVerifier
	tools    *tools.Registry
	opts     Options
	logger   *slog.Logger

	// mu serializes every read and write of the conversation manager,
	// including full agent turns. Guarded alongside it: the suggested
	// prompts from the last template start and the last turn's reasoning.
	mu            sync.Mutex
	suggested     []string
	lastReasoning string
	searchEnabled bool
	switchModel   func(model string)

	loginMu sync.Mutex
	logins  map[string]time.Time
}

// NewServer wires the web server from its collaborators.
func NewServer(manager *session.Manager, ag *agent.Agent, store memory.Store,
	library *templates.Library, verifier *auth.JWTVerifier, opts Options) *Server {
	if opts.TokenTTL == 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	return &Server{
		manager:       manager,
		agent:         ag,
		store:         store,
		library:       library,
		verifier:      verifier,
		opts:          opts,
		searchEnabled: opts.SearchEnabled,
		logger:        slog.Default().With("component", "web"),
		logins:        make(map[string]time.Time),
	}
}

// SetModelSwitch attaches the callback invoked when the user picks a
// different model, typically the reasoning engine's model setter. It is
// called with the server mutex held.
func (s *Server) SetModelSwitch(fn func(model string)) {
	s.switchModel = fn
}

// RegisterRoutes sets up all web routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Public routes
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /api/token", s.handleAPIToken)

	// Chat UI
	mux.HandleFunc("GET /{$}", s.requireAuth(s.handleChatApp))
	mux.HandleFunc("POST /logout", s.requireAuth(s.handleLogout))
	mux.HandleFunc("GET /chat/sidebar", s.requireAuth(s.handleSidebar))
	mux.HandleFunc("GET /chat/messages", s.requireAuth(s.handleMessages))
	mux.HandleFunc("GET /chat/info", s.requireAuth(s.handleInfoPanel))
	mux.HandleFunc("GET /chat/templates", s.requireAuth(s.handleTemplatePicker))
	mux.HandleFunc("POST /chat/send", s.requireAuth(s.handleSend))
	mux.HandleFunc("POST /chat/new", s.requireAuth(s.handleNew))
	mux.HandleFunc("POST /chat/load/{id}", s.requireAuth(s.handleLoad))
	mux.HandleFunc("POST /chat/delete/{id}", s.requireAuth(s.handleDelete))
	mux.HandleFunc("POST /chat/star/{id}", s.requireAuth(s.handleStar))
	mux.HandleFunc("POST /chat/template/{key}", s.requireAuth(s.handleTemplateStart))
	mux.HandleFunc("POST /chat/model", s.requireAuth(s.handleModel))

	// JSON API
	mux.HandleFunc("GET /api/conversations", s.requireToken(s.handleAPIConversations))
	mux.HandleFunc("GET /api/conversations/{id}", s.requireToken(s.handleAPIConversation))
	mux.HandleFunc("POST /api/messages", s.requireToken(s.handleAPISend))
	mux.HandleFunc("GET /api/tools", s.requireToken(s.handleAPITools))
	mux.HandleFunc("POST /api/tools/{name}", s.requireToken(s.handleAPIToolCall))
}

// requireAuth wraps a handler to require a valid login session cookie.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.hasValidSession(r) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

func (s *Server) hasValidSession(r *http.Request) bool {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	s.loginMu.Lock()
	defer s.loginMu.Unlock()
	expires, ok := s.logins[cookie.Value]
	if !ok {
		return false
	}
	if time.Now().After(expires) {
		delete(s.logins, cookie.Value)
		return false
	}
	return true
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	_, csrfToken := s.ensureCSRFToken(w, r)
	s.renderLoginPage(w, "", csrfToken)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		_, csrfToken := s.ensureCSRFToken(w, r)
		s.renderLoginPage(w, "Invalid form data", csrfToken)
		return
	}

	if !s.validateCSRF(r) {
		_, csrfToken := s.ensureCSRFToken(w, r)
		s.renderLoginPage(w, "Invalid request, please try again", csrfToken)
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")
	if username == "" || password == "" {
		_, csrfToken := s.ensureCSRFToken(w, r)
		s.renderLoginPage(w, "Username and password required", csrfToken)
		return
	}

	if !s.checkCredentials(username, password) {
		s.logger.Warn("failed login attempt", "username", username)
		_, csrfToken := s.ensureCSRFToken(w, r)
		s.renderLoginPage(w, "Invalid username or password", csrfToken)
		return
	}

	if err := s.createLoginSession(w); err != nil {
		s.logger.Error("failed to create session", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	s.logger.Info("user logged in", "username", username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		s.loginMu.Lock()
		delete(s.logins, cookie.Value)
		s.loginMu.Unlock()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) checkCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.opts.Username)) == 1
	return userOK && auth.CheckPassword(s.opts.PasswordHash, password)
}

func (s *Server) createLoginSession(w http.ResponseWriter) error {
	sessionID, err := generateSecureToken(32)
	if err != nil {
		return fmt.Errorf("generating session id: %w", err)
	}

	expires := time.Now().Add(SessionDuration)
	s.loginMu.Lock()
	s.logins[sessionID] = expires
	s.loginMu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ensureCSRFToken returns the request's CSRF token, minting one into a
// cookie if absent.
func (s *Server) ensureCSRFToken(w http.ResponseWriter, r *http.Request) (*http.Request, string) {
	cookie, err := r.Cookie(CSRFCookieName)
	if err == nil && cookie.Value != "" {
		return r, cookie.Value
	}

	token, err := generateSecureToken(32)
	if err != nil {
		s.logger.Error("failed to generate csrf token", "error", err)
		return r, ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return r, token
}

// validateCSRF checks the CSRF token from the form against the cookie.
func (s *Server) validateCSRF(r *http.Request) bool {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	formToken := r.FormValue("csrf_token")
	if formToken == "" {
		formToken = r.Header.Get("X-CSRF-Token")
	}
	return formToken != "" && subtle.ConstantTimeCompare([]byte(formToken), []byte(cookie.Value)) == 1
}

func generateSecureToken(bytes int) (string, error) {
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
