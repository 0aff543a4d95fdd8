// ABOUTME: Token-guarded JSON API: conversations, messages, tool calls
// ABOUTME: Bearer JWTs are minted from the same credentials as the UI login

package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/recallhq/recall/internal/auth"
	"github.com/recallhq/recall/internal/session"
	"github.com/recallhq/recall/internal/tools"
)

// SetToolRegistry attaches the tool registry exposed at /api/tools.
func (s *Server) SetToolRegistry(reg *tools.Registry) {
	s.tools = reg
}

// requireToken wraps a handler to require a valid bearer token.
func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeJSONError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		if _, err := s.verifier.Verify(token); err != nil {
			msg := "invalid token"
			if errors.Is(err, auth.ErrExpiredToken) {
				msg = "token expired"
			}
			writeJSONError(w, http.StatusUnauthorized, msg)
			return
		}
		next(w, r)
	}
}

// handleAPIToken exchanges username/password for a bearer token.
func (s *Server) handleAPIToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !s.checkCredentials(req.Username, req.Password) {
		s.logger.Warn("failed token request", "username", req.Username)
		writeJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.verifier.Generate(req.Username, s.opts.TokenTTL)
	if err != nil {
		s.logger.Error("failed to generate token", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_in": int(s.opts.TokenTTL.Seconds()),
	})
}

type conversationJSON struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	MessageCount int    `json:"message_count"`
	Active       bool   `json:"active"`
	Starred      bool   `json:"starred"`
}

type messageJSON struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleAPIConversations(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := s.manager.List()
	s.mu.Unlock()

	out := make([]conversationJSON, 0, len(list))
	for _, sum := range list {
		out = append(out, conversationJSON{
			ID:           sum.ID,
			Title:        sum.Title,
			CreatedAt:    sum.CreatedAt.Format("2006-01-02 15:04:05"),
			UpdatedAt:    sum.UpdatedAt.Format("2006-01-02 15:04:05"),
			MessageCount: sum.MessageCount,
			Active:       sum.Active,
			Starred:      sum.Starred,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": out})
}

func (s *Server) handleAPIConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	sess := s.manager.Get(id)
	var title string
	var messages []session.Message
	if sess != nil {
		title = sess.Title
		messages = append(messages, sess.Messages...)
		if id == s.manager.ActiveID() {
			messages = s.manager.Working()
		}
	}
	s.mu.Unlock()

	if sess == nil {
		writeJSONError(w, http.StatusNotFound, "conversation not found")
		return
	}

	out := make([]messageJSON, 0, len(messages))
	for _, m := range messages {
		out = append(out, messageJSON{Role: m.Role, Content: m.Content, Timestamp: m.Timestamp})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       id,
		"title":    title,
		"messages": out,
	})
}

// handleAPISend runs one agent turn in the active conversation.
func (s *Server) handleAPISend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSONError(w, http.StatusBadRequest, "message is required")
		return
	}

	s.mu.Lock()
	s.manager.EnsureActive()
	s.manager.Append(session.RoleUser, req.Message)
	resp := s.agent.Process(r.Context(), s.manager.UserID(), req.Message)
	s.manager.Append(session.RoleAssistant, resp.Answer)
	s.lastReasoning = resp.Reasoning
	conversationID := s.manager.ActiveID()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": conversationID,
		"answer":          resp.Answer,
		"reasoning":       resp.Reasoning,
		"searched":        resp.Searched,
	})
}

func (s *Server) handleAPITools(w http.ResponseWriter, r *http.Request) {
	if s.tools == nil {
		writeJSONError(w, http.StatusNotFound, "no tools registered")
		return
	}

	type toolJSON struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		InputSchema string `json:"input_schema"`
	}
	list := s.tools.List()
	out := make([]toolJSON, 0, len(list))
	for _, t := range list {
		out = append(out, toolJSON{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": out})
}

func (s *Server) handleAPIToolCall(w http.ResponseWriter, r *http.Request) {
	if s.tools == nil {
		writeJSONError(w, http.StatusNotFound, "no tools registered")
		return
	}

	name := r.PathValue("name")
	var input json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		input = json.RawMessage(`{}`)
	}

	s.mu.Lock()
	userID := s.manager.UserID()
	s.mu.Unlock()

	out, err := s.tools.Call(r.Context(), name, userID, input)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": out})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
