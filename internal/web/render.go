// ABOUTME: Template data types and rendering helpers for the chat UI
// ABOUTME: Converts assistant markdown to HTML with goldmark

package web

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/yuin/goldmark"

	"github.com/recallhq/recall/internal/session"
)

type loginData struct {
	Title     string
	Error     string
	CSRFToken string
}

type chatAppData struct {
	Title     string
	Username  string
	Model     string
	CSRFToken string
}

// sidebarItem represents a single conversation in the sidebar
type sidebarItem struct {
	ID           string
	Title        string
	MessageCount int
	Active       bool
	Starred      bool
}

// sidebarGroup is one labeled date bucket of conversations
type sidebarGroup struct {
	Label string
	Items []sidebarItem
}

// sidebarData holds data for the conversation list sidebar
type sidebarData struct {
	HasSessions bool
	Query       string
	Filter      string
	Sort        string
	CSRFToken   string
	Groups      []sidebarGroup
}

// messageView is one rendered chat message
type messageView struct {
	Role      string
	Timestamp string
	HTML      template.HTML
}

// messagesData holds data for the chat message list partial
type messagesData struct {
	Messages  []messageView
	Suggested []string
	CSRFToken string
}

// templatePickerData holds data for the template picker partial
type templatePickerData struct {
	Templates []templateItem
	CSRFToken string
}

type templateItem struct {
	Key         string
	Title       string
	Description string
}

// infoPanelData holds data for the right-hand info panel
type infoPanelData struct {
	SessionCount   int
	StarredCount   int
	UserCount      int
	AssistantCount int
	MemoryCount    int
	RecentMemories []string
	Model          string
	Models         []string
	SearchEnabled  bool
	Reasoning      string
	CSRFToken      string
}

func (s *Server) render(w http.ResponseWriter, data any, files ...string) {
	tmpl := template.Must(template.ParseFS(templateFS, files...))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		s.logger.Error("failed to render template", "templates", files, "error", err)
	}
}

func (s *Server) renderLoginPage(w http.ResponseWriter, errorMsg, csrfToken string) {
	data := loginData{
		Title:     "Login",
		Error:     errorMsg,
		CSRFToken: csrfToken,
	}
	s.render(w, data, "templates/base.html", "templates/login.html")
}

// messageViews converts stored messages into rendered views. Assistant
// content is markdown; user content is shown verbatim.
func (s *Server) messageViews(messages []session.Message) []messageView {
	out := make([]messageView, 0, len(messages))
	for _, m := range messages {
		out = append(out, messageView{
			Role:      m.Role,
			Timestamp: m.Timestamp,
			HTML:      s.renderMarkdown(m.Content),
		})
	}
	return out
}

func (s *Server) renderMarkdown(content string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(content), &buf); err != nil {
		s.logger.Error("failed to convert markdown", "error", err)
		return template.HTML(template.HTMLEscapeString(content))
	}
	return template.HTML(buf.String())
}
