// ABOUTME: Chat UI handlers: shell, sidebar, message send, session actions
// ABOUTME: Slash commands and template starts run through the same send path

package web

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/recallhq/recall/internal/session"
)

func (s *Server) handleChatApp(w http.ResponseWriter, r *http.Request) {
	_, csrfToken := s.ensureCSRFToken(w, r)

	s.mu.Lock()
	s.manager.EnsureActive()
	s.mu.Unlock()

	data := chatAppData{
		Title:     "Recall",
		Username:  s.opts.Username,
		Model:     s.manager.Model(),
		CSRFToken: csrfToken,
	}
	s.render(w, data, "templates/base.html", "templates/chat_app.html")
}

// handleSidebar returns the conversation list partial, applying the search
// query, filter mode, and sort key from the request.
func (s *Server) handleSidebar(w http.ResponseWriter, r *http.Request) {
	_, csrfToken := s.ensureCSRFToken(w, r)

	query := r.URL.Query().Get("q")
	filter := r.URL.Query().Get("filter")
	if filter == "" {
		filter = string(session.FilterAll)
	}
	sortKey := r.URL.Query().Get("sort")
	if sortKey == "" {
		sortKey = string(session.SortRecent)
	}

	s.mu.Lock()
	list := s.manager.List()
	list = s.manager.Search(query, list)
	s.mu.Unlock()

	now := time.Now()
	list = session.Filter(list, session.FilterMode(filter), now)
	list = session.Sort(list, session.SortKey(sortKey))
	groups := session.Group(list, now)

	data := sidebarData{
		HasSessions: len(list) > 0,
		Query:       query,
		Filter:      filter,
		Sort:        sortKey,
		CSRFToken:   csrfToken,
		Groups: []sidebarGroup{
			{Label: "📅 오늘", Items: sidebarItems(groups.Today)},
			{Label: "🕐 어제", Items: sidebarItems(groups.Yesterday)},
			{Label: "📆 이번 주", Items: sidebarItems(groups.ThisWeek)},
			{Label: "🗂 이전", Items: sidebarItems(groups.Older)},
		},
	}
	s.render(w, data, "templates/partials/sidebar.html")
}

func sidebarItems(list []session.Summary) []sidebarItem {
	out := make([]sidebarItem, 0, len(list))
	for _, sum := range list {
		out = append(out, sidebarItem{
			ID:           sum.ID,
			Title:        sum.Title,
			MessageCount: sum.MessageCount,
			Active:       sum.Active,
			Starred:      sum.Starred,
		})
	}
	return out
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	_, csrfToken := s.ensureCSRFToken(w, r)

	s.mu.Lock()
	messages := s.manager.Working()
	suggested := s.suggested
	s.mu.Unlock()

	s.renderMessages(w, messages, suggested, csrfToken)
}

func (s *Server) renderMessages(w http.ResponseWriter, messages []session.Message, suggested []string, csrfToken string) {
	data := messagesData{
		Messages:  s.messageViews(messages),
		Suggested: suggested,
		CSRFToken: csrfToken,
	}
	s.render(w, data, "templates/partials/messages.html")
}

// handleSend processes a chat input: a slash command, a file attachment
// note, or a normal message run through the agent pipeline. The manager
// mutex is held for the whole turn, so turns are strictly sequential.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if !s.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	input := strings.TrimSpace(r.FormValue("message"))
	attachment := strings.TrimSpace(r.FormValue("attachment"))
	if attachment != "" {
		marker := fmt.Sprintf("📎 파일 첨부: %s", attachment)
		if input == "" {
			input = marker
		} else {
			input = marker + "\n" + input
		}
	}
	if input == "" {
		http.Error(w, "Message required", http.StatusBadRequest)
		return
	}

	_, csrfToken := s.ensureCSRFToken(w, r)

	if strings.HasPrefix(input, "/") {
		s.runCommand(input)
	} else {
		s.runTurn(r, input)
	}

	s.mu.Lock()
	messages := s.manager.Working()
	suggested := s.suggested
	s.mu.Unlock()

	w.Header().Set("HX-Trigger", "refresh-sidebar")
	s.renderMessages(w, messages, suggested, csrfToken)
}

func (s *Server) runTurn(r *http.Request, input string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.manager.EnsureActive()
	s.manager.Append(session.RoleUser, input)
	s.suggested = nil

	resp := s.agent.Process(r.Context(), s.manager.UserID(), input)
	s.manager.Append(session.RoleAssistant, resp.Answer)
	s.lastReasoning = resp.Reasoning
}

// runCommand dispatches slash commands: /new, /template, /help.
func (s *Server) runCommand(input string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parts := strings.Fields(input)
	switch parts[0] {
	case "/new":
		s.manager.Create("")
		s.suggested = nil

	case "/template":
		if len(parts) == 2 {
			if s.startTemplateLocked(parts[1]) {
				return
			}
		}
		s.manager.EnsureActive()
		s.manager.Append(session.RoleAssistant, s.templateHelp())

	case "/help":
		s.manager.EnsureActive()
		s.manager.Append(session.RoleAssistant, commandHelp)

	default:
		s.manager.EnsureActive()
		s.manager.Append(session.RoleAssistant,
			fmt.Sprintf("알 수 없는 명령어입니다: %s\n`/help`를 입력하면 사용 가능한 명령어를 볼 수 있습니다.", parts[0]))
	}
}

const commandHelp = `**사용 가능한 명령어:**

- ` + "`/new`" + ` - 새 대화 시작
- ` + "`/template [이름]`" + ` - 템플릿 기반 대화 시작
- ` + "`/help`" + ` - 이 도움말`

func (s *Server) templateHelp() string {
	var b strings.Builder
	b.WriteString("🎯 **사용 가능한 템플릿:**\n\n")
	for _, key := range s.library.Keys() {
		t, _ := s.library.Get(key)
		fmt.Fprintf(&b, "- %s: %s\n", key, t.Title)
	}
	b.WriteString("\n**사용법:** `/template [템플릿명]`\n**예시:** `/template coding`")
	return b.String()
}

// startTemplateLocked begins a template conversation. Caller holds s.mu.
func (s *Server) startTemplateLocked(key string) bool {
	t, ok := s.library.Get(key)
	if !ok {
		return false
	}

	s.manager.Create(t.Title)
	s.manager.Append(session.RoleAssistant, t.InitialMessage)
	s.suggested = t.SuggestedPrompts
	return true
}

func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	if !s.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}
	_, csrfToken := s.ensureCSRFToken(w, r)

	s.mu.Lock()
	s.manager.Create("")
	s.suggested = nil
	messages := s.manager.Working()
	s.mu.Unlock()

	w.Header().Set("HX-Trigger", "refresh-sidebar")
	s.renderMessages(w, messages, nil, csrfToken)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	if !s.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}
	_, csrfToken := s.ensureCSRFToken(w, r)
	id := r.PathValue("id")

	s.mu.Lock()
	ok := s.manager.Load(id)
	s.suggested = nil
	messages := s.manager.Working()
	s.mu.Unlock()

	if !ok {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}

	w.Header().Set("HX-Trigger", "refresh-sidebar")
	s.renderMessages(w, messages, nil, csrfToken)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}
	_, csrfToken := s.ensureCSRFToken(w, r)
	id := r.PathValue("id")

	s.mu.Lock()
	ok := s.manager.Delete(id)
	s.suggested = nil
	messages := s.manager.Working()
	s.mu.Unlock()

	if !ok {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}

	w.Header().Set("HX-Trigger", "refresh-sidebar")
	s.renderMessages(w, messages, nil, csrfToken)
}

func (s *Server) handleStar(w http.ResponseWriter, r *http.Request) {
	if !s.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}
	id := r.PathValue("id")

	s.mu.Lock()
	ok := s.manager.ToggleStar(id)
	s.mu.Unlock()

	if !ok {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}

	w.Header().Set("HX-Trigger", "refresh-sidebar")
	w.WriteHeader(http.StatusNoContent)
}

// handleModel switches the model recorded on new conversations and, through
// the model-switch callback, the one the reasoning engine answers with.
func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	if !s.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}
	model := r.FormValue("model")
	if !slices.Contains(s.opts.Models, model) {
		http.Error(w, "Unknown model", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.manager.SetModel(model)
	if s.switchModel != nil {
		s.switchModel(model)
	}
	s.mu.Unlock()

	w.Header().Set("HX-Trigger", "refresh-sidebar")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTemplatePicker(w http.ResponseWriter, r *http.Request) {
	_, csrfToken := s.ensureCSRFToken(w, r)

	items := make([]templateItem, 0, len(s.library.Keys()))
	for _, key := range s.library.Keys() {
		t, _ := s.library.Get(key)
		items = append(items, templateItem{Key: key, Title: t.Title, Description: t.Description})
	}

	data := templatePickerData{Templates: items, CSRFToken: csrfToken}
	s.render(w, data, "templates/partials/template_picker.html")
}

func (s *Server) handleTemplateStart(w http.ResponseWriter, r *http.Request) {
	if !s.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}
	_, csrfToken := s.ensureCSRFToken(w, r)
	key := r.PathValue("key")

	s.mu.Lock()
	ok := s.startTemplateLocked(key)
	messages := s.manager.Working()
	suggested := s.suggested
	s.mu.Unlock()

	if !ok {
		http.Error(w, "Template not found", http.StatusNotFound)
		return
	}

	w.Header().Set("HX-Trigger", "refresh-sidebar")
	s.renderMessages(w, messages, suggested, csrfToken)
}

// handleInfoPanel renders conversation and memory statistics.
func (s *Server) handleInfoPanel(w http.ResponseWriter, r *http.Request) {
	_, csrfToken := s.ensureCSRFToken(w, r)

	s.mu.Lock()
	list := s.manager.List()
	var starredCount int
	for _, sum := range list {
		if sum.Starred {
			starredCount++
		}
	}
	var userCount, assistantCount int
	for _, msg := range s.manager.Working() {
		switch msg.Role {
		case session.RoleUser:
			userCount++
		case session.RoleAssistant:
			assistantCount++
		}
	}
	model := s.manager.Model()
	userID := s.manager.UserID()
	reasoning := s.lastReasoning
	s.mu.Unlock()

	memoryCount, err := s.store.Count(r.Context(), userID)
	if err != nil {
		s.logger.Error("failed to count memories", "error", err)
	}

	var recent []string
	records, err := s.store.GetAll(r.Context(), userID)
	if err != nil {
		s.logger.Error("failed to load memories", "error", err)
	} else {
		// Newest first, at most three.
		for i := len(records) - 1; i >= 0 && len(recent) < 3; i-- {
			text := records[i].Text
			if runes := []rune(text); len(runes) > 100 {
				text = string(runes[:100]) + "..."
			}
			recent = append(recent, text)
		}
	}

	data := infoPanelData{
		SessionCount:   len(list),
		StarredCount:   starredCount,
		UserCount:      userCount,
		AssistantCount: assistantCount,
		MemoryCount:    memoryCount,
		RecentMemories: recent,
		Model:          model,
		Models:         s.opts.Models,
		SearchEnabled:  s.agent != nil && s.searchEnabled,
		Reasoning:      reasoning,
		CSRFToken:      csrfToken,
	}
	s.render(w, data, "templates/partials/info_panel.html")
}
