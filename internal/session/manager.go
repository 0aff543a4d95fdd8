// ABOUTME: Manager is the sole owner of the session registry and active pointer
// ABOUTME: Create/Save/Load/Delete plus the working message list for the active session

package session

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Manager owns every session of the running process. It is not safe for
// uncoordinated concurrent mutation; the presentation layer serializes calls
// (one logical user per process).
type Manager struct {
	sessions map[string]*Session
	order    []string // most-recently-touched first
	activeID string
	working  []Message

	userID string
	model  string

	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the wall clock, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator replaces the session id generator.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) { m.newID = gen }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger.With("component", "session") }
}

// NewManager creates an empty manager for the given user and model.
func NewManager(userID, model string, opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		userID:   userID,
		model:    model,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
		logger:   slog.Default().With("component", "session"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ActiveID returns the id of the active session, or "" before the first
// session exists.
func (m *Manager) ActiveID() string { return m.activeID }

// UserID returns the current owning user identifier.
func (m *Manager) UserID() string { return m.userID }

// Model returns the reasoning model identifier for new sessions.
func (m *Manager) Model() string { return m.model }

// SetModel changes the model recorded on sessions created from now on.
func (m *Manager) SetModel(model string) { m.model = model }

// Get returns the stored session for id, or nil if unknown.
func (m *Manager) Get(id string) *Session { return m.sessions[id] }

// Create starts a new session and makes it active. If the current active
// session has accumulated messages it is saved first, auto-titling if its
// title is still the placeholder. An empty title means the placeholder.
// Create always succeeds and returns the new session id.
func (m *Manager) Create(title string) string {
	if active := m.sessions[m.activeID]; active != nil && len(m.working) > 0 {
		m.Save(true)
	}

	if title == "" {
		title = PlaceholderTitle
	}
	now := m.now()
	s := &Session{
		ID:        m.newID(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		UserID:    m.userID,
		Model:     m.model,
	}

	m.sessions[s.ID] = s
	m.activeID = s.ID
	m.working = nil
	m.order = append([]string{s.ID}, m.order...)

	m.logger.Debug("session created", "session_id", s.ID, "title", title)
	return s.ID
}

// Save copies the working message list into the active session and bumps its
// updated-at. When autoTitle is set, a real title is derived once: only while
// the stored title is still the placeholder and at least two messages exist.
// Returns false when there is no active session.
func (m *Manager) Save(autoTitle bool) bool {
	s := m.sessions[m.activeID]
	if s == nil {
		return false
	}

	s.Messages = append([]Message(nil), m.working...)
	s.UpdatedAt = m.now()

	if autoTitle && s.Title == PlaceholderTitle && len(m.working) >= 2 {
		s.Title = GenerateTitle(m.working)
		m.logger.Debug("session titled", "session_id", s.ID, "title", s.Title)
	}
	return true
}

// Load makes id the active session. The previous active session is saved
// without forcing a title. The stored messages become the working list and
// the session's owner becomes the current user. Returns false for unknown ids.
func (m *Manager) Load(id string) bool {
	s, ok := m.sessions[id]
	if !ok {
		return false
	}

	if m.activeID != "" {
		m.Save(false)
	}

	m.activeID = id
	m.working = append([]Message(nil), s.Messages...)
	if s.UserID != "" {
		m.userID = s.UserID
	}
	m.touch(id)

	m.logger.Debug("session loaded", "session_id", id, "title", s.Title)
	return true
}

// Delete removes the session. Deleting the active session promotes the most
// recently touched remaining session, or creates a fresh one when none
// remain. Returns false for unknown ids.
func (m *Manager) Delete(id string) bool {
	if _, ok := m.sessions[id]; !ok {
		return false
	}

	delete(m.sessions, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}

	if m.activeID == id {
		// The stale active id is gone from the registry, so the Save inside
		// Load/Create is a no-op rather than a resurrection.
		if len(m.order) > 0 {
			m.Load(m.order[0])
		} else {
			m.Create("")
		}
	}

	m.logger.Debug("session deleted", "session_id", id)
	return true
}

// EnsureActive creates a session iff none is active. Idempotent.
func (m *Manager) EnsureActive() {
	if m.activeID == "" {
		m.Create("")
	}
}

// List projects the registry into summaries in most-recently-touched order.
func (m *Manager) List() []Summary {
	out := make([]Summary, 0, len(m.order))
	for _, id := range m.order {
		s, ok := m.sessions[id]
		if !ok {
			continue
		}
		out = append(out, Summary{
			ID:           s.ID,
			Title:        s.Title,
			CreatedAt:    s.CreatedAt,
			UpdatedAt:    s.UpdatedAt,
			MessageCount: len(s.Messages),
			Active:       s.ID == m.activeID,
			Starred:      s.Starred,
		})
	}
	return out
}

// Append adds a message to the working list and saves the active session,
// deriving a title once enough messages have accumulated.
func (m *Manager) Append(role, content string) {
	m.working = append(m.working, Message{
		Role:      role,
		Content:   content,
		Timestamp: m.now().Format("15:04"),
	})
	m.Save(true)
}

// Working returns a copy of the active working message list.
func (m *Manager) Working() []Message {
	return append([]Message(nil), m.working...)
}

// ToggleStar flips the starred flag. Returns false for unknown ids.
func (m *Manager) ToggleStar(id string) bool {
	s, ok := m.sessions[id]
	if !ok {
		return false
	}
	s.Starred = !s.Starred
	return true
}

// touch moves id to the front of the recency order.
func (m *Manager) touch(id string) {
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.order = append([]string{id}, m.order...)
}
