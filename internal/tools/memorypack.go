// ABOUTME: Memory tool pack: store, search, list, reminders, preferences, clock
// ABOUTME: Reminders and preferences are stored as prefixed memory records

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/recallhq/recall/internal/memory"
)

const defaultSearchLimit = 5

// MemoryPack returns the tools that expose the memory store: direct
// store/search/list access plus reminders and per-category preferences
// layered on top of it.
func MemoryPack(store memory.Store, now func() time.Time) []*Tool {
	if now == nil {
		now = time.Now
	}
	h := &memoryHandlers{store: store, now: now}

	return []*Tool{
		{
			Name:        "memory_store",
			Description: "Store a piece of information in long-term memory",
			InputSchema: `{"type":"object","properties":{"content":{"type":"string"}},"required":["content"]}`,
			Handler:     h.Store,
		},
		{
			Name:        "memory_search",
			Description: "Search stored memories by relevance",
			InputSchema: `{"type":"object","properties":{"query":{"type":"string"},"limit":{"type":"integer"}},"required":["query"]}`,
			Handler:     h.Search,
		},
		{
			Name:        "memory_get_all",
			Description: "List every stored memory for the user",
			InputSchema: `{"type":"object"}`,
			Handler:     h.GetAll,
		},
		{
			Name:        "reminder_set",
			Description: "Store a reminder, optionally with a date and time",
			InputSchema: `{"type":"object","properties":{"text":{"type":"string"},"date_time":{"type":"string"}},"required":["text"]}`,
			Handler:     h.SetReminder,
		},
		{
			Name:        "preference_get",
			Description: "Look up stored user preferences for a category",
			InputSchema: `{"type":"object","properties":{"category":{"type":"string"}}}`,
			Handler:     h.GetPreferences,
		},
		{
			Name:        "preference_update",
			Description: "Record a user preference for a category",
			InputSchema: `{"type":"object","properties":{"category":{"type":"string"},"preference":{"type":"string"}},"required":["category","preference"]}`,
			Handler:     h.UpdatePreferences,
		},
		{
			Name:        "time_now",
			Description: "Return the current date and time",
			InputSchema: `{"type":"object"}`,
			Handler:     h.Now,
		},
	}
}

type memoryHandlers struct {
	store memory.Store
	now   func() time.Time
}

type storeInput struct {
	Content string `json:"content"`
}

func (h *memoryHandlers) Store(ctx context.Context, userID string, input json.RawMessage) (json.RawMessage, error) {
	var in storeInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if err := h.store.Add(ctx, in.Content, userID); err != nil {
		return nil, err
	}
	return json.Marshal(map[string]string{"status": "stored"})
}

type searchInput struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (h *memoryHandlers) Search(ctx context.Context, userID string, input json.RawMessage) (json.RawMessage, error) {
	var in searchInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if in.Limit <= 0 {
		in.Limit = defaultSearchLimit
	}

	records, err := h.store.Search(ctx, in.Query, userID, in.Limit)
	if err != nil {
		return nil, err
	}
	return marshalRecords(records)
}

func (h *memoryHandlers) GetAll(ctx context.Context, userID string, _ json.RawMessage) (json.RawMessage, error) {
	records, err := h.store.GetAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	return marshalRecords(records)
}

type reminderInput struct {
	Text     string `json:"text"`
	DateTime string `json:"date_time"`
}

func (h *memoryHandlers) SetReminder(ctx context.Context, userID string, input json.RawMessage) (json.RawMessage, error) {
	var in reminderInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	record := fmt.Sprintf("REMINDER: 알림 설정 (%s): %s", in.DateTime, in.Text)
	if err := h.store.Add(ctx, record, userID); err != nil {
		return nil, err
	}
	return json.Marshal(map[string]string{"status": "reminder set", "reminder": record})
}

type preferenceInput struct {
	Category   string `json:"category"`
	Preference string `json:"preference"`
}

func (h *memoryHandlers) GetPreferences(ctx context.Context, userID string, input json.RawMessage) (json.RawMessage, error) {
	var in preferenceInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if in.Category == "" {
		in.Category = "general"
	}

	records, err := h.store.Search(ctx, "사용자 선호도 "+in.Category, userID, defaultSearchLimit)
	if err != nil {
		return nil, err
	}
	return marshalRecords(records)
}

func (h *memoryHandlers) UpdatePreferences(ctx context.Context, userID string, input json.RawMessage) (json.RawMessage, error) {
	var in preferenceInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if in.Category == "" {
		in.Category = "general"
	}

	record := fmt.Sprintf("%s에 대한 사용자 선호도: %s", in.Category, in.Preference)
	if err := h.store.Add(ctx, record, userID); err != nil {
		return nil, err
	}
	return json.Marshal(map[string]string{"status": "preference updated"})
}

func (h *memoryHandlers) Now(_ context.Context, _ string, _ json.RawMessage) (json.RawMessage, error) {
	return json.Marshal(map[string]string{"time": h.now().Format("2006-01-02 15:04:05")})
}

func marshalRecords(records []memory.Record) (json.RawMessage, error) {
	texts := make([]string, 0, len(records))
	for _, r := range records {
		texts = append(texts, r.Text)
	}
	return json.Marshal(map[string]any{"memories": texts, "count": len(texts)})
}
