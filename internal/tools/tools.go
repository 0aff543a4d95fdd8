// ABOUTME: Named-tool registry with JSON input/output handlers
// ABOUTME: Tools are registered once at startup and invoked by name per user

// Package tools provides a registry of named callable tools. Each tool takes
// JSON input scoped to a user and returns JSON output. The registry backs the
// tool invocation API and gives assistant integrations a uniform surface.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Handler executes a tool call for a user.
type Handler func(ctx context.Context, userID string, input json.RawMessage) (json.RawMessage, error)

// Tool is a registered callable.
type Tool struct {
	Name        string
	Description string
	InputSchema string
	Handler     Handler
}

// Registry holds the available tools.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*Tool
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:  make(map[string]*Tool),
		logger: slog.Default().With("component", "tools"),
	}
}

// Register adds a tool. Duplicate names are an error.
func (r *Registry) Register(t *Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool has no name")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %s has no handler", t.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %s already registered", t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

// RegisterAll registers every tool, stopping at the first failure.
func (r *Registry) RegisterAll(ts []*Tool) error {
	for _, t := range ts {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// Call invokes a tool by name.
func (r *Registry) Call(ctx context.Context, name, userID string, input json.RawMessage) (json.RawMessage, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}

	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}

	out, err := t.Handler(ctx, userID, input)
	if err != nil {
		r.logger.Warn("tool call failed", "tool", name, "user_id", userID, "error", err)
		return nil, err
	}
	return out, nil
}

// List returns the registered tools sorted by name.
func (r *Registry) List() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
