// ABOUTME: Conversation starter templates loaded from TOML
// ABOUTME: Ships embedded defaults; a user file can add or override entries

// Package templates manages conversation starter templates. Each template
// seeds a new conversation with a title, an opening assistant message, and
// suggested prompts. Built-in templates are embedded; deployments can layer
// their own on top from a TOML file.
package templates

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed defaults.toml
var defaultsTOML []byte

// Template seeds a new conversation.
type Template struct {
	Title            string   `toml:"title"`
	Description      string   `toml:"description"`
	InitialMessage   string   `toml:"initial_message"`
	SuggestedPrompts []string `toml:"suggested_prompts"`
}

// Library is an ordered collection of templates keyed by short name.
type Library struct {
	templates map[string]Template
	keys      []string
}

type templateFile struct {
	Templates map[string]Template `toml:"templates"`
}

// Load returns the built-in template library.
func Load() (*Library, error) {
	lib := &Library{templates: make(map[string]Template)}
	if err := lib.merge(string(defaultsTOML)); err != nil {
		return nil, fmt.Errorf("parsing built-in templates: %w", err)
	}
	return lib, nil
}

// LoadFile returns the built-in library with the given TOML file layered on
// top. Entries in the file replace built-ins with the same key.
func LoadFile(path string) (*Library, error) {
	lib, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template file: %w", err)
	}
	if err := lib.merge(string(data)); err != nil {
		return nil, fmt.Errorf("parsing template file %s: %w", path, err)
	}
	return lib, nil
}

// merge decodes TOML and layers its templates over the library, preserving
// the document order of new keys.
func (l *Library) merge(doc string) error {
	var parsed templateFile
	md, err := toml.Decode(doc, &parsed)
	if err != nil {
		return err
	}

	for _, key := range md.Keys() {
		// Keys arrive as dotted paths; template names are [templates.<name>].
		if len(key) != 2 || key[0] != "templates" {
			continue
		}
		name := key[1]
		if _, exists := l.templates[name]; !exists {
			l.keys = append(l.keys, name)
		}
		l.templates[name] = parsed.Templates[name]
	}
	return nil
}

// Get looks up a template by key.
func (l *Library) Get(key string) (Template, bool) {
	t, ok := l.templates[key]
	return t, ok
}

// Keys returns the template keys in definition order.
func (l *Library) Keys() []string {
	out := make([]string, len(l.keys))
	copy(out, l.keys)
	return out
}

// List returns the templates in definition order.
func (l *Library) List() []Template {
	out := make([]Template, 0, len(l.keys))
	for _, k := range l.keys {
		out = append(out, l.templates[k])
	}
	return out
}
