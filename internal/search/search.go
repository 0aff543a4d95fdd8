// ABOUTME: Best-effort web search: Wikipedia summaries and DuckDuckGo instant answers
// ABOUTME: Every failure degrades to an explanatory string; nothing raises to the caller

// Package search queries encyclopedia and general web search services and
// formats the results as text snippets for agent context. Providers are
// stateless and best-effort: unavailability and errors are rendered as
// explanatory text, never returned as errors.
package search

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultWikipediaBase = "https://%s.wikipedia.org/api/rest_v1"
	defaultDuckDuckGoURL = "https://api.duckduckgo.com/"

	maxWebResults    = 3
	maxSentenceCount = 3
	bodyRuneLimit    = 150
)

// Provider performs encyclopedia and web lookups.
type Provider struct {
	available     bool
	language      string
	wikipediaURL  string
	duckduckgoURL string
	client        *http.Client
	logger        *slog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient replaces the HTTP client (used by tests).
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// WithWikipediaURL overrides the Wikipedia API base URL.
func WithWikipediaURL(u string) Option {
	return func(p *Provider) { p.wikipediaURL = u }
}

// WithDuckDuckGoURL overrides the DuckDuckGo API URL.
func WithDuckDuckGoURL(u string) Option {
	return func(p *Provider) { p.duckduckgoURL = u }
}

// New creates a Provider. When enabled is false every lookup returns the
// standing unavailability message: the capability is decided once at startup.
func New(enabled bool, language string, opts ...Option) *Provider {
	if language == "" {
		language = "ko"
	}
	p := &Provider{
		available:     enabled,
		language:      language,
		wikipediaURL:  fmt.Sprintf(defaultWikipediaBase, language),
		duckduckgoURL: defaultDuckDuckGoURL,
		client:        &http.Client{Timeout: 10 * time.Second},
		logger:        slog.Default().With("component", "search"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Available reports whether search is enabled.
func (p *Provider) Available() bool { return p.available }

// SearchEncyclopedia looks up the query as a Wikipedia page and returns the
// first sentences of its summary.
func (p *Provider) SearchEncyclopedia(query string) string {
	if !p.available {
		return "웹 검색 기능이 비활성화되어 있습니다."
	}

	endpoint := p.wikipediaURL + "/page/summary/" + url.PathEscape(query)
	resp, err := p.client.Get(endpoint)
	if err != nil {
		p.logger.Warn("wikipedia lookup failed", "query", query, "error", err)
		return fmt.Sprintf("Wikipedia 검색 오류: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Sprintf("Wikipedia에서 '%s' 정보를 찾을 수 없습니다.", query)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("Wikipedia 검색 오류: status %d", resp.StatusCode)
	}

	var page struct {
		Title   string `json:"title"`
		Extract string `json:"extract"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return fmt.Sprintf("Wikipedia 검색 오류: %v", err)
	}
	if strings.TrimSpace(page.Extract) == "" {
		return fmt.Sprintf("Wikipedia에서 '%s' 정보를 찾을 수 없습니다.", query)
	}

	return fmt.Sprintf("Wikipedia 검색 '%s':\n%s", query, firstSentences(page.Extract))
}

// SearchWeb queries the DuckDuckGo instant answer API and formats up to
// three results.
func (p *Provider) SearchWeb(query string) string {
	if !p.available {
		return "웹 검색 기능이 비활성화되어 있습니다."
	}

	endpoint := fmt.Sprintf("%s?q=%s&format=json&no_html=1&skip_disambig=1",
		p.duckduckgoURL, url.QueryEscape(query))
	resp, err := p.client.Get(endpoint)
	if err != nil {
		p.logger.Warn("web lookup failed", "query", query, "error", err)
		return fmt.Sprintf("웹 검색 오류: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("웹 검색 오류: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Sprintf("웹 검색 오류: %v", err)
	}

	var answer struct {
		Heading       string `json:"Heading"`
		AbstractText  string `json:"AbstractText"`
		RelatedTopics []struct {
			Text string `json:"Text"`
		} `json:"RelatedTopics"`
	}
	if err := json.Unmarshal(body, &answer); err != nil {
		return fmt.Sprintf("웹 검색 오류: %v", err)
	}

	type result struct{ title, body string }
	var results []result
	if answer.AbstractText != "" {
		title := answer.Heading
		if title == "" {
			title = query
		}
		results = append(results, result{title, answer.AbstractText})
	}
	for _, topic := range answer.RelatedTopics {
		if len(results) >= maxWebResults {
			break
		}
		if topic.Text == "" {
			continue
		}
		title, text := topic.Text, topic.Text
		if i := strings.Index(topic.Text, " - "); i > 0 {
			title, text = topic.Text[:i], topic.Text[i+3:]
		}
		results = append(results, result{title, text})
	}

	if len(results) == 0 {
		return fmt.Sprintf("'%s'에 대한 검색 결과가 없습니다.", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "웹 검색 '%s':\n\n", query)
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n%s\n\n", i+1, r.title, truncate(r.body, bodyRuneLimit))
	}
	return strings.TrimRight(b.String(), "\n")
}

// firstSentences keeps the first three sentences of a summary.
func firstSentences(text string) string {
	parts := strings.Split(text, ".")
	if len(parts) > maxSentenceCount {
		parts = parts[:maxSentenceCount]
	}
	out := strings.Join(parts, ".")
	if !strings.HasSuffix(out, ".") {
		out += "."
	}
	return out
}

// truncate caps s at limit runes. The ellipsis is part of the result body
// format and is appended even when nothing was cut.
func truncate(s string, limit int) string {
	if r := []rune(s); len(r) > limit {
		s = string(r[:limit])
	}
	return s + "..."
}
