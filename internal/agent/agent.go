// ABOUTME: Turn pipeline: search trigger, memory recall, reasoning, memory writes
// ABOUTME: A turn never fails outright; every stage degrades to explanatory text

// Package agent orchestrates a single conversation turn. It decides whether
// the input needs a web search, assembles labeled context from search results
// and recalled memories, asks the reasoning engine, and records condensed
// traces of the turn back into memory.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/recallhq/recall/internal/memory"
	"github.com/recallhq/recall/internal/reason"
)

const (
	memoryRecallLimit = 5

	// Inputs at or under this many runes are small talk and leave no trace.
	minRecordedInputRunes = 10

	searchSnippetRunes = 50
	answerSnippetRunes = 100
)

// searchTriggers are matched as substrings of the raw input.
var searchTriggers = []string{"검색", "최신", "뉴스", "찾아", "알려줘", "정보"}

// Searcher performs best-effort web lookups.
type Searcher interface {
	Available() bool
	SearchEncyclopedia(query string) string
	SearchWeb(query string) string
}

// Reasoner produces answers with visible reasoning.
type Reasoner interface {
	Available() bool
	Model() string
	Answer(ctx context.Context, contextText, question string) (reason.Result, error)
}

// Response is the outcome of one processed turn.
type Response struct {
	Answer    string
	Reasoning string
	Searched  bool
}

// Agent runs the turn pipeline over its collaborators.
type Agent struct {
	store    memory.Store
	searcher Searcher
	engine   Reasoner
	logger   *slog.Logger
}

// New wires an Agent from its collaborators.
func New(store memory.Store, searcher Searcher, engine Reasoner) *Agent {
	return &Agent{
		store:    store,
		searcher: searcher,
		engine:   engine,
		logger:   slog.Default().With("component", "agent"),
	}
}

// NeedsSearch reports whether the input asks for fresh information.
func NeedsSearch(input string) bool {
	for _, kw := range searchTriggers {
		if strings.Contains(input, kw) {
			return true
		}
	}
	return false
}

// Process runs one turn for the given user input.
func (a *Agent) Process(ctx context.Context, userID, input string) Response {
	searched := NeedsSearch(input)
	var b strings.Builder

	if searched {
		wiki := a.searcher.SearchEncyclopedia(input)
		web := a.searcher.SearchWeb(input)
		fmt.Fprintf(&b, "Wikipedia 검색:\n%s\n\n", wiki)
		fmt.Fprintf(&b, "웹 검색:\n%s\n\n", web)

		a.record(ctx, userID, fmt.Sprintf("검색: %s - Wikipedia: %s... Web: %s...",
			input, snippet(wiki, searchSnippetRunes), snippet(web, searchSnippetRunes)))
	}

	fmt.Fprintf(&b, "관련 기억:\n%s\n\n", a.recallMemories(ctx, userID, input))
	contextText := b.String()

	if !a.engine.Available() {
		answer := fmt.Sprintf("'%s'에 대한 응답입니다. (모델: %s)\nAPI 키를 설정하면 더 정교한 답변을 받을 수 있습니다.",
			input, a.engine.Model())
		if contextText != "" {
			answer = contextText + "\n\n" + answer
		}
		return Response{Answer: answer, Searched: searched}
	}

	result, err := a.engine.Answer(ctx, contextText, input)
	if err != nil {
		a.logger.Warn("reasoning failed", "user_id", userID, "error", err)
		return Response{Answer: fmt.Sprintf("AI 응답 생성 중 오류: %v", err), Searched: searched}
	}

	if len([]rune(input)) > minRecordedInputRunes {
		a.record(ctx, userID, fmt.Sprintf("대화: %s -> %s...",
			input, snippet(result.Answer, answerSnippetRunes)))
	}

	return Response{Answer: result.Answer, Reasoning: result.Reasoning, Searched: searched}
}

// recallMemories formats up to memoryRecallLimit relevant memories as a
// numbered list. Lookup failures become explanatory text inside the context.
func (a *Agent) recallMemories(ctx context.Context, userID, query string) string {
	records, err := a.store.Search(ctx, query, userID, memoryRecallLimit)
	if err != nil {
		return fmt.Sprintf("메모리 검색 오류: %v", err)
	}
	if len(records) == 0 {
		return "관련 메모리가 없습니다."
	}

	var b strings.Builder
	b.WriteString("관련 메모리:\n")
	for i, rec := range records {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rec.Text)
	}
	return b.String()
}

// record stores a condensed trace of the turn. Failures are logged only;
// a broken memory store must not break the conversation.
func (a *Agent) record(ctx context.Context, userID, text string) {
	if err := a.store.Add(ctx, text, userID); err != nil {
		a.logger.Warn("memory write failed", "user_id", userID, "error", err)
	}
}

func snippet(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
