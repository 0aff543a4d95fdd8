// ABOUTME: Deterministic title derivation from the first user message
// ABOUTME: Keyword extraction for Hangul and Latin tokens with a fixed stopword list

package session

import "strings"

const (
	titleMaxRunes = 25
	titleKeywords = 3
	maxKeywords   = 5
	ellipsis      = "..."
)

// stopwords is the closed set of demonstrative, interrogative, and generic
// descriptive words excluded from titles.
var stopwords = map[string]struct{}{
	"이것": {}, "그것": {}, "저것": {}, "여기": {}, "거기": {}, "저기": {},
	"이거": {}, "그거": {}, "저거": {},
	"무엇": {}, "누구": {}, "언제": {}, "어디": {}, "어떻게": {}, "왜": {},
	"어떤": {}, "그런": {}, "이런": {},
	"있는": {}, "없는": {}, "하는": {}, "되는": {}, "같은": {}, "다른": {},
	"많은": {}, "적은": {}, "좋은": {}, "나쁜": {},
}

// GenerateTitle derives a session title from the first user message. It is
// deterministic: the same message list always yields the same title. With
// fewer than two messages, or no user message, the placeholder is returned.
func GenerateTitle(messages []Message) string {
	if len(messages) < 2 {
		return PlaceholderTitle
	}

	var first string
	for _, msg := range messages {
		if msg.Role == RoleUser {
			first = msg.Content
			break
		}
	}
	if first == "" {
		return PlaceholderTitle
	}

	keywords := ExtractKeywords(first)
	if len(keywords) > 0 {
		n := titleKeywords
		if len(keywords) < n {
			n = len(keywords)
		}
		return truncateRunes(strings.Join(keywords[:n], " "))
	}
	return truncateRunes(first)
}

// ExtractKeywords returns up to five candidate keywords from text: contiguous
// Hangul runs of length >=2 and Latin runs of length >=3, in order of first
// appearance, with stopwords removed and duplicates dropped.
func ExtractKeywords(text string) []string {
	tokens := scanTokens(text)

	seen := make(map[string]struct{}, len(tokens))
	keywords := make([]string, 0, maxKeywords)
	for _, tok := range tokens {
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		keywords = append(keywords, tok)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

// scanTokens walks the text once and collects maximal same-script runs:
// Hangul syllables with at least 2 runes, ASCII letters with at least 3.
func scanTokens(text string) []string {
	var tokens []string
	var run []rune
	var runKind int // 0 none, 1 hangul, 2 latin

	flush := func() {
		switch {
		case runKind == 1 && len(run) >= 2:
			tokens = append(tokens, string(run))
		case runKind == 2 && len(run) >= 3:
			tokens = append(tokens, string(run))
		}
		run = run[:0]
		runKind = 0
	}

	for _, r := range text {
		kind := 0
		switch {
		case r >= '가' && r <= '힣':
			kind = 1
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			kind = 2
		}
		if kind != runKind {
			flush()
			runKind = kind
		}
		if kind != 0 {
			run = append(run, r)
		}
	}
	flush()
	return tokens
}

// truncateRunes caps s at 25 runes, appending an ellipsis when cut.
func truncateRunes(s string) string {
	r := []rune(s)
	if len(r) <= titleMaxRunes {
		return s
	}
	return string(r[:titleMaxRunes]) + ellipsis
}
