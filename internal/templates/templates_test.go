// ABOUTME: Tests for the TOML template library
// ABOUTME: Covers embedded defaults, ordering, and user-file overrides

package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_BuiltinTemplates(t *testing.T) {
	lib, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"coding", "writing", "learning", "brainstorm"}, lib.Keys())

	coding, ok := lib.Get("coding")
	require.True(t, ok)
	assert.Equal(t, "💻 코딩 도움", coding.Title)
	assert.NotEmpty(t, coding.Description)
	assert.NotEmpty(t, coding.InitialMessage)
	assert.Len(t, coding.SuggestedPrompts, 4)
}

func TestLoad_UnknownKey(t *testing.T) {
	lib, err := Load()
	require.NoError(t, err)

	_, ok := lib.Get("nonexistent")
	assert.False(t, ok)
}

func TestList_MatchesKeyOrder(t *testing.T) {
	lib, err := Load()
	require.NoError(t, err)

	list := lib.List()
	require.Len(t, list, 4)
	assert.Equal(t, "💻 코딩 도움", list[0].Title)
	assert.Equal(t, "💡 아이디어 브레인스토밍", list[3].Title)
}

func TestLoadFile_AddsAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.toml")
	doc := `
[templates.coding]
title = "코딩 Q&A"
description = "사내 코딩 질문"
initial_message = "질문을 입력하세요."
suggested_prompts = ["리뷰 요청"]

[templates.interview]
title = "면접 연습"
description = "기술 면접 준비"
initial_message = "면접 연습을 시작합니다."
suggested_prompts = ["자기소개 연습"]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	lib, err := LoadFile(path)
	require.NoError(t, err)

	coding, ok := lib.Get("coding")
	require.True(t, ok)
	assert.Equal(t, "코딩 Q&A", coding.Title)

	interview, ok := lib.Get("interview")
	require.True(t, ok)
	assert.Equal(t, "면접 연습", interview.Title)

	assert.Equal(t, []string{"coding", "writing", "learning", "brainstorm", "interview"}, lib.Keys())
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestLoadFile_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[templates.x\n"), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
}
