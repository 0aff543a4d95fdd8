// ABOUTME: Tests for the Wikipedia and DuckDuckGo search providers
// ABOUTME: Uses httptest servers; verifies the never-error degradation contract

package search

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_Disabled(t *testing.T) {
	p := New(false, "ko")

	assert.False(t, p.Available())
	assert.Equal(t, "웹 검색 기능이 비활성화되어 있습니다.", p.SearchEncyclopedia("서울"))
	assert.Equal(t, "웹 검색 기능이 비활성화되어 있습니다.", p.SearchWeb("서울"))
}

func TestSearchEncyclopedia_KeepsFirstThreeSentences(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/page/summary/"))
		fmt.Fprint(w, `{"title":"Seoul","extract":"First. Second. Third. Fourth. Fifth."}`)
	}))
	defer srv.Close()

	p := New(true, "ko", WithWikipediaURL(srv.URL))
	got := p.SearchEncyclopedia("Seoul")

	require.True(t, strings.HasPrefix(got, "Wikipedia 검색 'Seoul':\n"))
	assert.Equal(t, "Wikipedia 검색 'Seoul':\nFirst. Second. Third.", got)
}

func TestSearchEncyclopedia_ShortExtractKeptWhole(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"title":"Go","extract":"A language."}`)
	}))
	defer srv.Close()

	p := New(true, "en", WithWikipediaURL(srv.URL))
	assert.Equal(t, "Wikipedia 검색 'Go':\nA language.", p.SearchEncyclopedia("Go"))
}

func TestSearchEncyclopedia_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := New(true, "ko", WithWikipediaURL(srv.URL))
	assert.Equal(t, "Wikipedia에서 '없는문서' 정보를 찾을 수 없습니다.", p.SearchEncyclopedia("없는문서"))
}

func TestSearchEncyclopedia_ServerErrorDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := New(true, "ko", WithWikipediaURL(srv.URL))
	assert.Equal(t, "Wikipedia 검색 오류: status 500", p.SearchEncyclopedia("서울"))
}

func TestSearchEncyclopedia_ConnectionErrorDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	p := New(true, "ko", WithWikipediaURL(srv.URL))
	got := p.SearchEncyclopedia("서울")
	assert.True(t, strings.HasPrefix(got, "Wikipedia 검색 오류:"), got)
}

func TestSearchWeb_FormatsNumberedResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "golang", r.URL.Query().Get("q"))
		fmt.Fprint(w, `{
			"Heading":"Go (programming language)",
			"AbstractText":"Go is a statically typed language.",
			"RelatedTopics":[
				{"Text":"Gopher - The Go mascot."},
				{"Text":"Goroutine - A lightweight thread."},
				{"Text":"Channel - A typed conduit."}
			]
		}`)
	}))
	defer srv.Close()

	p := New(true, "ko", WithDuckDuckGoURL(srv.URL))
	got := p.SearchWeb("golang")

	require.True(t, strings.HasPrefix(got, "웹 검색 'golang':\n"), got)
	assert.Contains(t, got, "1. Go (programming language)\nGo is a statically typed language....")
	assert.Contains(t, got, "2. Gopher\nThe Go mascot....")
	assert.Contains(t, got, "3. Goroutine\nA lightweight thread....")
	assert.NotContains(t, got, "Channel")
}

func TestSearchWeb_TruncatesLongBodies(t *testing.T) {
	long := strings.Repeat("가", 200)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"Heading":"토픽","AbstractText":"%s","RelatedTopics":[]}`, long)
	}))
	defer srv.Close()

	p := New(true, "ko", WithDuckDuckGoURL(srv.URL))
	got := p.SearchWeb("긴본문")

	assert.Contains(t, got, strings.Repeat("가", 150)+"...")
	assert.NotContains(t, got, strings.Repeat("가", 151))
}

func TestSearchWeb_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Heading":"","AbstractText":"","RelatedTopics":[]}`)
	}))
	defer srv.Close()

	p := New(true, "ko", WithDuckDuckGoURL(srv.URL))
	assert.Equal(t, "'아무것도'에 대한 검색 결과가 없습니다.", p.SearchWeb("아무것도"))
}

func TestSearchWeb_ConnectionErrorDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	p := New(true, "ko", WithDuckDuckGoURL(srv.URL))
	got := p.SearchWeb("서울")
	assert.True(t, strings.HasPrefix(got, "웹 검색 오류:"), got)
}
