// ABOUTME: Handler tests for the chat UI and JSON API
// ABOUTME: Drives a wired server through httptest with fake collaborators

package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/internal/agent"
	"github.com/recallhq/recall/internal/auth"
	"github.com/recallhq/recall/internal/memory"
	"github.com/recallhq/recall/internal/reason"
	"github.com/recallhq/recall/internal/session"
	"github.com/recallhq/recall/internal/templates"
	"github.com/recallhq/recall/internal/tools"
)

type fakeStore struct {
	records []memory.Record
}

func (f *fakeStore) Add(_ context.Context, text, userID string) error {
	f.records = append(f.records, memory.Record{UserID: userID, Text: text})
	return nil
}

func (f *fakeStore) Search(_ context.Context, _, userID string, limit int) ([]memory.Record, error) {
	var out []memory.Record
	for _, r := range f.records {
		if r.UserID == userID && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) GetAll(_ context.Context, userID string) ([]memory.Record, error) {
	var out []memory.Record
	for _, r := range f.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) Count(ctx context.Context, userID string) (int, error) {
	all, _ := f.GetAll(ctx, userID)
	return len(all), nil
}

func (f *fakeStore) Close() error { return nil }

type fakeSearcher struct{}

func (fakeSearcher) Available() bool                  { return true }
func (fakeSearcher) SearchEncyclopedia(string) string { return "위키 결과" }
func (fakeSearcher) SearchWeb(string) string          { return "웹 결과" }

type fakeReasoner struct {
	answer string
	model  string
}

func (f *fakeReasoner) Available() bool { return true }
func (f *fakeReasoner) Model() string   { return f.model }
func (f *fakeReasoner) Answer(context.Context, string, string) (reason.Result, error) {
	return reason.Result{Answer: f.answer, Reasoning: "추론 내용"}, nil
}

type testEnv struct {
	server   *Server
	manager  *session.Manager
	store    *fakeStore
	reasoner *fakeReasoner
	ts       *httptest.Server
	client   *http.Client
	csrf     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	hash, err := auth.HashPassword("secret123")
	require.NoError(t, err)

	store := &fakeStore{}
	manager := session.NewManager("tester", "test-model")
	reasoner := &fakeReasoner{answer: "**굵은** 답변", model: "test-model"}
	ag := agent.New(store, fakeSearcher{}, reasoner)
	lib, err := templates.Load()
	require.NoError(t, err)
	verifier := auth.NewJWTVerifier([]byte("test-jwt-secret"))

	srv := NewServer(manager, ag, store, lib, verifier, Options{
		Username:      "admin",
		PasswordHash:  hash,
		TokenTTL:      time.Hour,
		SearchEnabled: true,
		Models:        []string{"test-model", "test-model-large"},
	})
	srv.SetModelSwitch(func(model string) { reasoner.model = model })

	reg := tools.NewRegistry()
	require.NoError(t, reg.RegisterAll(tools.MemoryPack(store, nil)))
	srv.SetToolRegistry(reg)

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	jar := newCookieJar()
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testEnv{server: srv, manager: manager, store: store, reasoner: reasoner, ts: ts, client: client}
}

// newCookieJar returns a jar that keeps cookies across requests.
func newCookieJar() http.CookieJar {
	jar, _ := cookiejar.New(nil)
	return jar
}

// login performs the full CSRF + credential dance and stores the cookies.
func (e *testEnv) login(t *testing.T) {
	t.Helper()

	resp, err := e.client.Get(e.ts.URL + "/login")
	require.NoError(t, err)
	resp.Body.Close()

	for _, c := range resp.Cookies() {
		if c.Name == CSRFCookieName {
			e.csrf = c.Value
		}
	}
	require.NotEmpty(t, e.csrf)

	form := url.Values{
		"csrf_token": {e.csrf},
		"username":   {"admin"},
		"password":   {"secret123"},
	}
	resp, err = e.client.PostForm(e.ts.URL+"/login", form)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf_token", e.csrf)

	req, err := http.NewRequest(http.MethodPost, e.ts.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	rec := httptest.NewRecorder()
	rec.Code = resp.StatusCode
	for k, v := range resp.Header {
		rec.Header()[k] = v
	}
	_, err = rec.Body.ReadFrom(resp.Body)
	require.NoError(t, err)
	return rec
}

func (e *testEnv) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := e.client.Get(e.ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	var b strings.Builder
	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		b.Write(buf[:n])
		if err != nil {
			break
		}
	}
	return resp.StatusCode, b.String()
}

func TestRequireAuth_RedirectsAnonymous(t *testing.T) {
	e := newTestEnv(t)

	status, _ := e.get(t, "/")
	assert.Equal(t, http.StatusSeeOther, status)
}

func TestLogin_WrongPassword(t *testing.T) {
	e := newTestEnv(t)

	resp, err := e.client.Get(e.ts.URL + "/login")
	require.NoError(t, err)
	resp.Body.Close()
	var csrf string
	for _, c := range resp.Cookies() {
		if c.Name == CSRFCookieName {
			csrf = c.Value
		}
	}

	form := url.Values{"csrf_token": {csrf}, "username": {"admin"}, "password": {"wrong"}}
	resp, err = e.client.PostForm(e.ts.URL+"/login", form)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogin_ThenChatApp(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	status, body := e.get(t, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "chat/sidebar")
	assert.Contains(t, body, "chat/send")
}

func TestSend_RunsTurnAndRendersMarkdown(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	rec := e.postForm(t, "/chat/send", url.Values{"message": {"안녕하세요"}})
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "<strong>굵은</strong>")
	assert.Contains(t, body, "안녕하세요")
	assert.Equal(t, "refresh-sidebar", rec.Header().Get("Hx-Trigger"))

	require.Len(t, e.manager.Working(), 2)
	assert.Equal(t, session.RoleUser, e.manager.Working()[0].Role)
	assert.Equal(t, session.RoleAssistant, e.manager.Working()[1].Role)
}

func TestSend_RejectsBadCSRF(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	form := url.Values{"csrf_token": {"forged"}, "message": {"hi"}}
	req, err := http.NewRequest(http.MethodPost, e.ts.URL+"/chat/send", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSend_HelpCommand(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	rec := e.postForm(t, "/chat/send", url.Values{"message": {"/help"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "사용 가능한 명령어")
}

func TestSend_TemplateCommand(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	rec := e.postForm(t, "/chat/send", url.Values{"message": {"/template coding"}})
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "코딩 관련 질문이나 도움이 필요한 부분이 있나요")
	assert.Contains(t, body, "Python 함수 작성 도움")

	active := e.manager.Get(e.manager.ActiveID())
	require.NotNil(t, active)
	assert.Equal(t, "💻 코딩 도움", active.Title)
}

func TestSend_UnknownTemplateShowsList(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	rec := e.postForm(t, "/chat/send", url.Values{"message": {"/template nope"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "사용 가능한 템플릿")
}

func TestSend_AttachmentMarker(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	rec := e.postForm(t, "/chat/send", url.Values{
		"message":    {"이 파일 요약해줘"},
		"attachment": {"report.pdf"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	working := e.manager.Working()
	require.NotEmpty(t, working)
	assert.Contains(t, working[0].Content, "📎 파일 첨부: report.pdf")
	assert.Contains(t, working[0].Content, "이 파일 요약해줘")
}

func TestSidebar_SearchAndDefaults(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	e.postForm(t, "/chat/send", url.Values{"message": {"Python 리스트 관련 질문입니다"}})
	e.postForm(t, "/chat/new", nil)
	e.postForm(t, "/chat/send", url.Values{"message": {"쿠버네티스 배포 전략 알려줘"}})

	status, body := e.get(t, "/chat/sidebar")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Python")
	assert.Contains(t, body, "쿠버네티스")

	status, body = e.get(t, "/chat/sidebar?q=Python")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Python")
	assert.NotContains(t, body, "쿠버네티스")
}

func TestStarAndDelete(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	e.postForm(t, "/chat/send", url.Values{"message": {"별표 테스트 대화입니다"}})
	id := e.manager.ActiveID()

	rec := e.postForm(t, fmt.Sprintf("/chat/star/%s", id), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, e.manager.Get(id).Starred)

	rec = e.postForm(t, fmt.Sprintf("/chat/delete/%s", id), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, e.manager.Get(id))
	assert.NotEmpty(t, e.manager.ActiveID())
}

func TestInfoPanel(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	require.NoError(t, e.store.Add(context.Background(), "사용자는 서울에 산다", "tester"))

	status, body := e.get(t, "/chat/info")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "저장된 기억")
	assert.Contains(t, body, "사용자는 서울에 산다")
	assert.Contains(t, body, "test-model")
	assert.Contains(t, body, "즐겨찾기")
	assert.Contains(t, body, "사용자 / AI 메시지")
}

func TestModelSwitch(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	rec := e.postForm(t, "/chat/model", url.Values{"model": {"test-model-large"}})
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "refresh-sidebar", rec.Header().Get("Hx-Trigger"))

	assert.Equal(t, "test-model-large", e.manager.Model())
	assert.Equal(t, "test-model-large", e.reasoner.model)

	rec = e.postForm(t, "/chat/new", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test-model-large", e.manager.Get(e.manager.ActiveID()).Model)

	t.Run("rejects models outside the configured list", func(t *testing.T) {
		rec := e.postForm(t, "/chat/model", url.Values{"model": {"made-up"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "test-model-large", e.manager.Model())
	})

	t.Run("info panel marks the selection", func(t *testing.T) {
		status, body := e.get(t, "/chat/info")
		require.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, `<option value="test-model-large" selected>`)
	})
}

func TestAPI_TokenAndConversations(t *testing.T) {
	e := newTestEnv(t)

	body := `{"username":"admin","password":"secret123"}`
	resp, err := http.Post(e.ts.URL+"/api/token", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tokenResp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tokenResp))
	require.NotEmpty(t, tokenResp.Token)

	req, err := http.NewRequest(http.MethodGet, e.ts.URL+"/api/conversations", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tokenResp.Token)

	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestAPI_RejectsMissingToken(t *testing.T) {
	e := newTestEnv(t)

	resp, err := http.Get(e.ts.URL + "/api/conversations")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_ExpiredTokenReportsExpiry(t *testing.T) {
	e := newTestEnv(t)

	stale, err := auth.NewJWTVerifier([]byte("test-jwt-secret")).Generate("tester", -time.Minute)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, e.ts.URL+"/api/conversations", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+stale)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "token expired")
}

func TestAPI_SendAndToolCall(t *testing.T) {
	e := newTestEnv(t)

	resp, err := http.Post(e.ts.URL+"/api/token", "application/json",
		strings.NewReader(`{"username":"admin","password":"secret123"}`))
	require.NoError(t, err)
	var tokenResp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tokenResp))
	resp.Body.Close()

	authed := func(method, path, body string) *http.Response {
		req, err := http.NewRequest(method, e.ts.URL+path, strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tokenResp.Token)
		req.Header.Set("Content-Type", "application/json")
		r, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return r
	}

	resp = authed(http.MethodPost, "/api/messages", `{"message":"안녕하세요"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sendResp struct {
		Answer         string `json:"answer"`
		ConversationID string `json:"conversation_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sendResp))
	resp.Body.Close()
	assert.Equal(t, "**굵은** 답변", sendResp.Answer)
	assert.NotEmpty(t, sendResp.ConversationID)

	resp = authed(http.MethodGet, "/api/tools", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = authed(http.MethodPost, "/api/tools/memory_store", `{"content":"도구로 저장"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	found := false
	for _, r := range e.store.records {
		if r.Text == "도구로 저장" {
			found = true
		}
	}
	assert.True(t, found)
}
