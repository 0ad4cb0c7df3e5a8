package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saurabh22suman/soloengine.in/chat"
	"github.com/saurabh22suman/soloengine.in/store"
)

type staticEmbedder struct{}

func (staticEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return []float64{1, 0, 0}, nil
}

func (e staticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{1, 0, 0}
	}
	return out, nil
}

func (staticEmbedder) Dimension() int { return 3 }

type staticGenerator struct {
	response string
	calls    int
}

func (g *staticGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	return g.response, nil
}

func newTestServer(t *testing.T) (*Server, *staticGenerator) {
	t.Helper()

	st, err := store.Open(store.Config{
		DSN:                  filepath.Join(t.TempDir(), "test.db"),
		Embedder:             staticEmbedder{},
		MaxRequestsPerMinute: 100,
		RateLimitingEnabled:  true,
		RateLimitFailOpen:    true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	gen := &staticGenerator{response: "generated answer"}
	srv, err := New(Config{
		Store: st,
		Chat:  chat.New(st, gen, 5),
	})
	require.NoError(t, err)
	return srv, gen
}

// browse performs GET / and returns the session cookie plus CSRF token.
func browse(t *testing.T, srv *Server, handler http.Handler) (*http.Cookie, string) {
	t.Helper()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := rec.Result()
	require.NotEmpty(t, resp.Cookies())
	cookie := resp.Cookies()[0]

	sess, ok := srv.sessions.sessions[cookie.Value]
	require.True(t, ok)
	return cookie, sess.CSRFToken
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var health map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "connected", health["database"])
}

func TestIndexRendersSeededProfile(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Prakersh Maheshwari")
	assert.Contains(t, rec.Body.String(), "Software Engineer")
	assert.NotEmpty(t, rec.Result().Cookies())
}

func TestChatRejectsBadCSRF(t *testing.T) {
	srv, gen := newTestServer(t)
	handler := srv.Handler()
	cookie, _ := browse(t, srv, handler)

	body := strings.NewReader(`{"message":"hi","csrf_token":"wrong"}`)
	req := httptest.NewRequest("POST", "/api/chat", body)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var result chat.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, "error", result.Status)
	assert.Equal(t, "Invalid security token", result.Message)
	assert.Zero(t, gen.calls)

	// Nothing was persisted for the rejected request.
	history, err := srv.store.ListRecentHistory(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestChatNoSession(t *testing.T) {
	srv, gen := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(`{"message":"hi","csrf_token":"x"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, gen.calls)
}

func TestChatRoundTrip(t *testing.T) {
	srv, gen := newTestServer(t)
	handler := srv.Handler()
	cookie, csrf := browse(t, srv, handler)

	body := strings.NewReader(`{"message":"what do you do?","csrf_token":"` + csrf + `"}`)
	req := httptest.NewRequest("POST", "/api/chat", body)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result chat.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, "generated answer", result.Message)
	assert.Equal(t, 1, gen.calls)

	history, err := srv.store.ListRecentHistory(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "what do you do?", history[0].UserMessage)
}

func TestAdminRequiresLogin(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	// Dashboard shows the login form.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/admin", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Admin Login")

	// Mutations redirect away.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/admin/profile", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func login(t *testing.T, srv *Server, handler http.Handler) (*http.Cookie, string) {
	t.Helper()
	cookie, csrf := browse(t, srv, handler)

	form := url.Values{"username": {"admin"}, "password": {"admin123"}, "csrf_token": {csrf}}
	req := httptest.NewRequest("POST", "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/admin", rec.Header().Get("Location"))
	return cookie, csrf
}

func TestAdminLoginAndMutation(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()
	cookie, csrf := login(t, srv, handler)

	// Dashboard now renders.
	req := httptest.NewRequest("GET", "/admin", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Profile")

	// A skill can be added.
	form := url.Values{"category": {"Languages"}, "name": {"Zig"}, "level": {"2"}, "csrf_token": {csrf}}
	req = httptest.NewRequest("POST", "/admin/skills", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	skills, err := srv.store.ListSkills(context.Background())
	require.NoError(t, err)
	found := false
	for _, sk := range skills {
		if sk.Name == "Zig" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAdminLoginWrongPassword(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()
	cookie, csrf := browse(t, srv, handler)

	form := url.Values{"username": {"admin"}, "password": {"nope"}, "csrf_token": {csrf}}
	req := httptest.NewRequest("POST", "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "error=")

	sess, ok := srv.sessions.sessions[cookie.Value]
	require.True(t, ok)
	assert.False(t, sess.Admin)
}

func TestAdminMutationRejectsBadCSRF(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()
	cookie, _ := login(t, srv, handler)

	form := url.Values{"category": {"X"}, "name": {"Y"}, "level": {"1"}, "csrf_token": {"forged"}}
	req := httptest.NewRequest("POST", "/admin/skills", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "error=")

	skills, err := srv.store.ListSkills(context.Background())
	require.NoError(t, err)
	for _, sk := range skills {
		assert.NotEqual(t, "Y", sk.Name)
	}
}

func TestRAGConsoleDocumentFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()
	cookie, csrf := login(t, srv, handler)

	form := url.Values{
		"title":      {"Resume Overview"},
		"source":     {"resume"},
		"content":    {"A short overview paragraph."},
		"metadata":   {"section=overview"},
		"csrf_token": {csrf},
	}
	req := httptest.NewRequest("POST", "/admin/rag/documents", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	docs, err := srv.store.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Resume Overview", docs[0].Title)
	assert.Equal(t, "overview", docs[0].Metadata["section"])

	// Console page lists it.
	req = httptest.NewRequest("GET", "/admin/rag", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Resume Overview")
}

func TestPDFUnavailableWithoutBinary(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.pdfBinary = "definitely-not-installed"

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/resume.pdf", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
