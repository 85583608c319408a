package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"

	"ira/internal/auth"
	"ira/internal/chat"
	"ira/internal/incidents"
	"ira/internal/logging"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	authSvc := auth.NewService(auth.NewMemoryStore(), "test-secret", auth.WithBcryptCost(bcrypt.MinCost))
	chatSvc := chat.NewService(chat.NewMemoryStore(), chat.NewResolver(chat.DefaultRules()))
	return NewRouter(Deps{
		Logger:      logging.Discard(),
		Auth:        authSvc,
		Chat:        chatSvc,
		Incidents:   incidents.NewMemoryStore(),
		CORSOrigins: []string{"*"},
	})
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func register(t *testing.T, h http.Handler, email string) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/auth/register", "",
		`{"name":"Ops Admin","email":"`+email+`","password":"Incident@123","role":"Senior SRE"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestRouter_PublicRoutes(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "IRA API running", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = do(t, h, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ira_http_requests_total{code="200",method="GET",route="GET /{$}"} 1`)
	assert.Contains(t, rec.Body.String(), `route="unmatched"`)
}

func TestRouter_CORSPreflight(t *testing.T) {
	h := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestRouter_CORSRestrictedOrigins(t *testing.T) {
	h := withCORS([]string{"https://ira.example"}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://ira.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://ira.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_AuthFlow(t *testing.T) {
	h := newTestRouter(t)
	register(t, h, "ops@devteam.io")

	rec := do(t, h, http.MethodPost, "/api/auth/register", "",
		`{"name":"Other","email":"ops@devteam.io","password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email already registered")

	rec = do(t, h, http.MethodPost, "/api/auth/login", "", `{"email":"ops@devteam.io","password":"Incident@123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Token string         `json:"token"`
		User  map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "OA", resp.User["avatar"])
	assert.NotContains(t, resp.User, "password_hash")
	assert.NotContains(t, rec.Body.String(), "Incident@123")

	rec = do(t, h, http.MethodPost, "/api/auth/login", "", `{"email":"ops@devteam.io","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")
}

func TestRouter_SecuredRoutesRequireToken(t *testing.T) {
	h := newTestRouter(t)
	paths := []struct{ method, path string }{
		{http.MethodPost, "/api/chat"},
		{http.MethodGet, "/api/chat/history/s1"},
		{http.MethodGet, "/api/incidents"},
		{http.MethodPost, "/api/incidents"},
		{http.MethodPatch, "/api/incidents/1f0c6a8e-8a4e-4b3a-9f57-4c1f3b2a7d10"},
	}
	for _, p := range paths {
		rec := do(t, h, p.method, p.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, p.path)
		rec = do(t, h, p.method, p.path, "garbage", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, p.path)
	}
}

func TestRouter_ChatFlow(t *testing.T) {
	h := newTestRouter(t)
	alice := register(t, h, "ops@devteam.io")
	bob := register(t, h, "sre@devteam.io")

	rec := do(t, h, http.MethodPost, "/api/chat", alice, `{"text":"What is the P0 status?","session":"session_1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var reply map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, chat.DefaultRules().Rules[0].Reply, reply["reply"])

	rec = do(t, h, http.MethodGet, "/api/chat/history/session_1", alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs []chat.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.RoleUser, msgs[0].Role)
	assert.Equal(t, chat.RoleBot, msgs[1].Role)

	rec = do(t, h, http.MethodGet, "/api/chat/history/session_1", bob, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRouter_IncidentFlow(t *testing.T) {
	h := newTestRouter(t)
	token := register(t, h, "ops@devteam.io")

	rec := do(t, h, http.MethodPost, "/api/incidents", token, `{"title":"CPU spike","severity":"P0","service":"prod-cluster-07"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var inc incidents.Incident
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inc))
	assert.Equal(t, "Ops Admin", inc.CreatedBy.Name)

	rec = do(t, h, http.MethodPatch, "/api/incidents/"+inc.ID, token, `{"status":"investigating"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/incidents/"+inc.ID, token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got incidents.Incident
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, incidents.StatusInvestigating, got.Status)
	assert.Equal(t, "CPU spike", got.Title)

	rec = do(t, h, http.MethodGet, "/api/incidents?status=investigating", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []incidents.Incident
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	// Method routing belongs to the mux; handlers never see other verbs.
	rec = do(t, h, http.MethodDelete, "/api/incidents/"+inc.ID, token, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/incidents/"+inc.ID, token, `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	rec = do(t, h, http.MethodPut, "/api/incidents", token, `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRecoverer(t *testing.T) {
	h := recoverer(logging.Discard(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal_error")
}

func TestServer_RunShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := New(ln.Addr().String(), newTestRouter(t), logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, ln, 2*time.Second) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	defer client.CloseIdleConnections()
	require.Eventually(t, func() bool {
		resp, err := client.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
