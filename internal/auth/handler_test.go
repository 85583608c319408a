package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ira/internal/logging"
)

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRegisterAndLoginHandlers(t *testing.T) {
	svc, _ := newTestService(t)
	register := &RegisterHandler{Service: svc, Logger: logging.Discard()}
	login := &LoginHandler{Service: svc, Logger: logging.Discard()}

	rec := post(register, `{"name":"Alex Chen","email":"sre@devteam.io","password":"AlertNow#99","role":"DevOps Lead"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.NotEmpty(t, raw["token"])
	var userJSON map[string]any
	require.NoError(t, json.Unmarshal(raw["user"], &userJSON))
	assert.Equal(t, "Alex Chen", userJSON["name"])
	assert.Equal(t, "AC", userJSON["avatar"])
	assert.Equal(t, "DevOps Lead", userJSON["role"])
	assert.NotContains(t, userJSON, "password")
	assert.NotContains(t, userJSON, "password_hash")
	assert.NotContains(t, rec.Body.String(), "AlertNow#99")

	rec = post(register, `{"name":"Alex Again","email":"sre@devteam.io","password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email already registered")

	rec = post(login, `{"email":"sre@devteam.io","password":"AlertNow#99"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	id, err := svc.VerifyToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, id)

	rec = post(login, `{"email":"sre@devteam.io","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")
}

func TestHandlers_BadJSON(t *testing.T) {
	svc, _ := newTestService(t)
	assert.Equal(t, http.StatusBadRequest, post(&RegisterHandler{Service: svc, Logger: logging.Discard()}, "{").Code)
	assert.Equal(t, http.StatusBadRequest, post(&LoginHandler{Service: svc, Logger: logging.Discard()}, "nope").Code)
}
