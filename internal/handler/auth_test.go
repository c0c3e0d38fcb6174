package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/habit-tracker/internal/auth"
	"github.com/sakif/habit-tracker/internal/handler"
	"github.com/sakif/habit-tracker/internal/model"
	"github.com/sakif/habit-tracker/internal/repository/jsonfile"
	"github.com/sakif/habit-tracker/internal/service"
)

// ============================================================
// Test environment
// ============================================================

type authEnv struct {
	handler *handler.AuthHandler
	svc     *service.AuthService
	store   *jsonfile.Store
}

func newAuthEnv(t *testing.T, github *auth.GitHubProvider) *authEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := jsonfile.New(filepath.Join(t.TempDir(), "habits.json"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars")
	if err != nil {
		t.Fatalf("creating token service: %v", err)
	}
	// Low bcrypt cost keeps the suite fast.
	passwords := auth.NewPasswordServiceWithCost(4)

	svc := service.NewAuthService(store, passwords, tokens, logger)
	return &authEnv{
		handler: handler.NewAuthHandler(svc, github, logger),
		svc:     svc,
		store:   store,
	}
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// sessionCookie finds the session cookie among Set-Cookie headers.
func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	return nil
}

const signupBody = `{"name":"Ada","age":30,"email":"ada@example.com","password":"correct horse"}`

func (e *authEnv) signup(t *testing.T) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	e.handler.HandleSignup(rr, jsonRequest(http.MethodPost, "/auth/signup", signupBody))
	return rr
}

// ============================================================
// Signup and login
// ============================================================

func TestHandleSignup(t *testing.T) {
	e := newAuthEnv(t, nil)

	rr := e.signup(t)
	assert.Equal(t, http.StatusCreated, rr.Code)

	var res struct {
		User  *model.User `json:"user"`
		Token string      `json:"token"`
	}
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.Equal(t, "Ada", res.User.Name)
	assert.NotEmpty(t, res.Token)

	cookie := sessionCookie(t, rr)
	if assert.NotNil(t, cookie, "signup should set the session cookie") {
		assert.Equal(t, res.Token, cookie.Value)
		assert.True(t, cookie.HttpOnly)
	}
}

func TestHandleSignup_DuplicateEmail(t *testing.T) {
	e := newAuthEnv(t, nil)
	e.signup(t)

	rr := e.signup(t)
	assert.Equal(t, http.StatusConflict, rr.Code)

	var res handler.ErrorResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.Equal(t, "conflict", res.Error)
}

func TestHandleSignup_BadInput(t *testing.T) {
	e := newAuthEnv(t, nil)

	t.Run("invalid JSON", func(t *testing.T) {
		rr := httptest.NewRecorder()
		e.handler.HandleSignup(rr, jsonRequest(http.MethodPost, "/auth/signup", `{"name":`))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("short password", func(t *testing.T) {
		rr := httptest.NewRecorder()
		e.handler.HandleSignup(rr, jsonRequest(http.MethodPost, "/auth/signup",
			`{"name":"Ada","email":"ada@example.com","password":"short"}`))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestHandleLogin(t *testing.T) {
	e := newAuthEnv(t, nil)
	e.signup(t)

	rr := httptest.NewRecorder()
	e.handler.HandleLogin(rr, jsonRequest(http.MethodPost, "/auth/login",
		`{"email":"ada@example.com","password":"correct horse"}`))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotNil(t, sessionCookie(t, rr))
}

func TestHandleLogin_WrongPassword(t *testing.T) {
	e := newAuthEnv(t, nil)
	e.signup(t)

	rr := httptest.NewRecorder()
	e.handler.HandleLogin(rr, jsonRequest(http.MethodPost, "/auth/login",
		`{"email":"ada@example.com","password":"wrong horse"}`))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	var res handler.ErrorResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.Equal(t, "auth_required", res.Error)
	assert.Nil(t, sessionCookie(t, rr))
}

func TestHandleLogout(t *testing.T) {
	e := newAuthEnv(t, nil)

	rr := httptest.NewRecorder()
	e.handler.HandleLogout(rr, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	cookie := sessionCookie(t, rr)
	if assert.NotNil(t, cookie) {
		assert.Empty(t, cookie.Value)
		assert.Negative(t, cookie.MaxAge, "logout must expire the cookie")
	}
}

func TestHandleMe(t *testing.T) {
	e := newAuthEnv(t, nil)
	rr := e.signup(t)
	var created struct {
		User *model.User `json:"user"`
	}
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&created))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req = req.WithContext(auth.ContextWithUserID(req.Context(), created.User.ID))
	rr = httptest.NewRecorder()
	e.handler.HandleMe(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	var user model.User
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&user))
	assert.Equal(t, "ada@example.com", user.Email)
}

func TestHandleMe_StaleSession(t *testing.T) {
	e := newAuthEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req = req.WithContext(auth.ContextWithUserID(req.Context(), "gone"))
	rr := httptest.NewRecorder()
	e.handler.HandleMe(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

// ============================================================
// GitHub OAuth flow
// ============================================================

func TestHandleGitHubLogin_Disabled(t *testing.T) {
	e := newAuthEnv(t, nil)

	rr := httptest.NewRecorder()
	e.handler.HandleGitHubLogin(rr, httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	e.handler.HandleGitHubCallback(rr, httptest.NewRequest(http.MethodGet, "/auth/github/callback", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleGitHubLogin_Redirect(t *testing.T) {
	provider := auth.NewGitHubProvider("client-id", "client-secret", "http://localhost:8080/auth/github/callback")
	e := newAuthEnv(t, provider)

	rr := httptest.NewRecorder()
	e.handler.HandleGitHubLogin(rr, httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)

	location := rr.Header().Get("Location")
	assert.Contains(t, location, "github.com/login/oauth/authorize")
	assert.Contains(t, location, "client_id=client-id")

	var state *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == "oauth_state" {
			state = c
		}
	}
	if assert.NotNil(t, state, "login must set the state cookie") {
		assert.NotEmpty(t, state.Value)
		assert.Contains(t, location, "state="+state.Value)
	}
}

func TestHandleGitHubCallback_StateMismatch(t *testing.T) {
	provider := auth.NewGitHubProvider("client-id", "client-secret", "http://localhost:8080/auth/github/callback")
	e := newAuthEnv(t, provider)

	t.Run("missing cookie", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=x&state=abc", nil)
		e.handler.HandleGitHubCallback(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("wrong state", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=x&state=abc", nil)
		req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "different"})
		e.handler.HandleGitHubCallback(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.True(t, strings.Contains(rr.Body.String(), "invalid OAuth state"))
	})
}

func TestHandleGitHubCallback_UserDenied(t *testing.T) {
	provider := auth.NewGitHubProvider("client-id", "client-secret", "http://localhost:8080/auth/github/callback")
	e := newAuthEnv(t, provider)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/auth/github/callback?state=abc&error=access_denied", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "abc"})
	e.handler.HandleGitHubCallback(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/?auth=denied", rr.Header().Get("Location"))
}

func TestHandleGitHubCallback_MissingCode(t *testing.T) {
	provider := auth.NewGitHubProvider("client-id", "client-secret", "http://localhost:8080/auth/github/callback")
	e := newAuthEnv(t, provider)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?state=abc", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "abc"})
	e.handler.HandleGitHubCallback(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
