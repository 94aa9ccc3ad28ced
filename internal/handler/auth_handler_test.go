package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/raideer/udacity-project-catalog/internal/middleware"
	"github.com/raideer/udacity-project-catalog/internal/model"
)

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	getLoginURLFunc    func(provider, state string) (string, error)
	handleCallbackFunc func(ctx context.Context, provider, code string, persistent bool) (*model.Session, error)
	logoutFunc         func(ctx context.Context, sessionID string) error
	getCurrentUserFunc func(ctx context.Context, sessionID string) (*model.User, error)
}

// compile-time interface check
var _ AuthServiceInterface = (*mockAuthService)(nil)

func (m *mockAuthService) GetLoginURL(provider, state string) (string, error) {
	if m.getLoginURLFunc != nil {
		return m.getLoginURLFunc(provider, state)
	}
	return "https://idp.example/authorize?state=" + state, nil
}

func (m *mockAuthService) HandleCallback(ctx context.Context, provider, code string, persistent bool) (*model.Session, error) {
	if m.handleCallbackFunc != nil {
		return m.handleCallbackFunc(ctx, provider, code, persistent)
	}
	return &model.Session{ID: "session-new", Persistent: persistent}, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFunc != nil {
		return m.logoutFunc(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.getCurrentUserFunc != nil {
		return m.getCurrentUserFunc(ctx, sessionID)
	}
	return model.Anonymous, nil
}

func newAuthTestRouter(service AuthServiceInterface) http.Handler {
	h := NewAuthHandler(service, AuthHandlerConfig{
		BaseURL:       "http://localhost:8080",
		SessionMaxAge: 2592000,
	})
	r := chi.NewRouter()
	r.Get("/auth/{provider}/login", h.Login)
	r.Get("/auth/{provider}/callback", h.Callback)
	r.Post("/auth/logout", h.Logout)
	r.Get("/auth/me", h.Me)
	return r
}

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthHandler_Login_RedirectsToProvider(t *testing.T) {
	service := &mockAuthService{
		getLoginURLFunc: func(provider, state string) (string, error) {
			if provider != "google" {
				t.Errorf("provider = %q, want google", provider)
			}
			return "https://accounts.google.example/o/oauth2/auth?state=" + state, nil
		},
	}
	router := newAuthTestRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/login", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}

	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, "https://accounts.google.example/") {
		t.Errorf("Location = %q, want provider URL", location)
	}

	stateCookie := cookieByName(rec.Result().Cookies(), oauthStateCookie)
	if stateCookie == nil || stateCookie.Value == "" {
		t.Fatal("expected oauth_state cookie to be set")
	}
	if !strings.Contains(location, "state="+stateCookie.Value) {
		t.Error("redirect URL should carry the same state as the cookie")
	}

	persistentCookie := cookieByName(rec.Result().Cookies(), oauthPersistentCookie)
	if persistentCookie == nil || persistentCookie.Value != "1" {
		t.Error("persistent should default to 1")
	}
}

func TestAuthHandler_Login_NonPersistentRequested(t *testing.T) {
	router := newAuthTestRouter(&mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/login?persistent=0", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	persistentCookie := cookieByName(rec.Result().Cookies(), oauthPersistentCookie)
	if persistentCookie == nil || persistentCookie.Value != "0" {
		t.Error("persistent=0 should be carried in the flow cookie")
	}
}

func TestAuthHandler_Login_AlreadyAuthenticated_RedirectsHome(t *testing.T) {
	service := &mockAuthService{
		getCurrentUserFunc: func(ctx context.Context, sessionID string) (*model.User, error) {
			return &model.User{ID: "user-1"}, nil
		},
		getLoginURLFunc: func(provider, state string) (string, error) {
			t.Error("login URL should not be requested for an authenticated caller")
			return "", nil
		},
	}
	router := newAuthTestRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/login", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "session-live"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}
	if location := rec.Header().Get("Location"); location != "http://localhost:8080" {
		t.Errorf("Location = %q, want home", location)
	}
}

func TestAuthHandler_Login_UnknownProvider_Returns404(t *testing.T) {
	service := &mockAuthService{
		getLoginURLFunc: func(provider, state string) (string, error) {
			return "", model.NewUnknownProviderError(provider)
		},
	}
	router := newAuthTestRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/auth/facebook/login", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAuthHandler_Callback_Success_SetsPersistentCookie(t *testing.T) {
	service := &mockAuthService{
		handleCallbackFunc: func(ctx context.Context, provider, code string, persistent bool) (*model.Session, error) {
			if code != "auth-code" {
				t.Errorf("code = %q, want auth-code", code)
			}
			if !persistent {
				t.Error("persistent should default to true")
			}
			return &model.Session{ID: "session-new", Persistent: persistent}, nil
		},
	}
	router := newAuthTestRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=auth-code&state=state-1", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-1"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}
	if location := rec.Header().Get("Location"); location != "http://localhost:8080" {
		t.Errorf("Location = %q, want home", location)
	}

	sessionCookie := cookieByName(rec.Result().Cookies(), middleware.SessionCookieName)
	if sessionCookie == nil || sessionCookie.Value != "session-new" {
		t.Fatal("expected session cookie to be set")
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie must be HTTP Only")
	}
	if sessionCookie.MaxAge != 2592000 {
		t.Errorf("MaxAge = %d, want 2592000 for persistent session", sessionCookie.MaxAge)
	}
}

func TestAuthHandler_Callback_NonPersistent_BrowserSessionCookie(t *testing.T) {
	router := newAuthTestRouter(&mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=auth-code&state=state-1", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-1"})
	req.AddCookie(&http.Cookie{Name: oauthPersistentCookie, Value: "0"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	sessionCookie := cookieByName(rec.Result().Cookies(), middleware.SessionCookieName)
	if sessionCookie == nil {
		t.Fatal("expected session cookie to be set")
	}
	if sessionCookie.MaxAge != 0 {
		t.Errorf("MaxAge = %d, want 0 (browser session cookie)", sessionCookie.MaxAge)
	}
}

func TestAuthHandler_Callback_StateMismatch_RedirectsWithAuthError(t *testing.T) {
	service := &mockAuthService{
		handleCallbackFunc: func(ctx context.Context, provider, code string, persistent bool) (*model.Session, error) {
			t.Error("callback must not proceed on state mismatch")
			return nil, nil
		},
	}
	router := newAuthTestRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=auth-code&state=forged", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-1"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}
	if location := rec.Header().Get("Location"); !strings.Contains(location, "auth_error="+model.ErrCodeAuthFailed) {
		t.Errorf("Location = %q, want auth_error redirect", location)
	}
	if cookieByName(rec.Result().Cookies(), middleware.SessionCookieName) != nil {
		t.Error("session cookie must not be set on failed callback")
	}
}

func TestAuthHandler_Callback_HandshakeFailure_RedirectsWithAuthError(t *testing.T) {
	service := &mockAuthService{
		handleCallbackFunc: func(ctx context.Context, provider, code string, persistent bool) (*model.Session, error) {
			return nil, model.NewAuthFailedError()
		},
	}
	router := newAuthTestRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=bad-code&state=state-1", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-1"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if location := rec.Header().Get("Location"); !strings.Contains(location, "auth_error="+model.ErrCodeAuthFailed) {
		t.Errorf("Location = %q, want auth_error redirect", location)
	}
}

func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	loggedOut := ""
	service := &mockAuthService{
		logoutFunc: func(ctx context.Context, sessionID string) error {
			loggedOut = sessionID
			return nil
		},
	}
	router := newAuthTestRouter(service)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "session-live"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if loggedOut != "session-live" {
		t.Errorf("logged out session = %q, want session-live", loggedOut)
	}

	cleared := cookieByName(rec.Result().Cookies(), middleware.SessionCookieName)
	if cleared == nil || cleared.MaxAge != -1 {
		t.Error("session cookie should be cleared")
	}
}

func TestAuthHandler_Logout_WithoutSession_StillSucceeds(t *testing.T) {
	router := newAuthTestRouter(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// 冪等: セッションが無くてもリダイレクトで完了する
	if rec.Code != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want 307", rec.Code)
	}
}

func TestAuthHandler_Me_Anonymous(t *testing.T) {
	router := newAuthTestRouter(&mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["anonymous"] != true {
		t.Errorf("anonymous = %v, want true", body["anonymous"])
	}
}

func TestAuthHandler_Me_Authenticated(t *testing.T) {
	service := &mockAuthService{
		getCurrentUserFunc: func(ctx context.Context, sessionID string) (*model.User, error) {
			return &model.User{ID: "user-1", Email: "alice@example.com", Name: "Alice"}, nil
		},
	}
	router := newAuthTestRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "session-live"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["anonymous"] != false {
		t.Errorf("anonymous = %v, want false", body["anonymous"])
	}
	if body["id"] != "user-1" || body["name"] != "Alice" {
		t.Errorf("unexpected user payload: %v", body)
	}
}
