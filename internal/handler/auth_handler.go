package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/raideer/udacity-project-catalog/internal/middleware"
	"github.com/raideer/udacity-project-catalog/internal/model"
)

const (
	// oauthStateCookie はOAuthのstate値を保持するCookieの名前。
	oauthStateCookie = "oauth_state"
	// oauthPersistentCookie はログイン維持の希望をコールバックまで運ぶCookieの名前。
	oauthPersistentCookie = "oauth_persistent"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(provider, state string) (string, error)
	HandleCallback(ctx context.Context, provider, code string, persistent bool) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL       string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // 永続セッションCookieの有効期間（秒）
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
// プロバイダー名はURLパラメータで受け取り、サービス層のレジストリが解決する。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// Login はOAuthフローを開始する。
// GET /auth/{provider}/login?persistent=0|1
// 既にログイン済みの場合はフローを開始せずホームへリダイレクトする。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	// ログイン済みの呼び出しはno-opでホームへ
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if user, err := h.service.GetCurrentUser(r.Context(), cookie.Value); err == nil && !user.IsAnonymous() {
			http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
			return
		}
	}

	provider := chi.URLParam(r, "provider")

	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	url, err := h.service.GetLoginURL(provider, state)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// ログイン維持の希望をコールバックまで運ぶ。デフォルトは維持する。
	persistent := "1"
	if v := r.URL.Query().Get("persistent"); v == "0" || v == "false" {
		persistent = "0"
	}
	http.SetCookie(w, &http.Cookie{
		Name:     oauthPersistentCookie,
		Value:    persistent,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理する。
// GET /auth/{provider}/callback?code=xxx&state=yyy
// ハンドシェイク失敗時はauth_errorクエリパラメータ付きでホームへ
// リダイレクトし、ユーザーがログイン済みになることはない。
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch",
			slog.String("provider", provider),
		)
		h.redirectWithAuthError(w, r, model.ErrCodeAuthFailed)
		return
	}

	persistent := true
	if c, err := r.Cookie(oauthPersistentCookie); err == nil && (c.Value == "0" || c.Value == "false") {
		persistent = false
	}

	// 使い終わったフロー用Cookieを削除
	h.clearFlowCookies(w)

	// 2. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectWithAuthError(w, r, model.ErrCodeAuthFailed)
		return
	}

	// 3. 認証処理
	session, err := h.service.HandleCallback(r.Context(), provider, code, persistent)
	if err != nil {
		slog.Warn("oauth callback failed",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			h.redirectWithAuthError(w, r, apiErr.Code)
		} else {
			h.redirectWithAuthError(w, r, model.ErrCodeAuthFailed)
		}
		return
	}

	// 4. セッションCookieを設定（HTTP Only）
	// 非永続セッションはMaxAgeを持たないブラウザセッションCookieになる
	cookie := &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if session.Persistent {
		cookie.MaxAge = h.config.SessionMaxAge
	}
	http.SetCookie(w, cookie)

	// 5. ホームにリダイレクト
	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}

// Logout はセッションを破棄する。
// POST /auth/logout
// セッションが既に存在しない場合も成功として扱う（冪等）。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	// セッションCookieをクリア
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}

// Me は現在の呼び出し元の情報を返す。
// GET /auth/me
// 未認証でも401にせず、匿名であることをJSONで返す。
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sessionID := ""
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		sessionID = cookie.Value
	}

	user, err := h.service.GetCurrentUser(r.Context(), sessionID)
	if err != nil {
		slog.Error("failed to get current user", slog.String("error", err.Error()))
		user = model.Anonymous
	}

	w.Header().Set("Content-Type", "application/json")
	if user.IsAnonymous() {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"anonymous": true,
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"anonymous": false,
		"id":        user.ID,
		"email":     user.Email,
		"name":      user.Name,
	})
}

// redirectWithAuthError は失敗コード付きでホームへリダイレクトする。
func (h *AuthHandler) redirectWithAuthError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.config.BaseURL+"/?auth_error="+code, http.StatusTemporaryRedirect)
}

// clearFlowCookies はOAuthフロー中のみ使用するCookieを削除する。
func (h *AuthHandler) clearFlowCookies(w http.ResponseWriter) {
	for _, name := range []string{oauthStateCookie, oauthPersistentCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.config.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
