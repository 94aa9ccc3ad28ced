// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/raideer/udacity-project-catalog/internal/model"
)

// SessionCookieName はセッションIDを保持するHTTP Only Cookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userContextKey はリクエストコンテキストに呼び出し元ユーザーを格納するためのキー。
var userContextKey = contextKey("current_user")

// UserResolver はセッションIDから呼び出し元ユーザーを解決するインターフェース。
// auth.Serviceの部分集合として定義する。
type UserResolver interface {
	// GetCurrentUser はセッションIDからユーザーを解決する。
	// セッションが存在しない・期限切れの場合はmodel.Anonymousを返す。
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// 呼び出し元ユーザーをリクエストコンテキストに注入するミドルウェアを返す。
// 未認証リクエストも拒否せず、model.Anonymousとして通過させる。
// 公開エンドポイントと保護エンドポイントの両方でこのミドルウェアを共有し、
// 認証の強制はRequireAuthが行う。
func NewSessionMiddleware(resolver UserResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""
			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				sessionID = cookie.Value
			}

			user, err := resolver.GetCurrentUser(r.Context(), sessionID)
			if err != nil {
				// 解決失敗は匿名として継続する。公開ページはセッションストアの
				// 障害に巻き込まれない。
				slog.Error("failed to resolve session",
					slog.String("error", err.Error()),
				)
				user = model.Anonymous
			}

			ctx := ContextWithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth は認証済みユーザーのみを通過させるミドルウェアを返す。
// NewSessionMiddlewareの後に配置する。
// 匿名の呼び出し元には401とAUTH_REQUIREDエラーを返す。
func RequireAuth() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserFromContext(r.Context()).IsAnonymous() {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthRequiredError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserFromContext はリクエストコンテキストから呼び出し元ユーザーを取得する。
// 未注入の場合はmodel.Anonymousを返し、nilを返すことはない。
func UserFromContext(ctx context.Context) *model.User {
	user, ok := ctx.Value(userContextKey).(*model.User)
	if !ok || user == nil {
		return model.Anonymous
	}
	return user
}

// ContextWithUser はコンテキストに呼び出し元ユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
