// Package auth はOAuth認証フロー、セッション管理を提供する。
package auth

import "context"

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
// プロバイダー固有のレスポンス形状は各アダプター内部に閉じ、
// 外にはこの正規化された形だけを公開する。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Provider       string // "google", "github" 等
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// プロバイダーの追加はこのインターフェースの実装をレジストリに
// 登録するだけで済む。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	// ローカルな副作用（セッション確立、DB書き込み）は一切行わない。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	// トークンエンドポイントとプロフィールエンドポイントへの
	// 2回のネットワーク往復を行う。リトライはしない。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}
