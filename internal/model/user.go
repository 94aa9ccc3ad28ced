// Package model はドメインモデルを定義する。
package model

import "time"

// User はカタログの利用ユーザーを表す。
// 初回の外部IdPサインイン時に一度だけ作成され、通常フローでは削除されない。
// 2回目以降のログインでName/Emailは更新しない（ポリシー）。
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Anonymous は未認証の呼び出し元を表す番兵値。
// セッションが未確立、またはセッションの参照先ユーザーが解決できない場合に
// nilの代わりに返す。
var Anonymous = &User{}

// IsAnonymous は未認証の呼び出し元かどうかを返す。
func (u *User) IsAnonymous() bool {
	return u == nil || u.ID == ""
}

// Identity は外部IdPとの紐付け情報を表す。
// (Provider, ProviderUserID) の組で一意。同じ外部ID文字列でも
// プロバイダーが異なれば別アカウントとして扱う。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
// Persistentはブラウザを閉じてもCookieを保持するかのライフタイムヒント。
type Session struct {
	ID         string
	UserID     string
	Persistent bool
	ExpiresAt  time.Time
	CreatedAt  time.Time
}
