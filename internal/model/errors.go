// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, authz, validation, catalog, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnknownProvider  = "UNKNOWN_PROVIDER"
	ErrCodeAuthFailed       = "AUTH_FAILED"
	ErrCodeAuthRequired     = "AUTH_REQUIRED"
	ErrCodeNotOwner         = "NOT_OWNER"
	ErrCodeCategoryNotEmpty = "CATEGORY_NOT_EMPTY"
	ErrCodeCategoryNotFound = "CATEGORY_NOT_FOUND"
	ErrCodeItemNotFound     = "ITEM_NOT_FOUND"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
	ErrCodeValidation       = "VALIDATION_FAILED"
	ErrCodeCSRF             = "CSRF_FAILED"
)

// NewUnknownProviderError は未登録プロバイダー名のエラーを生成する。
func NewUnknownProviderError(provider string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownProvider,
		Message:  fmt.Sprintf("未対応の認証プロバイダーです: %s", provider),
		Category: "auth",
		Action:   "対応しているプロバイダーでログインしてください。",
	}
}

// NewAuthFailedError は外部IdPとのハンドシェイク失敗エラーを生成する。
// コールバックパラメータ不正、トークン交換拒否、プロフィール取得失敗を
// すべてこの1種類に正規化する。
func NewAuthFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthFailed,
		Message:  "認証に失敗しました。",
		Category: "auth",
		Action:   "しばらく待ってから再度ログインをお試しください。",
	}
}

// NewAuthRequiredError は未認証アクセスのエラーを生成する。
func NewAuthRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthRequired,
		Message:  "このページにはログインが必要です。",
		Category: "auth",
		Action:   "ログインしてから再度お試しください。",
	}
}

// NewNotOwnerError はリソース所有者以外による変更操作のエラーを生成する。
func NewNotOwnerError(resourceName string) *APIError {
	return &APIError{
		Code:     ErrCodeNotOwner,
		Message:  fmt.Sprintf("%s を変更する権限がありません。", resourceName),
		Category: "authz",
		Action:   "自分が作成したカテゴリ・アイテムのみ変更できます。",
	}
}

// NewCategoryNotEmptyError はアイテムを持つカテゴリの削除エラーを生成する。
func NewCategoryNotEmptyError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeCategoryNotEmpty,
		Message:  fmt.Sprintf("%s は空ではないため削除できません。", name),
		Category: "catalog",
		Action:   "カテゴリ内のアイテムをすべて削除してから再度お試しください。",
	}
}

// NewCategoryNotFoundError はカテゴリ未検出エラーを生成する。
func NewCategoryNotFoundError(slug string) *APIError {
	return &APIError{
		Code:     ErrCodeCategoryNotFound,
		Message:  fmt.Sprintf("指定されたカテゴリが見つかりません: %s", slug),
		Category: "catalog",
		Action:   "カテゴリ一覧から存在するカテゴリを選択してください。",
	}
}

// NewItemNotFoundError はアイテム未検出エラーを生成する。
func NewItemNotFoundError(itemID string) *APIError {
	return &APIError{
		Code:     ErrCodeItemNotFound,
		Message:  fmt.Sprintf("指定されたアイテムが見つかりません: %s", itemID),
		Category: "catalog",
		Action:   "アイテムIDを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewCSRFError はCSRFトークン検証失敗のエラーを生成する。
func NewCSRFError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRF,
		Message:  "リクエストの検証に失敗しました。",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}
