// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/raideer/udacity-project-catalog/internal/model"
)

// ErrDuplicateIdentity は (provider, provider_user_id) の一意性制約違反を表す。
// 同一外部IDの初回ログインが競合した場合、敗者側はこのエラーを受け取り、
// 呼び出し側で読み取りとして再試行する。
var ErrDuplicateIdentity = errors.New("identity already exists")

// ErrDuplicateSlug はslugの一意性制約違反を表す。
var ErrDuplicateSlug = errors.New("slug already exists")

// ErrCategoryNotEmpty はアイテムを持つカテゴリの削除が拒否されたことを表す。
// 削除文の中でアイテム数を再評価するため、チェックと削除の間の挿入も検出する。
var ErrCategoryNotEmpty = errors.New("category is not empty")

// ErrCategoryNotFound は削除対象のカテゴリが存在しないことを表す。
var ErrCategoryNotFound = errors.New("category not found")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	// identityの一意性制約に違反した場合はErrDuplicateIdentityを返す。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しないIDはエラーにしない（冪等）。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// CategoryRepository はカテゴリデータの永続化インターフェース。
type CategoryRepository interface {
	// FindBySlug はslugでカテゴリを検索する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Category, error)

	// FindByName は名前でカテゴリを検索する。見つからない場合はnilを返す。
	// カテゴリ作成・改名時の重複名の事前チェックに使う。
	FindByName(ctx context.Context, name string) (*model.Category, error)

	// List は全カテゴリを名前昇順で返す。
	List(ctx context.Context) ([]*model.Category, error)

	// CountItems はカテゴリに属するアイテム数を現時点の値で返す。
	CountItems(ctx context.Context, categoryID string) (int, error)

	// Create はカテゴリを作成する。slug重複時はErrDuplicateSlugを返す。
	Create(ctx context.Context, category *model.Category) error

	// Update はカテゴリの名前・slug・説明を更新する。
	Update(ctx context.Context, category *model.Category) error

	// DeleteIfEmpty はカテゴリが空の場合のみ削除する。
	// アイテム数の再評価は削除文と同一ステートメント内で行われ、
	// アイテムが存在する場合はErrCategoryNotEmpty、
	// カテゴリが存在しない場合はErrCategoryNotFoundを返す。
	DeleteIfEmpty(ctx context.Context, id string) error
}

// ItemRepository はアイテムデータの永続化インターフェース。
type ItemRepository interface {
	// FindByCategoryAndSlug はカテゴリIDとslugでアイテムを検索する。
	// 見つからない場合はnilを返す。
	FindByCategoryAndSlug(ctx context.Context, categoryID, slug string) (*model.Item, error)

	// ListByCategory はカテゴリの全アイテムを作成日時降順で返す。
	ListByCategory(ctx context.Context, categoryID string) ([]model.Item, error)

	// ListLatest は全カテゴリ横断で最新のアイテムをlimit件返す。
	ListLatest(ctx context.Context, limit int) ([]model.Item, error)

	// Create はアイテムを作成する。カテゴリ内slug重複時はErrDuplicateSlugを返す。
	Create(ctx context.Context, item *model.Item) error

	// Update はアイテムの名前・slug・説明・所属カテゴリを更新する。
	Update(ctx context.Context, item *model.Item) error

	// Delete は指定IDのアイテムを削除する。
	Delete(ctx context.Context, id string) error
}
