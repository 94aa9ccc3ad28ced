// Package authz はリソース所有権に基づく認可判定を提供する。
package authz

import "github.com/raideer/udacity-project-catalog/internal/model"

// AssertOwner は呼び出し元がリソースの所有者であることを検証する。
// 判定は識別子の比較のみで行い、オブジェクトの同一性には依存しない。
// 未認証の呼び出し元は常にNOT_OWNERで拒否される。
// resourceNameはエラーメッセージに表示するリソース名。
// 所有権の拡張（管理者の上書き、共有所有）はこのチェックの変種として
// 追加し、呼び出し側は書き換えない。
func AssertOwner(caller *model.User, ownerID, resourceName string) error {
	if caller.IsAnonymous() {
		return model.NewNotOwnerError(resourceName)
	}
	if caller.ID != ownerID {
		return model.NewNotOwnerError(resourceName)
	}
	return nil
}
