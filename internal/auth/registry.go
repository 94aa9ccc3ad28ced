package auth

import (
	"sort"

	"github.com/raideer/udacity-project-catalog/internal/model"
)

// Registry はプロバイダー名からOAuthProviderへの解決テーブル。
// 起動時に設定から一度だけ構築し、以降は変更しない。
// グローバル変数ではなく値として構築し、依存として注入する。
type Registry struct {
	providers map[string]OAuthProvider
}

// NewRegistry は指定されたプロバイダーテーブルからRegistryを生成する。
func NewRegistry(providers map[string]OAuthProvider) *Registry {
	table := make(map[string]OAuthProvider, len(providers))
	for name, p := range providers {
		table[name] = p
	}
	return &Registry{providers: table}
}

// Resolve はプロバイダー名からアダプターを解決する。
// 未登録の名前にはUNKNOWN_PROVIDERエラーを返す。
func (r *Registry) Resolve(name string) (OAuthProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, model.NewUnknownProviderError(name)
	}
	return p, nil
}

// Names は登録済みプロバイダー名を昇順で返す。ログ出力用。
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
