// Package model はドメインモデルを定義する。
package model

import "time"

// Category はアイテムを束ねるカタログのカテゴリを表す。
// ちょうど1人のユーザーが所有する。Slugは名前から導出され一意。
type Category struct {
	ID          string
	Name        string
	Slug        string
	Description string
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Item はカテゴリに属するカタログのアイテムを表す。
// 所有権はカテゴリの所有権とは独立で、アイテム作成者がそのまま所有者になる。
// 認可判定はItem.OwnerIDを使い、Category.OwnerIDは参照しない。
type Item struct {
	ID          string
	CategoryID  string
	Name        string
	Slug        string
	Description string // サニタイズ済み
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CategoryWithItems はカテゴリとその所属アイテム一覧を結合したビュー。
type CategoryWithItems struct {
	Category
	Items []Item
}
