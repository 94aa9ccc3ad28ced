package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/raideer/udacity-project-catalog/internal/model"
)

// PostgresItemRepo はPostgreSQLを使用したアイテムリポジトリ。
type PostgresItemRepo struct {
	db *sql.DB
}

// NewPostgresItemRepo はPostgresItemRepoを生成する。
func NewPostgresItemRepo(db *sql.DB) *PostgresItemRepo {
	return &PostgresItemRepo{db: db}
}

const itemColumns = `id, category_id, name, slug, description, owner_id, created_at, updated_at`

func scanItem(row *sql.Row) (*model.Item, error) {
	i := &model.Item{}
	err := row.Scan(&i.ID, &i.CategoryID, &i.Name, &i.Slug, &i.Description, &i.OwnerID, &i.CreatedAt, &i.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return i, nil
}

// FindByCategoryAndSlug はカテゴリIDとslugでアイテムを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresItemRepo) FindByCategoryAndSlug(ctx context.Context, categoryID, slug string) (*model.Item, error) {
	item, err := scanItem(r.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE category_id = $1 AND slug = $2`,
		categoryID, slug,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find item by category and slug: %w", err)
	}
	return item, nil
}

// ListByCategory はカテゴリの全アイテムを作成日時降順で返す。
func (r *PostgresItemRepo) ListByCategory(ctx context.Context, categoryID string) ([]model.Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE category_id = $1 ORDER BY created_at DESC`,
		categoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list items by category: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// ListLatest は全カテゴリ横断で最新のアイテムをlimit件返す。
func (r *PostgresItemRepo) ListLatest(ctx context.Context, limit int) ([]model.Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list latest items: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

func collectItems(rows *sql.Rows) ([]model.Item, error) {
	var items []model.Item
	for rows.Next() {
		var i model.Item
		if err := rows.Scan(&i.ID, &i.CategoryID, &i.Name, &i.Slug, &i.Description, &i.OwnerID, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

// Create はアイテムを作成する。カテゴリ内slug重複時はErrDuplicateSlugを返す。
func (r *PostgresItemRepo) Create(ctx context.Context, item *model.Item) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO items (id, category_id, name, slug, description, owner_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID, item.CategoryID, item.Name, item.Slug, item.Description,
		item.OwnerID, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if uniqueViolation(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

// Update はアイテムの名前・slug・説明・所属カテゴリを更新する。
func (r *PostgresItemRepo) Update(ctx context.Context, item *model.Item) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE items SET category_id = $2, name = $3, slug = $4, description = $5, updated_at = $6
		 WHERE id = $1`,
		item.ID, item.CategoryID, item.Name, item.Slug, item.Description, item.UpdatedAt,
	)
	if err != nil {
		if uniqueViolation(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("failed to update item: %w", err)
	}
	return nil
}

// Delete は指定IDのアイテムを削除する。
func (r *PostgresItemRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM items WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ItemRepository = (*PostgresItemRepo)(nil)
