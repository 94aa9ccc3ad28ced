package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/raideer/udacity-project-catalog/internal/model"
)

// PostgresCategoryRepo はPostgreSQLを使用したカテゴリリポジトリ。
type PostgresCategoryRepo struct {
	db *sql.DB
}

// NewPostgresCategoryRepo はPostgresCategoryRepoを生成する。
func NewPostgresCategoryRepo(db *sql.DB) *PostgresCategoryRepo {
	return &PostgresCategoryRepo{db: db}
}

func scanCategory(row *sql.Row) (*model.Category, error) {
	c := &model.Category{}
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// FindBySlug はslugでカテゴリを検索する。見つからない場合はnilを返す。
func (r *PostgresCategoryRepo) FindBySlug(ctx context.Context, slug string) (*model.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, description, owner_id, created_at, updated_at
		 FROM categories WHERE slug = $1`,
		slug,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find category by slug: %w", err)
	}
	return c, nil
}

// FindByName は名前でカテゴリを検索する。見つからない場合はnilを返す。
// カテゴリ作成・改名時の重複名の事前チェックに使う。
func (r *PostgresCategoryRepo) FindByName(ctx context.Context, name string) (*model.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, description, owner_id, created_at, updated_at
		 FROM categories WHERE name = $1`,
		name,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find category by name: %w", err)
	}
	return c, nil
}

// List は全カテゴリを名前昇順で返す。
func (r *PostgresCategoryRepo) List(ctx context.Context) ([]*model.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, slug, description, owner_id, created_at, updated_at
		 FROM categories ORDER BY name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*model.Category
	for rows.Next() {
		c := &model.Category{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}

	return categories, nil
}

// CountItems はカテゴリに属するアイテム数を現時点の値で返す。
func (r *PostgresCategoryRepo) CountItems(ctx context.Context, categoryID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE category_id = $1`,
		categoryID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

// Create はカテゴリを作成する。slug重複時はErrDuplicateSlugを返す。
func (r *PostgresCategoryRepo) Create(ctx context.Context, category *model.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, slug, description, owner_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		category.ID, category.Name, category.Slug, category.Description,
		category.OwnerID, category.CreatedAt, category.UpdatedAt,
	)
	if err != nil {
		if uniqueViolation(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

// Update はカテゴリの名前・slug・説明を更新する。
func (r *PostgresCategoryRepo) Update(ctx context.Context, category *model.Category) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = $2, slug = $3, description = $4, updated_at = $5
		 WHERE id = $1`,
		category.ID, category.Name, category.Slug, category.Description, category.UpdatedAt,
	)
	if err != nil {
		if uniqueViolation(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("failed to update category: %w", err)
	}
	return nil
}

// DeleteIfEmpty はカテゴリが空の場合のみ削除する。
// 空チェックはDELETE文と同一ステートメントで評価されるため、
// 事前チェックと削除の間にアイテムが挿入されても削除されない。
func (r *PostgresCategoryRepo) DeleteIfEmpty(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM categories
		 WHERE id = $1
		   AND NOT EXISTS (SELECT 1 FROM items WHERE category_id = $1)`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	// 削除されなかった理由を判別する: 非空か、存在しないか
	var exists bool
	err = r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`,
		id,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check category existence: %w", err)
	}
	if exists {
		return ErrCategoryNotEmpty
	}
	return ErrCategoryNotFound
}

// compile-time interface check
var _ CategoryRepository = (*PostgresCategoryRepo)(nil)
