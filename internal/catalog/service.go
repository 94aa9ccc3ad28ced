// Package catalog はカテゴリとアイテムのドメインロジックを提供する。
//
// カテゴリの作成・更新・削除、アイテムのCRUD、公開ビュー
// （カテゴリ一覧、最新アイテム、カタログ全体のエクスポート）を扱う。
// 変更系の操作は所有権チェックを通過した場合のみ実行される。
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/raideer/udacity-project-catalog/internal/authz"
	"github.com/raideer/udacity-project-catalog/internal/model"
	"github.com/raideer/udacity-project-catalog/internal/repository"
)

// latestItemCount はトップページに表示する最新アイテムの件数。
const latestItemCount = 3

// Sanitizer は保存前のHTMLサニタイズ機能のインターフェース。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// Metrics はカタログサービスが記録するメトリクスのインターフェース。
// 未設定（nil）の場合は記録しない。
type Metrics interface {
	RecordAuthzDenied(resource string)
}

// CategoryInput はカテゴリ作成・更新の入力。
type CategoryInput struct {
	Name        string
	Description string
}

// ItemInput はアイテム作成・更新の入力。
// CategorySlugは更新時にアイテムを別カテゴリへ移動する場合に指定する。
type ItemInput struct {
	Name         string
	Description  string
	CategorySlug string
}

// Service はカタログ管理のサービス層。
type Service struct {
	categoryRepo repository.CategoryRepository
	itemRepo     repository.ItemRepository
	sanitizer    Sanitizer
	metrics      Metrics
}

// NewService はServiceの新しいインスタンスを生成する。metricsはnilでもよい。
func NewService(
	categoryRepo repository.CategoryRepository,
	itemRepo repository.ItemRepository,
	sanitizer Sanitizer,
	metrics Metrics,
) *Service {
	return &Service{
		categoryRepo: categoryRepo,
		itemRepo:     itemRepo,
		sanitizer:    sanitizer,
		metrics:      metrics,
	}
}

// assertOwner は所有権チェックを行い、拒否された場合はメトリクスに記録する。
func (s *Service) assertOwner(caller *model.User, ownerID, resourceName, resourceType string) error {
	if err := authz.AssertOwner(caller, ownerID, resourceName); err != nil {
		if s.metrics != nil {
			s.metrics.RecordAuthzDenied(resourceType)
		}
		return err
	}
	return nil
}

// ListCategories は全カテゴリを名前昇順で返す。
func (s *Service) ListCategories(ctx context.Context) ([]*model.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	return categories, nil
}

// GetCategoryBySlug はslugでカテゴリとその所属アイテムを取得する。
func (s *Service) GetCategoryBySlug(ctx context.Context, categorySlug string) (*model.CategoryWithItems, error) {
	category, err := s.categoryRepo.FindBySlug(ctx, categorySlug)
	if err != nil {
		return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	if category == nil {
		return nil, model.NewCategoryNotFoundError(categorySlug)
	}

	items, err := s.itemRepo.ListByCategory(ctx, category.ID)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ内アイテムの取得に失敗しました: %w", err)
	}

	return &model.CategoryWithItems{Category: *category, Items: items}, nil
}

// GetItem はカテゴリslugとアイテムslugでアイテムを取得する。
func (s *Service) GetItem(ctx context.Context, categorySlug, itemSlug string) (*model.Item, error) {
	category, err := s.categoryRepo.FindBySlug(ctx, categorySlug)
	if err != nil {
		return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	if category == nil {
		return nil, model.NewCategoryNotFoundError(categorySlug)
	}

	item, err := s.itemRepo.FindByCategoryAndSlug(ctx, category.ID, itemSlug)
	if err != nil {
		return nil, fmt.Errorf("アイテムの取得に失敗しました: %w", err)
	}
	if item == nil {
		return nil, model.NewItemNotFoundError(itemSlug)
	}
	return item, nil
}

// LatestItems は全カテゴリ横断で最新のアイテムを返す。
func (s *Service) LatestItems(ctx context.Context) ([]model.Item, error) {
	items, err := s.itemRepo.ListLatest(ctx, latestItemCount)
	if err != nil {
		return nil, fmt.Errorf("最新アイテムの取得に失敗しました: %w", err)
	}
	return items, nil
}

// Export はカタログ全体（全カテゴリと所属アイテム）を返す。
// catalog.jsonエンドポイントのデータ源。
func (s *Service) Export(ctx context.Context) ([]model.CategoryWithItems, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}

	result := make([]model.CategoryWithItems, 0, len(categories))
	for _, category := range categories {
		items, err := s.itemRepo.ListByCategory(ctx, category.ID)
		if err != nil {
			return nil, fmt.Errorf("カテゴリ内アイテムの取得に失敗しました: %w", err)
		}
		result = append(result, model.CategoryWithItems{Category: *category, Items: items})
	}
	return result, nil
}

// CreateCategory は新しいカテゴリを作成する。
// slugは名前から導出され、既存カテゴリと重複する名前は拒否される。
// 作成者がそのまま所有者になる。
func (s *Service) CreateCategory(ctx context.Context, caller *model.User, input CategoryInput) (*model.Category, error) {
	if caller.IsAnonymous() {
		return nil, model.NewAuthRequiredError()
	}
	if err := validateCategoryInput(input); err != nil {
		return nil, err
	}

	existing, err := s.categoryRepo.FindByName(ctx, input.Name)
	if err != nil {
		return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewValidationError(fmt.Sprintf("同名のカテゴリが既に存在します: %s", input.Name))
	}

	now := time.Now()
	category := &model.Category{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Slug:        slug.Make(input.Name),
		Description: s.sanitizer.Sanitize(input.Description),
		OwnerID:     caller.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicateSlug) {
			return nil, model.NewValidationError(fmt.Sprintf("同名のカテゴリが既に存在します: %s", input.Name))
		}
		return nil, fmt.Errorf("カテゴリの作成に失敗しました: %w", err)
	}
	return category, nil
}

// UpdateCategory は既存カテゴリの名前と説明を更新する。
// 名前の変更に伴いslugも再導出される。所有者以外の呼び出しは拒否される。
func (s *Service) UpdateCategory(ctx context.Context, caller *model.User, categorySlug string, input CategoryInput) (*model.Category, error) {
	if err := validateCategoryInput(input); err != nil {
		return nil, err
	}

	category, err := s.categoryRepo.FindBySlug(ctx, categorySlug)
	if err != nil {
		return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	if category == nil {
		return nil, model.NewCategoryNotFoundError(categorySlug)
	}

	if err := s.assertOwner(caller, category.OwnerID, category.Name, "category"); err != nil {
		return nil, err
	}

	if input.Name != category.Name {
		existing, err := s.categoryRepo.FindByName(ctx, input.Name)
		if err != nil {
			return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
		}
		if existing != nil && existing.ID != category.ID {
			return nil, model.NewValidationError(fmt.Sprintf("同名のカテゴリが既に存在します: %s", input.Name))
		}
	}

	category.Name = input.Name
	category.Slug = slug.Make(input.Name)
	category.Description = s.sanitizer.Sanitize(input.Description)
	category.UpdatedAt = time.Now()

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicateSlug) {
			return nil, model.NewValidationError(fmt.Sprintf("同名のカテゴリが既に存在します: %s", input.Name))
		}
		return nil, fmt.Errorf("カテゴリの更新に失敗しました: %w", err)
	}
	return category, nil
}

// DeleteCategory はカテゴリを削除する。
// 所属アイテムが1件でも存在する場合は削除を拒否する。
// アイテム数の最終判定は削除文の中で再評価されるため、
// 事前チェックの後に挿入されたアイテムがあっても削除されない。
func (s *Service) DeleteCategory(ctx context.Context, caller *model.User, categorySlug string) error {
	category, err := s.categoryRepo.FindBySlug(ctx, categorySlug)
	if err != nil {
		return fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	if category == nil {
		return model.NewCategoryNotFoundError(categorySlug)
	}

	if err := s.assertOwner(caller, category.OwnerID, category.Name, "category"); err != nil {
		return err
	}

	count, err := s.categoryRepo.CountItems(ctx, category.ID)
	if err != nil {
		return fmt.Errorf("アイテム数の取得に失敗しました: %w", err)
	}
	if count > 0 {
		return model.NewCategoryNotEmptyError(category.Name)
	}

	if err := s.categoryRepo.DeleteIfEmpty(ctx, category.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrCategoryNotEmpty):
			return model.NewCategoryNotEmptyError(category.Name)
		case errors.Is(err, repository.ErrCategoryNotFound):
			return model.NewCategoryNotFoundError(categorySlug)
		default:
			return fmt.Errorf("カテゴリの削除に失敗しました: %w", err)
		}
	}
	return nil
}

// CreateItem は指定カテゴリに新しいアイテムを作成する。
// 説明文は保存前にサニタイズされる。作成者がそのまま所有者になる。
func (s *Service) CreateItem(ctx context.Context, caller *model.User, categorySlug string, input ItemInput) (*model.Item, error) {
	if caller.IsAnonymous() {
		return nil, model.NewAuthRequiredError()
	}
	if err := validateItemInput(input); err != nil {
		return nil, err
	}

	category, err := s.categoryRepo.FindBySlug(ctx, categorySlug)
	if err != nil {
		return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	if category == nil {
		return nil, model.NewCategoryNotFoundError(categorySlug)
	}

	now := time.Now()
	item := &model.Item{
		ID:          uuid.NewString(),
		CategoryID:  category.ID,
		Name:        input.Name,
		Slug:        slug.Make(input.Name),
		Description: s.sanitizer.Sanitize(input.Description),
		OwnerID:     caller.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.itemRepo.Create(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicateSlug) {
			return nil, model.NewValidationError(fmt.Sprintf("このカテゴリに同名のアイテムが既に存在します: %s", input.Name))
		}
		return nil, fmt.Errorf("アイテムの作成に失敗しました: %w", err)
	}
	return item, nil
}

// UpdateItem は既存アイテムの名前・説明・所属カテゴリを更新する。
// 所有者以外の呼び出しは拒否される。CategorySlugが指定された場合は
// 移動先カテゴリの存在を検証した上でアイテムを移動する。
func (s *Service) UpdateItem(ctx context.Context, caller *model.User, categorySlug, itemSlug string, input ItemInput) (*model.Item, error) {
	if err := validateItemInput(input); err != nil {
		return nil, err
	}

	item, err := s.GetItem(ctx, categorySlug, itemSlug)
	if err != nil {
		return nil, err
	}

	if err := s.assertOwner(caller, item.OwnerID, item.Name, "item"); err != nil {
		return nil, err
	}

	if input.CategorySlug != "" && input.CategorySlug != categorySlug {
		target, err := s.categoryRepo.FindBySlug(ctx, input.CategorySlug)
		if err != nil {
			return nil, fmt.Errorf("移動先カテゴリの取得に失敗しました: %w", err)
		}
		if target == nil {
			return nil, model.NewCategoryNotFoundError(input.CategorySlug)
		}
		item.CategoryID = target.ID
	}

	item.Name = input.Name
	item.Slug = slug.Make(input.Name)
	item.Description = s.sanitizer.Sanitize(input.Description)
	item.UpdatedAt = time.Now()

	if err := s.itemRepo.Update(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicateSlug) {
			return nil, model.NewValidationError(fmt.Sprintf("このカテゴリに同名のアイテムが既に存在します: %s", input.Name))
		}
		return nil, fmt.Errorf("アイテムの更新に失敗しました: %w", err)
	}
	return item, nil
}

// DeleteItem はアイテムを削除する。所有者以外の呼び出しは拒否される。
func (s *Service) DeleteItem(ctx context.Context, caller *model.User, categorySlug, itemSlug string) error {
	item, err := s.GetItem(ctx, categorySlug, itemSlug)
	if err != nil {
		return err
	}

	if err := s.assertOwner(caller, item.OwnerID, item.Name, "item"); err != nil {
		return err
	}

	if err := s.itemRepo.Delete(ctx, item.ID); err != nil {
		return fmt.Errorf("アイテムの削除に失敗しました: %w", err)
	}
	return nil
}

func validateCategoryInput(input CategoryInput) error {
	if input.Name == "" {
		return model.NewValidationError("カテゴリ名は必須です。")
	}
	if slug.Make(input.Name) == "" {
		return model.NewValidationError("カテゴリ名にslugに使用できる文字が含まれていません。")
	}
	return nil
}

func validateItemInput(input ItemInput) error {
	if input.Name == "" {
		return model.NewValidationError("アイテム名は必須です。")
	}
	if input.Description == "" {
		return model.NewValidationError("アイテムの説明は必須です。")
	}
	if slug.Make(input.Name) == "" {
		return model.NewValidationError("アイテム名にslugに使用できる文字が含まれていません。")
	}
	return nil
}
