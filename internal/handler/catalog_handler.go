package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/raideer/udacity-project-catalog/internal/catalog"
	"github.com/raideer/udacity-project-catalog/internal/middleware"
	"github.com/raideer/udacity-project-catalog/internal/model"
)

// CatalogServiceInterface はカタログハンドラーが必要とするサービスインターフェース。
type CatalogServiceInterface interface {
	ListCategories(ctx context.Context) ([]*model.Category, error)
	GetCategoryBySlug(ctx context.Context, categorySlug string) (*model.CategoryWithItems, error)
	GetItem(ctx context.Context, categorySlug, itemSlug string) (*model.Item, error)
	LatestItems(ctx context.Context) ([]model.Item, error)
	Export(ctx context.Context) ([]model.CategoryWithItems, error)
	CreateCategory(ctx context.Context, caller *model.User, input catalog.CategoryInput) (*model.Category, error)
	UpdateCategory(ctx context.Context, caller *model.User, categorySlug string, input catalog.CategoryInput) (*model.Category, error)
	DeleteCategory(ctx context.Context, caller *model.User, categorySlug string) error
	CreateItem(ctx context.Context, caller *model.User, categorySlug string, input catalog.ItemInput) (*model.Item, error)
	UpdateItem(ctx context.Context, caller *model.User, categorySlug, itemSlug string, input catalog.ItemInput) (*model.Item, error)
	DeleteItem(ctx context.Context, caller *model.User, categorySlug, itemSlug string) error
}

// CatalogHandler はカテゴリ管理とカタログ閲覧のHTTPハンドラー。
type CatalogHandler struct {
	service CatalogServiceInterface
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(service CatalogServiceInterface) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// --- レスポンス型 ---

// categoryResponse はカテゴリのレスポンス。
type categoryResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// categoryWithItemsResponse はカテゴリと所属アイテムのレスポンス。
type categoryWithItemsResponse struct {
	categoryResponse
	Items []itemResponse `json:"items"`
}

// catalogIndexResponse はトップページ用のレスポンス。
// カテゴリ一覧と全カテゴリ横断の最新アイテムを含む。
type catalogIndexResponse struct {
	Categories  []categoryResponse `json:"categories"`
	LatestItems []itemResponse     `json:"latest_items"`
}

// catalogExportResponse はカタログ全体のエクスポートレスポンス。
type catalogExportResponse struct {
	Categories []categoryWithItemsResponse `json:"categories"`
}

// categoryRequest はカテゴリ作成・更新リクエストのボディ。
type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func toCategoryResponse(c *model.Category) categoryResponse {
	return categoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		OwnerID:     c.OwnerID,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func toCategoryWithItemsResponse(cwi model.CategoryWithItems) categoryWithItemsResponse {
	items := make([]itemResponse, len(cwi.Items))
	for i, item := range cwi.Items {
		items[i] = toItemResponse(&item)
	}
	return categoryWithItemsResponse{
		categoryResponse: toCategoryResponse(&cwi.Category),
		Items:            items,
	}
}

// Index はカテゴリ一覧と最新アイテムを返す。
// GET /api/catalog
func (h *CatalogHandler) Index(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	latest, err := h.service.LatestItems(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := catalogIndexResponse{
		Categories:  make([]categoryResponse, len(categories)),
		LatestItems: make([]itemResponse, len(latest)),
	}
	for i, c := range categories {
		resp.Categories[i] = toCategoryResponse(c)
	}
	for i, item := range latest {
		resp.LatestItems[i] = toItemResponse(&item)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Export はカタログ全体をネストされたJSONで返す。
// GET /api/catalog.json
func (h *CatalogHandler) Export(w http.ResponseWriter, r *http.Request) {
	export, err := h.service.Export(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := catalogExportResponse{
		Categories: make([]categoryWithItemsResponse, len(export)),
	}
	for i, cwi := range export {
		resp.Categories[i] = toCategoryWithItemsResponse(cwi)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetCategory はカテゴリとその所属アイテムを返す。
// GET /api/catalog/{category}
func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	categorySlug := chi.URLParam(r, "category")

	cwi, err := h.service.GetCategoryBySlug(r.Context(), categorySlug)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toCategoryWithItemsResponse(*cwi))
}

// CreateCategory は新しいカテゴリを作成する。
// POST /api/catalog
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleServiceError(w, model.NewValidationError("リクエストボディが不正です。"))
		return
	}

	caller := middleware.UserFromContext(r.Context())
	category, err := h.service.CreateCategory(r.Context(), caller, catalog.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toCategoryResponse(category))
}

// UpdateCategory はカテゴリの名前と説明を更新する。
// PATCH /api/catalog/{category}
func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	categorySlug := chi.URLParam(r, "category")

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleServiceError(w, model.NewValidationError("リクエストボディが不正です。"))
		return
	}

	caller := middleware.UserFromContext(r.Context())
	category, err := h.service.UpdateCategory(r.Context(), caller, categorySlug, catalog.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toCategoryResponse(category))
}

// DeleteCategory はカテゴリを削除する。
// DELETE /api/catalog/{category}
// 所属アイテムが存在する場合は409を返す。
func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	categorySlug := chi.URLParam(r, "category")

	caller := middleware.UserFromContext(r.Context())
	if err := h.service.DeleteCategory(r.Context(), caller, categorySlug); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
