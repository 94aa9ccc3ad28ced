package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/raideer/udacity-project-catalog/internal/catalog"
	"github.com/raideer/udacity-project-catalog/internal/middleware"
	"github.com/raideer/udacity-project-catalog/internal/model"
)

// ItemHandler はアイテム管理のHTTPハンドラー。
type ItemHandler struct {
	service CatalogServiceInterface
}

// NewItemHandler はItemHandlerを生成する。
func NewItemHandler(service CatalogServiceInterface) *ItemHandler {
	return &ItemHandler{service: service}
}

// itemResponse はアイテムのレスポンス。
type itemResponse struct {
	ID          string    `json:"id"`
	CategoryID  string    `json:"category_id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"` // サニタイズ済みHTML
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// itemRequest はアイテム作成・更新リクエストのボディ。
// Categoryは更新時にアイテムを別カテゴリへ移動する場合に指定する。
type itemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

func toItemResponse(item *model.Item) itemResponse {
	return itemResponse{
		ID:          item.ID,
		CategoryID:  item.CategoryID,
		Name:        item.Name,
		Slug:        item.Slug,
		Description: item.Description,
		OwnerID:     item.OwnerID,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}

// GetItem はアイテム詳細を返す。
// GET /api/catalog/{category}/{item}
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	categorySlug := chi.URLParam(r, "category")
	itemSlug := chi.URLParam(r, "item")

	item, err := h.service.GetItem(r.Context(), categorySlug, itemSlug)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toItemResponse(item))
}

// CreateItem は指定カテゴリに新しいアイテムを作成する。
// POST /api/catalog/{category}/items
func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	categorySlug := chi.URLParam(r, "category")

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleServiceError(w, model.NewValidationError("リクエストボディが不正です。"))
		return
	}

	caller := middleware.UserFromContext(r.Context())
	item, err := h.service.CreateItem(r.Context(), caller, categorySlug, catalog.ItemInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toItemResponse(item))
}

// UpdateItem はアイテムの名前・説明・所属カテゴリを更新する。
// PATCH /api/catalog/{category}/{item}
func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	categorySlug := chi.URLParam(r, "category")
	itemSlug := chi.URLParam(r, "item")

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleServiceError(w, model.NewValidationError("リクエストボディが不正です。"))
		return
	}

	caller := middleware.UserFromContext(r.Context())
	item, err := h.service.UpdateItem(r.Context(), caller, categorySlug, itemSlug, catalog.ItemInput{
		Name:         req.Name,
		Description:  req.Description,
		CategorySlug: req.Category,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toItemResponse(item))
}

// DeleteItem はアイテムを削除する。
// DELETE /api/catalog/{category}/{item}
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	categorySlug := chi.URLParam(r, "category")
	itemSlug := chi.URLParam(r, "item")

	caller := middleware.UserFromContext(r.Context())
	if err := h.service.DeleteItem(r.Context(), caller, categorySlug, itemSlug); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
