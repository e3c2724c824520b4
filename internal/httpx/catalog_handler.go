package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shopdhq/shopd/internal/catalog"
)

type Catalog interface {
	CreateProduct(ctx context.Context, in catalog.CreateProductInput) (string, error)
	ListProducts(ctx context.Context) ([]catalog.Product, error)
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
	SetDiscount(ctx context.Context, productID string, percent int) error
}

type CatalogHandler struct {
	Catalog  Catalog
	Sessions SessionResolver
}

type setDiscountReq struct {
	Percent int `json:"percent"`
}

func (h *CatalogHandler) Register(r *chi.Mux) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.Sessions))
		r.Post("/products", h.createProduct)
		r.Post("/products/{id}/discount", h.setDiscount)
	})
}

func (h *CatalogHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.CreateProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	in.UserID = UserID(r.Context())
	if in.Name == "" || in.Category == "" || in.PriceCents < 0 || in.Stock < 0 {
		writeErr(w, http.StatusBadRequest, "missing or invalid fields")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := h.Catalog.CreateProduct(ctx, in)
	if errors.Is(err, catalog.ErrNotSeller) {
		writeErr(w, http.StatusForbidden, "you are not a verified seller")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"product_id": id})
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Catalog.ListProducts(ctx)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Catalog.GetProduct(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, catalog.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) setDiscount(w http.ResponseWriter, r *http.Request) {
	var req setDiscountReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	err := h.Catalog.SetDiscount(ctx, chi.URLParam(r, "id"), req.Percent)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeErr(w, http.StatusNotFound, "product not found")
	case err != nil:
		writeErr(w, http.StatusBadRequest, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]int{"percent": req.Percent})
	}
}
