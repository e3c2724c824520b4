package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shopdhq/shopd/internal/cart"
)

type Cart interface {
	AddItem(ctx context.Context, userID, productID string, qty int) error
	ListByUser(ctx context.Context, userID string) ([]cart.Line, error)
	UpdateQty(ctx context.Context, lineID string, qty int) error
	Remove(ctx context.Context, lineID string) error
}

type CartHandler struct {
	Cart     Cart
	Sessions SessionResolver
}

type addCartItemReq struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type updateCartItemReq struct {
	Qty int `json:"qty"`
}

func (h *CartHandler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.Sessions))
		r.Post("/cart/items", h.addItem)
		r.Get("/cart", h.list)
		r.Put("/cart/items/{id}", h.updateQty)
		r.Delete("/cart/items/{id}", h.remove)
	})
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ProductID == "" || req.Qty <= 0 {
		writeErr(w, http.StatusBadRequest, "invalid product id or qty")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	err := h.Cart.AddItem(ctx, UserID(ctx), req.ProductID, req.Qty)
	switch {
	case errors.Is(err, cart.ErrProductNotFound):
		writeErr(w, http.StatusNotFound, "product not found")
	case errors.Is(err, cart.ErrExceedsStock):
		writeErr(w, http.StatusConflict, "quantity exceeds available stock")
	case err != nil:
		writeErr(w, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusCreated, map[string]string{"message": "added"})
	}
}

func (h *CartHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	lines, err := h.Cart.ListByUser(ctx, UserID(ctx))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

func (h *CartHandler) updateQty(w http.ResponseWriter, r *http.Request) {
	var req updateCartItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Qty < 1 {
		writeErr(w, http.StatusBadRequest, "qty must be at least 1")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	err := h.Cart.UpdateQty(ctx, chi.URLParam(r, "id"), req.Qty)
	switch {
	case errors.Is(err, cart.ErrLineNotFound):
		writeErr(w, http.StatusNotFound, "cart line not found")
	case err != nil:
		writeErr(w, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"message": "updated"})
	}
}

func (h *CartHandler) remove(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	err := h.Cart.Remove(ctx, chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, cart.ErrLineNotFound):
		writeErr(w, http.StatusNotFound, "cart line not found")
	case err != nil:
		writeErr(w, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"message": "removed"})
	}
}
