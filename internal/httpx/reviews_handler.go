package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shopdhq/shopd/internal/reviews"
)

type Reviews interface {
	Upsert(ctx context.Context, userID, productID string, rating int, text string) error
	ListForProduct(ctx context.Context, productID string) ([]reviews.Review, error)
}

type ReviewsHandler struct {
	Reviews  Reviews
	Sessions SessionResolver
}

type addReviewReq struct {
	Rating     int    `json:"rating"`
	ReviewText string `json:"review_text"`
}

func (h *ReviewsHandler) Register(r *chi.Mux) {
	r.Get("/products/{id}/reviews", h.list)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.Sessions))
		r.Post("/products/{id}/reviews", h.add)
	})
}

func (h *ReviewsHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Reviews.ListForProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ReviewsHandler) add(w http.ResponseWriter, r *http.Request) {
	var req addReviewReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	err := h.Reviews.Upsert(ctx, UserID(ctx), chi.URLParam(r, "id"), req.Rating, req.ReviewText)
	switch {
	case errors.Is(err, reviews.ErrNotPurchased):
		writeErr(w, http.StatusForbidden, "only buyers can review a product")
	case err != nil:
		writeErr(w, http.StatusBadRequest, err.Error())
	default:
		writeJSON(w, http.StatusCreated, map[string]string{"message": "review saved"})
	}
}
