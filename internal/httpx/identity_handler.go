package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shopdhq/shopd/internal/identity"
)

type Identity interface {
	CreateUser(ctx context.Context, name, email, password, phoneNo string) (string, error)
	Authenticate(ctx context.Context, email, password string) (string, error)
	GetProfile(ctx context.Context, userID string) (identity.User, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
	RequestSeller(ctx context.Context, userID, businessName, description string) error
	PendingRequests(ctx context.Context) ([]identity.SellerRequest, error)
	ApproveRequest(ctx context.Context, requestID string) error
	RejectRequest(ctx context.Context, requestID string) error
	IsVerifiedSeller(ctx context.Context, userID string) (bool, error)
	BrandOf(ctx context.Context, userID string) (string, error)
}

type SessionStore interface {
	SessionResolver
	Issue(ctx context.Context, userID string) (string, error)
	Revoke(ctx context.Context, token string) error
}

type IdentityHandler struct {
	Identity Identity
	Sessions SessionStore
}

type signupReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	PhoneNo  string `json:"phone_no"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sellerRequestReq struct {
	BusinessName string `json:"business_name"`
	Description  string `json:"description"`
}

func (h *IdentityHandler) Register(r *chi.Mux) {
	r.Post("/signup", h.signup)
	r.Post("/login", h.login)
	r.Get("/sellers/{userID}/verified", h.isVerified)
	r.Get("/users/{userID}/admin", h.isAdmin)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.Sessions))
		r.Post("/logout", h.logout)
		r.Get("/me", h.me)
		r.Get("/sellers/me/brand", h.myBrand)
		r.Post("/sellers/register", h.requestSeller)
		r.Get("/sellers/requests", h.pendingRequests)
		r.Post("/sellers/requests/{id}/approve", h.approveRequest)
		r.Post("/sellers/requests/{id}/reject", h.rejectRequest)
	})
}

func (h *IdentityHandler) signup(w http.ResponseWriter, r *http.Request) {
	var req signupReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" || req.PhoneNo == "" {
		writeErr(w, http.StatusBadRequest, "all fields are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := h.Identity.CreateUser(ctx, req.Name, req.Email, req.Password, req.PhoneNo)
	if errors.Is(err, identity.ErrEmailTaken) {
		writeErr(w, http.StatusConflict, "email already registered")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"user_id": id})
}

func (h *IdentityHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Identity.Authenticate(ctx, req.Email, req.Password)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		writeErr(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := h.Sessions.Issue(ctx, userID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token, "user_id": userID})
}

func (h *IdentityHandler) logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	_ = h.Sessions.Revoke(r.Context(), token)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *IdentityHandler) me(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	u, err := h.Identity.GetProfile(ctx, UserID(ctx))
	if errors.Is(err, identity.ErrUserNotFound) {
		writeErr(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *IdentityHandler) isAdmin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ok, err := h.Identity.IsAdmin(ctx, chi.URLParam(r, "userID"))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_admin": ok})
}

func (h *IdentityHandler) requestSeller(w http.ResponseWriter, r *http.Request) {
	var req sellerRequestReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.BusinessName == "" {
		writeErr(w, http.StatusBadRequest, "business name is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	err := h.Identity.RequestSeller(ctx, UserID(ctx), req.BusinessName, req.Description)
	switch {
	case errors.Is(err, identity.ErrAlreadySeller):
		writeErr(w, http.StatusConflict, "already a verified seller")
	case errors.Is(err, identity.ErrRequestPending):
		writeErr(w, http.StatusConflict, "request already sent")
	case err != nil:
		writeErr(w, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusCreated, map[string]string{"message": "request submitted"})
	}
}

func (h *IdentityHandler) pendingRequests(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if !h.requireAdmin(ctx, w) {
		return
	}

	reqs, err := h.Identity.PendingRequests(ctx)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (h *IdentityHandler) approveRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if !h.requireAdmin(ctx, w) {
		return
	}

	err := h.Identity.ApproveRequest(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, identity.ErrRequestNotFound) {
		writeErr(w, http.StatusNotFound, "request not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "seller approved"})
}

func (h *IdentityHandler) rejectRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if !h.requireAdmin(ctx, w) {
		return
	}

	err := h.Identity.RejectRequest(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, identity.ErrRequestNotFound) {
		writeErr(w, http.StatusNotFound, "request not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "request rejected"})
}

func (h *IdentityHandler) isVerified(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ok, err := h.Identity.IsVerifiedSeller(ctx, chi.URLParam(r, "userID"))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_seller": ok})
}

func (h *IdentityHandler) myBrand(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	brand, err := h.Identity.BrandOf(ctx, UserID(ctx))
	if errors.Is(err, identity.ErrUserNotFound) {
		writeErr(w, http.StatusNotFound, "brand not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"brand": brand})
}

func (h *IdentityHandler) requireAdmin(ctx context.Context, w http.ResponseWriter) bool {
	ok, err := h.Identity.IsAdmin(ctx, UserID(ctx))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal error")
		return false
	}
	if !ok {
		writeErr(w, http.StatusForbidden, "admin only")
		return false
	}
	return true
}
