package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/shopdhq/shopd/internal/kafka"
	"github.com/shopdhq/shopd/internal/ledger"
	"github.com/shopdhq/shopd/internal/redisx"
)

// Ledger is the order & inventory contract the handlers depend on.
type Ledger interface {
	PlaceOrder(ctx context.Context, userID string, items []ledger.ItemInput, location string) (ledger.PlacedOrder, error)
	CancelOrder(ctx context.Context, orderID, reason string) error
	AdvanceStatus(ctx context.Context, orderID string, to ledger.Status) error
	CheckStock(ctx context.Context, productIDs []string) (map[string]int, error)
	GetOrder(ctx context.Context, orderID string) (ledger.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]ledger.Order, error)
	HasOrdered(ctx context.Context, userID, productID string) (bool, error)
}

// EventPublisher is satisfied by kafka.Producer.
type EventPublisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

type OrdersHandler struct {
	Ledger       Ledger
	Admins       AdminChecker
	PlacedPub    EventPublisher
	CancelledPub EventPublisher
	Redis        *redis.Client
	Sessions     SessionResolver
	Service      string
}

type PlaceOrderReq struct {
	Items    []ledger.ItemInput `json:"items"`
	Location string             `json:"location"`
}

type CancelOrderReq struct {
	Reason string `json:"reason"`
}

type AdvanceStatusReq struct {
	Status string `json:"status"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Get("/products/stock-check", h.checkStock)
	r.Get("/orders/{id}/status", h.getOrderStatus)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.Sessions))
		r.Post("/orders", h.placeOrder)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/exists", h.orderExists)
		r.Get("/orders/{id}", h.getOrder)
		r.Put("/orders/{id}/cancel", h.cancelOrder)
		r.Put("/orders/{id}/status", h.advanceStatus)
	})
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := UserID(ctx)
	placed, err := h.Ledger.PlaceOrder(ctx, userID, req.Items, req.Location)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	items := make([]ledger.LineQty, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, ledger.LineQty{ProductID: it.ProductID, Qty: it.Qty})
	}
	h.publish(h.PlacedPub, ledger.EventOrderPlaced, placed.OrderID, r, ledger.OrderPlacedPayload{
		OrderID:    placed.OrderID,
		UserID:     userID,
		Items:      items,
		TotalCents: placed.TotalCents,
		Location:   req.Location,
	})

	writeJSON(w, http.StatusCreated, placed)
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	var req CancelOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Ledger.GetOrder(ctx, orderID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if o.UserID != UserID(ctx) {
		writeErr(w, http.StatusForbidden, "not your order")
		return
	}

	if err := h.Ledger.CancelOrder(ctx, orderID, req.Reason); err != nil {
		writeLedgerError(w, err)
		return
	}

	restocks := make([]ledger.LineQty, 0, len(o.Lines))
	for _, l := range o.Lines {
		restocks = append(restocks, ledger.LineQty{ProductID: l.ProductID, Qty: l.Qty})
	}
	h.publish(h.CancelledPub, ledger.EventOrderCancelled, orderID, r, ledger.OrderCancelledPayload{
		OrderID:  orderID,
		Reason:   req.Reason,
		Restocks: restocks,
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": string(ledger.StatusCancelled)})
}

func (h *OrdersHandler) advanceStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ok, err := h.Admins.IsAdmin(ctx, UserID(ctx))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		writeErr(w, http.StatusForbidden, "admin only")
		return
	}

	var req AdvanceStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.Ledger.AdvanceStatus(ctx, chi.URLParam(r, "id"), ledger.Status(req.Status)); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

func (h *OrdersHandler) checkStock(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ids")
	if raw == "" {
		writeErr(w, http.StatusBadRequest, "no product ids provided")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	levels, err := h.Ledger.CheckStock(ctx, strings.Split(raw, ","))
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	type entry struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	out := make([]entry, 0, len(levels))
	for id, qty := range levels {
		out = append(out, entry{ProductID: id, Quantity: qty})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Ledger.GetOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if o.UserID != UserID(ctx) {
		writeErr(w, http.StatusForbidden, "not your order")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// getOrderStatus serves from the Redis status cache kept warm by the
// notifier, falling back to the database. The route is unauthenticated, so
// the payload carries the status only; cancel reasons are visible through
// the owner-gated order endpoints.
func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	o, err := h.Ledger.GetOrder(ctx, orderID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	b, _ := json.Marshal(map[string]string{"status": string(o.Status)})
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Ledger.ListOrdersByUser(ctx, UserID(ctx))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) orderExists(w http.ResponseWriter, r *http.Request) {
	productID := r.URL.Query().Get("product_id")
	if productID == "" {
		writeErr(w, http.StatusBadRequest, "missing product_id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	exists, err := h.Ledger.HasOrdered(ctx, UserID(ctx), productID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (h *OrdersHandler) publish(pub EventPublisher, eventType, orderID string, r *http.Request, payload any) {
	if pub == nil {
		return
	}
	ev := ledger.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	pub.Publish(ledger.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
