package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopdhq/shopd/internal/ledger"
)

type fakeLedger struct {
	placeFn   func(userID string, items []ledger.ItemInput, location string) (ledger.PlacedOrder, error)
	cancelFn  func(orderID, reason string) error
	advanceFn func(orderID string, to ledger.Status) error
	stockFn   func(ids []string) (map[string]int, error)
	getFn     func(orderID string) (ledger.Order, error)
	listFn    func(userID string) ([]ledger.Order, error)
	hasFn     func(userID, productID string) (bool, error)
}

func (f *fakeLedger) PlaceOrder(_ context.Context, userID string, items []ledger.ItemInput, location string) (ledger.PlacedOrder, error) {
	return f.placeFn(userID, items, location)
}
func (f *fakeLedger) CancelOrder(_ context.Context, orderID, reason string) error {
	return f.cancelFn(orderID, reason)
}
func (f *fakeLedger) AdvanceStatus(_ context.Context, orderID string, to ledger.Status) error {
	return f.advanceFn(orderID, to)
}
func (f *fakeLedger) CheckStock(_ context.Context, ids []string) (map[string]int, error) {
	return f.stockFn(ids)
}
func (f *fakeLedger) GetOrder(_ context.Context, orderID string) (ledger.Order, error) {
	return f.getFn(orderID)
}
func (f *fakeLedger) ListOrdersByUser(_ context.Context, userID string) ([]ledger.Order, error) {
	return f.listFn(userID)
}
func (f *fakeLedger) HasOrdered(_ context.Context, userID, productID string) (bool, error) {
	return f.hasFn(userID, productID)
}

type fakeSessions map[string]string

func (f fakeSessions) Resolve(_ context.Context, token string) (string, error) {
	if uid, ok := f[token]; ok {
		return uid, nil
	}
	return "", errors.New("no session")
}

type fakePublisher struct {
	messages []kafkago.Message
}

func (f *fakePublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	f.messages = append(f.messages, kafkago.Message{Key: key, Value: value, Headers: headers})
}

type fakeAdmins bool

func (f fakeAdmins) IsAdmin(context.Context, string) (bool, error) { return bool(f), nil }

func newOrdersServer(l Ledger, placed, cancelled *fakePublisher) *httptest.Server {
	h := &OrdersHandler{
		Ledger:       l,
		Admins:       fakeAdmins(false),
		PlacedPub:    placed,
		CancelledPub: cancelled,
		Sessions:     fakeSessions{"tok-alice": "alice"},
		Service:      "test-api",
	}
	r := NewRouter()
	h.Register(r)
	return httptest.NewServer(r)
}

func doJSON(t *testing.T, method, url, token, body string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, respBody
}

func TestPlaceOrderHandler(t *testing.T) {
	placed := &fakePublisher{}
	l := &fakeLedger{
		placeFn: func(userID string, items []ledger.ItemInput, _ string) (ledger.PlacedOrder, error) {
			assert.Equal(t, "alice", userID)
			require.Len(t, items, 1)
			return ledger.PlacedOrder{OrderID: "o-1", TotalCents: 500}, nil
		},
	}
	srv := newOrdersServer(l, placed, nil)
	defer srv.Close()

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/orders", "tok-alice",
		`{"items":[{"product_id":"p-1","qty":5}],"location":"home"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var got ledger.PlacedOrder
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "o-1", got.OrderID)
	assert.Equal(t, int64(500), got.TotalCents)

	require.Len(t, placed.messages, 1)
	var env ledger.Envelope
	require.NoError(t, json.Unmarshal(placed.messages[0].Value, &env))
	assert.Equal(t, ledger.EventOrderPlaced, env.EventType)
	assert.Equal(t, "o-1", env.CorrelationID)
	assert.Equal(t, []byte("o-1"), placed.messages[0].Key)
}

func TestPlaceOrderHandlerUnauthorized(t *testing.T) {
	srv := newOrdersServer(&fakeLedger{}, nil, nil)
	defer srv.Close()

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/orders", "", `{"items":[]}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/orders", "bad-token", `{"items":[]}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPlaceOrderHandlerInsufficientStock(t *testing.T) {
	placed := &fakePublisher{}
	l := &fakeLedger{
		placeFn: func(string, []ledger.ItemInput, string) (ledger.PlacedOrder, error) {
			return ledger.PlacedOrder{}, &ledger.InsufficientStockError{
				Shortages: []ledger.StockShortage{{ProductID: "p-1", Required: 3, Available: 1}},
			}
		},
	}
	srv := newOrdersServer(l, placed, nil)
	defer srv.Close()

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/orders", "tok-alice",
		`{"items":[{"product_id":"p-1","qty":3}]}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var got struct {
		Error     string                 `json:"error"`
		Shortages []ledger.StockShortage `json:"shortages"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "insufficient stock", got.Error)
	require.Len(t, got.Shortages, 1)
	assert.Equal(t, 1, got.Shortages[0].Available)

	assert.Empty(t, placed.messages, "no event on failure")
}

func TestPlaceOrderHandlerValidation(t *testing.T) {
	l := &fakeLedger{
		placeFn: func(string, []ledger.ItemInput, string) (ledger.PlacedOrder, error) {
			return ledger.PlacedOrder{}, &ledger.ValidationError{Msg: "order must contain at least one item"}
		},
	}
	srv := newOrdersServer(l, nil, nil)
	defer srv.Close()

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/orders", "tok-alice", `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCancelOrderHandler(t *testing.T) {
	cancelled := &fakePublisher{}
	l := &fakeLedger{
		getFn: func(orderID string) (ledger.Order, error) {
			return ledger.Order{
				ID: orderID, UserID: "alice", Status: ledger.StatusPending,
				Lines: []ledger.OrderLine{{ProductID: "p-1", Qty: 2}},
			}, nil
		},
		cancelFn: func(orderID, reason string) error {
			assert.Equal(t, "late delivery", reason)
			return nil
		},
	}
	srv := newOrdersServer(l, nil, cancelled)
	defer srv.Close()

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/orders/o-1/cancel", "tok-alice",
		`{"reason":"late delivery"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, cancelled.messages, 1)
	var env ledger.Envelope
	require.NoError(t, json.Unmarshal(cancelled.messages[0].Value, &env))
	assert.Equal(t, ledger.EventOrderCancelled, env.EventType)

	var p ledger.OrderCancelledPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, []ledger.LineQty{{ProductID: "p-1", Qty: 2}}, p.Restocks)
}

func TestCancelOrderHandlerForbidden(t *testing.T) {
	cancelled := &fakePublisher{}
	l := &fakeLedger{
		getFn: func(orderID string) (ledger.Order, error) {
			return ledger.Order{ID: orderID, UserID: "bob"}, nil
		},
	}
	srv := newOrdersServer(l, nil, cancelled)
	defer srv.Close()

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/orders/o-9/cancel", "tok-alice",
		`{"reason":"nope"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, cancelled.messages)
}

func TestCancelOrderHandlerInvalidTransition(t *testing.T) {
	l := &fakeLedger{
		getFn: func(orderID string) (ledger.Order, error) {
			return ledger.Order{ID: orderID, UserID: "alice", Status: ledger.StatusDelivered}, nil
		},
		cancelFn: func(string, string) error {
			return ledger.ErrInvalidTransition
		},
	}
	srv := newOrdersServer(l, nil, &fakePublisher{})
	defer srv.Close()

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/orders/o-1/cancel", "tok-alice",
		`{"reason":"too late"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCancelOrderHandlerNotFound(t *testing.T) {
	l := &fakeLedger{
		getFn: func(string) (ledger.Order, error) {
			return ledger.Order{}, ledger.ErrOrderNotFound
		},
	}
	srv := newOrdersServer(l, nil, &fakePublisher{})
	defer srv.Close()

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/orders/missing/cancel", "tok-alice",
		`{"reason":"x"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCheckStockHandler(t *testing.T) {
	l := &fakeLedger{
		stockFn: func(ids []string) (map[string]int, error) {
			assert.Equal(t, []string{"p-1", "p-2"}, ids)
			return map[string]int{"p-1": 4, "p-2": 0}, nil
		},
	}
	srv := newOrdersServer(l, nil, nil)
	defer srv.Close()

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/products/stock-check?ids=p-1,p-2", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Len(t, got, 2)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/products/stock-check", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetOrderStatusHandlerFallsBackToStore(t *testing.T) {
	reason := "damaged"
	l := &fakeLedger{
		getFn: func(orderID string) (ledger.Order, error) {
			return ledger.Order{ID: orderID, Status: ledger.StatusCancelled, CancelReason: &reason}, nil
		},
	}
	srv := newOrdersServer(l, nil, nil)
	defer srv.Close()

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/orders/o-1/status", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]string
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, string(ledger.StatusCancelled), got["status"])
	// unauthenticated route: the cancel reason stays private to the owner
	assert.NotContains(t, got, "cancel_reason")
}

func TestOrderExistsHandler(t *testing.T) {
	l := &fakeLedger{
		hasFn: func(userID, productID string) (bool, error) {
			return userID == "alice" && productID == "p-1", nil
		},
	}
	srv := newOrdersServer(l, nil, nil)
	defer srv.Close()

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/orders/exists?product_id=p-1", "tok-alice", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]bool
	require.NoError(t, json.Unmarshal(body, &got))
	assert.True(t, got["exists"])
}
