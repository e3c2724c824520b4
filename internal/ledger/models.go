package ledger

import "time"

type Order struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Status       Status     `json:"status"`
	TotalCents   int64      `json:"total_cents"`
	Location     string     `json:"location"`
	CancelReason *string    `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Lines        []OrderLine `json:"lines,omitempty"`
}

type OrderLine struct {
	ID          string `json:"id"`
	OrderID     string `json:"order_id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	Qty         int    `json:"qty"`
	PriceCents  int64  `json:"price_cents"`
}

// ItemInput is what callers submit; unit prices are resolved from the
// product rows inside the placement transaction, never trusted from the client.
type ItemInput struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type PlacedOrder struct {
	OrderID    string `json:"order_id"`
	TotalCents int64  `json:"total_cents"`
}
