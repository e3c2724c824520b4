package cart

import "time"

type Line struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Qty         int       `json:"qty"`
	PriceCents  int64     `json:"price_cents"`
	AddedAt     time.Time `json:"added_at"`
}
