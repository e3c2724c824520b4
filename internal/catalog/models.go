package catalog

import "time"

type Product struct {
	ID              string    `json:"id"`
	SellerID        string    `json:"seller_id"`
	Name            string    `json:"name"`
	Details         string    `json:"details"`
	Brand           string    `json:"brand"`
	ImageURL        string    `json:"image_url"`
	PriceCents      int64     `json:"price_cents"`
	Stock           int       `json:"stock"`
	Category        string    `json:"category"`
	DiscountPercent *int      `json:"discount_percent,omitempty"`
	DiscountedCents *int64    `json:"discounted_cents,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type CreateProductInput struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	Details    string `json:"details"`
	Brand      string `json:"brand"`
	ImageURL   string `json:"image_url"`
	PriceCents int64  `json:"price_cents"`
	Stock      int    `json:"stock"`
	Category   string `json:"category"`
}
