package identity

import "time"

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	PhoneNo   string    `json:"phone_no"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

type Seller struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	BusinessName string `json:"business_name"`
	Description  string `json:"description"`
	IsVerified   bool   `json:"is_verified"`
}

type SellerRequest struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	BusinessName string    `json:"business_name"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
}
