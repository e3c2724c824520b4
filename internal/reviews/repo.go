package reviews

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotPurchased = errors.New("product was never ordered by this user")

type Review struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	UserName   string    `json:"user_name,omitempty"`
	ProductID  string    `json:"product_id"`
	Rating     int       `json:"rating"`
	ReviewText string    `json:"review_text"`
	ReviewDate time.Time `json:"review_date"`
}

// PurchaseChecker is satisfied by the order ledger.
type PurchaseChecker interface {
	HasOrdered(ctx context.Context, userID, productID string) (bool, error)
}

type Repo struct {
	DB        *pgxpool.Pool
	Purchases PurchaseChecker
}

// Upsert writes the user's review of a product, one per (user, product);
// a repeat submission replaces rating and text. Submission requires a past
// order of the product.
func (r *Repo) Upsert(ctx context.Context, userID, productID string, rating int, text string) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be 1..5, got %d", rating)
	}
	if text == "" {
		return errors.New("review text is required")
	}

	ordered, err := r.Purchases.HasOrdered(ctx, userID, productID)
	if err != nil {
		return err
	}
	if !ordered {
		return ErrNotPurchased
	}

	_, err = r.DB.Exec(ctx, `
		INSERT INTO reviews(id, user_id, product_id, rating, review_text)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, product_id) DO UPDATE
			SET rating = EXCLUDED.rating,
			    review_text = EXCLUDED.review_text,
			    review_date = now()
	`, uuid.NewString(), userID, productID, rating, text)
	return err
}

func (r *Repo) ListForProduct(ctx context.Context, productID string) ([]Review, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT rv.id, rv.user_id, u.name, rv.product_id, rv.rating, rv.review_text, rv.review_date
		FROM reviews rv
		JOIN users u ON u.id = rv.user_id
		WHERE rv.product_id=$1
		ORDER BY rv.review_date DESC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Review
	for rows.Next() {
		var rv Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.UserName, &rv.ProductID, &rv.Rating, &rv.ReviewText, &rv.ReviewDate); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}
