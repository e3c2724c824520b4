package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrLineNotFound    = errors.New("cart line not found")
	ErrExceedsStock    = errors.New("quantity exceeds available stock")
)

type Repo struct{ DB *pgxpool.Pool }

// AddItem upserts a cart line, snapshotting the current product price. The
// stock gate here is advisory only; order placement re-checks atomically.
func (r *Repo) AddItem(ctx context.Context, userID, productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("invalid qty %d", qty)
	}

	var stock int
	var price int64
	err := r.DB.QueryRow(ctx,
		`SELECT stock, price_cents FROM products WHERE id=$1`, productID).Scan(&stock, &price)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrProductNotFound
	}
	if err != nil {
		return err
	}

	var existing int
	err = r.DB.QueryRow(ctx,
		`SELECT qty FROM cart_items WHERE user_id=$1 AND product_id=$2`,
		userID, productID).Scan(&existing)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if existing+qty > stock {
		return ErrExceedsStock
	}

	_, err = r.DB.Exec(ctx, `
		INSERT INTO cart_items(id, user_id, product_id, qty, price_cents)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET qty = cart_items.qty + EXCLUDED.qty, price_cents = EXCLUDED.price_cents
	`, uuid.NewString(), userID, productID, qty, price)
	return err
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Line, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT ci.id, ci.user_id, ci.product_id, p.name, p.image_url, ci.qty, ci.price_cents, ci.added_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id=$1
		ORDER BY ci.added_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.UserID, &l.ProductID, &l.ProductName, &l.ImageURL,
			&l.Qty, &l.PriceCents, &l.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateQty(ctx context.Context, lineID string, qty int) error {
	if qty < 1 {
		return fmt.Errorf("invalid qty %d", qty)
	}
	ct, err := r.DB.Exec(ctx,
		`UPDATE cart_items SET qty=$2 WHERE id=$1`, lineID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (r *Repo) Remove(ctx context.Context, lineID string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE id=$1`, lineID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}
