package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound  = errors.New("product not found")
	ErrNotSeller = errors.New("not a verified seller")
)

type Repo struct{ DB *pgxpool.Pool }

// CreateProduct inserts a product for a verified seller, creating the
// category on first use.
func (r *Repo) CreateProduct(ctx context.Context, in CreateProductInput) (string, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var sellerID string
	err = tx.QueryRow(ctx,
		`SELECT id FROM sellers WHERE user_id=$1 AND is_verified`, in.UserID).Scan(&sellerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotSeller
	}
	if err != nil {
		return "", err
	}

	var categoryID string
	err = tx.QueryRow(ctx, `SELECT id FROM categories WHERE name=$1`, in.Category).Scan(&categoryID)
	if errors.Is(err, pgx.ErrNoRows) {
		categoryID = uuid.NewString()
		if _, err := tx.Exec(ctx,
			`INSERT INTO categories(id, name) VALUES ($1, $2)`, categoryID, in.Category); err != nil {
			return "", err
		}
	} else if err != nil {
		return "", err
	}

	productID := uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO products(id, seller_id, category_id, name, details, brand, image_url, price_cents, stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, productID, sellerID, categoryID, in.Name, in.Details, in.Brand, in.ImageURL, in.PriceCents, in.Stock)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return productID, nil
}

const productSelect = `
	SELECT p.id, p.seller_id, p.name, p.details, p.brand, p.image_url,
	       p.price_cents, p.stock, c.name, d.percent, p.created_at, p.updated_at
	FROM products p
	JOIN categories c ON c.id = p.category_id
	LEFT JOIN discounts d ON d.product_id = p.id`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	if err := row.Scan(&p.ID, &p.SellerID, &p.Name, &p.Details, &p.Brand, &p.ImageURL,
		&p.PriceCents, &p.Stock, &p.Category, &p.DiscountPercent, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Product{}, err
	}
	if p.DiscountPercent != nil {
		dc := DiscountedCents(p.PriceCents, *p.DiscountPercent)
		p.DiscountedCents = &dc
	}
	return p, nil
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, productSelect+` ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) GetProduct(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, productSelect+` WHERE p.id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

// SetDiscount upserts the product's percentage discount. The ledger never
// reads discounts; they only affect displayed prices.
func (r *Repo) SetDiscount(ctx context.Context, productID string, percent int) error {
	if percent <= 0 || percent > 100 {
		return errors.New("discount percent must be in (0, 100]")
	}
	var exists bool
	if err := r.DB.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE id=$1)`, productID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO discounts(product_id, percent) VALUES ($1, $2)
		ON CONFLICT (product_id) DO UPDATE SET percent = EXCLUDED.percent
	`, productID, percent)
	return err
}
