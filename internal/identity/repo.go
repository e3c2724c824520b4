package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadySeller      = errors.New("already a verified seller")
	ErrRequestPending     = errors.New("seller request already pending")
	ErrRequestNotFound    = errors.New("seller request not found")
	ErrEmailTaken         = errors.New("email already registered")
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) CreateUser(ctx context.Context, name, email, password, phoneNo string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	var exists bool
	if err := r.DB.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email=$1)`, email).Scan(&exists); err != nil {
		return "", err
	}
	if exists {
		return "", ErrEmailTaken
	}

	id := uuid.NewString()
	_, err = r.DB.Exec(ctx, `
		INSERT INTO users(id, name, email, pass_hash, phone_no)
		VALUES ($1, $2, $3, $4, $5)`, id, name, email, string(hash), phoneNo)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Authenticate returns the user id on a matching email/password pair.
func (r *Repo) Authenticate(ctx context.Context, email, password string) (string, error) {
	var id, hash string
	err := r.DB.QueryRow(ctx,
		`SELECT id, pass_hash FROM users WHERE email=$1`, email).Scan(&id, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	return id, nil
}

func (r *Repo) GetProfile(ctx context.Context, userID string) (User, error) {
	var u User
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, email, phone_no, is_admin, created_at
		FROM users WHERE id=$1`, userID).
		Scan(&u.ID, &u.Name, &u.Email, &u.PhoneNo, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}

func (r *Repo) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var isAdmin bool
	err := r.DB.QueryRow(ctx, `SELECT is_admin FROM users WHERE id=$1`, userID).Scan(&isAdmin)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return isAdmin, err
}

// RequestSeller files an onboarding request unless the user is already a
// verified seller or has one pending.
func (r *Repo) RequestSeller(ctx context.Context, userID, businessName, description string) error {
	var verified bool
	err := r.DB.QueryRow(ctx,
		`SELECT is_verified FROM sellers WHERE user_id=$1`, userID).Scan(&verified)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if verified {
		return ErrAlreadySeller
	}

	var pending bool
	if err := r.DB.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM seller_requests WHERE user_id=$1)`, userID).Scan(&pending); err != nil {
		return err
	}
	if pending {
		return ErrRequestPending
	}

	_, err = r.DB.Exec(ctx, `
		INSERT INTO seller_requests(id, user_id, business_name, description)
		VALUES ($1, $2, $3, $4)`, uuid.NewString(), userID, businessName, description)
	return err
}

func (r *Repo) PendingRequests(ctx context.Context) ([]SellerRequest, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, business_name, description, created_at
		FROM seller_requests ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SellerRequest
	for rows.Next() {
		var req SellerRequest
		if err := rows.Scan(&req.ID, &req.UserID, &req.BusinessName, &req.Description, &req.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// ApproveRequest promotes a pending request into a verified seller row and
// removes the request, atomically.
func (r *Repo) ApproveRequest(ctx context.Context, requestID string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var req SellerRequest
	err = tx.QueryRow(ctx, `
		SELECT id, user_id, business_name, description
		FROM seller_requests WHERE id=$1 FOR UPDATE`, requestID).
		Scan(&req.ID, &req.UserID, &req.BusinessName, &req.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrRequestNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO sellers(id, user_id, business_name, description, is_verified)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (user_id) DO UPDATE
			SET business_name = EXCLUDED.business_name,
			    description = EXCLUDED.description,
			    is_verified = TRUE
	`, uuid.NewString(), req.UserID, req.BusinessName, req.Description); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM seller_requests WHERE id=$1`, requestID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) RejectRequest(ctx context.Context, requestID string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM seller_requests WHERE id=$1`, requestID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrRequestNotFound
	}
	return nil
}

func (r *Repo) IsVerifiedSeller(ctx context.Context, userID string) (bool, error) {
	var verified bool
	err := r.DB.QueryRow(ctx,
		`SELECT is_verified FROM sellers WHERE user_id=$1`, userID).Scan(&verified)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return verified, err
}

func (r *Repo) BrandOf(ctx context.Context, userID string) (string, error) {
	var name string
	err := r.DB.QueryRow(ctx,
		`SELECT business_name FROM sellers WHERE user_id=$1`, userID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrUserNotFound
	}
	return name, err
}
