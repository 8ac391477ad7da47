package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/rserve-session/internal/domain"
)

// DBTX is the subset of pgxpool.Pool the repositories use.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepository defines persistence access for restaurant logins.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	UpdatePasswordHash(ctx context.Context, restaurantID, hash string) error
	GetByRestaurantID(ctx context.Context, restaurantID string) (*domain.Account, error)
}

type accountRepository struct {
	db DBTX
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(db DBTX) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO restaurant_accounts (restaurant_id, hashed_pw, role)
        VALUES ($1, $2, $3)
        RETURNING created_at, updated_at`

	return r.db.QueryRow(ctx, query,
		account.RestaurantID,
		account.PasswordHash,
		account.Role,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
}

func (r *accountRepository) UpdatePasswordHash(ctx context.Context, restaurantID, hash string) error {
	const query = `
        UPDATE restaurant_accounts SET hashed_pw=$1, updated_at=NOW()
        WHERE restaurant_id=$2`

	cmd, err := r.db.Exec(ctx, query, hash, restaurantID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// GetByRestaurantID returns pgx.ErrNoRows when no account matches.
func (r *accountRepository) GetByRestaurantID(ctx context.Context, restaurantID string) (*domain.Account, error) {
	const query = `
        SELECT restaurant_id, hashed_pw, role, created_at, updated_at
        FROM restaurant_accounts WHERE restaurant_id=$1`

	var account domain.Account
	if err := r.db.QueryRow(ctx, query, restaurantID).Scan(
		&account.RestaurantID,
		&account.PasswordHash,
		&account.Role,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}
