package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrUserNotFound signals that the user does not exist.
	ErrUserNotFound = errors.New("auth: user not found")
	// ErrDuplicatePhone signals that the phone number is already registered.
	ErrDuplicatePhone = errors.New("auth: phone number already registered")
)

// Repository handles data access for authentication.
type Repository interface {
	CreateUser(ctx context.Context, params CreateUserParams) (User, error)
	GetUserByPhone(ctx context.Context, phoneNumber string) (User, error)
	GetUserByID(ctx context.Context, userID string) (User, error)
}

// CreateUserParams contains write parameters for creating a party: the user
// row plus the role-specific profile row, inserted in one transaction.
type CreateUserParams struct {
	ID           string
	PhoneNumber  string
	PasswordHash string
	Role         Role
	Buyer        *BuyerProfile
	Seller       *SellerProfile
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed auth repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// CreateUser inserts the user row and its role profile in one transaction.
func (r *PGRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return User{}, fmt.Errorf("auth: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertSQL = `
		INSERT INTO users (id, phone_number, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, phone_number, password_hash, role, created_at
	`

	var user User
	err = tx.QueryRow(ctx, insertSQL, params.ID, params.PhoneNumber, params.PasswordHash, params.Role).
		Scan(&user.ID, &user.PhoneNumber, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrDuplicatePhone
		}
		return User{}, fmt.Errorf("auth: create user: %w", err)
	}

	switch {
	case params.Buyer != nil:
		_, err = tx.Exec(ctx,
			`INSERT INTO buyers (user_id, name, municipality, ward_number) VALUES ($1, $2, $3, $4)`,
			user.ID, params.Buyer.Name, params.Buyer.Municipality, params.Buyer.WardNumber)
		user.Name = params.Buyer.Name
	case params.Seller != nil:
		_, err = tx.Exec(ctx,
			`INSERT INTO sellers (user_id, name, shop_name, ward_number) VALUES ($1, $2, $3, $4)`,
			user.ID, params.Seller.Name, params.Seller.ShopName, params.Seller.WardNumber)
		user.Name = params.Seller.Name
	}
	if err != nil {
		return User{}, fmt.Errorf("auth: create profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return User{}, fmt.Errorf("auth: commit: %w", err)
	}
	return user, nil
}

// GetUserByPhone retrieves a user by phone number, with the profile name.
func (r *PGRepository) GetUserByPhone(ctx context.Context, phoneNumber string) (User, error) {
	const selectSQL = `
		SELECT u.id, u.phone_number, u.password_hash, u.role, u.created_at,
		       COALESCE(b.name, s.name, '')
		FROM users u
		LEFT JOIN buyers b ON u.id = b.user_id
		LEFT JOIN sellers s ON u.id = s.user_id
		WHERE u.phone_number = $1
	`
	return r.getUser(ctx, selectSQL, phoneNumber)
}

// GetUserByID retrieves a user by ID, with the profile name.
func (r *PGRepository) GetUserByID(ctx context.Context, userID string) (User, error) {
	const selectSQL = `
		SELECT u.id, u.phone_number, u.password_hash, u.role, u.created_at,
		       COALESCE(b.name, s.name, '')
		FROM users u
		LEFT JOIN buyers b ON u.id = b.user_id
		LEFT JOIN sellers s ON u.id = s.user_id
		WHERE u.id = $1
	`
	return r.getUser(ctx, selectSQL, userID)
}

func (r *PGRepository) getUser(ctx context.Context, query string, arg any) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, query, arg).
		Scan(&user.ID, &user.PhoneNumber, &user.PasswordHash, &user.Role, &user.CreatedAt, &user.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("auth: get user: %w", err)
	}
	return user, nil
}
