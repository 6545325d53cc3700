package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound signals the requested buyer does not exist.
var ErrNotFound = errors.New("directory: buyer not found")

const buyerColumns = `u.id, b.name, u.phone_number, b.municipality, b.ward_number`

// Repository provides read access to buyer profiles and the credit statuses
// needed for read-time scoring.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetBuyerByID fetches a buyer by user id, enforcing the buyer role.
func (r *Repository) GetBuyerByID(ctx context.Context, id string) (Buyer, error) {
	const query = `
		SELECT ` + buyerColumns + `
		FROM users u
		JOIN buyers b ON u.id = b.user_id
		WHERE u.id = $1 AND u.role = 'buyer'
	`
	return r.getBuyer(ctx, query, id)
}

// FindBuyerByName resolves a case-insensitive exact name match. When several
// profiles share a name the first in name order wins; there is no fuzzy
// matching.
func (r *Repository) FindBuyerByName(ctx context.Context, name string) (Buyer, error) {
	const query = `
		SELECT ` + buyerColumns + `
		FROM users u
		JOIN buyers b ON u.id = b.user_id
		WHERE u.role = 'buyer' AND LOWER(b.name) = LOWER($1)
		ORDER BY b.name ASC
		LIMIT 1
	`
	return r.getBuyer(ctx, query, name)
}

// FindBuyerByPhone fetches a buyer by phone number.
func (r *Repository) FindBuyerByPhone(ctx context.Context, phoneNumber string) (Buyer, error) {
	const query = `
		SELECT ` + buyerColumns + `
		FROM users u
		JOIN buyers b ON u.id = b.user_id
		WHERE u.phone_number = $1 AND u.role = 'buyer'
	`
	return r.getBuyer(ctx, query, phoneNumber)
}

// ListBuyers fetches all buyer profiles ordered by name.
func (r *Repository) ListBuyers(ctx context.Context) ([]Buyer, error) {
	const query = `
		SELECT ` + buyerColumns + `
		FROM users u
		JOIN buyers b ON u.id = b.user_id
		WHERE u.role = 'buyer'
		ORDER BY b.name ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("directory: list buyers: %w", err)
	}
	defer rows.Close()

	buyers := []Buyer{}
	for rows.Next() {
		var b Buyer
		if err := rows.Scan(&b.UserID, &b.Name, &b.PhoneNumber, &b.Municipality, &b.WardNumber); err != nil {
			return nil, fmt.Errorf("directory: scan buyer: %w", err)
		}
		buyers = append(buyers, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: iterate buyers: %w", err)
	}
	return buyers, nil
}

// ListCreditStatuses returns the statuses of the buyer's full credit history
// for the scoring engine.
func (r *Repository) ListCreditStatuses(ctx context.Context, buyerID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT status::text FROM credits WHERE buyer_id = $1`, buyerID)
	if err != nil {
		return nil, fmt.Errorf("directory: list credit statuses: %w", err)
	}
	defer rows.Close()

	statuses := []string{}
	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return nil, fmt.Errorf("directory: scan status: %w", err)
		}
		statuses = append(statuses, status)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: iterate statuses: %w", err)
	}
	return statuses, nil
}

func (r *Repository) getBuyer(ctx context.Context, query string, arg any) (Buyer, error) {
	var b Buyer
	err := r.pool.QueryRow(ctx, query, arg).Scan(&b.UserID, &b.Name, &b.PhoneNumber, &b.Municipality, &b.WardNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Buyer{}, ErrNotFound
		}
		return Buyer{}, fmt.Errorf("directory: query buyer: %w", err)
	}
	return b, nil
}
