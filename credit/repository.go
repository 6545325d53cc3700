package credit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const recordColumns = `id, buyer_id, seller_id, amount, description, status, buyer_approved,
       due_date, paid_date, payment_method, payment_reference, notes, created_at, updated_at`

// PGStore implements Store backed by PostgreSQL. Every mutation writes the
// credit row, a timeline event, and an outbox message in one transaction.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore wires a pgxpool-backed store implementation.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Create(ctx context.Context, rec Record) (Record, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("credit: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertSQL = `
		INSERT INTO credits (id, buyer_id, seller_id, amount, description, status, buyer_approved, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::credit_status, $7, $8, $9, $9)
		RETURNING ` + recordColumns

	created, err := scanRecord(tx.QueryRow(ctx, insertSQL,
		rec.ID,
		rec.BuyerID,
		rec.SellerID,
		rec.Amount,
		rec.Description,
		rec.Status,
		rec.BuyerApproved,
		rec.DueDate,
		rec.CreatedAt,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			// 23503: buyer or seller row missing.
			if pgErr.Code == "23503" {
				return Record{}, fmt.Errorf("%w: unknown buyer or seller", ErrNotFound)
			}
			if pgErr.Code == "23505" {
				return Record{}, fmt.Errorf("%w: duplicate credit id", ErrConflict)
			}
		}
		return Record{}, fmt.Errorf("credit: insert: %w", err)
	}

	payload := map[string]any{
		"credit_id": created.ID,
		"buyer_id":  created.BuyerID,
		"seller_id": created.SellerID,
		"amount":    created.Amount,
	}
	actor := created.SellerID
	if err := insertTimelineEvent(ctx, tx, created.ID, EventCreditCreated, &actor, payload); err != nil {
		return Record{}, err
	}
	if err := enqueueOutbox(ctx, tx, OutboxTopicCreditCreated, payload); err != nil {
		return Record{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("credit: commit: %w", err)
	}
	return created, nil
}

func (s *PGStore) Get(ctx context.Context, id string) (Record, error) {
	const query = `SELECT ` + recordColumns + ` FROM credits WHERE id = $1`

	rec, err := scanRecord(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("credit: get: %w", err)
	}
	return rec, nil
}

// Transition applies a guarded status update. The conditional form
// (ExpectedStatus non-nil) is a compare-and-swap on the status column: when
// the row has moved on since the caller read it, no row matches and the
// caller receives ErrConflict.
func (s *PGStore) Transition(ctx context.Context, params TransitionParams) (Record, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("credit: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	updateSQL := `
		UPDATE credits
		SET status = $1::credit_status,
		    buyer_approved = COALESCE($2, buyer_approved),
		    payment_method = COALESCE($3, payment_method),
		    payment_reference = COALESCE($4, payment_reference),
		    notes = COALESCE($5, notes),
		    paid_date = CASE WHEN $6 THEN $7 ELSE paid_date END,
		    updated_at = $7
		WHERE id = $8`
	args := []any{
		params.NextStatus,
		params.BuyerApproved,
		params.PaymentMethod,
		params.PaymentReference,
		params.Notes,
		params.SetPaidDate,
		params.Now,
		params.CreditID,
	}
	if params.ExpectedStatus != nil {
		updateSQL += ` AND status = $9::credit_status`
		args = append(args, *params.ExpectedStatus)
	}
	updateSQL += `
		RETURNING ` + recordColumns

	rec, err := scanRecord(tx.QueryRow(ctx, updateSQL, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, s.classifyMissedUpdate(ctx, params.CreditID)
		}
		return Record{}, fmt.Errorf("credit: update status: %w", err)
	}

	payload := map[string]any{
		"credit_id":   rec.ID,
		"next_status": string(params.NextStatus),
	}
	if params.ExpectedStatus != nil {
		payload["previous_status"] = string(*params.ExpectedStatus)
	}
	if err := insertTimelineEvent(ctx, tx, rec.ID, params.EventType, params.ActorID, payload); err != nil {
		return Record{}, err
	}

	topic := params.OutboxTopic
	if topic == "" {
		topic = OutboxTopicCreditStatusChanged
	}
	if err := enqueueOutbox(ctx, tx, topic, map[string]any{
		"credit_id": rec.ID,
		"status":    string(rec.Status),
	}); err != nil {
		return Record{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("credit: commit transition: %w", err)
	}
	return rec, nil
}

// classifyMissedUpdate distinguishes a missing row from a lost race after a
// conditional update matched nothing.
func (s *PGStore) classifyMissedUpdate(ctx context.Context, creditID string) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM credits WHERE id = $1)`, creditID).Scan(&exists); err != nil {
		return fmt.Errorf("credit: classify missed update: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM credits WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("credit: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) ListByBuyer(ctx context.Context, buyerID string) ([]Record, error) {
	const query = `SELECT ` + recordColumns + ` FROM credits WHERE buyer_id = $1 ORDER BY created_at DESC`
	return s.list(ctx, query, buyerID)
}

func (s *PGStore) ListBySeller(ctx context.Context, sellerID string) ([]Record, error) {
	const query = `SELECT ` + recordColumns + ` FROM credits WHERE seller_id = $1 ORDER BY created_at DESC`
	return s.list(ctx, query, sellerID)
}

func (s *PGStore) ListPendingForBuyer(ctx context.Context, buyerID string) ([]Record, error) {
	const query = `SELECT ` + recordColumns + `
		FROM credits
		WHERE buyer_id = $1 AND status = 'pending' AND buyer_approved = FALSE
		ORDER BY created_at DESC`
	return s.list(ctx, query, buyerID)
}

func (s *PGStore) ListDueBefore(ctx context.Context, cutoff time.Time) ([]Record, error) {
	const query = `SELECT ` + recordColumns + `
		FROM credits
		WHERE due_date IS NOT NULL AND due_date < $1 AND status IN ('active', 'overdue')
		ORDER BY due_date ASC`
	return s.list(ctx, query, cutoff)
}

func (s *PGStore) list(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("credit: list: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("credit: scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("credit: iterate records: %w", err)
	}
	return records, nil
}

func (s *PGStore) BuyerSummary(ctx context.Context, buyerID string) (Summary, error) {
	const query = `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = 'pending' THEN amount ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'active' THEN amount ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'overdue' THEN amount ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'paid' THEN amount ELSE 0 END), 0),
		       COUNT(*) FILTER (WHERE status = 'overdue')
		FROM credits
		WHERE buyer_id = $1`

	var sum Summary
	err := s.pool.QueryRow(ctx, query, buyerID).Scan(
		&sum.TotalCredits,
		&sum.PendingAmount,
		&sum.ActiveAmount,
		&sum.OverdueAmount,
		&sum.PaidAmount,
		&sum.OverdueCount,
	)
	if err != nil {
		return Summary{}, fmt.Errorf("credit: buyer summary: %w", err)
	}
	return sum, nil
}

func (s *PGStore) SellerSummary(ctx context.Context, sellerID string) (Summary, error) {
	const query = `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = 'pending' THEN amount ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'active' THEN amount ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'overdue' THEN amount ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'paid' THEN amount ELSE 0 END), 0),
		       COUNT(*) FILTER (WHERE status = 'overdue'),
		       COUNT(DISTINCT buyer_id)
		FROM credits
		WHERE seller_id = $1`

	var sum Summary
	err := s.pool.QueryRow(ctx, query, sellerID).Scan(
		&sum.TotalCredits,
		&sum.PendingAmount,
		&sum.ActiveAmount,
		&sum.OverdueAmount,
		&sum.PaidAmount,
		&sum.OverdueCount,
		&sum.UniqueBuyers,
	)
	if err != nil {
		return Summary{}, fmt.Errorf("credit: seller summary: %w", err)
	}
	return sum, nil
}

func insertTimelineEvent(ctx context.Context, tx pgx.Tx, creditID, eventType string, actorID *string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("credit: marshal timeline payload: %w", err)
	}
	const q = `INSERT INTO credit_events (credit_id, type, payload, actor_id) VALUES ($1, $2, $3::jsonb, $4)`
	if _, err := tx.Exec(ctx, q, creditID, eventType, body, actorID); err != nil {
		return fmt.Errorf("credit: insert timeline event: %w", err)
	}
	return nil
}

func enqueueOutbox(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("credit: marshal outbox payload: %w", err)
	}
	const q = `INSERT INTO outbox (topic, payload) VALUES ($1, $2::jsonb)`
	if _, err := tx.Exec(ctx, q, topic, body); err != nil {
		return fmt.Errorf("credit: enqueue outbox: %w", err)
	}
	return nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID,
		&rec.BuyerID,
		&rec.SellerID,
		&rec.Amount,
		&rec.Description,
		&rec.Status,
		&rec.BuyerApproved,
		&rec.DueDate,
		&rec.PaidDate,
		&rec.PaymentMethod,
		&rec.PaymentReference,
		&rec.Notes,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}
