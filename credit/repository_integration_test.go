package credit

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestCreditLifecycle_Integration connects to a real PostgreSQL via DATABASE_URL
// and verifies the repository end to end: create, guarded transition, audit
// trail, outbox, summaries, and the conditional-update conflict path.
func TestCreditLifecycle_Integration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL is empty; set it to a live PostgreSQL to run integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pool: %v", err)
	}
	defer pool.Close()

	if !tableExists(ctx, t, pool, "credits") || !tableExists(ctx, t, pool, "credit_events") || !tableExists(ctx, t, pool, "outbox") {
		t.Skip("database schema missing; run migrations: migrate -path migrations -database \"$DATABASE_URL\" up")
	}

	// Seed the two parties the credits FK requires.
	buyerID := uuid.NewString()
	sellerID := uuid.NewString()
	suffix := time.Now().UnixNano()
	if _, err := pool.Exec(ctx, `INSERT INTO users (id, phone_number, password_hash, role) VALUES ($1, $2, 'x', 'buyer')`,
		buyerID, fmt.Sprintf("98%d", suffix)); err != nil {
		t.Fatalf("seed buyer: %v", err)
	}
	if _, err := pool.Exec(ctx, `INSERT INTO users (id, phone_number, password_hash, role) VALUES ($1, $2, 'x', 'seller')`,
		sellerID, fmt.Sprintf("97%d", suffix)); err != nil {
		t.Fatalf("seed seller: %v", err)
	}

	creditID := uuid.NewString()
	t.Cleanup(func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel2()
		pool.Exec(ctx2, `DELETE FROM credit_events WHERE credit_id = $1`, creditID)
		pool.Exec(ctx2, `DELETE FROM outbox WHERE payload->>'credit_id' = $1`, creditID)
		pool.Exec(ctx2, `DELETE FROM credits WHERE id = $1`, creditID)
		pool.Exec(ctx2, `DELETE FROM users WHERE id IN ($1, $2)`, buyerID, sellerID)
	})

	store := NewPGStore(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	created, err := store.Create(ctx, Record{
		ID:          creditID,
		BuyerID:     buyerID,
		SellerID:    sellerID,
		Amount:      150,
		Description: "integration shoes",
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != StatusPending || created.BuyerApproved {
		t.Fatalf("unexpected created record: %+v", created)
	}

	// Guarded approval: pending to active.
	expected := StatusPending
	approved := true
	active, err := store.Transition(ctx, TransitionParams{
		CreditID:       creditID,
		ExpectedStatus: &expected,
		NextStatus:     StatusActive,
		BuyerApproved:  &approved,
		ActorID:        &buyerID,
		EventType:      EventCreditApproved,
		OutboxTopic:    OutboxTopicCreditApproved,
		Now:            time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("transition to active: %v", err)
	}
	if active.Status != StatusActive || !active.BuyerApproved {
		t.Fatalf("unexpected record after approval: %+v", active)
	}

	// Replaying the same guard must lose the conditional update.
	if _, err := store.Transition(ctx, TransitionParams{
		CreditID:       creditID,
		ExpectedStatus: &expected,
		NextStatus:     StatusActive,
		EventType:      EventCreditApproved,
		OutboxTopic:    OutboxTopicCreditApproved,
		Now:            time.Now().UTC(),
	}); err != ErrConflict {
		t.Fatalf("expected ErrConflict on stale guard, got %v", err)
	}

	// Payment closes the debt and stamps paid_date.
	expectActive := StatusActive
	method := "Cash"
	reference := "R-INT-1"
	paid, err := store.Transition(ctx, TransitionParams{
		CreditID:         creditID,
		ExpectedStatus:   &expectActive,
		NextStatus:       StatusPaid,
		PaymentMethod:    &method,
		PaymentReference: &reference,
		SetPaidDate:      true,
		EventType:        EventPaymentRecorded,
		OutboxTopic:      OutboxTopicCreditPaid,
		Now:              time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("transition to paid: %v", err)
	}
	if paid.Status != StatusPaid || paid.PaidDate == nil {
		t.Fatalf("unexpected record after payment: %+v", paid)
	}
	if paid.PaymentMethod == nil || *paid.PaymentMethod != "Cash" {
		t.Fatalf("expected payment method Cash, got %v", paid.PaymentMethod)
	}

	// Audit trail: one event per write.
	var evCount int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM credit_events WHERE credit_id = $1`, creditID).Scan(&evCount); err != nil {
		t.Fatalf("count events: %v", err)
	}
	if evCount != 3 {
		t.Fatalf("expected 3 audit events, got %d", evCount)
	}

	var outCount int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE payload->>'credit_id' = $1`, creditID).Scan(&outCount); err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	if outCount != 3 {
		t.Fatalf("expected 3 outbox messages, got %d", outCount)
	}

	summary, err := store.SellerSummary(ctx, sellerID)
	if err != nil {
		t.Fatalf("seller summary: %v", err)
	}
	if summary.TotalCredits != 1 || summary.PaidAmount != 150 || summary.UniqueBuyers != 1 {
		t.Fatalf("unexpected seller summary: %+v", summary)
	}

	// Delete removes the record but keeps the audit trail.
	if err := store.Delete(ctx, creditID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, creditID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM credit_events WHERE credit_id = $1`, creditID).Scan(&evCount); err != nil {
		t.Fatalf("recount events: %v", err)
	}
	if evCount != 3 {
		t.Fatalf("expected audit events to survive delete, got %d", evCount)
	}
}

func tableExists(ctx context.Context, t *testing.T, pool *pgxpool.Pool, name string) bool {
	t.Helper()
	var exists bool
	err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)`, name).Scan(&exists)
	if err != nil {
		t.Fatalf("check table %s: %v", name, err)
	}
	return exists
}
