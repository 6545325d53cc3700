package credit

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound signals the credit record does not exist.
	ErrNotFound = errors.New("credit: not found")
	// ErrConflict signals a guarded update lost a concurrent race.
	ErrConflict = errors.New("credit: concurrent update conflict")
	// ErrUnauthorized signals the caller lacks the capability over the record.
	ErrUnauthorized = errors.New("credit: unauthorized")
	// ErrInvalidTransition signals the requested status change violates the lifecycle.
	ErrInvalidTransition = errors.New("credit: invalid state transition")
	// ErrInvalidArgument signals a malformed or missing required field.
	ErrInvalidArgument = errors.New("credit: invalid argument")
)

// TransitionParams enumerates a single guarded status update together with
// the timeline event and outbox message written in the same transaction.
type TransitionParams struct {
	CreditID string
	// ExpectedStatus, when non-nil, makes the update conditional: the write
	// applies only while the stored status still matches. A nil expectation
	// is the administrative override path.
	ExpectedStatus *Status
	NextStatus     Status

	BuyerApproved    *bool
	PaymentMethod    *string
	PaymentReference *string
	Notes            *string
	// SetPaidDate stamps paid_date with the transition time. It is never
	// cleared by a transition; paid_date is set exactly once.
	SetPaidDate bool

	ActorID     *string
	EventType   string
	OutboxTopic string
	Now         time.Time
}

// Store is the persistence abstraction for credit records. Implementations
// must apply Transition atomically per record: a conditional update either
// applies exactly once or fails with ErrConflict.
type Store interface {
	Create(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	Transition(ctx context.Context, params TransitionParams) (Record, error)
	Delete(ctx context.Context, id string) error

	ListByBuyer(ctx context.Context, buyerID string) ([]Record, error)
	ListBySeller(ctx context.Context, sellerID string) ([]Record, error)
	ListPendingForBuyer(ctx context.Context, buyerID string) ([]Record, error)
	// ListDueBefore returns records still awaiting payment whose due date
	// has passed the cutoff, for the time-based sweep.
	ListDueBefore(ctx context.Context, cutoff time.Time) ([]Record, error)

	BuyerSummary(ctx context.Context, buyerID string) (Summary, error)
	SellerSummary(ctx context.Context, sellerID string) (Summary, error)
}
