package credit

import "time"

// Status represents the lifecycle state of a credit record.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusActive   Status = "active"
	StatusPaid     Status = "paid"
	StatusOverdue  Status = "overdue"
	StatusLate     Status = "late"
)

// Record mirrors the credits table. It is the single obligation a seller
// extends to a buyer; the buyer/seller pair and the amount are fixed at
// creation and only the lifecycle fields change afterwards.
type Record struct {
	ID               string
	BuyerID          string
	SellerID         string
	Amount           float64
	Description      string
	Status           Status
	BuyerApproved    bool
	DueDate          *time.Time
	PaidDate         *time.Time
	PaymentMethod    *string
	PaymentReference *string
	Notes            *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Summary is the per-party rollup served to dashboards. Sums for statuses
// with no matching records are zero, never null.
type Summary struct {
	TotalCredits  int
	PendingAmount float64
	ActiveAmount  float64
	OverdueAmount float64
	PaidAmount    float64
	OverdueCount  int
	UniqueBuyers  int
}

// TimelineEvent captures an immutable business event for a credit record.
type TimelineEvent struct {
	ID        int64
	CreditID  string
	Type      string
	ActorID   *string
	Payload   []byte
	CreatedAt time.Time
}

// OutboxMessage represents a transactional outbox entry.
type OutboxMessage struct {
	ID        string
	Topic     string
	Payload   []byte
	Status    string
	Attempts  int
	CreatedAt time.Time
}

// CreateParams enumerates the caller-supplied fields for a new credit record.
// The buyer reference is resolved by the directory before the record is built.
type CreateParams struct {
	SellerID    string
	BuyerID     string
	BuyerName   string
	Amount      float64
	Description string
	DueDate     *time.Time
}

// PaymentParams carries the payment metadata recorded when a credit closes.
type PaymentParams struct {
	Method    string
	Reference string
	Notes     *string
}

// Timeline event types appended on credit mutations.
const (
	EventCreditCreated    = "CREDIT_CREATED"
	EventCreditApproved   = "CREDIT_APPROVED"
	EventCreditRejected   = "CREDIT_REJECTED"
	EventPaymentRecorded  = "PAYMENT_RECORDED"
	EventStatusOverridden = "STATUS_OVERRIDDEN"
	EventMarkedOverdue    = "MARKED_OVERDUE"
	EventMarkedLate       = "MARKED_LATE"
)

// Outbox topics published whenever a credit record changes.
const (
	OutboxTopicCreditCreated       = "credit.created"
	OutboxTopicCreditApproved      = "credit.approved"
	OutboxTopicCreditRejected      = "credit.rejected"
	OutboxTopicCreditPaid          = "credit.paid"
	OutboxTopicCreditStatusChanged = "credit.status_changed"
)
