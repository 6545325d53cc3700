package credit

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by unit tests and local development.
// The mutex gives each record the same apply-exactly-once guarantee the
// SQL store gets from its conditional update.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	events  []TimelineEvent
	outbox  []OutboxMessage
	eventID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Create(ctx context.Context, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; ok {
		return Record{}, ErrConflict
	}
	s.records[rec.ID] = rec
	actor := rec.SellerID
	s.appendEvent(rec.ID, EventCreditCreated, &actor, map[string]any{
		"credit_id": rec.ID,
		"buyer_id":  rec.BuyerID,
		"seller_id": rec.SellerID,
		"amount":    rec.Amount,
	}, rec.CreatedAt)
	s.appendOutbox(OutboxTopicCreditCreated, map[string]any{"credit_id": rec.ID}, rec.CreatedAt)
	return rec, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Transition(ctx context.Context, params TransitionParams) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[params.CreditID]
	if !ok {
		return Record{}, ErrNotFound
	}
	if params.ExpectedStatus != nil && rec.Status != *params.ExpectedStatus {
		return Record{}, ErrConflict
	}

	rec.Status = params.NextStatus
	if params.BuyerApproved != nil {
		rec.BuyerApproved = *params.BuyerApproved
	}
	if params.PaymentMethod != nil {
		rec.PaymentMethod = params.PaymentMethod
	}
	if params.PaymentReference != nil {
		rec.PaymentReference = params.PaymentReference
	}
	if params.Notes != nil {
		rec.Notes = params.Notes
	}
	if params.SetPaidDate {
		paid := params.Now
		rec.PaidDate = &paid
	}
	rec.UpdatedAt = params.Now
	s.records[rec.ID] = rec

	payload := map[string]any{
		"credit_id":   rec.ID,
		"next_status": string(params.NextStatus),
	}
	if params.ExpectedStatus != nil {
		payload["previous_status"] = string(*params.ExpectedStatus)
	}
	s.appendEvent(rec.ID, params.EventType, params.ActorID, payload, params.Now)

	topic := params.OutboxTopic
	if topic == "" {
		topic = OutboxTopicCreditStatusChanged
	}
	s.appendOutbox(topic, map[string]any{"credit_id": rec.ID, "status": string(rec.Status)}, params.Now)

	return rec, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return ErrNotFound
	}
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) ListByBuyer(ctx context.Context, buyerID string) ([]Record, error) {
	return s.filter(func(rec Record) bool { return rec.BuyerID == buyerID }), nil
}

func (s *MemoryStore) ListBySeller(ctx context.Context, sellerID string) ([]Record, error) {
	return s.filter(func(rec Record) bool { return rec.SellerID == sellerID }), nil
}

func (s *MemoryStore) ListPendingForBuyer(ctx context.Context, buyerID string) ([]Record, error) {
	return s.filter(func(rec Record) bool {
		return rec.BuyerID == buyerID && rec.Status == StatusPending && !rec.BuyerApproved
	}), nil
}

func (s *MemoryStore) ListDueBefore(ctx context.Context, cutoff time.Time) ([]Record, error) {
	return s.filter(func(rec Record) bool {
		if rec.DueDate == nil || !rec.DueDate.Before(cutoff) {
			return false
		}
		return rec.Status == StatusActive || rec.Status == StatusOverdue
	}), nil
}

func (s *MemoryStore) BuyerSummary(ctx context.Context, buyerID string) (Summary, error) {
	records, _ := s.ListByBuyer(ctx, buyerID)
	sum := Summarize(records)
	// Distinct-buyer counting is a seller-side concern.
	sum.UniqueBuyers = 0
	return sum, nil
}

func (s *MemoryStore) SellerSummary(ctx context.Context, sellerID string) (Summary, error) {
	records, _ := s.ListBySeller(ctx, sellerID)
	return Summarize(records), nil
}

// Events returns a copy of the appended timeline events, newest last.
func (s *MemoryStore) Events() []TimelineEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TimelineEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Outbox returns a copy of the enqueued outbox messages, newest last.
func (s *MemoryStore) Outbox() []OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]OutboxMessage, len(s.outbox))
	copy(out, s.outbox)
	return out
}

func (s *MemoryStore) filter(keep func(Record) bool) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := []Record{}
	for _, rec := range s.records {
		if keep(rec) {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records
}

func (s *MemoryStore) appendEvent(creditID, eventType string, actorID *string, payload map[string]any, at time.Time) {
	body, _ := json.Marshal(payload)
	s.eventID++
	s.events = append(s.events, TimelineEvent{
		ID:        s.eventID,
		CreditID:  creditID,
		Type:      eventType,
		ActorID:   actorID,
		Payload:   body,
		CreatedAt: at,
	})
}

func (s *MemoryStore) appendOutbox(topic string, payload map[string]any, at time.Time) {
	body, _ := json.Marshal(payload)
	s.outbox = append(s.outbox, OutboxMessage{
		Topic:     topic,
		Payload:   body,
		Status:    "pending",
		CreatedAt: at,
	})
}
