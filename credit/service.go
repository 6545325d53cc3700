package credit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"creditbook/score"
)

// DirectoryLookup resolves a buyer reference (direct id or display name) to
// the buyer's user id, verifying the buyer role.
type DirectoryLookup interface {
	ResolveBuyerID(ctx context.Context, buyerID, buyerName string) (string, error)
}

// Service owns the credit lifecycle. All mutations flow through the store's
// guarded Transition so concurrent status changes reconcile to exactly one
// winner per record.
type Service struct {
	store       Store
	directory   DirectoryLookup
	idGenerator func() string
	now         func() time.Time

	// lateAfter is how long past the due date an overdue record is
	// escalated to late by the sweep.
	lateAfter time.Duration
}

func NewService(store Store, directory DirectoryLookup) *Service {
	return &Service{
		store:       store,
		directory:   directory,
		idGenerator: func() string { return uuid.NewString() },
		now:         time.Now,
		lateAfter:   30 * 24 * time.Hour,
	}
}

func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create opens a new obligation against a resolved buyer. The record always
// starts pending with buyer approval outstanding.
func (s *Service) Create(ctx context.Context, params CreateParams) (Record, error) {
	if params.SellerID == "" {
		return Record{}, fmt.Errorf("%w: seller id required", ErrInvalidArgument)
	}
	if params.BuyerID == "" && strings.TrimSpace(params.BuyerName) == "" {
		return Record{}, fmt.Errorf("%w: buyer id or buyer name required", ErrInvalidArgument)
	}
	if params.Amount <= 0 {
		return Record{}, fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}
	if strings.TrimSpace(params.Description) == "" {
		return Record{}, fmt.Errorf("%w: description required", ErrInvalidArgument)
	}

	buyerID, err := s.directory.ResolveBuyerID(ctx, params.BuyerID, params.BuyerName)
	if err != nil {
		return Record{}, err
	}

	now := s.now()
	rec := Record{
		ID:            s.idGenerator(),
		BuyerID:       buyerID,
		SellerID:      params.SellerID,
		Amount:        params.Amount,
		Description:   params.Description,
		Status:        StatusPending,
		BuyerApproved: false,
		DueDate:       params.DueDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	return s.store.Create(ctx, rec)
}

// Approve converts a pending obligation into an active debt. Only the buyer
// named on the record holds this capability.
func (s *Service) Approve(ctx context.Context, creditID, callerBuyerID string) (Record, error) {
	rec, err := s.store.Get(ctx, creditID)
	if err != nil {
		return Record{}, err
	}
	if rec.BuyerID != callerBuyerID {
		return Record{}, fmt.Errorf("%w: credit %s does not belong to caller", ErrUnauthorized, creditID)
	}
	if rec.Status != StatusPending {
		return Record{}, fmt.Errorf("%w: credit %s already decided (status=%s)", ErrInvalidTransition, creditID, rec.Status)
	}

	expected := StatusPending
	approved := true
	return s.store.Transition(ctx, TransitionParams{
		CreditID:       creditID,
		ExpectedStatus: &expected,
		NextStatus:     StatusActive,
		BuyerApproved:  &approved,
		ActorID:        &callerBuyerID,
		EventType:      EventCreditApproved,
		OutboxTopic:    OutboxTopicCreditApproved,
		Now:            s.now(),
	})
}

// Reject declines a pending obligation. The rejection reason lands in notes.
func (s *Service) Reject(ctx context.Context, creditID, callerBuyerID string, reason *string) (Record, error) {
	rec, err := s.store.Get(ctx, creditID)
	if err != nil {
		return Record{}, err
	}
	if rec.BuyerID != callerBuyerID {
		return Record{}, fmt.Errorf("%w: credit %s does not belong to caller", ErrUnauthorized, creditID)
	}
	if rec.Status != StatusPending {
		return Record{}, fmt.Errorf("%w: credit %s already decided (status=%s)", ErrInvalidTransition, creditID, rec.Status)
	}

	notes := "Rejected by buyer"
	if reason != nil && strings.TrimSpace(*reason) != "" {
		notes = strings.TrimSpace(*reason)
	}

	expected := StatusPending
	approved := false
	return s.store.Transition(ctx, TransitionParams{
		CreditID:       creditID,
		ExpectedStatus: &expected,
		NextStatus:     StatusRejected,
		BuyerApproved:  &approved,
		Notes:          &notes,
		ActorID:        &callerBuyerID,
		EventType:      EventCreditRejected,
		OutboxTopic:    OutboxTopicCreditRejected,
		Now:            s.now(),
	})
}

// RecordPayment closes an open debt. Method and reference are required; use
// MarkPaid when the caller has neither.
func (s *Service) RecordPayment(ctx context.Context, creditID string, params PaymentParams) (Record, error) {
	if strings.TrimSpace(params.Method) == "" || strings.TrimSpace(params.Reference) == "" {
		return Record{}, fmt.Errorf("%w: payment method and reference required", ErrInvalidArgument)
	}
	return s.pay(ctx, creditID, params)
}

// MarkPaid is the lenient payment path: metadata fields default to empty
// rather than failing validation.
func (s *Service) MarkPaid(ctx context.Context, creditID string, params PaymentParams) (Record, error) {
	return s.pay(ctx, creditID, params)
}

func (s *Service) pay(ctx context.Context, creditID string, params PaymentParams) (Record, error) {
	rec, err := s.store.Get(ctx, creditID)
	if err != nil {
		return Record{}, err
	}
	if !CanTransition(rec.Status, StatusPaid) {
		return Record{}, fmt.Errorf("%w: cannot pay credit %s in status %s", ErrInvalidTransition, creditID, rec.Status)
	}

	expected := rec.Status
	return s.store.Transition(ctx, TransitionParams{
		CreditID:         creditID,
		ExpectedStatus:   &expected,
		NextStatus:       StatusPaid,
		PaymentMethod:    &params.Method,
		PaymentReference: &params.Reference,
		Notes:            params.Notes,
		SetPaidDate:      true,
		EventType:        EventPaymentRecorded,
		OutboxTopic:      OutboxTopicCreditPaid,
		Now:              s.now(),
	})
}

// SetStatus is the administrative override: it forces any status in the
// enumeration with no transition-guard enforcement. Callers are expected to
// gate this behind a trusted role.
func (s *Service) SetStatus(ctx context.Context, creditID string, status Status, method, reference, notes *string) (Record, error) {
	if !IsValidStatus(status) {
		return Record{}, fmt.Errorf("%w: invalid status %q", ErrInvalidArgument, status)
	}
	return s.store.Transition(ctx, TransitionParams{
		CreditID:         creditID,
		NextStatus:       status,
		PaymentMethod:    method,
		PaymentReference: reference,
		Notes:            notes,
		SetPaidDate:      status == StatusPaid,
		EventType:        EventStatusOverridden,
		OutboxTopic:      OutboxTopicCreditStatusChanged,
		Now:              s.now(),
	})
}

// Delete removes a credit record outright, bypassing the state machine.
// Administrative capability only.
func (s *Service) Delete(ctx context.Context, creditID string) error {
	return s.store.Delete(ctx, creditID)
}

func (s *Service) Get(ctx context.Context, creditID string) (Record, error) {
	return s.store.Get(ctx, creditID)
}

// ListForBuyer returns the buyer's debts and payment history, newest first.
func (s *Service) ListForBuyer(ctx context.Context, buyerID string) ([]Record, error) {
	return s.store.ListByBuyer(ctx, buyerID)
}

// ListForSeller returns the obligations owed to the seller, newest first.
func (s *Service) ListForSeller(ctx context.Context, sellerID string) ([]Record, error) {
	return s.store.ListBySeller(ctx, sellerID)
}

// PendingRequests returns the buyer's not-yet-approved credit requests.
func (s *Service) PendingRequests(ctx context.Context, buyerID string) ([]Record, error) {
	return s.store.ListPendingForBuyer(ctx, buyerID)
}

func (s *Service) BuyerSummary(ctx context.Context, buyerID string) (Summary, error) {
	return s.store.BuyerSummary(ctx, buyerID)
}

func (s *Service) SellerSummary(ctx context.Context, sellerID string) (Summary, error) {
	return s.store.SellerSummary(ctx, sellerID)
}

// ComputeScore derives the buyer's trust score from their full transaction
// history at read time.
func (s *Service) ComputeScore(ctx context.Context, buyerID string) (score.Result, error) {
	records, err := s.store.ListByBuyer(ctx, buyerID)
	if err != nil {
		return score.Result{}, err
	}
	statuses := make([]string, len(records))
	for i, rec := range records {
		statuses[i] = string(rec.Status)
	}
	value := score.Calculate(statuses)
	return score.Result{Score: value, Risk: score.RiskFor(value)}, nil
}

// SweepOverdue escalates records whose due date has passed: active becomes
// overdue, and overdue becomes late once the due date is more than lateAfter
// behind. Races with concurrent payments are resolved by the store's
// conditional update; a lost race is skipped, not retried.
func (s *Service) SweepOverdue(ctx context.Context) (int, error) {
	now := s.now()
	candidates, err := s.store.ListDueBefore(ctx, now)
	if err != nil {
		return 0, err
	}

	transitioned := 0
	for _, rec := range candidates {
		var next Status
		var eventType string
		switch {
		case rec.Status == StatusActive:
			next = StatusOverdue
			eventType = EventMarkedOverdue
		case rec.Status == StatusOverdue && now.Sub(*rec.DueDate) > s.lateAfter:
			next = StatusLate
			eventType = EventMarkedLate
		default:
			continue
		}

		expected := rec.Status
		_, err := s.store.Transition(ctx, TransitionParams{
			CreditID:       rec.ID,
			ExpectedStatus: &expected,
			NextStatus:     next,
			EventType:      eventType,
			OutboxTopic:    OutboxTopicCreditStatusChanged,
			Now:            now,
		})
		switch {
		case err == nil:
			transitioned++
		case isSweepSkippable(err):
			// Paid or deleted between the read and the write.
		default:
			return transitioned, err
		}
	}
	return transitioned, nil
}

func isSweepSkippable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound)
}
