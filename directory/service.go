package directory

import (
	"context"
	"fmt"
	"strings"

	"creditbook/score"
)

// BuyerReader abstracts repository operations for the service.
type BuyerReader interface {
	GetBuyerByID(ctx context.Context, id string) (Buyer, error)
	FindBuyerByName(ctx context.Context, name string) (Buyer, error)
	FindBuyerByPhone(ctx context.Context, phoneNumber string) (Buyer, error)
	ListBuyers(ctx context.Context) ([]Buyer, error)
	ListCreditStatuses(ctx context.Context, buyerID string) ([]string, error)
}

// Service resolves buyer identity for credit creation and serves the
// phone-number lookup with its read-time credit score.
type Service struct {
	repo BuyerReader
}

func NewService(repo BuyerReader) *Service {
	return &Service{repo: repo}
}

// ResolveBuyerID resolves a buyer reference by exactly one of direct id or
// case-insensitive exact name. The id path wins when both are supplied.
func (s *Service) ResolveBuyerID(ctx context.Context, buyerID, buyerName string) (string, error) {
	if buyerID != "" {
		buyer, err := s.repo.GetBuyerByID(ctx, buyerID)
		if err != nil {
			return "", err
		}
		return buyer.UserID, nil
	}

	name := strings.TrimSpace(buyerName)
	if name == "" {
		return "", fmt.Errorf("directory: buyer id or name required")
	}
	buyer, err := s.repo.FindBuyerByName(ctx, name)
	if err != nil {
		return "", err
	}
	return buyer.UserID, nil
}

// ListBuyers returns all buyer profiles ordered by name.
func (s *Service) ListBuyers(ctx context.Context) ([]Buyer, error) {
	return s.repo.ListBuyers(ctx)
}

// LookupByPhone returns the buyer behind a phone number together with a
// score computed fresh from their full credit history.
func (s *Service) LookupByPhone(ctx context.Context, phoneNumber string) (BuyerWithScore, error) {
	buyer, err := s.repo.FindBuyerByPhone(ctx, phoneNumber)
	if err != nil {
		return BuyerWithScore{}, err
	}

	statuses, err := s.repo.ListCreditStatuses(ctx, buyer.UserID)
	if err != nil {
		return BuyerWithScore{}, err
	}

	value := score.Calculate(statuses)
	return BuyerWithScore{
		Buyer:     buyer,
		Score:     value,
		RiskLevel: string(score.RiskFor(value)),
	}, nil
}
