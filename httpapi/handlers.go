package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"creditbook/auth"
	"creditbook/credit"
	"creditbook/directory"
)

// CreditService is the core-facing contract the transport depends on.
type CreditService interface {
	Create(ctx context.Context, params credit.CreateParams) (credit.Record, error)
	Approve(ctx context.Context, creditID, callerBuyerID string) (credit.Record, error)
	Reject(ctx context.Context, creditID, callerBuyerID string, reason *string) (credit.Record, error)
	RecordPayment(ctx context.Context, creditID string, params credit.PaymentParams) (credit.Record, error)
	MarkPaid(ctx context.Context, creditID string, params credit.PaymentParams) (credit.Record, error)
	SetStatus(ctx context.Context, creditID string, status credit.Status, method, reference, notes *string) (credit.Record, error)
	Delete(ctx context.Context, creditID string) error
	ListForBuyer(ctx context.Context, buyerID string) ([]credit.Record, error)
	ListForSeller(ctx context.Context, sellerID string) ([]credit.Record, error)
	PendingRequests(ctx context.Context, buyerID string) ([]credit.Record, error)
	BuyerSummary(ctx context.Context, buyerID string) (credit.Summary, error)
	SellerSummary(ctx context.Context, sellerID string) (credit.Summary, error)
}

// DirectoryService resolves buyer identity for the read-side endpoints.
type DirectoryService interface {
	ListBuyers(ctx context.Context) ([]directory.Buyer, error)
	LookupByPhone(ctx context.Context, phoneNumber string) (directory.BuyerWithScore, error)
}

// AuthService issues and validates principals.
type AuthService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (auth.LoginResult, error)
	Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
}

// Handler is the thin HTTP layer. It delegates to the domain services and
// keeps transport concerns out of the core.
type Handler struct {
	credits   CreditService
	directory DirectoryService
	auth      AuthService
	log       logrus.FieldLogger
}

func NewHandler(credits CreditService, dir DirectoryService, authSvc AuthService, log logrus.FieldLogger) *Handler {
	return &Handler{credits: credits, directory: dir, auth: authSvc, log: log}
}

type registerResponse struct {
	Token string   `json:"token"`
	User  userJSON `json:"user"`
}

type userJSON struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phoneNumber"`
	Name        string `json:"name"`
	Role        string `json:"role"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.auth.Register(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{
		Token: result.Token,
		User: userJSON{
			ID:          result.User.ID,
			PhoneNumber: result.User.PhoneNumber,
			Name:        result.User.Name,
			Role:        string(result.User.Role),
		},
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.auth.Login(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, registerResponse{
		Token: result.Token,
		User: userJSON{
			ID:          result.User.ID,
			PhoneNumber: result.User.PhoneNumber,
			Name:        result.User.Name,
			Role:        string(result.User.Role),
		},
	})
}

type createCreditRequest struct {
	BuyerID     string     `json:"buyerId"`
	BuyerName   string     `json:"buyerName"`
	Amount      float64    `json:"amount"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
}

func (h *Handler) createCredit(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	var req createCreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.credits.Create(r.Context(), credit.CreateParams{
		SellerID:    p.UserID,
		BuyerID:     req.BuyerID,
		BuyerName:   req.BuyerName,
		Amount:      req.Amount,
		Description: req.Description,
		DueDate:     req.DueDate,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCreditJSON(rec))
}

func (h *Handler) approveCredit(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	rec, err := h.credits.Approve(r.Context(), chi.URLParam(r, "creditID"), p.UserID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCreditJSON(rec))
}

type rejectCreditRequest struct {
	Reason *string `json:"reason"`
}

func (h *Handler) rejectCredit(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	var req rejectCreditRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	rec, err := h.credits.Reject(r.Context(), chi.URLParam(r, "creditID"), p.UserID, req.Reason)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCreditJSON(rec))
}

type paymentRequest struct {
	PaymentMethod    string  `json:"paymentMethod"`
	PaymentReference string  `json:"paymentReference"`
	Notes            *string `json:"notes"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.credits.RecordPayment(r.Context(), chi.URLParam(r, "creditID"), credit.PaymentParams{
		Method:    req.PaymentMethod,
		Reference: req.PaymentReference,
		Notes:     req.Notes,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCreditJSON(rec))
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	rec, err := h.credits.MarkPaid(r.Context(), chi.URLParam(r, "creditID"), credit.PaymentParams{
		Method:    req.PaymentMethod,
		Reference: req.PaymentReference,
		Notes:     req.Notes,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCreditJSON(rec))
}

type setStatusRequest struct {
	Status           string  `json:"status"`
	PaymentMethod    *string `json:"paymentMethod"`
	PaymentReference *string `json:"paymentReference"`
	Notes            *string `json:"notes"`
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.credits.SetStatus(r.Context(), chi.URLParam(r, "creditID"),
		credit.Status(req.Status), req.PaymentMethod, req.PaymentReference, req.Notes)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCreditJSON(rec))
}

func (h *Handler) deleteCredit(w http.ResponseWriter, r *http.Request) {
	if err := h.credits.Delete(r.Context(), chi.URLParam(r, "creditID")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Credit deleted successfully"})
}

func (h *Handler) buyerCredits(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	records, err := h.credits.ListForBuyer(r.Context(), p.UserID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCreditListJSON(records))
}

func (h *Handler) sellerCredits(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	records, err := h.credits.ListForSeller(r.Context(), p.UserID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCreditListJSON(records))
}

func (h *Handler) pendingRequests(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	records, err := h.credits.PendingRequests(r.Context(), p.UserID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCreditListJSON(records))
}

// buyerHistory serves another party's credit history for verification.
func (h *Handler) buyerHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.credits.ListForBuyer(r.Context(), chi.URLParam(r, "buyerID"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCreditListJSON(records))
}

func (h *Handler) buyerSummary(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	sum, err := h.credits.BuyerSummary(r.Context(), p.UserID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryJSON(sum, false))
}

func (h *Handler) sellerSummary(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	sum, err := h.credits.SellerSummary(r.Context(), p.UserID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryJSON(sum, true))
}

func (h *Handler) buyersList(w http.ResponseWriter, r *http.Request) {
	buyers, err := h.directory.ListBuyers(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]buyerJSON, len(buyers))
	for i, b := range buyers {
		out[i] = toBuyerJSON(b)
	}
	writeJSON(w, http.StatusOK, out)
}

type buyerWithScoreJSON struct {
	buyerJSON
	CreditScore int    `json:"creditScore"`
	RiskLevel   string `json:"riskLevel"`
}

func (h *Handler) buyerByPhone(w http.ResponseWriter, r *http.Request) {
	result, err := h.directory.LookupByPhone(r.Context(), chi.URLParam(r, "phoneNumber"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, buyerWithScoreJSON{
		buyerJSON:   toBuyerJSON(result.Buyer),
		CreditScore: result.Score,
		RiskLevel:   result.RiskLevel,
	})
}
