package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"creditbook/auth"
	"creditbook/credit"
	"creditbook/directory"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError translates typed domain errors into status codes. The
// services never shape HTTP responses themselves.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, credit.ErrNotFound),
		errors.Is(err, directory.ErrNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, credit.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, credit.ErrInvalidArgument),
		errors.Is(err, auth.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, credit.ErrInvalidTransition),
		errors.Is(err, credit.ErrConflict),
		errors.Is(err, auth.ErrDuplicatePhone):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		h.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// creditJSON is the wire representation of a credit record.
type creditJSON struct {
	ID               string     `json:"id"`
	BuyerID          string     `json:"buyerId"`
	SellerID         string     `json:"sellerId"`
	Amount           float64    `json:"amount"`
	Description      string     `json:"description"`
	Status           string     `json:"status"`
	BuyerApproved    bool       `json:"buyerApproved"`
	DueDate          *time.Time `json:"dueDate"`
	PaidDate         *time.Time `json:"paidDate"`
	PaymentMethod    *string    `json:"paymentMethod"`
	PaymentReference *string    `json:"paymentReference"`
	Notes            *string    `json:"notes"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func toCreditJSON(rec credit.Record) creditJSON {
	return creditJSON{
		ID:               rec.ID,
		BuyerID:          rec.BuyerID,
		SellerID:         rec.SellerID,
		Amount:           rec.Amount,
		Description:      rec.Description,
		Status:           string(rec.Status),
		BuyerApproved:    rec.BuyerApproved,
		DueDate:          rec.DueDate,
		PaidDate:         rec.PaidDate,
		PaymentMethod:    rec.PaymentMethod,
		PaymentReference: rec.PaymentReference,
		Notes:            rec.Notes,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}
}

func toCreditListJSON(records []credit.Record) []creditJSON {
	out := make([]creditJSON, len(records))
	for i, rec := range records {
		out[i] = toCreditJSON(rec)
	}
	return out
}

type summaryJSON struct {
	TotalCredits  int     `json:"totalCredits"`
	PendingAmount float64 `json:"pendingAmount"`
	ActiveAmount  float64 `json:"activeAmount"`
	OverdueAmount float64 `json:"overdueAmount"`
	PaidAmount    float64 `json:"paidAmount"`
	OverdueCount  int     `json:"overdueCount"`
	UniqueBuyers  *int    `json:"uniqueBuyers,omitempty"`
}

func toSummaryJSON(sum credit.Summary, withBuyers bool) summaryJSON {
	out := summaryJSON{
		TotalCredits:  sum.TotalCredits,
		PendingAmount: sum.PendingAmount,
		ActiveAmount:  sum.ActiveAmount,
		OverdueAmount: sum.OverdueAmount,
		PaidAmount:    sum.PaidAmount,
		OverdueCount:  sum.OverdueCount,
	}
	if withBuyers {
		buyers := sum.UniqueBuyers
		out.UniqueBuyers = &buyers
	}
	return out
}

type buyerJSON struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PhoneNumber  string `json:"phoneNumber"`
	Municipality string `json:"municipality"`
	WardNumber   string `json:"wardNumber"`
}

func toBuyerJSON(b directory.Buyer) buyerJSON {
	return buyerJSON{
		ID:           b.UserID,
		Name:         b.Name,
		PhoneNumber:  b.PhoneNumber,
		Municipality: b.Municipality,
		WardNumber:   b.WardNumber,
	}
}
