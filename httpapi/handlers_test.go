package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"creditbook/auth"
	"creditbook/credit"
	"creditbook/directory"
)

type fakeVerifier struct {
	// tokens maps bearer token to "userID:role".
	tokens map[string]string
}

func (f *fakeVerifier) VerifyToken(token string) (string, auth.Role, error) {
	v, ok := f.tokens[token]
	if !ok {
		return "", "", fmt.Errorf("unknown token")
	}
	parts := strings.SplitN(v, ":", 2)
	return parts[0], auth.Role(parts[1]), nil
}

type fakeResolver struct{}

func (fakeResolver) ResolveBuyerID(ctx context.Context, buyerID, buyerName string) (string, error) {
	if buyerID == "buyer-1" || strings.EqualFold(strings.TrimSpace(buyerName), "Sita Shrestha") {
		return "buyer-1", nil
	}
	return "", credit.ErrNotFound
}

type fakeDirectoryService struct{}

func (fakeDirectoryService) ListBuyers(ctx context.Context) ([]directory.Buyer, error) {
	return []directory.Buyer{{UserID: "buyer-1", Name: "Sita Shrestha", PhoneNumber: "9841000001"}}, nil
}

func (fakeDirectoryService) LookupByPhone(ctx context.Context, phoneNumber string) (directory.BuyerWithScore, error) {
	if phoneNumber != "9841000001" {
		return directory.BuyerWithScore{}, directory.ErrNotFound
	}
	return directory.BuyerWithScore{
		Buyer:     directory.Buyer{UserID: "buyer-1", Name: "Sita Shrestha", PhoneNumber: phoneNumber},
		Score:     90,
		RiskLevel: "Good",
	}, nil
}

type fakeAuthService struct{}

func (fakeAuthService) Register(ctx context.Context, req auth.RegisterRequest) (auth.LoginResult, error) {
	if len(req.Password) < 6 {
		return auth.LoginResult{}, auth.ErrWeakPassword
	}
	return auth.LoginResult{
		Token: "fresh-token",
		User:  auth.User{ID: "user-1", PhoneNumber: req.PhoneNumber, Role: req.Role},
	}, nil
}

func (fakeAuthService) Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error) {
	if req.Password != "secret1" {
		return auth.LoginResult{}, auth.ErrInvalidCredentials
	}
	return auth.LoginResult{Token: "fresh-token", User: auth.User{ID: "user-1", Role: auth.RoleBuyer}}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *credit.Service) {
	t.Helper()

	store := credit.NewMemoryStore()
	n := 0
	creditSvc := credit.NewService(store, fakeResolver{}).
		WithIDGenerator(func() string { n++; return fmt.Sprintf("credit-%d", n) })

	log := logrus.New()
	log.SetOutput(io.Discard)

	h := NewHandler(creditSvc, fakeDirectoryService{}, fakeAuthService{}, log)
	verifier := &fakeVerifier{tokens: map[string]string{
		"buyer-token":  "buyer-1:buyer",
		"buyer2-token": "buyer-2:buyer",
		"seller-token": "seller-1:seller",
		"admin-token":  "admin-1:admin",
	}}

	srv := httptest.NewServer(NewRouter(h, verifier))
	t.Cleanup(srv.Close)
	return srv, creditSvc
}

func doRequest(t *testing.T, method, url, token, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func createCreditViaAPI(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, body := doRequest(t, http.MethodPost, srv.URL+"/api/credits/create", "seller-token",
		`{"buyerId":"buyer-1","amount":100,"description":"Shoes"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create credit: expected 201, got %d: %s", resp.StatusCode, body)
	}
	var rec struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &rec); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return rec.ID
}

func TestAuthentication(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := doRequest(t, http.MethodGet, srv.URL+"/api/credits/buyer-credits", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/api/credits/buyer-credits", "bogus", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with unknown token, got %d", resp.StatusCode)
	}

	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/api/credits/buyer-credits", "buyer-token", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", resp.StatusCode)
	}
}

func TestRoleGating(t *testing.T) {
	srv, _ := newTestServer(t)

	// Buyers cannot open credits.
	resp, _ := doRequest(t, http.MethodPost, srv.URL+"/api/credits/create", "buyer-token",
		`{"buyerId":"buyer-1","amount":100,"description":"Shoes"}`)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for buyer creating credit, got %d", resp.StatusCode)
	}

	id := createCreditViaAPI(t, srv)

	// Sellers cannot approve.
	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/api/credits/"+id+"/approve", "seller-token", "")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for seller approving, got %d", resp.StatusCode)
	}

	// Only admins may force status or delete.
	resp, _ = doRequest(t, http.MethodDelete, srv.URL+"/api/credits/"+id, "seller-token", "")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for seller delete, got %d", resp.StatusCode)
	}
	resp, _ = doRequest(t, http.MethodDelete, srv.URL+"/api/credits/"+id, "admin-token", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for admin delete, got %d", resp.StatusCode)
	}
}

func TestCreditLifecycleOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)

	id := createCreditViaAPI(t, srv)

	resp, body := doRequest(t, http.MethodPost, srv.URL+"/api/credits/"+id+"/approve", "buyer-token", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d: %s", resp.StatusCode, body)
	}
	var approved struct {
		Status        string `json:"status"`
		BuyerApproved bool   `json:"buyerApproved"`
	}
	if err := json.Unmarshal(body, &approved); err != nil {
		t.Fatalf("decode approve response: %v", err)
	}
	if approved.Status != "active" || !approved.BuyerApproved {
		t.Fatalf("unexpected approve response: %s", body)
	}

	resp, body = doRequest(t, http.MethodPost, srv.URL+"/api/credits/"+id+"/payment", "seller-token",
		`{"paymentMethod":"Cash","paymentReference":"R1"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("payment: expected 200, got %d: %s", resp.StatusCode, body)
	}
	var paid struct {
		Status   string  `json:"status"`
		PaidDate *string `json:"paidDate"`
	}
	if err := json.Unmarshal(body, &paid); err != nil {
		t.Fatalf("decode payment response: %v", err)
	}
	if paid.Status != "paid" || paid.PaidDate == nil {
		t.Fatalf("unexpected payment response: %s", body)
	}
}

func TestErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t)

	// Unknown record: 404.
	resp, _ := doRequest(t, http.MethodPost, srv.URL+"/api/credits/missing/approve", "buyer-token", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown credit, got %d", resp.StatusCode)
	}

	id := createCreditViaAPI(t, srv)

	// Wrong buyer approving: 403.
	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/api/credits/"+id+"/approve", "buyer2-token", "")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign buyer, got %d", resp.StatusCode)
	}

	// Payment without metadata: 400.
	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/api/credits/"+id+"/payment", "seller-token", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for incomplete payment, got %d", resp.StatusCode)
	}

	// Double decision: 409.
	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/api/credits/"+id+"/approve", "buyer-token", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d", resp.StatusCode)
	}
	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/api/credits/"+id+"/approve", "buyer-token", "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for double approve, got %d", resp.StatusCode)
	}

	// Malformed body: 400.
	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/api/credits/create", "seller-token", "{not json")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp.StatusCode)
	}
}

func TestAuthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doRequest(t, http.MethodPost, srv.URL+"/api/auth/register", "",
		`{"phoneNumber":"9841000001","password":"secret1","role":"buyer","buyerData":{"name":"Sita Shrestha"}}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", resp.StatusCode, body)
	}
	var reg struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &reg); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	if reg.Token == "" {
		t.Fatal("expected token in register response")
	}

	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/api/auth/register", "",
		`{"phoneNumber":"9841000001","password":"123","role":"buyer","buyerData":{"name":"Sita"}}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for weak password, got %d", resp.StatusCode)
	}

	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/api/auth/login", "",
		`{"phoneNumber":"9841000001","password":"wrong"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad credentials, got %d", resp.StatusCode)
	}
}

func TestBuyerByPhone(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/api/credits/buyer-by-phone/9841000001", "seller-token", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var got struct {
		Name        string `json:"name"`
		CreditScore int    `json:"creditScore"`
		RiskLevel   string `json:"riskLevel"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Name != "Sita Shrestha" || got.CreditScore != 90 || got.RiskLevel != "Good" {
		t.Fatalf("unexpected lookup payload: %s", body)
	}

	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/api/credits/buyer-by-phone/9800000000", "seller-token", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown phone, got %d", resp.StatusCode)
	}
}
