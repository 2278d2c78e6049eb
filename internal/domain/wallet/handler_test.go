package wallet

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := NewHandler(NewService(openTestDB(t, "wallet_handler_test"), nil))
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID := c.GetHeader("X-Test-User-ID"); userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	})

	v1 := r.Group("/api/v1")
	h.RegisterRoutes(v1)
	return r
}

func doJSONRequest(r http.Handler, method, path string, body any, authorized bool) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authorized {
		req.Header.Set("X-Test-User-ID", "student-42")
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid response envelope: %v", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("invalid response data: %v", err)
	}
}

func TestWalletEndpoints_Unauthorized(t *testing.T) {
	r := setupTestRouter(t)

	cases := []struct {
		method string
		path   string
		body   any
	}{
		{method: http.MethodGet, path: "/api/v1/wallets/me"},
		{method: http.MethodPost, path: "/api/v1/wallets/me/add", body: map[string]any{"amount": 10}},
		{method: http.MethodPost, path: "/api/v1/wallets/me/spend", body: map[string]any{"amount": 10}},
		{method: http.MethodGet, path: "/api/v1/wallets/me/transactions"},
	}

	for _, tc := range cases {
		rr := doJSONRequest(r, tc.method, tc.path, tc.body, false)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s %s, got %d", tc.method, tc.path, rr.Code)
		}
	}
}

func TestWalletEndpoints_FullFlow(t *testing.T) {
	r := setupTestRouter(t)

	rr := doJSONRequest(r, http.MethodGet, "/api/v1/wallets/me", nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for get wallet, got %d body=%s", rr.Code, rr.Body.String())
	}
	var balance struct {
		Balance int64 `json:"balance"`
	}
	decodeData(t, rr, &balance)
	if balance.Balance != 0 {
		t.Fatalf("expected initial balance 0, got %d", balance.Balance)
	}

	rr = doJSONRequest(r, http.MethodPost, "/api/v1/wallets/me/add", map[string]any{"amount": -5}, true)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid add, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSONRequest(r, http.MethodPost, "/api/v1/wallets/me/add", map[string]any{"amount": 150}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for add, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSONRequest(r, http.MethodPost, "/api/v1/wallets/me/spend", map[string]any{"amount": 500}, true)
	if rr.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 for overspend, got %d body=%s", rr.Code, rr.Body.String())
	}
	var env envelope
	_ = json.Unmarshal(rr.Body.Bytes(), &env)
	if env.Message != "Insufficient token balance" {
		t.Fatalf("unexpected overspend message %q", env.Message)
	}

	rr = doJSONRequest(r, http.MethodPost, "/api/v1/wallets/me/spend", map[string]any{"amount": 40}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for spend, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSONRequest(r, http.MethodGet, "/api/v1/wallets/me/transactions", nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for transactions, got %d body=%s", rr.Code, rr.Body.String())
	}
	var txResp struct {
		Transactions []map[string]any `json:"transactions"`
	}
	decodeData(t, rr, &txResp)
	if len(txResp.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txResp.Transactions))
	}

	rr = doJSONRequest(r, http.MethodGet, "/api/v1/wallets/me", nil, true)
	decodeData(t, rr, &balance)
	if balance.Balance != 110 {
		t.Fatalf("expected final balance 110, got %d", balance.Balance)
	}
}
