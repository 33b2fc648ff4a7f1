// Package api_test runs HTTP-level smoke tests using net/http/httptest.
// These tests do NOT require a PostgreSQL database — the router is backed by
// the in-memory store.  They verify:
//   - Gin router routing and middleware wiring
//   - Request validation error responses (400)
//   - JWT auth middleware (401 without token, 401 with bad token)
//   - Response format consistency (success/error envelope)
//   - A full market → offer → accept → close → withdraw flow over HTTP
package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/evetabi/matchbook/internal/api"
	"github.com/evetabi/matchbook/internal/config"
	"github.com/evetabi/matchbook/internal/events"
	"github.com/evetabi/matchbook/internal/ledger"
	"github.com/evetabi/matchbook/internal/store"
)

const testSecret = "test-secret-abcdefghijklmnopqrstuv"

// ── Test helpers ──────────────────────────────────────────────────────────────

func testCfg(adminAccounts ...string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Env:           "development",
			Port:          "8080",
			AdminAccounts: adminAccounts,
		},
		JWT: config.JWTConfig{Secret: testSecret},
	}
}

func buildTestRouter(t *testing.T, adminAccounts ...string) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := ledger.New(store.NewMemoryStore(), events.NopEmitter{}, logger)

	return api.SetupRouter(api.RouterDeps{
		Ledger: eng,
		Hub:    nil,
		Cfg:    testCfg(adminAccounts...),
	})
}

// mintToken signs an HMAC JWT whose subject is the given account id, the
// shape the host platform issues.
func mintToken(t *testing.T, account uuid.UUID) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": account.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func do(t *testing.T, h http.Handler, method, path, body string, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&m); err != nil {
		t.Fatalf("response is not valid JSON: %v — body: %s", err, rr.Body.String())
	}
	return m
}

// ── /health ───────────────────────────────────────────────────────────────────

func TestHealthEndpoint(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodGet, "/health", "", "")
	if rr.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", rr.Code)
	}
}

// ── Auth middleware ───────────────────────────────────────────────────────────

func TestMutatingEndpoints_NoToken_Return401(t *testing.T) {
	h := buildTestRouter(t)
	cases := []struct{ method, path, body string }{
		{http.MethodPost, "/api/markets", `{"description":"x"}`},
		{http.MethodPost, "/api/markets/0/close", `{"long_won":true}`},
		{http.MethodPost, "/api/offers", `{"market_id":0,"is_long":true,"amount":"10"}`},
		{http.MethodPost, "/api/offers/0/accept", `{"amount":"10"}`},
		{http.MethodDelete, "/api/offers/0", ""},
		{http.MethodGet, "/api/wallet/balance", ""},
		{http.MethodPost, "/api/wallet/withdraw", ""},
		{http.MethodGet, "/api/wallet/transfers", ""},
		{http.MethodGet, "/api/ledger/report", ""},
	}
	for _, tc := range cases {
		rr := do(t, h, tc.method, tc.path, tc.body, "")
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token = %d, want 401", tc.method, tc.path, rr.Code)
		}
	}
}

func TestInvalidToken_Returns401(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodGet, "/api/wallet/balance", "", "not.a.valid.jwt")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("bad JWT = %d, want 401", rr.Code)
	}
}

func TestMarketReads_ArePublic(t *testing.T) {
	h := buildTestRouter(t)
	for _, path := range []string{"/api/markets", "/api/markets/0", "/api/markets/0/offers"} {
		rr := do(t, h, http.MethodGet, path, "", "")
		if rr.Code == http.StatusUnauthorized {
			t.Errorf("GET %s should be public (no 401)", path)
		}
	}
}

func TestLedgerReport_NonAdmin_Returns403(t *testing.T) {
	admin := uuid.New()
	h := buildTestRouter(t, admin.String())

	rr := do(t, h, http.MethodGet, "/api/ledger/report", "", mintToken(t, uuid.New()))
	if rr.Code != http.StatusForbidden {
		t.Errorf("report as non-admin = %d, want 403", rr.Code)
	}

	rr = do(t, h, http.MethodGet, "/api/ledger/report", "", mintToken(t, admin))
	if rr.Code != http.StatusOK {
		t.Errorf("report as admin = %d, want 200", rr.Code)
	}
}

// ── Validation ────────────────────────────────────────────────────────────────

func TestCreateMarket_MissingDescription(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodPost, "/api/markets", `{}`, mintToken(t, uuid.New()))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("empty body = %d, want 400", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["success"] != false {
		t.Errorf("response.success should be false on error, got %v", body["success"])
	}
	if body["code"] == nil {
		t.Errorf("error envelope missing 'code', got: %v", body)
	}
}

func TestCreateOffer_ZeroAmount_Returns400(t *testing.T) {
	h := buildTestRouter(t)
	token := mintToken(t, uuid.New())

	rr := do(t, h, http.MethodPost, "/api/markets", `{"description":"m"}`, token)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create market = %d, want 201", rr.Code)
	}

	rr = do(t, h, http.MethodPost, "/api/offers", `{"market_id":0,"is_long":true,"amount":"0"}`, token)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("zero amount offer = %d, want 400: %s", rr.Code, rr.Body.String())
	}
}

func TestGetMarket_BadID_Returns400(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodGet, "/api/markets/notanumber", "", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("GET /api/markets/notanumber = %d, want 400", rr.Code)
	}
}

// ── Full flow ─────────────────────────────────────────────────────────────────

// TestFullSettlementFlow drives the whole lifecycle over HTTP: market
// creation, two long offers, acceptance of both, resolution in favor of
// longs, and a full withdrawal of the 160 credit.
func TestFullSettlementFlow(t *testing.T) {
	h := buildTestRouter(t)
	owner := uuid.New()
	alice := uuid.New()
	bob := uuid.New()
	ownerTok := mintToken(t, owner)
	aliceTok := mintToken(t, alice)
	bobTok := mintToken(t, bob)

	// Market.
	rr := do(t, h, http.MethodPost, "/api/markets", `{"description":"Will it rain?"}`, ownerTok)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create market = %d: %s", rr.Code, rr.Body.String())
	}

	// Two long offers by alice.
	for _, amount := range []string{"50", "30"} {
		body := fmt.Sprintf(`{"market_id":0,"is_long":true,"amount":"%s"}`, amount)
		rr = do(t, h, http.MethodPost, "/api/offers", body, aliceTok)
		if rr.Code != http.StatusCreated {
			t.Fatalf("create offer %s = %d: %s", amount, rr.Code, rr.Body.String())
		}
	}

	// Self-trade rejected.
	rr = do(t, h, http.MethodPost, "/api/offers/0/accept", `{"amount":"50"}`, aliceTok)
	if rr.Code != http.StatusConflict {
		t.Errorf("self accept = %d, want 409", rr.Code)
	}

	// Amount mismatch rejected.
	rr = do(t, h, http.MethodPost, "/api/offers/0/accept", `{"amount":"49"}`, bobTok)
	if rr.Code != http.StatusConflict {
		t.Errorf("mismatched accept = %d, want 409", rr.Code)
	}

	// Bob accepts both.
	rr = do(t, h, http.MethodPost, "/api/offers/0/accept", `{"amount":"50"}`, bobTok)
	if rr.Code != http.StatusOK {
		t.Fatalf("accept offer 0 = %d: %s", rr.Code, rr.Body.String())
	}
	rr = do(t, h, http.MethodPost, "/api/offers/1/accept", `{"amount":"30"}`, bobTok)
	if rr.Code != http.StatusOK {
		t.Fatalf("accept offer 1 = %d: %s", rr.Code, rr.Body.String())
	}

	// Re-accepting a consumed offer is a 404.
	rr = do(t, h, http.MethodPost, "/api/offers/0/accept", `{"amount":"50"}`, bobTok)
	if rr.Code != http.StatusNotFound {
		t.Errorf("double accept = %d, want 404", rr.Code)
	}

	// Non-owner close is a 403.
	rr = do(t, h, http.MethodPost, "/api/markets/0/close", `{"long_won":true}`, bobTok)
	if rr.Code != http.StatusForbidden {
		t.Errorf("non-owner close = %d, want 403", rr.Code)
	}

	// Owner resolves long.
	rr = do(t, h, http.MethodPost, "/api/markets/0/close", `{"long_won":true}`, ownerTok)
	if rr.Code != http.StatusOK {
		t.Fatalf("close market = %d: %s", rr.Code, rr.Body.String())
	}

	// Double close is a 409.
	rr = do(t, h, http.MethodPost, "/api/markets/0/close", `{"long_won":false}`, ownerTok)
	if rr.Code != http.StatusConflict {
		t.Errorf("double close = %d, want 409", rr.Code)
	}

	// Alice's balance is 2×50 + 2×30 = 160.
	rr = do(t, h, http.MethodGet, "/api/wallet/balance", "", aliceTok)
	if rr.Code != http.StatusOK {
		t.Fatalf("balance = %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	data := body["data"].(map[string]interface{})
	if got := data["balance"]; got != "160" {
		t.Errorf("alice balance = %v, want \"160\"", got)
	}

	// Full withdrawal queues a pending transfer for 160.
	rr = do(t, h, http.MethodPost, "/api/wallet/withdraw", "", aliceTok)
	if rr.Code != http.StatusOK {
		t.Fatalf("withdraw = %d: %s", rr.Code, rr.Body.String())
	}
	body = decodeBody(t, rr)
	data = body["data"].(map[string]interface{})
	if data["amount"] != "160" || data["status"] != "pending" {
		t.Errorf("transfer = %v, want amount 160 / status pending", data)
	}

	// A second withdrawal finds nothing.
	rr = do(t, h, http.MethodPost, "/api/wallet/withdraw", "", aliceTok)
	if rr.Code != http.StatusNotFound {
		t.Errorf("second withdraw = %d, want 404", rr.Code)
	}

	// Bob lost: no balance.
	rr = do(t, h, http.MethodGet, "/api/wallet/balance", "", bobTok)
	body = decodeBody(t, rr)
	data = body["data"].(map[string]interface{})
	if got := data["balance"]; got != "0" {
		t.Errorf("bob balance = %v, want \"0\"", got)
	}
}

// ── CORS ──────────────────────────────────────────────────────────────────────

func TestCORSOptionsRequest(t *testing.T) {
	h := buildTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/markets", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent && rr.Code != http.StatusOK {
		t.Errorf("OPTIONS /api/markets = %d, want 204 or 200", rr.Code)
	}
	allow := rr.Header().Get("Access-Control-Allow-Methods")
	if !strings.Contains(allow, "POST") {
		t.Errorf("Access-Control-Allow-Methods missing POST, got %q", allow)
	}
}

func TestCORSAllowOrigin_Dev(t *testing.T) {
	h := buildTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if origin := rr.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("Dev CORS origin = %q, want *", origin)
	}
}
