package points

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func setupHandlerApp(t *testing.T) (*fiber.App, *MemoryStore) {
	t.Helper()
	svc, store, _ := newTestService(t)
	app := fiber.New()
	h := NewHandler(svc)
	app.Post("/points/transactions", h.Transact)
	app.Get("/members/:id/wallets", h.Wallets)
	return app, store
}

func doTransaction(t *testing.T, app *fiber.App, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/points/transactions", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()

	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("invalid json %q: %v", payload, err)
	}
	return resp.StatusCode, decoded
}

func TestTransactRejectsUnknownEventType(t *testing.T) {
	app, _ := setupHandlerApp(t)

	status, body := doTransaction(t, app, `{"member_id":"m1","event_type":"teleport","amount":10}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if body["code"] != "invalid_event_code" {
		t.Fatalf("expected invalid_event_code, got %v", body["code"])
	}
}

func TestTransactRejectsMalformedBody(t *testing.T) {
	app, _ := setupHandlerApp(t)

	cases := []struct {
		name string
		body string
	}{
		{"broken json", `{"member_id":`},
		{"missing member", `{"event_type":"grant","amount":10}`},
		{"zero amount", `{"member_id":"m1","event_type":"grant","amount":0}`},
		{"negative amount", `{"member_id":"m1","event_type":"spend","amount":-5}`},
		{"bad expiry date", `{"member_id":"m1","event_type":"grant","amount":10,"expires_on":"soon"}`},
		{"bad event time", `{"member_id":"m1","event_type":"grant","amount":10,"event_at":"yesterday"}`},
		{"grant reversal without wallet", `{"member_id":"m1","event_type":"grant_reversal","amount":10}`},
		{"spend reversal without order", `{"member_id":"m1","event_type":"spend_reversal","amount":10}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := doTransaction(t, app, tc.body)
			if status != fiber.StatusBadRequest {
				t.Fatalf("expected 400, got %d", status)
			}
			if body["code"] != "malformed_request" {
				t.Fatalf("expected malformed_request, got %v", body["code"])
			}
		})
	}
}

func TestTransactGrantHappyPath(t *testing.T) {
	app, store := setupHandlerApp(t)
	registerMember(t, store, "m1")

	status, body := doTransaction(t, app, `{"member_id":"m1","event_type":"grant","amount":250,"expires_on":"2026-09-01"}`)
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", status, body)
	}
	if body["member_id"] != "m1" || body["amount"] != float64(250) {
		t.Fatalf("unexpected response body %v", body)
	}
	if _, ok := body["wallet_id"].(string); !ok {
		t.Fatalf("expected wallet_id in response, got %v", body)
	}
	if got := memberBalance(t, store, "m1"); got != 250 {
		t.Fatalf("balance: expected 250, got %d", got)
	}
}

func TestTransactUnknownMemberReturns404(t *testing.T) {
	app, _ := setupHandlerApp(t)

	status, body := doTransaction(t, app, `{"member_id":"ghost","event_type":"grant","amount":10}`)
	if status != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
	if body["code"] != "not_found" {
		t.Fatalf("expected not_found, got %v", body["code"])
	}
}

func TestTransactSpendAndReversalFlow(t *testing.T) {
	app, store := setupHandlerApp(t)
	registerMember(t, store, "m1")
	seedLot(t, store, "w1", "m1", 100, 0, 30)
	SeedBalance(store, "m1", 100)

	status, body := doTransaction(t, app, `{"member_id":"m1","event_type":"spend","amount":60}`)
	if status != fiber.StatusCreated {
		t.Fatalf("spend: expected 201, got %d (%v)", status, body)
	}
	orderRef, ok := body["order_ref"].(string)
	if !ok || orderRef == "" {
		t.Fatalf("expected order_ref in spend response, got %v", body)
	}

	status, body = doTransaction(t, app, fmt.Sprintf(`{"member_id":"m1","event_type":"spend_reversal","amount":60,"order_ref":%q}`, orderRef))
	if status != fiber.StatusCreated {
		t.Fatalf("reversal: expected 201, got %d (%v)", status, body)
	}
	if got := memberBalance(t, store, "m1"); got != 100 {
		t.Fatalf("balance: expected 100, got %d", got)
	}

	// Reversing the same order again exceeds the remaining amount.
	status, body = doTransaction(t, app, fmt.Sprintf(`{"member_id":"m1","event_type":"spend_reversal","amount":60,"order_ref":%q}`, orderRef))
	if status != fiber.StatusConflict {
		t.Fatalf("over-reversal: expected 409, got %d (%v)", status, body)
	}
	if body["code"] != "over_reversal" {
		t.Fatalf("expected over_reversal, got %v", body["code"])
	}
}

func TestTransactSpendInsufficientBalance(t *testing.T) {
	app, store := setupHandlerApp(t)
	registerMember(t, store, "m1")

	status, body := doTransaction(t, app, `{"member_id":"m1","event_type":"spend","amount":60}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if body["code"] != "insufficient_balance" {
		t.Fatalf("expected insufficient_balance, got %v", body["code"])
	}
}

func TestWalletsViewDerivesStatus(t *testing.T) {
	app, store := setupHandlerApp(t)
	registerMember(t, store, "m1")
	seedLot(t, store, "live", "m1", 100, 20, 3650)
	seedLot(t, store, "lapsed", "m1", 50, 0, -2)

	req := httptest.NewRequest(fiber.MethodGet, "/members/m1/wallets", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var decoded struct {
		Wallets []struct {
			WalletID string `json:"wallet_id"`
			Issued   int64  `json:"issued"`
			Used     int64  `json:"used"`
			Status   string `json:"status"`
		} `json:"wallets"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(decoded.Wallets) != 2 {
		t.Fatalf("expected 2 wallets, got %d", len(decoded.Wallets))
	}
	byID := map[string]string{}
	for _, w := range decoded.Wallets {
		byID[w.WalletID] = w.Status
	}
	if byID["live"] != "normal" {
		t.Fatalf("live wallet status: expected normal, got %s", byID["live"])
	}
	if byID["lapsed"] != "expired" {
		t.Fatalf("lapsed wallet status: expected expired, got %s", byID["lapsed"])
	}
}

func TestWalletsUnknownMemberReturns404(t *testing.T) {
	app, _ := setupHandlerApp(t)

	req := httptest.NewRequest(fiber.MethodGet, "/members/ghost/wallets", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
