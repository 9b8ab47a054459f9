//go:build integration

package integration

import (
	"net/http"
	"testing"
)

// The happy-path gateway flow needs a live gateway account to create the
// intent, so these tests only exercise the verification boundary: every
// callback below must be rejected without touching any order.

func TestPaymentCallback_ForgedSignature(t *testing.T) {
	resp := doPost(t, "/api/payments/callback", callbackRequest{
		GatewayOrderID:   "order_Forged",
		GatewayPaymentID: "pay_Forged",
		Signature:        "0000000000000000000000000000000000000000000000000000000000000000",
	}, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decodeJSON[errorResponse](t, resp)
	if body.Message != "verification failed" {
		t.Errorf("message: got %q", body.Message)
	}
}

func TestPaymentCallback_SignedUnknownReference(t *testing.T) {
	// A correctly signed callback for a reference we never issued must
	// still fail: there is nothing to credit.
	sig := signCallback("order_Unknown", "pay_Unknown")
	resp := doPost(t, "/api/payments/callback", callbackRequest{
		GatewayOrderID:   "order_Unknown",
		GatewayPaymentID: "pay_Unknown",
		Signature:        sig,
	}, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPaymentCallback_MissingFields(t *testing.T) {
	resp := doPost(t, "/api/payments/callback", callbackRequest{}, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
