package handler

import (
	"encoding/json"
	"net/http"
)

type callbackRequest struct {
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"signature"`
}

// paymentCallback receives the gateway's asynchronous settlement callback.
// There is no API key on this route: the HMAC signature is the
// authentication, and the orchestrator never trusts the caller's asserted
// success. Failures are reported opaquely.
func (h *Handler) paymentCallback(w http.ResponseWriter, r *http.Request) {
	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	o, err := h.payments.VerifyCallback(r.Context(),
		req.GatewayOrderID, req.GatewayPaymentID, req.Signature)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
