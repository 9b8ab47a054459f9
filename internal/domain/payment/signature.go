package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Sign computes the hex HMAC-SHA256 of "orderRef|paymentRef" with the shared
// webhook secret. This is the same canonicalization the gateway uses when
// signing callbacks. Gateway references never contain the separator; the
// orchestrator rejects any callback whose refs do before verifying.
func Sign(secret []byte, orderRef, paymentRef string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(orderRef))
	mac.Write([]byte("|"))
	mac.Write([]byte(paymentRef))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the expected callback signature and compares it
// in constant time. A forged or tampered callback must never verify, and the
// comparison must not leak how much of the signature matched.
func VerifySignature(secret []byte, orderRef, paymentRef, signature string) bool {
	given, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(orderRef))
	mac.Write([]byte("|"))
	mac.Write([]byte(paymentRef))
	expected := mac.Sum(nil)
	return subtle.ConstantTimeCompare(expected, given) == 1
}
