package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify_RoundTrip(t *testing.T) {
	secret := []byte("secret")
	sig := Sign(secret, "order_1", "pay_1")
	require.Len(t, sig, 64) // hex sha256

	assert.True(t, VerifySignature(secret, "order_1", "pay_1", sig))
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	sig := Sign([]byte("secret"), "order_1", "pay_1")
	assert.False(t, VerifySignature([]byte("other"), "order_1", "pay_1", sig))
}

func TestVerifySignature_TamperedPayload(t *testing.T) {
	secret := []byte("secret")
	sig := Sign(secret, "order_1", "pay_1")

	assert.False(t, VerifySignature(secret, "order_2", "pay_1", sig))
	assert.False(t, VerifySignature(secret, "order_1", "pay_2", sig))
}

func TestSign_SeparatorShiftKeepsMACInput(t *testing.T) {
	// The canonicalization is delimiter-based, so shifting the separator
	// across the ref boundary yields the same MAC input. The orchestrator
	// refuses refs containing the separator for exactly this reason.
	secret := []byte("secret")
	assert.Equal(t, Sign(secret, "a|b", "c"), Sign(secret, "a", "b|c"))
}

func TestVerifySignature_NonHexInput(t *testing.T) {
	assert.False(t, VerifySignature([]byte("secret"), "order_1", "pay_1", "not-hex!"))
}

func TestVerifySignature_TruncatedSignature(t *testing.T) {
	secret := []byte("secret")
	sig := Sign(secret, "order_1", "pay_1")
	assert.False(t, VerifySignature(secret, "order_1", "pay_1", sig[:32]))
}
