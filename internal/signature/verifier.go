// Package signature checks the HMAC the payment gateway attaches to a successful checkout.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
func Sign(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether candidate is the gateway signature for the order/payment pair.
// The comparison is constant-time. An empty secret never verifies.
func Verify(orderID, paymentID, candidate, secret string) bool {
	if secret == "" {
		return false
	}
	expected := Sign(orderID, paymentID, secret)
	return hmac.Equal([]byte(expected), []byte(candidate))
}

// Verifier binds the gateway secret so callers do not pass it around.
type Verifier struct {
	secret string
}

// NewVerifier creates a Verifier for secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// Configured reports whether a secret is present.
func (v *Verifier) Configured() bool {
	return v.secret != ""
}

// Verify checks candidate against the bound secret.
func (v *Verifier) Verify(orderID, paymentID, candidate string) bool {
	return Verify(orderID, paymentID, candidate, v.secret)
}
