package wallet

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// GatewayVerifier is the named seam for a real payment gateway integration
// (OTP/SMS-backed deposit confirmation, withdrawal payout dispatch). Wiring
// an actual provider is out of scope here; ConfirmDeposit uses the HMAC
// Receipt.Verify path directly rather than an implementation of this
// interface, but the interface documents where one would plug in.
type GatewayVerifier interface {
	VerifyReceipt(ctx context.Context, receipt Receipt) (bool, error)
}

// Receipt is the payment-gateway callback payload for a deposit
// confirmation: an order id, the gateway's payment id, and an HMAC-SHA256
// signature over "orderId|paymentId" keyed by the shared gateway secret.
//
// Built directly on crypto/hmac and crypto/subtle rather than a signing
// library: the pack carries no webhook-signature-verification dependency to
// ground one on (see DESIGN.md), and stdlib constant-time comparison is the
// idiomatic way to avoid a timing side-channel here regardless.
type Receipt struct {
	OrderID   string
	PaymentID string
	Signature string // hex-encoded HMAC-SHA256
}

// Verify reports whether Signature is a valid HMAC-SHA256 of
// "orderId|paymentId" under secret, using a constant-time comparison.
func (r Receipt) Verify(secret string) bool {
	if r.OrderID == "" || r.PaymentID == "" || r.Signature == "" {
		return false
	}
	want := sign(r.OrderID, r.PaymentID, secret)
	got, err := hex.DecodeString(r.Signature)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(want, got) == 1
}

// idempotencyKey is the receipt's dedup key stored on the ledger entry: the
// unique partial index on ledger_entries.receipt (status = COMPLETED)
// rejects a second confirmation of the same gateway payment.
func (r Receipt) idempotencyKey() string {
	return fmt.Sprintf("%s:%s", r.OrderID, r.PaymentID)
}

func sign(orderID, paymentID, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID))
	mac.Write([]byte("|"))
	mac.Write([]byte(paymentID))
	return mac.Sum(nil)
}

// Sign produces the hex-encoded signature a test gateway stub would send;
// exported for use in tests that exercise ConfirmDeposit end to end.
func Sign(orderID, paymentID, secret string) string {
	return hex.EncodeToString(sign(orderID, paymentID, secret))
}
