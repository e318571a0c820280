package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func signPayload(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyPaymentSignature(t *testing.T) {
	const (
		orderID   = "order_ABC123"
		paymentID = "pay_XYZ789"
		secret    = "rzp_test_secret"
	)
	valid := signPayload(orderID, paymentID, secret)

	if !VerifyPaymentSignature(orderID, paymentID, valid, secret) {
		t.Fatal("valid signature rejected")
	}
	// Verification is pure: repeating it must give the same answer.
	if !VerifyPaymentSignature(orderID, paymentID, valid, secret) {
		t.Fatal("valid signature rejected on second check")
	}
}

func TestVerifyPaymentSignatureRejectsTampering(t *testing.T) {
	const (
		orderID   = "order_ABC123"
		paymentID = "pay_XYZ789"
		secret    = "rzp_test_secret"
	)
	valid := signPayload(orderID, paymentID, secret)

	// Flip one hex character.
	tampered := []byte(valid)
	if tampered[0] == 'a' {
		tampered[0] = 'b'
	} else {
		tampered[0] = 'a'
	}
	if VerifyPaymentSignature(orderID, paymentID, string(tampered), secret) {
		t.Fatal("tampered signature accepted")
	}

	if VerifyPaymentSignature("order_OTHER", paymentID, valid, secret) {
		t.Fatal("signature accepted for different order id")
	}
	if VerifyPaymentSignature(orderID, "pay_OTHER", valid, secret) {
		t.Fatal("signature accepted for different payment id")
	}
	if VerifyPaymentSignature(orderID, paymentID, valid, "wrong_secret") {
		t.Fatal("signature accepted under wrong secret")
	}
}

func TestVerifyPaymentSignatureEmptyInputs(t *testing.T) {
	if VerifyPaymentSignature("order_ABC123", "pay_XYZ789", "", "secret") {
		t.Fatal("empty signature accepted")
	}
	if VerifyPaymentSignature("order_ABC123", "pay_XYZ789", "deadbeef", "") {
		t.Fatal("empty secret accepted")
	}
}
