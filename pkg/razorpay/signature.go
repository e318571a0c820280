package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifyPaymentSignature checks the signature the gateway hands the browser
// after a successful payment: HMAC-SHA256 over "<orderID>|<paymentID>" keyed
// with the account's key secret, hex encoded. The comparison is constant time.
// A mismatch returns false, it is not an error; callers reject empty inputs
// before getting here.
func VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
