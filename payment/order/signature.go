package order

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns the hex encoded HMAC-SHA256 of message.
func Sign(secret string, message []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// PaymentSignature is the signature the checkout returns for a completed payment.
func PaymentSignature(secret, orderID, paymentID string) string {
	return Sign(secret, []byte(orderID+"|"+paymentID))
}

func VerifyPaymentSignature(secret, orderID, paymentID, signature string) bool {
	return equal(PaymentSignature(secret, orderID, paymentID), signature)
}

// VerifyWebhookSignature checks the signature over the raw request body, byte for byte
// as received.
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	return equal(Sign(secret, body), signature)
}

func equal(expected, got string) bool {
	return hmac.Equal([]byte(expected), []byte(got))
}
