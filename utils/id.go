package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateReceipt returns a gateway receipt token. Razorpay caps receipts at 40 chars.
func GenerateReceipt() string {
	return "receipt_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:24]
}
