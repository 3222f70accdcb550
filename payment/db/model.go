package db

import (
	"time"

	"gorm.io/datatypes"
)

type Status string

// Order status. CREATED is set only at creation, CAPTURED is terminal.
const (
	StatusCreated  Status = "CREATED"
	StatusSuccess  Status = "SUCCESS"
	StatusFailed   Status = "FAILED"
	StatusCaptured Status = "CAPTURED"
)

type PaymentOrder struct {
	OrderID       string            `gorm:"primaryKey;size:64" json:"order_id"`      // gateway order id
	UserID        string            `gorm:"size:128;index" json:"user_id"`           // principal that created the order
	Amount        int64             `gorm:"not null" json:"amount"`                  // minor units (paise)
	Currency      string            `gorm:"size:3;not null" json:"currency"`         // ISO 4217
	Receipt       string            `gorm:"size:64" json:"receipt"`                  // merchant reference
	Notes         datatypes.JSONMap `json:"notes,omitempty"`                         // notes sent to the gateway
	Status        Status            `gorm:"size:16;not null;index" json:"status"`    // CREATED, SUCCESS, FAILED, CAPTURED
	PaymentID     string            `gorm:"size:64" json:"payment_id,omitempty"`     // set by verification or capture
	Signature     string            `gorm:"size:128" json:"-"`                       // client supplied checkout signature
	FailureReason string            `gorm:"size:255" json:"failure_reason,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	VerifiedAt    *time.Time        `json:"verified_at,omitempty"`
	CapturedAt    *time.Time        `json:"captured_at,omitempty"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// WebhookEvent is the delivery journal, one row per gateway event id.
type WebhookEvent struct {
	ID          uint           `gorm:"primaryKey"`
	EventID     string         `gorm:"size:64;not null;uniqueIndex"`
	Event       string         `gorm:"size:64;index"`
	OrderID     string         `gorm:"size:64;index"`
	Payload     datatypes.JSON `gorm:"not null"`
	ReceivedAt  time.Time      `gorm:"not null"`
	ProcessedAt *time.Time
}
