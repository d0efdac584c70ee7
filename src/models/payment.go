package models

import (
	"time"

	"hbs/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payment is one attempt to move money through the gateway. Reference is
// the gateway idempotency key and the webhook de-duplication key; BookingID
// stays nil in the payment-first flow until materialization.
type Payment struct {
	ID        uuid.UUID `gorm:"primarykey;type:uuid" json:"id"`
	BookingID *uint     `gorm:"index" json:"booking_id,omitempty"`
	Amount    int64     `json:"amount,omitempty"`
	Currency  string    `json:"currency,omitempty"`
	Reference string    `gorm:"uniqueIndex" json:"reference,omitempty"`

	AccessCode       *string `json:"access_code,omitempty"`
	AuthorizationURL *string `json:"authorization_url,omitempty"`
	Channel          *string `json:"channel,omitempty"`

	Status types.PaymentStatus `gorm:"default:'pending'" json:"status,omitempty"`

	// Metadata may carry the entire pending booking for the payment-first
	// flow, keyed under "booking" with a schema_version.
	Metadata *types.JSONB `json:"metadata,omitempty"`

	// ReviewRequired marks charges that settled at the gateway but could
	// not be applied locally; the operational queue picks these up and
	// stamps ReviewQueuedAt when the message lands.
	ReviewRequired bool       `json:"review_required"`
	ReviewReason   *string    `json:"review_reason,omitempty"`
	ReviewQueuedAt *time.Time `json:"review_queued_at,omitempty"`

	Booking *Booking `json:"-"`

	types.Timestamps
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *Payment) Terminal() bool {
	switch p.Status {
	case types.PAYMENT_COMPLETED, types.PAYMENT_FAILED, types.PAYMENT_CANCELLED, types.PAYMENT_REFUNDED:
		return true
	}
	return false
}
