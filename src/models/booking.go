package models

import (
	"time"

	"hbs/src/types"
)

// Booking is one guest's claim on a property for [check_in, check_out).
// Rows are never hard-deleted; cancellation is a terminal status. All
// status writes go through the state machine in src/services.
type Booking struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	PropertyID uint      `gorm:"index" json:"property_id,omitempty"`
	GuestID    uint      `gorm:"index" json:"guest_id,omitempty"`
	ProviderID uint      `json:"provider_id,omitempty"`
	CheckIn    time.Time `json:"check_in,omitempty"`
	CheckOut   time.Time `json:"check_out,omitempty"`
	Guests     uint8     `json:"guests,omitempty"`

	BasePrice int64  `json:"base_price,omitempty"`
	Fees      int64  `json:"fees,omitempty"`
	Tax       int64  `json:"tax,omitempty"`
	Discount  int64  `json:"discount,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Currency  string `json:"currency,omitempty"`

	Status        types.BookingStatus `gorm:"default:'pending'" json:"status,omitempty"`
	PaymentStatus types.PaymentStatus `gorm:"default:'pending'" json:"payment_status,omitempty"`
	StatusReason  *string             `json:"status_reason,omitempty"`

	// Gateway and upstream-provider correlation.
	PaymentReference  *string `gorm:"index" json:"payment_reference,omitempty"`
	ExternalBookingID *string `json:"external_booking_id,omitempty"`

	Property Property `json:"property,omitempty"`
	Guest    Account  `gorm:"foreignKey:guest_id" json:"guest,omitempty"`
	Provider Account  `gorm:"foreignKey:provider_id" json:"-"`

	Blocks []AvailabilityBlock `gorm:"foreignKey:booking_id" json:"blocks,omitempty"`

	types.Timestamps
}

// HoldsInventory reports whether the booking's status currently counts
// toward availability conflicts.
func (b *Booking) HoldsInventory() bool {
	return b.Status == types.BOOKING_CONFIRMED || b.Status == types.BOOKING_CHECKED_IN
}
