package models

import "time"

// AvailabilityBlock withholds one night of one property. A booking's stay is
// decomposed into per-night rows; the unique index on (property_id, night)
// is what makes two concurrent holds over overlapping ranges mutually
// exclusive at the store level. Rows delete for real on release: a
// soft-deleted night would keep tripping the unique index.
type AvailabilityBlock struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	PropertyID uint      `gorm:"uniqueIndex:idx_property_night" json:"property_id,omitempty"`
	Night      time.Time `gorm:"uniqueIndex:idx_property_night" json:"night,omitempty"`
	BookingID  *uint     `gorm:"index" json:"booking_id,omitempty"`
	Reason     string    `json:"reason,omitempty"`

	Property Property `json:"-"`
	Booking  *Booking `json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
}
