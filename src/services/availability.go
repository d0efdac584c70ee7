package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"hbs/src/models"
	"hbs/src/types"

	"gorm.io/gorm"
)

// Availability enforces non-overlap of stay ranges for one property. A stay
// [check_in, check_out) decomposes into per-night block rows; the unique
// index on (property_id, night) makes the database the arbiter when two
// holds race, so the loser fails with a conflict instead of overwriting.
type Availability struct {
	db *gorm.DB
}

func NewAvailability(db *gorm.DB) *Availability {
	return &Availability{db: db}
}

type DateConflict struct {
	Night     time.Time `json:"night"`
	BookingID *uint     `json:"booking_id,omitempty"`
}

// DateOnly normalizes to a UTC calendar date so that nights compare equal
// regardless of the zone the caller parsed them in.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Nights expands [checkIn, checkOut) into its blocked nights. Checkout day
// is excluded, so back-to-back stays sharing a turnover date do not clash.
func Nights(checkIn, checkOut time.Time) []time.Time {
	nights := []time.Time{}
	for d := DateOnly(checkIn); d.Before(DateOnly(checkOut)); d = d.AddDate(0, 0, 1) {
		nights = append(nights, d)
	}
	return nights
}

// CheckRange reports whether [checkIn, checkOut) is free of blocked nights.
// This is the advisory pre-booking check; the authoritative one is the
// insert inside Hold. When the property policy blocks on pending bookings,
// overlapping pending stays count as conflicts too.
func (a *Availability) CheckRange(tx *gorm.DB, property *models.Property, checkIn, checkOut time.Time) (bool, []DateConflict, error) {
	if tx == nil {
		tx = a.db
	}
	nights := Nights(checkIn, checkOut)
	if len(nights) == 0 {
		return false, nil, types.NewError(types.KindValidation, "check_out must be after check_in")
	}
	var blocks []models.AvailabilityBlock
	err := tx.
		Model(&models.AvailabilityBlock{}).
		Where("property_id = ?", property.ID).
		Where("night >= ? AND night < ?", DateOnly(checkIn), DateOnly(checkOut)).
		Order("night asc").
		Find(&blocks).
		Error
	if err != nil {
		return false, nil, err
	}
	conflicts := []DateConflict{}
	for _, b := range blocks {
		conflicts = append(conflicts, DateConflict{Night: b.Night, BookingID: b.BookingID})
	}
	if property.BlockOnPending {
		var pending []models.Booking
		err := tx.
			Model(&models.Booking{}).
			Where("property_id = ? AND status = ?", property.ID, types.BOOKING_PENDING).
			Where("check_in < ? AND ? < check_out", DateOnly(checkOut), DateOnly(checkIn)).
			Find(&pending).
			Error
		if err != nil {
			return false, nil, err
		}
		for _, p := range pending {
			id := p.ID
			conflicts = append(conflicts, DateConflict{Night: DateOnly(p.CheckIn), BookingID: &id})
		}
	}
	return len(conflicts) == 0, conflicts, nil
}

// Hold blocks every night of the booking's stay inside the caller's
// transaction. It must run in the same transaction as the status write that
// moves the booking into a holding state.
func (a *Availability) Hold(tx *gorm.DB, booking *models.Booking) error {
	nights := Nights(booking.CheckIn, booking.CheckOut)
	if len(nights) == 0 {
		return types.NewError(types.KindValidation, "booking has an empty stay range")
	}
	bookingID := booking.ID
	for _, night := range nights {
		block := models.AvailabilityBlock{
			PropertyID: booking.PropertyID,
			Night:      night,
			BookingID:  &bookingID,
			Reason:     "booking",
		}
		if err := tx.Create(&block).Error; err != nil {
			if isDuplicateKey(err) {
				return types.NewError(types.KindConflict,
					fmt.Sprintf("property %d is not available on %s", booking.PropertyID, night.Format("2006-01-02")))
			}
			return err
		}
	}
	return nil
}

// Release drops the booking's blocked nights. Releasing a hold that does
// not exist is a no-op success.
func (a *Availability) Release(tx *gorm.DB, bookingID uint) error {
	if tx == nil {
		tx = a.db
	}
	return tx.
		Where("booking_id = ?", bookingID).
		Delete(&models.AvailabilityBlock{}).
		Error
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
