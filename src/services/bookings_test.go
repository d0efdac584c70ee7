package services

import (
	"testing"

	"hbs/src/models"
	"hbs/src/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// A confirm working off a snapshot read must fail once the row moved on:
// the guarded status update matches zero rows and the transaction, night
// blocks included, rolls back.
func TestConfirmFailsWhenBookingChangesUnderneath(t *testing.T) {
	gdb := newTestDB(t)
	_, _, bookings, _ := newServices(t, gdb, &fakeGateway{}, PaymentsConfig{})
	host := seedAccount(t, gdb, "host", 0)
	guest := seedAccount(t, gdb, "guest", 0)
	property := seedProperty(t, gdb, host.ID, false)
	booking := seedBooking(t, gdb, property, guest.ID, "2025-06-01", "2025-06-05")

	stale, err := bookings.Get(booking.ID)
	assert.NoError(t, err)

	_, err = bookings.Cancel(booking.ID, "guest", "changed plans")
	assert.NoError(t, err)

	err = gdb.Transaction(func(tx *gorm.DB) error {
		return bookings.ConfirmTx(tx, stale, "host")
	})
	assert.Equal(t, types.KindConflict, types.Kind(err))

	var fresh models.Booking
	assert.NoError(t, gdb.First(&fresh, booking.ID).Error)
	assert.Equal(t, types.BOOKING_CANCELLED, fresh.Status)

	var blocks int64
	gdb.Model(&models.AvailabilityBlock{}).Where("booking_id = ?", booking.ID).Count(&blocks)
	assert.Zero(t, blocks, "a rolled-back confirm leaves no orphaned nights")
}

func TestCreateBookingPricesTheStay(t *testing.T) {
	gdb := newTestDB(t)
	_, _, bookings, _ := newServices(t, gdb, &fakeGateway{}, PaymentsConfig{})
	host := seedAccount(t, gdb, "host", 0)
	guest := seedAccount(t, gdb, "guest", 0)
	property := seedProperty(t, gdb, host.ID, false)

	booking, err := bookings.Create(&models.Booking{
		PropertyID: property.ID,
		GuestID:    guest.ID,
		CheckIn:    date(t, "2025-06-01"),
		CheckOut:   date(t, "2025-06-05"),
		Guests:     2,
		Fees:       1500,
		Tax:        500,
	})
	assert.NoError(t, err)
	assert.Equal(t, types.BOOKING_PENDING, booking.Status)
	assert.EqualValues(t, 40000, booking.BasePrice)
	assert.EqualValues(t, 42000, booking.Total)
	assert.Equal(t, property.ProviderID, booking.ProviderID)
	assert.Equal(t, "NGN", booking.Currency)

	// No inventory is held until confirmation.
	var count int64
	gdb.Model(&models.AvailabilityBlock{}).Where("booking_id = ?", booking.ID).Count(&count)
	assert.Zero(t, count)
}

func TestCreateBookingValidatesParties(t *testing.T) {
	gdb := newTestDB(t)
	_, _, bookings, _ := newServices(t, gdb, &fakeGateway{}, PaymentsConfig{})
	host := seedAccount(t, gdb, "host", 0)
	guest := seedAccount(t, gdb, "guest", 0)
	property := seedProperty(t, gdb, host.ID, false)

	_, err := bookings.Create(&models.Booking{
		PropertyID: property.ID + 999,
		GuestID:    guest.ID,
		CheckIn:    date(t, "2025-06-01"),
		CheckOut:   date(t, "2025-06-02"),
	})
	assert.Equal(t, types.KindNotFound, types.Kind(err))

	assert.NoError(t, gdb.Model(&models.Property{}).Where("id = ?", property.ID).Update("status", types.PROPERTY_UNLISTED).Error)
	_, err = bookings.Create(&models.Booking{
		PropertyID: property.ID,
		GuestID:    guest.ID,
		CheckIn:    date(t, "2025-06-01"),
		CheckOut:   date(t, "2025-06-02"),
	})
	assert.Equal(t, types.KindValidation, types.Kind(err))
	assert.NoError(t, gdb.Model(&models.Property{}).Where("id = ?", property.ID).Update("status", types.PROPERTY_LISTED).Error)

	assert.NoError(t, gdb.Model(&models.Account{}).Where("id = ?", guest.ID).Update("status", types.ACCOUNT_DEACTIVATED).Error)
	_, err = bookings.Create(&models.Booking{
		PropertyID: property.ID,
		GuestID:    guest.ID,
		CheckIn:    date(t, "2025-06-01"),
		CheckOut:   date(t, "2025-06-02"),
	})
	assert.Equal(t, types.KindForbidden, types.Kind(err))

	_, err = bookings.Create(&models.Booking{
		PropertyID: property.ID,
		GuestID:    host.ID,
		CheckIn:    date(t, "2025-06-02"),
		CheckOut:   date(t, "2025-06-02"),
	})
	assert.Equal(t, types.KindValidation, types.Kind(err))
}

func TestConfirmHoldsInventoryExactlyOnce(t *testing.T) {
	gdb := newTestDB(t)
	_, _, bookings, _ := newServices(t, gdb, &fakeGateway{}, PaymentsConfig{})
	host := seedAccount(t, gdb, "host", 0)
	guest := seedAccount(t, gdb, "guest", 0)
	property := seedProperty(t, gdb, host.ID, false)

	first := seedBooking(t, gdb, property, guest.ID, "2025-06-01", "2025-06-05")
	second := seedBooking(t, gdb, property, guest.ID, "2025-06-04", "2025-06-07")

	confirmed, err := bookings.Confirm(first.ID, "host")
	assert.NoError(t, err)
	assert.Equal(t, types.BOOKING_CONFIRMED, confirmed.Status)

	var count int64
	gdb.Model(&models.AvailabilityBlock{}).Where("booking_id = ?", first.ID).Count(&count)
	assert.EqualValues(t, 4, count)

	// Overlapping confirmation loses and stays pending, with no partial
	// blocks left behind.
	_, err = bookings.Confirm(second.ID, "host")
	assert.Equal(t, types.KindConflict, types.Kind(err))
	var fresh models.Booking
	assert.NoError(t, gdb.First(&fresh, second.ID).Error)
	assert.Equal(t, types.BOOKING_PENDING, fresh.Status)
	gdb.Model(&models.AvailabilityBlock{}).Where("booking_id = ?", second.ID).Count(&count)
	assert.Zero(t, count)

	// Confirming twice is a conflict, not a double hold.
	_, err = bookings.Confirm(first.ID, "host")
	assert.Equal(t, types.KindConflict, types.Kind(err))
}

func TestStateMachineRejectsIllegalMoves(t *testing.T) {
	gdb := newTestDB(t)
	_, _, bookings, _ := newServices(t, gdb, &fakeGateway{}, PaymentsConfig{})
	host := seedAccount(t, gdb, "host", 0)
	guest := seedAccount(t, gdb, "guest", 0)
	property := seedProperty(t, gdb, host.ID, false)
	booking := seedBooking(t, gdb, property, guest.ID, "2025-06-01", "2025-06-03")

	// pending -> checked_in is not a thing.
	_, err := bookings.CheckIn(booking.ID)
	assert.Equal(t, types.KindConflict, types.Kind(err))

	_, err = bookings.Confirm(booking.ID, "host")
	assert.NoError(t, err)
	_, err = bookings.CheckIn(booking.ID)
	assert.NoError(t, err)

	// checked_in -> cancelled is forbidden.
	_, err = bookings.Cancel(booking.ID, "guest", "changed my mind")
	assert.Equal(t, types.KindConflict, types.Kind(err))

	completed, err := bookings.Complete(booking.ID)
	assert.NoError(t, err)
	assert.Equal(t, types.BOOKING_COMPLETED, completed.Status)

	// Terminal states accept nothing further.
	_, err = bookings.Confirm(booking.ID, "host")
	assert.Equal(t, types.KindConflict, types.Kind(err))
	_, err = bookings.Cancel(booking.ID, "guest", "late")
	assert.Equal(t, types.KindConflict, types.Kind(err))
}

func TestRejectPendingBooking(t *testing.T) {
	gdb := newTestDB(t)
	_, _, bookings, _ := newServices(t, gdb, &fakeGateway{}, PaymentsConfig{})
	host := seedAccount(t, gdb, "host", 0)
	guest := seedAccount(t, gdb, "guest", 0)
	property := seedProperty(t, gdb, host.ID, false)
	booking := seedBooking(t, gdb, property, guest.ID, "2025-06-01", "2025-06-03")

	rejected, err := bookings.Reject(booking.ID, "host", "dates blocked for repairs")
	assert.NoError(t, err)
	assert.Equal(t, types.BOOKING_REJECTED, rejected.Status)
	assert.Equal(t, "dates blocked for repairs", *rejected.StatusReason)

	_, err = bookings.Reject(booking.ID, "host", "again")
	assert.Equal(t, types.KindConflict, types.Kind(err))
}

func TestCancelReleasesNightsAndRefunds(t *testing.T) {
	gdb := newTestDB(t)
	_, wallets, bookings, _ := newServices(t, gdb, &fakeGateway{}, PaymentsConfig{})
	host := seedAccount(t, gdb, "host", 0)
	guest := seedAccount(t, gdb, "guest", 0)
	property := seedProperty(t, gdb, host.ID, false)
	booking := seedBooking(t, gdb, property, guest.ID, "2025-06-01", "2025-06-05")

	_, err := bookings.Confirm(booking.ID, "host")
	assert.NoError(t, err)

	// Simulate a settled charge.
	payment := models.Payment{
		BookingID: &booking.ID,
		Amount:    booking.Total,
		Currency:  booking.Currency,
		Reference: uuid.NewString(),
		Status:    types.PAYMENT_COMPLETED,
	}
	assert.NoError(t, gdb.Create(&payment).Error)
	assert.NoError(t, gdb.Model(&models.Booking{}).Where("id = ?", booking.ID).Update("payment_status", types.PAYMENT_COMPLETED).Error)

	cancelled, err := bookings.Cancel(booking.ID, "guest", "plans changed")
	assert.NoError(t, err)
	assert.Equal(t, types.BOOKING_CANCELLED, cancelled.Status)

	var count int64
	gdb.Model(&models.AvailabilityBlock{}).Where("booking_id = ?", booking.ID).Count(&count)
	assert.Zero(t, count, "cancellation must release held nights")

	wallet, err := wallets.Balance(guest.ID)
	assert.NoError(t, err)
	assert.Equal(t, booking.Total, wallet.Balance)

	var refreshed models.Payment
	assert.NoError(t, gdb.First(&refreshed, "id = ?", payment.ID).Error)
	assert.Equal(t, types.PAYMENT_REFUNDED, refreshed.Status)
}

func TestRefundFailureDoesNotBlockCancellation(t *testing.T) {
	gdb := newTestDB(t)
	_, _, bookings, _ := newServices(t, gdb, &fakeGateway{}, PaymentsConfig{})
	host := seedAccount(t, gdb, "host", 0)
	guest := seedAccount(t, gdb, "guest", 0)
	property := seedProperty(t, gdb, host.ID, false)
	booking := seedBooking(t, gdb, property, guest.ID, "2025-06-01", "2025-06-05")

	_, err := bookings.Confirm(booking.ID, "host")
	assert.NoError(t, err)

	// Paid booking with no payment row: the refund step has nothing to
	// work with and must fail without un-cancelling.
	assert.NoError(t, gdb.Model(&models.Booking{}).Where("id = ?", booking.ID).Update("payment_status", types.PAYMENT_COMPLETED).Error)

	cancelled, err := bookings.Cancel(booking.ID, "guest", "plans changed")
	assert.NoError(t, err)
	assert.Equal(t, types.BOOKING_CANCELLED, cancelled.Status)

	var fresh models.Booking
	assert.NoError(t, gdb.First(&fresh, booking.ID).Error)
	assert.Equal(t, types.BOOKING_CANCELLED, fresh.Status)
	// Payment status stays completed for the follow-up to reconcile.
	assert.Equal(t, types.PAYMENT_COMPLETED, fresh.PaymentStatus)
}
