package services

import (
	"errors"
	"fmt"
	"log"

	"hbs/src/lib"
	"hbs/src/models"
	"hbs/src/types"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotifyFunc delivers a domain event to a recipient. Implementations must
// be safe to call after commit; delivery failures are their problem.
type NotifyFunc func(event string, recipient string, data types.JSONB)

// Bookings owns the reservation lifecycle. Every status write funnels
// through transition() so illegal moves fail uniformly with a conflict,
// and inventory holds always change in the same transaction as the status.
type Bookings struct {
	db           *gorm.DB
	availability *Availability
	wallets      *Wallets
	notify       NotifyFunc
	hotel        *lib.HotelAPIClient
}

type BookingsConfig struct {
	Notify NotifyFunc
	Hotel  *lib.HotelAPIClient
}

func NewBookings(db *gorm.DB, availability *Availability, wallets *Wallets, cfg BookingsConfig) *Bookings {
	return &Bookings{
		db:           db,
		availability: availability,
		wallets:      wallets,
		notify:       cfg.Notify,
		hotel:        cfg.Hotel,
	}
}

// legalTransitions is the full state machine. Cancellation is reachable
// from pending (abandoned before payment) and confirmed, never from
// checked_in or any terminal state.
var legalTransitions = map[types.BookingStatus][]types.BookingStatus{
	types.BOOKING_PENDING:    {types.BOOKING_CONFIRMED, types.BOOKING_REJECTED, types.BOOKING_CANCELLED},
	types.BOOKING_CONFIRMED:  {types.BOOKING_CHECKED_IN, types.BOOKING_CANCELLED},
	types.BOOKING_CHECKED_IN: {types.BOOKING_COMPLETED},
}

func transitionAllowed(from, to types.BookingStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Create records a pending booking after validating the parties and
// running the advisory availability check. The range is not held yet;
// Confirm takes the authoritative hold.
func (s *Bookings) Create(booking *models.Booking) (*models.Booking, error) {
	property, guest, err := s.validateParties(s.db, booking.PropertyID, booking.GuestID)
	if err != nil {
		return nil, err
	}
	nights := Nights(booking.CheckIn, booking.CheckOut)
	if len(nights) == 0 {
		return nil, types.NewError(types.KindValidation, "check_out must be after check_in")
	}
	ok, conflicts, err := s.availability.CheckRange(nil, property, booking.CheckIn, booking.CheckOut)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.NewError(types.KindConflict,
			fmt.Sprintf("property %d is not available on %d of the requested nights", property.ID, len(conflicts)))
	}
	booking.CheckIn = DateOnly(booking.CheckIn)
	booking.CheckOut = DateOnly(booking.CheckOut)
	booking.ProviderID = property.ProviderID
	booking.Currency = property.Currency
	booking.BasePrice = property.NightlyPrice * int64(len(nights))
	booking.Total = booking.BasePrice + booking.Fees + booking.Tax - booking.Discount
	if booking.Total < 0 {
		return nil, types.NewError(types.KindValidation, "discount exceeds the booking total")
	}
	booking.Status = types.BOOKING_PENDING
	booking.PaymentStatus = types.PAYMENT_PENDING
	if err := s.db.Create(booking).Error; err != nil {
		return nil, err
	}
	s.fireNotify("booking.created", guest.Email, types.JSONB{
		"booking_id": booking.ID,
		"property":   property.Title,
		"check_in":   booking.CheckIn,
		"check_out":  booking.CheckOut,
	})
	return booking, nil
}

// Confirm moves a pending booking to confirmed and takes the inventory
// hold in the same transaction. A date conflict surfaces as a conflict
// error and the booking stays pending.
func (s *Bookings) Confirm(bookingID uint, actor string) (*models.Booking, error) {
	var booking *models.Booking
	err := s.db.Transaction(func(tx *gorm.DB) error {
		b, err := s.lockBooking(tx, bookingID)
		if err != nil {
			return err
		}
		booking = b
		return s.ConfirmTx(tx, booking, actor)
	})
	if err != nil {
		return nil, err
	}
	s.afterConfirm(booking)
	return booking, nil
}

// ConfirmTx is the transactional core of Confirm, shared with the payment
// settlement path which confirms inside its own transaction.
func (s *Bookings) ConfirmTx(tx *gorm.DB, booking *models.Booking, actor string) error {
	if !transitionAllowed(booking.Status, types.BOOKING_CONFIRMED) {
		return types.NewError(types.KindConflict,
			fmt.Sprintf("cannot confirm a %s booking", booking.Status))
	}
	if err := s.availability.Hold(tx, booking); err != nil {
		return err
	}
	res := tx.Model(&models.Booking{}).
		Where("id = ? AND status = ?", booking.ID, types.BOOKING_PENDING).
		Update("status", types.BOOKING_CONFIRMED)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return types.NewError(types.KindConflict,
			fmt.Sprintf("booking %d is no longer pending", booking.ID))
	}
	booking.Status = types.BOOKING_CONFIRMED
	log.Printf("[bookings] booking %d confirmed by %s", booking.ID, actor)
	return nil
}

// Reject declines a pending booking.
func (s *Bookings) Reject(bookingID uint, actor string, reason string) (*models.Booking, error) {
	booking, err := s.terminate(bookingID, types.BOOKING_REJECTED, reason)
	if err != nil {
		return nil, err
	}
	log.Printf("[bookings] booking %d rejected by %s: %s", bookingID, actor, reason)
	s.notifyGuest(booking, "booking.rejected", types.JSONB{"booking_id": booking.ID, "reason": reason})
	return booking, nil
}

// Cancel cancels a pending or confirmed booking, releasing any held nights
// in the same transaction. If the booking was paid, the refund runs as a
// second step after the cancellation commits; a refund failure is logged
// for follow-up and never un-cancels the booking.
func (s *Bookings) Cancel(bookingID uint, actor string, reason string) (*models.Booking, error) {
	var booking *models.Booking
	err := s.db.Transaction(func(tx *gorm.DB) error {
		b, err := s.lockBooking(tx, bookingID)
		if err != nil {
			return err
		}
		if !transitionAllowed(b.Status, types.BOOKING_CANCELLED) {
			return types.NewError(types.KindConflict,
				fmt.Sprintf("cannot cancel a %s booking", b.Status))
		}
		if err := s.availability.Release(tx, b.ID); err != nil {
			return err
		}
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", b.ID, b.Status).
			Updates(map[string]any{"status": types.BOOKING_CANCELLED, "status_reason": reason})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return types.NewError(types.KindConflict,
				fmt.Sprintf("booking %d changed status before the cancel committed", b.ID))
		}
		b.Status = types.BOOKING_CANCELLED
		b.StatusReason = &reason
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[bookings] booking %d cancelled by %s: %s", bookingID, actor, reason)
	if booking.PaymentStatus == types.PAYMENT_COMPLETED {
		if err := s.refund(booking); err != nil {
			log.Printf("[bookings] refund for booking %d failed, flagged for follow-up: %s", booking.ID, err)
		}
	}
	s.notifyGuest(booking, "booking.cancelled", types.JSONB{"booking_id": booking.ID, "reason": reason})
	return booking, nil
}

// CheckIn marks a confirmed booking as occupied.
func (s *Bookings) CheckIn(bookingID uint) (*models.Booking, error) {
	return s.simpleTransition(bookingID, types.BOOKING_CHECKED_IN)
}

// Complete closes out a checked-in booking after the stay ends.
func (s *Bookings) Complete(bookingID uint) (*models.Booking, error) {
	booking, err := s.simpleTransition(bookingID, types.BOOKING_COMPLETED)
	if err != nil {
		return nil, err
	}
	if err := s.availability.Release(nil, booking.ID); err != nil {
		log.Printf("[bookings] failed to release blocks for completed booking %d: %s", booking.ID, err)
	}
	return booking, nil
}

// Get loads one booking with its property and guest.
func (s *Bookings) Get(bookingID uint) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.
		Preload("Property").
		Preload("Guest").
		First(&booking, bookingID).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewError(types.KindNotFound, fmt.Sprintf("booking %d not found", bookingID))
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// ListForGuest returns the guest's bookings, newest first.
func (s *Bookings) ListForGuest(guestID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.
		Preload("Property").
		Where("guest_id = ?", guestID).
		Order("created_at desc").
		Find(&bookings).
		Error
	return bookings, err
}

// refund returns the paid total to the guest's wallet and marks the
// payment refunded, all in one transaction separate from the cancellation.
func (s *Bookings) refund(booking *models.Booking) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		err := tx.
			Where("booking_id = ? AND status = ?", booking.ID, types.PAYMENT_COMPLETED).
			First(&payment).
			Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.NewError(types.KindNotFound,
				fmt.Sprintf("no completed payment for booking %d", booking.ID))
		}
		if err != nil {
			return err
		}
		bookingID := booking.ID
		paymentID := payment.ID
		_, err = s.wallets.CreditTx(tx, MutationInput{
			AccountID: booking.GuestID,
			Amount:    payment.Amount,
			Type:      types.WALLET_TXN_REFUND,
			Reference: payment.Reference,
			Reason:    "booking cancelled",
			BookingID: &bookingID,
			PaymentID: &paymentID,
		})
		if err != nil {
			return err
		}
		err = tx.Model(&models.Payment{}).
			Where("id = ?", payment.ID).
			Update("status", types.PAYMENT_REFUNDED).
			Error
		if err != nil {
			return err
		}
		return tx.Model(&models.Booking{}).
			Where("id = ?", booking.ID).
			Update("payment_status", types.PAYMENT_REFUNDED).
			Error
	})
}

func (s *Bookings) terminate(bookingID uint, to types.BookingStatus, reason string) (*models.Booking, error) {
	var booking *models.Booking
	err := s.db.Transaction(func(tx *gorm.DB) error {
		b, err := s.lockBooking(tx, bookingID)
		if err != nil {
			return err
		}
		if !transitionAllowed(b.Status, to) {
			return types.NewError(types.KindConflict,
				fmt.Sprintf("cannot move a %s booking to %s", b.Status, to))
		}
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", b.ID, b.Status).
			Updates(map[string]any{"status": to, "status_reason": reason})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return types.NewError(types.KindConflict,
				fmt.Sprintf("booking %d changed status before it could move to %s", b.ID, to))
		}
		b.Status = to
		b.StatusReason = &reason
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *Bookings) simpleTransition(bookingID uint, to types.BookingStatus) (*models.Booking, error) {
	var booking *models.Booking
	err := s.db.Transaction(func(tx *gorm.DB) error {
		b, err := s.lockBooking(tx, bookingID)
		if err != nil {
			return err
		}
		if !transitionAllowed(b.Status, to) {
			return types.NewError(types.KindConflict,
				fmt.Sprintf("cannot move a %s booking to %s", b.Status, to))
		}
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", b.ID, b.Status).
			Update("status", to)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return types.NewError(types.KindConflict,
				fmt.Sprintf("booking %d changed status before it could move to %s", b.ID, to))
		}
		b.Status = to
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// lockBooking loads the booking under FOR UPDATE so concurrent transitions
// serialize on the row. The sqlite driver drops the locking clause, so the
// guarded status updates double as the check there.
func (s *Bookings) lockBooking(tx *gorm.DB, bookingID uint) (*models.Booking, error) {
	var booking models.Booking
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Property").
		First(&booking, bookingID).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewError(types.KindNotFound, fmt.Sprintf("booking %d not found", bookingID))
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (s *Bookings) validateParties(tx *gorm.DB, propertyID, guestID uint) (*models.Property, *models.Account, error) {
	var property models.Property
	err := tx.Preload("Provider").First(&property, propertyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, types.NewError(types.KindNotFound, fmt.Sprintf("property %d not found", propertyID))
	}
	if err != nil {
		return nil, nil, err
	}
	if property.Status != types.PROPERTY_LISTED {
		return nil, nil, types.NewError(types.KindValidation,
			fmt.Sprintf("property %d is not accepting bookings", propertyID))
	}
	if property.Provider.Status != types.ACCOUNT_ACTIVE {
		return nil, nil, types.NewError(types.KindForbidden, "the host account is deactivated")
	}
	var guest models.Account
	err = tx.First(&guest, guestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, types.NewError(types.KindNotFound, fmt.Sprintf("account %d not found", guestID))
	}
	if err != nil {
		return nil, nil, err
	}
	if guest.Status != types.ACCOUNT_ACTIVE {
		return nil, nil, types.NewError(types.KindForbidden, "the guest account is deactivated")
	}
	return &property, &guest, nil
}

// afterConfirm runs the post-commit side effects of confirmation: upstream
// sync for externally sourced properties and the guest notification.
func (s *Bookings) afterConfirm(booking *models.Booking) {
	if booking.Property.Source == types.SOURCE_HOTELAPI && booking.Property.ExternalID != nil && s.hotel != nil {
		res, err := s.hotel.CreateBooking(*booking.Property.ExternalID, booking.CheckIn, booking.CheckOut, booking.Guests, types.JSONB{
			"booking_id": booking.ID,
		})
		if err != nil {
			log.Printf("[bookings] upstream sync for booking %d failed: %s", booking.ID, err)
		} else if res != nil {
			err := s.db.Model(&models.Booking{}).
				Where("id = ?", booking.ID).
				Update("external_booking_id", res.ExternalBookingID).
				Error
			if err != nil {
				log.Printf("[bookings] could not store upstream reference for booking %d: %s", booking.ID, err)
			}
		}
	}
	s.notifyGuest(booking, "booking.confirmed", types.JSONB{
		"booking_id": booking.ID,
		"check_in":   booking.CheckIn,
		"check_out":  booking.CheckOut,
	})
}

func (s *Bookings) notifyGuest(booking *models.Booking, event string, data types.JSONB) {
	var guest models.Account
	if err := s.db.First(&guest, booking.GuestID).Error; err != nil {
		log.Printf("[bookings] could not load guest %d for %s: %s", booking.GuestID, event, err)
		return
	}
	s.fireNotify(event, guest.Email, data)
}

func (s *Bookings) fireNotify(event, recipient string, data types.JSONB) {
	if s.notify == nil {
		return
	}
	s.notify(event, recipient, data)
}
