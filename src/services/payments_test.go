package services

import (
	"testing"
	"time"

	"hbs/src/lib"
	"hbs/src/models"
	"hbs/src/types"

	"github.com/stretchr/testify/assert"
)

const testSecret = "whsec_test"

func signedWebhook(t *testing.T, payments *Payments, event, reference string, extra map[string]any) error {
	t.Helper()
	raw := webhookBody(t, event, reference, extra)
	return payments.HandleWebhook(raw, lib.PaystackSignature(testSecret, raw))
}

func TestInitializeChargeCreatesPaymentAndMarksBooking(t *testing.T) {
	gdb := newTestDB(t)
	gateway := &fakeGateway{}
	_, _, _, payments := newServices(t, gdb, gateway, PaymentsConfig{})
	host := seedAccount(t, gdb, "host", 0)
	guest := seedAccount(t, gdb, "guest", 0)
	property := seedProperty(t, gdb, host.ID, true)
	booking := seedBooking(t, gdb, property, guest.ID, "2025-06-01", "2025-06-05")

	payment, auth, err := payments.InitializeCharge(booking.ID, guest.Email)
	assert.NoError(t, err)
	assert.Equal(t, booking.Total, payment.Amount)
	assert.Equal(t, payment.Reference, auth.Reference)
	assert.NotEmpty(t, auth.AuthorizationURL)

	var fresh models.Booking
	assert.NoError(t, gdb.First(&fresh, booking.ID).Error)
	assert.Equal(t, types.PAYMENT_PROCESSING, fresh.PaymentStatus)
	assert.Equal(t, payment.Reference, *fresh.PaymentReference)

	// A booking already being charged cannot start another charge.
	_, _, err = payments.InitializeCharge(booking.ID, guest.Email)
	assert.Equal(t, types.KindConflict, types.Kind(err))
}

func TestInitializeChargeRetriesTransientGatewayErrors(t *testing.T) {
	gdb := newTestDB(t)
	gateway := &fakeGateway{failInitTimes: 2}
	_, _, _, payments := newServices(t, gdb, gateway, PaymentsConfig{MaxRetries: 3})
	host := seedAccount(t, gdb, "host", 0)
	guest := seedAccount(t, gdb, "guest", 0)
	property := seedProperty(t, gdb, host.ID, false)
	booking := seedBooking(t, gdb, property, guest.ID, "2025-06-01", "2025-06-03")

	_, _, err := payments.InitializeCharge(booking.ID, guest.Email)
	assert.NoError(t, err)
	assert.Equal(t, 3, gateway.initCalls)
}

func TestInitializeChargeGivesUpAfterBoundedRetries(t *testing.T) {
	gdb := newTestDB(t)
	gateway := &fakeGateway{failInitTimes: 10}
	_, _, _, payments := newServices(t, gdb, gateway, PaymentsConfig{MaxRetries: 3})
	host := seedAccount(t, gdb, "host", 0)
	guest := seedAccount(t, gdb, "guest", 0)
	property := seedProperty(t, gdb, host.ID, false)
	booking := seedBooking(t, gdb, property, guest.ID, "2025-06-01", "2025-06-03")

	_, _, err := payments.InitializeCharge(booking.ID, guest.Email)
	assert.Equal(t, types.KindExternalService, types.Kind(err))
	assert.Equal(t, 3, gateway.initCalls)

	// Nothing was persisted for the failed initialization.
	var count int64
	gdb.Model(&models.Payment{}).Count(&count)
	assert.Zero(t, count)
}

func TestValidationErrorsFromGatewayDoNotRetry(t *testing.T) {
	gdb := newTestDB(t)
	gateway := &fakeGateway{failInitTimes: 10, failInitKind: types.KindValidation}
	_, _, _, payments := newServices(t, gdb, gateway, PaymentsConfig{MaxRetries: 5})
	host := seedAccount(t, gdb, "host", 0)
	guest := seedAccount(t, gdb, "guest", 0)
	property := seedProperty(t, gdb, host.ID, false)
	booking := seedBooking(t, gdb, property, guest.ID, "2025-06-01", "2025-06-03")

	_, _, err := payments.InitializeCharge(booking.ID, guest.Email)
	assert.Equal(t, types.KindValidation, types.Kind(err))
	assert.Equal(t, 1, gateway.initCalls)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	gdb := newTestDB(t)
	_, _, _, payments := newServices(t, gdb, &fakeGateway{}, PaymentsConfig{})

	raw := webhookBody(t, "charge.success", "ref-1", nil)
	err := payments.HandleWebhook(raw, "not-the-signature")
	assert.Equal(t, types.KindAuthentication, types.Kind(err))

	err = payments.HandleWebhook(raw, "")
	assert.Equal(t, types.KindAuthentication, types.Kind(err))

	// A tampered body fails even with a once-valid signature.
	valid := lib.PaystackSignature(testSecret, raw)
	err = payments.HandleWebhook(append(raw, ' '), valid)
	assert.Equal(t, types.KindAuthentication, types.Kind(err))

	// A well-formed signature of the right length still fails when any
	// byte differs.
	flipped := []byte(valid)
	if flipped[0] == '0' {
		flipped[0] = '1'
	} else {
		flipped[0] = '0'
	}
	err = payments.HandleWebhook(raw, string(flipped))
	assert.Equal(t, types.KindAuthentication, types.Kind(err))

	assert.True(t, lib.PaystackSignatureValid(testSecret, raw, valid))
	assert.False(t, lib.PaystackSignatureValid(testSecret, raw, string(flipped)))
}

func TestChargeSettledAfterCancellationGoesToReview(t *testing.T) {
	gdb := newTestDB(t)
	var reviewed []types.JSONB
	_, wallets, bookings, payments := newServices(t, gdb, &fakeGateway{}, PaymentsConfig{
		Review: func(payload types.JSONB) { reviewed = append(reviewed, payload) },
	})
	host := seedAccount(t, gdb, "host", 0)
	guest := seedAccount(t, gdb, "guest", 0)
	property := seedProperty(t, gdb, host.ID, true)
	booking := seedBooking(t, gdb, property, guest.ID, "2025-06-01", "2025-06-05")

	payment, _, err := payments.InitializeCharge(booking.ID, guest.Email)
	assert.NoError(t, err)

	// The guest cancels while the charge is in flight, then the gateway
	// settles it anyway.
	_, err = bookings.Cancel(booking.ID, "guest", "changed plans")
	assert.NoError(t, err)
	assert.NoError(t, signedWebhook(t, payments, "charge.success", payment.Reference, map[string]any{"channel": "card"}))

	var fresh models.Payment
	assert.NoError(t, gdb.First(&fresh, "id = ?", payment.ID).Error)
	assert.Equal(t, types.PAYMENT_COMPLETED, fresh.Status)
	assert.True(t, fresh.ReviewRequired, "settled money with no live booking must surface")
	assert.Len(t, reviewed, 1)
	assert.Equal(t, payment.Reference, reviewed[0]["reference"])

	var freshBooking models.Booking
	assert.NoError(t, gdb.First(&freshBooking, booking.ID).Error)
	assert.Equal(t, types.BOOKING_CANCELLED, freshBooking.Status, "settlement never resurrects a cancelled booking")

	var blocks int64
	gdb.Model(&models.AvailabilityBlock{}).Where("booking_id = ?", booking.ID).Count(&blocks)
	assert.Zero(t, blocks)

	// The operator decides where the money goes; nothing auto-credits.
	wallet, _ := wallets.Balance(guest.ID)
	assert.Zero(t, wallet.Balance)
}

func TestChargeSuccessConfirmsInstantBooking(t *testing.T) {
	gdb := newTestDB(t)
	_, _, _, payments := newServices(t, gdb, &fakeGateway{}, PaymentsConfig{})
	host := seedAccount(t, gdb, "host", 0)
	guest := seedAccount(t, gdb, "guest", 0)
	property := seedProperty(t, gdb, host.ID, true)
	booking := seedBooking(t, gdb, property, guest.ID, "2025-06-01", "2025-06-05")

	payment, _, err := payments.InitializeCharge(booking.ID, guest.Email)
	assert.NoError(t, err)

	err = signedWebhook(t, payments, "charge.success", payment.Reference, map[string]any{"channel": "card"})
	assert.NoError(t, err)

	var fresh models.Booking
	assert.NoError(t, gdb.First(&fresh, booking.ID).Error)
	assert.Equal(t, types.BOOKING_CONFIRMED, fresh.Status)
	assert.Equal(t, types.PAYMENT_COMPLETED, fresh.PaymentStatus)

	var freshPayment models.Payment
	assert.NoError(t, gdb.First(&freshPayment, "id = ?", payment.ID).Error)
	assert.Equal(t, types.PAYMENT_COMPLETED, freshPayment.Status)
	assert.Equal(t, "card", *freshPayment.Channel)

	var blocks int64
	gdb.Model(&models.AvailabilityBlock{}).Where("booking_id = ?", booking.ID).Count(&blocks)
	assert.EqualValues(t, 4, blocks)

	// Replay: same event again changes nothing.
	err = signedWebhook(t, payments, "charge.success", payment.Reference, map[string]any{"channel": "card"})
	assert.NoError(t, err)
	gdb.Model(&models.AvailabilityBlock{}).Where("booking_id = ?", booking.ID).Count(&blocks)
	assert.EqualValues(t, 4, blocks)
}

func TestChargeSuccessLeavesManualConfirmationPending(t *testing.T) {
	gdb := newTestDB(t)
	_, _, _, payments := newServices(t, gdb, &fakeGateway{}, PaymentsConfig{})
	host := seedAccount(t, gdb, "host", 0)
	guest := seedAccount(t, gdb, "guest", 0)
	property := seedProperty(t, gdb, host.ID, false)
	booking := seedBooking(t, gdb, property, guest.ID, "2025-06-01", "2025-06-05")

	payment, _, err := payments.InitializeCharge(booking.ID, guest.Email)
	assert.NoError(t, err)
	assert.NoError(t, signedWebhook(t, payments, "charge.success", payment.Reference, nil))

	var fresh models.Booking
	assert.NoError(t, gdb.First(&fresh, booking.ID).Error)
	assert.Equal(t, types.BOOKING_PENDING, fresh.Status, "host approval still required")
	assert.Equal(t, types.PAYMENT_COMPLETED, fresh.PaymentStatus)
}

func TestChargeFailedPropagatesToBooking(t *testing.T) {
	gdb := newTestDB(t)
	_, _, _, payments := newServices(t, gdb, &fakeGateway{}, PaymentsConfig{})
	host := seedAccount(t, gdb, "host", 0)
	guest := seedAccount(t, gdb, "guest", 0)
	property := seedProperty(t, gdb, host.ID, true)
	booking := seedBooking(t, gdb, property, guest.ID, "2025-06-01", "2025-06-05")

	payment, _, err := payments.InitializeCharge(booking.ID, guest.Email)
	assert.NoError(t, err)
	assert.NoError(t, signedWebhook(t, payments, "charge.failed", payment.Reference, map[string]any{"gateway_response": "Declined"}))

	var fresh models.Booking
	assert.NoError(t, gdb.First(&fresh, booking.ID).Error)
	assert.Equal(t, types.PAYMENT_FAILED, fresh.PaymentStatus)
	assert.Equal(t, types.BOOKING_PENDING, fresh.Status)

	// The guest can start over.
	_, _, err = payments.InitializeCharge(booking.ID, guest.Email)
	assert.NoError(t, err)

	// A late success for the dead reference is ignored as a duplicate.
	assert.NoError(t, signedWebhook(t, payments, "charge.success", payment.Reference, nil))
	var freshPayment models.Payment
	assert.NoError(t, gdb.First(&freshPayment, "id = ?", payment.ID).Error)
	assert.Equal(t, types.PAYMENT_FAILED, freshPayment.Status)
}

func TestChargeIntentMaterializesBookingOnSettlement(t *testing.T) {
	gdb := newTestDB(t)
	_, _, _, payments := newServices(t, gdb, &fakeGateway{}, PaymentsConfig{})
	host := seedAccount(t, gdb, "host", 0)
	guest := seedAccount(t, gdb, "guest", 0)
	property := seedProperty(t, gdb, host.ID, true)

	payment, _, err := payments.InitializeChargeWithIntent(guest.Email, types.PendingBookingPayload{
		PropertyID: property.ID,
		GuestID:    guest.ID,
		CheckIn:    date(t, "2025-08-10"),
		CheckOut:   date(t, "2025-08-15"),
		Guests:     2,
		BasePrice:  50000,
		Currency:   "NGN",
	})
	assert.NoError(t, err)
	assert.Nil(t, payment.BookingID, "no booking exists before settlement")
	assert.EqualValues(t, 50000, payment.Amount)

	var bookingCount int64
	gdb.Model(&models.Booking{}).Count(&bookingCount)
	assert.Zero(t, bookingCount)

	assert.NoError(t, signedWebhook(t, payments, "charge.success", payment.Reference, map[string]any{"channel": "card"}))

	var booking models.Booking
	assert.NoError(t, gdb.Where("property_id = ?", property.ID).First(&booking).Error)
	assert.Equal(t, guest.ID, booking.GuestID)
	assert.Equal(t, types.BOOKING_CONFIRMED, booking.Status)
	assert.Equal(t, types.PAYMENT_COMPLETED, booking.PaymentStatus)
	assert.EqualValues(t, 50000, booking.Total)

	var freshPayment models.Payment
	assert.NoError(t, gdb.First(&freshPayment, "id = ?", payment.ID).Error)
	assert.Equal(t, booking.ID, *freshPayment.BookingID)

	// Replaying the settlement does not create a second booking.
	assert.NoError(t, signedWebhook(t, payments, "charge.success", payment.Reference, map[string]any{"channel": "card"}))
	gdb.Model(&models.Booking{}).Count(&bookingCount)
	assert.EqualValues(t, 1, bookingCount)
}

func TestChargeIntentMaterializationFailureGoesToReview(t *testing.T) {
	gdb := newTestDB(t)
	var reviewed []types.JSONB
	_, _, _, payments := newServices(t, gdb, &fakeGateway{}, PaymentsConfig{
		Review: func(payload types.JSONB) { reviewed = append(reviewed, payload) },
	})
	host := seedAccount(t, gdb, "host", 0)
	guest := seedAccount(t, gdb, "guest", 0)
	property := seedProperty(t, gdb, host.ID, true)

	payment, _, err := payments.InitializeChargeWithIntent(guest.Email, types.PendingBookingPayload{
		PropertyID: property.ID,
		GuestID:    guest.ID,
		CheckIn:    date(t, "2025-08-10"),
		CheckOut:   date(t, "2025-08-12"),
		Guests:     1,
		BasePrice:  20000,
		Currency:   "NGN",
	})
	assert.NoError(t, err)

	// The property disappears from the catalogue between init and
	// settlement. The money settled, so the charge completes flagged.
	assert.NoError(t, gdb.Model(&models.Property{}).Where("id = ?", property.ID).Update("status", types.PROPERTY_UNLISTED).Error)

	assert.NoError(t, signedWebhook(t, payments, "charge.success", payment.Reference, nil))

	var fresh models.Payment
	assert.NoError(t, gdb.First(&fresh, "id = ?", payment.ID).Error)
	assert.Equal(t, types.PAYMENT_COMPLETED, fresh.Status)
	assert.True(t, fresh.ReviewRequired)
	assert.NotNil(t, fresh.ReviewReason)
	assert.Len(t, reviewed, 1)
	assert.Equal(t, payment.Reference, reviewed[0]["reference"])

	var bookingCount int64
	gdb.Model(&models.Booking{}).Count(&bookingCount)
	assert.Zero(t, bookingCount, "no booking may materialize from a failed payload")
}

func TestDatesTakenBeforeSettlementGoesToReview(t *testing.T) {
	gdb := newTestDB(t)
	var reviewed []types.JSONB
	_, _, bookings, payments := newServices(t, gdb, &fakeGateway{}, PaymentsConfig{
		Review: func(payload types.JSONB) { reviewed = append(reviewed, payload) },
	})
	host := seedAccount(t, gdb, "host", 0)
	guest := seedAccount(t, gdb, "guest", 0)
	rival := seedAccount(t, gdb, "guest", 0)
	property := seedProperty(t, gdb, host.ID, true)
	booking := seedBooking(t, gdb, property, guest.ID, "2025-06-01", "2025-06-05")

	payment, _, err := payments.InitializeCharge(booking.ID, guest.Email)
	assert.NoError(t, err)

	// A rival books and gets confirmed while the guest sits on the
	// gateway's checkout page.
	rivalBooking := seedBooking(t, gdb, property, rival.ID, "2025-06-03", "2025-06-06")
	_, err = bookings.Confirm(rivalBooking.ID, "host")
	assert.NoError(t, err)

	assert.NoError(t, signedWebhook(t, payments, "charge.success", payment.Reference, nil))

	var fresh models.Booking
	assert.NoError(t, gdb.First(&fresh, booking.ID).Error)
	assert.Equal(t, types.BOOKING_PENDING, fresh.Status, "paid booking keeps pending when dates are gone")

	var freshPayment models.Payment
	assert.NoError(t, gdb.First(&freshPayment, "id = ?", payment.ID).Error)
	assert.Equal(t, types.PAYMENT_COMPLETED, freshPayment.Status)
	assert.True(t, freshPayment.ReviewRequired)
	assert.Len(t, reviewed, 1)
}

func TestUnknownEventsAreAcknowledged(t *testing.T) {
	gdb := newTestDB(t)
	_, _, _, payments := newServices(t, gdb, &fakeGateway{}, PaymentsConfig{})

	assert.NoError(t, signedWebhook(t, payments, "subscription.create", "ref-odd", nil))
	assert.NoError(t, signedWebhook(t, payments, "charge.success", "ref-never-seen", nil))
}

func TestWithdrawDebitsWalletAndTransfers(t *testing.T) {
	gdb := newTestDB(t)
	gateway := &fakeGateway{}
	_, wallets, _, payments := newServices(t, gdb, gateway, PaymentsConfig{})
	account := seedAccount(t, gdb, "host", 100000)
	code := "RCP_test"
	assert.NoError(t, gdb.Model(&models.Account{}).Where("id = ?", account.ID).Update("recipient_code", code).Error)

	payment, err := payments.Withdraw(account.ID, 60000)
	assert.NoError(t, err)
	assert.Equal(t, types.PAYMENT_PROCESSING, payment.Status)
	assert.Equal(t, 1, gateway.transferCalls)

	wallet, _ := wallets.Balance(account.ID)
	assert.EqualValues(t, 40000, wallet.Balance)

	// The gateway confirms delivery.
	assert.NoError(t, signedWebhook(t, payments, "transfer.success", payment.Reference, nil))
	var fresh models.Payment
	assert.NoError(t, gdb.First(&fresh, "id = ?", payment.ID).Error)
	assert.Equal(t, types.PAYMENT_COMPLETED, fresh.Status)
}

func TestFailedTransferRestoresWallet(t *testing.T) {
	gdb := newTestDB(t)
	gateway := &fakeGateway{}
	_, wallets, _, payments := newServices(t, gdb, gateway, PaymentsConfig{})
	account := seedAccount(t, gdb, "host", 100000)
	assert.NoError(t, gdb.Model(&models.Account{}).Where("id = ?", account.ID).Update("recipient_code", "RCP_test").Error)

	payment, err := payments.Withdraw(account.ID, 25000)
	assert.NoError(t, err)

	assert.NoError(t, signedWebhook(t, payments, "transfer.failed", payment.Reference, nil))

	wallet, _ := wallets.Balance(account.ID)
	assert.EqualValues(t, 100000, wallet.Balance)
	var fresh models.Payment
	assert.NoError(t, gdb.First(&fresh, "id = ?", payment.ID).Error)
	assert.Equal(t, types.PAYMENT_FAILED, fresh.Status)

	// A duplicate failure event must not double-credit.
	assert.NoError(t, signedWebhook(t, payments, "transfer.failed", payment.Reference, nil))
	wallet, _ = wallets.Balance(account.ID)
	assert.EqualValues(t, 100000, wallet.Balance)
}

func TestReversedTransferClawsBackAfterCompletion(t *testing.T) {
	gdb := newTestDB(t)
	gateway := &fakeGateway{}
	_, wallets, _, payments := newServices(t, gdb, gateway, PaymentsConfig{})
	account := seedAccount(t, gdb, "host", 50000)
	assert.NoError(t, gdb.Model(&models.Account{}).Where("id = ?", account.ID).Update("recipient_code", "RCP_test").Error)

	payment, err := payments.Withdraw(account.ID, 30000)
	assert.NoError(t, err)
	assert.NoError(t, signedWebhook(t, payments, "transfer.success", payment.Reference, nil))

	// The bank bounces it days later.
	assert.NoError(t, signedWebhook(t, payments, "transfer.reversed", payment.Reference, nil))

	wallet, _ := wallets.Balance(account.ID)
	assert.EqualValues(t, 50000, wallet.Balance)
	var fresh models.Payment
	assert.NoError(t, gdb.First(&fresh, "id = ?", payment.ID).Error)
	assert.Equal(t, types.PAYMENT_REFUNDED, fresh.Status)
}

func TestImmediateTransferRejectionCompensates(t *testing.T) {
	gdb := newTestDB(t)
	gateway := &fakeGateway{transferErr: types.NewError(types.KindExternalService, "transfer rejected")}
	_, wallets, _, payments := newServices(t, gdb, gateway, PaymentsConfig{})
	account := seedAccount(t, gdb, "host", 80000)
	assert.NoError(t, gdb.Model(&models.Account{}).Where("id = ?", account.ID).Update("recipient_code", "RCP_test").Error)

	_, err := payments.Withdraw(account.ID, 10000)
	assert.Error(t, err)

	wallet, _ := wallets.Balance(account.ID)
	assert.EqualValues(t, 80000, wallet.Balance)
}

func TestWithdrawGuards(t *testing.T) {
	gdb := newTestDB(t)
	_, _, _, payments := newServices(t, gdb, &fakeGateway{}, PaymentsConfig{})
	account := seedAccount(t, gdb, "host", 100)

	_, err := payments.Withdraw(account.ID, 100)
	assert.Equal(t, types.KindValidation, types.Kind(err), "no recipient configured")

	assert.NoError(t, gdb.Model(&models.Account{}).Where("id = ?", account.ID).Update("recipient_code", "RCP_test").Error)
	_, err = payments.Withdraw(account.ID, 10000)
	assert.Equal(t, types.KindInsufficientFunds, types.Kind(err))
}

func TestReconcilePendingSettlesStalePayments(t *testing.T) {
	gdb := newTestDB(t)
	gateway := &fakeGateway{verifyStatus: "success", verifyChannel: "bank"}
	_, _, _, payments := newServices(t, gdb, gateway, PaymentsConfig{})
	host := seedAccount(t, gdb, "host", 0)
	guest := seedAccount(t, gdb, "guest", 0)
	property := seedProperty(t, gdb, host.ID, true)
	booking := seedBooking(t, gdb, property, guest.ID, "2025-06-01", "2025-06-05")

	payment, _, err := payments.InitializeCharge(booking.ID, guest.Email)
	assert.NoError(t, err)

	// Age the payment past the stale window.
	assert.NoError(t, gdb.Model(&models.Payment{}).
		Where("id = ?", payment.ID).
		UpdateColumn("updated_at", time.Now().Add(-2*time.Hour)).
		Error)

	payments.ReconcilePending(30 * time.Minute)

	var fresh models.Payment
	assert.NoError(t, gdb.First(&fresh, "id = ?", payment.ID).Error)
	assert.Equal(t, types.PAYMENT_COMPLETED, fresh.Status)

	var freshBooking models.Booking
	assert.NoError(t, gdb.First(&freshBooking, booking.ID).Error)
	assert.Equal(t, types.BOOKING_CONFIRMED, freshBooking.Status)
}

func TestReconcilePendingSkipsFreshPayments(t *testing.T) {
	gdb := newTestDB(t)
	gateway := &fakeGateway{verifyStatus: "success"}
	_, _, _, payments := newServices(t, gdb, gateway, PaymentsConfig{})
	host := seedAccount(t, gdb, "host", 0)
	guest := seedAccount(t, gdb, "guest", 0)
	property := seedProperty(t, gdb, host.ID, true)
	booking := seedBooking(t, gdb, property, guest.ID, "2025-06-01", "2025-06-05")

	payment, _, err := payments.InitializeCharge(booking.ID, guest.Email)
	assert.NoError(t, err)

	payments.ReconcilePending(30 * time.Minute)

	var fresh models.Payment
	assert.NoError(t, gdb.First(&fresh, "id = ?", payment.ID).Error)
	assert.Equal(t, types.PAYMENT_PENDING, fresh.Status, "fresh payments are left alone")
}
