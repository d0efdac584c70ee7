package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"hbs/src/config"
	"hbs/src/lib"
	"hbs/src/models"
	"hbs/src/types"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

// Gateway is the slice of the payment provider the coordinator needs.
// lib.PaystackClient satisfies it; tests swap in a fake.
type Gateway interface {
	InitializeTransaction(email string, amount int64, currency string, reference string, metadata types.JSONB) (*types.GatewayAuthorization, error)
	VerifyTransaction(reference string) (*types.GatewayVerification, error)
	InitiateTransfer(recipient string, amount int64, currency string, reference string, reason string) error
}

// ReviewPublisher pushes a settled-but-unapplied charge onto the manual
// review queue. Delivery is best-effort and runs after commit.
type ReviewPublisher func(payload types.JSONB)

// Payments coordinates money movement between the gateway, the booking
// state machine and the wallet ledger. Gateway calls never run inside a
// database transaction, and webhook settlement is idempotent on the
// payment reference.
type Payments struct {
	db       *gorm.DB
	gateway  Gateway
	bookings *Bookings
	wallets  *Wallets

	webhookSecret string
	maxRetries    int
	retryDelay    time.Duration

	cache  *redis.Client
	review ReviewPublisher
	notify NotifyFunc
}

type PaymentsConfig struct {
	WebhookSecret string
	MaxRetries    int
	RetryDelay    time.Duration
	Cache         *redis.Client
	Review        ReviewPublisher
	Notify        NotifyFunc
}

func NewPayments(db *gorm.DB, gateway Gateway, bookings *Bookings, wallets *Wallets, cfg PaymentsConfig) *Payments {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	return &Payments{
		db:            db,
		gateway:       gateway,
		bookings:      bookings,
		wallets:       wallets,
		webhookSecret: cfg.WebhookSecret,
		maxRetries:    cfg.MaxRetries,
		retryDelay:    cfg.RetryDelay,
		cache:         cfg.Cache,
		review:        cfg.Review,
		notify:        cfg.Notify,
	}
}

// InitializeCharge starts the reservation-first flow: the Booking row
// already exists and the charge references it. The gateway call happens
// before any row is written, so a gateway failure leaves nothing to clean
// up.
func (p *Payments) InitializeCharge(bookingID uint, email string) (*models.Payment, *types.GatewayAuthorization, error) {
	booking, err := p.bookings.Get(bookingID)
	if err != nil {
		return nil, nil, err
	}
	if booking.Status != types.BOOKING_PENDING {
		return nil, nil, types.NewError(types.KindConflict,
			fmt.Sprintf("cannot charge a %s booking", booking.Status))
	}
	switch booking.PaymentStatus {
	case types.PAYMENT_PENDING, types.PAYMENT_FAILED:
	default:
		return nil, nil, types.NewError(types.KindConflict,
			fmt.Sprintf("booking %d already has a %s payment", booking.ID, booking.PaymentStatus))
	}
	reference := uuid.NewString()
	auth, err := p.initWithRetry(email, booking.Total, booking.Currency, reference, types.JSONB{
		"booking_id": booking.ID,
	})
	if err != nil {
		return nil, nil, err
	}
	payment := models.Payment{
		BookingID:        &booking.ID,
		Amount:           booking.Total,
		Currency:         booking.Currency,
		Reference:        reference,
		AccessCode:       &auth.AccessCode,
		AuthorizationURL: &auth.AuthorizationURL,
		Status:           types.PAYMENT_PENDING,
	}
	err = p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Booking{}).
			Where("id = ?", booking.ID).
			Updates(map[string]any{
				"payment_status":    types.PAYMENT_PROCESSING,
				"payment_reference": reference,
			}).
			Error
	})
	if err != nil {
		return nil, nil, err
	}
	p.cacheReference(reference, payment.ID)
	return &payment, auth, nil
}

// InitializeChargeWithIntent starts the payment-first flow: no Booking row
// is written. The whole prospective booking parks inside the payment's
// metadata under a versioned schema; settlement materializes it.
func (p *Payments) InitializeChargeWithIntent(email string, payload types.PendingBookingPayload) (*models.Payment, *types.GatewayAuthorization, error) {
	property, _, err := p.bookings.validateParties(p.db, payload.PropertyID, payload.GuestID)
	if err != nil {
		return nil, nil, err
	}
	nights := Nights(payload.CheckIn, payload.CheckOut)
	if len(nights) == 0 {
		return nil, nil, types.NewError(types.KindValidation, "check_out must be after check_in")
	}
	if ok, _, err := p.bookings.availability.CheckRange(nil, property, payload.CheckIn, payload.CheckOut); err != nil {
		return nil, nil, err
	} else if !ok {
		return nil, nil, types.NewError(types.KindConflict,
			fmt.Sprintf("property %d is not available for the requested dates", property.ID))
	}
	payload.SchemaVersion = config.BookingPayloadSchemaVersion
	payload.CheckIn = DateOnly(payload.CheckIn)
	payload.CheckOut = DateOnly(payload.CheckOut)
	if payload.BasePrice == 0 {
		payload.BasePrice = property.NightlyPrice * int64(len(nights))
	}
	payload.Total = payload.BasePrice + payload.Fees + payload.Tax - payload.Discount
	if payload.Total <= 0 {
		return nil, nil, types.NewError(types.KindValidation, "charge total must be positive")
	}
	if payload.Currency == "" {
		payload.Currency = property.Currency
	}
	reference := uuid.NewString()
	auth, err := p.initWithRetry(email, payload.Total, payload.Currency, reference, types.JSONB{
		"intent":      "booking",
		"property_id": payload.PropertyID,
	})
	if err != nil {
		return nil, nil, err
	}
	metadata, err := intentMetadata(payload)
	if err != nil {
		return nil, nil, err
	}
	payment := models.Payment{
		Amount:           payload.Total,
		Currency:         payload.Currency,
		Reference:        reference,
		AccessCode:       &auth.AccessCode,
		AuthorizationURL: &auth.AuthorizationURL,
		Status:           types.PAYMENT_PENDING,
		Metadata:         &metadata,
	}
	if err := p.db.Create(&payment).Error; err != nil {
		return nil, nil, err
	}
	p.cacheReference(reference, payment.ID)
	return &payment, auth, nil
}

// HandleWebhook verifies and applies one gateway event. The raw body is
// what the signature covers, so it must arrive unmodified. Unrecognized
// events are logged and acknowledged; a nil return means the caller should
// respond 2xx.
func (p *Payments) HandleWebhook(raw []byte, signature string) error {
	if !lib.PaystackSignatureValid(p.webhookSecret, raw, signature) {
		return types.NewError(types.KindAuthentication, "webhook signature mismatch")
	}
	if !gjson.ValidBytes(raw) {
		return types.NewError(types.KindValidation, "webhook body is not valid JSON")
	}
	event := gjson.GetBytes(raw, "event").String()
	reference := gjson.GetBytes(raw, "data.reference").String()
	if reference == "" {
		log.Printf("[payments] webhook %q carried no reference, acknowledged", event)
		return nil
	}
	switch event {
	case "charge.success":
		return p.settleCharge(reference, gjson.GetBytes(raw, "data.channel").String())
	case "charge.failed":
		return p.failCharge(reference, gjson.GetBytes(raw, "data.gateway_response").String())
	case "transfer.success":
		return p.settleTransfer(reference)
	case "transfer.failed":
		return p.reverseTransfer(reference, types.PAYMENT_FAILED)
	case "transfer.reversed":
		return p.reverseTransfer(reference, types.PAYMENT_REFUNDED)
	default:
		log.Printf("[payments] ignoring unhandled webhook event %q ref=%s", event, reference)
		return nil
	}
}

// ReconcilePending sweeps payments stuck in a non-terminal status longer
// than window and settles them from the gateway's answer. Runs on a
// schedule; per-payment failures are logged and skipped.
func (p *Payments) ReconcilePending(window time.Duration) {
	cutoff := time.Now().Add(-window)
	var stale []models.Payment
	err := p.db.
		Where("status IN ?", []types.PaymentStatus{types.PAYMENT_PENDING, types.PAYMENT_PROCESSING}).
		Where("updated_at < ?", cutoff).
		Order("updated_at asc").
		Limit(100).
		Find(&stale).
		Error
	if err != nil {
		log.Printf("[payments] reconciliation query failed: %s", err)
		return
	}
	if len(stale) == 0 {
		return
	}
	log.Printf("[payments] reconciling %d stale payments", len(stale))
	for _, payment := range stale {
		verification, err := p.gateway.VerifyTransaction(payment.Reference)
		if err != nil {
			log.Printf("[payments] could not verify %s: %s", payment.Reference, err)
			continue
		}
		switch verification.Status {
		case "success":
			if p.isWithdrawal(&payment) {
				err = p.settleTransfer(payment.Reference)
			} else {
				err = p.settleCharge(payment.Reference, verification.Channel)
			}
		case "failed", "abandoned", "reversed":
			if p.isWithdrawal(&payment) {
				err = p.reverseTransfer(payment.Reference, types.PAYMENT_FAILED)
			} else {
				err = p.failCharge(payment.Reference, verification.Status)
			}
		default:
			continue
		}
		if err != nil {
			log.Printf("[payments] reconciliation of %s failed: %s", payment.Reference, err)
		}
	}
}

// Withdraw debits the account's wallet and pays the balance out through a
// gateway transfer. The debit commits before the transfer call; a transfer
// that fails immediately is compensated by re-crediting the wallet.
func (p *Payments) Withdraw(accountID uint, amount int64) (*models.Payment, error) {
	var account models.Account
	err := p.db.First(&account, accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewError(types.KindNotFound, fmt.Sprintf("account %d not found", accountID))
	}
	if err != nil {
		return nil, err
	}
	if account.Status != types.ACCOUNT_ACTIVE {
		return nil, types.NewError(types.KindForbidden, "account is deactivated")
	}
	if account.RecipientCode == nil {
		return nil, types.NewError(types.KindValidation, "account has no payout recipient configured")
	}
	wallet, err := p.wallets.Balance(accountID)
	if err != nil {
		return nil, err
	}
	reference := uuid.NewString()
	metadata := types.JSONB{"intent": "withdrawal", "account_id": accountID}
	payment := models.Payment{
		Amount:    amount,
		Currency:  wallet.Currency,
		Reference: reference,
		Status:    types.PAYMENT_PROCESSING,
		Metadata:  &metadata,
	}
	err = p.db.Transaction(func(tx *gorm.DB) error {
		_, err := p.wallets.DebitTx(tx, MutationInput{
			AccountID: accountID,
			Amount:    amount,
			Type:      types.WALLET_TXN_WITHDRAWAL,
			Reference: reference,
			Reason:    "withdrawal",
		})
		if err != nil {
			return err
		}
		return tx.Create(&payment).Error
	})
	if err != nil {
		return nil, err
	}
	err = p.gateway.InitiateTransfer(*account.RecipientCode, amount, wallet.Currency, reference, "wallet withdrawal")
	if err != nil {
		log.Printf("[payments] transfer %s rejected, reversing debit: %s", reference, err)
		if rerr := p.reverseTransfer(reference, types.PAYMENT_FAILED); rerr != nil {
			log.Printf("[payments] could not reverse withdrawal %s: %s", reference, rerr)
		}
		return nil, err
	}
	return &payment, nil
}

// Get loads one payment by id.
func (p *Payments) Get(id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := p.db.First(&payment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewError(types.KindNotFound, fmt.Sprintf("payment %s not found", id))
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ResolveReview clears the manual-review flag after an operator has
// reconciled the charge by hand.
func (p *Payments) ResolveReview(id uuid.UUID) error {
	res := p.db.Model(&models.Payment{}).
		Where("id = ? AND review_required = ?", id, true).
		Update("review_required", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return types.NewError(types.KindNotFound, fmt.Sprintf("no payment %s awaiting review", id))
	}
	return nil
}

// settleCharge applies a successful charge exactly once. Replays and
// unknown references acknowledge without writing. A charge that settled at
// the gateway but cannot be applied locally is marked completed and flagged
// for manual review rather than bounced back to the gateway.
func (p *Payments) settleCharge(reference string, channel string) error {
	var reviewPayload types.JSONB
	var confirmed *models.Booking
	err := p.db.Transaction(func(tx *gorm.DB) error {
		payment, done, err := p.loadForSettlement(tx, reference)
		if err != nil || done {
			return err
		}
		var booking *models.Booking
		if payment.BookingID != nil {
			booking, err = p.bookings.lockBooking(tx, *payment.BookingID)
			if err != nil {
				return err
			}
			switch booking.Status {
			case types.BOOKING_CANCELLED, types.BOOKING_REJECTED:
				// The money arrived after the booking died. Keep it visible:
				// completed, flagged, never silently absorbed.
				reviewPayload = p.flagForReview(tx, payment, channel,
					types.NewError(types.KindManualReview,
						fmt.Sprintf("charge settled for a %s booking", booking.Status)))
				return nil
			}
		} else if p.hasIntent(payment, "booking") {
			booking, err = p.materializeBooking(tx, payment)
			if err != nil {
				reviewPayload = p.flagForReview(tx, payment, channel, err)
				return nil
			}
		} else {
			reviewPayload = p.flagForReview(tx, payment, channel,
				types.NewError(types.KindManualReview, "charge settled with no booking attached"))
			return nil
		}
		updates := map[string]any{"status": types.PAYMENT_COMPLETED}
		if channel != "" {
			updates["channel"] = channel
		}
		if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).Updates(updates).Error; err != nil {
			return err
		}
		err = tx.Model(&models.Booking{}).
			Where("id = ?", booking.ID).
			Updates(map[string]any{
				"payment_status":    types.PAYMENT_COMPLETED,
				"payment_reference": reference,
			}).
			Error
		if err != nil {
			return err
		}
		booking.PaymentStatus = types.PAYMENT_COMPLETED
		if booking.Property.InstantBook && booking.Status == types.BOOKING_PENDING {
			// Savepoint: a lost date race must roll back any partially
			// inserted night blocks without losing the settlement writes.
			err := tx.Transaction(func(sp *gorm.DB) error {
				return p.bookings.ConfirmTx(sp, booking, "gateway")
			})
			if err != nil {
				if types.Kind(err) == types.KindConflict {
					// Paid but the dates were taken in the meantime. Keep
					// the money and the pending booking; operators decide.
					log.Printf("[payments] paid booking %d lost its dates, flagged for review", booking.ID)
					reviewPayload = p.flagForReview(tx, payment, channel,
						types.NewError(types.KindConflict, "dates taken before settlement"))
					return nil
				}
				return err
			}
			confirmed = booking
		}
		return nil
	})
	if err != nil {
		return err
	}
	p.dropReference(reference)
	if confirmed != nil {
		p.bookings.afterConfirm(confirmed)
	}
	if reviewPayload != nil && p.review != nil {
		p.review(reviewPayload)
	}
	return nil
}

// failCharge marks a failed charge and propagates the failure to the
// booking so the guest can retry.
func (p *Payments) failCharge(reference string, reason string) error {
	err := p.db.Transaction(func(tx *gorm.DB) error {
		payment, done, err := p.loadForSettlement(tx, reference)
		if err != nil || done {
			return err
		}
		if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).Update("status", types.PAYMENT_FAILED).Error; err != nil {
			return err
		}
		if payment.BookingID != nil {
			return tx.Model(&models.Booking{}).
				Where("id = ?", *payment.BookingID).
				Update("payment_status", types.PAYMENT_FAILED).
				Error
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("[payments] charge %s failed: %s", reference, reason)
	p.dropReference(reference)
	return nil
}

// settleTransfer marks a payout as delivered.
func (p *Payments) settleTransfer(reference string) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		payment, done, err := p.loadForSettlement(tx, reference)
		if err != nil || done {
			return err
		}
		return tx.Model(&models.Payment{}).
			Where("id = ?", payment.ID).
			Update("status", types.PAYMENT_COMPLETED).
			Error
	})
}

// reverseTransfer returns a failed or clawed-back payout to the wallet it
// was debited from. A transfer.reversed event can arrive after the payout
// completed, so unlike charges this path may reopen a terminal payment.
func (p *Payments) reverseTransfer(reference string, to types.PaymentStatus) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		err := tx.Where("reference = ?", reference).First(&payment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[payments] transfer event for unknown reference %s, acknowledged", reference)
			return nil
		}
		if err != nil {
			return err
		}
		switch payment.Status {
		case types.PAYMENT_FAILED, types.PAYMENT_REFUNDED, types.PAYMENT_CANCELLED:
			log.Printf("[payments] transfer %s already settled as %s, acknowledged", reference, payment.Status)
			return nil
		}
		accountID, ok := p.intentAccount(&payment)
		if !ok {
			return types.NewError(types.KindManualReview,
				fmt.Sprintf("transfer %s has no account to refund", reference))
		}
		paymentID := payment.ID
		_, err = p.wallets.CreditTx(tx, MutationInput{
			AccountID: accountID,
			Amount:    payment.Amount,
			Type:      types.WALLET_TXN_REFUND,
			Reference: reference,
			Reason:    "withdrawal reversed",
			PaymentID: &paymentID,
		})
		if err != nil {
			return err
		}
		return tx.Model(&models.Payment{}).
			Where("id = ?", payment.ID).
			Update("status", to).
			Error
	})
}

// materializeBooking builds the Booking row a payment-first charge was
// parked for. Runs inside the settlement transaction so a failure rolls
// back cleanly to the review path.
func (p *Payments) materializeBooking(tx *gorm.DB, payment *models.Payment) (*models.Booking, error) {
	payload, err := intentPayload(payment)
	if err != nil {
		return nil, err
	}
	if payload.SchemaVersion != config.BookingPayloadSchemaVersion {
		return nil, types.NewError(types.KindValidation,
			fmt.Sprintf("unsupported booking payload schema %d", payload.SchemaVersion))
	}
	property, _, err := p.bookings.validateParties(tx, payload.PropertyID, payload.GuestID)
	if err != nil {
		return nil, err
	}
	booking := models.Booking{
		PropertyID: payload.PropertyID,
		GuestID:    payload.GuestID,
		ProviderID: property.ProviderID,
		CheckIn:    DateOnly(payload.CheckIn),
		CheckOut:   DateOnly(payload.CheckOut),
		Guests:     payload.Guests,
		BasePrice:  payload.BasePrice,
		Fees:       payload.Fees,
		Tax:        payload.Tax,
		Discount:   payload.Discount,
		Total:      payload.Total,
		Currency:   payload.Currency,
		Status:     types.BOOKING_PENDING,
	}
	if err := tx.Create(&booking).Error; err != nil {
		return nil, err
	}
	err = tx.Model(&models.Payment{}).
		Where("id = ?", payment.ID).
		Update("booking_id", booking.ID).
		Error
	if err != nil {
		return nil, err
	}
	payment.BookingID = &booking.ID
	booking.Property = *property
	return &booking, nil
}

// loadForSettlement fetches a payment by reference and decides whether the
// event still needs applying. done=true with a nil error means acknowledge
// without writing: either the reference is unknown or the payment already
// reached a terminal status.
func (p *Payments) loadForSettlement(tx *gorm.DB, reference string) (*models.Payment, bool, error) {
	var payment models.Payment
	err := tx.Where("reference = ?", reference).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("[payments] webhook for unknown reference %s, acknowledged", reference)
		return nil, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	if payment.Terminal() {
		log.Printf("[payments] duplicate webhook for %s (already %s), acknowledged", reference, payment.Status)
		return nil, true, nil
	}
	return &payment, false, nil
}

// flagForReview marks a charge completed but unapplied and returns the
// queue payload to publish after commit.
func (p *Payments) flagForReview(tx *gorm.DB, payment *models.Payment, channel string, cause error) types.JSONB {
	reason := cause.Error()
	updates := map[string]any{
		"status":          types.PAYMENT_COMPLETED,
		"review_required": true,
		"review_reason":   reason,
	}
	if channel != "" {
		updates["channel"] = channel
	}
	if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).Updates(updates).Error; err != nil {
		log.Printf("[payments] could not flag %s for review: %s", payment.Reference, err)
	}
	log.Printf("[payments] charge %s settled but not applied: %s", payment.Reference, reason)
	return types.JSONB{
		"payment_id": payment.ID.String(),
		"reference":  payment.Reference,
		"amount":     payment.Amount,
		"currency":   payment.Currency,
		"reason":     reason,
	}
}

func (p *Payments) hasIntent(payment *models.Payment, intent string) bool {
	if payment.Metadata == nil {
		return false
	}
	v, ok := (*payment.Metadata)["intent"].(string)
	return ok && v == intent
}

func (p *Payments) isWithdrawal(payment *models.Payment) bool {
	return p.hasIntent(payment, "withdrawal")
}

// intentAccount pulls the wallet owner out of a withdrawal payment's
// metadata. JSON round-tripping stores numbers as float64.
func (p *Payments) intentAccount(payment *models.Payment) (uint, bool) {
	if payment.Metadata == nil {
		return 0, false
	}
	switch v := (*payment.Metadata)["account_id"].(type) {
	case float64:
		return uint(v), true
	case uint:
		return v, true
	case int:
		return uint(v), true
	}
	return 0, false
}

func intentMetadata(payload types.PendingBookingPayload) (types.JSONB, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var booking map[string]any
	if err := json.Unmarshal(raw, &booking); err != nil {
		return nil, err
	}
	return types.JSONB{
		"intent":         "booking",
		"schema_version": payload.SchemaVersion,
		"booking":        booking,
	}, nil
}

func intentPayload(payment *models.Payment) (*types.PendingBookingPayload, error) {
	if payment.Metadata == nil {
		return nil, types.NewError(types.KindValidation, "payment carries no booking payload")
	}
	raw, err := json.Marshal((*payment.Metadata)["booking"])
	if err != nil {
		return nil, err
	}
	var payload types.PendingBookingPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, types.WrapError(types.KindValidation, "malformed booking payload", err)
	}
	return &payload, nil
}

// initWithRetry calls the gateway with bounded retries. Only transient
// provider errors retry; validation errors surface immediately.
func (p *Payments) initWithRetry(email string, amount int64, currency, reference string, metadata types.JSONB) (*types.GatewayAuthorization, error) {
	var lastErr error
	delay := p.retryDelay
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		auth, err := p.gateway.InitializeTransaction(email, amount, currency, reference, metadata)
		if err == nil {
			return auth, nil
		}
		if types.Kind(err) != types.KindExternalService {
			return nil, err
		}
		lastErr = err
		log.Printf("[payments] gateway init attempt %d/%d failed: %s", attempt, p.maxRetries, err)
		if attempt < p.maxRetries {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return nil, lastErr
}

func (p *Payments) cacheReference(reference string, id uuid.UUID) {
	if p.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.cache.Set(ctx, "payment:"+reference, id.String(), time.Hour).Err(); err != nil {
		log.Printf("[payments] could not cache reference %s: %s", reference, err)
	}
}

func (p *Payments) dropReference(reference string) {
	if p.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.cache.Del(ctx, "payment:"+reference).Err(); err != nil {
		log.Printf("[payments] could not drop cached reference %s: %s", reference, err)
	}
}
