package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, &a)
	case string:
		return json.Unmarshal([]byte(v), &a)
	default:
		return errors.New("type assertion to []byte failed")
	}
}

type AccountStatus string

const (
	ACCOUNT_ACTIVE      AccountStatus = "active"
	ACCOUNT_DEACTIVATED AccountStatus = "deactivated"
)

type PropertyStatus string

const (
	PROPERTY_DRAFT    PropertyStatus = "draft"
	PROPERTY_LISTED   PropertyStatus = "listed"
	PROPERTY_UNLISTED PropertyStatus = "unlisted"
)

// PropertySource identifies who owns the inventory calendar. External
// properties are mirrored to the upstream provider on confirmation,
// best effort only.
type PropertySource string

const (
	SOURCE_INTERNAL PropertySource = "internal"
	SOURCE_HOTELAPI PropertySource = "hotelapi"
)

type BookingStatus string

const (
	BOOKING_PENDING    BookingStatus = "pending"
	BOOKING_CONFIRMED  BookingStatus = "confirmed"
	BOOKING_REJECTED   BookingStatus = "rejected"
	BOOKING_CHECKED_IN BookingStatus = "checked_in"
	BOOKING_CANCELLED  BookingStatus = "cancelled"
	BOOKING_COMPLETED  BookingStatus = "completed"
)

type PaymentStatus string

const (
	PAYMENT_PENDING    PaymentStatus = "pending"
	PAYMENT_PROCESSING PaymentStatus = "processing"
	PAYMENT_COMPLETED  PaymentStatus = "completed"
	PAYMENT_FAILED     PaymentStatus = "failed"
	PAYMENT_CANCELLED  PaymentStatus = "cancelled"
	PAYMENT_REFUNDED   PaymentStatus = "refunded"
)

type WalletStatus string

const (
	WALLET_ACTIVE    WalletStatus = "active"
	WALLET_SUSPENDED WalletStatus = "suspended"
	WALLET_CLOSED    WalletStatus = "closed"
)

type WalletTransactionType string

const (
	WALLET_TXN_CREDIT       WalletTransactionType = "credit"
	WALLET_TXN_DEBIT        WalletTransactionType = "debit"
	WALLET_TXN_REFUND       WalletTransactionType = "refund"
	WALLET_TXN_TRANSFER_IN  WalletTransactionType = "transfer_in"
	WALLET_TXN_TRANSFER_OUT WalletTransactionType = "transfer_out"
	WALLET_TXN_WITHDRAWAL   WalletTransactionType = "withdrawal"
)

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type RegisterRequestBody struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role,omitempty" binding:"omitempty,oneof=guest host"`
	Currency string `json:"currency,omitempty"`
}

type LoginRequestBody struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CreatePropertyRequestBody struct {
	Title        string `json:"title" binding:"required"`
	Location     string `json:"location" binding:"required"`
	Currency     string `json:"currency" binding:"required"`
	NightlyPrice int64  `json:"nightly_price" binding:"required"`
	InstantBook  bool   `json:"instant_book,omitempty"`
	Source       string `json:"source,omitempty"`
	ExternalID   string `json:"external_id,omitempty"`
	Publish      bool   `json:"publish,omitempty"`
}

type CreateBookingRequestBody struct {
	PropertyID uint   `json:"property" binding:"required"`
	CheckIn    string `json:"check_in" binding:"required,bookabledate"`
	CheckOut   string `json:"check_out" binding:"required,bookabledate,gtdate=CheckIn"`
	Guests     uint8  `json:"guests" binding:"required,min=1"`
}

type InitializeChargeRequestBody struct {
	BookingID uint   `json:"booking" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
}

// InitializeChargeWithIntentRequestBody carries the complete prospective
// booking; no Booking row exists until the gateway confirms the charge.
type InitializeChargeWithIntentRequestBody struct {
	Email      string `json:"email" binding:"required,email"`
	PropertyID uint   `json:"property" binding:"required"`
	CheckIn    string `json:"check_in" binding:"required,bookabledate"`
	CheckOut   string `json:"check_out" binding:"required,bookabledate,gtdate=CheckIn"`
	Guests     uint8  `json:"guests" binding:"required,min=1"`
	BasePrice  int64  `json:"base_price" binding:"required"`
	Fees       int64  `json:"fees,omitempty"`
	Tax        int64  `json:"tax,omitempty"`
	Discount   int64  `json:"discount,omitempty"`
	Currency   string `json:"currency" binding:"required"`
}

type CancelBookingRequestBody struct {
	Reason string `json:"reason,omitempty"`
}

type RejectBookingRequestBody struct {
	Reason string `json:"reason" binding:"required"`
}

type WalletTransferRequestBody struct {
	ToAccount uint   `json:"to_account" binding:"required"`
	Amount    int64  `json:"amount" binding:"required,min=1"`
	Reason    string `json:"reason,omitempty"`
}

type WithdrawRequestBody struct {
	Amount int64 `json:"amount" binding:"required,min=1"`
}

// PendingBookingPayload is the versioned booking snapshot parked inside a
// Payment's metadata for the payment-first flow. SchemaVersion guards
// materialization against stale shapes.
type PendingBookingPayload struct {
	SchemaVersion int       `json:"schema_version"`
	PropertyID    uint      `json:"property_id"`
	GuestID       uint      `json:"guest_id"`
	CheckIn       time.Time `json:"check_in"`
	CheckOut      time.Time `json:"check_out"`
	Guests        uint8     `json:"guests"`
	BasePrice     int64     `json:"base_price"`
	Fees          int64     `json:"fees"`
	Tax           int64     `json:"tax"`
	Discount      int64     `json:"discount"`
	Total         int64     `json:"total"`
	Currency      string    `json:"currency"`
}

// GatewayAuthorization is what the payment gateway hands back when a charge
// is initialized. The caller gets redirected to AuthorizationURL.
type GatewayAuthorization struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type GatewayVerification struct {
	Status  string `json:"status"`
	Amount  int64  `json:"amount"`
	Channel string `json:"channel"`
	Raw     JSONB  `json:"raw,omitempty"`
}

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type Handler func(payload string)
