package services

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"hbs/src/models"
	"hbs/src/types"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("error opening test db: %s", err)
	}
	err = gdb.AutoMigrate(
		&models.Account{},
		&models.Property{},
		&models.AvailabilityBlock{},
		&models.Booking{},
		&models.Payment{},
		&models.Wallet{},
		&models.WalletTransaction{},
	)
	if err != nil {
		t.Fatalf("error migrating test db: %s", err)
	}
	return gdb
}

func seedAccount(t *testing.T, gdb *gorm.DB, role string, balance int64) *models.Account {
	t.Helper()
	account := models.Account{
		Name:   fmt.Sprintf("%s %s", role, uuid.NewString()[:8]),
		Email:  fmt.Sprintf("%s@example.test", uuid.NewString()[:8]),
		Role:   role,
		Status: types.ACCOUNT_ACTIVE,
	}
	if err := gdb.Create(&account).Error; err != nil {
		t.Fatalf("error seeding account: %s", err)
	}
	wallet := models.Wallet{
		AccountID: account.ID,
		Balance:   balance,
		Currency:  "NGN",
		Status:    types.WALLET_ACTIVE,
	}
	if err := gdb.Create(&wallet).Error; err != nil {
		t.Fatalf("error seeding wallet: %s", err)
	}
	return &account
}

func seedProperty(t *testing.T, gdb *gorm.DB, providerID uint, instantBook bool) *models.Property {
	t.Helper()
	property := models.Property{
		ProviderID:   providerID,
		Title:        "Seaview Flat",
		Slug:         "seaview-flat-" + uuid.NewString()[:8],
		Location:     "Lagos",
		Currency:     "NGN",
		NightlyPrice: 10000,
		Status:       types.PROPERTY_LISTED,
		InstantBook:  instantBook,
	}
	if err := gdb.Create(&property).Error; err != nil {
		t.Fatalf("error seeding property: %s", err)
	}
	return &property
}

func seedBooking(t *testing.T, gdb *gorm.DB, property *models.Property, guestID uint, checkIn, checkOut string) *models.Booking {
	t.Helper()
	booking := models.Booking{
		PropertyID: property.ID,
		GuestID:    guestID,
		ProviderID: property.ProviderID,
		CheckIn:    date(t, checkIn),
		CheckOut:   date(t, checkOut),
		Guests:     2,
		BasePrice:  property.NightlyPrice * nightsIn(t, checkIn, checkOut),
		Currency:   property.Currency,
		Status:     types.BOOKING_PENDING,
	}
	booking.Total = booking.BasePrice
	if err := gdb.Create(&booking).Error; err != nil {
		t.Fatalf("error seeding booking: %s", err)
	}
	return &booking
}

func date(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("bad date %q: %s", value, err)
	}
	return parsed.UTC()
}

func nightsIn(t *testing.T, checkIn, checkOut string) int64 {
	t.Helper()
	return int64(len(Nights(date(t, checkIn), date(t, checkOut))))
}

// fakeGateway scripts the payment provider for service tests.
type fakeGateway struct {
	initCalls     int
	failInitTimes int
	failInitKind  types.ErrorKind

	verifyStatus  string
	verifyChannel string

	transferErr   error
	transferCalls int
}

func (f *fakeGateway) InitializeTransaction(email string, amount int64, currency string, reference string, metadata types.JSONB) (*types.GatewayAuthorization, error) {
	f.initCalls++
	if f.initCalls <= f.failInitTimes {
		kind := f.failInitKind
		if kind == "" {
			kind = types.KindExternalService
		}
		return nil, types.NewError(kind, "gateway unavailable")
	}
	return &types.GatewayAuthorization{
		AuthorizationURL: "https://checkout.test/" + reference,
		AccessCode:       "AC_" + reference[:8],
		Reference:        reference,
	}, nil
}

func (f *fakeGateway) VerifyTransaction(reference string) (*types.GatewayVerification, error) {
	status := f.verifyStatus
	if status == "" {
		status = "success"
	}
	return &types.GatewayVerification{Status: status, Channel: f.verifyChannel}, nil
}

func (f *fakeGateway) InitiateTransfer(recipient string, amount int64, currency string, reference string, reason string) error {
	f.transferCalls++
	return f.transferErr
}

func newServices(t *testing.T, gdb *gorm.DB, gateway Gateway, cfg PaymentsConfig) (*Availability, *Wallets, *Bookings, *Payments) {
	t.Helper()
	availability := NewAvailability(gdb)
	wallets := NewWallets(gdb, true)
	bookings := NewBookings(gdb, availability, wallets, BookingsConfig{})
	if cfg.WebhookSecret == "" {
		cfg.WebhookSecret = "whsec_test"
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Millisecond
	}
	payments := NewPayments(gdb, gateway, bookings, wallets, cfg)
	return availability, wallets, bookings, payments
}

func webhookBody(t *testing.T, event, reference string, extra map[string]any) []byte {
	t.Helper()
	data := map[string]any{"reference": reference}
	for k, v := range extra {
		data[k] = v
	}
	raw, err := json.Marshal(map[string]any{"event": event, "data": data})
	if err != nil {
		t.Fatalf("error building webhook body: %s", err)
	}
	return raw
}
