package common

import (
	"encoding/json"
	"fmt"
	"testing"

	"hbs/src/models"
	"hbs/src/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
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
	if err := gdb.AutoMigrate(&models.Booking{}, &models.Payment{}); err != nil {
		t.Fatalf("error migrating test db: %s", err)
	}
	return gdb
}

func reviewMessage(t *testing.T, payment *models.Payment, reason string) string {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"payment_id": payment.ID.String(),
		"reference":  payment.Reference,
		"reason":     reason,
	})
	if err != nil {
		t.Fatalf("error building review message: %s", err)
	}
	return string(raw)
}

func TestRecordReviewReceiptStampsArrival(t *testing.T) {
	gdb := newTestDB(t)
	reason := "charge settled for a cancelled booking"
	payment := models.Payment{
		Amount:         42000,
		Currency:       "NGN",
		Reference:      uuid.NewString(),
		Status:         types.PAYMENT_COMPLETED,
		ReviewRequired: true,
		ReviewReason:   &reason,
	}
	assert.NoError(t, gdb.Create(&payment).Error)

	assert.NoError(t, RecordReviewReceipt(gdb, reviewMessage(t, &payment, "stale queue copy")))

	var fresh models.Payment
	assert.NoError(t, gdb.First(&fresh, "id = ?", payment.ID).Error)
	assert.NotNil(t, fresh.ReviewQueuedAt)
	assert.Equal(t, reason, *fresh.ReviewReason, "the settlement's reason wins over the message copy")
}

func TestRecordReviewReceiptSkipsResolvedPayments(t *testing.T) {
	gdb := newTestDB(t)
	payment := models.Payment{
		Amount:    1000,
		Currency:  "NGN",
		Reference: uuid.NewString(),
		Status:    types.PAYMENT_COMPLETED,
	}
	assert.NoError(t, gdb.Create(&payment).Error)

	assert.NoError(t, RecordReviewReceipt(gdb, reviewMessage(t, &payment, "late message")))

	var fresh models.Payment
	assert.NoError(t, gdb.First(&fresh, "id = ?", payment.ID).Error)
	assert.Nil(t, fresh.ReviewQueuedAt)
	assert.Nil(t, fresh.ReviewReason)
}

func TestRecordReviewReceiptDropsMalformedMessages(t *testing.T) {
	gdb := newTestDB(t)
	assert.NoError(t, RecordReviewReceipt(gdb, "not json"))
	assert.NoError(t, RecordReviewReceipt(gdb, `{"payment_id":"nope"}`))
}
