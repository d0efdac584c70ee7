package common

import (
	"log"
	"time"

	"hbs/src/config"
	"hbs/src/db"
	awslib "hbs/src/lib/aws"
	"hbs/src/models"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

// ManualReviewConsumer drains the queue of charges that settled at the
// gateway but could not be applied locally. The settlement transaction owns
// the review flag and reason; the consumer records when the message landed
// so operators can see queue lag. Resolution itself is an operator action
// through the API.
func ManualReviewConsumer() {
	qname := config.ReviewQueueName
	log.Printf("%s: Listening for messages...", qname)
	c := awslib.NewSQSConsumer(qname, func(body string) {
		go func() {
			if err := RecordReviewReceipt(db.GetDb(), body); err != nil {
				log.Printf("[%s]: error recording review receipt: %s", qname, err.Error())
			}
		}()
	})
	c.Listen()
}

// RecordReviewReceipt stamps the queue arrival time on a flagged payment.
// The reason is only backfilled when the settlement somehow left it empty.
func RecordReviewReceipt(gdb *gorm.DB, body string) error {
	if !gjson.Valid(body) {
		log.Printf("[%s]: received invalid json body, dropping", config.ReviewQueueName)
		return nil
	}
	paymentID, err := uuid.Parse(gjson.Get(body, "payment_id").String())
	if err != nil {
		log.Printf("[%s]: message carries no payment id, dropping", config.ReviewQueueName)
		return nil
	}
	reference := gjson.Get(body, "reference").String()
	reason := gjson.Get(body, "reason").String()
	log.Printf("[%s]: payment %s ref=%s needs review: %s", config.ReviewQueueName, paymentID, reference, reason)
	return gdb.Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.Where("id = ?", paymentID).First(&payment).Error; err != nil {
			return err
		}
		if !payment.ReviewRequired {
			// Resolved before the message arrived.
			return nil
		}
		updates := map[string]any{"review_queued_at": time.Now().UTC()}
		if payment.ReviewReason == nil || *payment.ReviewReason == "" {
			updates["review_reason"] = reason
		}
		return tx.
			Model(&models.Payment{}).
			Where("id = ?", paymentID).
			Updates(updates).
			Error
	})
}
