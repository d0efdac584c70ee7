package lib

import (
	"fmt"
	"log"
	"os"

	"hbs/src/types"
)

const bookingEventsTopic = "booking-events"

// Notify fans a lifecycle event out to the notification collaborators:
// a kafka message for downstream consumers and an email to the recipient.
// Failures are logged and swallowed; a notification must never roll back
// the transition that triggered it.
func Notify(event string, recipient string, data types.JSONB) {
	payload := map[string]any{
		"event":     event,
		"recipient": recipient,
		"data":      data,
	}
	if err := KafkaProduceMessage("BookingEventsProducer", bookingEventsTopic, payload); err != nil {
		log.Printf("[Notify] Error producing %s event: %s\n", event, err.Error())
	}
	if recipient == "" {
		return
	}
	input := &SendMailInput{
		From:     os.Getenv("MAIL_FROM"),
		FromName: os.Getenv("MAIL_FROM_NAME"),
		To:       recipient,
		Subject:  fmt.Sprintf("Booking update: %s", event),
		Body:     fmt.Sprintf("Your booking has a new update (%s).", event),
	}
	if err := SendMail(input); err != nil {
		log.Printf("[Notify] Error sending %s mail to %s: %s\n", event, recipient, err.Error())
	}
}
