package common

// SQSConsumers starts every queue consumer the API depends on.
func SQSConsumers() {
	go ManualReviewConsumer()
}
