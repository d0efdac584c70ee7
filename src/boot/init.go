package boot

import (
	"hbs/src/common"
	"hbs/src/db"
	"hbs/src/lib"
	"hbs/src/models"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.Account{},
		&models.Property{},
		&models.AvailabilityBlock{},
		&models.Booking{},
		&models.Payment{},
		&models.Wallet{},
		&models.WalletTransaction{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

func InitBroker() {
	go lib.KafkaCreateTopics("booking-events")
	common.SQSConsumers()
}

// InitScheduler starts the reconciliation sweep: every interval, payments
// stuck in a non-terminal status longer than the stale window get settled
// from the gateway's answer.
func InitScheduler(reconcile func(window time.Duration)) {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	interval := 5 * time.Minute
	if v := os.Getenv("RECONCILE_INTERVAL_MINUTES"); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m > 0 {
			interval = time.Duration(m) * time.Minute
		}
	}
	window := 30 * time.Minute
	if v := os.Getenv("RECONCILE_STALE_MINUTES"); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m > 0 {
			window = time.Duration(m) * time.Minute
		}
	}
	j, err := sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(reconcile, window),
	)
	if err != nil {
		log.Printf("error scheduling reconciliation: %s", err.Error())
		return
	}
	log.Printf("reconciliation job %s scheduled every %s", j.ID(), interval)
	sched.Start()
}
