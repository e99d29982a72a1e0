package boot

import (
	"context"
	"ets/src/common"
	"ets/src/config"
	"ets/src/db"
	"ets/src/lib"
	"ets/src/lib/mailer"
	"ets/src/models"
	"ets/src/types"
	"log"
	"time"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Event{},
		&models.EventView{},
		&models.TicketType{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.Ticket{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

func InitBroker() {
	apiEnv := config.API_ENV
	if apiEnv == string(types.Test) || apiEnv == string(types.Production) {
		mailer.StartDeliveryWorker()
	} else {
		go lib.KafkaCreateTopics("ticketing-facts")
	}
	common.StartDispatcher()
}

// InitScheduler registers the hourly maintenance jobs: marking ended
// events as past and cancelling pending orders whose checkout window
// has long expired.
func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	id, err := lib.CreateCronJob(common.SweepPastEvents, time.Hour)
	if err != nil {
		log.Printf("Error registering job: %s\n", err.Error())
		return
	}
	log.Printf("Job ID: %s\n", *id)
	id, err = lib.CreateCronJob(func() {
		if _, err := common.SweepStalePendingOrders(context.Background(), 24*time.Hour); err != nil {
			log.Printf("Error sweeping stale orders: %s\n", err.Error())
		}
	}, time.Hour)
	if err != nil {
		log.Printf("Error registering job: %s\n", err.Error())
		return
	}
	log.Printf("Job ID: %s\n", *id)
	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	err = sched.Shutdown()
	if err != nil {
		log.Println("An error has occurred while stopping Scheduler. Check logs for info")
		return
	}
}
