package common

import (
	"ets/src/db"
	"ets/src/models"
	"ets/src/types"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SweepPastEvents marks every event whose end time has passed as past.
// Idempotent: once a sweep commits, a concurrent or later run matches
// nothing. Runs hourly from the scheduler.
func SweepPastEvents() {
	gdb := db.GetDb()
	now := time.Now()
	err := gdb.Transaction(func(tx *gorm.DB) error {
		res := tx.
			Model(&models.Event{}).
			Where("ends_at < ?", now).
			Where(clause.Not(clause.IN{Column: "status", Values: []any{
				types.EVENT_PAST,
				types.EVENT_CANCELED,
			}})).
			Update("status", types.EVENT_PAST)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			log.Printf("[sweeper] Marked %d event(s) as past\n", res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		log.Printf("[sweeper] Error sweeping events: %s\n", err.Error())
	}
}
