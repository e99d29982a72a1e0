package common

import (
	"ets/src/db"
	"ets/src/lib"
	"ets/src/lib/mailer"
	"ets/src/models"
	"ets/src/types"
	"fmt"
	"log"
	"os"
)

func senderAddress() (string, string) {
	from := os.Getenv("MAIL_FROM")
	if from == "" {
		from = "no-reply@localhost"
	}
	return from, "Ticketing"
}

// HandlePaymentSucceeded sends the attendee receipt and the organizer
// new-order alert. A delivery failure is logged and forgotten; the
// order it refers to is already settled and must stay settled.
func HandlePaymentSucceeded(f *types.PaymentSucceededFact) {
	gdb := db.GetDb()
	var event models.Event
	if err := gdb.
		Model(&models.Event{}).
		Where("id = ?", f.EventID).
		Preload("Organizer").
		First(&event).
		Error; err != nil {
		log.Printf("[dispatch] Could not resolve event %d for receipt: %s\n", f.EventID, err.Error())
		return
	}

	qty := 0
	for _, line := range f.Tickets {
		qty += int(line.Qty)
	}
	from, fromName := senderAddress()
	receipt := &lib.SendMailInput{
		From:     from,
		FromName: fromName,
		To:       []string{f.Email},
		Subject:  fmt.Sprintf("Your tickets for %s", event.Title),
		Body: fmt.Sprintf(
			"Payment received. %d ticket(s) for %s are attached to your account.\nOrder: %s\nTotal: %d %s\n",
			qty, event.Title, f.OrderID, f.Amount, f.Currency,
		),
	}
	if err := mailer.NewMailerMessage(receipt); err != nil {
		log.Printf("[dispatch] Error sending receipt for order %s: %s\n", f.OrderID, err.Error())
	}

	if event.Organizer == nil || event.Organizer.Email == "" {
		log.Printf("[dispatch] No organizer contact for event %d, skipping alert\n", f.EventID)
		return
	}
	alert := &lib.SendMailInput{
		From:     from,
		FromName: fromName,
		To:       []string{event.Organizer.Email},
		Subject:  fmt.Sprintf("New order for %s", event.Title),
		Body: fmt.Sprintf(
			"Order %s: %d ticket(s) sold for %d %s.\n",
			f.OrderID, qty, f.Amount, f.Currency,
		),
	}
	if err := mailer.NewMailerMessage(alert); err != nil {
		log.Printf("[dispatch] Error sending organizer alert for order %s: %s\n", f.OrderID, err.Error())
	}
}

func HandleOrderCancelled(f *types.OrderCancelledFact) {
	if f.Email == "" {
		log.Printf("[dispatch] No contact for cancelled order %s, skipping notice\n", f.OrderID)
		return
	}
	from, fromName := senderAddress()
	notice := &lib.SendMailInput{
		From:     from,
		FromName: fromName,
		To:       []string{f.Email},
		Subject:  "Your order was cancelled",
		Body:     fmt.Sprintf("Hi %s,\n\nOrder %s was cancelled: %s\n", f.Username, f.OrderID, f.Reason),
	}
	if err := mailer.NewMailerMessage(notice); err != nil {
		log.Printf("[dispatch] Error sending cancellation notice for order %s: %s\n", f.OrderID, err.Error())
	}
}

func HandleEventViewed(f *types.EventViewedFact) {
	gdb := db.GetDb()
	view := models.EventView{
		EventID:   f.EventID,
		ProfileID: f.ProfileID,
		ViewedAt:  f.ViewedAt,
	}
	if err := gdb.Create(&view).Error; err != nil {
		log.Printf("[dispatch] Error recording view for event %d: %s\n", f.EventID, err.Error())
	}
}
