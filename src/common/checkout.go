package common

import (
	"context"
	"errors"
	"ets/src/db"
	"ets/src/lib"
	"ets/src/models"
	"ets/src/types"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
)

type CheckoutInput struct {
	UserID    uint
	ProfileID uint
	EventID   uint
	Items     []types.CheckoutItem
	Amount    int64
	Currency  string
	Email     string
}

type CheckoutResult struct {
	OrderID     string `json:"order_id"`
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

// CreateCheckout opens a pending order, parks the attendee's selection
// in the cache, and asks the gateway for a hosted session. A gateway
// failure leaves the order pending with no payment row; nothing retries
// it automatically and a later failure callback or sweep cancels it.
func CreateCheckout(ctx context.Context, in *CheckoutInput) (*CheckoutResult, error) {
	gdb := db.GetDb()
	now := time.Now()

	var event models.Event
	if err := gdb.
		Model(&models.Event{}).
		Where("id = ?", in.EventID).
		First(&event).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if event.Status != types.EVENT_PUBLISHED || now.After(event.EndsAt) {
		return nil, ErrEventNotOnSale
	}

	lines := make([]types.SelectionLine, 0, len(in.Items))
	sessionLines := make([]lib.CheckoutSessionLine, 0, len(in.Items))
	var total int64
	for _, item := range in.Items {
		var tt models.TicketType
		if err := gdb.
			Model(&models.TicketType{}).
			Where("id = ? AND event_id = ?", item.TicketTypeID, in.EventID).
			First(&tt).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrBadTicketLine
			}
			return nil, err
		}
		if !tt.OnSale(now) {
			return nil, ErrBadTicketLine
		}
		if tt.MaxPerOrder > 0 && item.Qty > tt.MaxPerOrder {
			return nil, fmt.Errorf("%w: per-order limit is %d", ErrBadTicketLine, tt.MaxPerOrder)
		}
		sold, err := soldQuantity(gdb, tt.ID)
		if err != nil {
			return nil, err
		}
		if sold+item.Qty > tt.Quantity {
			return nil, ErrSoldOut
		}
		total += tt.Price * int64(item.Qty)
		lines = append(lines, types.SelectionLine{
			TicketTypeID: tt.ID,
			Qty:          item.Qty,
			UnitPrice:    tt.Price,
		})
		sessionLines = append(sessionLines, lib.CheckoutSessionLine{
			Name:       fmt.Sprintf("%s - %s", event.Title, tt.Name),
			UnitAmount: tt.Price,
			Quantity:   int64(item.Qty),
		})
	}
	if total != in.Amount {
		log.Printf("[checkout] Amount mismatch for event %d: want %d got %d\n", in.EventID, total, in.Amount)
		return nil, ErrAmountMismatch
	}

	order := models.Order{
		UserID:    in.UserID,
		ProfileID: in.ProfileID,
		EventID:   in.EventID,
		Status:    types.ORDER_PENDING,
	}
	if err := gdb.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&order).Error
	}); err != nil {
		log.Printf("[checkout] Error creating order: %s\n", err.Error())
		return nil, err
	}

	sel := &types.PendingSelection{
		OrderID:   order.ID,
		EventID:   in.EventID,
		UserID:    in.UserID,
		ProfileID: in.ProfileID,
		Lines:     lines,
		Amount:    in.Amount,
		Currency:  in.Currency,
		Email:     in.Email,
	}
	if err := PutPendingSelection(ctx, sel); err != nil {
		return nil, err
	}

	session, err := lib.CreateCheckoutSession(ctx, &lib.CheckoutSessionInput{
		OrderID:  order.ID.String(),
		Currency: in.Currency,
		Email:    in.Email,
		Lines:    sessionLines,
	})
	if err != nil {
		log.Printf("[checkout] Gateway session failed for order %s: %s\n", order.ID, err.Error())
		return nil, ErrGatewaySession
	}

	payment := models.Payment{
		OrderID:       order.ID,
		Amount:        in.Amount,
		Currency:      in.Currency,
		Status:        types.PAYMENT_CREATED,
		TransactionID: session.SessionID,
	}
	if err := gdb.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&payment).Error
	}); err != nil {
		log.Printf("[checkout] Error creating payment for order %s: %s\n", order.ID, err.Error())
		return nil, err
	}

	result := &CheckoutResult{
		OrderID:     order.ID.String(),
		SessionID:   session.SessionID,
		RedirectURL: session.URL,
	}
	return result, nil
}

func soldQuantity(gdb *gorm.DB, ticketTypeID uint) (uint, error) {
	var sold int64
	err := gdb.
		Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.ticket_type_id = ? AND orders.status = ?", ticketTypeID, types.ORDER_PAID).
		Select("COALESCE(SUM(order_items.quantity), 0)").
		Scan(&sold).
		Error
	if err != nil {
		return 0, err
	}
	return uint(sold), nil
}
