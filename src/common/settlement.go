package common

import (
	"context"
	"errors"
	"ets/src/db"
	"ets/src/models"
	"ets/src/types"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SettlementResult struct {
	OrderID          uuid.UUID `json:"order_id"`
	PaymentID        uuid.UUID `json:"payment_id"`
	Amount           int64     `json:"amount"`
	Currency         string    `json:"currency"`
	TicketsIssued    int       `json:"tickets_issued"`
	SelectionMissing bool      `json:"-"`
}

// SettleOrder turns a gateway success callback into a durable paid
// order plus issued tickets, exactly once per order. The conditional
// update on the payment row is the idempotency gate: the first caller
// flips created -> succeeded and runs issuance; every later caller
// observes the already-updated row and gets ErrAlreadySettled with the
// original payment's identifier. The gate lives in the durable store,
// so it holds across service instances.
func SettleOrder(ctx context.Context, orderID uuid.UUID) (*SettlementResult, error) {
	gdb := db.GetDb()

	var order models.Order
	if err := gdb.
		Model(&models.Order{}).
		Where("id = ?", orderID).
		First(&order).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	result := &SettlementResult{OrderID: orderID}
	var fact *types.PaymentSucceededFact
	err := gdb.Transaction(func(tx *gorm.DB) error {
		res := tx.
			Model(&models.Payment{}).
			Where("order_id = ? AND status = ?", orderID, types.PAYMENT_CREATED).
			Update("status", types.PAYMENT_SUCCEEDED)
		if res.Error != nil {
			return res.Error
		}

		var payment models.Payment
		if err := tx.
			Model(&models.Payment{}).
			Where("order_id = ?", orderID).
			First(&payment).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}
		result.PaymentID = payment.ID
		result.Amount = payment.Amount
		result.Currency = payment.Currency

		if res.RowsAffected == 0 {
			if payment.Status == types.PAYMENT_CANCELLED {
				return ErrAlreadyCancelled
			}
			return ErrAlreadySettled
		}

		// The payment gate does not cover an order cancelled while its
		// payment row was still created, so the order state decides too:
		// anything but pending is a conflict and rolls back the flip.
		var current models.Order
		if err := tx.
			Model(&models.Order{}).
			Where("id = ?", orderID).
			First(&current).
			Error; err != nil {
			return err
		}
		if current.Status == types.ORDER_PAID {
			return ErrAlreadySettled
		}
		if current.Status != types.ORDER_PENDING {
			return ErrAlreadyCancelled
		}

		res = tx.
			Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, types.ORDER_PENDING).
			Updates(map[string]any{
				"status":     types.ORDER_PAID,
				"payment_id": payment.ID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyCancelled
		}

		sel, err := GetPendingSelection(ctx, orderID)
		if err != nil {
			return err
		}
		if sel == nil {
			// Money has moved; the order stays paid. Issuance cannot run
			// without the selection, so flag the order for manual
			// reconciliation instead of failing the callback.
			result.SelectionMissing = true
			return nil
		}

		issued, err := IssueTickets(tx, &current, sel)
		if err != nil {
			return err
		}
		result.TicketsIssued = issued
		fact = &types.PaymentSucceededFact{
			OrderID:   orderID,
			EventID:   sel.EventID,
			UserID:    sel.UserID,
			ProfileID: sel.ProfileID,
			Email:     sel.Email,
			Amount:    payment.Amount,
			Currency:  payment.Currency,
			Tickets:   sel.Lines,
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	if result.SelectionMissing {
		log.Printf("[settlement] INCONSISTENCY order %s is paid but its pending selection is gone; tickets were not issued, reconcile manually\n", orderID)
		return result, nil
	}

	DeletePendingSelection(ctx, orderID)
	Publish(fact)
	log.Printf("[settlement] Order %s settled, %d ticket(s) issued\n", orderID, result.TicketsIssued)
	return result, nil
}

// Cancellation reason codes accepted from the gateway mapped to the
// message recorded on the order.
var CancelReasons = map[string]string{
	"user_cancelled":  "User canceled payment",
	"payment_failed":  "Payment failed",
	"session_expired": "Checkout session expired",
}

type CancellationResult struct {
	OrderID   uuid.UUID  `json:"order_id"`
	PaymentID *uuid.UUID `json:"payment_id,omitempty"`
	EventID   uint       `json:"event_id"`
	Reason    string     `json:"reason"`
}

// FailOrder applies a gateway failure or cancel callback. Re-applying
// to an already cancelled order is a no-op that reports the recorded
// reason; a callback for a paid order is rejected outright, since a
// failure arriving after settlement indicates a race on the gateway
// side and must not undo a paid order.
func FailOrder(ctx context.Context, orderID uuid.UUID, reasonCode string) (*CancellationResult, error) {
	reason, ok := CancelReasons[reasonCode]
	if !ok {
		return nil, ErrUnknownReason
	}
	gdb := db.GetDb()

	var order models.Order
	if err := gdb.
		Model(&models.Order{}).
		Where("id = ?", orderID).
		First(&order).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.Status == types.ORDER_PAID {
		return nil, ErrOrderPaid
	}
	result := &CancellationResult{
		OrderID: orderID,
		EventID: order.EventID,
		Reason:  reason,
	}
	if order.Status == types.ORDER_CANCELLED {
		if order.CancelReason != nil {
			result.Reason = *order.CancelReason
		}
		result.PaymentID = order.PaymentID
		return result, nil
	}

	err := gdb.Transaction(func(tx *gorm.DB) error {
		res := tx.
			Model(&models.Payment{}).
			Where("order_id = ? AND status = ?", orderID, types.PAYMENT_CREATED).
			Update("status", types.PAYMENT_CANCELLED)
		if res.Error != nil {
			return res.Error
		}
		var payment models.Payment
		if err := tx.
			Model(&models.Payment{}).
			Where("order_id = ?", orderID).
			First(&payment).
			Error; err == nil {
			if payment.Status == types.PAYMENT_SUCCEEDED {
				return ErrOrderPaid
			}
			result.PaymentID = &payment.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.
			Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, types.ORDER_PENDING).
			Updates(map[string]any{
				"status":        types.ORDER_CANCELLED,
				"cancel_reason": reason,
			}).
			Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	DeletePendingSelection(ctx, orderID)

	var user models.User
	if err := gdb.
		Model(&models.User{}).
		Where("id = ?", order.UserID).
		First(&user).
		Error; err != nil {
		log.Printf("[settlement] Could not resolve user %d for cancellation notice: %s\n", order.UserID, err.Error())
	}
	Publish(&types.OrderCancelledFact{
		OrderID:  orderID,
		EventID:  order.EventID,
		Reason:   reason,
		Email:    user.Email,
		Username: user.Name,
	})
	log.Printf("[settlement] Order %s cancelled: %s\n", orderID, reason)
	return result, nil
}

// SweepStalePendingOrders cancels pending orders older than the cutoff
// whose checkout never produced a settlement. Safety net for gateway
// sessions that were abandoned without a failure callback. Each swept
// order gets the same cleanup a failure callback would run: the cached
// selection is dropped and a cancellation fact goes out.
func SweepStalePendingOrders(ctx context.Context, cutoff time.Duration) (int, error) {
	gdb := db.GetDb()
	deadline := time.Now().Add(-cutoff)
	reason := CancelReasons["session_expired"]
	var stale []models.Order
	err := gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Model(&models.Order{}).
			Where("status = ? AND created_at < ?", types.ORDER_PENDING, deadline).
			Find(&stale).
			Error; err != nil {
			return err
		}
		for _, o := range stale {
			if err := tx.
				Model(&models.Payment{}).
				Where("order_id = ? AND status = ?", o.ID, types.PAYMENT_CREATED).
				Update("status", types.PAYMENT_CANCELLED).
				Error; err != nil {
				return err
			}
			if err := tx.
				Model(&models.Order{}).
				Where("id = ? AND status = ?", o.ID, types.ORDER_PENDING).
				Updates(map[string]any{
					"status":        types.ORDER_CANCELLED,
					"cancel_reason": reason,
				}).
				Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, o := range stale {
		DeletePendingSelection(ctx, o.ID)
		var user models.User
		if err := gdb.
			Model(&models.User{}).
			Where("id = ?", o.UserID).
			First(&user).
			Error; err != nil {
			log.Printf("[sweeper] Could not resolve user %d for cancellation notice: %s\n", o.UserID, err.Error())
		}
		Publish(&types.OrderCancelledFact{
			OrderID:  o.ID,
			EventID:  o.EventID,
			Reason:   reason,
			Email:    user.Email,
			Username: user.Name,
		})
	}
	if len(stale) > 0 {
		log.Printf("[sweeper] Cancelled %d stale pending order(s)\n", len(stale))
	}
	return len(stale), nil
}
