package common

import (
	"ets/src/models"
	"ets/src/types"
	"time"

	"gorm.io/gorm"
)

// IssueTickets materializes the settled selection as inventory rows:
// one OrderItem per line at the price charged, then one Ticket row per
// unit. It runs inside the settlement transaction, so everything lands
// together or not at all. Capacity was checked when the selection was
// made; by the time money has moved the selection is honored as-is.
func IssueTickets(tx *gorm.DB, order *models.Order, sel *types.PendingSelection) (int, error) {
	now := time.Now()
	issued := 0
	for _, line := range sel.Lines {
		item := models.OrderItem{
			OrderID:      order.ID,
			TicketTypeID: line.TicketTypeID,
			Quantity:     line.Qty,
			Price:        line.UnitPrice,
		}
		if err := tx.Create(&item).Error; err != nil {
			return 0, err
		}
		for i := uint(0); i < line.Qty; i++ {
			ticket := models.Ticket{
				EventID:      sel.EventID,
				OrderItemID:  item.ID,
				UserID:       sel.UserID,
				ProfileID:    sel.ProfileID,
				PurchaseDate: now,
				Status:       types.TICKET_ACTIVE,
			}
			if err := tx.Create(&ticket).Error; err != nil {
				return 0, err
			}
			issued++
		}
	}
	return issued, nil
}
