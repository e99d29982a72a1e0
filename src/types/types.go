package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type Environment string

const (
	Local      Environment = "local"
	Test       Environment = "test"
	Production Environment = "production"
)

type OrderStatus string

const (
	ORDER_PENDING   OrderStatus = "pending"
	ORDER_PAID      OrderStatus = "paid"
	ORDER_CANCELLED OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PAYMENT_CREATED   PaymentStatus = "created"
	PAYMENT_SUCCEEDED PaymentStatus = "succeeded"
	PAYMENT_CANCELLED PaymentStatus = "cancelled"
)

type EventStatus string

const (
	EVENT_DRAFT     EventStatus = "draft"
	EVENT_PUBLISHED EventStatus = "published"
	EVENT_PAST      EventStatus = "past"
	EVENT_CANCELED  EventStatus = "cancelled"
)

type TicketStatus string

const (
	TICKET_ACTIVE      TicketStatus = "active"
	TICKET_TRANSFERRED TicketStatus = "transferred"
)

// SelectionLine is one chosen ticket line inside a pending selection.
// UnitPrice is the price quoted at checkout time, in the smallest currency
// unit; issuance records this price, not the live one.
type SelectionLine struct {
	TicketTypeID uint  `json:"ticket_type_id"`
	Qty          uint  `json:"qty"`
	UnitPrice    int64 `json:"unit_price"`
}

// PendingSelection is the cache entry written at checkout and consumed at
// settlement. It lives only in the shared cache, keyed by order ID, with a
// bounded TTL; absence after expiry is an expected state.
type PendingSelection struct {
	OrderID   uuid.UUID       `json:"order_id"`
	EventID   uint            `json:"event_id"`
	UserID    uint            `json:"user_id"`
	ProfileID uint            `json:"profile_id"`
	Lines     []SelectionLine `json:"lines"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	Email     string          `json:"email"`
}

// Facts handed to the side-effect dispatcher after the settlement or
// cancellation transaction commits.
type PaymentSucceededFact struct {
	OrderID   uuid.UUID       `json:"order_id"`
	EventID   uint            `json:"event_id"`
	UserID    uint            `json:"user_id"`
	ProfileID uint            `json:"profile_id"`
	Email     string          `json:"email"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	Tickets   []SelectionLine `json:"tickets"`
}

type OrderCancelledFact struct {
	OrderID  uuid.UUID `json:"order_id"`
	EventID  uint      `json:"event_id"`
	Reason   string    `json:"reason"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
}

type EventViewedFact struct {
	EventID   uint      `json:"event_id"`
	ProfileID uint      `json:"profile_id"`
	ViewedAt  time.Time `json:"viewed_at"`
}

type CheckoutItem struct {
	TicketTypeID uint `json:"ticket_type" binding:"required"`
	Qty          uint `json:"qty" binding:"required,gt=0"`
}

type CheckoutRequestBody struct {
	EventID  uint           `json:"event" binding:"required"`
	Items    []CheckoutItem `json:"items" binding:"required,min=1,dive"`
	Amount   int64          `json:"amount" binding:"required,gt=0"`
	Currency string         `json:"currency" binding:"required,len=3"`
	Email    string         `json:"email" binding:"required,email"`
	Profile  uint           `json:"profile,omitempty"`
}

type FailPaymentRequestBody struct {
	Reason string `json:"reason" binding:"required,reasoncode"`
}

type CreateEventRequestBody struct {
	Title    string `json:"title" binding:"required"`
	About    string `json:"about,omitempty"`
	Location string `json:"location" binding:"required"`
	StartsAt string `json:"starts_at" binding:"required,bookabledate" time_format:"2006-01-02 15:04:05 -07:00"`
	EndsAt   string `json:"ends_at" binding:"required,bookabledate,gtdate=StartsAt" time_format:"2006-01-02 15:04:05 -07:00"`
	Publish  bool   `json:"publish,omitempty"`
}

type CreateTicketTypeRequestBody struct {
	Name         string  `json:"name" binding:"required"`
	Price        int64   `json:"price" binding:"required,gt=0"`
	Currency     string  `json:"currency" binding:"required,len=3"`
	Quantity     uint    `json:"quantity" binding:"required,gt=0"`
	MaxPerOrder  uint    `json:"max_per_order,omitempty"`
	SaleStartsAt *string `json:"sale_starts_at,omitempty"`
	SaleEndsAt   *string `json:"sale_ends_at,omitempty"`
}

type RegisterUserRequestBody struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name" binding:"required"`
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type OrderURIParams struct {
	ID string `uri:"id" binding:"required,uuid"`
}
