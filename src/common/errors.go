package common

import "errors"

// Settlement pipeline error taxonomy. Handlers map these onto HTTP
// statuses; anything else is treated as an internal processing error.
var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrEventNotFound    = errors.New("event not found")
	ErrEventNotOnSale   = errors.New("event is not open for sale")
	ErrAlreadySettled   = errors.New("order already settled")
	ErrAlreadyCancelled = errors.New("order already cancelled")
	ErrOrderPaid        = errors.New("cannot cancel an order that is already paid")
	ErrAmountMismatch   = errors.New("amount does not match selected ticket lines")
	ErrBadTicketLine    = errors.New("ticket line does not reference a ticket type on sale for this event")
	ErrSoldOut          = errors.New("not enough tickets left for the requested quantity")
	ErrGatewaySession   = errors.New("could not create a checkout session with the payment gateway")
	ErrUnknownReason    = errors.New("unknown cancellation reason code")
)
