package lib

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/stripe/stripe-go/v82"
)

var stripeClient *stripe.Client

func GetStripeClient() *stripe.Client {
	if stripeClient != nil {
		return stripeClient
	}
	apiKey := os.Getenv("STRIPE_SECRET_KEY")
	sc := stripe.NewClient(apiKey)
	stripeClient = sc

	return sc
}

func NewStripeClient(c *stripe.Client) {
	stripeClient = c
}

type CheckoutSessionLine struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

type CheckoutSessionInput struct {
	OrderID  string
	Currency string
	Email    string
	Lines    []CheckoutSessionLine
}

type CheckoutSessionOutput struct {
	SessionID string
	URL       string
}

type CheckoutSessionFunc func(ctx context.Context, in *CheckoutSessionInput) (*CheckoutSessionOutput, error)

var checkoutSessionFunc CheckoutSessionFunc = stripeCheckoutSession

// NewCheckoutSessionFunc swaps the session factory, for tests.
func NewCheckoutSessionFunc(f CheckoutSessionFunc) {
	checkoutSessionFunc = f
}

// CreateCheckoutSession asks the gateway for a hosted checkout session.
// The order ID travels in the session metadata so callbacks can find
// their way back to the order.
func CreateCheckoutSession(ctx context.Context, in *CheckoutSessionInput) (*CheckoutSessionOutput, error) {
	return checkoutSessionFunc(ctx, in)
}

func stripeCheckoutSession(ctx context.Context, in *CheckoutSessionInput) (*CheckoutSessionOutput, error) {
	sc := GetStripeClient()
	successUrl := fmt.Sprintf("%s/checkout/callback/success", os.Getenv("APP_HOST"))
	cancelUrl := fmt.Sprintf("%s/checkout/callback/cancel", os.Getenv("APP_HOST"))
	metadata := map[string]string{
		"orderId": in.OrderID,
	}
	piParams := &stripe.CheckoutSessionCreatePaymentIntentDataParams{}
	for k, v := range metadata {
		piParams.AddMetadata(k, v)
	}
	createParams := stripe.CheckoutSessionCreateParams{
		SuccessURL:        stripe.String(successUrl),
		CancelURL:         stripe.String(cancelUrl),
		UIMode:            stripe.String("hosted"),
		Mode:              stripe.String("payment"),
		CustomerEmail:     stripe.String(in.Email),
		PaymentIntentData: piParams,
		Metadata:          metadata,
	}
	lineItems := []*stripe.CheckoutSessionCreateLineItemParams{}
	for _, line := range in.Lines {
		lineItems = append(lineItems, &stripe.CheckoutSessionCreateLineItemParams{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency:   stripe.String(in.Currency),
				UnitAmount: stripe.Int64(line.UnitAmount),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
			},
			Quantity: stripe.Int64(line.Quantity),
		})
	}
	createParams.LineItems = lineItems
	checkoutSession, err := sc.V1CheckoutSessions.Create(ctx, &createParams)
	if err != nil {
		log.Printf("[stripe] CreateCheckoutSession failed: %s\n", err.Error())
		return nil, err
	}
	log.Printf("[stripe] CheckoutSessionID: %s\n", checkoutSession.ID)
	out := &CheckoutSessionOutput{
		SessionID: checkoutSession.ID,
		URL:       checkoutSession.URL,
	}
	return out, nil
}
