package main

import (
	"errors"
	"ets/src/common"
	"ets/src/types"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/tidwall/gjson"
)

// paymentCallbackRoutes exposes the gateway-facing settle and fail
// callbacks. The gateway retries on its own schedule, so both routes
// must stay safe under duplicate and out-of-order delivery.
func paymentCallbackRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.
		POST("/payments/:id/settle", func(ctx *gin.Context) {
			var params types.OrderURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			orderId := uuid.MustParse(params.ID)
			result, err := common.SettleOrder(ctx, orderId)
			if err != nil {
				status := http.StatusUnprocessableEntity
				switch {
				case errors.Is(err, common.ErrOrderNotFound), errors.Is(err, common.ErrPaymentNotFound):
					status = http.StatusNotFound
				case errors.Is(err, common.ErrAlreadySettled), errors.Is(err, common.ErrAlreadyCancelled):
					status = http.StatusConflict
				}
				log.Printf("[Settle] order %s: %s\n", orderId, err.Error())
				body := gin.H{"error": err.Error()}
				if result != nil && result.PaymentID != uuid.Nil {
					body["payment_id"] = result.PaymentID
				}
				ctx.JSON(status, body)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": result})
		}).
		POST("/payments/:id/fail", func(ctx *gin.Context) {
			var params types.OrderURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.FailPaymentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			orderId := uuid.MustParse(params.ID)
			result, err := common.FailOrder(ctx, orderId, body.Reason)
			if err != nil {
				status := http.StatusUnprocessableEntity
				switch {
				case errors.Is(err, common.ErrOrderNotFound):
					status = http.StatusNotFound
				case errors.Is(err, common.ErrOrderPaid):
					status = http.StatusConflict
				case errors.Is(err, common.ErrUnknownReason):
					status = http.StatusBadRequest
				}
				log.Printf("[Fail] order %s: %s\n", orderId, err.Error())
				ctx.JSON(status, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": result})
		})
	return apiv1
}

// stripeWebhookRoute drives the same settle and fail paths from the
// gateway's signed webhook events instead of direct callbacks.
func stripeWebhookRoute(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhook/stripe", func(ctx *gin.Context) {
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		whsecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
		event, err := webhook.ConstructEvent(payload, ctx.GetHeader("Stripe-Signature"), whsecret)
		if err != nil {
			log.Printf("Error verifying webhook signature: %s\n", err.Error())
			ctx.Status(http.StatusBadRequest)
			return
		}
		log.Printf("[StripeEvent] %s\n", event.Type)
		switch event.Type {
		case "checkout.session.completed":
			id := gjson.GetBytes(event.Data.Raw, "metadata.orderId").String()
			orderId, err := uuid.Parse(id)
			if err != nil {
				log.Printf("[Stripe] session %s carries no usable orderId: %s\n", gjson.GetBytes(event.Data.Raw, "id").String(), err.Error())
				break
			}
			if _, err := common.SettleOrder(ctx, orderId); err != nil {
				if errors.Is(err, common.ErrAlreadySettled) {
					log.Printf("[Stripe] duplicate settlement for order %s ignored\n", orderId)
					break
				}
				log.Printf("[Stripe] error settling order %s: %s\n", orderId, err.Error())
			}
		case "checkout.session.expired":
			id := gjson.GetBytes(event.Data.Raw, "metadata.orderId").String()
			orderId, err := uuid.Parse(id)
			if err != nil {
				log.Printf("[Stripe] session %s carries no usable orderId: %s\n", gjson.GetBytes(event.Data.Raw, "id").String(), err.Error())
				break
			}
			if _, err := common.FailOrder(ctx, orderId, "session_expired"); err != nil {
				log.Printf("[Stripe] error cancelling order %s: %s\n", orderId, err.Error())
			}
		default:
			log.Printf("[Stripe] unhandled event type: %s\n", event.Type)
		}
		ctx.Status(http.StatusOK)
	})
	return apiv1
}
