package main

import (
	"errors"
	"ets/src/common"
	"ets/src/types"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func checkoutStatusCode(err error) int {
	switch {
	case errors.Is(err, common.ErrEventNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrEventNotOnSale),
		errors.Is(err, common.ErrBadTicketLine),
		errors.Is(err, common.ErrAmountMismatch):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrSoldOut):
		return http.StatusConflict
	case errors.Is(err, common.ErrGatewaySession):
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}

func checkoutHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/checkout", func(ctx *gin.Context) {
			var body types.CheckoutRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			profileId := ctx.GetUint("profile")
			if body.Profile > 0 {
				profileId = body.Profile
			}
			result, err := common.CreateCheckout(ctx, &common.CheckoutInput{
				UserID:    userId,
				ProfileID: profileId,
				EventID:   body.EventID,
				Items:     body.Items,
				Amount:    body.Amount,
				Currency:  body.Currency,
				Email:     body.Email,
			})
			if err != nil {
				log.Printf("[Checkout] error for user %d: %s\n", userId, err.Error())
				ctx.JSON(checkoutStatusCode(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": result})
		})
	return g
}
