package main

import (
	"ets/src/db"
	"ets/src/models"
	"ets/src/types"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func orderHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/orders", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			gdb := db.GetDb()
			var orders []models.Order
			err := gdb.
				Model(&models.Order{}).
				Where(&models.Order{UserID: userId}).
				Preload("Event").
				Preload("Payment").
				Order("created_at desc").
				Find(&orders).
				Error
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": orders, "count": len(orders)})
		}).
		GET("/orders/:id", func(ctx *gin.Context) {
			var params types.OrderURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			userId := ctx.GetUint("id")
			orderId := uuid.MustParse(params.ID)
			gdb := db.GetDb()
			var order models.Order
			ss := gdb.Session(&gorm.Session{PrepareStmt: true})
			if err := ss.
				Model(&models.Order{}).
				Where("id = ? AND user_id = ?", orderId, userId).
				Preload("Event").
				Preload("Payment").
				Preload("Items").
				Preload("Items.Tickets").
				First(&order).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": order})
		})
	return g
}
